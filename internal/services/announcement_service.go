package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

const (
	maxTitleLength = 200
	minBodyLength  = 1
)

// AnnouncementInput is the staff form for creating or editing an announcement.
type AnnouncementInput struct {
	IsActive *bool
	Title    string
	Body     string
	Type     models.AnnouncementType
}

// AnnouncementService serves the resident feed and staff management.
type AnnouncementService interface {
	// ListForResident returns active announcements and marks them seen.
	ListForResident(ctx context.Context, accountID int64, limit, offset int) ([]models.Announcement, int, error)

	// UnreadCount counts active announcements created after the account last
	// opened the feed.
	UnreadCount(ctx context.Context, accountID int64) (int, error)

	ListAll(ctx context.Context, limit, offset int) ([]models.Announcement, int, error)
	Create(ctx context.Context, authorID int64, in AnnouncementInput) (*models.Announcement, error)
	Update(ctx context.Context, id int64, in AnnouncementInput) (*models.Announcement, error)
	Toggle(ctx context.Context, id int64) (*models.Announcement, error)
	Delete(ctx context.Context, id int64) error
}

type announcementService struct {
	repo     repository.AnnouncementRepository
	accounts repository.AccountRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewAnnouncementService creates a new instance of AnnouncementService.
func NewAnnouncementService(repo repository.AnnouncementRepository, accounts repository.AccountRepository, log *logger.Logger) AnnouncementService {
	return &announcementService{
		repo:     repo,
		accounts: accounts,
		log:      log.Component("announcements"),
		now:      time.Now,
	}
}

func (s *announcementService) ListForResident(ctx context.Context, accountID int64, limit, offset int) ([]models.Announcement, int, error) {
	seenAt := s.now()
	announcements, total, err := s.repo.List(ctx, true, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if err := s.accounts.TouchAnnouncementsSeen(ctx, accountID, seenAt); err != nil {
		// The feed is still useful without the marker.
		s.log.Warn("Failed to advance announcement marker", map[string]interface{}{
			"account_id": accountID,
			"error":      err.Error(),
		})
	}
	return announcements, total, nil
}

func (s *announcementService) UnreadCount(ctx context.Context, accountID int64) (int, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return 0, ErrAccountNotFound
	}
	return s.repo.CountActiveSince(ctx, account.AnnouncementsSeenAt)
}

func (s *announcementService) ListAll(ctx context.Context, limit, offset int) ([]models.Announcement, int, error) {
	return s.repo.List(ctx, false, limit, offset)
}

func validateAnnouncement(in AnnouncementInput) (AnnouncementInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if in.Title == "" || len([]rune(in.Title)) > maxTitleLength {
		return in, fmt.Errorf("%w: title is required and must be at most %d characters", ErrValidation, maxTitleLength)
	}
	if len(in.Body) < minBodyLength {
		return in, fmt.Errorf("%w: body is required", ErrValidation)
	}
	if in.Type == "" {
		in.Type = models.AnnouncementGeneral
	}
	if !in.Type.Valid() {
		return in, fmt.Errorf("%w: type must be general, event, alert or maintenance", ErrValidation)
	}
	return in, nil
}

func (s *announcementService) Create(ctx context.Context, authorID int64, in AnnouncementInput) (*models.Announcement, error) {
	in, err := validateAnnouncement(in)
	if err != nil {
		return nil, err
	}

	a := &models.Announcement{
		Title:    in.Title,
		Body:     in.Body,
		Type:     in.Type,
		IsActive: in.IsActive == nil || *in.IsActive,
		AuthorID: &authorID,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info("Announcement created", map[string]interface{}{
		"announcement_id": a.ID,
		"author_id":       authorID,
		"type":            a.Type,
	})
	return a, nil
}

func (s *announcementService) Update(ctx context.Context, id int64, in AnnouncementInput) (*models.Announcement, error) {
	in, err := validateAnnouncement(in)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrAnnouncementNotFound
	}

	current.Title = in.Title
	current.Body = in.Body
	current.Type = in.Type
	if in.IsActive != nil {
		current.IsActive = *in.IsActive
	}

	found, err := s.repo.Update(ctx, current)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAnnouncementNotFound
	}

	s.log.Info("Announcement updated", map[string]interface{}{"announcement_id": id})
	return current, nil
}

func (s *announcementService) Toggle(ctx context.Context, id int64) (*models.Announcement, error) {
	a, err := s.repo.Toggle(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAnnouncementNotFound
	}
	s.log.Info("Announcement toggled", map[string]interface{}{
		"announcement_id": id,
		"is_active":       a.IsActive,
	})
	return a, nil
}

func (s *announcementService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAnnouncementNotFound
	}
	s.log.Info("Announcement deleted", map[string]interface{}{"announcement_id": id})
	return nil
}
