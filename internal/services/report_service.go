package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labang-online/portal/internal/identifier"
	"github.com/labang-online/portal/internal/lifecycle"
	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

// reportIDAttempts bounds retries on the astronomically unlikely RPT collision.
const reportIDAttempts = 3

// ReportService handles incident reports filed by residents.
type ReportService interface {
	File(ctx context.Context, accountID int64, in lifecycle.ReportInput) (*models.IncidentReport, error)
	ListForAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.IncidentReport, int, error)

	List(ctx context.Context, filter models.ReportFilter) ([]models.IncidentReport, int, error)
	Get(ctx context.Context, reportID string) (*models.IncidentReport, error)
	UpdateStatus(ctx context.Context, reportID string, status models.ReportStatus) (*models.IncidentReport, error)
	Delete(ctx context.Context, reportID string) error
}

type reportService struct {
	repo     repository.ReportRepository
	accounts repository.AccountRepository
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

// NewReportService creates a new instance of ReportService.
func NewReportService(repo repository.ReportRepository, accounts repository.AccountRepository, notifier Notifier, log *logger.Logger) ReportService {
	return &reportService{
		repo:     repo,
		accounts: accounts,
		notifier: notifier,
		log:      log.Component("reports"),
		now:      time.Now,
		newID:    identifier.NewReportID,
	}
}

func (s *reportService) File(ctx context.Context, accountID int64, in lifecycle.ReportInput) (*models.IncidentReport, error) {
	report, err := lifecycle.NewIncidentReport(accountID, in, s.now())
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < reportIDAttempts; attempt++ {
		report.ReportID = s.newID()
		err = s.repo.Insert(ctx, &report)
		if err == nil {
			s.log.Info("Incident report filed", map[string]interface{}{
				"report_id":  report.ReportID,
				"account_id": accountID,
				"type":       report.IncidentType,
			})
			return &report, nil
		}
		if !errors.Is(err, identifier.ErrCollision) {
			return nil, fmt.Errorf("failed to file incident report: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *reportService) ListForAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.IncidentReport, int, error) {
	return s.repo.List(ctx, models.ReportFilter{AccountID: &accountID, Limit: limit, Offset: offset})
}

func (s *reportService) List(ctx context.Context, filter models.ReportFilter) ([]models.IncidentReport, int, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, lifecycle.ErrInvalidReportStatus
	}
	if filter.IncidentType != nil && !filter.IncidentType.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown incident type %q", ErrValidation, *filter.IncidentType)
	}
	return s.repo.List(ctx, filter)
}

func (s *reportService) Get(ctx context.Context, reportID string) (*models.IncidentReport, error) {
	report, err := s.repo.FindByReportID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load incident report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return report, nil
}

func (s *reportService) UpdateStatus(ctx context.Context, reportID string, status models.ReportStatus) (*models.IncidentReport, error) {
	current, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.SetReportStatus(*current, status, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, reportID, next.Status, next.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrReportNotFound
	}

	s.log.Info("Incident report status changed", map[string]interface{}{
		"report_id": reportID,
		"from":      current.Status,
		"to":        updated.Status,
	})

	if current.Status != updated.Status {
		if owner, err := s.accounts.FindByID(ctx, updated.AccountID); err == nil && owner != nil {
			notifyEmail(ctx, s.notifier, s.log, owner.Email,
				"Update on your incident report "+updated.ReportID,
				fmt.Sprintf("The status of your %s report is now %q.", updated.IncidentType, updated.Status))
		}
	}
	return updated, nil
}

func (s *reportService) Delete(ctx context.Context, reportID string) error {
	deleted, err := s.repo.Delete(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to delete incident report: %w", err)
	}
	if !deleted {
		return ErrReportNotFound
	}
	s.log.Info("Incident report deleted", map[string]interface{}{"report_id": reportID})
	return nil
}
