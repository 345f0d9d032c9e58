package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/labang-online/portal/internal/logger"
	"github.com/labang-online/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAnnouncementRepository is a mock implementation of AnnouncementRepository for testing
type MockAnnouncementRepository struct {
	mock.Mock
}

func (m *MockAnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAnnouncementRepository) FindByID(ctx context.Context, id int64) (*models.Announcement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Announcement), args.Error(1)
}

func (m *MockAnnouncementRepository) Update(ctx context.Context, a *models.Announcement) (bool, error) {
	args := m.Called(ctx, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnnouncementRepository) Toggle(ctx context.Context, id int64) (*models.Announcement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Announcement), args.Error(1)
}

func (m *MockAnnouncementRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnnouncementRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Announcement, int, error) {
	args := m.Called(ctx, activeOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Announcement), args.Int(1), args.Error(2)
}

func (m *MockAnnouncementRepository) CountActiveSince(ctx context.Context, since *time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

func newTestAnnouncementService(repo *MockAnnouncementRepository, accounts *fakeAccountRepository) *announcementService {
	svc := NewAnnouncementService(repo, accounts, logger.Nop()).(*announcementService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestListForResident_MarksSeen(t *testing.T) {
	repo := new(MockAnnouncementRepository)
	accounts := newFakeAccountRepository(resident(1, "juan"))
	svc := newTestAnnouncementService(repo, accounts)
	ctx := context.Background()

	repo.On("List", ctx, true, 20, 0).Return([]models.Announcement{{ID: 1, Title: "Clean-up drive"}}, 1, nil)

	items, total, err := svc.ListForResident(ctx, 1, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)

	account, err := accounts.FindByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, account.AnnouncementsSeenAt)
	assert.Equal(t, fixedNow, *account.AnnouncementsSeenAt)
}

func TestUnreadCount(t *testing.T) {
	repo := new(MockAnnouncementRepository)
	seen := fixedNow.Add(-time.Hour)
	juan := resident(1, "juan")
	juan.AnnouncementsSeenAt = &seen
	svc := newTestAnnouncementService(repo, newFakeAccountRepository(juan, resident(2, "maria")))
	ctx := context.Background()

	repo.On("CountActiveSince", ctx, &seen).Return(2, nil)
	repo.On("CountActiveSince", ctx, (*time.Time)(nil)).Return(5, nil)

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	_, err = svc.UnreadCount(ctx, 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreateAnnouncement(t *testing.T) {
	repo := new(MockAnnouncementRepository)
	svc := newTestAnnouncementService(repo, newFakeAccountRepository())
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(a *models.Announcement) bool {
		return a.Title == "Water interruption" && a.Type == models.AnnouncementGeneral && a.IsActive && *a.AuthorID == 10
	})).Return(nil)

	a, err := svc.Create(ctx, 10, AnnouncementInput{Title: "  Water interruption ", Body: "From 1PM to 5PM on Friday."})
	require.NoError(t, err)
	assert.Equal(t, "Water interruption", a.Title)
	repo.AssertExpectations(t)
}

func TestCreateAnnouncement_Validation(t *testing.T) {
	svc := newTestAnnouncementService(new(MockAnnouncementRepository), newFakeAccountRepository())
	ctx := context.Background()

	_, err := svc.Create(ctx, 10, AnnouncementInput{Title: "", Body: "body"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, 10, AnnouncementInput{Title: strings.Repeat("x", maxTitleLength+1), Body: "body"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, 10, AnnouncementInput{Title: "t", Body: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, 10, AnnouncementInput{Title: "t", Body: "b", Type: models.AnnouncementType("urgent")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateAnnouncement(t *testing.T) {
	repo := new(MockAnnouncementRepository)
	svc := newTestAnnouncementService(repo, newFakeAccountRepository())
	ctx := context.Background()
	inactive := false

	repo.On("FindByID", ctx, int64(3)).Return(&models.Announcement{ID: 3, Title: "Old", Body: "Old", Type: models.AnnouncementGeneral, IsActive: true}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(a *models.Announcement) bool {
		return a.ID == 3 && a.Title == "New" && a.Type == models.AnnouncementAlert && !a.IsActive
	})).Return(true, nil)
	repo.On("FindByID", ctx, int64(4)).Return(nil, nil)

	a, err := svc.Update(ctx, 3, AnnouncementInput{Title: "New", Body: "Typhoon signal no. 2", Type: models.AnnouncementAlert, IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, a.IsActive)

	_, err = svc.Update(ctx, 4, AnnouncementInput{Title: "New", Body: "Body"})
	assert.ErrorIs(t, err, ErrAnnouncementNotFound)
}

func TestToggleAndDeleteAnnouncement(t *testing.T) {
	repo := new(MockAnnouncementRepository)
	svc := newTestAnnouncementService(repo, newFakeAccountRepository())
	ctx := context.Background()

	repo.On("Toggle", ctx, int64(3)).Return(&models.Announcement{ID: 3, IsActive: false}, nil)
	repo.On("Toggle", ctx, int64(4)).Return(nil, nil)
	repo.On("Delete", ctx, int64(3)).Return(true, nil)
	repo.On("Delete", ctx, int64(4)).Return(false, nil)

	a, err := svc.Toggle(ctx, 3)
	require.NoError(t, err)
	assert.False(t, a.IsActive)

	_, err = svc.Toggle(ctx, 4)
	assert.ErrorIs(t, err, ErrAnnouncementNotFound)

	assert.NoError(t, svc.Delete(ctx, 3))
	assert.ErrorIs(t, svc.Delete(ctx, 4), ErrAnnouncementNotFound)
}
