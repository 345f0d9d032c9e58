package handlers

import (
	"context"

	"github.com/labang-online/portal/internal/auth"
	"github.com/labang-online/portal/internal/lifecycle"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/services"
	"github.com/stretchr/testify/mock"
)

func accountOrNil(args mock.Arguments, i int) *models.Account {
	if v := args.Get(i); v != nil {
		return v.(*models.Account)
	}
	return nil
}

func certOrNil(args mock.Arguments, i int) *models.CertificateRequest {
	if v := args.Get(i); v != nil {
		return v.(*models.CertificateRequest)
	}
	return nil
}

// MockAuthService is a mock implementation of services.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*models.Account, error) {
	args := m.Called(ctx, in)
	return accountOrNil(args, 0), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, username, password)
	if v := args.Get(0); v != nil {
		return v.(*services.LoginResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	return accountOrNil(args, 0), args.Error(1)
}

func (m *MockAuthService) ResendResetCode(ctx context.Context, accountID int64) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *MockAuthService) VerifyResetCode(ctx context.Context, accountID int64, code string) (auth.IssuedToken, error) {
	args := m.Called(ctx, accountID, code)
	return args.Get(0).(auth.IssuedToken), args.Error(1)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	return m.Called(ctx, token, password, confirm).Error(0)
}

func (m *MockAuthService) SendVerification(ctx context.Context, accountID int64, purpose models.CodePurpose) error {
	return m.Called(ctx, accountID, purpose).Error(0)
}

func (m *MockAuthService) ConfirmVerification(ctx context.Context, accountID int64, purpose models.CodePurpose, code string) (*models.Account, error) {
	args := m.Called(ctx, accountID, purpose, code)
	return accountOrNil(args, 0), args.Error(1)
}

// MockAccountService is a mock implementation of services.AccountService.
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetProfile(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	return accountOrNil(args, 0), args.Error(1)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, accountID int64, update services.ProfileUpdate) (*models.Account, error) {
	args := m.Called(ctx, accountID, update)
	return accountOrNil(args, 0), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Account), args.Int(1), args.Error(2)
}

func (m *MockAccountService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	return accountOrNil(args, 0), args.Error(1)
}

func (m *MockAccountService) VerifyResident(ctx context.Context, actor *models.Account, accountID int64) (*models.Account, error) {
	args := m.Called(ctx, actor, accountID)
	return accountOrNil(args, 0), args.Error(1)
}

func (m *MockAccountService) SetActive(ctx context.Context, actor *models.Account, accountID int64, active bool) (*models.Account, error) {
	args := m.Called(ctx, actor, accountID, active)
	return accountOrNil(args, 0), args.Error(1)
}

func (m *MockAccountService) ChangeRole(ctx context.Context, actor *models.Account, accountID int64, role models.Role) (*models.Account, error) {
	args := m.Called(ctx, actor, accountID, role)
	return accountOrNil(args, 0), args.Error(1)
}

// MockCertificateService is a mock implementation of services.CertificateService.
type MockCertificateService struct {
	mock.Mock
}

func (m *MockCertificateService) Create(ctx context.Context, accountID int64, in lifecycle.CertificateInput) (*models.CertificateRequest, error) {
	args := m.Called(ctx, accountID, in)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) ListForAccount(ctx context.Context, accountID int64, filter models.CertificateFilter) ([]models.CertificateRequest, int, error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).([]models.CertificateRequest), args.Int(1), args.Error(2)
}

func (m *MockCertificateService) GetForAccount(ctx context.Context, accountID int64, requestID string) (*models.CertificateRequest, error) {
	args := m.Called(ctx, accountID, requestID)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) SelectPaymentMode(ctx context.Context, accountID int64, requestID string, mode models.PaymentMode) (*models.CertificateRequest, error) {
	args := m.Called(ctx, accountID, requestID, mode)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) SubmitGCashReference(ctx context.Context, accountID int64, requestID, reference string) (*models.CertificateRequest, error) {
	args := m.Called(ctx, accountID, requestID, reference)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) ConfirmCounterPayment(ctx context.Context, accountID int64, requestID string) (*models.CertificateRequest, error) {
	args := m.Called(ctx, accountID, requestID)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) Cancel(ctx context.Context, accountID int64, requestID string) error {
	return m.Called(ctx, accountID, requestID).Error(0)
}

func (m *MockCertificateService) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateRequest, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.CertificateRequest), args.Int(1), args.Error(2)
}

func (m *MockCertificateService) Get(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	args := m.Called(ctx, requestID)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) VerifyPayment(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	args := m.Called(ctx, requestID)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) RejectPayment(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	args := m.Called(ctx, requestID)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) UpdateClaimStatus(ctx context.Context, requestID string, status models.ClaimStatus) (*models.CertificateRequest, error) {
	args := m.Called(ctx, requestID, status)
	return certOrNil(args, 0), args.Error(1)
}

func (m *MockCertificateService) Delete(ctx context.Context, requestID string) error {
	return m.Called(ctx, requestID).Error(0)
}

func (m *MockCertificateService) Export(ctx context.Context, filter models.CertificateFilter) ([]byte, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockReportService is a mock implementation of services.ReportService.
type MockReportService struct {
	mock.Mock
}

func reportOrNil(args mock.Arguments) *models.IncidentReport {
	if v := args.Get(0); v != nil {
		return v.(*models.IncidentReport)
	}
	return nil
}

func (m *MockReportService) File(ctx context.Context, accountID int64, in lifecycle.ReportInput) (*models.IncidentReport, error) {
	args := m.Called(ctx, accountID, in)
	return reportOrNil(args), args.Error(1)
}

func (m *MockReportService) ListForAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.IncidentReport, int, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]models.IncidentReport), args.Int(1), args.Error(2)
}

func (m *MockReportService) List(ctx context.Context, filter models.ReportFilter) ([]models.IncidentReport, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.IncidentReport), args.Int(1), args.Error(2)
}

func (m *MockReportService) Get(ctx context.Context, reportID string) (*models.IncidentReport, error) {
	args := m.Called(ctx, reportID)
	return reportOrNil(args), args.Error(1)
}

func (m *MockReportService) UpdateStatus(ctx context.Context, reportID string, status models.ReportStatus) (*models.IncidentReport, error) {
	args := m.Called(ctx, reportID, status)
	return reportOrNil(args), args.Error(1)
}

func (m *MockReportService) Delete(ctx context.Context, reportID string) error {
	return m.Called(ctx, reportID).Error(0)
}

// MockAnnouncementService is a mock implementation of services.AnnouncementService.
type MockAnnouncementService struct {
	mock.Mock
}

func announcementOrNil(args mock.Arguments) *models.Announcement {
	if v := args.Get(0); v != nil {
		return v.(*models.Announcement)
	}
	return nil
}

func (m *MockAnnouncementService) ListForResident(ctx context.Context, accountID int64, limit, offset int) ([]models.Announcement, int, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]models.Announcement), args.Int(1), args.Error(2)
}

func (m *MockAnnouncementService) UnreadCount(ctx context.Context, accountID int64) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockAnnouncementService) ListAll(ctx context.Context, limit, offset int) ([]models.Announcement, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Announcement), args.Int(1), args.Error(2)
}

func (m *MockAnnouncementService) Create(ctx context.Context, authorID int64, in services.AnnouncementInput) (*models.Announcement, error) {
	args := m.Called(ctx, authorID, in)
	return announcementOrNil(args), args.Error(1)
}

func (m *MockAnnouncementService) Update(ctx context.Context, id int64, in services.AnnouncementInput) (*models.Announcement, error) {
	args := m.Called(ctx, id, in)
	return announcementOrNil(args), args.Error(1)
}

func (m *MockAnnouncementService) Toggle(ctx context.Context, id int64) (*models.Announcement, error) {
	args := m.Called(ctx, id)
	return announcementOrNil(args), args.Error(1)
}

func (m *MockAnnouncementService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockChatbotService is a mock implementation of services.ChatbotService.
type MockChatbotService struct {
	mock.Mock
}

func (m *MockChatbotService) Reply(ctx context.Context, message string, history []services.ChatTurn) (string, error) {
	args := m.Called(ctx, message, history)
	return args.String(0), args.Error(1)
}
