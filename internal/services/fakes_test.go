package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labang-online/portal/internal/auth"
	"github.com/labang-online/portal/internal/identifier"
	"github.com/labang-online/portal/internal/models"
	"github.com/labang-online/portal/internal/repository"
)

var fixedNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// fakeAccountRepository keeps accounts in memory.
type fakeAccountRepository struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	nextID   int64
	findErr  error
}

func newFakeAccountRepository(accounts ...*models.Account) *fakeAccountRepository {
	r := &fakeAccountRepository{accounts: map[int64]*models.Account{}}
	for _, a := range accounts {
		r.accounts[a.ID] = a
		if a.ID > r.nextID {
			r.nextID = a.ID
		}
	}
	return r
}

func (r *fakeAccountRepository) get(id int64) (*models.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == account.Username {
			return repository.ErrDuplicateUsername
		}
		if strings.EqualFold(a.Email, account.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	r.nextID++
	account.ID = r.nextID
	account.CreatedAt = fixedNow
	account.UpdatedAt = fixedNow
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *fakeAccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.accounts {
		if a.Username == username {
			return r.get(id)
		}
	}
	return nil, r.findErr
}

func (r *fakeAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return r.get(id)
		}
	}
	return nil, r.findErr
}

func (r *fakeAccountRepository) UpdateProfile(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepository) mutate(id int64, fn func(*models.Account)) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	fn(a)
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.mutate(id, func(a *models.Account) { a.PasswordHash = passwordHash })
	return err
}

func (r *fakeAccountRepository) SetEmailVerified(ctx context.Context, id int64) error {
	_, err := r.mutate(id, func(a *models.Account) { a.EmailVerified = true })
	return err
}

func (r *fakeAccountRepository) SetPhoneVerified(ctx context.Context, id int64) error {
	_, err := r.mutate(id, func(a *models.Account) { a.PhoneVerified = true })
	return err
}

func (r *fakeAccountRepository) SetResidentConfirmation(ctx context.Context, id int64, confirmed bool) (*models.Account, error) {
	return r.mutate(id, func(a *models.Account) { a.ResidentConfirmation = confirmed })
}

func (r *fakeAccountRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Account, error) {
	return r.mutate(id, func(a *models.Account) { a.IsActive = active })
}

func (r *fakeAccountRepository) SetRole(ctx context.Context, id int64, role models.Role) (*models.Account, error) {
	return r.mutate(id, func(a *models.Account) { a.Role = role })
}

func (r *fakeAccountRepository) TouchAnnouncementsSeen(ctx context.Context, id int64, at time.Time) error {
	_, err := r.mutate(id, func(a *models.Account) {
		if a.AnnouncementsSeenAt == nil || at.After(*a.AnnouncementsSeenAt) {
			seen := at
			a.AnnouncementsSeenAt = &seen
		}
	})
	return err
}

func (r *fakeAccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Account
	for _, a := range r.accounts {
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

// fakeOTPRepository keeps codes in memory with the same replace and
// consume semantics as the database.
type fakeOTPRepository struct {
	mu     sync.Mutex
	codes  []*models.OneTimeCode
	nextID int64
}

func (r *fakeOTPRepository) Replace(ctx context.Context, code *models.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == code.AccountID && c.Purpose == code.Purpose {
			c.Used = true
		}
	}
	r.nextID++
	code.ID = r.nextID
	code.CreatedAt = fixedNow
	cp := *code
	r.codes = append(r.codes, &cp)
	return nil
}

func (r *fakeOTPRepository) ConsumeLatest(ctx context.Context, accountID int64, purpose models.CodePurpose, check func(*models.OneTimeCode) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.OneTimeCode
	for _, c := range r.codes {
		if c.AccountID == accountID && c.Purpose == purpose && !c.Used {
			latest = c
		}
	}
	var view *models.OneTimeCode
	if latest != nil {
		cp := *latest
		view = &cp
	}
	if err := check(view); err != nil {
		return err
	}
	latest.Used = true
	return nil
}

// fakeCertificateRepository is an in-memory certificate store with the
// version check of the real one.
type fakeCertificateRepository struct {
	mu        sync.Mutex
	requests  map[string]*models.CertificateRequest
	nextID    int64
	updateErr error
}

func newFakeCertificateRepository(reqs ...models.CertificateRequest) *fakeCertificateRepository {
	r := &fakeCertificateRepository{requests: map[string]*models.CertificateRequest{}}
	for i := range reqs {
		cp := reqs[i]
		if cp.Version == 0 {
			cp.Version = 1
		}
		r.requests[cp.RequestID] = &cp
	}
	return r
}

func (r *fakeCertificateRepository) Insert(ctx context.Context, req *models.CertificateRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.requests[req.RequestID]; taken {
		return fmt.Errorf("request id %s: %w", req.RequestID, identifier.ErrCollision)
	}
	r.nextID++
	req.ID = r.nextID
	cp := *req
	r.requests[req.RequestID] = &cp
	return nil
}

func (r *fakeCertificateRepository) MaxRequestSequence(ctx context.Context, year int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for id := range r.requests {
		if y, seq, ok := identifier.ParseRequestID(id); ok && y == year && seq > max {
			max = seq
		}
	}
	return max, nil
}

func (r *fakeCertificateRepository) FindByRequestID(ctx context.Context, requestID string) (*models.CertificateRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *fakeCertificateRepository) Update(ctx context.Context, req *models.CertificateRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.requests[req.RequestID]
	if !ok || stored.Version != req.Version {
		return repository.ErrStaleVersion
	}
	req.Version++
	cp := *req
	r.requests[req.RequestID] = &cp
	return nil
}

func (r *fakeCertificateRepository) DeleteUnpaid(ctx context.Context, requestID string, accountID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok || req.AccountID != accountID || req.PaymentStatus != models.PaymentUnpaid {
		return false, nil
	}
	delete(r.requests, requestID)
	return true, nil
}

func (r *fakeCertificateRepository) Delete(ctx context.Context, requestID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[requestID]; !ok {
		return false, nil
	}
	delete(r.requests, requestID)
	return true, nil
}

func (r *fakeCertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.CertificateRequest, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.CertificateRequest
	for _, req := range r.requests {
		if filter.AccountID != nil && req.AccountID != *filter.AccountID {
			continue
		}
		if filter.PaymentStatus != nil && req.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		all = append(all, *req)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RequestID < all[j].RequestID })

	total := len(all)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return all[filter.Offset:end], total, nil
}

// sentMessage is one notification captured by recordingNotifier.
type sentMessage struct {
	Channel string
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
}

func (n *recordingNotifier) Email(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, sentMessage{Channel: "email", To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) SMS(ctx context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, sentMessage{Channel: "sms", To: to, Body: body})
	return nil
}

func (n *recordingNotifier) channels() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Channel+":"+m.To)
	}
	return out
}

func (n *recordingNotifier) last() sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return sentMessage{}
	}
	return n.messages[len(n.messages)-1]
}

// memoryResetStore is a single-use jti store.
type memoryResetStore struct {
	mu      sync.Mutex
	entries map[string]int64
	err     error
}

func newMemoryResetStore() *memoryResetStore {
	return &memoryResetStore{entries: map[string]int64{}}
}

var errResetTokenUsed = errors.New("reset token already used")

func (s *memoryResetStore) Remember(ctx context.Context, jti string, accountID int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[jti] = accountID
	return nil
}

func (s *memoryResetStore) Consume(ctx context.Context, jti string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[jti]
	if !ok {
		return 0, errResetTokenUsed
	}
	delete(s.entries, jti)
	return id, nil
}

func newTestTokens() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-with-enough-length", time.Hour, 15*time.Minute)
}

func resident(id int64, username string) *models.Account {
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		panic(err)
	}
	return &models.Account{
		ID:                   id,
		Username:             username,
		Email:                username + "@example.com",
		PasswordHash:         hash,
		FullName:             "Juan Dela Cruz",
		ContactNumber:        "09171234567",
		Barangay:             ServedBarangay,
		Role:                 models.RoleResident,
		IsActive:             true,
		ResidentConfirmation: true,
	}
}

func staffAccount(id int64, role models.Role) *models.Account {
	a := resident(id, fmt.Sprintf("staff%d", id))
	a.Role = role
	return a
}
