// Package auth issues and verifies the JWTs used by the portal and holds the
// password and one-time-code primitives.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labang-online/portal/internal/models"
)

// TokenKind separates session tokens from password reset tokens so one can
// never be replayed as the other.
type TokenKind string

const (
	KindSession       TokenKind = "session"
	KindPasswordReset TokenKind = "password_reset"

	issuer = "labang-online"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongKind    = errors.New("token cannot be used for this action")
)

// Claims is the JWT payload.
type Claims struct {
	Role      models.Role `json:"role,omitempty"`
	Kind      TokenKind   `json:"kind"`
	AccountID int64       `json:"account_id"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token with its identifier and expiry.
type IssuedToken struct {
	ExpiresAt time.Time
	Token     string
	ID        string
}

// TokenManager signs and parses HS256 tokens.
type TokenManager struct {
	now        func() time.Time
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// NewTokenManager creates a token manager. The clock defaults to time.Now.
func NewTokenManager(secret string, sessionTTL, resetTTL time.Duration) *TokenManager {
	return &TokenManager{
		now:        time.Now,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
	}
}

// WithClock returns a copy of m using now as its clock.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *m
	cp.now = now
	return &cp
}

// IssueSession signs a login token for the account.
func (m *TokenManager) IssueSession(account *models.Account) (IssuedToken, error) {
	return m.issue(account.ID, account.Role, KindSession, m.sessionTTL)
}

// IssueReset signs a short-lived password reset token. The caller is
// expected to remember its ID so the token can be used only once.
func (m *TokenManager) IssueReset(accountID int64) (IssuedToken, error) {
	return m.issue(accountID, "", KindPasswordReset, m.resetTTL)
}

func (m *TokenManager) issue(accountID int64, role models.Role, kind TokenKind, ttl time.Duration) (IssuedToken, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	jti := uuid.New().String()

	claims := Claims{
		Role:      role,
		Kind:      kind,
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature, expiry and kind of a token.
func (m *TokenManager) Parse(tokenString string, kind TokenKind) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if claims.AccountID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
