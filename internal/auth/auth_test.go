package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labang-online/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_SessionRoundTrip(t *testing.T) {
	manager := NewTokenManager(testSecret, time.Hour, 10*time.Minute)
	account := &models.Account{ID: 42, Role: models.RoleStaff}

	issued, err := manager.IssueSession(account)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := manager.Parse(issued.Token, KindSession)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenManager_KindsAreNotInterchangeable(t *testing.T) {
	manager := NewTokenManager(testSecret, time.Hour, 10*time.Minute)

	reset, err := manager.IssueReset(7)
	require.NoError(t, err)

	_, err = manager.Parse(reset.Token, KindSession)
	assert.ErrorIs(t, err, ErrWrongKind)

	claims, err := manager.Parse(reset.Token, KindPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.AccountID)
}

func TestTokenManager_Expiry(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	manager := NewTokenManager(testSecret, time.Hour, 10*time.Minute).WithClock(func() time.Time { return issuedAt })

	issued, err := manager.IssueReset(7)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(10*time.Minute), issued.ExpiresAt)

	_, err = manager.Parse(issued.Token, KindPasswordReset)
	require.NoError(t, err, "valid at issue time")

	later := manager.WithClock(func() time.Time { return issuedAt.Add(11 * time.Minute) })
	_, err = later.Parse(issued.Token, KindPasswordReset)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsTampering(t *testing.T) {
	manager := NewTokenManager(testSecret, time.Hour, time.Minute)
	issued, err := manager.IssueSession(&models.Account{ID: 1, Role: models.RoleResident})
	require.NoError(t, err)

	other := NewTokenManager(strings.Repeat("x", 32), time.Hour, time.Minute)
	_, err = other.Parse(issued.Token, KindSession)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = manager.Parse("not-a-token", KindSession)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// alg=none tokens are refused
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: 1, Kind: KindSession})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = manager.Parse(raw, KindSession)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("", "correct horse"))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', code)
		}
	}

	_, err := GenerateCode(0)
	assert.Error(t, err)
}
