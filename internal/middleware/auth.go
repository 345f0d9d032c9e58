package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/auth"
	"github.com/labang-online/portal/internal/models"
)

// AccountKey is the context key for the authenticated account.
const AccountKey = "account"

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string, kind auth.TokenKind) (*auth.Claims, error)
}

// AccountLoader reloads the account on every request so role, activation
// and residency changes take effect without waiting for the token to expire.
type AccountLoader interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
}

// Authenticate requires a valid session token and stores the current account
// in the context.
func Authenticate(tokens TokenParser, accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			return
		}

		claims, err := tokens.Parse(token, auth.KindSession)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Session is invalid or has expired", nil)
			return
		}

		account, err := accounts.FindByID(c.Request.Context(), claims.AccountID)
		if err != nil {
			if log := GetLogger(c); log != nil {
				log.Error("Failed to load session account", err, map[string]interface{}{"account_id": claims.AccountID})
			}
			abortJSON(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred", nil)
			return
		}
		if account == nil || !account.IsActive {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Account is no longer active", nil)
			return
		}

		c.Set(AccountKey, account)
		c.Next()
	}
}

// RequireResident allows active accounts whose residency staff confirmed.
// Staff accounts may use the portal too.
func RequireResident() gin.HandlerFunc {
	return requireAccount(func(a *models.Account) bool {
		return a.CanAccessPortal() || a.CanAccessAdmin()
	}, "Your account is pending verification by barangay staff")
}

// RequireStaff allows staff and admins.
func RequireStaff() gin.HandlerFunc {
	return requireAccount((*models.Account).CanAccessAdmin, "Staff access required")
}

// RequireAdmin allows admins only.
func RequireAdmin() gin.HandlerFunc {
	return requireAccount(func(a *models.Account) bool {
		return a.IsActive && a.Role == models.RoleAdmin
	}, "Administrator access required")
}

func requireAccount(allowed func(*models.Account) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := CurrentAccount(c)
		if account == nil {
			abortJSON(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			return
		}
		if !allowed(account) {
			abortJSON(c, http.StatusForbidden, "FORBIDDEN", message, nil)
			return
		}
		c.Next()
	}
}

// CurrentAccount returns the authenticated account, or nil.
func CurrentAccount(c *gin.Context) *models.Account {
	if value, exists := c.Get(AccountKey); exists {
		if account, ok := value.(*models.Account); ok {
			return account
		}
	}
	return nil
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
