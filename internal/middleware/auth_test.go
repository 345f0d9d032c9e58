package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/labang-online/portal/internal/auth"
	"github.com/labang-online/portal/internal/cache"
	"github.com/labang-online/portal/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLoader map[int64]*models.Account

func (m mapLoader) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	if id == 500 {
		return nil, errors.New("database unavailable")
	}
	return m[id], nil
}

func testAccounts() mapLoader {
	return mapLoader{
		1: {ID: 1, Role: models.RoleResident, IsActive: true, ResidentConfirmation: true},
		2: {ID: 2, Role: models.RoleResident, IsActive: true},
		3: {ID: 3, Role: models.RoleStaff, IsActive: true},
		4: {ID: 4, Role: models.RoleAdmin, IsActive: true},
		5: {ID: 5, Role: models.RoleResident, IsActive: false, ResidentConfirmation: true},
	}
}

func sessionFor(t *testing.T, tokens *auth.TokenManager, id int64) string {
	t.Helper()
	issued, err := tokens.IssueSession(&models.Account{ID: id, Role: models.RoleResident})
	require.NoError(t, err)
	return issued.Token
}

func newAuthRouter(tokens *auth.TokenManager, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	group := router.Group("/", append([]gin.HandlerFunc{Authenticate(tokens, testAccounts())}, guards...)...)
	group.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentAccount(c).ID})
	})
	return router
}

func doGet(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("middleware-test-secret", time.Hour, time.Minute)
	router := newAuthRouter(tokens)

	w := doGet(router, sessionFor(t, tokens, 1))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())

	w = doGet(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = doGet(router, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	reset, err := tokens.IssueReset(1)
	require.NoError(t, err)
	w = doGet(router, reset.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "reset tokens are not sessions")

	w = doGet(router, sessionFor(t, tokens, 5))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "deactivated accounts lose their session")

	w = doGet(router, sessionFor(t, tokens, 99))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(router, sessionFor(t, tokens, 500))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRoleGuards(t *testing.T) {
	tokens := auth.NewTokenManager("middleware-test-secret", time.Hour, time.Minute)

	tests := []struct {
		name   string
		guard  gin.HandlerFunc
		status map[int64]int
	}{
		{"resident", RequireResident(), map[int64]int{1: 200, 2: 403, 3: 200, 4: 200}},
		{"staff", RequireStaff(), map[int64]int{1: 403, 2: 403, 3: 200, 4: 200}},
		{"admin", RequireAdmin(), map[int64]int{1: 403, 3: 403, 4: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthRouter(tokens, tt.guard)
			for id, want := range tt.status {
				w := doGet(router, sessionFor(t, tokens, id))
				assert.Equal(t, want, w.Code, "account %d", id)
				if want == http.StatusForbidden {
					assert.Equal(t, "FORBIDDEN", errorCode(t, w))
				}
			}
		})
	}
}

func TestRequireWithoutAuthenticate(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequireStaff(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
	assert.Empty(t, bearerToken(""))
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := cache.NewRateLimiter(client, "test", 2, time.Minute)

	router := gin.New()
	router.Use(RequestID())
	router.POST("/otp", RateLimit(limiter, ByClientIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/otp", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send().Code)

	blocked := send()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, blocked))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, send().Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := cache.NewRateLimiter(client, "test", 1, time.Minute)
	mr.Close()

	router := gin.New()
	router.GET("/x", RateLimit(limiter, ByAccountOrIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
