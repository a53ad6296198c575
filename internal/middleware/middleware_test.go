package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLedgerEventName(t *testing.T) {
	cases := []struct {
		method, route, want string
	}{
		{http.MethodPost, "/api/v1/events/journal", "ledger_events_journal"},
		{http.MethodPost, "/api/v1/entries/:entryID/post", "ledger_entries_post"},
		{http.MethodDelete, "/api/v1/entries/:entryID", "ledger_entries_delete"},
		{http.MethodPatch, "/api/v1/rules/:ruleID/active", "ledger_rules_active"},
		{http.MethodPost, "/api/v1", ""},
		{http.MethodPost, "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ledgerEventName(tc.method, tc.route), tc.route)
	}
}

func TestLevelForStatus(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, levelForStatus(http.StatusMultiStatus))
	assert.Equal(t, slog.LevelWarn, levelForStatus(http.StatusConflict))
	assert.Equal(t, slog.LevelError, levelForStatus(http.StatusServiceUnavailable))
}

func TestStructuredLoggingReusesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(StructuredLoggingMiddleware(slog.New(slog.DiscardHandler)))
	r.GET("/ping", func(c *gin.Context) {
		assert.NotNil(t, GetLoggerFromCtx(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "job-2024-05")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "job-2024-05", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func signedToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret, "fleet-ledger"), func(c *gin.Context) {
		userID, _ := GetUserIDFromContext(c)
		tenantID, _ := GetTenantIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": userID, "tenant": tenantID})
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	valid := Claims{
		Tenant: "tenant-a",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "fleet-ledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	w := call("Bearer " + signedToken(t, secret, valid))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"user-1","tenant":"tenant-a"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signedToken(t, "other", valid)).Code)

	noTenant := valid
	noTenant.Tenant = ""
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signedToken(t, secret, noTenant)).Code)

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signedToken(t, secret, wrongIssuer)).Code)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	w = call("Bearer " + signedToken(t, secret, expired))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestRateLimitPerTenant(t *testing.T) {
	rl, err := NewRateLimiter("1-M")
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), "u", c.GetHeader("X-Tenant")))
		c.Next()
	}, RateLimit(rl))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(tenant string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Tenant", tenant)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	assert.Equal(t, http.StatusOK, call("b"))

	_, err = NewRateLimiter("lots")
	assert.Error(t, err)
}
