package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/features/accounts"
	"serotonyl.ru/invest-platform/internal/features/admin"
	"serotonyl.ru/invest-platform/internal/features/economy"
	"serotonyl.ru/invest-platform/internal/features/investments"
	"serotonyl.ru/invest-platform/internal/features/kyc"
	"serotonyl.ru/invest-platform/internal/features/loans"
	"serotonyl.ru/invest-platform/internal/features/notifications"
	"serotonyl.ru/invest-platform/internal/features/plans"
	"serotonyl.ru/invest-platform/internal/features/referrals"
	"serotonyl.ru/invest-platform/internal/features/withdrawals"
)

type fakeSessions struct{ token string }

func (f fakeSessions) HasActiveSession(_ context.Context, _ uuid.UUID, token string) bool {
	return token == f.token
}

func newTestRouter(t *testing.T, health HealthFunc) (*gin.Engine, *middleware.JWT) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt := middleware.NewJWT("router-test-secret-0123456789", time.Hour)

	// Сервисы не нужны: запросы в тестах отсекаются до обработчиков.
	r := NewRouter(Deps{
		JWT:           jwt,
		Sessions:      fakeSessions{token: "session-ok"},
		Health:        health,
		Accounts:      accounts.NewHandler(nil),
		Admin:         admin.NewHandler(nil),
		Economy:       economy.NewHandler(nil),
		Investments:   investments.NewHandler(nil),
		KYC:           kyc.NewHandler(nil, 1<<20),
		Loans:         loans.NewHandler(nil),
		Notifications: notifications.NewHandler(nil),
		Plans:         plans.NewHandler(),
		Referrals:     referrals.NewHandler(nil),
		Withdrawals:   withdrawals.NewHandler(nil),
	})
	return r, jwt
}

func do(r http.Handler, method, path, token string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context) error { return nil })
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", nil).Code)

	r, _ = newTestRouter(t, func(context.Context) error { return errors.New("db down") })
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/health", "", nil).Code)
}

func TestRouter_PublicPlans(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := do(r, http.MethodGet, "/api/v1/plans", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3-Day Plan")
}

func TestRouter_Metrics(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	do(r, http.MethodGet, "/api/v1/plans", "", nil)
	w := do(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "invest_platform_http_requests_total")
}

func TestRouter_UserRoutesRequireToken(t *testing.T) {
	r, jwt := newTestRouter(t, nil)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/investments", "garbage", nil).Code)

	token, _, err := jwt.GenerateToken(uuid.New(), 12345678, false)
	require.NoError(t, err)
	// Обычный пользователь в админку не попадает.
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/admin/users", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/admin/login", token, nil).Code)
}

func TestRouter_AdminRoutesRequireSession(t *testing.T) {
	r, jwt := newTestRouter(t, nil)
	token, _, err := jwt.GenerateToken(uuid.New(), 12345678, true)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/admin/investments", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/admin/investments", token,
		map[string]string{middleware.AdminSessionHeader: "stale"}).Code)

	// Невалидный id отсекается обработчиком уже после проверки сессии.
	w := do(r, http.MethodPost, "/api/v1/admin/investments/not-a-uuid/approve", token,
		map[string]string{middleware.AdminSessionHeader: "session-ok"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/nope", "", nil).Code)
}
