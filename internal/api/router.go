// Package api собирает HTTP-роутер: общие middleware, публичные маршруты,
// маршруты пользователя (JWT) и админки (JWT + is_admin + админ-сессия).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

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
	"serotonyl.ru/invest-platform/internal/metrics"
)

// HealthFunc проверяет зависимости (БД) для /health.
type HealthFunc func(ctx context.Context) error

// Deps — всё, что нужно роутеру.
type Deps struct {
	JWT      *middleware.JWT
	Sessions middleware.SessionChecker
	Limiter  *middleware.RateLimiter
	Health   HealthFunc

	Accounts      *accounts.Handler
	Admin         *admin.Handler
	Economy       *economy.Handler
	Investments   *investments.Handler
	KYC           *kyc.Handler
	Loans         *loans.Handler
	Notifications *notifications.Handler
	Plans         *plans.Handler
	Referrals     *referrals.Handler
	Withdrawals   *withdrawals.Handler
}

// NewRouter создаёт gin.Engine со всеми маршрутами.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger(), metrics.Middleware())
	if d.Limiter != nil {
		r.Use(d.Limiter.Handler())
	}

	r.GET("/health", health(d.Health))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	user := v1.Group("", d.JWT.Auth())
	adminLogin := v1.Group("/admin", d.JWT.Auth(), middleware.RequireAdmin())
	adminGroup := adminLogin.Group("", middleware.RequireAdminSession(d.Sessions))

	d.Plans.Register(v1)
	d.Accounts.Register(v1, user, adminGroup)
	d.Economy.Register(user)
	d.Notifications.Register(user)
	d.Investments.Register(user, adminGroup)
	d.Withdrawals.Register(user, adminGroup)
	d.KYC.Register(user, adminGroup)
	d.Referrals.Register(user, adminGroup)
	d.Loans.Register(user, adminGroup)
	d.Admin.Register(adminLogin, adminGroup)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func health(check HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.WithError(err).Warn("Health check не прошёл")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
