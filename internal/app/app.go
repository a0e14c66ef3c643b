// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, Redis, каналы уведомлений,
// репозитории, сервисы, обработчики и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/api"
	"serotonyl.ru/invest-platform/internal/api/middleware"
	"serotonyl.ru/invest-platform/internal/config"
	"serotonyl.ru/invest-platform/internal/db/postgres"
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
	"serotonyl.ru/invest-platform/internal/jobs"
	"serotonyl.ru/invest-platform/internal/ratelimit"
)

// App содержит все компоненты приложения.
type App struct {
	Router    *gin.Engine
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Redis     *redis.Client

	// Сервисы нужны CLI-командам (cmd/accrual, cmd/maintenance).
	Accounts    *accounts.Service
	Investments *investments.Service

	limiter  *middleware.RateLimiter
	producer *notifications.Producer
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Redis (лимитер входа) ===
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}
	log.WithField("addr", cfg.RedisAddr).Info("Подключение к Redis установлено")

	a := &App{DB: pool, Redis: rdb}

	// === 3. Каналы уведомлений ===
	// Выключенный канал передаём как nil-интерфейс, а не nil-указатель.
	var publisher notifications.Publisher
	if cfg.KafkaEnabled() {
		a.producer = notifications.NewProducer(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic)
		publisher = a.producer
		log.WithField("topic", cfg.KafkaNotificationsTopic).Info("Kafka включена")
	}

	var mailer notifications.Sender
	if cfg.EmailEndpoint != "" {
		mailer = notifications.NewMailer(cfg.EmailEndpoint, cfg.EmailTimeout)
	}

	var alerter notifications.Alerter
	if cfg.TelegramEnabled() {
		tg, err := notifications.NewTelegramAlerter(cfg.TelegramBotToken, cfg.TelegramAdminIDs)
		if err != nil {
			a.Close()
			return nil, err
		}
		alerter = tg
	}

	// === 4. Хранилище документов KYC ===
	var objects kyc.ObjectStore
	var purger admin.DocumentPurger
	if cfg.S3Enabled() {
		storage, err := kyc.NewS3Storage(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка настройки S3: %w", err)
		}
		objects, purger = storage, storage
	} else {
		log.Warn("S3_BUCKET не задан, загрузка KYC-документов отключена")
	}

	// === 5. Репозитории ===
	notificationRepo := notifications.NewRepository(pool)
	accountRepo := accounts.NewRepository(pool)
	economyRepo := economy.NewRepository(pool)
	investmentRepo := investments.NewRepository(pool)
	referralRepo := referrals.NewRepository(pool)
	withdrawalRepo := withdrawals.NewRepository(pool)
	kycRepo := kyc.NewRepository(pool)
	loanRepo := loans.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 6. Сервисы ===
	notifier := notifications.NewDispatcher(notificationRepo, publisher, mailer, alerter)
	jwt := middleware.NewJWT(cfg.JWTSecret, cfg.JWTTTL)

	notificationService := notifications.NewService(notificationRepo)
	economyService := economy.NewService(economyRepo)
	investmentService := investments.NewService(investmentRepo, notifier)
	referralService := referrals.NewService(referralRepo, notifier, cfg.FeatureReferralsEnabled)
	accountService := accounts.NewService(accounts.Deps{
		Store: accountRepo,
		Limiter: ratelimit.NewLoginLimiter(rdb, ratelimit.Policy{
			MaxAttempts:  cfg.LoginMaxAttempts,
			FreeAttempts: cfg.LoginFreeAttempts,
			Window:       cfg.LoginWindow,
			BaseDelay:    cfg.LoginBaseDelay,
		}),
		Tokens:      jwt,
		Referrals:   referralService,
		Investments: investmentService,
		Funds:       economyService,
		Notifier:    notifier,
		SignupBonus: cfg.SignupBonus,
	})
	withdrawalService := withdrawals.NewService(withdrawalRepo, notifier, cfg.MinWithdrawal)
	kycService := kyc.NewService(kycRepo, objects, notifier)
	loanService := loans.NewService(loanRepo, notifier, cfg.FeatureLoansEnabled)
	adminService := admin.NewService(adminRepo, cfg.AdminPasswordHash, cfg.AdminSessionTTL, purger, notifier)

	a.Accounts = accountService
	a.Investments = investmentService

	// === 7. HTTP ===
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	a.Router = api.NewRouter(api.Deps{
		JWT:      jwt,
		Sessions: adminService,
		Limiter:  a.limiter,
		Health:   func(ctx context.Context) error { return pool.Ping(ctx) },

		Accounts:      accounts.NewHandler(accountService),
		Admin:         admin.NewHandler(adminService),
		Economy:       economy.NewHandler(economyService),
		Investments:   investments.NewHandler(investmentService),
		KYC:           kyc.NewHandler(kycService, cfg.HTTPMaxUploadBytes),
		Loans:         loans.NewHandler(loanService),
		Notifications: notifications.NewHandler(notificationService),
		Plans:         plans.NewHandler(),
		Referrals:     referrals.NewHandler(referralService),
		Withdrawals:   withdrawals.NewHandler(withdrawalService),
	})

	// === 8. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(cfg.Location(), cfg.AccrualCron, cfg.AccrualRunOnStart, investmentService, adminService)

	return a, nil
}

// Close освобождает ресурсы в обратном порядке.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Kafka writer")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
