// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
// Если рядом лежит .env — он подхватывается через godotenv до разбора.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// Дефолт "postgres" — имя сервиса в docker-compose, для локалки переопредели DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"invest"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"invest_platform"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv       string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel  string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppLogFormat string `envconfig:"APP_LOG_FORMAT" default:"text"` // text | json
	AppTimezone  string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// --- HTTP ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
	HTTPMaxUploadBytes  int64         `envconfig:"HTTP_MAX_UPLOAD_BYTES" default:"10485760"`

	// --- Auth ---
	JWTSecret         string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL            time.Duration `envconfig:"JWT_TTL" default:"24h"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`
	AdminSessionTTL   time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`

	// --- Login limiter (Redis) ---
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	LoginMaxAttempts  int           `envconfig:"LOGIN_MAX_ATTEMPTS" default:"5"`
	LoginFreeAttempts int           `envconfig:"LOGIN_FREE_ATTEMPTS" default:"3"`
	LoginWindow       time.Duration `envconfig:"LOGIN_WINDOW" default:"30m"`
	LoginBaseDelay    time.Duration `envconfig:"LOGIN_BASE_DELAY" default:"1s"`

	// --- Rate Limiting (весь API, per IP) ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"120"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Kafka ---
	KafkaBrokersRaw         string   `envconfig:"KAFKA_BROKERS" default:""`
	KafkaBrokers            []string `ignored:"true"` // заполним вручную
	KafkaNotificationsTopic string   `envconfig:"KAFKA_NOTIFICATIONS_TOPIC" default:"notifications"`

	// --- S3 (документы KYC) ---
	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:""`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:""`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:""`

	// --- Telegram (алерты админам) ---
	TelegramBotToken    string  `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramAdminIDsRaw string  `envconfig:"TELEGRAM_ADMIN_IDS" default:""`
	TelegramAdminIDs    []int64 `ignored:"true"`

	// --- Email ---
	EmailEndpoint string        `envconfig:"EMAIL_ENDPOINT" default:""`
	EmailTimeout  time.Duration `envconfig:"EMAIL_TIMEOUT" default:"10s"`

	// --- Accrual ---
	AccrualCron       string `envconfig:"ACCRUAL_CRON" default:"0 0 * * *"`
	AccrualRunOnStart bool   `envconfig:"ACCRUAL_RUN_ON_START" default:"true"`

	// --- Business rules ---
	SignupBonus   decimal.Decimal `envconfig:"SIGNUP_BONUS" default:"50"`
	MinWithdrawal decimal.Decimal `envconfig:"MIN_WITHDRAWAL" default:"200"`
	SiteURL       string          `envconfig:"SITE_URL" default:"http://localhost:3000"`

	// --- Feature Flags ---
	FeatureLoansEnabled     bool `envconfig:"FEATURE_LOANS_ENABLED" default:"true"`
	FeatureReferralsEnabled bool `envconfig:"FEATURE_REFERRALS_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location возвращает часовой пояс для cron и расчётов по дням.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// KafkaEnabled — заданы ли брокеры.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// S3Enabled — задан ли бакет для документов.
func (c *Config) S3Enabled() bool { return c.S3Bucket != "" }

// TelegramEnabled — включены ли алерты в Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && len(c.TelegramAdminIDs) > 0
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return errors.New("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET должен быть не короче 16 символов")
	}
	if !strings.HasPrefix(c.AdminPasswordHash, "$argon2id$") {
		return errors.New("ADMIN_PASSWORD_HASH должен быть хешем Argon2id (см. cmd/hashpass)")
	}
	if c.LoginMaxAttempts <= 0 || c.LoginFreeAttempts < 0 || c.LoginFreeAttempts > c.LoginMaxAttempts {
		return errors.New("некорректные LOGIN_MAX_ATTEMPTS/LOGIN_FREE_ATTEMPTS")
	}
	if c.LoginWindow <= 0 {
		return errors.New("LOGIN_WINDOW должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	if c.SignupBonus.IsNegative() {
		return errors.New("SIGNUP_BONUS не может быть отрицательным")
	}
	if !c.MinWithdrawal.IsPositive() {
		return errors.New("MIN_WITHDRAWAL должен быть > 0")
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.TelegramAdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_ADMIN_IDS parse: %w", err)
	}
	cfg.TelegramAdminIDs = ids
	cfg.KafkaBrokers = parseCSV(cfg.KafkaBrokersRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64CSV(s string) ([]int64, error) {
	parts := parseCSV(s)
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
