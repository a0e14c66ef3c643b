// Package admin реализует вход в админку по отдельному паролю (Argon2id),
// админ-сессии и опасные операции над пользователями.
// models.go описывает структуры сессий и попыток входа.
package admin

import (
	"time"

	"github.com/google/uuid"
)

// Session — активная сессия администратора.
type Session struct {
	ID              int64     `json:"-"`
	UserID          uuid.UUID `json:"userId"`
	Token           string    `json:"token"`
	AuthenticatedAt time.Time `json:"authenticatedAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	LastActivity    time.Time `json:"lastActivity"`
	IsActive        bool      `json:"-"`
}

// LoginRequest — пароль админки.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Лимиты входа
const (
	MaxFailedAttempts = 3         // Неудачных попыток до блокировки
	AttemptWindow     = time.Hour // За какой период считаются попытки
	attemptRetention  = 24 * time.Hour
)

// CleanupStats — сколько строк удалила уборка.
type CleanupStats struct {
	Sessions int64
	Attempts int64
}
