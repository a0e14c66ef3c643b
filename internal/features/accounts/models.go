// Package accounts управляет пользователями платформы: регистрацией, входом,
// профилем и админскими операциями над пользователями.
// models.go описывает структуры данных для таблицы users.
package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/invest-platform/internal/features/investments"
)

// User — одна запись в таблице users.
type User struct {
	ID                    uuid.UUID       `json:"id"`
	IDNum                 int64           `json:"idnum"` // 8-значный прикладной id
	Email                 string          `json:"email"`
	PasswordHash          string          `json:"-"` // bcrypt
	Name                  string          `json:"name"`
	Username              string          `json:"username"`
	Phone                 string          `json:"phone"`
	Country               string          `json:"country"`
	Balance               decimal.Decimal `json:"balance"`
	Bonus                 decimal.Decimal `json:"bonus"`
	KYCStatus             string          `json:"kycStatus"`
	ReferralCode          *string         `json:"referralCode,omitempty"`
	ReferralCodeExpiresAt *time.Time      `json:"referralCodeExpiresAt,omitempty"`
	ReferredByCode        *string         `json:"referredByCode,omitempty"`
	ReferredByIDNum       *int64          `json:"referredByIdnum,omitempty"`
	ReferralLevel         int             `json:"referralLevel"`
	ReferralCount         int             `json:"referralCount"`
	ReferralBonusTotal    decimal.Decimal `json:"referralBonusTotal"`
	IsAdmin               bool            `json:"isAdmin"`
	EmailConfirmedAt      *time.Time      `json:"emailConfirmedAt,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// SignupRequest — форма регистрации.
type SignupRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Username     string `json:"username"`
	Phone        string `json:"phone"`
	Country      string `json:"country"`
	ReferralCode string `json:"referralCode"`
}

// LoginRequest — форма входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session — результат входа или регистрации.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
	// ReferralError — код приглашения не принят; регистрация при этом прошла.
	ReferralError string `json:"referralError,omitempty"`
}

// Dashboard — сводка для главной страницы кабинета.
type Dashboard struct {
	Balance     decimal.Decimal      `json:"balance"`
	Bonus       decimal.Decimal      `json:"bonus"`
	Total       decimal.Decimal      `json:"total"`
	KYCStatus   string               `json:"kycStatus"`
	Investments *investments.Summary `json:"investments"`
}

// ListFilter — фильтр списка пользователей в админке.
type ListFilter struct {
	Search string // email, имя, username или idnum
	Page   int
	Limit  int
}

// FundsRequest — ручное начисление админом.
type FundsRequest struct {
	Balance     decimal.Decimal `json:"balance"`
	Bonus       decimal.Decimal `json:"bonus"`
	Description string          `json:"description"`
}
