// Package notifications — уведомления пользователям и события наружу:
// строки в таблице notifications, события в Kafka, письма и алерты админам в Telegram.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений
const (
	TypeSuccess       = "success"
	TypeEarnings      = "earnings"
	TypeBalanceUpdate = "balance_update"
	TypeSignupBonus   = "signup_bonus"
	TypeWithdrawal    = "withdrawal"
	TypeKYC           = "kyc"
	TypeLoan          = "loan"
	TypeReferral      = "referral"
	TypeInfo          = "info"
)

// Статусы прочтения
const (
	StatusUnseen = "unseen"
	StatusSeen   = "seen"
)

// Notification — строка в таблице notifications.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	IDNum     int64     `json:"idnum"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message — что показать пользователю.
type Message struct {
	UserID uuid.UUID
	Title  string
	Body   string
	Type   string
}

// Email — письмо для внешнего почтового эндпоинта.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Kind    string `json:"type"`
}

// Event — событие для Kafka.
type Event struct {
	Type   string    `json:"type"` // investment.approved, notification.created, ...
	UserID uuid.UUID `json:"user_id"`
	IDNum  int64     `json:"idnum"`
	Data   any       `json:"data,omitempty"`
	Time   time.Time `json:"timestamp"`
}

// Notifier — побочные эффекты, которые сервисы запускают после коммита.
// Ни один метод не возвращает ошибку: неудачи только логируются.
type Notifier interface {
	Notify(ctx context.Context, m Message)
	Email(ctx context.Context, e Email)
	AlertAdmins(ctx context.Context, text string)
	Publish(ctx context.Context, e Event)
}
