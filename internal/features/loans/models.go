// Package loans — займы: пользователь просит сумму, админ одобряет
// (сумма на баланс плюс 5% на бонусный счёт) или отклоняет.
package loans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы займа
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// BonusRate — бонус к одобренному займу.
var BonusRate = decimal.RequireFromString("0.05")

// Loan — одна запись в таблице loans.
type Loan struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Bonus       decimal.Decimal `json:"bonus"`
	Purpose     string          `json:"purpose"`
	Status      string          `json:"status"`
	ProcessedBy *uuid.UUID      `json:"processedBy,omitempty"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Request — заявка на займ.
type Request struct {
	Amount  decimal.Decimal `json:"amount"`
	Purpose string          `json:"purpose" binding:"required"`
}

// ProcessRequest — решение админа.
type ProcessRequest struct {
	Approve bool `json:"approve"`
}
