// Package withdrawals управляет заявками на вывод средств.
// Заявка сразу списывает сумму с общего остатка: сначала с balance, недостающее с bonus
// (это и есть резерв). Отклонение админом возвращает каждую часть на свой счёт.
package withdrawals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы вывода
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
	StatusRejected  = "Rejected"
)

// PaymentBankTransfer — единственный не-крипто способ вывода.
const PaymentBankTransfer = "Bank Transfer"

// Withdrawal — одна запись в таблице withdrawals.
type Withdrawal struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"userId"`
	IDNum             int64           `json:"idnum"`
	Amount            decimal.Decimal `json:"amount"`
	FromBalance       decimal.Decimal `json:"fromBalance"` // Списано с balance
	FromBonus         decimal.Decimal `json:"fromBonus"`   // Списано с bonus (то, чего не хватило на balance)
	Status            string          `json:"status"`
	PaymentOption     string          `json:"paymentOption"`
	WalletAddress     string          `json:"walletAddress,omitempty"`
	BankName          string          `json:"bankName,omitempty"`
	BankAccountNumber string          `json:"bankAccountNumber,omitempty"`
	BankAccountName   string          `json:"bankAccountName,omitempty"`
	BankRoutingSwift  string          `json:"bankRoutingSwift,omitempty"`
	ProcessedAt       *time.Time      `json:"processedAt,omitempty"`
	ProcessedBy       *uuid.UUID      `json:"processedBy,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Request — форма заявки на вывод.
type Request struct {
	Amount            decimal.Decimal `json:"amount"`
	PaymentOption     string          `json:"paymentOption" binding:"required"`
	WalletAddress     string          `json:"walletAddress"`
	BankName          string          `json:"bankName"`
	BankAccountNumber string          `json:"bankAccountNumber"`
	BankAccountName   string          `json:"bankAccountName"`
	BankRoutingSwift  string          `json:"bankRoutingSwift"`
}

// Decision — решение админа по заявке.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Processed — результат обработки заявки вместе с контактами владельца.
type Processed struct {
	Withdrawal *Withdrawal
	OwnerEmail string
}

// ListFilter — фильтр списка в админке.
type ListFilter struct {
	Status string
	Page   int
	Limit  int
}
