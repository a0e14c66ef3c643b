// Package economy управляет балансами пользователей (balance и bonus)
// и историей движений по ним.
// models.go описывает структуры для балансов и транзакций.
package economy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bucket — какой счёт пользователя двигается.
type Bucket string

const (
	BucketBalance Bucket = "balance" // Основной счёт (капитал, ROI)
	BucketBonus   Bucket = "bonus"   // Бонусный счёт
)

// Balance — текущие остатки пользователя.
type Balance struct {
	UserID  uuid.UUID       `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
	Bonus   decimal.Decimal `json:"bonus"`
}

// Total — balance + bonus.
func (b Balance) Total() decimal.Decimal { return b.Balance.Add(b.Bonus) }

// Transaction — одно движение по счёту. Amount со знаком: + начисление, − списание.
// Это история, а не бухгалтерская книга: источник правды — users.balance/bonus.
type Transaction struct {
	ID              int64           `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	Bucket          Bucket          `json:"bucket"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"type"`
	Description     string          `json:"description"`
	ReferenceID     *string         `json:"referenceId,omitempty"` // id инвестиции/вывода/займа
	CreatedAt       time.Time       `json:"createdAt"`
}

// Типы транзакций
const (
	TxSignupBonus       = "signup_bonus"       // Бонус за регистрацию
	TxInvestmentCapital = "investment_capital" // Капитал одобренной инвестиции
	TxRoiAccrual        = "roi_accrual"        // Ежедневное начисление ROI
	TxWithdrawal        = "withdrawal"         // Списание под вывод
	TxWithdrawalRefund  = "withdrawal_refund"  // Возврат отклонённого вывода
	TxAdminCredit       = "admin_credit"       // Начисление админом
	TxLoan              = "loan"               // Одобренный займ
	TxLoanBonus         = "loan_bonus"         // 5% бонус к займу
	TxReferralReward    = "referral_reward"    // Выплата реферальной награды
)

// Movement — одно начисление или списание в рамках транзакции БД.
type Movement struct {
	UserID      uuid.UUID
	Balance     decimal.Decimal // Изменение balance (может быть 0)
	Bonus       decimal.Decimal // Изменение bonus (может быть 0)
	Type        string
	Description string
	ReferenceID string
}
