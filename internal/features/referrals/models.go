// Package referrals — реферальная программа: коды, привязка приглашённых
// (до трёх уровней), статистика и выплата наград.
package referrals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Статусы
const (
	StatusPending  = "pending"
	StatusRewarded = "rewarded" // referrals: по приглашению выплачена награда
	StatusPaid     = "paid"     // referral_rewards: награда зачислена
)

// Referral — строка в таблице referrals.
type Referral struct {
	ID            int64     `json:"id"`
	ReferrerID    uuid.UUID `json:"referrerId"`
	ReferredID    uuid.UUID `json:"referredId"`
	ReferredIDNum int64     `json:"referredIdnum"`
	ReferredName  string    `json:"referredName,omitempty"`
	Code          string    `json:"code"`
	Level         int       `json:"level"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Reward — строка в таблице referral_rewards.
type Reward struct {
	ID            int64           `json:"id"`
	ReferralID    int64           `json:"referralId"`
	ReferrerID    uuid.UUID       `json:"referrerId"`
	ReferrerIDNum int64           `json:"referrerIdnum"`
	InvestmentID  *uuid.UUID      `json:"investmentId,omitempty"`
	RewardAmount  decimal.Decimal `json:"rewardAmount"`
	BonusAmount   decimal.Decimal `json:"bonusAmount"`
	Status        string          `json:"status"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Total — reward + bonus.
func (r Reward) Total() decimal.Decimal { return r.RewardAmount.Add(r.BonusAmount) }

// Stats — сводка для страницы рефералки.
type Stats struct {
	ReferralCode   string          `json:"referralCode"`
	CodeExpiresAt  *time.Time      `json:"codeExpiresAt,omitempty"`
	TotalReferrals int             `json:"referralCount"`
	DirectCount    int             `json:"directCount"`
	IndirectCount  int             `json:"indirectCount"` // Уровни 2..3
	TotalRewards   decimal.Decimal `json:"totalRewards"`
	PendingRewards int             `json:"pendingRewards"`
	Recent         []*Referral     `json:"recentReferrals"`
}
