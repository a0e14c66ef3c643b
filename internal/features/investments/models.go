// Package investments управляет жизненным циклом инвестиций:
// подача депозита (Pending), одобрение админом (Active),
// ежедневное начисление ROI (Completed / Expired).
// models.go описывает структуры данных для таблиц investments и accrual_runs.
package investments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/invest-platform/internal/features/plans"
)

// Status — состояние инвестиции.
// Переходы: Pending→Active→Completed, Active→Expired.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusExpired   Status = "Expired"
)

// Valid — одно из известных значений.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Investment — одна запись в таблице investments.
type Investment struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	IDNum         int64           `json:"idnum"` // Прикладной id владельца
	Plan          string          `json:"plan"`  // Имя плана, как его выбрал пользователь
	Status        Status          `json:"status"`
	Capital       decimal.Decimal `json:"capital"`
	DailyRate     decimal.Decimal `json:"dailyRate"`     // Заполняется при одобрении
	Roi           decimal.Decimal `json:"roi"`           // Цель ROI
	CreditedRoi   decimal.Decimal `json:"creditedRoi"`   // Начислено ROI (≤ Roi)
	Bonus         decimal.Decimal `json:"bonus"`         // Цель бонуса
	CreditedBonus decimal.Decimal `json:"creditedBonus"` // Начислено бонуса (≤ Bonus)
	DurationDays  int             `json:"duration"`
	PaymentOption string          `json:"paymentOption"`
	PlanFallback  bool            `json:"planFallback"` // Одобрено по дефолтной ставке
	ApprovedAt    *time.Time      `json:"approvedAt,omitempty"`
	ApprovedBy    *uuid.UUID      `json:"approvedBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CreateRequest — подача депозита пользователем.
type CreateRequest struct {
	Plan          string          `json:"plan" binding:"required"`
	Capital       decimal.Decimal `json:"capital"`
	PaymentOption string          `json:"paymentOption"`
}

// ListFilter — фильтр списка для админки.
type ListFilter struct {
	Status Status
	Search string // по имени плана или idnum
	Page   int
	Limit  int
}

// Terms — условия одобрения, вычисленные сервисом по плану.
type Terms struct {
	Resolution     plans.Resolution
	Roi            decimal.Decimal
	Bonus          decimal.Decimal
	DailyRate      decimal.Decimal
	DurationDays   int
	ReferralReward decimal.Decimal // Награда прямому рефереру (0 — не создавать)
}

// Approval — итог одобрения.
type Approval struct {
	Investment *Investment
	Terms      Terms
	OwnerEmail string
	OwnerName  string
	RewardID   *int64 // Созданная pending-награда рефереру
}

// Outcome — результат пересчёта одной инвестиции.
type Outcome struct {
	CreditedRoi   decimal.Decimal
	CreditedBonus decimal.Decimal
	RoiDelta      decimal.Decimal // Сколько нужно дозачислить на balance
	BonusDelta    decimal.Decimal // Сколько нужно дозачислить на bonus
	Status        Status
	DaysElapsed   int
}

// Changed — нужно ли что-то писать в БД.
func (o Outcome) Changed(prev Status) bool {
	return o.RoiDelta.IsPositive() || o.BonusDelta.IsPositive() || o.Status != prev
}

// Trigger — кто запустил начисление.
type Trigger string

const (
	TriggerCron    Trigger = "cron"
	TriggerStartup Trigger = "startup"
	TriggerHTTP    Trigger = "http"
	TriggerCLI     Trigger = "cli"
)

// RunStats — статистика одного прогона начисления.
type RunStats struct {
	Processed int `json:"processed"` // Сколько Active-инвестиций просмотрено
	Updated   int `json:"updated"`   // Сколько записей изменилось
	Completed int `json:"completed"` // Сколько дошли до цели
	Expired   int `json:"expired"`   // Сколько истекли без полной цели
	Failed    int `json:"failed"`    // Ошибки (пропущены до следующего прогона)
}

// AccrualRun — запись в таблице accrual_runs.
type AccrualRun struct {
	ID         int64     `json:"id"`
	Trigger    Trigger   `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	RunStats
}

// Summary — агрегаты по инвестициям пользователя для дашборда.
type Summary struct {
	TotalCapital       decimal.Decimal `json:"totalCapital"`
	TotalRoi           decimal.Decimal `json:"totalRoi"`
	TotalCreditedRoi   decimal.Decimal `json:"totalCreditedRoi"`
	TotalBonus         decimal.Decimal `json:"totalBonus"`
	TotalCreditedBonus decimal.Decimal `json:"totalCreditedBonus"`
	ActiveCount        int             `json:"activeCount"`
	PendingCount       int             `json:"pendingCount"`
}
