// Package plans — статический каталог инвестиционных планов.
// models.go описывает план и результат разрешения плана по имени.
package plans

import "github.com/shopspring/decimal"

// Plan — именованный тариф: дневная ставка, срок, лимиты капитала.
// Неизменяем во время работы.
type Plan struct {
	Name              string          `json:"name"`
	DailyRate         decimal.Decimal `json:"dailyRate"`         // Доля в день (0.03 = 3%)
	DurationDays      int             `json:"durationDays"`      // Срок в днях
	MinCapital        decimal.Decimal `json:"minCapital"`        // Минимальный депозит
	MaxCapital        decimal.Decimal `json:"maxCapital"`        // 0 — без верхнего лимита
	ReferralBonusRate decimal.Decimal `json:"referralBonusRate"` // Бонус от капитала (и награда рефереру)
}

// Unlimited — у плана нет верхнего лимита капитала.
func (p Plan) Unlimited() bool { return p.MaxCapital.IsZero() }

// AcceptsCapital — попадает ли сумма в лимиты плана.
func (p Plan) AcceptsCapital(capital decimal.Decimal) bool {
	if capital.LessThan(p.MinCapital) {
		return false
	}
	return p.Unlimited() || capital.LessThanOrEqual(p.MaxCapital)
}

// TotalReturnRate — суммарная доходность за весь срок (dailyRate × дни).
func (p Plan) TotalReturnRate() decimal.Decimal {
	return p.DailyRate.Mul(decimal.NewFromInt(int64(p.DurationDays)))
}

// Source — откуда взялись параметры при одобрении.
type Source string

const (
	SourceCatalog  Source = "catalog"  // План из каталога
	SourceLegacy   Source = "legacy"   // Старое имя с множителями
	SourceFallback Source = "fallback" // Неизвестное имя, дефолтная ставка
)

// Resolution — результат поиска плана для одобрения инвестиции.
// Fallback=true означает, что имя не распознано и применена дефолтная ставка:
// такое одобрение обязано быть заметным (лог, метрика, флаг в записи).
type Resolution struct {
	Plan            Plan            `json:"plan"`
	Source          Source          `json:"source"`
	Fallback        bool            `json:"fallback"`
	RoiMultiplier   decimal.Decimal `json:"roiMultiplier"`   // roi = capital × RoiMultiplier
	BonusMultiplier decimal.Decimal `json:"bonusMultiplier"` // bonus = capital × BonusMultiplier
}

// Targets считает цели ROI и бонуса для капитала.
func (r Resolution) Targets(capital decimal.Decimal) (roi, bonus decimal.Decimal) {
	roi = capital.Mul(r.RoiMultiplier).Round(2)
	bonus = capital.Mul(r.BonusMultiplier).Round(2)
	return roi, bonus
}

// EffectiveDailyRate — дневная ставка, при которой за срок набегает ровно roi.
// Для каталожных планов совпадает с DailyRate.
func (r Resolution) EffectiveDailyRate() decimal.Decimal {
	if r.Plan.DurationDays <= 0 {
		return decimal.Zero
	}
	return r.RoiMultiplier.DivRound(decimal.NewFromInt(int64(r.Plan.DurationDays)), 8)
}
