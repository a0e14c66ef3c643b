// Package investments — accrual.go содержит чистые функции начисления.
//
// Начисление считается не приращением "плюс один день", а заново от даты
// одобрения: сколько полных суток прошло, столько дневных ставок и начислено,
// но не больше цели. Поэтому повторный запуск в тот же день ничего не меняет,
// а пропущенные дни догоняются следующим запуском.
package investments

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/invest-platform/internal/common"
)

// ComputeCredited возвращает сумму ROI, которая должна быть начислена к моменту now:
//
//	min(capital × dailyRate × полных_суток(approvedAt, now), targetCap)
//
// Результат округлён до центов и никогда не превышает targetCap.
func ComputeCredited(capital, dailyRate decimal.Decimal, approvedAt, now time.Time, targetCap decimal.Decimal) decimal.Decimal {
	days := common.DaysBetween(approvedAt, now)
	if days == 0 || !targetCap.IsPositive() {
		return decimal.Zero
	}
	credited := common.RoundMoney(capital.Mul(dailyRate).Mul(decimal.NewFromInt(int64(days))))
	return decimal.Min(credited, targetCap)
}

// ComputeBonusCredited распределяет бонус равными долями по дням срока.
func ComputeBonusCredited(bonusTarget decimal.Decimal, durationDays int, approvedAt, now time.Time) decimal.Decimal {
	if durationDays <= 0 || !bonusTarget.IsPositive() {
		return decimal.Zero
	}
	days := common.DaysBetween(approvedAt, now)
	if days > durationDays {
		days = durationDays
	}
	credited := common.RoundMoney(bonusTarget.Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(int64(durationDays))))
	return decimal.Min(credited, bonusTarget)
}

// Evaluate пересчитывает Active-инвестицию на момент now.
// Ничего не пишет — только говорит, что должно быть в записи.
// Уже начисленное никогда не уменьшается.
func Evaluate(inv *Investment, now time.Time) Outcome {
	out := Outcome{
		CreditedRoi:   inv.CreditedRoi,
		CreditedBonus: inv.CreditedBonus,
		RoiDelta:      decimal.Zero,
		BonusDelta:    decimal.Zero,
		Status:        inv.Status,
	}
	if inv.Status != StatusActive || inv.ApprovedAt == nil {
		return out
	}

	approvedAt := *inv.ApprovedAt
	out.DaysElapsed = common.DaysBetween(approvedAt, now)

	roi := ComputeCredited(inv.Capital, inv.DailyRate, approvedAt, now, inv.Roi)
	if roi.GreaterThan(inv.CreditedRoi) {
		out.RoiDelta = roi.Sub(inv.CreditedRoi)
		out.CreditedRoi = roi
	}

	bonus := ComputeBonusCredited(inv.Bonus, inv.DurationDays, approvedAt, now)
	if bonus.GreaterThan(inv.CreditedBonus) {
		out.BonusDelta = bonus.Sub(inv.CreditedBonus)
		out.CreditedBonus = bonus
	}

	switch {
	case out.CreditedRoi.GreaterThanOrEqual(inv.Roi):
		out.Status = StatusCompleted
	case inv.DurationDays > 0 && out.DaysElapsed >= inv.DurationDays:
		out.Status = StatusExpired
	}
	return out
}
