package investments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = 24 * time.Hour

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func activeInvestment(capital, rate, roi string, duration int, approvedAt time.Time) *Investment {
	return &Investment{
		Status:        StatusActive,
		Capital:       dec(capital),
		DailyRate:     dec(rate),
		Roi:           dec(roi),
		CreditedRoi:   decimal.Zero,
		Bonus:         decimal.Zero,
		CreditedBonus: decimal.Zero,
		DurationDays:  duration,
		ApprovedAt:    &approvedAt,
	}
}

func TestComputeCredited(t *testing.T) {
	approved := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	capital, rate, target := dec("100"), dec("0.03"), dec("9")

	cases := []struct {
		name string
		now  time.Time
		want string
	}{
		{"same moment", approved, "0"},
		{"less than a day", approved.Add(23 * time.Hour), "0"},
		{"one day", approved.Add(day), "3"},
		{"two days and change", approved.Add(2*day + 5*time.Hour), "6"},
		{"three days", approved.Add(3 * day), "9"},
		{"capped after the term", approved.Add(40 * day), "9"},
		{"clock before approval", approved.Add(-day), "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeCredited(capital, rate, approved, tc.now, target)
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestComputeCreditedNeverExceedsTarget(t *testing.T) {
	approved := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	target := dec("33.33")
	for days := 0; days < 400; days += 7 {
		got := ComputeCredited(dec("111.11"), dec("0.0333"), approved, approved.Add(time.Duration(days)*day), target)
		require.True(t, got.LessThanOrEqual(target), "day %d: %s > %s", days, got, target)
	}
}

func TestComputeBonusCredited(t *testing.T) {
	approved := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, ComputeBonusCredited(dec("10"), 3, approved, approved.Add(day)).Equal(dec("3.33")))
	assert.True(t, ComputeBonusCredited(dec("10"), 3, approved, approved.Add(3*day)).Equal(dec("10")))
	assert.True(t, ComputeBonusCredited(dec("10"), 3, approved, approved.Add(30*day)).Equal(dec("10")))
	assert.True(t, ComputeBonusCredited(dec("10"), 0, approved, approved.Add(day)).IsZero())
}

func TestEvaluateIsIdempotent(t *testing.T) {
	approved := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := activeInvestment("100", "0.03", "9", 3, approved)
	now := approved.Add(day + time.Hour)

	first := Evaluate(inv, now)
	require.True(t, first.RoiDelta.Equal(dec("3")))
	inv.CreditedRoi = first.CreditedRoi

	second := Evaluate(inv, now.Add(time.Minute))
	assert.True(t, second.CreditedRoi.Equal(first.CreditedRoi))
	assert.True(t, second.RoiDelta.IsZero())
	assert.False(t, second.Changed(StatusActive))
}

func TestEvaluateCompletesAtTarget(t *testing.T) {
	approved := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := activeInvestment("100", "0.03", "9", 3, approved)

	out := Evaluate(inv, approved.Add(3*day))
	assert.Equal(t, StatusCompleted, out.Status)
	assert.True(t, out.CreditedRoi.Equal(dec("9")))
	assert.True(t, out.RoiDelta.Equal(dec("9")))
}

func TestEvaluateExpiresWithoutFullAccrual(t *testing.T) {
	approved := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// Цель недостижима дневной ставкой за срок.
	inv := activeInvestment("100", "0.01", "9", 3, approved)

	out := Evaluate(inv, approved.Add(3*day))
	assert.Equal(t, StatusExpired, out.Status)
	assert.True(t, out.CreditedRoi.Equal(dec("3")))
}

func TestEvaluateIgnoresNonActive(t *testing.T) {
	approved := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := activeInvestment("100", "0.03", "9", 3, approved)
	inv.Status = StatusPending

	out := Evaluate(inv, approved.Add(10*day))
	assert.Equal(t, StatusPending, out.Status)
	assert.True(t, out.CreditedRoi.IsZero())
	assert.False(t, out.Changed(StatusPending))
}

func TestEvaluateNeverDecreasesCredited(t *testing.T) {
	approved := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := activeInvestment("100", "0.03", "9", 3, approved)
	inv.CreditedRoi = dec("6") // уже начислено больше, чем положено на день 1

	out := Evaluate(inv, approved.Add(day))
	assert.True(t, out.CreditedRoi.Equal(dec("6")))
	assert.True(t, out.RoiDelta.IsZero())
}
