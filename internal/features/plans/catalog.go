// Package plans — catalog.go хранит единственную таблицу планов
// и правила для старых названий.
package plans

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Дефолты для нераспознанных планов.
var (
	FallbackDailyRate    = decimal.RequireFromString("0.025")
	FallbackDurationDays = 7
)

var defaultBonusRate = decimal.RequireFromString("0.10")

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// catalog — планы в порядке показа клиенту.
var catalog = []Plan{
	{Name: "3-Day Plan", DailyRate: d("0.03"), DurationDays: 3, MinCapital: d("100"), MaxCapital: d("999"), ReferralBonusRate: defaultBonusRate},
	{Name: "7-Day Plan", DailyRate: d("0.03"), DurationDays: 7, MinCapital: d("599"), MaxCapital: d("3999"), ReferralBonusRate: defaultBonusRate},
	{Name: "12-Day Plan", DailyRate: d("0.035"), DurationDays: 12, MinCapital: d("1000"), MaxCapital: d("5000"), ReferralBonusRate: defaultBonusRate},
	{Name: "15-Day Plan", DailyRate: d("0.04"), DurationDays: 15, MinCapital: d("3000"), MaxCapital: d("9000"), ReferralBonusRate: defaultBonusRate},
	{Name: "3-Month Plan", DailyRate: d("0.04"), DurationDays: 90, MinCapital: d("5000"), MaxCapital: d("15000"), ReferralBonusRate: defaultBonusRate},
	{Name: "6-Month Plan", DailyRate: d("0.05"), DurationDays: 180, MinCapital: d("15999"), MaxCapital: decimal.Zero, ReferralBonusRate: defaultBonusRate},
}

// legacyRule — старый план, для которого цели задавались множителями от капитала.
type legacyRule struct {
	name            string
	durationDays    int
	roiMultiplier   decimal.Decimal
	bonusMultiplier decimal.Decimal
}

// legacyRules — имена из старой таблицы, которых нет в каталоге.
// Ключ — нормализованное имя.
var legacyRules = map[string]legacyRule{
	"14-day plan": {name: "14-Day Plan", durationDays: 14, roiMultiplier: d("0.42"), bonusMultiplier: defaultBonusRate},
}

// Catalog — копия каталога (вызывающий может менять срез).
func Catalog() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup ищет план каталога по имени без учёта регистра и лишних пробелов.
func Lookup(name string) (Plan, bool) {
	key := normalize(name)
	for _, p := range catalog {
		if normalize(p.Name) == key {
			return p, true
		}
	}
	return Plan{}, false
}

// Known — распознаётся ли имя (каталог или старые правила).
func Known(name string) bool {
	if _, ok := Lookup(name); ok {
		return true
	}
	_, ok := legacyRules[normalize(name)]
	return ok
}

// Resolve определяет параметры одобрения: каталог → старые правила → дефолт.
// durationHint — срок из записи инвестиции, используется только для дефолта.
func Resolve(name string, durationHint int) Resolution {
	if p, ok := Lookup(name); ok {
		return Resolution{
			Plan:            p,
			Source:          SourceCatalog,
			RoiMultiplier:   p.TotalReturnRate(),
			BonusMultiplier: p.ReferralBonusRate,
		}
	}

	if rule, ok := legacyRules[normalize(name)]; ok {
		return Resolution{
			Plan: Plan{
				Name:              rule.name,
				DailyRate:         rule.roiMultiplier.DivRound(decimal.NewFromInt(int64(rule.durationDays)), 8),
				DurationDays:      rule.durationDays,
				ReferralBonusRate: rule.bonusMultiplier,
			},
			Source:          SourceLegacy,
			RoiMultiplier:   rule.roiMultiplier,
			BonusMultiplier: rule.bonusMultiplier,
		}
	}

	days := durationHint
	if days <= 0 {
		days = FallbackDurationDays
	}
	p := Plan{
		Name:         strings.TrimSpace(name),
		DailyRate:    FallbackDailyRate,
		DurationDays: days,
	}
	return Resolution{
		Plan:            p,
		Source:          SourceFallback,
		Fallback:        true,
		RoiMultiplier:   p.TotalReturnRate(),
		BonusMultiplier: decimal.Zero,
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
