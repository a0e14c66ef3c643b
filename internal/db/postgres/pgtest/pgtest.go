// Package pgtest — помощники для тестов репозиториев на pgxmock:
// мок пула, совместимый с postgres.DB, и матчеры аргументов.
package pgtest

import (
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// NewPool создаёт мок пула. Close вызывается автоматически в конце теста.
func NewPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// SQL превращает фрагмент запроса в регулярное выражение для ExpectQuery/ExpectExec.
// Пробелы схлопываются так же, как pgxmock схлопывает их в самом запросе.
func SQL(fragment string) string {
	return regexp.QuoteMeta(strings.Join(strings.Fields(fragment), " "))
}

// Amount сравнивает аргумент-сумму по значению: decimal.Decimal
// с разной внутренней экспонентой через DeepEqual не совпадает.
type Amount string

// Match реализует pgxmock.Argument.
func (a Amount) Match(v any) bool {
	d, ok := v.(decimal.Decimal)
	return ok && d.Equal(decimal.RequireFromString(string(a)))
}

// Money — короткая запись decimal в тестах.
func Money(s string) decimal.Decimal { return decimal.RequireFromString(s) }
