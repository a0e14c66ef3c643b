package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUSD(t *testing.T) {
	cases := map[string]string{
		"0":        "$0.00",
		"9":        "$9.00",
		"1234.5":   "$1,234.50",
		"1000000":  "$1,000,000.00",
		"-250.125": "-$250.13",
		"999.999":  "$1,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatUSD(decimal.RequireFromString(in)), in)
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(base, base))
	assert.Equal(t, 0, DaysBetween(base, base.Add(23*time.Hour)))
	assert.Equal(t, 1, DaysBetween(base, base.Add(24*time.Hour)))
	assert.Equal(t, 3, DaysBetween(base, base.Add(3*24*time.Hour+time.Minute)))
	assert.Equal(t, 0, DaysBetween(base, base.Add(-48*time.Hour)))
}

func TestNewIDNumIsEightDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		id, err := NewIDNum()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, id, int64(10_000_000))
		assert.Less(t, id, int64(100_000_000))
	}
}

func TestRandomString(t *testing.T) {
	s, err := RandomString(32, "AB")
	require.NoError(t, err)
	assert.Len(t, s, 32)
	for _, r := range s {
		assert.Contains(t, "AB", string(r))
	}
}

func TestNormalizePage(t *testing.T) {
	p := NormalizePage(0, 0)
	assert.Equal(t, Page{Page: 1, Limit: 20}, p)
	assert.Equal(t, 0, p.Offset())

	p = NormalizePage(3, 500)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset())
}
