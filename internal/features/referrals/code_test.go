package referrals

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	tests := []struct {
		seed   string
		prefix string
	}{
		{"Grant Holdings", "GR"},
		{"jo", "JO"},
		{"x", "XG"},
		{"", "GG"},
		{"  4-ever ", "4E"},
		{"Ёжик Anna", "AN"},
	}
	for _, tt := range tests {
		code, err := NewCode(tt.seed)
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		assert.True(t, strings.HasPrefix(code, tt.prefix), "%q → %q", tt.seed, code)
		for _, r := range code[2:] {
			assert.Contains(t, CodeAlphabet, string(r))
		}
	}
}

func TestNextLevelIsCapped(t *testing.T) {
	assert.Equal(t, 1, NextLevel(0))
	assert.Equal(t, 3, NextLevel(2))
	assert.Equal(t, 3, NextLevel(3))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "GRAB23CD", NormalizeCode("  grab23cd "))
}
