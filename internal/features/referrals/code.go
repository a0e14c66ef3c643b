package referrals

import (
	"strings"
	"time"
	"unicode"

	"serotonyl.ru/invest-platform/internal/common"
)

const (
	// CodeAlphabet — без похожих символов (0/O, 1/I).
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// CodeLength — длина кода.
	CodeLength = 8
	// MaxCodeAttempts — попыток найти свободный код.
	MaxCodeAttempts = 12
	// CodeTTL — срок жизни кода.
	CodeTTL = 30 * 24 * time.Hour
	// MaxLevel — глубина реферального дерева.
	MaxLevel = 3
)

// NewCode генерирует код: два символа из seed (имя или email), остальное случайно.
// Если в seed меньше двух букв/цифр, префикс добивается буквой G.
func NewCode(seed string) (string, error) {
	var prefix []rune
	for _, r := range strings.ToUpper(seed) {
		if len(prefix) == 2 {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			prefix = append(prefix, r)
		}
	}
	for len(prefix) < 2 {
		prefix = append(prefix, 'G')
	}

	rest, err := common.RandomString(CodeLength-2, CodeAlphabet)
	if err != nil {
		return "", err
	}
	return string(prefix) + rest, nil
}

// NormalizeCode приводит введённый код к виду в БД.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NextLevel — уровень приглашённого по уровню пригласившего.
func NextLevel(referrerLevel int) int {
	if referrerLevel+1 > MaxLevel {
		return MaxLevel
	}
	return referrerLevel + 1
}
