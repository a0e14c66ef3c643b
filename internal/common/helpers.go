// Package common содержит общие утилиты, используемые во всём проекте:
// работа с деньгами (decimal), генерация идентификаторов, пагинация.
package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cents — количество знаков после запятой для денежных сумм.
const Cents = 2

// RoundMoney округляет сумму до центов.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(Cents)
}

// FormatUSD форматирует сумму как "$1,234.50".
func FormatUSD(d decimal.Decimal) string {
	s := RoundMoney(d).StringFixed(Cents)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// RandomDigits возвращает строку из n случайных цифр (crypto/rand).
func RandomDigits(n int) (string, error) {
	return RandomString(n, "0123456789")
}

// RandomString собирает строку длины n из символов alphabet.
func RandomString(n int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("ошибка генерации случайной строки: %w", err)
		}
		b[i] = alphabet[v.Int64()]
	}
	return string(b), nil
}

// NewIDNum генерирует 8-значный прикладной идентификатор пользователя.
// Первая цифра не ноль, чтобы число всегда было восьмизначным.
func NewIDNum() (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(90_000_000))
	if err != nil {
		return 0, fmt.Errorf("ошибка генерации idnum: %w", err)
	}
	return v.Int64() + 10_000_000, nil
}

// DaysBetween — сколько полных суток прошло между from и to (не меньше 0).
func DaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}

// Page — параметры пагинации списков в админке.
type Page struct {
	Page  int
	Limit int
}

// NormalizePage подставляет дефолты: страница 1, лимит 20, максимум 100.
func NormalizePage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Page: page, Limit: limit}
}

// Offset — смещение для SQL OFFSET.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}
