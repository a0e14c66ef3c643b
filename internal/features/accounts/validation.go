package accounts

import (
	"regexp"
	"strings"
	"unicode"
)

const minPasswordLength = 8

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail — нижний регистр без пробелов по краям.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail — простая проверка формата.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidPassword: не короче 8 символов, есть буква, цифра и спецсимвол.
func ValidPassword(password string) bool {
	if len([]rune(password)) < minPasswordLength {
		return false
	}
	var letter, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return letter && digit && special
}
