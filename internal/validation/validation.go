// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

// IsValidEmail выполняет минимальную проверку формата адреса электронной почты:
// непустые локальная часть и домен с точкой, без пробелов.
func IsValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	local, domain := email[:at], email[at+1:]
	if strings.ContainsAny(local, " \t") || strings.ContainsAny(domain, " \t@") {
		return false
	}

	dot := strings.IndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}

	return true
}

// IsValidPhone проверяет телефонный номер: после отбрасывания нецифровых
// символов должно остаться не менее десяти цифр.
func IsValidPhone(phone string) bool {
	digits := 0
	for _, ch := range phone {
		if unicode.IsDigit(ch) {
			digits++
		}
	}
	return digits >= 10
}
