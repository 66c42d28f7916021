// SPDX-License-Identifier: GPL-3.0-only

package passwordcheck

import (
	"errors"
	"strconv"
	"unicode"
	"viroscope-server/commons"
)

// ValidatePassword enforces the platform password policy. The minimum
// length is tunable through MIN_PASSWORD_LENGTH.
func ValidatePassword(password string) error {
	minLength := 8
	if v := commons.GetEnv("MIN_PASSWORD_LENGTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			minLength = i
		}
	}

	if len([]rune(password)) < minLength {
		return errors.New("password must be at least " + strconv.Itoa(minLength) + " characters long")
	}
	if !hasUppercase(password) {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLowercase(password) {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasDigit(password) {
		return errors.New("password must contain at least one digit")
	}

	return nil
}

func hasUppercase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasLowercase(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
