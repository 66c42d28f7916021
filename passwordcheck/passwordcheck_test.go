// SPDX-License-Identifier: GPL-3.0-only

package passwordcheck

import "testing"

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("Password123"); err != nil {
		t.Errorf("Expected a conforming password to pass: %v", err)
	}

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "Pw1"},
		{"no uppercase", "password123"},
		{"no lowercase", "PASSWORD123"},
		{"no digit", "Passwordabc"},
	}

	for _, tc := range cases {
		if err := ValidatePassword(tc.password); err == nil {
			t.Errorf("%s: expected %q to be rejected", tc.name, tc.password)
		}
	}
}

func TestValidatePasswordMinLengthOverride(t *testing.T) {
	t.Setenv("MIN_PASSWORD_LENGTH", "12")

	if err := ValidatePassword("Password123"); err == nil {
		t.Error("Expected an 11-character password to fail a 12-character minimum")
	}
	if err := ValidatePassword("Password12345"); err != nil {
		t.Errorf("Expected a 13-character password to pass: %v", err)
	}
}
