// SPDX-License-Identifier: GPL-3.0-only

package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	crypto := NewCrypto()
	password := "testpassword123"

	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	hash2, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("Second HashPassword failed: %v", err)
	}

	if hash == hash2 {
		t.Error("Two hashes of same password should be different (due to salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	crypto := NewCrypto()
	password := "testpassword123"
	wrongPassword := "wrongpassword"

	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	err = crypto.VerifyPassword(password, hash)
	if err != nil {
		t.Errorf("VerifyPassword failed for correct password: %v", err)
	}

	err = crypto.VerifyPassword(wrongPassword, hash)
	if err == nil {
		t.Error("VerifyPassword should fail for wrong password")
	}

	err = crypto.VerifyPassword(password, "invalid-hash")
	if err == nil {
		t.Error("VerifyPassword should fail for invalid hash")
	}
}

func TestVerifyPasswordLegacyBcrypt(t *testing.T) {
	crypto := NewCrypto()
	password := "legacy-password"

	legacyHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}

	err = crypto.VerifyPassword(password, string(legacyHash))
	if err != nil {
		t.Errorf("VerifyPassword failed for legacy bcrypt hash: %v", err)
	}

	err = crypto.VerifyPassword("wrong", string(legacyHash))
	if err == nil {
		t.Error("VerifyPassword should fail for wrong password against legacy hash")
	}
}

func TestHashKey(t *testing.T) {
	hash := HashKey("some-secret")

	if len(hash) != 64 {
		t.Errorf("Expected 64-character hex digest, got %d characters", len(hash))
	}

	if hash != HashKey("some-secret") {
		t.Error("Same key should produce same hash")
	}

	if hash == HashKey("other-secret") {
		t.Error("Different keys should produce different hashes")
	}
}

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret(32)
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}

	if len(secret) != 64 {
		t.Errorf("Expected 64-character secret, got %d characters", len(secret))
	}

	secret2, err := GenerateSecret(32)
	if err != nil {
		t.Fatalf("Second GenerateSecret failed: %v", err)
	}

	if secret == secret2 {
		t.Error("Two generated secrets should be different")
	}
}

func TestRandomAlphanumeric(t *testing.T) {
	code, err := RandomAlphanumeric(8)
	if err != nil {
		t.Fatalf("RandomAlphanumeric failed: %v", err)
	}

	if len(code) != 8 {
		t.Errorf("Expected 8-character code, got %d characters", len(code))
	}
}

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString("vk_", 16, "hex")
	if err != nil {
		t.Fatalf("GenerateRandomString failed: %v", err)
	}

	if !strings.HasPrefix(s, "vk_") {
		t.Errorf("Expected prefix 'vk_', got %s", s)
	}

	_, err = GenerateRandomString("", 16, "base64")
	if err != nil {
		t.Fatalf("GenerateRandomString with base64 failed: %v", err)
	}

	_, err = GenerateRandomString("", 16, "unsupported")
	if err == nil {
		t.Error("GenerateRandomString should fail for unsupported encoding")
	}
}
