// SPDX-License-Identifier: GPL-3.0-only

// Package sessions implements the durable session store backing cookie
// authentication, including the one-shot password reset code protocol.
package sessions

import (
	"errors"
	"fmt"
	"time"
	"viroscope-server/crypto"
	"viroscope-server/models"

	"gorm.io/gorm"
)

const (
	// DefaultLifetime applies to anonymous sessions and logins without
	// "remember me".
	DefaultLifetime = time.Hour

	// RememberLifetime applies when a login sets remember.
	RememberLifetime = 30 * 24 * time.Hour

	idBytes        = 16
	tokenBytes     = 32
	resetCodeChars = 8
)

// Create persists a new anonymous session for the given client address.
// Anonymous sessions carry no token and empty group/permission snapshots.
func Create(db *gorm.DB, ip string) (*models.Session, error) {
	id, err := crypto.GenerateSecret(idBytes)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:          id,
		IPAddress:   ip,
		Groups:      models.StringList{},
		Permissions: models.NewPermissionSet(),
		ExpiresAt:   time.Now().Add(DefaultLifetime),
	}

	if err := db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Replace invalidates the session identified by oldID and creates a new
// one. When userID is set the new session is authenticated: the user's
// administrator flag, groups and permissions are snapshotted onto it and
// the plaintext token is returned exactly once. When userID is nil the new
// session is anonymous and the returned token is empty. Used by login,
// logout and the post-reset flow.
func Replace(db *gorm.DB, oldID, ip string, userID *uint, remember bool) (*models.Session, string, error) {
	if oldID != "" {
		if err := db.Delete(&models.Session{}, "id = ?", oldID).Error; err != nil {
			return nil, "", fmt.Errorf("invalidate session: %w", err)
		}
	}

	id, err := crypto.GenerateSecret(idBytes)
	if err != nil {
		return nil, "", err
	}

	session := &models.Session{
		ID:          id,
		IPAddress:   ip,
		Groups:      models.StringList{},
		Permissions: models.NewPermissionSet(),
		ExpiresAt:   time.Now().Add(DefaultLifetime),
	}

	var token string

	if userID != nil {
		var user models.User
		if err := db.First(&user, *userID).Error; err != nil {
			return nil, "", fmt.Errorf("load session user: %w", err)
		}

		token, err = crypto.GenerateSecret(tokenBytes)
		if err != nil {
			return nil, "", err
		}

		session.TokenHash = crypto.HashKey(token)
		session.UserID = &user.ID
		session.Administrator = user.Administrator
		session.ForceReset = user.ForceReset
		session.Groups = user.Groups
		session.Permissions = user.Permissions

		if remember {
			session.ExpiresAt = time.Now().Add(RememberLifetime)
		}
	}

	if err := db.Create(session).Error; err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	return session, token, nil
}

// Get looks up a session by id and verifies token possession. The second
// return value reports whether the token matched. Lookups fail closed: a
// missing, expired, or token-mismatched session yields (nil, false, nil)
// so the middleware can fall back to a fresh anonymous session. An
// anonymous session resolves with a false token match. A non-nil error
// means the store itself failed and the request must not degrade to
// anonymous.
func Get(db *gorm.DB, id, token string) (*models.Session, bool, error) {
	if id == "" {
		return nil, false, nil
	}

	var session models.Session
	err := db.First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session: %w", err)
	}

	if session.ExpiresAt.Before(time.Now()) {
		_ = db.Delete(&models.Session{}, "id = ?", id).Error
		return nil, false, nil
	}

	if session.TokenHash == "" {
		return &session, false, nil
	}

	if token == "" || crypto.HashKey(token) != session.TokenHash {
		return nil, false, nil
	}

	return &session, true, nil
}

// CreateResetCode stores a one-time password reset code on the session.
// Issued when credentials verify but the account is flagged force_reset.
func CreateResetCode(db *gorm.DB, sessionID string, userID uint, remember bool) (string, error) {
	code, err := crypto.RandomAlphanumeric(resetCodeChars)
	if err != nil {
		return "", err
	}

	err = db.Model(&models.Session{}).Where("id = ?", sessionID).Updates(map[string]any{
		"reset_code":     code,
		"reset_user_id":  userID,
		"reset_remember": remember,
	}).Error
	if err != nil {
		return "", fmt.Errorf("create reset code: %w", err)
	}
	return code, nil
}

// ClearResetCode removes any pending reset state from the session. It is
// idempotent; clearing a session with no reset fields is a no-op.
func ClearResetCode(db *gorm.DB, sessionID string) error {
	err := db.Model(&models.Session{}).Where("id = ?", sessionID).Updates(map[string]any{
		"reset_code":     nil,
		"reset_user_id":  nil,
		"reset_remember": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("clear reset code: %w", err)
	}
	return nil
}

// GetResetData loads the raw session record for the reset endpoint, which
// must inspect pending reset state without proving token possession.
func GetResetData(db *gorm.DB, sessionID string) (*models.Session, error) {
	var session models.Session
	err := db.First(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}
