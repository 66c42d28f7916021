// SPDX-License-Identifier: GPL-3.0-only

// Package users is the lookup surface the credential resolver depends on.
package users

import (
	"errors"
	"fmt"
	"strings"
	"viroscope-server/models"

	"gorm.io/gorm"
)

// FindByHandle returns the user with the given handle, or nil when no such
// user exists.
func FindByHandle(db *gorm.DB, handle string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "handle = ?", handle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by handle: %w", err)
	}
	return &user, nil
}

// FindByID returns the user with the given id, or nil when no such user
// exists.
func FindByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindOrCreateByExternalID resolves a bearer token subject to a local user
// record, creating one on first sight. New users get a handle derived from
// the token's name claim, suffixed with an incrementing number until it is
// unique.
func FindOrCreateByExternalID(db *gorm.DB, externalID, displayName string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "external_id = ?", externalID).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by external id: %w", err)
	}

	handle, err := uniqueHandle(db, displayName)
	if err != nil {
		return nil, err
	}

	user = models.User{
		Handle:      handle,
		ExternalID:  &externalID,
		Groups:      models.StringList{},
		Permissions: models.NewPermissionSet(),
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create external user: %w", err)
	}
	return &user, nil
}

func uniqueHandle(db *gorm.DB, displayName string) (string, error) {
	base := slugify(displayName)
	if base == "" {
		base = "user"
	}

	candidate := base
	for suffix := 2; ; suffix++ {
		var count int64
		err := db.Model(&models.User{}).Where("handle = ?", candidate).Count(&count).Error
		if err != nil {
			return "", fmt.Errorf("check handle uniqueness: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
