// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey is a long-lived credential. KeyHash is the SHA-256 of the secret,
// which is shown to the owner exactly once at creation time. DisplayID is
// the public handle used to address the key in the API. Administrator,
// Groups and Permissions are snapshots taken when the key is created or
// edited; Permissions can never exceed the owner's own set unless the
// owner is an administrator.
type APIKey struct {
	ID            uint          `gorm:"primaryKey"`
	KeyHash       string        `gorm:"size:64;not null;uniqueIndex"`
	DisplayID     string        `gorm:"size:36;not null;uniqueIndex"`
	Name          string        `gorm:"size:255;not null;uniqueIndex:idx_key_user_name"`
	Administrator bool          `gorm:"not null;default:false"`
	Groups        StringList    `gorm:"serializer:json"`
	Permissions   PermissionSet `gorm:"serializer:json"`
	LastUsedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
	UserID        uint           `gorm:"uniqueIndex:idx_key_user_name"`
	User          User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func init() {
	AllModels = append(AllModels, &APIKey{})
}
