// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"

	"gorm.io/gorm"
)

var AllModels []any

type User struct {
	ID                 uint          `gorm:"primaryKey"`
	Handle             string        `gorm:"not null;uniqueIndex"`
	Password           string        `gorm:"not null"`
	Administrator      bool          `gorm:"not null;default:false"`
	ForceReset         bool          `gorm:"not null;default:false"`
	ExternalID         *string       `gorm:"uniqueIndex;default:null"`
	Groups             StringList    `gorm:"serializer:json"`
	Permissions        PermissionSet `gorm:"serializer:json"`
	LastPasswordChange *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func init() {
	AllModels = append(AllModels, &User{})
}
