// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"time"
)

// Session is a cookie-correlated login context. The ID travels in the
// non-secret session_id cookie; TokenHash is the SHA-256 of the secret
// session_token cookie and is empty for anonymous sessions. The reset
// fields hold transient password-reset state and are cleared after one
// request cycle.
type Session struct {
	ID            string        `gorm:"primaryKey"`
	TokenHash     string        `gorm:"index;default:null"`
	IPAddress     string        `gorm:"default:null"`
	Administrator bool          `gorm:"not null;default:false"`
	ForceReset    bool          `gorm:"not null;default:false"`
	Groups        StringList    `gorm:"serializer:json"`
	Permissions   PermissionSet `gorm:"serializer:json"`
	UserID        *uint
	User          *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ResetCode     *string
	ResetUserID   *uint
	ResetRemember *bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Authenticated reports whether the session belongs to a logged-in user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != nil && s.TokenHash != ""
}

func init() {
	AllModels = append(AllModels, &Session{})
}
