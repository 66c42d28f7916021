// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"time"
	"viroscope-server/models"
)

// swagger:model LoginRequest
type LoginRequest struct {
	// User's handle
	Handle string `json:"handle" example:"jsmith"`
	// User's password
	Password string `json:"password" example:"MySecretPassword@123"`
	// Keep the session alive for 30 days instead of one hour
	Remember bool `json:"remember" example:"false"`
}

// swagger:model LoginResponse
type LoginResponse struct {
	// Whether a password reset is required before a session is issued
	Reset bool `json:"reset"`
	// One-time code to present to the reset endpoint
	ResetCode string `json:"reset_code,omitempty" example:"4ab31e92"`
}

// swagger:model LogoutResponse
type LogoutResponse struct {
	// Message indicating successful logout
	Message string `json:"message" example:"Logout successful"`
}

// swagger:model ResetPasswordRequest
type ResetPasswordRequest struct {
	// The new password
	Password string `json:"password" example:"MyNewPassword@123"`
	// The reset code returned by the login endpoint
	ResetCode string `json:"reset_code" example:"4ab31e92"`
}

// swagger:model ResetPasswordResponse
type ResetPasswordResponse struct {
	Login bool `json:"login"`
	Reset bool `json:"reset"`
	// A fresh reset code, present when the submitted code was rejected
	ResetCode string `json:"reset_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// swagger:model APIKeyResponse
type APIKeyResponse struct {
	// Public identifier used to address the key
	DisplayID string `json:"id" example:"7c25a6f0-02a1-44f9-8a46-ef3ba2b9ad17"`
	// Key name, unique per user
	Name string `json:"name" example:"analysis-pipeline"`
	// Owner's administrator status at creation time
	Administrator bool `json:"administrator"`
	// Owner's group snapshot at creation time
	Groups models.StringList `json:"groups"`
	// Capped permission snapshot governing requests made with this key
	Permissions models.PermissionSet `json:"permissions"`
	CreatedAt   time.Time            `json:"created_at"`
}

// swagger:model CreateAPIKeyRequest
type CreateAPIKeyRequest struct {
	// Key name, unique per user
	Name string `json:"name" example:"analysis-pipeline"`
	// Requested permissions; silently capped to the owner's own set
	Permissions models.PermissionSet `json:"permissions"`
}

// swagger:model CreateAPIKeyResponse
type CreateAPIKeyResponse struct {
	APIKeyResponse
	// The key secret. Shown exactly once; only its hash is stored.
	Key string `json:"key" example:"c1d9cbd0b6b50cd7A..."`
}

// swagger:model UpdateAPIKeyRequest
type UpdateAPIKeyRequest struct {
	// New requested permissions; capped to the owner's current set
	Permissions models.PermissionSet `json:"permissions"`
}

// swagger:model AccountResponse
type AccountResponse struct {
	ID                 uint                 `json:"id"`
	Handle             string               `json:"handle"`
	Administrator      bool                 `json:"administrator"`
	ForceReset         bool                 `json:"force_reset"`
	Groups             models.StringList    `json:"groups"`
	Permissions        models.PermissionSet `json:"permissions"`
	LastPasswordChange *time.Time           `json:"last_password_change"`
}
