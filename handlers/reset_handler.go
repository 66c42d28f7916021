// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"time"
	"viroscope-server/crypto"
	"viroscope-server/db"
	"viroscope-server/middlewares"
	"viroscope-server/models"
	"viroscope-server/passwordcheck"
	"viroscope-server/sessions"

	"github.com/labstack/echo/v4"
)

// ResetHandler godoc
// @Summary      Reset a password
// @Description  Completes a forced password reset using the one-time code
// @Description  returned by the login endpoint. On success the password is
// @Description  changed, the force_reset flag cleared, and a fresh
// @Description  authenticated session is issued in cookies. A wrong code
// @Description  invalidates itself and returns a new one.
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        resetRequest  body  ResetPasswordRequest  true  "Reset request payload"
// @Success      200 {object} ResetPasswordResponse "Password reset"
// @Failure      400 {object} ResetPasswordResponse "Invalid code or password"
// @Failure      500 {object} echo.HTTPError        "Internal server error"
// @Router       /account/reset [post]
func ResetHandler(c echo.Context) error {
	logger := c.Logger()

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid reset request payload:", err)
		return echo.ErrBadRequest
	}

	sessionID := cookieValue(c, middlewares.SessionIDCookie)
	if sessionID == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "No session to reset",
		}
	}

	session, err := sessions.GetResetData(db.Conn, sessionID)
	if err != nil {
		logger.Error("Failed to load session:", err)
		return echo.ErrInternalServerError
	}

	if session == nil || session.ResetCode == nil || session.ResetUserID == nil {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "No pending password reset",
		}
	}

	userID := *session.ResetUserID
	remember := session.ResetRemember != nil && *session.ResetRemember

	if req.ResetCode != *session.ResetCode {
		// Codes are one-shot: a wrong attempt burns the old one and
		// issues a replacement.
		code, err := sessions.CreateResetCode(db.Conn, sessionID, userID, remember)
		if err != nil {
			logger.Error("Failed to create reset code:", err)
			return echo.ErrInternalServerError
		}
		return c.JSON(http.StatusBadRequest, ResetPasswordResponse{
			Error:     "Invalid reset code",
			ResetCode: code,
		})
	}

	if err := passwordcheck.ValidatePassword(req.Password); err != nil {
		code, codeErr := sessions.CreateResetCode(db.Conn, sessionID, userID, remember)
		if codeErr != nil {
			logger.Error("Failed to create reset code:", codeErr)
			return echo.ErrInternalServerError
		}
		return c.JSON(http.StatusBadRequest, ResetPasswordResponse{
			Error:     err.Error(),
			ResetCode: code,
		})
	}

	hash, err := crypto.NewCrypto().HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password:", err)
		return echo.ErrInternalServerError
	}

	now := time.Now()
	err = db.Conn.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"password":             hash,
		"force_reset":          false,
		"last_password_change": &now,
	}).Error
	if err != nil {
		logger.Error("Failed to update password:", err)
		return echo.ErrInternalServerError
	}

	newSession, token, err := sessions.Replace(db.Conn, sessionID, c.RealIP(), &userID, remember)
	if err != nil {
		logger.Error("Failed to replace session:", err)
		return echo.ErrInternalServerError
	}

	middlewares.SetSessionIDCookie(c, newSession.ID)
	middlewares.SetSessionTokenCookie(c, token)

	return c.JSON(http.StatusOK, ResetPasswordResponse{Login: false, Reset: false})
}
