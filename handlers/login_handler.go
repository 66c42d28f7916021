// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"viroscope-server/crypto"
	"viroscope-server/db"
	"viroscope-server/middlewares"
	"viroscope-server/sessions"
	"viroscope-server/users"

	"github.com/labstack/echo/v4"
)

// LoginHandler godoc
// @Summary      Login a user
// @Description  Authenticates a user by handle and password. On success a fresh
// @Description  session replaces the requesting one and its ID and token are
// @Description  returned in cookies. When the account is flagged for a forced
// @Description  password reset, a one-time reset code is returned instead and
// @Description  no session token is issued.
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        loginRequest  body  LoginRequest  true  "Login request payload"
// @Success      200 {object} LoginResponse    "Password reset required"
// @Success      201 {object} LoginResponse    "Login successful"
// @Failure      400 {object} echo.HTTPError   "Bad request, missing required fields"
// @Failure      401 {object} echo.HTTPError   "Unauthorized"
// @Failure      500 {object} echo.HTTPError   "Internal server error"
// @Router       /account/login [post]
func LoginHandler(c echo.Context) error {
	logger := c.Logger()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid login request payload:", err)
		return echo.ErrBadRequest
	}

	if req.Handle == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "handle field is required",
		}
	}

	if req.Password == "" {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: "password field is required",
		}
	}

	user, err := users.FindByHandle(db.Conn, req.Handle)
	if err != nil {
		logger.Error("Failed to find user:", err)
		return echo.ErrInternalServerError
	}

	if user == nil {
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Invalid handle or password",
		}
	}

	if err := crypto.NewCrypto().VerifyPassword(req.Password, user.Password); err != nil {
		logger.Error("Password verification failed.")
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Invalid handle or password",
		}
	}

	sessionID := cookieValue(c, middlewares.SessionIDCookie)

	if user.ForceReset {
		// Credentials check out but the account must change its password
		// first. Park a one-time code on the session instead of issuing a
		// token.
		if sessionID == "" {
			session, err := sessions.Create(db.Conn, c.RealIP())
			if err != nil {
				logger.Error("Failed to create session:", err)
				return echo.ErrInternalServerError
			}
			sessionID = session.ID
		}

		code, err := sessions.CreateResetCode(db.Conn, sessionID, user.ID, req.Remember)
		if err != nil {
			logger.Error("Failed to create reset code:", err)
			return echo.ErrInternalServerError
		}

		middlewares.SetSessionIDCookie(c, sessionID)
		return c.JSON(http.StatusOK, LoginResponse{Reset: true, ResetCode: code})
	}

	session, token, err := sessions.Replace(db.Conn, sessionID, c.RealIP(), &user.ID, req.Remember)
	if err != nil {
		logger.Error("Failed to replace session:", err)
		return echo.ErrInternalServerError
	}

	middlewares.SetSessionIDCookie(c, session.ID)
	middlewares.SetSessionTokenCookie(c, token)

	return c.JSON(http.StatusCreated, LoginResponse{Reset: false})
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
