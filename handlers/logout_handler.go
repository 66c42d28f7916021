// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"viroscope-server/db"
	"viroscope-server/middlewares"
	"viroscope-server/sessions"

	"github.com/labstack/echo/v4"
)

// LogoutHandler godoc
// @Summary      Logout
// @Description  Invalidates the requesting session and replaces it with an
// @Description  anonymous one. The new session ID is returned in cookies and
// @Description  the session token cookie is cleared.
// @Tags         account
// @Produce      json
// @Success      200 {object} LogoutResponse  "Logout successful"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /account/logout [post]
func LogoutHandler(c echo.Context) error {
	logger := c.Logger()

	oldSessionID := cookieValue(c, middlewares.SessionIDCookie)

	session, _, err := sessions.Replace(db.Conn, oldSessionID, c.RealIP(), nil, false)
	if err != nil {
		logger.Error("Failed to replace session:", err)
		return echo.ErrInternalServerError
	}

	middlewares.SetSessionIDCookie(c, session.ID)
	middlewares.DeleteSessionTokenCookie(c)

	return c.JSON(http.StatusOK, LogoutResponse{Message: "Logout successful"})
}
