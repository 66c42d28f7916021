// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"viroscope-server/middlewares"

	"github.com/labstack/echo/v4"
)

// GetAccountHandler godoc
// @Summary      Get the account
// @Description  Retrieves the complete user document for the authenticated
// @Description  account.
// @Tags         account
// @Produce      json
// @Success      200 {object} AccountResponse "Account"
// @Failure      401 {object} echo.HTTPError  "Unauthorized"
// @Router       /account [get]
func GetAccountHandler(c echo.Context) error {
	logger := c.Logger()

	user, err := middlewares.GetAuthenticatedUser(c)
	if err != nil {
		logger.Error("Failed to get authenticated user:", err)
		return &echo.HTTPError{
			Code:    http.StatusUnauthorized,
			Message: "Requires authorization",
		}
	}

	return c.JSON(http.StatusOK, AccountResponse{
		ID:                 user.ID,
		Handle:             user.Handle,
		Administrator:      user.Administrator,
		ForceReset:         user.ForceReset,
		Groups:             user.Groups,
		Permissions:        user.Permissions,
		LastPasswordChange: user.LastPasswordChange,
	})
}
