// SPDX-License-Identifier: GPL-3.0-only

package routes

import (
	"viroscope-server/commons"
	"viroscope-server/dispatcher"
	"viroscope-server/handlers"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the API surface. Authentication is applied globally
// in server.go; login, logout and reset are declared public in the
// middleware configuration and handle their own session cookies.
func RegisterRoutes(e *echo.Echo, d *dispatcher.Dispatcher) {
	commons.Logger.Debug("Registering routes")

	e.POST("/account/login", handlers.LoginHandler)
	e.POST("/account/logout", handlers.LogoutHandler)
	e.POST("/account/reset", handlers.ResetHandler)

	e.GET("/account", handlers.GetAccountHandler)
	e.POST("/account/keys", handlers.CreateAPIKeyHandler)
	e.GET("/account/keys", handlers.GetAllAPIKeysHandler)
	e.GET("/account/keys/:key_id", handlers.GetAPIKeyHandler)
	e.PATCH("/account/keys/:key_id", handlers.UpdateAPIKeyHandler)
	e.DELETE("/account/keys/:key_id", handlers.DeleteAPIKeyHandler)
	e.DELETE("/account/keys", handlers.DeleteAllAPIKeysHandler)

	e.GET("/ws", handlers.WebsocketHandler(d))

	commons.Logger.Info("Routes registered successfully")
}
