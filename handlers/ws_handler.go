// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"viroscope-server/dispatcher"
	"viroscope-server/middlewares"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebsocketHandler godoc
// @Summary      Open the push channel
// @Description  Upgrades the connection to a WebSocket over which the server
// @Description  pushes change messages. Requires an authenticated session;
// @Description  the connection carries the session's identity and permission
// @Description  snapshot for the registry's delivery filtering.
// @Tags         ws
// @Success      101 "Switching protocols"
// @Failure      401 {object} echo.HTTPError "Unauthorized"
// @Router       /ws [get]
func WebsocketHandler(d *dispatcher.Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := c.Logger()

		client := middlewares.GetClient(c)
		if !client.Authenticated {
			return &echo.HTTPError{
				Code:    http.StatusUnauthorized,
				Message: "Requires authorization",
			}
		}

		ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			logger.Error("WebSocket upgrade failed:", err)
			return err
		}

		conn := dispatcher.NewConnection(dispatcher.NewSocket(ws), client)
		d.AddConnection(conn)

		defer func() {
			d.RemoveConnection(conn)
			_ = conn.Close(websocket.CloseNormalClosure)
		}()

		// The channel is push-only. Reading drives close detection and
		// control frame handling; inbound data frames are discarded.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseAbnormalClosure) {
					logger.Debug("WebSocket read error:", err)
				}
				return nil
			}
		}
	}
}
