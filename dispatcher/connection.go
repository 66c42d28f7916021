// SPDX-License-Identifier: GPL-3.0-only

package dispatcher

import (
	"errors"
	"time"
	"viroscope-server/middlewares"
	"viroscope-server/models"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed reports that a send hit a transport that was already
// closing. The connection has been closed with a going-away code; the
// caller should drop it from the registry.
var ErrConnectionClosed = errors.New("connection closed during send")

// Socket is the transport a Connection writes to.
type Socket interface {
	WriteJSON(v any) error
	Close(code int) error
}

type wsSocket struct {
	conn *websocket.Conn
}

// NewSocket wraps a websocket connection in the Socket interface.
func NewSocket(conn *websocket.Conn) Socket {
	return &wsSocket{conn: conn}
}

func (s *wsSocket) WriteJSON(v any) error {
	return s.conn.WriteJSON(v)
}

func (s *wsSocket) Close(code int) error {
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	return s.conn.Close()
}

// Connection is one live push channel. Identity fields are captured from
// the resolved client at connect time and never refreshed.
type Connection struct {
	sock Socket

	UserID      *uint
	Groups      models.StringList
	Permissions models.PermissionSet
}

// NewConnection builds a Connection owned by the registry for the client
// that opened it.
func NewConnection(sock Socket, client *middlewares.Client) *Connection {
	return &Connection{
		sock:        sock,
		UserID:      client.UserID,
		Groups:      client.Groups,
		Permissions: client.Permissions,
	}
}

// Send serializes message and transmits it. A write against a transport
// that is already closing is a benign race: the socket is closed with a
// going-away code and ErrConnectionClosed is returned. Any other transport
// error propagates unchanged.
func (c *Connection) Send(message Message) error {
	err := c.sock.WriteJSON(message)
	if err == nil {
		return nil
	}

	if errors.Is(err, websocket.ErrCloseSent) {
		_ = c.sock.Close(websocket.CloseGoingAway)
		return ErrConnectionClosed
	}

	return err
}

// Close closes the underlying socket with the given code.
func (c *Connection) Close(code int) error {
	return c.sock.Close(code)
}
