// SPDX-License-Identifier: GPL-3.0-only

// Package dispatcher tracks live WebSocket connections and broadcasts
// permission-filtered change messages to them.
package dispatcher

import (
	"errors"
	"sync"
	"viroscope-server/commons"

	"github.com/gorilla/websocket"
)

// Dispatcher owns the set of live connections. Membership is mutated only
// through its methods; broadcast failures on one connection never affect
// delivery to the others.
type Dispatcher struct {
	mu          sync.Mutex
	connections []*Connection
}

func New() *Dispatcher {
	return &Dispatcher{}
}

// AddConnection registers a live connection. A user may hold any number of
// connections; no deduplication is done.
func (d *Dispatcher) AddConnection(conn *Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connections = append(d.connections, conn)
}

// RemoveConnection removes conn by reference identity. Removing a
// connection that is not registered is a no-op, since removal can race
// between an explicit close and a failed send.
func (d *Dispatcher) RemoveConnection(conn *Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, registered := range d.connections {
		if registered == conn {
			d.connections = append(d.connections[:i], d.connections[i+1:]...)
			return
		}
	}
}

// Len returns the number of live connections.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.connections)
}

// Broadcast sends message to every connection matching predicate. A nil
// predicate matches all connections. Connections whose transport turned
// out to be closing are removed; other send failures are logged and do not
// stop the fan-out.
func (d *Dispatcher) Broadcast(message Message, predicate func(*Connection) bool) {
	d.mu.Lock()
	targets := make([]*Connection, len(d.connections))
	copy(targets, d.connections)
	d.mu.Unlock()

	for _, conn := range targets {
		if predicate != nil && !predicate(conn) {
			continue
		}

		err := conn.Send(message)
		if errors.Is(err, ErrConnectionClosed) {
			d.RemoveConnection(conn)
			continue
		}
		if err != nil {
			commons.Logger.Errorf("Failed to send %s.%s message to connection: %v",
				message.Interface, message.Operation, err)
		}
	}
}

// HasPermission returns a broadcast predicate matching connections whose
// permission snapshot grants name.
func HasPermission(name string) func(*Connection) bool {
	return func(conn *Connection) bool {
		return conn.Permissions.Has(name)
	}
}

// Close closes and removes every live connection. Called on shutdown
// before other resources are released so no handler observes a
// half-closed registry.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	connections := d.connections
	d.connections = nil
	d.mu.Unlock()

	for _, conn := range connections {
		if err := conn.Close(websocket.CloseGoingAway); err != nil {
			commons.Logger.Debugf("Failed to close connection during shutdown: %v", err)
		}
	}
}
