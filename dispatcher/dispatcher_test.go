// SPDX-License-Identifier: GPL-3.0-only

package dispatcher

import (
	"testing"
	"viroscope-server/middlewares"
	"viroscope-server/models"

	"github.com/gorilla/websocket"
)

type fakeSocket struct {
	sent      []Message
	writeErr  error
	closed    bool
	closeCode int
}

func (s *fakeSocket) WriteJSON(v any) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.sent = append(s.sent, v.(Message))
	return nil
}

func (s *fakeSocket) Close(code int) error {
	s.closed = true
	s.closeCode = code
	return nil
}

func testConnection(permissions ...string) (*Connection, *fakeSocket) {
	perms := models.NewPermissionSet()
	for _, p := range permissions {
		perms[p] = true
	}
	sock := &fakeSocket{}
	client := &middlewares.Client{
		Groups:      models.StringList{},
		Permissions: perms,
	}
	return NewConnection(sock, client), sock
}

func TestAddRemoveConnection(t *testing.T) {
	d := New()
	conn1, _ := testConnection()
	conn2, _ := testConnection()

	d.AddConnection(conn1)
	d.AddConnection(conn2)

	if d.Len() != 2 {
		t.Fatalf("Expected 2 connections, got %d", d.Len())
	}

	d.RemoveConnection(conn1)
	if d.Len() != 1 {
		t.Fatalf("Expected 1 connection after removal, got %d", d.Len())
	}

	// Removing a connection that is already gone is a no-op
	d.RemoveConnection(conn1)
	if d.Len() != 1 {
		t.Fatalf("Expected 1 connection after duplicate removal, got %d", d.Len())
	}
}

func TestBroadcastDeliversToAll(t *testing.T) {
	d := New()
	conn1, sock1 := testConnection()
	conn2, sock2 := testConnection()
	d.AddConnection(conn1)
	d.AddConnection(conn2)

	message := Message{Interface: "samples", Operation: OperationUpdate}
	d.Broadcast(message, nil)

	if len(sock1.sent) != 1 || len(sock2.sent) != 1 {
		t.Fatalf("Expected 1 message per connection, got %d and %d", len(sock1.sent), len(sock2.sent))
	}
	if sock1.sent[0].Interface != "samples" {
		t.Errorf("Expected interface 'samples', got %s", sock1.sent[0].Interface)
	}
}

func TestBroadcastPermissionPredicate(t *testing.T) {
	d := New()
	privileged, privilegedSock := testConnection("cancel_job")
	plain, plainSock := testConnection()
	d.AddConnection(privileged)
	d.AddConnection(plain)

	message := Message{Interface: "jobs", Operation: OperationDelete, Permission: "cancel_job"}
	d.Broadcast(message, HasPermission("cancel_job"))

	if len(privilegedSock.sent) != 1 {
		t.Errorf("Expected privileged connection to receive message, got %d sends", len(privilegedSock.sent))
	}
	if len(plainSock.sent) != 0 {
		t.Errorf("Expected unprivileged connection to receive nothing, got %d sends", len(plainSock.sent))
	}
}

func TestBroadcastRemovesClosingConnection(t *testing.T) {
	d := New()
	closing, closingSock := testConnection()
	closingSock.writeErr = websocket.ErrCloseSent
	healthy, healthySock := testConnection()
	d.AddConnection(closing)
	d.AddConnection(healthy)

	d.Broadcast(Message{Interface: "samples", Operation: OperationCreate}, nil)

	if d.Len() != 1 {
		t.Fatalf("Expected closing connection to be removed, got %d connections", d.Len())
	}
	if !closingSock.closed {
		t.Error("Expected closing socket to be closed")
	}
	if closingSock.closeCode != websocket.CloseGoingAway {
		t.Errorf("Expected close code %d, got %d", websocket.CloseGoingAway, closingSock.closeCode)
	}
	if len(healthySock.sent) != 1 {
		t.Errorf("Expected healthy connection to still receive message, got %d sends", len(healthySock.sent))
	}
}

func TestClose(t *testing.T) {
	d := New()
	conn1, sock1 := testConnection()
	conn2, sock2 := testConnection()
	d.AddConnection(conn1)
	d.AddConnection(conn2)

	d.Close()

	if d.Len() != 0 {
		t.Fatalf("Expected 0 connections after close, got %d", d.Len())
	}
	if !sock1.closed || !sock2.closed {
		t.Error("Expected all sockets to be closed")
	}
	if sock1.closeCode != websocket.CloseGoingAway {
		t.Errorf("Expected close code %d, got %d", websocket.CloseGoingAway, sock1.closeCode)
	}
}
