// SPDX-License-Identifier: GPL-3.0-only

// Package events publishes change messages to the events exchange, from
// which the dispatcher listener fans them out to connected clients.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"viroscope-server/commons"
	"viroscope-server/dispatcher"

	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultExchange = "viroscope.events"

var (
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
)

// Init connects the publisher to the broker. When AMQP_URL is unset, or
// MOCK_EVENTS is true, publishing becomes a logged no-op so the server and
// tests can run without a broker.
func Init() error {
	if commons.GetEnv("MOCK_EVENTS") == "true" {
		commons.Logger.Debug("Mock events enabled, change messages will not be published")
		return nil
	}

	amqpURL := commons.GetEnv("AMQP_URL")
	if amqpURL == "" {
		commons.Logger.Warn("AMQP_URL is not set, change messages will not be published")
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	c, err := amqp.Dial(amqpURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	ch, err := c.Channel()
	if err != nil {
		c.Close()
		return fmt.Errorf("channel: %w", err)
	}

	name := commons.GetEnv("EVENTS_EXCHANGE", DefaultExchange)
	if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		c.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	conn = c
	channel = ch
	exchange = name
	commons.Logger.Infof("Event publisher initialized, exchange: %s", name)
	return nil
}

// Publish emits a change message. Failures are logged, not returned; a
// broken event bus must not fail the request that caused the change.
func Publish(iface, operation string, data any) {
	PublishRestricted(iface, operation, data, "")
}

// PublishRestricted emits a change message delivered only to clients
// holding the given permission.
func PublishRestricted(iface, operation string, data any, permission string) {
	mu.Lock()
	ch := channel
	mu.Unlock()

	if ch == nil {
		commons.Logger.Debugf("Dropping %s.%s event, publisher not connected", iface, operation)
		return
	}

	body, err := json.Marshal(dispatcher.Message{
		Interface:  iface,
		Operation:  operation,
		Data:       data,
		Permission: permission,
	})
	if err != nil {
		commons.Logger.Errorf("Failed to encode %s.%s event: %v", iface, operation, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		commons.Logger.Errorf("Failed to publish %s.%s event: %v", iface, operation, err)
	}
}

// Close releases the broker connection.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if channel != nil {
		_ = channel.Close()
		channel = nil
	}
	if conn != nil {
		_ = conn.Close()
		conn = nil
	}
}
