// SPDX-License-Identifier: GPL-3.0-only

package dispatcher

import (
	"encoding/json"
	"fmt"
	"viroscope-server/commons"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Listener consumes change messages from the events exchange and
// rebroadcasts them to live connections. Any subsystem publishing to the
// exchange reaches every connected client without holding a dispatcher
// reference.
type Listener struct {
	dispatcher *Dispatcher
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	stopChan   chan struct{}
}

// NewListener connects to the broker and binds an exclusive queue to the
// fanout events exchange.
func NewListener(amqpURL, exchange string, d *Dispatcher) (*Listener, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	if err := ch.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	return &Listener{
		dispatcher: d,
		conn:       conn,
		channel:    ch,
		queue:      queue.Name,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start begins consuming in a background goroutine.
func (l *Listener) Start() error {
	deliveries, err := l.channel.Consume(l.queue, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	go func() {
		for {
			select {
			case delivery, ok := <-deliveries:
				if !ok {
					commons.Logger.Warn("Event delivery channel closed")
					return
				}
				l.handleDelivery(delivery)
			case <-l.stopChan:
				return
			}
		}
	}()

	commons.Logger.Infof("Event listener started on queue %s", l.queue)
	return nil
}

func (l *Listener) handleDelivery(delivery amqp.Delivery) {
	var message Message
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		commons.Logger.Errorf("Discarding malformed event message: %v", err)
		return
	}

	var predicate func(*Connection) bool
	if message.Permission != "" {
		predicate = HasPermission(message.Permission)
	}

	l.dispatcher.Broadcast(message, predicate)
}

// Close stops consumption and releases the broker connection.
func (l *Listener) Close() {
	close(l.stopChan)
	if l.channel != nil {
		_ = l.channel.Close()
	}
	if l.conn != nil {
		_ = l.conn.Close()
	}
}
