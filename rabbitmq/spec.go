package rabbitmq

import (
	"context"
	"io"

	"github.com/rabbitmq/amqp091-go"
)

// the file contains interfaces for the base amqp091 library, this is so we can easily override in tests, and it also
// limits the functionality to what we need.

var (
	// dialConfig is the dialer function to use to connect to amqp091 with config.
	dialConfig = func(url string, c amqp091.Config) (Connection, error) {
		conn, err := amqp091.DialConfig(url, c)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	// newChannel opens a channel on a connection.
	newChannel = func(conn Connection) (amqp091Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
)

// Connection is the part of *amqp091.Connection the driver relies on.
// see: github.com/rabbitmq/amqp091-go/connection.go
type Connection interface {
	io.Closer
	IsClosed() bool
	Channel() (*amqp091.Channel, error)
}

// see: github.com/rabbitmq/amqp091-go/channel.go
type amqp091Channel interface {
	io.Closer
	IsClosed() bool
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(
		queue, consumer string,
		autoAck, exclusive, noLocal, noWait bool,
		args amqp091.Table,
	) (<-chan amqp091.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Ack(tag uint64, multiple bool) error
	Reject(tag uint64, requeue bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	ExchangeBind(destination, key, source string, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	NotifyClose(rcv chan *amqp091.Error) chan *amqp091.Error
}
