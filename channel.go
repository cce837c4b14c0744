package amqp

import (
	"context"
	"io"
	"time"
)

// ExchangeType represents a type of exchange.
type ExchangeType string

const (
	// ExchangeTypeDirect represents a direct exchange
	// this is where a message is posted to bound queues where the routing key matches exactly.
	ExchangeTypeDirect ExchangeType = "direct"
	// ExchangeTypeFanout represents a fanout exchange
	// this is where the routing key is ignored and all bound queues receive a copy of the message.
	ExchangeTypeFanout ExchangeType = "fanout"
	// ExchangeTypeTopic represents a topic exchange
	// this extends on top of a direct exchange by allowing the routing key to be pattern based.
	ExchangeTypeTopic ExchangeType = "topic"
	// ExchangeTypeHeaders represents a headers exchange
	// this is where one or more headers are used to route the message
	ExchangeTypeHeaders ExchangeType = "headers"
)

// ExchangeDefinition declares an exchange.
type ExchangeDefinition struct {
	Name       string
	Type       ExchangeType
	Durable    bool
	AutoDelete bool
	Internal   bool
	Arguments  Table
}

// QueueDefinition declares a queue.
type QueueDefinition struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	Arguments  Table
}

// Publication is a message together with its publish flags.
type Publication struct {
	Message Message
	// Persistent marks the message for disk storage on durable queues.
	Persistent bool
	Mandatory  bool
	Immediate  bool
}

// Driver represents a connection to an AMQP broker together with the single channel it
// performs operations on.
//
// A driver is not safe for concurrent use. Operations other than Connect and Close open
// the connection and channel lazily. Any transport failure tears down both and is
// returned as a *DriverError; the next operation starts on a fresh connection.
type Driver interface {
	io.Closer

	// Connect materialises the connection. A failed connect leaves the driver
	// unconnected so the caller can retry.
	Connect(ctx context.Context) error
	// IsConnected determines if the driver currently holds a live connection.
	IsConnected() bool
	// IsClosed determines if Close has been called.
	IsClosed() bool

	// Publish attempts to publish a message onto an exchange with the supplied routing key.
	Publish(ctx context.Context, p Publication, exchange, routingKey string) error
	// Consume registers a consumer on queue and dispatches each delivery to h until h
	// returns false, a wait of timeout elapses with nothing pending, or ctx is done.
	// A zero timeout waits forever. The consumer is cancelled and the channel closed
	// before Consume returns.
	Consume(ctx context.Context, queue string, h Handler, timeout time.Duration) error
	// Ack acknowledges a delivery on the channel which issued it.
	Ack(ctx context.Context, d Delivery) error
	// Reject negatively acknowledges a delivery, requeueing it.
	Reject(ctx context.Context, d Delivery) error

	// DeclareExchange attempts to declare an exchange.
	DeclareExchange(ctx context.Context, def ExchangeDefinition) error
	// DeclareQueue attempts to declare a queue.
	DeclareQueue(ctx context.Context, def QueueDefinition) error
	// BindExchange binds the target exchange to the source exchange.
	BindExchange(ctx context.Context, target, source, routingKey string) error
	// BindQueue attempts to bind a queue to an exchange.
	BindQueue(ctx context.Context, queue, exchange, routingKey string) error
}
