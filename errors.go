package amqp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when neither a connection nor a definition was supplied.
	ErrNotConfigured = errors.New("amqp: neither connection nor definition was set")
	// ErrDriverClosed is returned by operations on a driver after Close.
	ErrDriverClosed = errors.New("amqp: driver is closed")
	// ErrConnectionClosed is returned when a supplied connection is no longer usable.
	ErrConnectionClosed = errors.New("amqp: connection is closed")
	// ErrStaleDelivery is returned when acknowledging a delivery whose channel has closed.
	ErrStaleDelivery = errors.New("amqp: delivery tag belongs to a closed channel")
	// ErrConsumerCancelled is returned when the delivery stream ends without a close reason.
	ErrConsumerCancelled = errors.New("amqp: consumer cancelled")
	// ErrHandlerPanic is returned when a Handler panics during a consume.
	ErrHandlerPanic = errors.New("amqp: handler panicked")
)

// Kind classifies a driver failure.
type Kind int

const (
	// KindConfiguration the driver has no usable connection source.
	KindConfiguration Kind = iota + 1
	// KindConnection a connection could not be established or was lost.
	KindConnection
	// KindPublish a message could not be published.
	KindPublish
	// KindConsume consuming from a queue failed.
	KindConsume
	// KindAck a delivery could not be acknowledged.
	KindAck
	// KindReject a delivery could not be rejected.
	KindReject
	// KindDeclare an exchange or queue could not be declared.
	KindDeclare
	// KindBind an exchange or queue could not be bound.
	KindBind
)

var kindNames = map[Kind]string{
	KindConfiguration: "configuration",
	KindConnection:    "connection",
	KindPublish:       "publish",
	KindConsume:       "consume",
	KindAck:           "ack",
	KindReject:        "reject",
	KindDeclare:       "declare",
	KindBind:          "bind",
}

// String returns the lower case name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DriverError is the only error type returned by a Driver. Err holds the underlying
// cause; protocol failures are exposed as an Error.
type DriverError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error renders the kind, message and cause.
func (e *DriverError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("amqp %s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("amqp %s error: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsKind reports whether any DriverError in err's chain is of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		var de *DriverError
		if !errors.As(err, &de) {
			return false
		}
		if de.Kind == k {
			return true
		}
		err = de.Err
	}
	return false
}
