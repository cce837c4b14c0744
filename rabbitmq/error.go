package rabbitmq

import (
	"errors"

	"github.com/rabbitmq/amqp091-go"

	"github.com/eventband/amqp"
)

// amqpError represents a wrapped amqp091.Error
type amqpError struct {
	err *amqp091.Error
}

func (a *amqpError) Error() string {
	return a.err.Error()
}

// Code returns the AMQP error code.
func (a *amqpError) Code() int {
	return a.err.Code
}

// Reason returns the error description
func (a *amqpError) Reason() string {
	return a.err.Reason
}

// Recover whether the error is recoverable.
func (a *amqpError) Recover() bool {
	return a.err.Recover
}

// FromServer whether the close originated from the client or server.
func (a *amqpError) FromServer() bool {
	return a.err.Server
}

// convertError replaces amqp091 errors with their amqp.Error counterpart so the
// library type never reaches the caller.
func convertError(err error) error {
	var e *amqp091.Error
	if errors.As(err, &e) {
		return &amqpError{e}
	}
	return err
}

// newError builds a classified driver error around cause.
func newError(kind amqp.Kind, msg string, cause error) *amqp.DriverError {
	return &amqp.DriverError{Kind: kind, Message: msg, Err: convertError(cause)}
}
