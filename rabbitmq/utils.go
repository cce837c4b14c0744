package rabbitmq

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// closer represents any stream which can be reported as closed
// this is either a channel or the overall connection.
type closer interface {
	IsClosed() bool
}

// isClosed helper function to check whether a connection or channel is closed.
func isClosed(c closer) bool {
	return c == nil || c.IsClosed()
}

// logError helper function to log a swallowed error.
func logError(l *zerolog.Logger, err error, msg string) {
	if err == nil {
		return
	}

	l.Debug().Err(err).Msg(msg)
}

// consumerTagPrefix prefixes generated consumer tags.
const consumerTagPrefix = "eventband-"

// newConsumerTag generates a unique consumer tag; amqp091 does not report tags it
// generates itself, and the tag is needed to cancel.
var newConsumerTag = func() string {
	return consumerTagPrefix + uuid.NewString()
}
