package amqp

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// Connector is anything which can (re)establish its transport, typically a Driver.
type Connector interface {
	Connect(ctx context.Context) error
}

// DefaultBackOff generates the policy used by callers which have no opinion:
// exponential, giving up after three retries.
func DefaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
}

// ConnectWithRetry calls c.Connect until it succeeds, b gives up or ctx is done.
// Configuration errors and closed drivers are never retried.
func ConnectWithRetry(ctx context.Context, c Connector, b backoff.BackOff) error {
	return backoff.Retry(func() error {
		err := c.Connect(ctx)
		if IsKind(err, KindConfiguration) || errors.Is(err, ErrDriverClosed) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
