package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/eventband/amqp"
)

// waitState is the outcome of waiting for consumer activity.
type waitState int

const (
	waitReady       waitState = iota // a delivery is ready to dispatch.
	waitTimeout                      // the wait timeout elapsed with nothing pending.
	waitInterrupted                  // the consume context was cancelled.
	waitFailed                       // the delivery stream broke.
)

// waitResult is the tagged result of consumer.wait; delivery is only set when ready
// and err only when failed.
type waitResult struct {
	state    waitState
	delivery amqp091.Delivery
	err      error
}

// consumer is a registered consumer on a channel.
type consumer struct {
	tag        string
	deliveries <-chan amqp091.Delivery
	closes     <-chan *amqp091.Error
}

// wait blocks until a delivery arrives, the stream fails, ctx is done or timeout
// elapses. A timeout of zero or less waits forever.
func (c *consumer) wait(ctx context.Context, timeout time.Duration) waitResult {
	// select picks randomly among ready cases; pending deliveries must not win over a
	// cancelled context.
	if err := ctx.Err(); err != nil {
		return waitResult{state: waitInterrupted, err: err}
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case d, ok := <-c.deliveries:
		if !ok {
			return waitResult{state: waitFailed, err: c.closeReason()}
		}
		return waitResult{state: waitReady, delivery: d}
	case e, ok := <-c.closes:
		if ok && e != nil {
			return waitResult{state: waitFailed, err: e}
		}
		return waitResult{state: waitFailed, err: amqp.ErrConnectionClosed}
	case <-ctx.Done():
		return waitResult{state: waitInterrupted, err: ctx.Err()}
	case <-expired:
		return waitResult{state: waitTimeout}
	}
}

// closeReason explains why the delivery stream ended. amqp091 closes the stream both
// on channel shutdown and on a server side cancel.
func (c *consumer) closeReason() error {
	select {
	case e, ok := <-c.closes:
		if ok && e != nil {
			return e
		}
		return amqp.ErrConnectionClosed
	default:
		return amqp.ErrConsumerCancelled
	}
}

// Consume registers a consumer on queue and dispatches deliveries to h.
//
// The loop stops without error when h returns false, when a wait of timeout passes with
// nothing pending, or when ctx is cancelled. The consumer is then cancelled and the
// channel closed. Any other failure tears down the connection.
func (d *Driver) Consume(ctx context.Context, queue string, h amqp.Handler, timeout time.Duration) error {
	const msg = "Basic consume error"

	ch, err := d.channel()
	if err != nil {
		return d.fail(ctx, amqp.KindConsume, msg, err)
	}

	c := &consumer{
		tag:    newConsumerTag(),
		closes: ch.NotifyClose(make(chan *amqp091.Error, 1)),
	}
	c.deliveries, err = ch.Consume(queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return d.fail(ctx, amqp.KindConsume, msg, err)
	}

	l := d.log(ctx).With().Str("queue", queue).Str("consumer", c.tag).Logger()
	l.Debug().Dur("timeout", timeout).Msg("consuming")

	for active := true; active; {
		res := c.wait(ctx, timeout)
		switch res.state {
		case waitTimeout:
			l.Debug().Msg("wait timed out, stopping consume")
			active = false
		case waitInterrupted:
			l.Debug().Err(res.err).Msg("consume interrupted")
			active = false
		case waitFailed:
			return d.fail(ctx, amqp.KindConsume, msg, res.err)
		case waitReady:
			del := toDelivery(&res.delivery, queue, d.chID)
			d.metrics.delivered(queue)

			active, err = d.dispatch(ctx, h, del)
			if err != nil {
				return d.fail(ctx, amqp.KindConsume, msg, err)
			}
			if d.closed {
				// the handler closed the driver, there is nothing left to cancel.
				return nil
			}
			if d.ch != ch {
				return d.fail(ctx, amqp.KindConsume, msg, amqp.ErrConnectionClosed)
			}
		}
	}

	if err := ch.Cancel(c.tag, false); err != nil {
		return d.fail(ctx, amqp.KindConsume, msg, err)
	}
	if err := d.closeChannel(); err != nil {
		return d.fail(ctx, amqp.KindConsume, msg, err)
	}

	l.Debug().Msg("consumer cancelled")
	d.metrics.observe(amqp.KindConsume, nil)
	return nil
}

// dispatch hands del to h, converting a panic into an error.
func (d *Driver) dispatch(ctx context.Context, h amqp.Handler, del amqp.Delivery) (active bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", amqp.ErrHandlerPanic, r)
		}
	}()

	return h.Handle(ctx, del), nil
}
