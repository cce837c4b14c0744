package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eventband/amqp"
)

var _ amqp.Driver = (*Driver)(nil)

// Driver implements amqp.Driver on top of amqp091.
//
// It owns at most one connection and one channel at a time and uses no locks: a
// driver must be driven by a single goroutine.
type Driver struct {
	factory ConnectionFactory
	logger  zerolog.Logger
	metrics *Metrics

	conn Connection
	ch   amqp091Channel
	// chID identifies ch; it is bumped for every channel opened so deliveries from a
	// previous channel can be told apart.
	chID   uint64
	closed bool
}

// Option configures a Driver.
type Option func(d *Driver)

// WithLogger sets the logger used when the call context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithMetrics sets the metrics the driver records operations on.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// NewDriver creates a driver which obtains its connection from factory.
func NewDriver(factory ConnectionFactory, opts ...Option) *Driver {
	d := &Driver{
		factory: factory,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDefinedDriver creates a driver which dials def itself on first use.
func NewDefinedDriver(def amqp.ConnectionDefinition, opts ...Option) *Driver {
	return NewDriver(NewConnectionBuilder(def), opts...)
}

// Connect materialises the connection.
func (d *Driver) Connect(ctx context.Context) error {
	if d.closed {
		return newError(amqp.KindConnection, "connect", amqp.ErrDriverClosed)
	}
	if d.IsConnected() {
		return nil
	}

	_, err := d.connection()
	d.metrics.observe(amqp.KindConnection, err)
	if err != nil {
		d.log(ctx).Error().Err(err).Msg("could not connect")
		return err
	}

	d.log(ctx).Debug().Msg("connected")
	return nil
}

// IsConnected determines if the driver holds a live connection.
func (d *Driver) IsConnected() bool {
	return !d.closed && !isClosed(d.conn)
}

// IsClosed determines if the driver has been closed.
func (d *Driver) IsClosed() bool {
	return d.closed
}

// Close closes the channel and then the connection. Errors from either are logged and
// swallowed; closing an already closed driver does nothing.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}

	d.teardown(context.Background())
	d.closed = true
	return nil
}

// Publish attempts to publish a message onto an exchange with the supplied routing key.
func (d *Driver) Publish(ctx context.Context, p amqp.Publication, exchange, routingKey string) error {
	const msg = "Basic publish error"
	if p.Message == nil {
		return d.invalid(ctx, amqp.KindPublish, msg, errors.New("no message to publish"))
	}

	pub, err := toPublishing(p.Message, p.Persistent)
	if err != nil {
		return d.invalid(ctx, amqp.KindPublish, msg, err)
	}

	ch, err := d.channel()
	if err != nil {
		return d.fail(ctx, amqp.KindPublish, msg, err)
	}

	if err := ch.PublishWithContext(ctx, exchange, routingKey, p.Mandatory, p.Immediate, pub); err != nil {
		return d.fail(ctx, amqp.KindPublish, msg, err)
	}

	d.metrics.observe(amqp.KindPublish, nil)
	return nil
}

// Ack acknowledges a delivery.
func (d *Driver) Ack(ctx context.Context, del amqp.Delivery) error {
	const msg = "Basic ack error"
	if err := d.owns(del); err != nil {
		return d.invalid(ctx, amqp.KindAck, msg, err)
	}

	if err := d.ch.Ack(del.Tag, false); err != nil {
		return d.fail(ctx, amqp.KindAck, msg, err)
	}

	d.metrics.observe(amqp.KindAck, nil)
	return nil
}

// Reject negatively acknowledges a delivery and requeues it.
func (d *Driver) Reject(ctx context.Context, del amqp.Delivery) error {
	const msg = "Basic reject error"
	if err := d.owns(del); err != nil {
		return d.invalid(ctx, amqp.KindReject, msg, err)
	}

	if err := d.ch.Reject(del.Tag, true); err != nil {
		return d.fail(ctx, amqp.KindReject, msg, err)
	}

	d.metrics.observe(amqp.KindReject, nil)
	return nil
}

// DeclareExchange attempts to declare an exchange.
func (d *Driver) DeclareExchange(ctx context.Context, def amqp.ExchangeDefinition) error {
	msg := fmt.Sprintf("Exchange declare error %q", def.Name)
	return d.onChannel(ctx, amqp.KindDeclare, msg, func(ch amqp091Channel) error {
		return ch.ExchangeDeclare(def.Name, string(def.Type), def.Durable, def.AutoDelete, def.Internal, false, def.Arguments)
	})
}

// DeclareQueue attempts to declare a queue.
func (d *Driver) DeclareQueue(ctx context.Context, def amqp.QueueDefinition) error {
	msg := fmt.Sprintf("Queue declare error %q", def.Name)
	return d.onChannel(ctx, amqp.KindDeclare, msg, func(ch amqp091Channel) error {
		_, err := ch.QueueDeclare(def.Name, def.Durable, def.AutoDelete, def.Exclusive, false, def.Arguments)
		return err
	})
}

// BindExchange binds target to source so messages routed by routingKey flow source->target.
func (d *Driver) BindExchange(ctx context.Context, target, source, routingKey string) error {
	msg := fmt.Sprintf("Exchange bind error %q:%q->%q", source, routingKey, target)
	return d.onChannel(ctx, amqp.KindBind, msg, func(ch amqp091Channel) error {
		return ch.ExchangeBind(target, routingKey, source, false, nil)
	})
}

// BindQueue attempts to bind a queue to an exchange.
func (d *Driver) BindQueue(ctx context.Context, queue, exchange, routingKey string) error {
	msg := fmt.Sprintf("Queue bind error %q:%q->%q", exchange, routingKey, queue)
	return d.onChannel(ctx, amqp.KindBind, msg, func(ch amqp091Channel) error {
		return ch.QueueBind(queue, routingKey, exchange, false, nil)
	})
}

// onChannel runs fn on the current channel, classifying any failure as kind.
func (d *Driver) onChannel(ctx context.Context, kind amqp.Kind, msg string, fn func(ch amqp091Channel) error) error {
	ch, err := d.channel()
	if err != nil {
		return d.fail(ctx, kind, msg, err)
	}

	if err := fn(ch); err != nil {
		return d.fail(ctx, kind, msg, err)
	}

	d.metrics.observe(kind, nil)
	return nil
}

// owns checks del was issued by the channel currently open.
func (d *Driver) owns(del amqp.Delivery) error {
	if d.closed {
		return amqp.ErrDriverClosed
	}
	if isClosed(d.ch) || del.Channel != d.chID {
		return amqp.ErrStaleDelivery
	}
	return nil
}

// fail tears down the connection and returns cause classified as kind. The transport
// state after a failure is unknown, so the next operation starts over.
func (d *Driver) fail(ctx context.Context, kind amqp.Kind, msg string, cause error) error {
	d.teardown(ctx)
	err := newError(kind, msg, cause)
	d.metrics.observe(kind, err)
	d.log(ctx).Error().Err(err).Stringer("kind", kind).Msg("operation failed, connection closed")
	return err
}

// invalid classifies a failure which happened before anything reached the transport.
func (d *Driver) invalid(ctx context.Context, kind amqp.Kind, msg string, cause error) error {
	err := newError(kind, msg, cause)
	d.metrics.observe(kind, err)
	d.log(ctx).Warn().Err(err).Stringer("kind", kind).Msg("operation rejected")
	return err
}

// log returns the logger carried by ctx, falling back to the driver logger.
func (d *Driver) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &d.logger
}
