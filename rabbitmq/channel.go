package rabbitmq

import (
	"context"

	"github.com/eventband/amqp"
)

// connection returns the live connection, asking the factory for one if there is none.
// A closed connection is dropped together with its channel and never reused.
func (d *Driver) connection() (Connection, error) {
	if !isClosed(d.conn) {
		return d.conn, nil
	}

	d.ch = nil
	d.conn = nil

	conn, err := d.factory.Connection()
	if err != nil {
		if amqp.IsKind(err, amqp.KindConfiguration) || amqp.IsKind(err, amqp.KindConnection) {
			return nil, err
		}
		return nil, newError(amqp.KindConnection, "could not obtain connection", err)
	}

	if isClosed(conn) {
		return nil, &amqp.DriverError{
			Kind:    amqp.KindConnection,
			Message: "supplied connection is not usable",
			Err:     amqp.ErrConnectionClosed,
		}
	}

	d.conn = conn
	return conn, nil
}

// channel returns the open channel, lazily opening one.
func (d *Driver) channel() (amqp091Channel, error) {
	if d.closed {
		return nil, amqp.ErrDriverClosed
	}

	conn, err := d.connection()
	if err != nil {
		return nil, err
	}

	if !isClosed(d.ch) {
		return d.ch, nil
	}

	ch, err := newChannel(conn)
	if err != nil {
		return nil, err
	}

	d.ch = ch
	d.chID++
	return ch, nil
}

// closeChannel closes and forgets the current channel.
func (d *Driver) closeChannel() error {
	ch := d.ch
	d.ch = nil
	if ch == nil {
		return nil
	}
	return ch.Close()
}

// teardown closes channel and connection, swallowing errors; a close failure on an
// already broken transport must not hide the close itself.
func (d *Driver) teardown(ctx context.Context) {
	l := d.log(ctx)
	logError(l, d.closeChannel(), "could not close channel")

	conn := d.conn
	d.conn = nil
	if conn != nil {
		logError(l, conn.Close(), "could not close connection")
	}
	l.Debug().Msg("channel and connection closed")
}
