package rabbitmq

import (
	"context"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type errorFunc func() error

type mockAMQPChannelHandlers struct {
	Close           errorFunc
	IsClosed        func() bool
	Publish         func(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume         func(queue, consumer string, autoAck, exclusive, noLocal, noWait bool) (<-chan amqp091.Delivery, error)
	Cancel          func(consumer string) error
	Ack             func(tag uint64) error
	Reject          func(tag uint64, requeue bool) error
	ExchangeDeclare func(name, kind string, durable, autoDelete, internal bool) error
	ExchangeBind    func(destination, key, source string) error
	QueueDeclare    func(name string, durable, autoDelete, exclusive bool) (amqp091.Queue, error)
	QueueBind       func(name, key, exchange string) error
	NotifyClose     func(ch chan *amqp091.Error) chan *amqp091.Error
}

// newDefaultAMQPChannelHandlers generates a default set of handlers.
func newDefaultAMQPChannelHandlers() mockAMQPChannelHandlers {
	return mockAMQPChannelHandlers{
		Close:    func() error { return nil },
		IsClosed: func() bool { return false },
		Publish: func(_, _ string, _, _ bool, _ amqp091.Publishing) error {
			return nil
		},
		Consume: func(_, _ string, _, _, _, _ bool) (<-chan amqp091.Delivery, error) {
			return make(chan amqp091.Delivery), nil
		},
		Cancel:          func(_ string) error { return nil },
		Ack:             func(_ uint64) error { return nil },
		Reject:          func(_ uint64, _ bool) error { return nil },
		ExchangeDeclare: func(_, _ string, _, _, _ bool) error { return nil },
		ExchangeBind:    func(_, _, _ string) error { return nil },
		QueueDeclare: func(name string, _, _, _ bool) (amqp091.Queue, error) {
			return amqp091.Queue{Name: name}, nil
		},
		QueueBind:   func(_, _, _ string) error { return nil },
		NotifyClose: func(ch chan *amqp091.Error) chan *amqp091.Error { return ch },
	}
}

// mockAMQPChannel records how it was used; once closed it reports closed.
type mockAMQPChannel struct {
	h       mockAMQPChannelHandlers
	closed  bool
	closes  int
	cancels []string
}

func (m *mockAMQPChannel) Close() error {
	m.closed = true
	m.closes++
	return m.h.Close()
}
func (m *mockAMQPChannel) IsClosed() bool {
	return m.closed || m.h.IsClosed()
}
func (m *mockAMQPChannel) PublishWithContext(
	_ context.Context,
	exchange, key string,
	mandatory, immediate bool,
	msg amqp091.Publishing,
) error {
	return m.h.Publish(exchange, key, mandatory, immediate, msg)
}
func (m *mockAMQPChannel) Consume(
	queue, consumer string,
	autoAck, exclusive, noLocal, noWait bool,
	_ amqp091.Table,
) (<-chan amqp091.Delivery, error) {
	return m.h.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait)
}
func (m *mockAMQPChannel) Cancel(consumer string, _ bool) error {
	m.cancels = append(m.cancels, consumer)
	return m.h.Cancel(consumer)
}
func (m *mockAMQPChannel) Ack(tag uint64, _ bool) error {
	return m.h.Ack(tag)
}
func (m *mockAMQPChannel) Reject(tag uint64, requeue bool) error {
	return m.h.Reject(tag, requeue)
}
func (m *mockAMQPChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, _ bool, _ amqp091.Table) error {
	return m.h.ExchangeDeclare(name, kind, durable, autoDelete, internal)
}
func (m *mockAMQPChannel) ExchangeBind(destination, key, source string, _ bool, _ amqp091.Table) error {
	return m.h.ExchangeBind(destination, key, source)
}
func (m *mockAMQPChannel) QueueDeclare(name string, durable, autoDelete, exclusive, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	return m.h.QueueDeclare(name, durable, autoDelete, exclusive)
}
func (m *mockAMQPChannel) QueueBind(name, key, exchange string, _ bool, _ amqp091.Table) error {
	return m.h.QueueBind(name, key, exchange)
}
func (m *mockAMQPChannel) NotifyClose(rcv chan *amqp091.Error) chan *amqp091.Error {
	return m.h.NotifyClose(rcv)
}

type mockAMQPConnectionHandlers struct {
	Close    errorFunc
	IsClosed func() bool
}

// newDefaultAMQPConnectionHandlers generates a default set of handlers.
func newDefaultAMQPConnectionHandlers() mockAMQPConnectionHandlers {
	return mockAMQPConnectionHandlers{
		Close:    func() error { return nil },
		IsClosed: func() bool { return false },
	}
}

// mockAMQPConnection reports closed once Close has been called.
type mockAMQPConnection struct {
	h      mockAMQPConnectionHandlers
	closed bool
	closes int
}

func (m *mockAMQPConnection) Close() error {
	m.closed = true
	m.closes++
	return m.h.Close()
}
func (m *mockAMQPConnection) IsClosed() bool {
	return m.closed || m.h.IsClosed()
}
func (m *mockAMQPConnection) Channel() (*amqp091.Channel, error) {
	panic("channels are opened through newChannel in tests")
}

func newMockConnection() *mockAMQPConnection {
	return &mockAMQPConnection{h: newDefaultAMQPConnectionHandlers()}
}

func newMockChannel(setup func(h *mockAMQPChannelHandlers)) *mockAMQPChannel {
	h := newDefaultAMQPChannelHandlers()
	if setup != nil {
		setup(&h)
	}
	return &mockAMQPChannel{h: h}
}

// testDriver wires a driver to conn, handing out chans in order whenever a channel is
// opened. Opening more channels than supplied fails the test.
func testDriver(t *testing.T, conn Connection, chans ...*mockAMQPChannel) *Driver {
	t.Helper()

	original := newChannel
	t.Cleanup(func() { newChannel = original })

	opened := 0
	newChannel = func(Connection) (amqp091Channel, error) {
		if opened >= len(chans) {
			t.Fatalf("unexpected channel open #%d", opened+1)
		}
		ch := chans[opened]
		opened++
		return ch, nil
	}

	factory := ConnectionFactoryFunc(func() (Connection, error) {
		return conn, nil
	})
	return NewDriver(factory, WithLogger(zerolog.Nop()))
}
