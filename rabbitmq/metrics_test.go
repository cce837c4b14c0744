package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventband/amqp"
)

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe(amqp.KindPublish, nil)
		m.delivered("orders")
	})
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observe(amqp.KindPublish, nil)
	m.observe(amqp.KindPublish, nil)
	m.observe(amqp.KindPublish, errors.New("boom"))
	m.delivered("orders")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("publish", resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("publish", resultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("orders")))

	n, err := testutil.GatherAndCount(reg, "eventband_amqp_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_Driver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	ch := newMockChannel(func(h *mockAMQPChannelHandlers) {
		h.Publish = func(_, _ string, _, _ bool, _ amqp091.Publishing) error {
			return errors.New("net: i/o timeout")
		}
	})
	d := testDriver(t, newMockConnection(), ch)
	WithMetrics(m)(d)

	ctx := context.Background()
	require.NoError(t, d.DeclareQueue(ctx, amqp.QueueDefinition{Name: "orders"}))
	err := d.Publish(ctx, amqp.Publication{Message: amqp.NewMessage([]byte("x"))}, "", "orders")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("declare", resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("publish", resultError)))
	assert.Zero(t, testutil.ToFloat64(m.operations.WithLabelValues("publish", resultSuccess)))
}
