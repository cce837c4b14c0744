package rabbitmq

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventband/amqp"
)

// operation results.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics counts driver operations. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

// NewMetrics creates the driver counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventband",
			Subsystem: "amqp",
			Name:      "operations_total",
			Help:      "Driver operations by kind and result.",
		}, []string{"operation", "result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventband",
			Subsystem: "amqp",
			Name:      "deliveries_total",
			Help:      "Deliveries dispatched to handlers by queue.",
		}, []string{"queue"}),
	}
	reg.MustRegister(m.operations, m.deliveries)
	return m
}

func (m *Metrics) observe(kind amqp.Kind, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.operations.WithLabelValues(kind.String(), result).Inc()
}

func (m *Metrics) delivered(queue string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(queue).Inc()
}
