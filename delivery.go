package amqp

import "context"

// Delivery is a message received from a queue.
//
// Tag is only meaningful on the channel identified by Channel. Acknowledging a delivery
// after that channel closed fails with ErrStaleDelivery.
type Delivery struct {
	Message     Message
	Tag         uint64
	Channel     uint64
	Exchange    string
	Queue       string
	RoutingKey  string
	Redelivered bool
}

// Handler processes deliveries during a consume. Returning false stops the consume after
// the current delivery.
type Handler interface {
	Handle(ctx context.Context, d Delivery) bool
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, d Delivery) bool

// Handle calls f(ctx, d).
func (f HandlerFunc) Handle(ctx context.Context, d Delivery) bool {
	return f(ctx, d)
}
