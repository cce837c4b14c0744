// Package amqp defines the broker-agnostic contract an event bus uses to talk AMQP 0-9-1.
// The event bus only ever sees the types in this package: messages, deliveries, topology
// definitions, the Driver interface and the classified DriverError. Client library types
// never cross this boundary.
//
// A Driver owns one connection and at most one channel at a time. It is driven by a single
// worker; none of the implementations use internal locking. Consume is the only blocking
// operation and runs a wait/dispatch loop on the calling goroutine until the Handler asks
// it to stop, the per-wait timeout elapses with nothing pending, or the context is cancelled.
//
// The only implementation provided at the time of writing is:
// - rabbitmq (github.com/eventband/amqp/rabbitmq), built on github.com/rabbitmq/amqp091-go
package amqp
