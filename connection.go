package amqp

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultPort is the IANA assigned AMQP port.
const DefaultPort = 5672

// ConnectionDefinition describes how to reach a broker. It is used at most once to
// materialise a connection and is never mutated afterwards.
type ConnectionDefinition struct {
	Host        string
	Port        int
	User        string
	Password    string
	VirtualHost string

	// Insist is kept for definitions shared with 0-8 era clients; 0-9-1 brokers ignore it.
	Insist bool
	// LoginMethod and LoginResponse select a SASL mechanism other than PLAIN.
	LoginMethod   string
	LoginResponse string
	Locale        string

	ConnectionTimeout time.Duration
	// ReadWriteTimeout bounds socket reads and writes until the AMQP handshake completes,
	// heartbeats take over afterwards.
	ReadWriteTimeout time.Duration
	// TLS enables amqps when non-nil.
	TLS       *tls.Config
	Keepalive bool
	Heartbeat time.Duration
}

// Address returns the host:port pair to dial.
func (d ConnectionDefinition) Address() string {
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// String renders the definition for logs; the password is never included.
func (d ConnectionDefinition) String() string {
	scheme := "amqp"
	if d.TLS != nil {
		scheme = "amqps"
	}
	vhost := d.VirtualHost
	if vhost == "" {
		vhost = "/"
	}
	return fmt.Sprintf("%s://%s@%s vhost=%s", scheme, d.User, d.Address(), vhost)
}

// Error represents a protocol error reported by the broker or the client library.
type Error interface {
	error
	// Code returns the reply code defined by the AMQP protocol
	Code() int
	// Reason returns the description of the error
	Reason() string
	// Recover returns true when this error can be recovered by retrying later or with different parameters
	Recover() bool
	// FromServer returns true when initiated from the server, false when from the client library
	FromServer() bool
}
