package rabbitmq

import (
	"net"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/eventband/amqp"
)

// ConnectionFactory supplies the connection a Driver works on.
type ConnectionFactory interface {
	Connection() (Connection, error)
}

// ConnectionFactoryFunc adapts a function to the ConnectionFactory interface.
type ConnectionFactoryFunc func() (Connection, error)

// Connection calls f().
func (f ConnectionFactoryFunc) Connection() (Connection, error) {
	return f()
}

// ConnectionBuilder supplies either an explicitly set connection or one built from a
// definition on first use.
//
// The builder is not safe for concurrent first use; the first caller wins and later
// callers receive the cached connection. A connection built from the definition is
// dialled again once it has closed.
type ConnectionBuilder struct {
	definition *amqp.ConnectionDefinition
	conn       Connection
}

// NewConnectionBuilder returns a builder which dials def lazily.
func NewConnectionBuilder(def amqp.ConnectionDefinition) *ConnectionBuilder {
	return (&ConnectionBuilder{}).SetDefinition(def)
}

// SetDefinition sets the definition used to build a connection.
func (b *ConnectionBuilder) SetDefinition(def amqp.ConnectionDefinition) *ConnectionBuilder {
	b.definition = &def
	return b
}

// Definition returns the definition, if one was set.
func (b *ConnectionBuilder) Definition() (amqp.ConnectionDefinition, bool) {
	if b.definition == nil {
		return amqp.ConnectionDefinition{}, false
	}
	return *b.definition, true
}

// SetConnection supplies a pre-built connection.
func (b *ConnectionBuilder) SetConnection(conn Connection) *ConnectionBuilder {
	b.conn = conn
	return b
}

// Connection returns the cached connection, building it from the definition if needed.
func (b *ConnectionBuilder) Connection() (Connection, error) {
	if b.conn != nil && (b.definition == nil || !b.conn.IsClosed()) {
		return b.conn, nil
	}

	if b.definition == nil {
		return nil, &amqp.DriverError{
			Kind:    amqp.KindConfiguration,
			Message: "no connection source",
			Err:     amqp.ErrNotConfigured,
		}
	}

	conn, err := DialDefinition(*b.definition)
	if err != nil {
		return nil, err
	}
	b.conn = conn
	return conn, nil
}

// DialDefinition connects to the broker described by def.
func DialDefinition(def amqp.ConnectionDefinition) (Connection, error) {
	conn, err := dialConfig(definitionURL(def), definitionConfig(def))
	if err != nil {
		return nil, newError(amqp.KindConnection, "could not connect to "+def.String(), err)
	}
	return conn, nil
}

// definitionURL renders def as an amqp:// or amqps:// url.
func definitionURL(def amqp.ConnectionDefinition) string {
	uri := amqp091.URI{
		Scheme:   "amqp",
		Host:     def.Host,
		Port:     def.Port,
		Username: def.User,
		Password: def.Password,
		Vhost:    def.VirtualHost,
	}
	if def.TLS != nil {
		uri.Scheme = "amqps"
	}
	if uri.Port == 0 {
		uri.Port = amqp.DefaultPort
		if def.TLS != nil {
			uri.Port = 5671
		}
	}
	if uri.Vhost == "" {
		uri.Vhost = "/"
	}
	return uri.String()
}

// definitionConfig maps the tuning fields of def onto an amqp091.Config.
func definitionConfig(def amqp.ConnectionDefinition) amqp091.Config {
	vhost := def.VirtualHost
	if vhost == "" {
		vhost = "/"
	}

	c := amqp091.Config{
		SASL:            []amqp091.Authentication{definitionAuth(def)},
		Vhost:           vhost,
		Heartbeat:       def.Heartbeat,
		TLSClientConfig: def.TLS,
		Locale:          def.Locale,
		Dial:            definitionDialer(def),
	}
	return c
}

// definitionAuth picks PLAIN unless the definition names another mechanism.
func definitionAuth(def amqp.ConnectionDefinition) amqp091.Authentication {
	switch strings.ToUpper(def.LoginMethod) {
	case "", "PLAIN":
		return &amqp091.PlainAuth{Username: def.User, Password: def.Password}
	case "AMQPLAIN":
		return &amqp091.AMQPlainAuth{Username: def.User, Password: def.Password}
	default:
		return &loginAuth{mechanism: def.LoginMethod, response: def.LoginResponse}
	}
}

// loginAuth is a SASL mechanism with a pre-computed response.
type loginAuth struct {
	mechanism string
	response  string
}

func (a *loginAuth) Mechanism() string { return a.mechanism }
func (a *loginAuth) Response() string  { return a.response }

// definitionDialer returns the socket dialer for def. The read/write deadline is
// cleared by amqp091 once the handshake completes.
func definitionDialer(def amqp.ConnectionDefinition) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: def.ConnectionTimeout, KeepAlive: -1}
		if def.Keepalive {
			d.KeepAlive = 0 // platform default interval.
		}

		conn, err := d.Dial(network, addr)
		if err != nil {
			return nil, err
		}

		deadline := def.ReadWriteTimeout
		if deadline == 0 {
			deadline = def.ConnectionTimeout
		}
		if deadline > 0 {
			if err := conn.SetDeadline(time.Now().Add(deadline)); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}
