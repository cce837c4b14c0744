package amqp

import (
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Table is the header table carried by a message.
type Table = map[string]any

// Property names one of the optional message properties.
type Property string

// The optional properties a Message may carry.
const (
	PropertyHeaders         Property = "headers"
	PropertyContentType     Property = "contentType"
	PropertyContentEncoding Property = "contentEncoding"
	PropertyMessageID       Property = "messageId"
	PropertyAppID           Property = "appId"
	PropertyUserID          Property = "userId"
	PropertyPriority        Property = "priority"
	PropertyTimestamp       Property = "timestamp"
	PropertyExpiration      Property = "expiration"
	PropertyType            Property = "type"
	PropertyReplyTo         Property = "replyTo"
)

// Properties lists every optional property in a stable order.
var Properties = []Property{
	PropertyHeaders,
	PropertyContentType,
	PropertyContentEncoding,
	PropertyMessageID,
	PropertyAppID,
	PropertyUserID,
	PropertyPriority,
	PropertyTimestamp,
	PropertyExpiration,
	PropertyType,
	PropertyReplyTo,
}

// Message represents an AMQP message as seen by the event bus.
//
// Zero values do not survive a trip through the broker: amqp091 only flags a property
// on the wire when its field is non-zero, so a priority of 0, an empty string, a zero
// timestamp or an empty header table come back absent.
type Message interface {
	// Body returns the raw message payload.
	Body() []byte
	// Property returns the value of an optional property and whether it is set.
	// Values are typed: Table for headers, uint8 for priority, time.Time for timestamp
	// and string for everything else.
	Property(p Property) (any, bool)
}

// CustomMessage is a Message built from a body and a sparse set of properties.
type CustomMessage struct {
	body  []byte
	props map[Property]any
}

// MessageOption sets a property on a CustomMessage.
type MessageOption func(m *CustomMessage)

// NewMessage builds a message with the supplied body. Properties not set through an
// option are absent.
func NewMessage(body []byte, opts ...MessageOption) *CustomMessage {
	m := &CustomMessage{body: body, props: make(map[Property]any)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MessageFromProperties builds a message from a property map, rejecting unknown
// properties and values of the wrong type.
func MessageFromProperties(body []byte, props map[Property]any) (*CustomMessage, error) {
	m := NewMessage(body)
	for p, v := range props {
		if err := checkPropertyType(p, v); err != nil {
			return nil, err
		}
		m.props[p] = v
	}
	return m, nil
}

func checkPropertyType(p Property, v any) error {
	var ok bool
	switch p {
	case PropertyHeaders:
		_, ok = v.(Table)
	case PropertyPriority:
		_, ok = v.(uint8)
	case PropertyTimestamp:
		_, ok = v.(time.Time)
	case PropertyContentType, PropertyContentEncoding, PropertyMessageID, PropertyAppID,
		PropertyUserID, PropertyExpiration, PropertyType, PropertyReplyTo:
		_, ok = v.(string)
	default:
		return fmt.Errorf("amqp: unknown message property %q", p)
	}
	if !ok {
		return fmt.Errorf("amqp: invalid value of type %T for message property %q", v, p)
	}
	return nil
}

// Body returns the message payload.
func (m *CustomMessage) Body() []byte { return m.body }

// Property returns the value of p and whether it is set.
func (m *CustomMessage) Property(p Property) (any, bool) {
	v, ok := m.props[p]
	return v, ok
}

// Headers returns the application headers.
func (m *CustomMessage) Headers() (Table, bool) {
	v, ok := m.props[PropertyHeaders].(Table)
	return v, ok
}

// ContentType returns the MIME content type.
func (m *CustomMessage) ContentType() (string, bool) { return m.stringProperty(PropertyContentType) }

// ContentEncoding returns the MIME content encoding.
func (m *CustomMessage) ContentEncoding() (string, bool) {
	return m.stringProperty(PropertyContentEncoding)
}

// MessageID returns the application message identifier.
func (m *CustomMessage) MessageID() (string, bool) { return m.stringProperty(PropertyMessageID) }

// AppID returns the creating application id.
func (m *CustomMessage) AppID() (string, bool) { return m.stringProperty(PropertyAppID) }

// UserID returns the creating user id.
func (m *CustomMessage) UserID() (string, bool) { return m.stringProperty(PropertyUserID) }

// Priority returns the message priority.
func (m *CustomMessage) Priority() (uint8, bool) {
	v, ok := m.props[PropertyPriority].(uint8)
	return v, ok
}

// Timestamp returns the message timestamp.
func (m *CustomMessage) Timestamp() (time.Time, bool) {
	v, ok := m.props[PropertyTimestamp].(time.Time)
	return v, ok
}

// Expiration returns the message expiration.
func (m *CustomMessage) Expiration() (string, bool) { return m.stringProperty(PropertyExpiration) }

// Type returns the message type name.
func (m *CustomMessage) Type() (string, bool) { return m.stringProperty(PropertyType) }

// ReplyTo returns the address to reply to.
func (m *CustomMessage) ReplyTo() (string, bool) { return m.stringProperty(PropertyReplyTo) }

func (m *CustomMessage) stringProperty(p Property) (string, bool) {
	v, ok := m.props[p].(string)
	return v, ok
}

// WithHeaders sets the application headers.
func WithHeaders(h Table) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyHeaders] = h }
}

// WithContentType sets the content type.
func WithContentType(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyContentType] = v }
}

// WithContentEncoding sets the content encoding.
func WithContentEncoding(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyContentEncoding] = v }
}

// WithMessageID sets the message id.
func WithMessageID(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyMessageID] = v }
}

// WithAppID sets the app id.
func WithAppID(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyAppID] = v }
}

// WithUserID sets the user id.
func WithUserID(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyUserID] = v }
}

// WithPriority sets the priority.
func WithPriority(v uint8) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyPriority] = v }
}

// WithTimestamp sets the timestamp.
func WithTimestamp(v time.Time) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyTimestamp] = v }
}

// WithExpiration sets the expiration.
func WithExpiration(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyExpiration] = v }
}

// WithType sets the type.
func WithType(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyType] = v }
}

// WithReplyTo sets the reply-to address.
func WithReplyTo(v string) MessageOption {
	return func(m *CustomMessage) { m.props[PropertyReplyTo] = v }
}

// WithDetectedContentType sets the content type by sniffing the body.
// It must be applied after the body is known, i.e. as an option of NewMessage.
func WithDetectedContentType() MessageOption {
	return func(m *CustomMessage) {
		m.props[PropertyContentType] = mimetype.Detect(m.body).String()
	}
}
