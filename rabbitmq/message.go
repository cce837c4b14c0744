package rabbitmq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/eventband/amqp"
)

// property maps one optional domain property onto its amqp091 field. amqp091 only sets
// the property flag on the wire for non-zero fields, so a zero field means absent.
type property struct {
	name amqp.Property
	wire string
	get  func(d *amqp091.Delivery) (any, bool)
	set  func(p *amqp091.Publishing, v any) bool
}

// properties is the fixed domain to wire property table.
var properties = []property{
	{
		name: amqp.PropertyHeaders,
		wire: "application_headers",
		get: func(d *amqp091.Delivery) (any, bool) {
			return amqp.Table(d.Headers), len(d.Headers) > 0
		},
		set: func(p *amqp091.Publishing, v any) bool {
			h, ok := v.(amqp.Table)
			p.Headers = amqp091.Table(h)
			return ok
		},
	},
	stringProperty(amqp.PropertyContentType, "content_type",
		func(d *amqp091.Delivery) string { return d.ContentType },
		func(p *amqp091.Publishing, v string) { p.ContentType = v }),
	stringProperty(amqp.PropertyContentEncoding, "content_encoding",
		func(d *amqp091.Delivery) string { return d.ContentEncoding },
		func(p *amqp091.Publishing, v string) { p.ContentEncoding = v }),
	stringProperty(amqp.PropertyMessageID, "message_id",
		func(d *amqp091.Delivery) string { return d.MessageId },
		func(p *amqp091.Publishing, v string) { p.MessageId = v }),
	stringProperty(amqp.PropertyAppID, "app_id",
		func(d *amqp091.Delivery) string { return d.AppId },
		func(p *amqp091.Publishing, v string) { p.AppId = v }),
	stringProperty(amqp.PropertyUserID, "user_id",
		func(d *amqp091.Delivery) string { return d.UserId },
		func(p *amqp091.Publishing, v string) { p.UserId = v }),
	{
		name: amqp.PropertyPriority,
		wire: "priority",
		get: func(d *amqp091.Delivery) (any, bool) {
			return d.Priority, d.Priority > 0
		},
		set: func(p *amqp091.Publishing, v any) bool {
			prio, ok := v.(uint8)
			p.Priority = prio
			return ok
		},
	},
	{
		name: amqp.PropertyTimestamp,
		wire: "timestamp",
		get: func(d *amqp091.Delivery) (any, bool) {
			return d.Timestamp, !d.Timestamp.IsZero()
		},
		set: func(p *amqp091.Publishing, v any) bool {
			ts, ok := v.(time.Time)
			p.Timestamp = ts
			return ok
		},
	},
	stringProperty(amqp.PropertyExpiration, "expiration",
		func(d *amqp091.Delivery) string { return d.Expiration },
		func(p *amqp091.Publishing, v string) { p.Expiration = v }),
	stringProperty(amqp.PropertyType, "type",
		func(d *amqp091.Delivery) string { return d.Type },
		func(p *amqp091.Publishing, v string) { p.Type = v }),
	stringProperty(amqp.PropertyReplyTo, "reply_to",
		func(d *amqp091.Delivery) string { return d.ReplyTo },
		func(p *amqp091.Publishing, v string) { p.ReplyTo = v }),
}

func stringProperty(
	name amqp.Property,
	wire string,
	field func(d *amqp091.Delivery) string,
	assign func(p *amqp091.Publishing, v string),
) property {
	return property{
		name: name,
		wire: wire,
		get: func(d *amqp091.Delivery) (any, bool) {
			v := field(d)
			return v, v != ""
		},
		set: func(p *amqp091.Publishing, v any) bool {
			s, ok := v.(string)
			assign(p, s)
			return ok
		},
	}
}

// toMessage converts an inbound delivery into a domain message, copying only the
// properties the delivery carries.
func toMessage(d *amqp091.Delivery) *amqp.CustomMessage {
	props := make(map[amqp.Property]any)
	for _, p := range properties {
		if v, ok := p.get(d); ok {
			props[p.name] = v
		}
	}

	// the getters only produce the value types the domain message accepts.
	m, _ := amqp.MessageFromProperties(d.Body, props)
	return m
}

// toPublishing converts a domain message into an amqp091 publishing, copying only the
// properties the message sets.
func toPublishing(m amqp.Message, persistent bool) (amqp091.Publishing, error) {
	pub := amqp091.Publishing{Body: m.Body()}
	for _, p := range properties {
		v, ok := m.Property(p.name)
		if !ok || v == nil {
			continue
		}
		if !p.set(&pub, v) {
			return amqp091.Publishing{}, fmt.Errorf("invalid value of type %T for property %s", v, p.wire)
		}
	}

	pub.DeliveryMode = amqp091.Transient
	if persistent {
		pub.DeliveryMode = amqp091.Persistent
	}
	return pub, nil
}

// toDelivery builds a domain delivery from an amqp091 delivery received on queue over
// the channel identified by channelID.
func toDelivery(d *amqp091.Delivery, queue string, channelID uint64) amqp.Delivery {
	return amqp.Delivery{
		Message:     toMessage(d),
		Tag:         d.DeliveryTag,
		Channel:     channelID,
		Exchange:    d.Exchange,
		Queue:       queue,
		RoutingKey:  d.RoutingKey,
		Redelivered: d.Redelivered,
	}
}
