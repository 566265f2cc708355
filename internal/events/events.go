// Package events defines the normalized chat events the relay publishes and
// the AMQP publisher behind them.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Routing key / event type for a validated inbound chat message.
const TypeNewMessage = "consultant.message.new.v1"

const producer = "consultantd"

// Meta carries the event identity and provenance.
type Meta struct {
	// Trace / request correlation ID.
	CorrelationID string `json:"correlation_id,omitempty"`
	// Unique event ID.
	ID string `json:"id"`
	// Emitting service.
	Producer string `json:"producer,omitempty"`
	// Timestamp when the event was emitted.
	Time time.Time `json:"time"`
	// Event name and version.
	Type string `json:"type"`
}

// Envelope wraps every published event.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewMessage is the payload of a TypeNewMessage event: the normalized
// fields of one validated webhook.
type NewMessage struct {
	Consultant    string `json:"consultant"`
	ClientID      string `json:"client_id"`
	SearchID      string `json:"search_id,omitempty"`
	OperatorLogin string `json:"operator_login,omitempty"`
	Text          string `json:"text"`
}

// NewMessageEnvelope wraps a NewMessage payload with fresh meta.
func NewMessageEnvelope(msg NewMessage) Envelope {
	return Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Producer: producer,
			Time:     time.Now().UTC(),
			Type:     TypeNewMessage,
		},
		Data: msg,
	}
}
