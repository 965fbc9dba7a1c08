package events

import "context"

// Event types published on the offers stream.
const (
	EventOfferSubmitted = "offer_submitted"
	EventOfferAccepted  = "offer_accepted"
	EventOfferRejected  = "offer_rejected"
	EventOfferSettled   = "offer_settled"
	EventPropertySold   = "property_sold"
)

// StreamOffers is the channel all offer-lifecycle events are published to.
const StreamOffers = "events:offers"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

// NopPublisher discards events. Used when Redis is not configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
