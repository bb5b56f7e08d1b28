package domain

import "context"

// PulledMessage is a single message handed over by the messaging collaborator,
// either from a synchronous pull (with an AckID to acknowledge explicitly) or
// from a streaming delivery (acknowledged by the transport adapter).
type PulledMessage struct {
	ID          string
	Data        []byte
	Attributes  map[string]string
	PublishTime string
	AckID       string
}

// MessageSource is the messaging collaborator contract. Delivery is
// at-least-once: a message must only be acknowledged after it has been
// durably stored.
type MessageSource interface {
	// Pull synchronously fetches up to max messages.
	Pull(ctx context.Context, max int64) ([]PulledMessage, error)
	// Acknowledge confirms the given ack ids so the broker stops redelivery.
	Acknowledge(ctx context.Context, ackIDs []string) error
	// Listen blocks delivering messages to deliver until ctx is canceled.
	// A nil return from deliver acknowledges the message; an error causes
	// redelivery.
	Listen(ctx context.Context, deliver func(context.Context, PulledMessage) error) error
}
