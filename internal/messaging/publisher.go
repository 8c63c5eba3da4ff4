package messaging

import (
	"context"
)

// Publisher defines the interface for publishing correction events
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishCorrection publishes a correction event to the message broker
	PublishCorrection(ctx context.Context, event *CorrectionEvent) error
	// Close closes the connection
	Close()
}

// NopPublisher discards all events; used when no broker is configured
type NopPublisher struct{}

// NewNopPublisher creates a publisher that discards all events
func NewNopPublisher() Publisher {
	return &NopPublisher{}
}

func (p *NopPublisher) PublishCorrection(ctx context.Context, event *CorrectionEvent) error {
	return nil
}

func (p *NopPublisher) Close() {}
