package messaging

import "context"

// TriggerHandler is called when a reconciliation trigger message is received
type TriggerHandler func(msg *TriggerMessage) error

// Subscriber defines the interface for consuming reconciliation triggers
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeTriggers subscribes to trigger messages and invokes handler
	// for each one. Blocks until ctx is cancelled.
	SubscribeTriggers(ctx context.Context, handler TriggerHandler) error
	// Close closes the connection and cleans up resources
	Close()
}
