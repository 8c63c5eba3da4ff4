package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-reconciler/internal/logger"
)

const (
	correctionSubject = "reconciler.corrections"
	triggerSubject    = "reconciler.triggers"
	triggerConsumer   = "reconciler-trigger-consumer"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

// NATSClient publishes correction events and consumes trigger messages over
// a single JetStream connection
type NATSClient struct {
	nc         *nats.Conn
	js         jetstream.JetStream
	streamName string
}

// NewNATSClient connects to NATS JetStream and returns a client that serves
// both as correction publisher and trigger subscriber
func NewNATSClient(cfg Config) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSClient{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
	}, nil
}

// EnsureStream creates the stream holding correction and trigger subjects
// if it does not exist yet
func (c *NATSClient) EnsureStream(ctx context.Context) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     c.streamName,
		Subjects: []string{correctionSubject, triggerSubject},
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", c.streamName, err)
	}

	return nil
}

// PublishCorrection publishes a correction event to NATS JetStream
func (c *NATSClient) PublishCorrection(ctx context.Context, event *CorrectionEvent) error {
	logger.DebugCtx(ctx, "publishing correction event", zap.Any("event", event))

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal correction event: %w", err)
	}

	if _, err := c.js.Publish(ctx, correctionSubject, data); err != nil {
		return fmt.Errorf("failed to publish correction event: %w", err)
	}

	return nil
}

// PublishTrigger publishes a reconciliation trigger to NATS JetStream
func (c *NATSClient) PublishTrigger(ctx context.Context, msg *TriggerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger message: %w", err)
	}

	if _, err := c.js.Publish(ctx, triggerSubject, data); err != nil {
		return fmt.Errorf("failed to publish trigger message: %w", err)
	}

	return nil
}

// SubscribeTriggers consumes trigger messages and invokes handler for each
// one. A handler error naks the message for redelivery. Blocks until ctx is
// cancelled.
func (c *NATSClient) SubscribeTriggers(ctx context.Context, handler TriggerHandler) error {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, c.streamName, jetstream.ConsumerConfig{
		Durable:       triggerConsumer,
		FilterSubject: triggerSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create trigger consumer: %w", err)
	}

	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		var trigger TriggerMessage
		if err := json.Unmarshal(msg.Data(), &trigger); err != nil {
			logger.Error(fmt.Errorf("failed to unmarshal trigger message: %w", err))
			_ = msg.Term()
			return
		}

		if err := handler(&trigger); err != nil {
			logger.Error(fmt.Errorf("trigger handler failed: %w", err),
				zap.String("contractAddress", trigger.Scope.ContractAddress))
			_ = msg.Nak()
			return
		}

		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to consume trigger messages: %w", err)
	}
	defer consumeCtx.Stop()

	<-ctx.Done()

	return ctx.Err()
}

// Close closes the NATS connection
func (c *NATSClient) Close() {
	if c.nc == nil {
		return
	}

	c.nc.Close()
}
