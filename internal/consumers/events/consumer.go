package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/internal/inbound"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/outbox"
	"github.com/replyflow/replyflow-backend/pkg/outbox/payloads"
)

const pipelineConsumerName = "reply-pipeline"

type messageLoader interface {
	FindMessageByID(ctx context.Context, messageID uuid.UUID) (*models.Message, error)
}

type eventProcessor interface {
	Process(ctx context.Context, event inbound.Event) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer drives the reply pipeline off the domain event stream. Each
// accepted inbound event runs the full classify/decide/compose/dispatch
// sequence under a per-event deadline.
type Consumer struct {
	subscription *pubsub.Subscriber
	loader       messageLoader
	processor    eventProcessor
	idempotency  idempotencyChecker
	eventTimeout time.Duration
	logg         *logger.Logger
}

// NewConsumer builds the pipeline consumer.
func NewConsumer(
	subscription *pubsub.Subscriber,
	loader messageLoader,
	processor eventProcessor,
	manager idempotencyChecker,
	eventTimeout time.Duration,
	logg *logger.Logger,
) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("events subscription required")
	}
	if loader == nil {
		return nil, fmt.Errorf("message loader required")
	}
	if processor == nil {
		return nil, fmt.Errorf("pipeline processor required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if eventTimeout <= 0 {
		eventTimeout = 45 * time.Second
	}
	return &Consumer{
		subscription: subscription,
		loader:       loader,
		processor:    processor,
		idempotency:  manager,
		eventTimeout: eventTimeout,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventInboundReceived) {
		return processResult{}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, pipelineConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	var payload payloads.InboundReceivedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, pipelineConsumerName, eventID)
		return processResult{nack: true}
	}

	event, err := c.loadEvent(ctx, payload)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The log row was written in the same transaction as the outbox
			// event, so a miss cannot heal on redelivery.
			c.logg.Error(logCtx, "inbound message row missing", err)
			return processResult{}
		}
		c.logg.Error(logCtx, "failed to load inbound message", err)
		_ = c.idempotency.Delete(ctx, pipelineConsumerName, eventID)
		return processResult{nack: true}
	}

	runCtx, cancel := context.WithTimeout(ctx, c.eventTimeout)
	defer cancel()
	if err := c.processor.Process(runCtx, *event); err != nil {
		c.logg.Error(logCtx, "pipeline run failed", err)
		_ = c.idempotency.Delete(ctx, pipelineConsumerName, eventID)
		return processResult{nack: true}
	}

	return processResult{}
}

// loadEvent rebuilds the normalized event from the durable message row; the
// outbox payload carries identifiers only.
func (c *Consumer) loadEvent(ctx context.Context, payload payloads.InboundReceivedEvent) (*inbound.Event, error) {
	row, err := c.loader.FindMessageByID(ctx, payload.MessageID)
	if err != nil {
		return nil, err
	}
	event := &inbound.Event{
		Channel:           row.Channel,
		ExternalEventID:   row.ExternalEventID,
		SenderID:          row.SenderID,
		BusinessAccountID: row.BusinessAccountID,
		Text:              row.Text,
		ReceivedAt:        row.ReceivedAt,
	}
	if row.MediaID != nil {
		event.MediaID = *row.MediaID
	}
	return event, nil
}
