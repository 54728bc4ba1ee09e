package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// InboundReceivedEvent signals that a webhook event was normalized and stored.
type InboundReceivedEvent struct {
	MessageID       uuid.UUID     `json:"message_id"`
	MerchantID      uuid.UUID     `json:"merchant_id"`
	Channel         enums.Channel `json:"channel"`
	ExternalEventID string        `json:"external_event_id"`
	SenderID        string        `json:"sender_id"`
	MediaID         string        `json:"media_id,omitempty"`
	ReceivedAt      time.Time     `json:"received_at"`
}

// ReplySentEvent is emitted once a reply is accepted by the provider.
type ReplySentEvent struct {
	MessageID         uuid.UUID             `json:"message_id"`
	MerchantID        uuid.UUID             `json:"merchant_id"`
	Channel           enums.Channel         `json:"channel"`
	Intent            enums.Intent          `json:"intent"`
	Outcome           enums.DecisionOutcome `json:"outcome"`
	ProviderMessageID string                `json:"provider_message_id"`
	LinkID            string                `json:"link_id,omitempty"`
	LinkKind          *enums.LinkKind       `json:"link_kind,omitempty"`
	SentAt            time.Time             `json:"sent_at"`
}

// ReplySuppressedEvent records why the pipeline declined to reply.
type ReplySuppressedEvent struct {
	MessageID    uuid.UUID            `json:"message_id"`
	MerchantID   uuid.UUID            `json:"merchant_id"`
	Channel      enums.Channel        `json:"channel"`
	Intent       *enums.Intent        `json:"intent,omitempty"`
	Reason       enums.DecisionReason `json:"reason"`
	SuppressedAt time.Time            `json:"suppressed_at"`
}

// LinkClickedEvent counts a resolver hit on a tracked short link.
type LinkClickedEvent struct {
	LinkSentID uuid.UUID      `json:"link_sent_id"`
	MerchantID uuid.UUID      `json:"merchant_id"`
	LinkID     string         `json:"link_id"`
	Kind       enums.LinkKind `json:"kind"`
	ClickCount int            `json:"click_count"`
	ClickedAt  time.Time      `json:"clicked_at"`
}

// OrderAttributedEvent ties a storefront order back to the reply that sent
// the link.
type OrderAttributedEvent struct {
	LinkSentID   uuid.UUID `json:"link_sent_id"`
	MessageID    uuid.UUID `json:"message_id"`
	MerchantID   uuid.UUID `json:"merchant_id"`
	OrderID      string    `json:"order_id"`
	AttributedAt time.Time `json:"attributed_at"`
}
