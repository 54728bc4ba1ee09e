package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MerchantRef identifies the storefront an event belongs to.
type MerchantRef struct {
	MerchantID uuid.UUID `json:"merchantId"`
	Channel    string    `json:"channel,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Merchant   *MerchantRef    `json:"merchant,omitempty"`
	Data       json.RawMessage `json:"data"`
}
