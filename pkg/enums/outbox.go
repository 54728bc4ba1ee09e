package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateMessage  OutboxAggregateType = "message"
	AggregateLink     OutboxAggregateType = "link"
	AggregateMerchant OutboxAggregateType = "merchant"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMessage,
	AggregateLink,
	AggregateMerchant,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventInboundReceived OutboxEventType = "inbound_event_received"
	EventReplySent       OutboxEventType = "reply_sent"
	EventReplySuppressed OutboxEventType = "reply_suppressed"
	EventLinkClicked     OutboxEventType = "link_clicked"
	EventOrderAttributed OutboxEventType = "order_attributed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInboundReceived,
	EventReplySent,
	EventReplySuppressed,
	EventLinkClicked,
	EventOrderAttributed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
