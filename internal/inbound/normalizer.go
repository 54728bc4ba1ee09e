package inbound

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// Event is the canonical form of one inbound webhook item. MediaID is set
// only for comment events; DMs never carry one. Duplicate is flagged when the
// external event id was already seen, so downstream treats it as a no-op.
type Event struct {
	Channel           enums.Channel
	ExternalEventID   string
	SenderID          string
	BusinessAccountID string
	MediaID           string
	Text              string
	ReceivedAt        time.Time
	Duplicate         bool
}

// webhookPayload covers the two Graph delivery shapes: messaging events and
// comment change events. Everything else in the envelope is ignored.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Time      int64  `json:"time"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Recipient struct {
				ID string `json:"id"`
			} `json:"recipient"`
			Timestamp int64 `json:"timestamp"`
			Message   struct {
				MID    string `json:"mid"`
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo"`
			} `json:"message"`
		} `json:"messaging"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				ID   string `json:"id"`
				Text string `json:"text"`
				From struct {
					ID string `json:"id"`
				} `json:"from"`
				Media struct {
					ID string `json:"id"`
				} `json:"media"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Parse extracts every recognizable event from a webhook body. Unknown change
// types, echoes of our own sends, and items missing required fields are
// dropped, not errored: providers batch unrelated updates into one delivery.
func Parse(body []byte) ([]Event, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	var events []Event
	for _, entry := range payload.Entry {
		accountID := strings.TrimSpace(entry.ID)

		for _, item := range entry.Messaging {
			if item.Message.IsEcho {
				continue
			}
			if item.Message.MID == "" || item.Sender.ID == "" || strings.TrimSpace(item.Message.Text) == "" {
				continue
			}
			receivedAt := time.Now().UTC()
			if item.Timestamp > 0 {
				receivedAt = time.UnixMilli(item.Timestamp).UTC()
			}
			events = append(events, Event{
				Channel:           enums.ChannelDM,
				ExternalEventID:   item.Message.MID,
				SenderID:          item.Sender.ID,
				BusinessAccountID: accountID,
				Text:              item.Message.Text,
				ReceivedAt:        receivedAt,
			})
		}

		for _, change := range entry.Changes {
			if change.Field != "comments" {
				continue
			}
			value := change.Value
			if value.ID == "" || value.From.ID == "" || strings.TrimSpace(value.Text) == "" {
				continue
			}
			// Comments the account leaves on its own posts come back through
			// the same webhook; replying to ourselves would loop forever.
			if value.From.ID == accountID {
				continue
			}
			receivedAt := time.Now().UTC()
			if entry.Time > 0 {
				receivedAt = time.Unix(entry.Time, 0).UTC()
			}
			events = append(events, Event{
				Channel:           enums.ChannelComment,
				ExternalEventID:   value.ID,
				SenderID:          value.From.ID,
				BusinessAccountID: accountID,
				MediaID:           value.Media.ID,
				Text:              value.Text,
				ReceivedAt:        receivedAt,
			})
		}
	}
	return events, nil
}
