package inbound

import (
	"context"
	"testing"
	"time"

	"github.com/replyflow/replyflow-backend/pkg/enums"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

const messagingPayload = `{
  "object": "instagram",
  "entry": [{
    "id": "biz-1",
    "time": 1714000000,
    "messaging": [{
      "sender": {"id": "user-7"},
      "recipient": {"id": "biz-1"},
      "timestamp": 1714000000123,
      "message": {"mid": "mid.abc", "text": "Is this still available?"}
    }]
  }]
}`

const commentPayload = `{
  "object": "instagram",
  "entry": [{
    "id": "biz-1",
    "time": 1714000000,
    "changes": [{
      "field": "comments",
      "value": {
        "id": "comment-9",
        "text": "What colors does this come in?",
        "from": {"id": "user-8"},
        "media": {"id": "media-3"}
      }
    }]
  }]
}`

func TestParseMessagingEvent(t *testing.T) {
	events, err := Parse([]byte(messagingPayload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Channel != enums.ChannelDM {
		t.Fatalf("unexpected channel %s", event.Channel)
	}
	if event.ExternalEventID != "mid.abc" || event.SenderID != "user-7" {
		t.Fatalf("unexpected identity %+v", event)
	}
	if event.BusinessAccountID != "biz-1" {
		t.Fatalf("unexpected account %q", event.BusinessAccountID)
	}
	if event.MediaID != "" {
		t.Fatalf("dm events never carry a media id, got %q", event.MediaID)
	}
	if event.ReceivedAt != time.UnixMilli(1714000000123).UTC() {
		t.Fatalf("unexpected timestamp %v", event.ReceivedAt)
	}
}

func TestParseCommentEvent(t *testing.T) {
	events, err := Parse([]byte(commentPayload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Channel != enums.ChannelComment {
		t.Fatalf("unexpected channel %s", event.Channel)
	}
	if event.ExternalEventID != "comment-9" || event.MediaID != "media-3" {
		t.Fatalf("unexpected comment fields %+v", event)
	}
	if event.Text != "What colors does this come in?" {
		t.Fatalf("unexpected text %q", event.Text)
	}
}

func TestParseIgnoresUnrelatedShapes(t *testing.T) {
	payloads := []string{
		`{"object":"instagram","entry":[{"id":"biz-1","changes":[{"field":"story_insights","value":{"id":"x"}}]}]}`,
		`{"object":"instagram","entry":[{"id":"biz-1","messaging":[{"sender":{"id":"u"},"message":{"mid":"mid.1","text":""}}]}]}`,
		`{"object":"instagram","entry":[{"id":"biz-1","changes":[{"field":"comments","value":{"id":"c1","text":"hi","from":{"id":""}}}]}]}`,
		`{"object":"instagram","entry":[]}`,
	}
	for _, payload := range payloads {
		events, err := Parse([]byte(payload))
		if err != nil {
			t.Fatalf("Parse(%s): %v", payload, err)
		}
		if len(events) != 0 {
			t.Fatalf("expected ignored payload, got %+v", events)
		}
	}
}

func TestParseSkipsEchoes(t *testing.T) {
	payload := `{"object":"instagram","entry":[{"id":"biz-1","messaging":[{"sender":{"id":"biz-1"},"message":{"mid":"mid.echo","text":"thanks!","is_echo":true}}]}]}`
	events, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("echo must be ignored, got %+v", events)
	}
}

func TestParseSkipsOwnComments(t *testing.T) {
	payload := `{"object":"instagram","entry":[{"id":"biz-1","changes":[{"field":"comments","value":{"id":"c2","text":"thanks for the love!","from":{"id":"biz-1"},"media":{"id":"m1"}}}]}]}`
	events, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("own comment must be ignored, got %+v", events)
	}
}

func TestParseMalformedBody(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

type stubDedupeStore struct {
	seen map[string]bool
	fail bool
}

func (s *stubDedupeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.fail {
		return false, context.DeadlineExceeded
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubDedupeStore) IdempotencyKey(scope, id string) string {
	return "rf:idempotency:" + scope + ":" + id
}

func TestNormalizeFlagsDuplicates(t *testing.T) {
	svc, err := NewService(&stubDedupeStore{}, time.Hour, logger.New(logger.Options{}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	first, err := svc.Normalize(context.Background(), []byte(messagingPayload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if first[0].Duplicate {
		t.Fatalf("first delivery must not be flagged")
	}

	second, err := svc.Normalize(context.Background(), []byte(messagingPayload))
	if err != nil {
		t.Fatalf("Normalize redelivery: %v", err)
	}
	if !second[0].Duplicate {
		t.Fatalf("re-delivery must be flagged as duplicate")
	}
}

func TestNormalizeDegradesOnStoreFailure(t *testing.T) {
	svc, err := NewService(&stubDedupeStore{fail: true}, time.Hour, logger.New(logger.Options{}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	events, err := svc.Normalize(context.Background(), []byte(messagingPayload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(events) != 1 || events[0].Duplicate {
		t.Fatalf("store failure must degrade to unflagged, got %+v", events)
	}
}
