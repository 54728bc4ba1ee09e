package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Service normalizes webhook bodies and flags re-delivered event ids.
type Service interface {
	Normalize(ctx context.Context, body []byte) ([]Event, error)
}

type service struct {
	store     dedupeStore
	dedupeTTL time.Duration
	logg      *logger.Logger
}

// NewService builds the normalizer. dedupeTTL bounds how long an event id is
// remembered for duplicate flagging.
func NewService(store dedupeStore, dedupeTTL time.Duration, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("dedupe store is required")
	}
	if dedupeTTL <= 0 {
		return nil, fmt.Errorf("dedupe ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{store: store, dedupeTTL: dedupeTTL, logg: logg}, nil
}

// Normalize parses the body and marks events whose external id was already
// seen. Flagging is advisory: the dispatcher and the message log's unique
// index are the durable layers, so a redis error here degrades to unflagged.
func (s *service) Normalize(ctx context.Context, body []byte) ([]Event, error) {
	events, err := Parse(body)
	if err != nil {
		return nil, err
	}

	for i := range events {
		key := s.store.IdempotencyKey("inbound", events[i].ExternalEventID)
		firstSeen, err := s.store.SetNX(ctx, key, 1, s.dedupeTTL)
		if err != nil {
			s.logg.Warn(ctx, "inbound dedupe check failed, continuing unflagged")
			continue
		}
		if !firstSeen {
			events[i].Duplicate = true
		}
	}
	return events, nil
}
