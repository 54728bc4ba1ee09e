package inbound

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/internal/attribution"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/metrics"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
)

type merchantResolver interface {
	MerchantForBusinessAccount(ctx context.Context, businessAccountID string) (uuid.UUID, error)
}

type inboundRecorder interface {
	RecordInbound(ctx context.Context, in attribution.InboundRecord) (*models.Message, bool, error)
}

// Intake accepts raw webhook bodies, normalizes them, and persists every
// event that belongs to a connected merchant. Persisting also enqueues the
// event for the reply pipeline through the outbox.
type Intake struct {
	normalizer Service
	merchants  merchantResolver
	recorder   inboundRecorder
	metrics    *metrics.PipelineMetrics
	logg       *logger.Logger
}

func NewIntake(normalizer Service, merchants merchantResolver, recorder inboundRecorder, pipelineMetrics *metrics.PipelineMetrics, logg *logger.Logger) (*Intake, error) {
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if merchants == nil {
		return nil, fmt.Errorf("merchant resolver is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("inbound recorder is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Intake{
		normalizer: normalizer,
		merchants:  merchants,
		recorder:   recorder,
		metrics:    pipelineMetrics,
		logg:       logg,
	}, nil
}

// Ingest processes one webhook delivery and returns how many events were
// newly accepted. Events for unconnected accounts are dropped with a warning.
// A persistence failure aborts the batch with an error so the provider
// redelivers; already-recorded events shake out as duplicates on the retry.
func (i *Intake) Ingest(ctx context.Context, body []byte) (int, error) {
	events, err := i.normalizer.Normalize(ctx, body)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unrecognized webhook body")
	}

	accepted := 0
	for _, event := range events {
		eventCtx := i.logg.WithChannel(i.logg.WithEventID(ctx, event.ExternalEventID), string(event.Channel))

		if event.Duplicate {
			i.metrics.IncInbound(string(event.Channel), "duplicate")
			continue
		}

		merchantID, err := i.merchants.MerchantForBusinessAccount(eventCtx, event.BusinessAccountID)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotConnected {
				i.metrics.IncInbound(string(event.Channel), "orphaned")
				i.logg.Warn(eventCtx, "inbound event for unconnected business account dropped")
				continue
			}
			return accepted, err
		}
		eventCtx = i.logg.WithMerchantID(eventCtx, merchantID.String())

		_, duplicate, err := i.recorder.RecordInbound(eventCtx, attribution.InboundRecord{
			MerchantID:        merchantID,
			Channel:           event.Channel,
			ExternalEventID:   event.ExternalEventID,
			SenderID:          event.SenderID,
			BusinessAccountID: event.BusinessAccountID,
			MediaID:           optionalMediaID(event.MediaID),
			Text:              event.Text,
			ReceivedAt:        event.ReceivedAt,
		})
		if err != nil {
			return accepted, err
		}
		if duplicate {
			i.metrics.IncInbound(string(event.Channel), "duplicate")
			continue
		}

		i.metrics.IncInbound(string(event.Channel), "accepted")
		accepted++
	}
	return accepted, nil
}

func optionalMediaID(mediaID string) *string {
	if mediaID == "" {
		return nil
	}
	return &mediaID
}
