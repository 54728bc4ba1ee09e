package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/internal/attribution"
	"github.com/replyflow/replyflow-backend/internal/classifier"
	"github.com/replyflow/replyflow-backend/internal/composer"
	"github.com/replyflow/replyflow-backend/internal/decision"
	"github.com/replyflow/replyflow-backend/internal/dispatch"
	"github.com/replyflow/replyflow-backend/internal/inbound"
	"github.com/replyflow/replyflow-backend/internal/links"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/metrics"
)

type credentialsResolver interface {
	MerchantForBusinessAccount(ctx context.Context, businessAccountID string) (uuid.UUID, error)
	GetValidCredential(ctx context.Context, merchantID uuid.UUID) (*models.SocialAuth, error)
}

type contextResolver interface {
	Resolve(ctx context.Context, merchantID uuid.UUID, event inbound.Event) (*Context, error)
}

type textClassifier interface {
	Classify(ctx context.Context, text string) (*classifier.Classification, error)
}

type recorder interface {
	RecordInbound(ctx context.Context, in attribution.InboundRecord) (*models.Message, bool, error)
	RecordClassification(ctx context.Context, messageID uuid.UUID, intent enums.Intent, confidence float64, sentiment enums.Sentiment) error
	RecordReply(ctx context.Context, in attribution.ReplyRecord) (*models.LinkSent, error)
	RecordSuppression(ctx context.Context, in attribution.SuppressionRecord) error
	MarkFailed(ctx context.Context, messageID uuid.UUID) error
	ConversationContext(ctx context.Context, merchantID uuid.UUID, senderID string, limit int) ([]models.Message, *models.LinkSent, error)
}

type replyComposer interface {
	Compose(ctx context.Context, in composer.Input) (string, error)
}

type replyDispatcher interface {
	Send(ctx context.Context, in dispatch.Input) (*dispatch.Result, error)
}

type linkBuilder interface {
	Build(req links.BuildRequest) (*links.Link, error)
	ShortURL(linkID string) string
}

// Config carries the processor tunables.
type Config struct {
	HistoryLimit     int
	CheckoutQuantity int
}

// Processor runs one normalized inbound event through classification,
// decision, composition, and dispatch.
type Processor interface {
	Process(ctx context.Context, event inbound.Event) error
}

type processor struct {
	credentials credentialsResolver
	resolver    contextResolver
	classifier  textClassifier
	recorder    recorder
	composer    replyComposer
	dispatcher  replyDispatcher
	links       linkBuilder
	metrics     *metrics.PipelineMetrics
	config      Config
	logg        *logger.Logger
}

// NewProcessor builds the pipeline processor.
func NewProcessor(
	credentials credentialsResolver,
	resolver contextResolver,
	textClassifier textClassifier,
	recorder recorder,
	replyComposer replyComposer,
	dispatcher replyDispatcher,
	linkBuilder linkBuilder,
	pipelineMetrics *metrics.PipelineMetrics,
	cfg Config,
	logg *logger.Logger,
) (Processor, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credentials service required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("context resolver required")
	}
	if textClassifier == nil {
		return nil, fmt.Errorf("classifier required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("attribution recorder required")
	}
	if replyComposer == nil {
		return nil, fmt.Errorf("composer required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if linkBuilder == nil {
		return nil, fmt.Errorf("link builder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 6
	}
	if cfg.CheckoutQuantity <= 0 {
		cfg.CheckoutQuantity = 1
	}
	return &processor{
		credentials: credentials,
		resolver:    resolver,
		classifier:  textClassifier,
		recorder:    recorder,
		composer:    replyComposer,
		dispatcher:  dispatcher,
		links:       linkBuilder,
		metrics:     pipelineMetrics,
		config:      cfg,
		logg:        logg,
	}, nil
}

// Process runs the full reply pipeline for one event. A nil return means the
// event is settled; an error means the delivery should be retried.
func (p *processor) Process(ctx context.Context, event inbound.Event) error {
	ctx = p.logg.WithEventID(ctx, event.ExternalEventID)
	ctx = p.logg.WithChannel(ctx, event.Channel.String())

	merchantID, err := p.credentials.MerchantForBusinessAccount(ctx, event.BusinessAccountID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotConnected {
			// No merchant owns the account; nothing to retry.
			p.metrics.IncInbound(event.Channel.String(), "orphaned")
			p.logg.Warn(ctx, "inbound event for unknown business account")
			return nil
		}
		return err
	}
	ctx = p.logg.WithMerchantID(ctx, merchantID.String())

	row, duplicate, err := p.recorder.RecordInbound(ctx, attribution.InboundRecord{
		MerchantID:        merchantID,
		Channel:           event.Channel,
		ExternalEventID:   event.ExternalEventID,
		SenderID:          event.SenderID,
		BusinessAccountID: event.BusinessAccountID,
		MediaID:           optionalString(event.MediaID),
		Text:              event.Text,
		ReceivedAt:        event.ReceivedAt,
	})
	if err != nil {
		return err
	}
	if duplicate && isTerminal(row.Status) {
		p.metrics.IncInbound(event.Channel.String(), "duplicate")
		return nil
	}
	if duplicate {
		// A redelivery whose first run died mid-pipeline resumes from the
		// existing row instead of stopping.
		p.metrics.IncInbound(event.Channel.String(), "resumed")
	} else {
		p.metrics.IncInbound(event.Channel.String(), "accepted")
	}

	resolved, err := p.resolver.Resolve(ctx, merchantID, event)
	if err != nil {
		return err
	}
	if !resolved.Merchant.Active {
		return p.suppress(ctx, row, nil, enums.ReasonMerchantInactive)
	}

	classifyStart := time.Now()
	classification, err := p.classifier.Classify(ctx, event.Text)
	p.metrics.ObserveStage("classify", time.Since(classifyStart))
	if err != nil {
		p.logg.Error(ctx, "classification failed", err)
		return p.suppress(ctx, row, nil, enums.ReasonClassifierFailed)
	}
	if err := p.recorder.RecordClassification(ctx, row.ID, classification.Intent, classification.Confidence, classification.Sentiment); err != nil {
		return err
	}

	verdict := decision.Decide(decision.Input{
		Channel:        event.Channel,
		Intent:         classification.Intent,
		Confidence:     classification.Confidence,
		Plan:           resolved.Plan,
		ChannelEnabled: resolved.ChannelEnabled,
		PostEnabled:    resolved.PostEnabled,
		Mapping:        resolved.Mapping,
	})
	p.metrics.IncDecision(verdict.Outcome.String(), verdict.Reason.String())
	if verdict.Outcome == enums.DecisionSuppress {
		return p.suppress(ctx, row, &classification.Intent, verdict.Reason)
	}

	return p.reply(ctx, row, event, resolved, classification, verdict)
}

func (p *processor) reply(
	ctx context.Context,
	row *models.Message,
	event inbound.Event,
	resolved *Context,
	classification *classifier.Classification,
	verdict decision.Decision,
) error {
	credential, err := p.credentials.GetValidCredential(ctx, row.MerchantID)
	if err != nil {
		return p.failOrRetry(ctx, row, err)
	}

	checkout, page := p.buildLinks(ctx, resolved, verdict)

	input := composer.Input{
		Channel:      event.Channel,
		Outcome:      verdict.Outcome,
		Intent:       classification.Intent,
		OriginalText: event.Text,
	}
	if resolved.Plan.BrandVoice {
		input.BrandVoice = resolved.Toggles.BrandVoice
	}
	if verdict.Mapping != nil {
		input.ProductHandle = verdict.Mapping.ProductHandle
		input.VariantCount = verdict.Mapping.VariantCount
	}
	if checkout != nil {
		input.LinkURL = checkout.URL
	}
	if page != nil {
		input.ProductPageURL = page.URL
	}
	if resolved.Plan.Conversational {
		history, priorLink, err := p.recorder.ConversationContext(ctx, row.MerchantID, event.SenderID, p.config.HistoryLimit)
		if err != nil {
			p.logg.Error(ctx, "load conversation context", err)
		} else {
			input.History = historyTurns(history, row.ID)
			if priorLink != nil {
				input.PriorLinkURL = p.links.ShortURL(priorLink.LinkID)
			}
		}
	}

	composeStart := time.Now()
	replyText, err := p.composer.Compose(ctx, input)
	p.metrics.ObserveStage("compose", time.Since(composeStart))
	if err != nil {
		return p.failOrRetry(ctx, row, err)
	}

	// The merchant may have uninstalled while the reply was being generated;
	// never send on behalf of an inactive account.
	fresh, err := p.resolver.Resolve(ctx, row.MerchantID, event)
	if err != nil {
		return err
	}
	if !fresh.Merchant.Active {
		return p.suppress(ctx, row, &classification.Intent, enums.ReasonMerchantInactive)
	}

	dispatchInput := dispatch.Input{
		MerchantID:      row.MerchantID,
		ExternalEventID: event.ExternalEventID,
		Channel:         event.Channel,
		SenderID:        event.SenderID,
		Text:            replyText,
		Credential:      credential,
		MonthlyCap:      resolved.Plan.MonthlyMessageCap,
	}
	if event.Channel == enums.ChannelComment {
		dispatchInput.CommentID = event.ExternalEventID
	}

	dispatchStart := time.Now()
	result, err := p.dispatcher.Send(ctx, dispatchInput)
	p.metrics.ObserveStage("dispatch", time.Since(dispatchStart))
	if err != nil {
		p.metrics.IncDispatch("failed")
		return p.failOrRetry(ctx, row, err)
	}
	if result.Skipped {
		switch result.SkipReason {
		case enums.ReasonMonthlyCapReached:
			p.metrics.IncDispatch("capped")
			return p.suppress(ctx, row, &classification.Intent, enums.ReasonMonthlyCapReached)
		default:
			p.metrics.IncDispatch("duplicate")
			if result.ProviderMessageID == "" {
				if row.ProviderMessageID != nil {
					return nil
				}
				// Guard held with nothing on record: the earlier delivery may
				// still be sending. Redeliver until the row settles or the
				// guard expires.
				return pkgerrors.New(pkgerrors.CodeTemporarilyUnavailable, "dispatch outcome not yet recorded")
			}
			if row.ProviderMessageID != nil {
				return nil
			}
			// The reply went out on an earlier delivery that died before
			// recording; attach it now.
		}
	} else {
		p.metrics.IncDispatch("sent")
	}

	record := attribution.ReplyRecord{
		MessageID:         row.ID,
		MerchantID:        row.MerchantID,
		Channel:           event.Channel,
		Intent:            classification.Intent,
		Outcome:           verdict.Outcome,
		ReplyText:         replyText,
		ProviderMessageID: result.ProviderMessageID,
	}
	if checkout != nil && checkout.LinkID != "" && verdict.Mapping != nil {
		record.Link = &attribution.LinkRecord{
			LinkID:    checkout.LinkID,
			Kind:      checkout.Kind,
			TargetURL: checkout.TargetURL,
			ProductID: verdict.Mapping.ProductID,
			VariantID: verdict.Mapping.VariantID,
		}
	}
	if _, err := p.recorder.RecordReply(ctx, record); err != nil {
		return err
	}
	p.logg.Info(ctx, "reply dispatched")
	return nil
}

// buildLinks resolves the checkout short link and the product page URL for a
// product-specific send. Clarifying questions and store answers carry none.
func (p *processor) buildLinks(ctx context.Context, resolved *Context, verdict decision.Decision) (*links.Link, *links.Link) {
	if verdict.Outcome != enums.DecisionSend || verdict.Mapping == nil {
		return nil, nil
	}

	var checkout, page *links.Link
	built, err := p.links.Build(links.BuildRequest{
		Kind:             enums.LinkKindCheckout,
		StorefrontDomain: resolved.Merchant.StorefrontDomain,
		ProductID:        verdict.Mapping.ProductID,
		VariantID:        verdict.Mapping.VariantID,
		Quantity:         p.config.CheckoutQuantity,
		Shorten:          true,
	})
	if err != nil {
		p.logg.Warn(ctx, "checkout link unavailable")
	} else {
		checkout = built
	}

	built, err = p.links.Build(links.BuildRequest{
		Kind:             enums.LinkKindProductPage,
		StorefrontDomain: resolved.Merchant.StorefrontDomain,
		ProductID:        verdict.Mapping.ProductID,
		Handle:           verdict.Mapping.ProductHandle,
	})
	if err != nil {
		p.logg.Warn(ctx, "product page link unavailable")
	} else {
		page = built
	}
	return checkout, page
}

func (p *processor) suppress(ctx context.Context, row *models.Message, intent *enums.Intent, reason enums.DecisionReason) error {
	err := p.recorder.RecordSuppression(ctx, attribution.SuppressionRecord{
		MessageID:  row.ID,
		MerchantID: row.MerchantID,
		Channel:    row.Channel,
		Intent:     intent,
		Reason:     reason,
	})
	if err != nil {
		return err
	}
	p.logg.Info(ctx, "reply suppressed")
	return nil
}

// failOrRetry settles terminal failures in the message log and hands
// retryable ones back to the delivery layer.
func (p *processor) failOrRetry(ctx context.Context, row *models.Message, err error) error {
	if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
		p.logg.Error(ctx, "reply pipeline failed", err)
		if markErr := p.recorder.MarkFailed(ctx, row.ID); markErr != nil {
			return markErr
		}
		return nil
	}
	return err
}

// historyTurns flattens prior messages into chronological conversation turns,
// excluding the message currently being processed.
func historyTurns(history []models.Message, currentID uuid.UUID) []composer.Turn {
	turns := make([]composer.Turn, 0, len(history)*2)
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.ID == currentID {
			continue
		}
		turns = append(turns, composer.Turn{FromCustomer: true, Text: msg.Text})
		if msg.ReplyText != nil && *msg.ReplyText != "" {
			turns = append(turns, composer.Turn{Text: *msg.ReplyText})
		}
	}
	return turns
}

func isTerminal(status enums.MessageStatus) bool {
	switch status {
	case enums.MessageStatusReplied, enums.MessageStatusSuppressed, enums.MessageStatusFailed:
		return true
	default:
		return false
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
