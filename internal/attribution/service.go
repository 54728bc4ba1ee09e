package attribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/replyflow/replyflow-backend/pkg/db"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/outbox"
	"github.com/replyflow/replyflow-backend/pkg/outbox/payloads"
	"github.com/replyflow/replyflow-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InboundRecord is the normalized event to log before any decision is made.
type InboundRecord struct {
	MerchantID        uuid.UUID
	Channel           enums.Channel
	ExternalEventID   string
	SenderID          string
	BusinessAccountID string
	MediaID           *string
	Text              string
	ReceivedAt        time.Time
}

// LinkRecord describes the trackable link attached to a dispatched reply.
type LinkRecord struct {
	LinkID    string
	Kind      enums.LinkKind
	TargetURL string
	ProductID string
	VariantID string
}

// ReplyRecord finalizes a message after a successful dispatch.
type ReplyRecord struct {
	MessageID         uuid.UUID
	MerchantID        uuid.UUID
	Channel           enums.Channel
	Intent            enums.Intent
	Outcome           enums.DecisionOutcome
	ReplyText         string
	ProviderMessageID string
	Link              *LinkRecord
}

// SuppressionRecord finalizes a message the pipeline declined to answer.
type SuppressionRecord struct {
	MessageID  uuid.UUID
	MerchantID uuid.UUID
	Channel    enums.Channel
	Intent     *enums.Intent
	Reason     enums.DecisionReason
}

// MessagePage is one page of the merchant's message audit log.
type MessagePage struct {
	Items      []models.Message
	NextCursor string
}

// Service is the attribution recorder: it owns the append-only message log,
// the sent-link rows, and the click/order correlation back to them.
type Service interface {
	RecordInbound(ctx context.Context, in InboundRecord) (*models.Message, bool, error)
	RecordClassification(ctx context.Context, messageID uuid.UUID, intent enums.Intent, confidence float64, sentiment enums.Sentiment) error
	RecordReply(ctx context.Context, in ReplyRecord) (*models.LinkSent, error)
	RecordSuppression(ctx context.Context, in SuppressionRecord) error
	MarkFailed(ctx context.Context, messageID uuid.UUID) error
	RecordClick(ctx context.Context, linkID string, clickedAt time.Time) error
	AttributeOrder(ctx context.Context, linkID, orderID string) error
	ConversationContext(ctx context.Context, merchantID uuid.UUID, senderID string, limit int) ([]models.Message, *models.LinkSent, error)
	ListMessages(ctx context.Context, merchantID uuid.UUID, params pagination.Params) (*MessagePage, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds the attribution recorder.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("attribution repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, logg: logg}, nil
}

// RecordInbound appends the message row. A provider re-delivery hits the
// unique index on external_event_id; the existing row is returned with the
// duplicate flag set so downstream treats the event as a no-op.
func (s *service) RecordInbound(ctx context.Context, in InboundRecord) (*models.Message, bool, error) {
	if in.MerchantID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if strings.TrimSpace(in.ExternalEventID) == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "external event id is required")
	}

	row := &models.Message{
		MerchantID:        in.MerchantID,
		Channel:           in.Channel,
		ExternalEventID:   in.ExternalEventID,
		SenderID:          in.SenderID,
		BusinessAccountID: in.BusinessAccountID,
		MediaID:           in.MediaID,
		Text:              in.Text,
		ReceivedAt:        in.ReceivedAt,
		Status:            enums.MessageStatusReceived,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateMessage(ctx, row); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInboundReceived,
			AggregateType: enums.AggregateMessage,
			AggregateID:   row.ID,
			Merchant:      merchantRef(in.MerchantID, in.Channel),
			Version:       1,
			Data: payloads.InboundReceivedEvent{
				MessageID:       row.ID,
				MerchantID:      in.MerchantID,
				Channel:         in.Channel,
				ExternalEventID: in.ExternalEventID,
				SenderID:        in.SenderID,
				MediaID:         derefString(in.MediaID),
				ReceivedAt:      in.ReceivedAt,
			},
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_messages_external_event_id") {
			existing, findErr := s.repo.FindByExternalEventID(ctx, in.ExternalEventID)
			if findErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load duplicate message")
			}
			return existing, true, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record inbound message")
	}
	return row, false, nil
}

func (s *service) RecordClassification(ctx context.Context, messageID uuid.UUID, intent enums.Intent, confidence float64, sentiment enums.Sentiment) error {
	if messageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	if err := s.repo.UpdateClassification(ctx, messageID, intent, confidence, sentiment); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record classification")
	}
	return nil
}

// RecordReply writes the LinkSent row (when a link was sent), attaches reply
// metadata to the message, and emits the reply_sent fact in one transaction.
func (s *service) RecordReply(ctx context.Context, in ReplyRecord) (*models.LinkSent, error) {
	if in.MessageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	if strings.TrimSpace(in.ReplyText) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reply text is required")
	}

	var linkRow *models.LinkSent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var linkSentID *uuid.UUID
		if in.Link != nil && in.Link.LinkID != "" {
			linkRow = &models.LinkSent{
				LinkID:     in.Link.LinkID,
				MessageID:  in.MessageID,
				MerchantID: in.MerchantID,
				Kind:       in.Link.Kind,
				TargetURL:  in.Link.TargetURL,
				ReplyText:  in.ReplyText,
				ProductID:  in.Link.ProductID,
				VariantID:  in.Link.VariantID,
			}
			if err := repo.CreateLink(ctx, linkRow); err != nil {
				return err
			}
			linkSentID = &linkRow.ID
		}

		if err := repo.UpdateDecision(ctx, in.MessageID, in.Outcome, nil); err != nil {
			return err
		}
		if err := repo.AttachReply(ctx, in.MessageID, in.ReplyText, in.ProviderMessageID, linkSentID); err != nil {
			return err
		}

		payload := payloads.ReplySentEvent{
			MessageID:         in.MessageID,
			MerchantID:        in.MerchantID,
			Channel:           in.Channel,
			Intent:            in.Intent,
			Outcome:           in.Outcome,
			ProviderMessageID: in.ProviderMessageID,
			SentAt:            time.Now().UTC(),
		}
		if linkRow != nil {
			payload.LinkID = linkRow.LinkID
			kind := linkRow.Kind
			payload.LinkKind = &kind
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReplySent,
			AggregateType: enums.AggregateMessage,
			AggregateID:   in.MessageID,
			Merchant:      merchantRef(in.MerchantID, in.Channel),
			Version:       1,
			Data:          payload,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record reply")
	}
	return linkRow, nil
}

func (s *service) RecordSuppression(ctx context.Context, in SuppressionRecord) error {
	if in.MessageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reason := in.Reason
		if err := repo.UpdateDecision(ctx, in.MessageID, enums.DecisionSuppress, &reason); err != nil {
			return err
		}
		if err := repo.MarkStatus(ctx, in.MessageID, enums.MessageStatusSuppressed); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReplySuppressed,
			AggregateType: enums.AggregateMessage,
			AggregateID:   in.MessageID,
			Merchant:      merchantRef(in.MerchantID, in.Channel),
			Version:       1,
			Data: payloads.ReplySuppressedEvent{
				MessageID:    in.MessageID,
				MerchantID:   in.MerchantID,
				Channel:      in.Channel,
				Intent:       in.Intent,
				Reason:       in.Reason,
				SuppressedAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record suppression")
	}
	return nil
}

func (s *service) MarkFailed(ctx context.Context, messageID uuid.UUID) error {
	if messageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	if err := s.repo.MarkStatus(ctx, messageID, enums.MessageStatusFailed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark message failed")
	}
	return nil
}

func (s *service) RecordClick(ctx context.Context, linkID string, clickedAt time.Time) error {
	link, err := s.findLink(ctx, linkID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.IncrementClick(ctx, link.ID, clickedAt)
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLinkClicked,
			AggregateType: enums.AggregateLink,
			AggregateID:   link.ID,
			Merchant:      &outbox.MerchantRef{MerchantID: link.MerchantID},
			Version:       1,
			Data: payloads.LinkClickedEvent{
				LinkSentID: link.ID,
				MerchantID: link.MerchantID,
				LinkID:     link.LinkID,
				Kind:       link.Kind,
				ClickCount: count,
				ClickedAt:  clickedAt,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record click")
	}
	return nil
}

// AttributeOrder correlates a storefront order back to the link that drove
// it. Repeated webhooks for an already attributed link are no-ops.
func (s *service) AttributeOrder(ctx context.Context, linkID, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	link, err := s.findLink(ctx, linkID)
	if err != nil {
		return err
	}
	if link.OrderID != nil {
		return nil
	}

	attributedAt := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.MarkAttributed(ctx, link.ID, orderID, attributedAt); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAttributed,
			AggregateType: enums.AggregateLink,
			AggregateID:   link.ID,
			Merchant:      &outbox.MerchantRef{MerchantID: link.MerchantID},
			Version:       1,
			Data: payloads.OrderAttributedEvent{
				LinkSentID:   link.ID,
				MessageID:    link.MessageID,
				MerchantID:   link.MerchantID,
				OrderID:      orderID,
				AttributedAt: attributedAt,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attribute order")
	}
	return nil
}

// ConversationContext loads recent history with this sender plus the last
// link already sent to them, for reply generation.
func (s *service) ConversationContext(ctx context.Context, merchantID uuid.UUID, senderID string, limit int) ([]models.Message, *models.LinkSent, error) {
	if merchantID == uuid.Nil || strings.TrimSpace(senderID) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id and sender id are required")
	}
	history, err := s.repo.ListRecentBySender(ctx, merchantID, senderID, limit)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation history")
	}
	lastLink, err := s.repo.FindLastLinkForSender(ctx, merchantID, senderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prior link")
	}
	return history, lastLink, nil
}

func (s *service) ListMessages(ctx context.Context, merchantID uuid.UUID, params pagination.Params) (*MessagePage, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListMessages(ctx, merchantID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}

	page := &MessagePage{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *service) findLink(ctx context.Context, linkID string) (*models.LinkSent, error) {
	if strings.TrimSpace(linkID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "link id is required")
	}
	link, err := s.repo.FindByLinkID(ctx, linkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link")
	}
	return link, nil
}

func merchantRef(merchantID uuid.UUID, channel enums.Channel) *outbox.MerchantRef {
	return &outbox.MerchantRef{MerchantID: merchantID, Channel: channel.String()}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
