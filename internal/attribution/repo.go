package attribution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	"github.com/replyflow/replyflow-backend/pkg/pagination"
)

// Repository persists the message audit log and sent-link rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateMessage(ctx context.Context, row *models.Message) error
	FindMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	FindByExternalEventID(ctx context.Context, externalEventID string) (*models.Message, error)
	UpdateClassification(ctx context.Context, id uuid.UUID, intent enums.Intent, confidence float64, sentiment enums.Sentiment) error
	UpdateDecision(ctx context.Context, id uuid.UUID, outcome enums.DecisionOutcome, reason *enums.DecisionReason) error
	AttachReply(ctx context.Context, id uuid.UUID, replyText, providerMessageID string, linkSentID *uuid.UUID) error
	SetProviderMessageID(ctx context.Context, externalEventID, providerMessageID string) error
	MarkStatus(ctx context.Context, id uuid.UUID, status enums.MessageStatus) error
	ListMessages(ctx context.Context, merchantID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Message, error)
	ListRecentBySender(ctx context.Context, merchantID uuid.UUID, senderID string, limit int) ([]models.Message, error)

	CreateLink(ctx context.Context, row *models.LinkSent) error
	FindByLinkID(ctx context.Context, linkID string) (*models.LinkSent, error)
	FindLastLinkForSender(ctx context.Context, merchantID uuid.UUID, senderID string) (*models.LinkSent, error)
	IncrementClick(ctx context.Context, id uuid.UUID, at time.Time) (int, error)
	MarkAttributed(ctx context.Context, id uuid.UUID, orderID string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed attribution repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateMessage(ctx context.Context, row *models.Message) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindMessageByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var row models.Message
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByExternalEventID(ctx context.Context, externalEventID string) (*models.Message, error) {
	var row models.Message
	if err := r.db.WithContext(ctx).
		First(&row, "external_event_id = ?", externalEventID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateClassification(ctx context.Context, id uuid.UUID, intent enums.Intent, confidence float64, sentiment enums.Sentiment) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"intent":     intent,
			"confidence": confidence,
			"sentiment":  sentiment,
			"status":     enums.MessageStatusClassified,
		}).Error
}

func (r *repository) UpdateDecision(ctx context.Context, id uuid.UUID, outcome enums.DecisionOutcome, reason *enums.DecisionReason) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"decision_outcome": outcome,
			"decision_reason":  reason,
		}).Error
}

func (r *repository) AttachReply(ctx context.Context, id uuid.UUID, replyText, providerMessageID string, linkSentID *uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reply_text":          replyText,
			"provider_message_id": providerMessageID,
			"link_sent_id":        linkSentID,
			"status":              enums.MessageStatusReplied,
		}).Error
}

// SetProviderMessageID pins the provider's id to the message row as soon as
// the send is accepted, ahead of the full reply record. The null check keeps
// a late write from clobbering an id recorded by a faster delivery.
func (r *repository) SetProviderMessageID(ctx context.Context, externalEventID, providerMessageID string) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("external_event_id = ? AND provider_message_id IS NULL", externalEventID).
		Update("provider_message_id", providerMessageID).Error
}

func (r *repository) MarkStatus(ctx context.Context, id uuid.UUID, status enums.MessageStatus) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) ListMessages(ctx context.Context, merchantID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Message, error) {
	query := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListRecentBySender(ctx context.Context, merchantID uuid.UUID, senderID string, limit int) ([]models.Message, error) {
	var rows []models.Message
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND sender_id = ?", merchantID, senderID).
		Order("received_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateLink(ctx context.Context, row *models.LinkSent) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) FindByLinkID(ctx context.Context, linkID string) (*models.LinkSent, error) {
	var row models.LinkSent
	if err := r.db.WithContext(ctx).First(&row, "link_id = ?", linkID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindLastLinkForSender(ctx context.Context, merchantID uuid.UUID, senderID string) (*models.LinkSent, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND sender_id = ? AND link_sent_id IS NOT NULL", merchantID, senderID).
		Order("received_at DESC").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	var row models.LinkSent
	if err := r.db.WithContext(ctx).First(&row, "id = ?", message.LinkSentID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) IncrementClick(ctx context.Context, id uuid.UUID, at time.Time) (int, error) {
	if err := r.db.WithContext(ctx).Model(&models.LinkSent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"click_count":   gorm.Expr("click_count + 1"),
			"last_click_at": at,
		}).Error; err != nil {
		return 0, err
	}
	var row models.LinkSent
	if err := r.db.WithContext(ctx).Select("click_count").First(&row, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return row.ClickCount, nil
}

func (r *repository) MarkAttributed(ctx context.Context, id uuid.UUID, orderID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.LinkSent{}).
		Where("id = ? AND order_id IS NULL", id).
		Updates(map[string]any{
			"order_id":      orderID,
			"attributed_at": at,
		}).Error
}
