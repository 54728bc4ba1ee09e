package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// Message is the append-only log row for every inbound event, suppressed or
// not. Classification and reply metadata are attached as the pipeline
// progresses; nothing else is ever mutated.
type Message struct {
	ID                uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID        uuid.UUID              `gorm:"column:merchant_id;type:uuid;not null;index"`
	Channel           enums.Channel          `gorm:"column:channel;type:channel;not null"`
	ExternalEventID   string                 `gorm:"column:external_event_id;not null;uniqueIndex:ux_messages_external_event_id"`
	SenderID          string                 `gorm:"column:sender_id;not null"`
	BusinessAccountID string                 `gorm:"column:business_account_id;not null"`
	MediaID           *string                `gorm:"column:media_id"`
	Text              string                 `gorm:"column:text;not null"`
	ReceivedAt        time.Time              `gorm:"column:received_at;not null"`
	Status            enums.MessageStatus    `gorm:"column:status;type:message_status;not null;default:'received'"`
	Intent            *enums.Intent          `gorm:"column:intent;type:intent"`
	Confidence        *float64               `gorm:"column:confidence"`
	Sentiment         *enums.Sentiment       `gorm:"column:sentiment;type:sentiment"`
	DecisionOutcome   *enums.DecisionOutcome `gorm:"column:decision_outcome;type:decision_outcome"`
	DecisionReason    *enums.DecisionReason  `gorm:"column:decision_reason;type:decision_reason"`
	ReplyText         *string                `gorm:"column:reply_text"`
	ProviderMessageID *string                `gorm:"column:provider_message_id"`
	LinkSentID        *uuid.UUID             `gorm:"column:link_sent_id;type:uuid"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
