package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// LinkSent records exactly one trackable link per dispatched reply. Clicks and
// storefront orders correlate back through LinkID.
type LinkSent struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LinkID       string         `gorm:"column:link_id;not null;uniqueIndex:ux_links_sent_link_id"`
	MessageID    uuid.UUID      `gorm:"column:message_id;type:uuid;not null;uniqueIndex:ux_links_sent_message_id"`
	MerchantID   uuid.UUID      `gorm:"column:merchant_id;type:uuid;not null;index"`
	Kind         enums.LinkKind `gorm:"column:kind;type:link_kind;not null"`
	TargetURL    string         `gorm:"column:target_url;not null"`
	ReplyText    string         `gorm:"column:reply_text;not null"`
	ProductID    string         `gorm:"column:product_id;not null"`
	VariantID    string         `gorm:"column:variant_id;not null"`
	ClickCount   int            `gorm:"column:click_count;not null;default:0"`
	LastClickAt  *time.Time     `gorm:"column:last_click_at"`
	OrderID      *string        `gorm:"column:order_id"`
	AttributedAt *time.Time     `gorm:"column:attributed_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}
