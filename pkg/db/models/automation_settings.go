package models

import (
	"time"

	"github.com/google/uuid"
)

// AutomationSettings stores the merchant's channel toggles. Per-post state
// lives in PostOverride rows; no rows means every post is enabled.
type AutomationSettings struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID     uuid.UUID `gorm:"column:merchant_id;type:uuid;not null;unique"`
	DMEnabled      bool      `gorm:"column:dm_enabled;not null;default:true"`
	CommentEnabled bool      `gorm:"column:comment_enabled;not null;default:true"`
	BrandVoice     string    `gorm:"column:brand_voice;not null;default:''"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PostOverride is an explicit per-post automation toggle. The settings model
// is opt-out: a post with no override row is automated.
type PostOverride struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID uuid.UUID `gorm:"column:merchant_id;type:uuid;not null;uniqueIndex:ux_post_overrides_merchant_media"`
	MediaID    string    `gorm:"column:media_id;not null;uniqueIndex:ux_post_overrides_merchant_media"`
	Enabled    bool      `gorm:"column:enabled;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
