package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// SocialAuth holds the merchant's messaging-provider credential. One row per
// merchant; mutated only by refresh and disconnect, deleted on disconnect or
// uninstall.
type SocialAuth struct {
	ID                uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID        uuid.UUID         `gorm:"column:merchant_id;type:uuid;not null;unique"`
	PageID            string            `gorm:"column:page_id;not null"`
	BusinessAccountID string            `gorm:"column:business_account_id;not null;index"`
	AccessToken       string            `gorm:"column:access_token;not null"`
	TokenExpiresAt    *time.Time        `gorm:"column:token_expires_at"`
	Variant           enums.AuthVariant `gorm:"column:variant;type:auth_variant;not null"`
	Invalid           bool              `gorm:"column:invalid;not null;default:false"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
