package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductMapping associates a social post with a storefront product. A mapping
// always carries a resolvable variant id; when the merchant does not pick one
// the product's first variant is filled in and VariantExplicit stays false so
// a later re-save never clobbers an explicit choice.
type ProductMapping struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID      uuid.UUID `gorm:"column:merchant_id;type:uuid;not null;uniqueIndex:ux_product_mappings_merchant_media"`
	MediaID         string    `gorm:"column:media_id;not null;uniqueIndex:ux_product_mappings_merchant_media"`
	ProductID       string    `gorm:"column:product_id;not null"`
	VariantID       string    `gorm:"column:variant_id;not null"`
	VariantExplicit bool      `gorm:"column:variant_explicit;not null;default:false"`
	ProductHandle   string    `gorm:"column:product_handle"`
	VariantCount    int       `gorm:"column:variant_count;not null;default:1"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
