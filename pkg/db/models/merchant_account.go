package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// MerchantAccount is created on platform install and deactivated, never
// deleted, on uninstall.
type MerchantAccount struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StorefrontDomain string         `gorm:"column:storefront_domain;not null;unique"`
	Active           bool           `gorm:"column:active;not null;default:true"`
	PlanTier         enums.PlanTier `gorm:"column:plan_tier;type:plan_tier;not null;default:'FREE'"`
	InstalledAt      time.Time      `gorm:"column:installed_at;not null"`
	UninstalledAt    *time.Time     `gorm:"column:uninstalled_at"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
