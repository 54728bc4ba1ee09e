package credentials

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
)

// Repository exposes social auth credential persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a credentials repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByMerchant loads the merchant's credential.
func (r *Repository) FindByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.SocialAuth, error) {
	var row models.SocialAuth
	if err := r.db.WithContext(ctx).First(&row, "merchant_id = ?", merchantID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByBusinessAccount resolves the credential owning a webhook target
// account.
func (r *Repository) FindByBusinessAccount(ctx context.Context, businessAccountID string) (*models.SocialAuth, error) {
	var row models.SocialAuth
	if err := r.db.WithContext(ctx).First(&row, "business_account_id = ?", businessAccountID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the credential, one row per merchant.
func (r *Repository) Upsert(ctx context.Context, row *models.SocialAuth) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "merchant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"page_id", "business_account_id", "access_token", "token_expires_at", "variant", "invalid", "updated_at",
		}),
	}).Create(row).Error
}

// UpdateToken persists a refreshed token and clears the invalid flag.
func (r *Repository) UpdateToken(ctx context.Context, merchantID uuid.UUID, token string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.SocialAuth{}).
		Where("merchant_id = ?", merchantID).
		Updates(map[string]any{
			"access_token":     token,
			"token_expires_at": expiresAt,
			"invalid":          false,
		}).Error
}

// MarkInvalid flags the credential as permanently unusable.
func (r *Repository) MarkInvalid(ctx context.Context, merchantID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.SocialAuth{}).
		Where("merchant_id = ?", merchantID).
		Update("invalid", true).Error
}

// DeleteByMerchant removes the credential row.
func (r *Repository) DeleteByMerchant(ctx context.Context, merchantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Delete(&models.SocialAuth{}).Error
}
