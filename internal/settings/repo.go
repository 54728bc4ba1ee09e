package settings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
)

// Repository exposes automation settings persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a settings repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByMerchant loads the merchant's channel toggles.
func (r *Repository) FindByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.AutomationSettings, error) {
	var row models.AutomationSettings
	if err := r.db.WithContext(ctx).First(&row, "merchant_id = ?", merchantID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the channel toggles, one row per merchant.
func (r *Repository) Upsert(ctx context.Context, row *models.AutomationSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dm_enabled", "comment_enabled", "brand_voice", "updated_at"}),
	}).Create(row).Error
}

// FindOverride loads the per-post override for one media id, if present.
func (r *Repository) FindOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.PostOverride, error) {
	var row models.PostOverride
	if err := r.db.WithContext(ctx).
		First(&row, "merchant_id = ? AND media_id = ?", merchantID, mediaID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertOverride writes the per-post toggle keyed by (merchant, media).
func (r *Repository) UpsertOverride(ctx context.Context, row *models.PostOverride) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "media_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
	}).Create(row).Error
}

// DeleteOverride removes the per-post toggle so the post follows the default.
func (r *Repository) DeleteOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) error {
	return r.db.WithContext(ctx).
		Where("merchant_id = ? AND media_id = ?", merchantID, mediaID).
		Delete(&models.PostOverride{}).Error
}

// CountEnabledOverrides returns how many posts are explicitly enabled.
func (r *Repository) CountEnabledOverrides(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostOverride{}).
		Where("merchant_id = ? AND enabled = ?", merchantID, true).
		Count(&count).Error
	return count, err
}

// ListOverrides returns every per-post toggle for the merchant.
func (r *Repository) ListOverrides(ctx context.Context, merchantID uuid.UUID) ([]models.PostOverride, error) {
	var rows []models.PostOverride
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
