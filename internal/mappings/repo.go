package mappings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
)

// Repository exposes product mapping persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a mappings repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByMedia loads the mapping for one (merchant, media) pair.
func (r *Repository) FindByMedia(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error) {
	var row models.ProductMapping
	if err := r.db.WithContext(ctx).
		First(&row, "merchant_id = ? AND media_id = ?", merchantID, mediaID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the mapping keyed by (merchant, media).
func (r *Repository) Upsert(ctx context.Context, row *models.ProductMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "merchant_id"}, {Name: "media_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_id", "variant_id", "variant_explicit", "product_handle", "variant_count", "updated_at",
		}),
	}).Create(row).Error
}

// Delete removes the mapping for one media id.
func (r *Repository) Delete(ctx context.Context, merchantID uuid.UUID, mediaID string) error {
	return r.db.WithContext(ctx).
		Where("merchant_id = ? AND media_id = ?", merchantID, mediaID).
		Delete(&models.ProductMapping{}).Error
}

// List returns all mappings for the merchant.
func (r *Repository) List(ctx context.Context, merchantID uuid.UUID) ([]models.ProductMapping, error) {
	var rows []models.ProductMapping
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
