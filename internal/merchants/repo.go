package merchants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

// Repository exposes merchant account persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a merchant repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new merchant account row.
func (r *Repository) Create(ctx context.Context, merchant *models.MerchantAccount) (*models.MerchantAccount, error) {
	if err := r.db.WithContext(ctx).Create(merchant).Error; err != nil {
		return nil, err
	}
	return merchant, nil
}

// FindByID loads a merchant account by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MerchantAccount, error) {
	var row models.MerchantAccount
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByDomain loads a merchant account by storefront domain.
func (r *Repository) FindByDomain(ctx context.Context, domain string) (*models.MerchantAccount, error) {
	var row models.MerchantAccount
	if err := r.db.WithContext(ctx).First(&row, "storefront_domain = ?", domain).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Update persists the merchant account fields.
func (r *Repository) Update(ctx context.Context, merchant *models.MerchantAccount) error {
	return r.db.WithContext(ctx).Save(merchant).Error
}

// Deactivate flips the merchant inactive and stamps the uninstall time.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.MerchantAccount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active":         false,
			"uninstalled_at": at,
		}).Error
}

// UpdatePlan sets the merchant's plan tier.
func (r *Repository) UpdatePlan(ctx context.Context, id uuid.UUID, tier enums.PlanTier) error {
	return r.db.WithContext(ctx).Model(&models.MerchantAccount{}).
		Where("id = ?", id).
		Update("plan_tier", tier).Error
}
