package mappings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

type mappingsRepository interface {
	FindByMedia(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error)
	Upsert(ctx context.Context, row *models.ProductMapping) error
	Delete(ctx context.Context, merchantID uuid.UUID, mediaID string) error
	List(ctx context.Context, merchantID uuid.UUID) ([]models.ProductMapping, error)
}

// CatalogProduct is the storefront's view of a product, enough to auto-fill
// a variant and build links later.
type CatalogProduct struct {
	ID           string
	Handle       string
	VariantIDs   []string
	VariantCount int
}

type catalogClient interface {
	Product(ctx context.Context, merchantID uuid.UUID, productID string) (*CatalogProduct, error)
}

// UpsertInput is the merchant's mapping submission. VariantID may be empty;
// the product's first variant is filled in.
type UpsertInput struct {
	MediaID   string
	ProductID string
	VariantID string
}

// Service exposes the post-to-product mapping semantics.
type Service interface {
	Upsert(ctx context.Context, merchantID uuid.UUID, input UpsertInput) (*models.ProductMapping, error)
	Get(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error)
	Resolve(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error)
	Delete(ctx context.Context, merchantID uuid.UUID, mediaID string) error
	List(ctx context.Context, merchantID uuid.UUID) ([]models.ProductMapping, error)
}

type service struct {
	repo    mappingsRepository
	catalog catalogClient
}

// NewService builds a mappings service backed by the repository and the
// storefront catalog client.
func NewService(repo mappingsRepository, catalog catalogClient) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("mappings repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	return &service{repo: repo, catalog: catalog}, nil
}

// Upsert saves the mapping. An omitted variant is auto-filled with the
// product's first variant and marked implicit; a previously explicit variant
// choice is never overwritten by auto-fill.
func (s *service) Upsert(ctx context.Context, merchantID uuid.UUID, input UpsertInput) (*models.ProductMapping, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	mediaID := strings.TrimSpace(input.MediaID)
	if mediaID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.catalog.Product(ctx, merchantID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product == nil || len(product.VariantIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no variants")
	}

	variantID := strings.TrimSpace(input.VariantID)
	explicit := variantID != ""
	if explicit && !containsVariant(product.VariantIDs, variantID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}

	if !explicit {
		variantID = product.VariantIDs[0]
		existing, err := s.repo.FindByMedia(ctx, merchantID, mediaID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup mapping")
		}
		if existing != nil && existing.VariantExplicit && existing.ProductID == productID {
			variantID = existing.VariantID
			explicit = true
		}
	}

	row := &models.ProductMapping{
		MerchantID:      merchantID,
		MediaID:         mediaID,
		ProductID:       productID,
		VariantID:       variantID,
		VariantExplicit: explicit,
		ProductHandle:   product.Handle,
		VariantCount:    variantCount(product),
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save mapping")
	}
	return row, nil
}

func (s *service) Get(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	row, err := s.repo.FindByMedia(ctx, merchantID, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "mapping not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup mapping")
	}
	return row, nil
}

// Resolve is the pipeline's lookup: a missing mapping is nil, not an error.
func (s *service) Resolve(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error) {
	mediaID = strings.TrimSpace(mediaID)
	if merchantID == uuid.Nil || mediaID == "" {
		return nil, nil
	}
	row, err := s.repo.FindByMedia(ctx, merchantID, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup mapping")
	}
	return row, nil
}

func (s *service) Delete(ctx context.Context, merchantID uuid.UUID, mediaID string) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	if err := s.repo.Delete(ctx, merchantID, mediaID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete mapping")
	}
	return nil
}

func (s *service) List(ctx context.Context, merchantID uuid.UUID) ([]models.ProductMapping, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	rows, err := s.repo.List(ctx, merchantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list mappings")
	}
	return rows, nil
}

func containsVariant(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func variantCount(product *CatalogProduct) int {
	if product.VariantCount > 0 {
		return product.VariantCount
	}
	return len(product.VariantIDs)
}
