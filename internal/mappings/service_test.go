package mappings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

type stubMappingsRepo struct {
	existing *models.ProductMapping
	upserted *models.ProductMapping
	deleted  string
	err      error
}

func (s *stubMappingsRepo) FindByMedia(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existing, nil
}

func (s *stubMappingsRepo) Upsert(ctx context.Context, row *models.ProductMapping) error {
	s.upserted = row
	return s.err
}

func (s *stubMappingsRepo) Delete(ctx context.Context, merchantID uuid.UUID, mediaID string) error {
	s.deleted = mediaID
	return s.err
}

func (s *stubMappingsRepo) List(ctx context.Context, merchantID uuid.UUID) ([]models.ProductMapping, error) {
	return nil, s.err
}

type stubCatalog struct {
	product *CatalogProduct
	err     error
	calls   int
}

func (s *stubCatalog) Product(ctx context.Context, merchantID uuid.UUID, productID string) (*CatalogProduct, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func newService(t *testing.T, repo *stubMappingsRepo, catalog *stubCatalog) Service {
	t.Helper()
	svc, err := NewService(repo, catalog)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestUpsertAutoFillsFirstVariant(t *testing.T) {
	repo := &stubMappingsRepo{}
	catalog := &stubCatalog{product: &CatalogProduct{
		ID:         "prod-1",
		Handle:     "summer-tote",
		VariantIDs: []string{"var-1", "var-2"},
	}}
	svc := newService(t, repo, catalog)

	row, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{MediaID: "media-1", ProductID: "prod-1"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if row.VariantID != "var-1" {
		t.Fatalf("expected first variant, got %q", row.VariantID)
	}
	if row.VariantExplicit {
		t.Fatalf("auto-filled variant must stay implicit")
	}
	if row.VariantCount != 2 {
		t.Fatalf("expected variant count 2, got %d", row.VariantCount)
	}
	if row.ProductHandle != "summer-tote" {
		t.Fatalf("expected cached handle, got %q", row.ProductHandle)
	}
}

func TestUpsertExplicitVariant(t *testing.T) {
	repo := &stubMappingsRepo{}
	catalog := &stubCatalog{product: &CatalogProduct{
		ID:         "prod-1",
		VariantIDs: []string{"var-1", "var-2"},
	}}
	svc := newService(t, repo, catalog)

	row, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{
		MediaID:   "media-1",
		ProductID: "prod-1",
		VariantID: "var-2",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if row.VariantID != "var-2" || !row.VariantExplicit {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestUpsertRejectsForeignVariant(t *testing.T) {
	catalog := &stubCatalog{product: &CatalogProduct{ID: "prod-1", VariantIDs: []string{"var-1"}}}
	svc := newService(t, &stubMappingsRepo{}, catalog)

	_, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{
		MediaID:   "media-1",
		ProductID: "prod-1",
		VariantID: "other-var",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertPreservesExplicitChoiceOnResave(t *testing.T) {
	// A re-save without a variant must not clobber an earlier explicit pick.
	repo := &stubMappingsRepo{existing: &models.ProductMapping{
		ProductID:       "prod-1",
		VariantID:       "var-2",
		VariantExplicit: true,
	}}
	catalog := &stubCatalog{product: &CatalogProduct{
		ID:         "prod-1",
		VariantIDs: []string{"var-1", "var-2"},
	}}
	svc := newService(t, repo, catalog)

	row, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{MediaID: "media-1", ProductID: "prod-1"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if row.VariantID != "var-2" || !row.VariantExplicit {
		t.Fatalf("explicit choice was clobbered: %+v", row)
	}
}

func TestUpsertNewProductResetsVariant(t *testing.T) {
	// Mapping to a different product abandons the old explicit choice.
	repo := &stubMappingsRepo{existing: &models.ProductMapping{
		ProductID:       "prod-old",
		VariantID:       "old-var",
		VariantExplicit: true,
	}}
	catalog := &stubCatalog{product: &CatalogProduct{
		ID:         "prod-new",
		VariantIDs: []string{"new-var"},
	}}
	svc := newService(t, repo, catalog)

	row, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{MediaID: "media-1", ProductID: "prod-new"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if row.VariantID != "new-var" || row.VariantExplicit {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestResolveMissingMappingIsNil(t *testing.T) {
	svc := newService(t, &stubMappingsRepo{}, &stubCatalog{product: &CatalogProduct{VariantIDs: []string{"v"}}})

	row, err := svc.Resolve(context.Background(), uuid.New(), "media-unknown")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil mapping, got %+v", row)
	}
}

func TestResolveEmptyMediaID(t *testing.T) {
	svc := newService(t, &stubMappingsRepo{}, &stubCatalog{product: &CatalogProduct{VariantIDs: []string{"v"}}})

	row, err := svc.Resolve(context.Background(), uuid.New(), "")
	if err != nil || row != nil {
		t.Fatalf("dm-style lookup should be nil/nil, got %v %v", row, err)
	}
}
