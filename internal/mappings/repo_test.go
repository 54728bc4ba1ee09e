package mappings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
)

// mappingRow mirrors models.ProductMapping without the postgres uuid default,
// which sqlite cannot express.
type mappingRow struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID      uuid.UUID `gorm:"column:merchant_id;not null;uniqueIndex:ux_product_mappings_merchant_media"`
	MediaID         string    `gorm:"column:media_id;not null;uniqueIndex:ux_product_mappings_merchant_media"`
	ProductID       string    `gorm:"column:product_id;not null"`
	VariantID       string    `gorm:"column:variant_id;not null"`
	VariantExplicit bool      `gorm:"column:variant_explicit;not null;default:false"`
	ProductHandle   string    `gorm:"column:product_handle"`
	VariantCount    int       `gorm:"column:variant_count;not null;default:1"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (mappingRow) TableName() string { return "product_mappings" }

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&mappingRow{}))
	return NewRepository(conn)
}

func TestRepositoryUpsertReplacesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	merchantID := uuid.New()

	first := &models.ProductMapping{
		ID:         uuid.New(),
		MerchantID: merchantID,
		MediaID:    "media-1",
		ProductID:  "9001",
		VariantID:  "11",
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.ProductMapping{
		ID:              uuid.New(),
		MerchantID:      merchantID,
		MediaID:         "media-1",
		ProductID:       "9001",
		VariantID:       "12",
		VariantExplicit: true,
		ProductHandle:   "blue-hoodie",
		VariantCount:    2,
	}
	require.NoError(t, repo.Upsert(ctx, second))

	row, err := repo.FindByMedia(ctx, merchantID, "media-1")
	require.NoError(t, err)
	require.Equal(t, "12", row.VariantID)
	require.True(t, row.VariantExplicit)
	require.Equal(t, "blue-hoodie", row.ProductHandle)

	rows, err := repo.List(ctx, merchantID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRepositoryScopesByMerchant(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	merchantA := uuid.New()
	merchantB := uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.ProductMapping{
		ID:         uuid.New(),
		MerchantID: merchantA,
		MediaID:    "media-1",
		ProductID:  "1",
		VariantID:  "1",
	}))

	_, err := repo.FindByMedia(ctx, merchantB, "media-1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, merchantB, "media-1"))

	rows, err := repo.List(ctx, merchantA)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
