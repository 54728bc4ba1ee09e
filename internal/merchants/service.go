package merchants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type merchantsRepository interface {
	Create(ctx context.Context, merchant *models.MerchantAccount) (*models.MerchantAccount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.MerchantAccount, error)
	FindByDomain(ctx context.Context, domain string) (*models.MerchantAccount, error)
	Update(ctx context.Context, merchant *models.MerchantAccount) error
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePlan(ctx context.Context, id uuid.UUID, tier enums.PlanTier) error
}

type credentialsRemover interface {
	DeleteByMerchant(ctx context.Context, merchantID uuid.UUID) error
}

// Service exposes merchant install, uninstall, and plan semantics.
type Service interface {
	Install(ctx context.Context, domain string) (*models.MerchantAccount, error)
	Uninstall(ctx context.Context, merchantID uuid.UUID) error
	Get(ctx context.Context, merchantID uuid.UUID) (*models.MerchantAccount, error)
	GetByDomain(ctx context.Context, domain string) (*models.MerchantAccount, error)
	ChangePlan(ctx context.Context, merchantID uuid.UUID, tier enums.PlanTier) (*models.MerchantAccount, error)
}

type service struct {
	repo        merchantsRepository
	credentials credentialsRemover
	logg        *logger.Logger
}

// NewService builds a merchant service backed by the provided repository.
func NewService(repo merchantsRepository, credentials credentialsRemover, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("merchant repository required")
	}
	if credentials == nil {
		return nil, fmt.Errorf("credentials remover required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, credentials: credentials, logg: logg}, nil
}

// Install creates the merchant account on first install and reactivates the
// existing row on reinstall. Message history survives reinstalls.
func (s *service) Install(ctx context.Context, domain string) (*models.MerchantAccount, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storefront domain is required")
	}

	existing, err := s.repo.FindByDomain(ctx, domain)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup merchant")
	}
	if existing != nil {
		if existing.Active {
			return existing, nil
		}
		existing.Active = true
		existing.UninstalledAt = nil
		existing.InstalledAt = time.Now()
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate merchant")
		}
		logCtx := s.logg.WithMerchantID(ctx, existing.ID.String())
		s.logg.Info(logCtx, "merchant reinstalled")
		return existing, nil
	}

	merchant := &models.MerchantAccount{
		StorefrontDomain: domain,
		Active:           true,
		PlanTier:         enums.PlanTierFree,
		InstalledAt:      time.Now(),
	}
	created, err := s.repo.Create(ctx, merchant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create merchant")
	}
	logCtx := s.logg.WithMerchantID(ctx, created.ID.String())
	s.logg.Info(logCtx, "merchant installed")
	return created, nil
}

// Uninstall deactivates the merchant and removes its messaging credential.
// The account row and message history are retained.
func (s *service) Uninstall(ctx context.Context, merchantID uuid.UUID) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}

	merchant, err := s.repo.FindByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup merchant")
	}
	if !merchant.Active {
		return nil
	}

	if err := s.repo.Deactivate(ctx, merchantID, time.Now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate merchant")
	}
	if err := s.credentials.DeleteByMerchant(ctx, merchantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove credential")
	}

	logCtx := s.logg.WithMerchantID(ctx, merchantID.String())
	s.logg.Info(logCtx, "merchant uninstalled")
	return nil
}

func (s *service) Get(ctx context.Context, merchantID uuid.UUID) (*models.MerchantAccount, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	merchant, err := s.repo.FindByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup merchant")
	}
	return merchant, nil
}

func (s *service) GetByDomain(ctx context.Context, domain string) (*models.MerchantAccount, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storefront domain is required")
	}
	merchant, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup merchant")
	}
	return merchant, nil
}

func (s *service) ChangePlan(ctx context.Context, merchantID uuid.UUID, tier enums.PlanTier) (*models.MerchantAccount, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if !tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan tier")
	}

	merchant, err := s.repo.FindByID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup merchant")
	}
	if !merchant.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "merchant is not active")
	}
	if merchant.PlanTier == tier {
		return merchant, nil
	}

	if err := s.repo.UpdatePlan(ctx, merchantID, tier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan tier")
	}
	merchant.PlanTier = tier
	return merchant, nil
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimSuffix(domain, "/")
}
