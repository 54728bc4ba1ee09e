package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/meta"
	pkgretry "github.com/replyflow/replyflow-backend/pkg/retry"
)

type credentialsRepository interface {
	FindByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.SocialAuth, error)
	FindByBusinessAccount(ctx context.Context, businessAccountID string) (*models.SocialAuth, error)
	Upsert(ctx context.Context, row *models.SocialAuth) error
	UpdateToken(ctx context.Context, merchantID uuid.UUID, token string, expiresAt time.Time) error
	MarkInvalid(ctx context.Context, merchantID uuid.UUID) error
	DeleteByMerchant(ctx context.Context, merchantID uuid.UUID) error
}

type tokenExchanger interface {
	ExchangeToken(ctx context.Context, currentToken string, pageLogin bool) (*meta.ExchangedToken, error)
	IsSubscribed(ctx context.Context, accessToken, pageID string) (bool, error)
	Subscribe(ctx context.Context, accessToken, pageID string) error
}

// ConnectInput carries the credential produced by the provider OAuth flow.
type ConnectInput struct {
	PageID            string
	BusinessAccountID string
	AccessToken       string
	TokenExpiresAt    *time.Time
	Variant           enums.AuthVariant
}

// Service exposes the credential store and refresher.
type Service interface {
	Connect(ctx context.Context, merchantID uuid.UUID, input ConnectInput) (*models.SocialAuth, error)
	Disconnect(ctx context.Context, merchantID uuid.UUID) error
	DeleteByMerchant(ctx context.Context, merchantID uuid.UUID) error
	Status(ctx context.Context, merchantID uuid.UUID) (*models.SocialAuth, error)
	GetValidCredential(ctx context.Context, merchantID uuid.UUID) (*models.SocialAuth, error)
	MerchantForBusinessAccount(ctx context.Context, businessAccountID string) (uuid.UUID, error)
}

type service struct {
	repo          credentialsRepository
	exchanger     tokenExchanger
	refreshWindow time.Duration
	flight        singleflight.Group
	logg          *logger.Logger
}

// NewService builds the credential service. refreshWindow is how far before
// expiry a token is proactively exchanged.
func NewService(repo credentialsRepository, exchanger tokenExchanger, refreshWindow time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("credentials repository required")
	}
	if exchanger == nil {
		return nil, fmt.Errorf("token exchanger required")
	}
	if refreshWindow <= 0 {
		return nil, fmt.Errorf("refresh window must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:          repo,
		exchanger:     exchanger,
		refreshWindow: refreshWindow,
		logg:          logg,
	}, nil
}

// Connect stores the credential and makes sure the app receives webhook
// events for the page.
func (s *service) Connect(ctx context.Context, merchantID uuid.UUID, input ConnectInput) (*models.SocialAuth, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if strings.TrimSpace(input.PageID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page id is required")
	}
	if strings.TrimSpace(input.BusinessAccountID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business account id is required")
	}
	if strings.TrimSpace(input.AccessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access token is required")
	}
	if !input.Variant.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid auth variant")
	}

	subscribed, err := s.exchanger.IsSubscribed(ctx, input.AccessToken, input.PageID)
	if err != nil {
		return nil, err
	}
	if !subscribed {
		if err := s.exchanger.Subscribe(ctx, input.AccessToken, input.PageID); err != nil {
			return nil, err
		}
	}

	row := &models.SocialAuth{
		MerchantID:        merchantID,
		PageID:            input.PageID,
		BusinessAccountID: input.BusinessAccountID,
		AccessToken:       input.AccessToken,
		TokenExpiresAt:    input.TokenExpiresAt,
		Variant:           input.Variant,
		Invalid:           false,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save credential")
	}

	logCtx := s.logg.WithMerchantID(ctx, merchantID.String())
	s.logg.Info(logCtx, "messaging account connected")
	return row, nil
}

func (s *service) Disconnect(ctx context.Context, merchantID uuid.UUID) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	return s.DeleteByMerchant(ctx, merchantID)
}

func (s *service) DeleteByMerchant(ctx context.Context, merchantID uuid.UUID) error {
	if err := s.repo.DeleteByMerchant(ctx, merchantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete credential")
	}
	return nil
}

func (s *service) Status(ctx context.Context, merchantID uuid.UUID) (*models.SocialAuth, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	row, err := s.repo.FindByMerchant(ctx, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotConnected, "no messaging account connected")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credential")
	}
	return row, nil
}

// MerchantForBusinessAccount resolves which merchant owns a webhook target
// account.
func (s *service) MerchantForBusinessAccount(ctx context.Context, businessAccountID string) (uuid.UUID, error) {
	if strings.TrimSpace(businessAccountID) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "business account id is required")
	}
	row, err := s.repo.FindByBusinessAccount(ctx, businessAccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotConnected, "no merchant for business account")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve business account")
	}
	return row.MerchantID, nil
}

// GetValidCredential returns a usable credential, refreshing the token when
// it is inside the expiry window. Refresh is single-flight per merchant so
// concurrent pipeline events share one exchange call.
func (s *service) GetValidCredential(ctx context.Context, merchantID uuid.UUID) (*models.SocialAuth, error) {
	cred, err := s.Status(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if cred.Invalid {
		return nil, pkgerrors.New(pkgerrors.CodeReauthRequired, "credential is invalid")
	}
	if !s.needsRefresh(cred) {
		return cred, nil
	}

	result, err, _ := s.flight.Do(merchantID.String(), func() (any, error) {
		return s.refresh(ctx, cred)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.SocialAuth), nil
}

func (s *service) needsRefresh(cred *models.SocialAuth) bool {
	if cred.TokenExpiresAt == nil {
		// Long-lived page tokens carry no expiry.
		return false
	}
	return time.Until(*cred.TokenExpiresAt) < s.refreshWindow
}

func (s *service) refresh(ctx context.Context, cred *models.SocialAuth) (*models.SocialAuth, error) {
	pageLogin := cred.Variant == enums.AuthVariantPageLogin

	var exchanged *meta.ExchangedToken
	err := pkgretry.Do(ctx, pkgretry.Default, pkgretry.ByErrorCode, func(ctx context.Context) error {
		token, err := s.exchanger.ExchangeToken(ctx, cred.AccessToken, pageLogin)
		if err != nil {
			return err
		}
		exchanged = token
		return nil
	})
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeReauthRequired {
			if markErr := s.repo.MarkInvalid(ctx, cred.MerchantID); markErr != nil {
				logCtx := s.logg.WithMerchantID(ctx, cred.MerchantID.String())
				s.logg.Error(logCtx, "mark credential invalid", markErr)
			}
			return nil, err
		}
		if typed != nil && pkgerrors.MetadataFor(typed.Code()).Retryable {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTemporarilyUnavailable, err, "token exchange unavailable")
		}
		return nil, err
	}

	if err := s.repo.UpdateToken(ctx, cred.MerchantID, exchanged.AccessToken, exchanged.ExpiresAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist refreshed token")
	}

	refreshed := *cred
	refreshed.AccessToken = exchanged.AccessToken
	expiresAt := exchanged.ExpiresAt
	refreshed.TokenExpiresAt = &expiresAt
	refreshed.Invalid = false

	logCtx := s.logg.WithMerchantID(ctx, cred.MerchantID.String())
	s.logg.Info(logCtx, "credential refreshed")
	return &refreshed, nil
}
