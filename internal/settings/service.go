package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

type settingsRepository interface {
	FindByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.AutomationSettings, error)
	Upsert(ctx context.Context, row *models.AutomationSettings) error
	FindOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.PostOverride, error)
	UpsertOverride(ctx context.Context, row *models.PostOverride) error
	DeleteOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) error
	CountEnabledOverrides(ctx context.Context, merchantID uuid.UUID) (int64, error)
	ListOverrides(ctx context.Context, merchantID uuid.UUID) ([]models.PostOverride, error)
}

// Toggles is the projection of the merchant's automation switches. BrandVoice
// is free-form tone guidance applied at reply generation on plans that allow
// it.
type Toggles struct {
	DMEnabled      bool
	CommentEnabled bool
	BrandVoice     string
}

// Service exposes the merchant automation toggle model. Automation defaults
// to on: a merchant with no settings row and no overrides automates every
// channel and every post.
type Service interface {
	GetToggles(ctx context.Context, merchantID uuid.UUID) (Toggles, error)
	UpdateToggles(ctx context.Context, merchantID uuid.UUID, toggles Toggles) error
	ChannelEnabled(ctx context.Context, merchantID uuid.UUID, channel enums.Channel) (bool, error)
	PostEnabled(ctx context.Context, merchantID uuid.UUID, mediaID string) (bool, error)
	SetPostOverride(ctx context.Context, merchantID uuid.UUID, mediaID string, enabled bool) error
	ClearPostOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) error
	ListOverrides(ctx context.Context, merchantID uuid.UUID) ([]models.PostOverride, error)
}

type service struct {
	repo settingsRepository
}

// NewService builds a settings service backed by the provided repository.
func NewService(repo settingsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetToggles(ctx context.Context, merchantID uuid.UUID) (Toggles, error) {
	if merchantID == uuid.Nil {
		return Toggles{}, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	row, err := s.repo.FindByMerchant(ctx, merchantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Toggles{DMEnabled: true, CommentEnabled: true}, nil
		}
		return Toggles{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return Toggles{
		DMEnabled:      row.DMEnabled,
		CommentEnabled: row.CommentEnabled,
		BrandVoice:     row.BrandVoice,
	}, nil
}

func (s *service) UpdateToggles(ctx context.Context, merchantID uuid.UUID, toggles Toggles) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	row := &models.AutomationSettings{
		MerchantID:     merchantID,
		DMEnabled:      toggles.DMEnabled,
		CommentEnabled: toggles.CommentEnabled,
		BrandVoice:     strings.TrimSpace(toggles.BrandVoice),
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
	}
	return nil
}

func (s *service) ChannelEnabled(ctx context.Context, merchantID uuid.UUID, channel enums.Channel) (bool, error) {
	toggles, err := s.GetToggles(ctx, merchantID)
	if err != nil {
		return false, err
	}
	switch channel {
	case enums.ChannelDM:
		return toggles.DMEnabled, nil
	case enums.ChannelComment:
		return toggles.CommentEnabled, nil
	default:
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid channel")
	}
}

// PostEnabled resolves the per-post toggle. An explicit override wins; with
// no override, the post is disabled only when the merchant has narrowed
// automation to an explicit enabled set that excludes it.
func (s *service) PostEnabled(ctx context.Context, merchantID uuid.UUID, mediaID string) (bool, error) {
	if merchantID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		// DMs have no media id; the per-post model does not apply.
		return true, nil
	}

	override, err := s.repo.FindOverride(ctx, merchantID, mediaID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post override")
	}
	if override != nil {
		return override.Enabled, nil
	}

	enabledCount, err := s.repo.CountEnabledOverrides(ctx, merchantID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count post overrides")
	}
	return enabledCount == 0, nil
}

func (s *service) SetPostOverride(ctx context.Context, merchantID uuid.UUID, mediaID string, enabled bool) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	row := &models.PostOverride{
		MerchantID: merchantID,
		MediaID:    mediaID,
		Enabled:    enabled,
	}
	if err := s.repo.UpsertOverride(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save post override")
	}
	return nil
}

func (s *service) ClearPostOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "media id is required")
	}
	if err := s.repo.DeleteOverride(ctx, merchantID, mediaID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete post override")
	}
	return nil
}

func (s *service) ListOverrides(ctx context.Context, merchantID uuid.UUID) ([]models.PostOverride, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	rows, err := s.repo.ListOverrides(ctx, merchantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list post overrides")
	}
	return rows, nil
}
