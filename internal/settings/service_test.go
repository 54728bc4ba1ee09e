package settings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

type stubSettingsRepo struct {
	settings     *models.AutomationSettings
	override     *models.PostOverride
	enabledCount int64
	upserted     *models.AutomationSettings
	upsertedOvr  *models.PostOverride
	deleted      string
	err          error
}

func (s *stubSettingsRepo) FindByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.AutomationSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.settings == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.settings, nil
}

func (s *stubSettingsRepo) Upsert(ctx context.Context, row *models.AutomationSettings) error {
	s.upserted = row
	return s.err
}

func (s *stubSettingsRepo) FindOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.PostOverride, error) {
	if s.override == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.override, nil
}

func (s *stubSettingsRepo) UpsertOverride(ctx context.Context, row *models.PostOverride) error {
	s.upsertedOvr = row
	return s.err
}

func (s *stubSettingsRepo) DeleteOverride(ctx context.Context, merchantID uuid.UUID, mediaID string) error {
	s.deleted = mediaID
	return s.err
}

func (s *stubSettingsRepo) CountEnabledOverrides(ctx context.Context, merchantID uuid.UUID) (int64, error) {
	return s.enabledCount, s.err
}

func (s *stubSettingsRepo) ListOverrides(ctx context.Context, merchantID uuid.UUID) ([]models.PostOverride, error) {
	return nil, s.err
}

func newService(t *testing.T, repo *stubSettingsRepo) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestTogglesDefaultOn(t *testing.T) {
	svc := newService(t, &stubSettingsRepo{})

	toggles, err := svc.GetToggles(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetToggles: %v", err)
	}
	if !toggles.DMEnabled || !toggles.CommentEnabled {
		t.Fatalf("expected defaults on, got %+v", toggles)
	}
}

func TestChannelEnabledReadsSavedToggles(t *testing.T) {
	repo := &stubSettingsRepo{settings: &models.AutomationSettings{DMEnabled: false, CommentEnabled: true}}
	svc := newService(t, repo)

	dm, err := svc.ChannelEnabled(context.Background(), uuid.New(), enums.ChannelDM)
	if err != nil {
		t.Fatalf("ChannelEnabled dm: %v", err)
	}
	if dm {
		t.Fatalf("expected dm disabled")
	}

	comment, err := svc.ChannelEnabled(context.Background(), uuid.New(), enums.ChannelComment)
	if err != nil {
		t.Fatalf("ChannelEnabled comment: %v", err)
	}
	if !comment {
		t.Fatalf("expected comment enabled")
	}
}

func TestPostEnabledNoOverrides(t *testing.T) {
	svc := newService(t, &stubSettingsRepo{})

	enabled, err := svc.PostEnabled(context.Background(), uuid.New(), "media-1")
	if err != nil {
		t.Fatalf("PostEnabled: %v", err)
	}
	if !enabled {
		t.Fatalf("post with no overrides should be enabled")
	}
}

func TestPostEnabledExplicitOverrideWins(t *testing.T) {
	repo := &stubSettingsRepo{
		override:     &models.PostOverride{MediaID: "media-1", Enabled: false},
		enabledCount: 3,
	}
	svc := newService(t, repo)

	enabled, err := svc.PostEnabled(context.Background(), uuid.New(), "media-1")
	if err != nil {
		t.Fatalf("PostEnabled: %v", err)
	}
	if enabled {
		t.Fatalf("explicit disable must win")
	}
}

func TestPostEnabledOutsideEnabledSet(t *testing.T) {
	// The merchant narrowed automation to specific posts; anything outside
	// that set is off.
	repo := &stubSettingsRepo{enabledCount: 2}
	svc := newService(t, repo)

	enabled, err := svc.PostEnabled(context.Background(), uuid.New(), "media-other")
	if err != nil {
		t.Fatalf("PostEnabled: %v", err)
	}
	if enabled {
		t.Fatalf("post outside the enabled set should be disabled")
	}
}

func TestPostEnabledEmptyMediaID(t *testing.T) {
	repo := &stubSettingsRepo{enabledCount: 5}
	svc := newService(t, repo)

	enabled, err := svc.PostEnabled(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("PostEnabled: %v", err)
	}
	if !enabled {
		t.Fatalf("dm events have no media id and bypass per-post toggles")
	}
}

func TestSetPostOverride(t *testing.T) {
	repo := &stubSettingsRepo{}
	svc := newService(t, repo)
	merchantID := uuid.New()

	if err := svc.SetPostOverride(context.Background(), merchantID, " media-1 ", true); err != nil {
		t.Fatalf("SetPostOverride: %v", err)
	}
	if repo.upsertedOvr == nil || repo.upsertedOvr.MediaID != "media-1" || !repo.upsertedOvr.Enabled {
		t.Fatalf("unexpected override %+v", repo.upsertedOvr)
	}
}
