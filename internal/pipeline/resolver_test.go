package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/internal/inbound"
	"github.com/replyflow/replyflow-backend/internal/settings"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

type stubMerchants struct {
	merchant *models.MerchantAccount
	err      error
}

func (s *stubMerchants) Get(ctx context.Context, merchantID uuid.UUID) (*models.MerchantAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.merchant, nil
}

type stubSettings struct {
	toggles     settings.Toggles
	postEnabled bool
	postCalls   int
}

func (s *stubSettings) GetToggles(ctx context.Context, merchantID uuid.UUID) (settings.Toggles, error) {
	return s.toggles, nil
}

func (s *stubSettings) PostEnabled(ctx context.Context, merchantID uuid.UUID, mediaID string) (bool, error) {
	s.postCalls++
	return s.postEnabled, nil
}

type stubMappings struct {
	mapping *models.ProductMapping
	calls   int
}

func (s *stubMappings) Resolve(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error) {
	s.calls++
	return s.mapping, nil
}

func testMerchant(tier enums.PlanTier) *models.MerchantAccount {
	return &models.MerchantAccount{
		ID:               uuid.New(),
		StorefrontDomain: "shop.example.com",
		Active:           true,
		PlanTier:         tier,
		InstalledAt:      time.Now().UTC(),
	}
}

func TestResolveDMSkipsMappingLookup(t *testing.T) {
	merchant := testMerchant(enums.PlanTierGrowth)
	settingsStub := &stubSettings{toggles: settings.Toggles{DMEnabled: true, CommentEnabled: false}}
	mappingsStub := &stubMappings{mapping: &models.ProductMapping{ProductID: "42"}}
	resolver, err := NewResolver(&stubMerchants{merchant: merchant}, settingsStub, mappingsStub)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	resolved, err := resolver.Resolve(context.Background(), merchant.ID, inbound.Event{
		Channel:  enums.ChannelDM,
		SenderID: "cust-1",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resolved.ChannelEnabled {
		t.Fatal("dm channel should be enabled")
	}
	if !resolved.PostEnabled {
		t.Fatal("post gating does not apply to dms")
	}
	if resolved.Mapping != nil {
		t.Fatal("dms must not resolve a product mapping")
	}
	if mappingsStub.calls != 0 || settingsStub.postCalls != 0 {
		t.Fatalf("unexpected comment-only lookups: mappings=%d posts=%d", mappingsStub.calls, settingsStub.postCalls)
	}
	if resolved.Plan.Tier != enums.PlanTierGrowth {
		t.Fatalf("plan tier = %s", resolved.Plan.Tier)
	}
}

func TestResolveCommentLoadsMappingAndPostToggle(t *testing.T) {
	merchant := testMerchant(enums.PlanTierPro)
	mapping := &models.ProductMapping{MerchantID: merchant.ID, MediaID: "media-7", ProductID: "42"}
	settingsStub := &stubSettings{
		toggles:     settings.Toggles{DMEnabled: true, CommentEnabled: true, BrandVoice: "warm"},
		postEnabled: true,
	}
	resolver, err := NewResolver(&stubMerchants{merchant: merchant}, settingsStub, &stubMappings{mapping: mapping})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	resolved, err := resolver.Resolve(context.Background(), merchant.ID, inbound.Event{
		Channel: enums.ChannelComment,
		MediaID: "media-7",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resolved.ChannelEnabled || !resolved.PostEnabled {
		t.Fatalf("gates = channel:%v post:%v", resolved.ChannelEnabled, resolved.PostEnabled)
	}
	if resolved.Mapping != mapping {
		t.Fatal("mapping not resolved")
	}
	if resolved.Toggles.BrandVoice != "warm" {
		t.Fatalf("brand voice = %q", resolved.Toggles.BrandVoice)
	}
}

func TestResolveCommentToggleOff(t *testing.T) {
	merchant := testMerchant(enums.PlanTierFree)
	settingsStub := &stubSettings{toggles: settings.Toggles{DMEnabled: true, CommentEnabled: false}, postEnabled: true}
	resolver, err := NewResolver(&stubMerchants{merchant: merchant}, settingsStub, &stubMappings{})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	resolved, err := resolver.Resolve(context.Background(), merchant.ID, inbound.Event{
		Channel: enums.ChannelComment,
		MediaID: "media-7",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ChannelEnabled {
		t.Fatal("comment channel should be disabled")
	}
}
