package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/internal/inbound"
	"github.com/replyflow/replyflow-backend/internal/plans"
	"github.com/replyflow/replyflow-backend/internal/settings"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
)

type merchantsGetter interface {
	Get(ctx context.Context, merchantID uuid.UUID) (*models.MerchantAccount, error)
}

type settingsReader interface {
	GetToggles(ctx context.Context, merchantID uuid.UUID) (settings.Toggles, error)
	PostEnabled(ctx context.Context, merchantID uuid.UUID, mediaID string) (bool, error)
}

type mappingResolver interface {
	Resolve(ctx context.Context, merchantID uuid.UUID, mediaID string) (*models.ProductMapping, error)
}

// Context is everything the decision engine and the composer need to know
// about the merchant behind one inbound event.
type Context struct {
	Merchant       *models.MerchantAccount
	Plan           plans.Plan
	Toggles        settings.Toggles
	ChannelEnabled bool
	PostEnabled    bool
	Mapping        *models.ProductMapping
}

// Resolver loads merchant state for an event in one pass. DMs never resolve
// a product mapping; comments resolve one only when the post is mapped.
type Resolver struct {
	merchants merchantsGetter
	settings  settingsReader
	mappings  mappingResolver
}

// NewResolver builds a context resolver.
func NewResolver(merchants merchantsGetter, settingsSvc settingsReader, mappings mappingResolver) (*Resolver, error) {
	if merchants == nil {
		return nil, fmt.Errorf("merchants service required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if mappings == nil {
		return nil, fmt.Errorf("mappings service required")
	}
	return &Resolver{merchants: merchants, settings: settingsSvc, mappings: mappings}, nil
}

// Resolve assembles the merchant context for one normalized event.
func (r *Resolver) Resolve(ctx context.Context, merchantID uuid.UUID, event inbound.Event) (*Context, error) {
	merchant, err := r.merchants.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	plan, err := plans.Lookup(merchant.PlanTier)
	if err != nil {
		return nil, err
	}

	toggles, err := r.settings.GetToggles(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	resolved := &Context{
		Merchant:    merchant,
		Plan:        plan,
		Toggles:     toggles,
		PostEnabled: true,
	}
	switch event.Channel {
	case enums.ChannelDM:
		resolved.ChannelEnabled = toggles.DMEnabled
	case enums.ChannelComment:
		resolved.ChannelEnabled = toggles.CommentEnabled && plan.CommentAutomation
	}

	if event.Channel == enums.ChannelComment && event.MediaID != "" {
		postEnabled, err := r.settings.PostEnabled(ctx, merchantID, event.MediaID)
		if err != nil {
			return nil, err
		}
		resolved.PostEnabled = postEnabled

		mapping, err := r.mappings.Resolve(ctx, merchantID, event.MediaID)
		if err != nil {
			return nil, err
		}
		resolved.Mapping = mapping
	}

	return resolved, nil
}
