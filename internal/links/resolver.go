package links

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

type linkStore interface {
	FindByLinkID(ctx context.Context, linkID string) (*models.LinkSent, error)
}

// Resolver serves the redirect endpoint: short link id in, target URL out.
type Resolver struct {
	store linkStore
}

// NewResolver builds a resolver over the link store.
func NewResolver(store linkStore) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("link store required")
	}
	return &Resolver{store: store}, nil
}

// Resolve looks up the stored link for a redirect.
func (r *Resolver) Resolve(ctx context.Context, linkID string) (*models.LinkSent, error) {
	linkID = strings.TrimSpace(linkID)
	if len(linkID) != linkIDLength {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "link not found")
	}
	row, err := r.store.FindByLinkID(ctx, linkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup link")
	}
	return row, nil
}

// IsBrowserUA reports whether the user agent should count as a real click.
// Provider link-preview crawlers fetch short links as soon as a message is
// delivered; counting those as clicks would poison attribution. Anything
// not on the crawler list counts, so an unrecognized in-app browser still
// earns the merchant its attribution.
func IsBrowserUA(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return false
	}
	for _, crawler := range []string{
		"facebookexternalhit",
		"facebookcatalog",
		"instagram",
		"whatsapp",
		"twitterbot",
		"telegrambot",
		"slackbot",
		"discordbot",
		"linkedinbot",
		"pinterest",
		"bot",
		"crawler",
		"spider",
		"preview",
		"curl/",
		"wget/",
	} {
		if strings.Contains(ua, crawler) {
			return false
		}
	}
	return true
}
