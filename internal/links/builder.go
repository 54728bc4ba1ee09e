package links

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

const (
	linkIDLength   = 10
	linkIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// OrderAttribute is the cart attribute that carries the link id from a
// checkout redirect through to the storefront's order webhook.
const OrderAttribute = "rf_link"

// Link is a resolved outbound URL. When shortening succeeded, URL is the
// tracked short form and LinkID is set; otherwise URL equals TargetURL and
// clicks are not attributable.
type Link struct {
	LinkID    string
	Kind      enums.LinkKind
	TargetURL string
	URL       string
}

// BuildRequest describes one link to resolve.
type BuildRequest struct {
	Kind             enums.LinkKind
	StorefrontDomain string
	ProductID        string
	VariantID        string
	Handle           string
	Quantity         int
	Shorten          bool
}

// Builder resolves storefront URLs and mints short link ids.
type Builder struct {
	shortBase string
}

// NewBuilder builds a link builder. shortBase is the application base URL
// that serves the redirect endpoint.
func NewBuilder(shortBase string) (*Builder, error) {
	shortBase = strings.TrimRight(strings.TrimSpace(shortBase), "/")
	if shortBase == "" {
		return nil, fmt.Errorf("short link base url required")
	}
	return &Builder{shortBase: shortBase}, nil
}

// Build resolves the target URL and, when requested, mints a short link id.
// A minting failure falls back to the long URL instead of failing the reply.
func (b *Builder) Build(req BuildRequest) (*Link, error) {
	target, err := targetURL(req)
	if err != nil {
		return nil, err
	}

	link := &Link{Kind: req.Kind, TargetURL: target, URL: target}
	if !req.Shorten {
		return link, nil
	}

	linkID, err := NewLinkID()
	if err != nil {
		return link, nil
	}
	link.LinkID = linkID
	link.URL = b.shortBase + "/l/" + linkID
	return link, nil
}

// ShortURL returns the tracked form of a previously minted link id.
func (b *Builder) ShortURL(linkID string) string {
	return b.shortBase + "/l/" + linkID
}

func targetURL(req BuildRequest) (string, error) {
	domain := strings.TrimRight(strings.TrimSpace(req.StorefrontDomain), "/")
	if domain == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "storefront domain is required")
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}

	switch req.Kind {
	case enums.LinkKindCheckout:
		if req.VariantID == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "variant id is required for checkout links")
		}
		quantity := req.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		return fmt.Sprintf("%s/cart/%s:%d", domain, req.VariantID, quantity), nil
	case enums.LinkKindProductPage:
		if handle := strings.TrimSpace(req.Handle); handle != "" {
			return fmt.Sprintf("%s/products/%s", domain, handle), nil
		}
		if req.ProductID == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required when handle is absent")
		}
		return fmt.Sprintf("%s/products/%s", domain, req.ProductID), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid link kind")
	}
}

// NewLinkID mints a 10-character url-safe id.
func NewLinkID() (string, error) {
	buf := make([]byte, linkIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = linkIDAlphabet[int(b)%len(linkIDAlphabet)]
	}
	return string(buf), nil
}
