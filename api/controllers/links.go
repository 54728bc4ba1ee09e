package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/replyflow/replyflow-backend/api/responses"
	"github.com/replyflow/replyflow-backend/internal/links"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/metrics"
)

type linkResolver interface {
	Resolve(ctx context.Context, linkID string) (*models.LinkSent, error)
}

type clickRecorder interface {
	RecordClick(ctx context.Context, linkID string, clickedAt time.Time) error
}

// LinkRedirect resolves a short link and 302s to its target. Clicks are only
// recorded for browser user agents so crawlers and link previews do not
// inflate counts; a recording failure never blocks the redirect.
func LinkRedirect(resolver linkResolver, clicks clickRecorder, pipelineMetrics *metrics.PipelineMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if resolver == nil || clicks == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "link service unavailable"))
			return
		}

		linkID := chi.URLParam(r, "linkID")
		link, err := resolver.Resolve(ctx, linkID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if links.IsBrowserUA(r.Header.Get("User-Agent")) {
			if err := clicks.RecordClick(ctx, link.LinkID, time.Now().UTC()); err != nil {
				if logg != nil {
					logg.Warn(ctx, "click recording failed, redirecting anyway")
				}
			} else {
				pipelineMetrics.IncLinkClick()
			}
		}

		http.Redirect(w, r, redirectTarget(link), http.StatusFound)
	}
}

// redirectTarget tags checkout targets with the cart attribute the storefront
// echoes back on its order webhook, closing the attribution loop.
func redirectTarget(link *models.LinkSent) string {
	if link.Kind != enums.LinkKindCheckout {
		return link.TargetURL
	}
	attr := url.Values{"attributes[" + links.OrderAttribute + "]": {link.LinkID}}.Encode()
	if strings.Contains(link.TargetURL, "?") {
		return link.TargetURL + "&" + attr
	}
	return link.TargetURL + "?" + attr
}
