package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/replyflow/replyflow-backend/api/responses"
	"github.com/replyflow/replyflow-backend/api/validators"
	"github.com/replyflow/replyflow-backend/internal/settings"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type settingsResponse struct {
	DMEnabled      bool   `json:"dm_enabled"`
	CommentEnabled bool   `json:"comment_enabled"`
	BrandVoice     string `json:"brand_voice"`
}

type settingsUpdateRequest struct {
	DMEnabled      bool   `json:"dm_enabled"`
	CommentEnabled bool   `json:"comment_enabled"`
	BrandVoice     string `json:"brand_voice" validate:"max=200"`
}

// GetSettings returns the merchant's automation toggles.
func GetSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		toggles, err := svc.GetToggles(ctx, merchantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, settingsResponse{
			DMEnabled:      toggles.DMEnabled,
			CommentEnabled: toggles.CommentEnabled,
			BrandVoice:     toggles.BrandVoice,
		})
	}
}

// UpdateSettings replaces the merchant's automation toggles.
func UpdateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req settingsUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		toggles := settings.Toggles{
			DMEnabled:      req.DMEnabled,
			CommentEnabled: req.CommentEnabled,
			BrandVoice:     strings.TrimSpace(req.BrandVoice),
		}
		if err := svc.UpdateToggles(ctx, merchantID, toggles); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, settingsResponse{
			DMEnabled:      toggles.DMEnabled,
			CommentEnabled: toggles.CommentEnabled,
			BrandVoice:     toggles.BrandVoice,
		})
	}
}

type postOverrideResponse struct {
	MediaID   string    `json:"media_id"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListPostOverrides returns the per-post toggles a merchant has set. Posts
// without an override are automated and do not appear here.
func ListPostOverrides(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		overrides, err := svc.ListOverrides(ctx, merchantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]postOverrideResponse, 0, len(overrides))
		for _, o := range overrides {
			out = append(out, postOverrideResponse{MediaID: o.MediaID, Enabled: o.Enabled, UpdatedAt: o.UpdatedAt})
		}
		responses.WriteSuccess(w, out)
	}
}

type postOverrideRequest struct {
	Enabled bool `json:"enabled"`
}

// SetPostOverride pins a single post's automation on or off.
func SetPostOverride(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		mediaID := strings.TrimSpace(chi.URLParam(r, "mediaID"))
		if mediaID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "media id is required"))
			return
		}

		var req postOverrideRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.SetPostOverride(ctx, merchantID, mediaID, req.Enabled); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"media_id": mediaID, "enabled": req.Enabled})
	}
}

// ClearPostOverride returns a post to the default automated state.
func ClearPostOverride(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		mediaID := strings.TrimSpace(chi.URLParam(r, "mediaID"))
		if mediaID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "media id is required"))
			return
		}

		if err := svc.ClearPostOverride(ctx, merchantID, mediaID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"media_id": mediaID, "status": "cleared"})
	}
}
