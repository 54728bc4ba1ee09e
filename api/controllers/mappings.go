package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/replyflow/replyflow-backend/api/responses"
	"github.com/replyflow/replyflow-backend/api/validators"
	"github.com/replyflow/replyflow-backend/internal/mappings"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type mappingResponse struct {
	MediaID         string    `json:"media_id"`
	ProductID       string    `json:"product_id"`
	VariantID       string    `json:"variant_id"`
	VariantExplicit bool      `json:"variant_explicit"`
	ProductHandle   string    `json:"product_handle,omitempty"`
	VariantCount    int       `json:"variant_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func mappingFromModel(row *models.ProductMapping) mappingResponse {
	return mappingResponse{
		MediaID:         row.MediaID,
		ProductID:       row.ProductID,
		VariantID:       row.VariantID,
		VariantExplicit: row.VariantExplicit,
		ProductHandle:   row.ProductHandle,
		VariantCount:    row.VariantCount,
		UpdatedAt:       row.UpdatedAt,
	}
}

type mappingUpsertRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id,omitempty"`
}

// UpsertMapping maps a post to a product. Omitting the variant lets the
// catalog's first variant fill in without marking the choice explicit.
func UpsertMapping(svc mappings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mappings service unavailable"))
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

		var req mappingUpsertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.Upsert(ctx, merchantID, mappings.UpsertInput{
			MediaID:   mediaID,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, mappingFromModel(row))
	}
}

// GetMapping returns one post's product mapping.
func GetMapping(svc mappings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mappings service unavailable"))
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

		row, err := svc.Get(ctx, merchantID, mediaID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, mappingFromModel(row))
	}
}

// DeleteMapping removes a post's product mapping.
func DeleteMapping(svc mappings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mappings service unavailable"))
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

		if err := svc.Delete(ctx, merchantID, mediaID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"media_id": mediaID, "status": "deleted"})
	}
}

// ListMappings returns every post-to-product mapping for the merchant.
func ListMappings(svc mappings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mappings service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.List(ctx, merchantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]mappingResponse, 0, len(rows))
		for i := range rows {
			out = append(out, mappingFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
