package controllers

import (
	"net/http"
	"time"

	"github.com/replyflow/replyflow-backend/api/responses"
	"github.com/replyflow/replyflow-backend/api/validators"
	"github.com/replyflow/replyflow-backend/internal/credentials"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type connectRequest struct {
	PageID            string     `json:"page_id" validate:"required"`
	BusinessAccountID string     `json:"business_account_id" validate:"required"`
	AccessToken       string     `json:"access_token" validate:"required"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
	Variant           string     `json:"variant" validate:"required,oneof=page_login direct_login"`
}

type connectionResponse struct {
	Connected         bool       `json:"connected"`
	PageID            string     `json:"page_id,omitempty"`
	BusinessAccountID string     `json:"business_account_id,omitempty"`
	Variant           string     `json:"variant,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
	Invalid           bool       `json:"invalid,omitempty"`
}

func connectionFromModel(row *models.SocialAuth) connectionResponse {
	return connectionResponse{
		Connected:         true,
		PageID:            row.PageID,
		BusinessAccountID: row.BusinessAccountID,
		Variant:           string(row.Variant),
		TokenExpiresAt:    row.TokenExpiresAt,
		Invalid:           row.Invalid,
	}
}

// Connect stores the credential produced by the provider OAuth flow and
// makes sure the app is subscribed to the page's webhooks.
func Connect(svc credentials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req connectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.Connect(ctx, merchantID, credentials.ConnectInput{
			PageID:            req.PageID,
			BusinessAccountID: req.BusinessAccountID,
			AccessToken:       req.AccessToken,
			TokenExpiresAt:    req.TokenExpiresAt,
			Variant:           enums.AuthVariant(req.Variant),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, connectionFromModel(row))
	}
}

// ConnectStatus reports the connection without exposing the stored token.
// An unconnected merchant gets a 200 with connected=false, not an error.
func ConnectStatus(svc credentials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.Status(ctx, merchantID)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotConnected {
				responses.WriteSuccess(w, connectionResponse{Connected: false})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, connectionFromModel(row))
	}
}

// Disconnect removes the merchant's credential.
func Disconnect(svc credentials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credentials service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Disconnect(ctx, merchantID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "disconnected"})
	}
}
