package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/api/middleware"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

// merchantFromRequest extracts the authenticated merchant from the request context.
func merchantFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.MerchantIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "merchant context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid merchant id")
	}
	return id, nil
}
