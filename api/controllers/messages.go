package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/api/responses"
	"github.com/replyflow/replyflow-backend/api/validators"
	"github.com/replyflow/replyflow-backend/internal/attribution"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/pagination"
)

type messageResponse struct {
	ID                uuid.UUID `json:"id"`
	Channel           string    `json:"channel"`
	SenderID          string    `json:"sender_id"`
	MediaID           *string   `json:"media_id,omitempty"`
	Text              string    `json:"text"`
	ReceivedAt        time.Time `json:"received_at"`
	Status            string    `json:"status"`
	Intent            *string   `json:"intent,omitempty"`
	Confidence        *float64  `json:"confidence,omitempty"`
	Sentiment         *string   `json:"sentiment,omitempty"`
	DecisionOutcome   *string   `json:"decision_outcome,omitempty"`
	DecisionReason    *string   `json:"decision_reason,omitempty"`
	ReplyText         *string   `json:"reply_text,omitempty"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty"`
	LinkSentID        *string   `json:"link_sent_id,omitempty"`
}

type messagePageResponse struct {
	Items      []messageResponse `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func messageFromModel(row *models.Message) messageResponse {
	out := messageResponse{
		ID:                row.ID,
		Channel:           string(row.Channel),
		SenderID:          row.SenderID,
		MediaID:           row.MediaID,
		Text:              row.Text,
		ReceivedAt:        row.ReceivedAt,
		Status:            string(row.Status),
		Confidence:        row.Confidence,
		ReplyText:         row.ReplyText,
		ProviderMessageID: row.ProviderMessageID,
	}
	if row.Intent != nil {
		v := string(*row.Intent)
		out.Intent = &v
	}
	if row.Sentiment != nil {
		v := string(*row.Sentiment)
		out.Sentiment = &v
	}
	if row.DecisionOutcome != nil {
		v := string(*row.DecisionOutcome)
		out.DecisionOutcome = &v
	}
	if row.DecisionReason != nil {
		v := string(*row.DecisionReason)
		out.DecisionReason = &v
	}
	if row.LinkSentID != nil {
		v := row.LinkSentID.String()
		out.LinkSentID = &v
	}
	return out
}

// ListMessages pages through the merchant's message audit log, newest first.
// Suppressed messages appear with their reason so merchants can see why a
// reply did not go out.
func ListMessages(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attribution service unavailable"))
			return
		}
		merchantID, err := merchantFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListMessages(ctx, merchantID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := messagePageResponse{
			Items:      make([]messageResponse, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Items {
			out.Items = append(out.Items, messageFromModel(&page.Items[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
