package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/replyflow/replyflow-backend/api/responses"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/meta"
)

const signatureHeader = "X-Hub-Signature-256"

type inboundIntake interface {
	Ingest(ctx context.Context, body []byte) (int, error)
}

type signatureVerifier interface {
	VerifySignature(body []byte, header string) bool
}

// MetaWebhookVerify answers the Graph subscription handshake by echoing
// hub.challenge when the verify token matches.
func MetaWebhookVerify(verifyToken string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if !meta.VerifyChallenge(verifyToken, query.Get("hub.mode"), query.Get("hub.verify_token")) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "verify token mismatch"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(query.Get("hub.challenge")))
	}
}

// MetaWebhook receives inbound DM and comment deliveries. The signature is
// checked against the raw body before anything is parsed; a persistence
// failure surfaces as a 5xx so Graph redelivers the batch.
func MetaWebhook(intake inboundIntake, verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if intake == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intake unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !verifier.VerifySignature(body, r.Header.Get(signatureHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid webhook signature"))
			return
		}

		accepted, err := intake.Ingest(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"accepted": accepted})
	}
}
