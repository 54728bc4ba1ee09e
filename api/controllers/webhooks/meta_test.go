package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/replyflow/replyflow-backend/pkg/logger"
)

type stubIntake struct {
	accepted int
	err      error
	calls    int
	body     []byte
}

func (s *stubIntake) Ingest(_ context.Context, body []byte) (int, error) {
	s.calls++
	s.body = body
	return s.accepted, s.err
}

type stubVerifier struct {
	valid bool
}

func (s *stubVerifier) VerifySignature(_ []byte, _ string) bool {
	return s.valid
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestMetaWebhookVerifyEchoesChallenge(t *testing.T) {
	h := MetaWebhookVerify("token-1", testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/meta?hub.mode=subscribe&hub.verify_token=token-1&hub.challenge=12345", nil)
	resp := httptest.NewRecorder()
	h(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if resp.Body.String() != "12345" {
		t.Fatalf("body = %q, want challenge echoed", resp.Body.String())
	}
}

func TestMetaWebhookVerifyRejectsWrongToken(t *testing.T) {
	h := MetaWebhookVerify("token-1", testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/meta?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp := httptest.NewRecorder()
	h(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
}

func TestMetaWebhookIngestsSignedBody(t *testing.T) {
	intake := &stubIntake{accepted: 2}
	h := MetaWebhook(intake, &stubVerifier{valid: true}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/meta", strings.NewReader(`{"object":"instagram"}`))
	req.Header.Set(signatureHeader, "sha256=abc")
	resp := httptest.NewRecorder()
	h(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if intake.calls != 1 {
		t.Fatalf("intake calls = %d, want 1", intake.calls)
	}
	if string(intake.body) != `{"object":"instagram"}` {
		t.Fatalf("intake received body %q", intake.body)
	}
	if !strings.Contains(resp.Body.String(), `"accepted":2`) {
		t.Fatalf("body = %s, want accepted count", resp.Body.String())
	}
}

func TestMetaWebhookRejectsBadSignature(t *testing.T) {
	intake := &stubIntake{}
	h := MetaWebhook(intake, &stubVerifier{valid: false}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/meta", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	h(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
	if intake.calls != 0 {
		t.Fatalf("intake should not run on a bad signature")
	}
}

func TestMetaWebhookSurfacesIntakeFailure(t *testing.T) {
	intake := &stubIntake{err: errors.New("db down")}
	h := MetaWebhook(intake, &stubVerifier{valid: true}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/meta", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	h(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 so the provider redelivers", resp.Code)
	}
}
