package meta

import (
	"encoding/json"
	"fmt"
	"net/http"

	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

// Graph error codes that matter to the reply pipeline. Anything else falls
// back on the HTTP status class.
const (
	graphCodeTokenExpired     = 190
	graphCodeAppRateLimit     = 4
	graphCodeUserRateLimit    = 17
	graphCodePageRateLimit    = 613
	graphCodePermission       = 10
	graphCodePermissionScoped = 200
	graphCodePermissionUpper  = 299
	graphCodePolicyBlocked    = 230
	graphCodeInvalidRecipient = 551
)

type graphErrorEnvelope struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		TraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

// mapGraphError converts a Graph API failure into the shared error taxonomy
// so callers and the retry policy can act on the code alone.
func mapGraphError(status int, header http.Header, body []byte) error {
	var envelope graphErrorEnvelope
	_ = json.Unmarshal(body, &envelope)
	ge := envelope.Error

	message := ge.Message
	if message == "" {
		message = fmt.Sprintf("graph api returned status %d", status)
	}

	details := map[string]any{
		"graph_code": ge.Code,
		"trace_id":   ge.TraceID,
	}
	if ge.ErrorSubcode != 0 {
		details["graph_subcode"] = ge.ErrorSubcode
	}

	switch {
	case ge.Code == graphCodeTokenExpired:
		return pkgerrors.New(pkgerrors.CodeReauthRequired, message)
	case ge.Code == graphCodeAppRateLimit, ge.Code == graphCodeUserRateLimit, ge.Code == graphCodePageRateLimit:
		if seconds := retryAfterSeconds(header); seconds > 0 {
			details["retry_after_seconds"] = seconds
		}
		return pkgerrors.New(pkgerrors.CodeProviderRateLimited, message).WithDetails(details)
	case ge.Code == graphCodePermission, ge.Code == graphCodePolicyBlocked,
		ge.Code >= graphCodePermissionScoped && ge.Code <= graphCodePermissionUpper:
		return pkgerrors.New(pkgerrors.CodePermissionDenied, message).WithDetails(details)
	case ge.Code == graphCodeInvalidRecipient:
		return pkgerrors.New(pkgerrors.CodeDispatchFailed, message).WithDetails(details)
	case status == http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeReauthRequired, message)
	case status == http.StatusTooManyRequests:
		if seconds := retryAfterSeconds(header); seconds > 0 {
			details["retry_after_seconds"] = seconds
		}
		return pkgerrors.New(pkgerrors.CodeProviderRateLimited, message).WithDetails(details)
	case status >= http.StatusInternalServerError:
		return pkgerrors.New(pkgerrors.CodeTemporarilyUnavailable, message)
	default:
		return pkgerrors.New(pkgerrors.CodeDispatchFailed, message).WithDetails(details)
	}
}
