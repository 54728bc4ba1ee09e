package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return pkgerrors.New(pkgerrors.CodeTemporarilyUnavailable, "flaky upstream")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoStopsOnTerminalErrors(t *testing.T) {
	calls := 0
	terminal := pkgerrors.New(pkgerrors.CodePermissionDenied, "scope missing")
	err := Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
		calls++
		return terminal
	})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("terminal errors must not retry, got %d attempts", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
		calls++
		return pkgerrors.New(pkgerrors.CodeDependency, "still down")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func rateLimited(seconds int) error {
	return pkgerrors.New(pkgerrors.CodeProviderRateLimited, "throttled").
		WithDetails(map[string]any{"retry_after_seconds": seconds})
}

func TestRetryAfterHint(t *testing.T) {
	if wait, ok := RetryAfterHint(rateLimited(7)); !ok || wait != 7*time.Second {
		t.Fatalf("expected 7s hint, got %v ok=%v", wait, ok)
	}
	if _, ok := RetryAfterHint(rateLimited(0)); ok {
		t.Fatal("zero hint must not be honored")
	}
	if _, ok := RetryAfterHint(pkgerrors.New(pkgerrors.CodeDependency, "down")); ok {
		t.Fatal("non-rate-limit errors carry no hint")
	}
	if _, ok := RetryAfterHint(errors.New("untyped")); ok {
		t.Fatal("untyped errors carry no hint")
	}
}

func TestBackoffStretchesToProviderHint(t *testing.T) {
	lastErr := error(rateLimited(3))
	base := fixedBackoff(time.Millisecond)
	hinted := &hintedBackoff{base: &base, last: &lastErr}

	delay, stop := hinted.Next()
	if stop {
		t.Fatal("backoff stopped unexpectedly")
	}
	if delay != 3*time.Second {
		t.Fatalf("expected the 3s hint to override the 1ms delay, got %v", delay)
	}

	lastErr = pkgerrors.New(pkgerrors.CodeDependency, "down")
	delay, stop = hinted.Next()
	if stop {
		t.Fatal("backoff stopped unexpectedly")
	}
	if delay != time.Millisecond {
		t.Fatalf("without a hint the base delay applies, got %v", delay)
	}
}

type fixedBackoff time.Duration

func (b *fixedBackoff) Next() (time.Duration, bool) {
	return time.Duration(*b), false
}

func TestByErrorCodeTreatsUntypedAsTransient(t *testing.T) {
	if !ByErrorCode(errors.New("connection reset")) {
		t.Fatal("untyped errors should be retryable")
	}
	if ByErrorCode(nil) {
		t.Fatal("nil is not retryable")
	}
	if ByErrorCode(pkgerrors.New(pkgerrors.CodeDispatchFailed, "policy rejection")) {
		t.Fatal("dispatch failures are terminal")
	}
}
