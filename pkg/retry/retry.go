package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
)

// Policy is the single retry configuration applied to every external call:
// classifier, token exchange, messaging send, analytics insert. Transient
// failures back off exponentially; terminal failures return immediately.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Default mirrors the platform guidance of 3 attempts with exponential backoff.
var Default = Policy{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

// ByErrorCode classifies using the typed error metadata: codes marked
// retryable (dependency, provider rate limit, temporary unavailability) are
// retried, everything else is terminal.
func ByErrorCode(err error) bool {
	if err == nil {
		return false
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		// Untyped errors are transport-level surprises; retry them.
		return true
	}
	return pkgerrors.MetadataFor(typed.Code()).Retryable
}

// RetryAfterHint extracts a provider backoff hint from a rate-limit error's
// details, as the Graph client records it from the Retry-After header.
func RetryAfterHint(err error) (time.Duration, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeProviderRateLimited {
		return 0, false
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return 0, false
	}
	switch seconds := details["retry_after_seconds"].(type) {
	case int:
		if seconds > 0 {
			return time.Duration(seconds) * time.Second, true
		}
	case float64:
		if seconds > 0 {
			return time.Duration(seconds * float64(time.Second)), true
		}
	}
	return 0, false
}

// hintedBackoff stretches the base delay to the provider's retry-after hint
// when the last failure carried one. The hint wins over the policy cap.
type hintedBackoff struct {
	base retry.Backoff
	last *error
}

func (b *hintedBackoff) Next() (time.Duration, bool) {
	delay, stop := b.base.Next()
	if stop {
		return delay, true
	}
	if b.last != nil && *b.last != nil {
		if hint, ok := RetryAfterHint(*b.last); ok && hint > delay {
			return hint, false
		}
	}
	return delay, false
}

// Do runs op under the policy, consulting classify after each failure.
func Do(ctx context.Context, policy Policy, classify Classifier, op func(context.Context) error) error {
	if classify == nil {
		classify = ByErrorCode
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = Default.MaxAttempts
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = Default.InitialBackoff
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = Default.MaxBackoff
	}

	backoff := retry.NewExponential(policy.InitialBackoff)
	backoff = retry.WithCappedDuration(policy.MaxBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(policy.MaxAttempts-1), backoff)

	var lastErr error
	return retry.Do(ctx, &hintedBackoff{base: backoff, last: &lastErr}, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if classify(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
