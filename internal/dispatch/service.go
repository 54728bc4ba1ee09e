package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/meta"
	pkgretry "github.com/replyflow/replyflow-backend/pkg/retry"
)

type messageSender interface {
	SendMessage(ctx context.Context, accessToken, businessAccountID string, recipient meta.Recipient, text string) (string, error)
}

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	IdempotencyKey(scope, id string) string
	MonthlyUsageKey(merchantID, month string) string
}

type replyLookup interface {
	FindByExternalEventID(ctx context.Context, externalEventID string) (*models.Message, error)
	SetProviderMessageID(ctx context.Context, externalEventID, providerMessageID string) error
}

// Input is one send attempt. CommentID addresses a private reply to a public
// comment; SenderID addresses a DM. MonthlyCap of zero means unlimited.
type Input struct {
	MerchantID      uuid.UUID
	ExternalEventID string
	Channel         enums.Channel
	SenderID        string
	CommentID       string
	Text            string
	Credential      *models.SocialAuth
	MonthlyCap      int
}

// Result reports the dispatch outcome. Skipped dispatches carry the reason;
// a duplicate skip also carries the provider id of the original send when the
// log still has it.
type Result struct {
	ProviderMessageID string
	Skipped           bool
	SkipReason        enums.DecisionReason
}

// Service delivers composed replies exactly once per inbound event.
type Service interface {
	Send(ctx context.Context, in Input) (*Result, error)
}

type service struct {
	sender    messageSender
	store     dedupeStore
	replies   replyLookup
	dedupeTTL time.Duration
	logg      *logger.Logger
}

// NewService builds the dispatcher. dedupeTTL bounds how long a processed
// event id blocks provider re-deliveries.
func NewService(sender messageSender, store dedupeStore, replies replyLookup, dedupeTTL time.Duration, logg *logger.Logger) (Service, error) {
	if sender == nil {
		return nil, fmt.Errorf("message sender is required")
	}
	if store == nil {
		return nil, fmt.Errorf("dedupe store is required")
	}
	if replies == nil {
		return nil, fmt.Errorf("reply lookup is required")
	}
	if dedupeTTL <= 0 {
		return nil, fmt.Errorf("dedupe ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		sender:    sender,
		store:     store,
		replies:   replies,
		dedupeTTL: dedupeTTL,
		logg:      logg,
	}, nil
}

func (s *service) Send(ctx context.Context, in Input) (*Result, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	ctx = s.logg.WithEventID(ctx, in.ExternalEventID)

	// Durable check first: a reply already on record wins over any redis state.
	existing, err := s.replies.FindByExternalEventID(ctx, in.ExternalEventID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up prior reply")
	}
	if existing != nil && existing.ProviderMessageID != nil {
		s.logg.Info(ctx, "dispatch skipped, reply already sent for event")
		return &Result{
			ProviderMessageID: *existing.ProviderMessageID,
			Skipped:           true,
			SkipReason:        enums.ReasonDuplicateEvent,
		}, nil
	}

	guardKey := s.store.IdempotencyKey("dispatch", in.ExternalEventID)
	acquired, err := s.store.SetNX(ctx, guardKey, in.MerchantID.String(), s.dedupeTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire dispatch guard")
	}
	if !acquired {
		s.logg.Info(ctx, "dispatch skipped, duplicate delivery in flight")
		return &Result{Skipped: true, SkipReason: enums.ReasonDuplicateEvent}, nil
	}

	if in.MonthlyCap > 0 {
		allowed, err := s.underMonthlyCap(ctx, in.MerchantID, in.MonthlyCap)
		if err != nil {
			s.releaseGuard(ctx, guardKey)
			return nil, err
		}
		if !allowed {
			s.releaseGuard(ctx, guardKey)
			s.logg.Info(ctx, "dispatch skipped, monthly message cap reached")
			return &Result{Skipped: true, SkipReason: enums.ReasonMonthlyCapReached}, nil
		}
	}

	allowed, _, err := s.store.FixedWindowAllow(ctx, "send:"+in.MerchantID.String(), sendBurstLimit, sendBurstWindow)
	if err != nil {
		s.releaseGuard(ctx, guardKey)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check send budget")
	}
	if !allowed {
		// Surface as a provider limit so the consumer requeues the event.
		s.releaseGuard(ctx, guardKey)
		return nil, pkgerrors.New(pkgerrors.CodeProviderRateLimited, "merchant send budget exhausted")
	}

	recipient, accountID, err := route(in)
	if err != nil {
		s.releaseGuard(ctx, guardKey)
		return nil, err
	}

	var providerMessageID string
	err = pkgretry.Do(ctx, pkgretry.Default, pkgretry.ByErrorCode, func(ctx context.Context) error {
		var sendErr error
		providerMessageID, sendErr = s.sender.SendMessage(ctx, in.Credential.AccessToken, accountID, recipient, in.Text)
		return sendErr
	})
	if err != nil {
		// Release the guard so a requeued delivery can try again.
		s.releaseGuard(ctx, guardKey)
		return nil, err
	}

	// Pin the provider id to the message row immediately. If the process dies
	// before the full reply record is written, the redelivery finds the id and
	// skips instead of sending twice.
	if err := s.replies.SetProviderMessageID(ctx, in.ExternalEventID, providerMessageID); err != nil {
		s.logg.Warn(ctx, "failed to pin provider message id to message row")
	}

	return &Result{ProviderMessageID: providerMessageID}, nil
}

func validateInput(in Input) error {
	if in.MerchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if strings.TrimSpace(in.ExternalEventID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external event id is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot dispatch an empty reply")
	}
	if in.Credential == nil {
		return pkgerrors.New(pkgerrors.CodeNotConnected, "no credential for merchant")
	}
	return nil
}

// route selects the recipient field set and the sending account. Page logins
// send through the page id, direct logins through the business account id.
func route(in Input) (meta.Recipient, string, error) {
	var recipient meta.Recipient
	switch in.Channel {
	case enums.ChannelDM:
		if strings.TrimSpace(in.SenderID) == "" {
			return recipient, "", pkgerrors.New(pkgerrors.CodeValidation, "dm dispatch requires a sender id")
		}
		recipient.UserID = in.SenderID
	case enums.ChannelComment:
		if strings.TrimSpace(in.CommentID) == "" {
			return recipient, "", pkgerrors.New(pkgerrors.CodeValidation, "comment dispatch requires a comment id")
		}
		recipient.CommentID = in.CommentID
	default:
		return recipient, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid channel")
	}

	switch in.Credential.Variant {
	case enums.AuthVariantPageLogin:
		return recipient, in.Credential.PageID, nil
	case enums.AuthVariantDirectLogin:
		return recipient, in.Credential.BusinessAccountID, nil
	default:
		return recipient, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid credential variant")
	}
}

// monthlyUsageTTL outlives the longest month so the counter expires on its
// own after the window closes.
const monthlyUsageTTL = 32 * 24 * time.Hour

// Graph throttles per page; stay well under it so a burst of inbound events
// spreads out across redeliveries instead of tripping provider code 613.
const (
	sendBurstLimit  = 60
	sendBurstWindow = time.Minute
)

func (s *service) underMonthlyCap(ctx context.Context, merchantID uuid.UUID, limit int) (bool, error) {
	month := time.Now().UTC().Format("2006-01")
	key := s.store.MonthlyUsageKey(merchantID.String(), month)
	usage, err := s.store.IncrWithTTL(ctx, key, monthlyUsageTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count monthly usage")
	}
	return usage <= int64(limit), nil
}

func (s *service) releaseGuard(ctx context.Context, key string) {
	if err := s.store.Del(ctx, key); err != nil {
		s.logg.Warn(ctx, "failed to release dispatch guard")
	}
}
