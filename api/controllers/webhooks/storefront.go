package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/replyflow/replyflow-backend/api/responses"
	"github.com/replyflow/replyflow-backend/internal/links"
	"github.com/replyflow/replyflow-backend/pkg/auth"
	"github.com/replyflow/replyflow-backend/pkg/config"
	"github.com/replyflow/replyflow-backend/pkg/db/models"
	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
)

const storefrontSignatureHeader = "X-Storefront-Hmac-Sha256"

type orderAttributor interface {
	AttributeOrder(ctx context.Context, linkID, orderID string) error
}

type merchantLifecycle interface {
	Install(ctx context.Context, domain string) (*models.MerchantAccount, error)
	Uninstall(ctx context.Context, merchantID uuid.UUID) error
	GetByDomain(ctx context.Context, domain string) (*models.MerchantAccount, error)
	ChangePlan(ctx context.Context, merchantID uuid.UUID, tier enums.PlanTier) (*models.MerchantAccount, error)
}

type orderPayload struct {
	ID             json.Number `json:"id"`
	NoteAttributes []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"note_attributes"`
}

// OrdersWebhook correlates storefront orders back to sent links. Orders
// without our cart attribute are acknowledged and ignored; so are orders
// whose link id no longer resolves, since the storefront will not re-send
// a corrected payload.
func OrdersWebhook(svc orderAttributor, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attribution service unavailable"))
			return
		}

		body, ok := readSignedBody(ctx, w, r, secret, logg)
		if !ok {
			return
		}

		var payload orderPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order payload"))
			return
		}

		orderID := payload.ID.String()
		if orderID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id missing"))
			return
		}

		linkID := ""
		for _, attr := range payload.NoteAttributes {
			if attr.Name == links.OrderAttribute {
				linkID = strings.TrimSpace(attr.Value)
				break
			}
		}
		if linkID == "" {
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		if err := svc.AttributeOrder(ctx, linkID, orderID); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				if logg != nil {
					logg.Warn(ctx, "order webhook carried an unknown link id")
				}
				responses.WriteSuccess(w, map[string]string{"status": "ignored"})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "attributed"})
	}
}

type appLifecyclePayload struct {
	Domain   string `json:"domain"`
	Event    string `json:"event"`
	PlanTier string `json:"plan_tier"`
}

// AppLifecycleWebhook handles install, uninstall, and plan-change events
// from the storefront platform. The install response carries an admin token
// for the embedded settings UI.
func AppLifecycleWebhook(svc merchantLifecycle, secret string, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "merchant service unavailable"))
			return
		}

		body, ok := readSignedBody(ctx, w, r, secret, logg)
		if !ok {
			return
		}

		var payload appLifecyclePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode lifecycle payload"))
			return
		}
		if strings.TrimSpace(payload.Domain) == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "domain missing"))
			return
		}

		switch payload.Event {
		case "installed":
			merchant, err := svc.Install(ctx, payload.Domain)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			token, err := auth.MintAccessToken(jwtCfg, time.Now().UTC(), auth.AccessTokenPayload{MerchantID: merchant.ID})
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint admin token"))
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
				"merchant_id":  merchant.ID.String(),
				"access_token": token,
			})
		case "uninstalled":
			merchant, err := svc.GetByDomain(ctx, payload.Domain)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if err := svc.Uninstall(ctx, merchant.ID); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]string{"status": "uninstalled"})
		case "plan_changed":
			tier := enums.PlanTier(strings.ToUpper(strings.TrimSpace(payload.PlanTier)))
			if !tier.IsValid() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan tier"))
				return
			}
			merchant, err := svc.GetByDomain(ctx, payload.Domain)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			updated, err := svc.ChangePlan(ctx, merchant.ID, tier)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]string{"plan_tier": string(updated.PlanTier)})
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown lifecycle event"))
		}
	}
}

func readSignedBody(ctx context.Context, w http.ResponseWriter, r *http.Request, secret string, logg *logger.Logger) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
		return nil, false
	}
	if !validateStorefrontSignature(body, secret, r.Header.Get(storefrontSignatureHeader)) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid webhook signature"))
		return nil, false
	}
	return body, true
}

func validateStorefrontSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(provided, mac.Sum(nil))
}
