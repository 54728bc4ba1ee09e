package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/replyflow/replyflow-backend/pkg/config"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	pkgretry "github.com/replyflow/replyflow-backend/pkg/retry"
)

var (
	errAppIDRequired      = errors.New("meta app id is required")
	errAppSecretRequired  = errors.New("meta app secret is required")
	errAPIVersionRequired = errors.New("meta api version is required")
	errLoggerRequired     = errors.New("meta logger is required")
)

// Client wraps the Graph API with centralized auth, timeouts, and error
// mapping. It is credential-agnostic: every call takes the merchant token so
// one client serves all merchants.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	appSecret  string
	apiVersion string
	logger     *logger.Logger
}

// NewClient validates the application identity and builds the wrapper.
func NewClient(ctx context.Context, cfg config.MetaConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	appID := strings.TrimSpace(cfg.AppID)
	if appID == "" {
		return nil, errAppIDRequired
	}
	appSecret := strings.TrimSpace(cfg.AppSecret)
	if appSecret == "" {
		return nil, errAppSecretRequired
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		return nil, errAPIVersionRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	base := strings.TrimRight(cfg.GraphBaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com"
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		appID:      appID,
		appSecret:  appSecret,
		apiVersion: version,
		logger:     logg,
	}

	logg.Info(ctx, "meta graph client initialized")
	return c, nil
}

// AppID returns the configured application id.
func (c *Client) AppID() string {
	if c == nil {
		return ""
	}
	return c.appID
}

// APIVersion reports the Graph API version in use.
func (c *Client) APIVersion() string {
	if c == nil {
		return ""
	}
	return c.apiVersion
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimLeft(path, "/"))
}

// Recipient addresses an outbound message. Exactly one field is set: UserID
// for DM replies, CommentID for private replies to a public comment.
type Recipient struct {
	UserID    string `json:"id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

type sendMessageRequest struct {
	Recipient Recipient `json:"recipient"`
	Message   struct {
		Text string `json:"text"`
	} `json:"message"`
}

type sendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// SendMessage posts a text reply through /{business-account-id}/messages and
// returns the provider message id.
func (c *Client) SendMessage(ctx context.Context, accessToken, businessAccountID string, recipient Recipient, text string) (string, error) {
	if strings.TrimSpace(accessToken) == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotConnected, "access token missing")
	}
	if strings.TrimSpace(businessAccountID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "business account id missing")
	}
	if recipient.UserID == "" && recipient.CommentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "recipient missing")
	}
	if strings.TrimSpace(text) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message text missing")
	}

	payload := sendMessageRequest{Recipient: recipient}
	payload.Message.Text = text
	body, err := json.Marshal(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode message payload")
	}

	endpoint := c.endpoint(businessAccountID+"/messages") + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build send request")
	}
	req.Header.Set("Content-Type", "application/json")

	var resp sendMessageResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.MessageID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDispatchFailed, "provider returned no message id")
	}
	return resp.MessageID, nil
}

type tokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangedToken is the result of a refresh/exchange call.
type ExchangedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ExchangeToken trades the current token for a fresh long-lived one. Page
// logins go through the fb_exchange_token grant; direct logins use the
// refresh_access_token endpoint.
func (c *Client) ExchangeToken(ctx context.Context, currentToken string, pageLogin bool) (*ExchangedToken, error) {
	if strings.TrimSpace(currentToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotConnected, "current token missing")
	}

	var endpoint string
	if pageLogin {
		q := url.Values{}
		q.Set("grant_type", "fb_exchange_token")
		q.Set("client_id", c.appID)
		q.Set("client_secret", c.appSecret)
		q.Set("fb_exchange_token", currentToken)
		endpoint = c.endpoint("oauth/access_token") + "?" + q.Encode()
	} else {
		q := url.Values{}
		q.Set("grant_type", "ig_refresh_token")
		q.Set("access_token", currentToken)
		endpoint = c.endpoint("refresh_access_token") + "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build exchange request")
	}

	var resp tokenExchangeResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeReauthRequired, "exchange returned no token")
	}

	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if resp.ExpiresIn <= 0 {
		// Long-lived page tokens report no expiry; treat as 60 days.
		expiresAt = time.Now().Add(60 * 24 * time.Hour)
	}
	return &ExchangedToken{AccessToken: resp.AccessToken, ExpiresAt: expiresAt}, nil
}

type subscribedAppsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Success bool `json:"success"`
}

// IsSubscribed checks whether this app receives webhook events for the page.
func (c *Client) IsSubscribed(ctx context.Context, accessToken, pageID string) (bool, error) {
	endpoint := c.endpoint(pageID+"/subscribed_apps") + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build subscription check")
	}

	var resp subscribedAppsResponse
	if err := c.do(req, &resp); err != nil {
		return false, err
	}
	for _, app := range resp.Data {
		if app.ID == c.appID {
			return true, nil
		}
	}
	return false, nil
}

// Subscribe registers the app for the page's webhook delivery.
func (c *Client) Subscribe(ctx context.Context, accessToken, pageID string) error {
	q := url.Values{}
	q.Set("subscribed_fields", "messages,comments")
	q.Set("access_token", accessToken)
	endpoint := c.endpoint(pageID+"/subscribed_apps") + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build subscribe request")
	}

	var resp subscribedAppsResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return pkgerrors.New(pkgerrors.CodePermissionDenied, "subscription was not accepted")
	}
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTemporarilyUnavailable, err, "graph api call")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTemporarilyUnavailable, err, "read graph response")
	}

	if res.StatusCode >= 400 {
		return mapGraphError(res.StatusCode, res.Header, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode graph response")
	}
	return nil
}

// RetryAfter extracts the provider's backoff hint from a rate-limit error.
// The retry policy honors the same hint between attempts.
func RetryAfter(err error) (time.Duration, bool) {
	return pkgretry.RetryAfterHint(err)
}

func retryAfterSeconds(header http.Header) int {
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
