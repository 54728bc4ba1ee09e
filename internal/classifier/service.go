package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/replyflow/replyflow-backend/pkg/enums"
	pkgerrors "github.com/replyflow/replyflow-backend/pkg/errors"
	"github.com/replyflow/replyflow-backend/pkg/logger"
	"github.com/replyflow/replyflow-backend/pkg/openai"
	pkgretry "github.com/replyflow/replyflow-backend/pkg/retry"
)

type completionClient interface {
	Complete(ctx context.Context, req openai.CompletionRequest) (string, error)
}

// Classification is the classifier's verdict for one inbound text. Low
// confidence is passed through untouched; the decision engine owns the gate.
type Classification struct {
	Intent     enums.Intent
	Confidence float64
	Sentiment  enums.Sentiment
}

// Service labels inbound message text with intent, confidence, and sentiment.
type Service interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

type service struct {
	client completionClient
	logg   *logger.Logger
}

// NewService builds the classifier adapter.
func NewService(client completionClient, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{client: client, logg: logg}, nil
}

const classifySystemPrompt = `You label inbound messages sent to an online store.
Respond with a JSON object: {"intent": string, "confidence": number, "sentiment": string}.
intent must be one of: purchase, product_question, variant_inquiry, price_request, store_question, greeting, complaint, spam, other.
confidence is your certainty in the intent label, between 0 and 1.
sentiment must be one of: positive, neutral, negative.`

type classifyResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Sentiment  string  `json:"sentiment"`
}

func (s *service) Classify(ctx context.Context, text string) (*Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot classify empty text")
	}

	var content string
	err := pkgretry.Do(ctx, pkgretry.Default, pkgretry.ByErrorCode, func(ctx context.Context) error {
		var callErr error
		content, callErr = s.client.Complete(ctx, openai.CompletionRequest{
			Messages: []openai.Message{
				{Role: "system", Content: classifySystemPrompt},
				{Role: "user", Content: text},
			},
			Temperature: 0,
			MaxTokens:   120,
			JSONMode:    true,
		})
		return callErr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeClassificationFailed, err, "classify message")
	}

	var result classifyResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeClassificationFailed, err, "decode classifier output")
	}

	return &Classification{
		Intent:     normalizeIntent(result.Intent),
		Confidence: clampConfidence(result.Confidence),
		Sentiment:  normalizeSentiment(result.Sentiment),
	}, nil
}

// normalizeIntent folds unknown labels into IntentOther rather than failing
// the event; an unrecognized label still suppresses downstream.
func normalizeIntent(raw string) enums.Intent {
	intent := enums.Intent(strings.ToLower(strings.TrimSpace(raw)))
	if !intent.IsValid() {
		return enums.IntentOther
	}
	return intent
}

func normalizeSentiment(raw string) enums.Sentiment {
	sentiment := enums.Sentiment(strings.ToLower(strings.TrimSpace(raw)))
	if !sentiment.IsValid() {
		return enums.SentimentNeutral
	}
	return sentiment
}

func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
