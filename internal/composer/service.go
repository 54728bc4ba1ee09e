package composer

import (
	"context"
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

// Turn is one prior message in the conversation, oldest first.
type Turn struct {
	FromCustomer bool
	Text         string
}

// Input carries everything the generator needs for one reply.
type Input struct {
	Channel        enums.Channel
	Outcome        enums.DecisionOutcome
	Intent         enums.Intent
	OriginalText   string
	BrandVoice     string
	ProductHandle  string
	VariantCount   int
	LinkURL        string
	ProductPageURL string
	PriorLinkURL   string
	History        []Turn
}

// Service turns a decision into final reply text. Generation failures fall
// back to a static template; the returned text is never empty.
type Service interface {
	Compose(ctx context.Context, in Input) (string, error)
}

type service struct {
	client        completionClient
	maxReplyChars int
	logg          *logger.Logger
}

// NewService builds the reply composer. maxReplyChars caps the outbound text
// so it never exceeds the provider's message limit.
func NewService(client completionClient, maxReplyChars int, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if maxReplyChars <= 0 {
		return nil, fmt.Errorf("max reply chars must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{client: client, maxReplyChars: maxReplyChars, logg: logg}, nil
}

func (s *service) Compose(ctx context.Context, in Input) (string, error) {
	switch in.Outcome {
	case enums.DecisionSend, enums.DecisionAskClarifying:
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "nothing to compose for a suppressed decision")
	}

	var generated string
	err := pkgretry.Do(ctx, pkgretry.Default, pkgretry.ByErrorCode, func(ctx context.Context) error {
		var callErr error
		generated, callErr = s.client.Complete(ctx, openai.CompletionRequest{
			Messages:    s.prompt(in),
			Temperature: 0.6,
			MaxTokens:   300,
		})
		return callErr
	})
	if err != nil {
		s.logg.Warn(ctx, "reply generation failed, using fallback template")
		return s.clamp(fallbackReply(in)), nil
	}

	generated = strings.TrimSpace(generated)
	if generated == "" {
		return s.clamp(fallbackReply(in)), nil
	}
	// The product page reads before the checkout link when both are missing.
	if in.ProductPageURL != "" && !strings.Contains(generated, in.ProductPageURL) {
		generated = generated + "\n" + in.ProductPageURL
	}
	if in.LinkURL != "" && !strings.Contains(generated, in.LinkURL) {
		generated = generated + "\n" + in.LinkURL
	}
	return s.clamp(generated), nil
}

func (s *service) prompt(in Input) []openai.Message {
	var sb strings.Builder
	sb.WriteString("You write short replies on behalf of an online store responding to customers on social media.\n")
	if in.Channel == enums.ChannelComment {
		sb.WriteString("The reply is a private response to a public comment; keep it to a couple of sentences.\n")
	} else {
		sb.WriteString("The reply is a direct message; keep it to a few sentences.\n")
	}
	if voice := strings.TrimSpace(in.BrandVoice); voice != "" {
		sb.WriteString("Match this brand voice: " + voice + "\n")
	}

	if in.Outcome == enums.DecisionAskClarifying {
		sb.WriteString("You do not know which product the customer means. Ask one friendly clarifying question. Do not guess a product and do not include any links.\n")
	} else {
		if in.ProductHandle != "" {
			sb.WriteString("The customer is asking about the product \"" + humanizeHandle(in.ProductHandle) + "\".\n")
		}
		if in.VariantCount == 1 {
			sb.WriteString("This product comes in exactly one option. Never claim other colors, sizes, or variants exist.\n")
		}
		if in.ProductPageURL != "" {
			sb.WriteString("Mention the product page first: " + in.ProductPageURL + "\n")
		}
		if in.LinkURL != "" {
			sb.WriteString("Include this exact link once: " + in.LinkURL + "\n")
		}
		if in.PriorLinkURL != "" && in.PriorLinkURL != in.LinkURL {
			sb.WriteString("You already sent this link earlier in the conversation, do not repeat it: " + in.PriorLinkURL + "\n")
		}
	}
	sb.WriteString("Never invent prices, stock levels, or shipping promises. Reply with the message text only.")

	messages := []openai.Message{{Role: "system", Content: sb.String()}}
	for _, turn := range in.History {
		role := "assistant"
		if turn.FromCustomer {
			role = "user"
		}
		messages = append(messages, openai.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, openai.Message{Role: "user", Content: in.OriginalText})
	return messages
}

func fallbackReply(in Input) string {
	if in.Outcome == enums.DecisionAskClarifying {
		return "Happy to help! Which product are you asking about? Share the name and I'll send the details right over."
	}
	if in.LinkURL != "" {
		if in.ProductPageURL != "" {
			return "Thanks for reaching out! Take a look here: " + in.ProductPageURL + "\nReady to grab it? " + in.LinkURL
		}
		return "Thanks for reaching out! You can find everything here: " + in.LinkURL
	}
	return "Thanks for reaching out! We'll get back to you with details shortly."
}

// clamp truncates on a rune boundary, keeping a trailing link intact when one
// was appended past the limit.
func (s *service) clamp(text string) string {
	runes := []rune(text)
	if len(runes) <= s.maxReplyChars {
		return text
	}
	if idx := strings.LastIndex(text, "\nhttp"); idx > 0 {
		link := text[idx+1:]
		budget := s.maxReplyChars - len([]rune(link)) - 1
		if budget > 0 {
			body := strings.TrimSpace(string([]rune(text[:idx])[:budget]))
			return body + "\n" + link
		}
		return link
	}
	return string(runes[:s.maxReplyChars])
}

func humanizeHandle(handle string) string {
	return strings.TrimSpace(strings.ReplaceAll(handle, "-", " "))
}
