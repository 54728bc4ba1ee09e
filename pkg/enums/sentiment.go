package enums

// Sentiment is the classifier's tone label for an inbound message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var validSentiments = []Sentiment{
	SentimentPositive,
	SentimentNeutral,
	SentimentNegative,
}

// String implements fmt.Stringer.
func (s Sentiment) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s Sentiment) IsValid() bool {
	for _, candidate := range validSentiments {
		if candidate == s {
			return true
		}
	}
	return false
}
