package enums

// Intent is the classifier's label for an inbound message.
//
// The taxonomy splits into product-specific intents (the shopper is asking
// about a concrete product), the general store question, and everything else,
// which is never automated.
type Intent string

const (
	IntentPurchase        Intent = "purchase"
	IntentProductQuestion Intent = "product_question"
	IntentVariantInquiry  Intent = "variant_inquiry"
	IntentPriceRequest    Intent = "price_request"
	IntentStoreQuestion   Intent = "store_question"
	IntentGreeting        Intent = "greeting"
	IntentComplaint       Intent = "complaint"
	IntentSpam            Intent = "spam"
	IntentOther           Intent = "other"
)

var validIntents = []Intent{
	IntentPurchase,
	IntentProductQuestion,
	IntentVariantInquiry,
	IntentPriceRequest,
	IntentStoreQuestion,
	IntentGreeting,
	IntentComplaint,
	IntentSpam,
	IntentOther,
}

var productSpecificIntents = map[Intent]struct{}{
	IntentPurchase:        {},
	IntentProductQuestion: {},
	IntentVariantInquiry:  {},
	IntentPriceRequest:    {},
}

// String implements fmt.Stringer.
func (i Intent) String() string {
	return string(i)
}

// IsValid reports whether the value is known.
func (i Intent) IsValid() bool {
	for _, candidate := range validIntents {
		if candidate == i {
			return true
		}
	}
	return false
}

// IsProductSpecific reports whether the intent needs product context to answer.
func (i Intent) IsProductSpecific() bool {
	_, ok := productSpecificIntents[i]
	return ok
}

// IsEligible reports whether the intent can ever trigger an automated reply.
func (i Intent) IsEligible() bool {
	return i.IsProductSpecific() || i == IntentStoreQuestion
}
