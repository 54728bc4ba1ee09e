package enums

// MessageStatus tracks an inbound message through the pipeline.
type MessageStatus string

const (
	MessageStatusReceived   MessageStatus = "received"
	MessageStatusClassified MessageStatus = "classified"
	MessageStatusReplied    MessageStatus = "replied"
	MessageStatusSuppressed MessageStatus = "suppressed"
	MessageStatusFailed     MessageStatus = "failed"
)

var validMessageStatuses = []MessageStatus{
	MessageStatusReceived,
	MessageStatusClassified,
	MessageStatusReplied,
	MessageStatusSuppressed,
	MessageStatusFailed,
}

// String implements fmt.Stringer.
func (s MessageStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s MessageStatus) IsValid() bool {
	for _, candidate := range validMessageStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
