package enums

// Channel is the inbound surface an event arrived on.
type Channel string

const (
	ChannelDM      Channel = "dm"
	ChannelComment Channel = "comment"
)

var validChannels = []Channel{
	ChannelDM,
	ChannelComment,
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}
