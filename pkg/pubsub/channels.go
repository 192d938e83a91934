package pubsub

import "fmt"

// Channel naming conventions for donation events.
const (
	// ChannelStreamSuperchat carries paid messages for one stream.
	ChannelStreamSuperchat = "donation:stream:%s:superchat"

	// PatternSuperchat matches the superchat channel of every stream.
	PatternSuperchat = "donation:stream:*:superchat"
)

// Event types.
const (
	EventSuperchat = "superchat"
)

// SuperchatChannel returns the channel name for a stream's superchats.
func SuperchatChannel(streamID string) string {
	return fmt.Sprintf(ChannelStreamSuperchat, streamID)
}

// SuperchatPayload is published once a payment settles successfully.
type SuperchatPayload struct {
	PaymentID string  `json:"payment_id"`
	StreamID  string  `json:"stream_id"`
	UserID    string  `json:"user_id"`
	Username  string  `json:"username"`
	Amount    float64 `json:"amount"`
	Message   string  `json:"message,omitempty"`
	// Total is the stream's running donation total after this payment.
	Total float64 `json:"total"`
}
