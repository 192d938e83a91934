package domain

import "time"

// Stream is a livestream with its streamer and the payments it received.
type Stream struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	StreamLink  *string          `json:"streamLink"`
	IsLive      bool             `json:"isLive"`
	StreamerID  string           `json:"streamerId"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Streamer    *StreamerSummary `json:"streamer,omitempty"`
	// Payments holds successful payments only, newest first.
	Payments []StreamPayment `json:"payments,omitempty"`
}

// StreamerSummary is the owner shown on a stream.
type StreamerSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// StreamPayment is a successful payment as listed on a stream page.
type StreamPayment struct {
	ID        string       `json:"id"`
	Amount    float64      `json:"amount"`
	Message   *string      `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
	User      *UserSummary `json:"user,omitempty"`
}

// CreateStreamRequest represents a create stream request.
type CreateStreamRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	StreamLink  *string `json:"streamLink" binding:"omitempty,url"`
}

// StreamUpdate carries the stream fields an owner may change. Nil fields
// are left untouched.
type StreamUpdate struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	StreamLink  *string `json:"streamLink" binding:"omitempty,url"`
	IsLive      *bool   `json:"isLive"`
}

// Empty reports whether the update changes nothing.
func (u StreamUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.StreamLink == nil && u.IsLive == nil
}

// DonationTotal is the live running total for a stream.
type DonationTotal struct {
	StreamID string  `json:"streamId"`
	Total    float64 `json:"total"`
}
