package domain

import "time"

// Role is a user's platform role.
type Role string

const (
	RoleUser     Role = "USER"
	RoleStreamer Role = "STREAMER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleStreamer, RoleAdmin:
		return true
	}
	return false
}

// SelfAssignable reports whether a user may switch themselves to r.
func (r Role) SelfAssignable() bool {
	return r == RoleUser || r == RoleStreamer
}

// User is a platform account together with the streams it owns.
type User struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      Role            `json:"role"`
	AvatarURL *string         `json:"avatarUrl"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Streams   []StreamSummary `json:"streams"`
}

// UserSummary is the sender shown next to a payment.
type UserSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// StreamSummary is a stream as listed on its owner's profile.
type StreamSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsLive      bool      `json:"isLive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserUpdate carries the profile fields a user may change. Nil fields are
// left untouched.
type UserUpdate struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,max=2048"`
	Role      *Role   `json:"role"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.AvatarURL == nil && u.Role == nil
}

// LoginResponse is returned when an identity token is exchanged.
type LoginResponse struct {
	User        *User     `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
