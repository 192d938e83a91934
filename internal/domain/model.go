package domain

import "time"

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID        string        `gorm:"type:varchar(36);primaryKey"`
	Name      string        `gorm:"type:varchar(100);not null"`
	Email     string        `gorm:"type:varchar(255);uniqueIndex;not null"`
	Role      string        `gorm:"type:varchar(20);not null;default:'USER'"`
	AvatarURL *string       `gorm:"type:text"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
	Streams   []StreamModel `gorm:"foreignKey:StreamerID"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// StreamModel is the GORM model for the streams table.
type StreamModel struct {
	ID          string         `gorm:"type:varchar(36);primaryKey"`
	Title       string         `gorm:"type:varchar(200);not null"`
	Description *string        `gorm:"type:text"`
	StreamLink  *string        `gorm:"type:text"`
	IsLive      bool           `gorm:"index;not null;default:false"`
	StreamerID  string         `gorm:"type:varchar(36);index;not null"`
	Streamer    UserModel      `gorm:"foreignKey:StreamerID"`
	Payments    []PaymentModel `gorm:"foreignKey:StreamID"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for StreamModel.
func (StreamModel) TableName() string {
	return "streams"
}

// PaymentModel is the GORM model for the payments table.
type PaymentModel struct {
	ID        string      `gorm:"type:varchar(64);primaryKey"`
	Amount    float64     `gorm:"not null"`
	Message   *string     `gorm:"type:text"`
	UserID    string      `gorm:"type:varchar(36);index;not null"`
	User      UserModel   `gorm:"foreignKey:UserID"`
	StreamID  string      `gorm:"type:varchar(36);index;not null"`
	Stream    StreamModel `gorm:"foreignKey:StreamID"`
	Status    string      `gorm:"type:varchar(20);index;not null;default:'PENDING'"`
	CreatedAt time.Time   `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for PaymentModel.
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts UserModel to a User, including stream summaries when
// the Streams association was loaded.
func (m *UserModel) ToDomain() *User {
	streams := make([]StreamSummary, len(m.Streams))
	for i, s := range m.Streams {
		streams[i] = StreamSummary{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			IsLive:      s.IsLive,
			CreatedAt:   s.CreatedAt,
		}
	}
	return &User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      Role(m.Role),
		AvatarURL: m.AvatarURL,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Streams:   streams,
	}
}

func (m *UserModel) summary() *UserSummary {
	if m.ID == "" {
		return nil
	}
	return &UserSummary{ID: m.ID, Name: m.Name, AvatarURL: m.AvatarURL}
}

func (m *UserModel) streamerSummary(withContact bool) *StreamerSummary {
	if m.ID == "" {
		return nil
	}
	s := &StreamerSummary{ID: m.ID, Name: m.Name}
	if withContact {
		s.Email = m.Email
		s.AvatarURL = m.AvatarURL
	}
	return s
}

// ToDomain converts StreamModel to a Stream. The streamer and payments are
// included when their associations were loaded.
func (m *StreamModel) ToDomain() *Stream {
	s := &Stream{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		StreamLink:  m.StreamLink,
		IsLive:      m.IsLive,
		StreamerID:  m.StreamerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Streamer:    m.Streamer.streamerSummary(true),
	}
	if len(m.Payments) > 0 {
		s.Payments = make([]StreamPayment, len(m.Payments))
		for i, p := range m.Payments {
			s.Payments[i] = StreamPayment{
				ID:        p.ID,
				Amount:    p.Amount,
				Message:   p.Message,
				CreatedAt: p.CreatedAt,
				User:      p.User.summary(),
			}
		}
	}
	return s
}

// StreamToModel converts a Stream to StreamModel, without associations.
func StreamToModel(s *Stream) *StreamModel {
	return &StreamModel{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		StreamLink:  s.StreamLink,
		IsLive:      s.IsLive,
		StreamerID:  s.StreamerID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ToDomain converts PaymentModel to a Payment. Sender and stream are
// included when their associations were loaded.
func (m *PaymentModel) ToDomain() *Payment {
	p := &Payment{
		ID:        m.ID,
		Amount:    m.Amount,
		Message:   m.Message,
		UserID:    m.UserID,
		StreamID:  m.StreamID,
		Status:    PaymentStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		User:      m.User.summary(),
	}
	if m.Stream.ID != "" {
		p.Stream = &PaymentStream{
			ID:         m.Stream.ID,
			Title:      m.Stream.Title,
			StreamLink: m.Stream.StreamLink,
			Streamer:   m.Stream.Streamer.streamerSummary(false),
		}
	}
	return p
}

// PaymentToModel converts a Payment to PaymentModel, without associations.
func PaymentToModel(p *Payment) *PaymentModel {
	return &PaymentModel{
		ID:        p.ID,
		Amount:    p.Amount,
		Message:   p.Message,
		UserID:    p.UserID,
		StreamID:  p.StreamID,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
