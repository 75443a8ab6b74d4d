package devbackend

import "time"

// User is the dev backend's account record. The orchestrator treats the
// record as opaque; only this package knows its shape.
type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"index" json:"username"`
	Email        string `gorm:"index" json:"email,omitempty"`
	PasswordHash string `json:"-"`

	// Telegram identity, set for accounts created through the widget or
	// popup handshake.
	TelegramID int64  `gorm:"index" json:"telegram_id,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
