package eventlog

import "time"

// Event is one append-only record of a conversation turn, written after the
// primary session write and never required for chat correctness.
type Event struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"` // ULID
	UserID    string    `gorm:"size:64;index;not null" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Channel   string    `gorm:"size:32;index;not null" json:"channel"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Event) TableName() string { return "message_events" }
