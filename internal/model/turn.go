package model

import "time"

// Turn roles. The conversation log only ever contains these two values;
// system messages are assembled per call and never persisted.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a session's conversation log. Turns are append-only:
// never edited, never reordered, never deleted. Ids are monotonic within a
// session because appends are serialized on the session row.
type Turn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:50;not null;index" json:"session_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
