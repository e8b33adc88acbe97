package model

import "time"

// SessionImage is an additional homework image uploaded into an existing
// session. OrderIndex is 1-based and gap-free per session; the session's
// primary image is implicitly index 0 and lives on the Session row itself.
type SessionImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"size:50;not null;index" json:"session_id"`
	ImageURL   string    `gorm:"size:500;not null" json:"image_url"`
	Comment    string    `gorm:"type:text" json:"comment"`
	OrderIndex int       `gorm:"not null" json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
}
