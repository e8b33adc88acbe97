package model

import "time"

const DefaultUserName = "ゲスト"

// User ids are opaque strings supplied by the client (e.g. a device id).
// Users are created lazily on first contact and never deleted by the app.
type User struct {
	ID        string    `gorm:"primaryKey;size:50" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sessions []Session `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Mistakes []Mistake `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
