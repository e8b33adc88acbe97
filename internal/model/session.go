package model

import "time"

// Session is one homework-checking conversation anchored to a primary image.
// Summary holds the rolling digest of turns that were folded out of the LLM
// context; SummarizedThrough is the highest turn id covered by that digest
// (0 means nothing has been folded). The raw turn log is never deleted.
type Session struct {
	ID                string    `gorm:"primaryKey;size:50" json:"id"`
	UserID            string    `gorm:"size:50;not null;index" json:"user_id"`
	ImageURL          string    `gorm:"size:500" json:"image_url"`
	UserComment       string    `gorm:"type:text" json:"user_comment"`
	Summary           string    `gorm:"type:text" json:"summary"`
	SummarizedThrough uint      `gorm:"not null;default:0" json:"summarized_through"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Turns  []Turn         `gorm:"constraint:OnDelete:CASCADE" json:"turns,omitempty"`
	Images []SessionImage `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty"`
}
