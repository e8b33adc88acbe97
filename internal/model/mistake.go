package model

import "time"

// Mistake is one categorized error observed in a student's work, e.g.
// category "符号" or "分数計算". Rows are append-only and never merged;
// per-category aggregation happens at read time.
type Mistake struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:50;not null;index" json:"user_id"`
	Category    string    `gorm:"size:100;not null" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	Problem     string    `gorm:"type:text" json:"problem"`
	CreatedAt   time.Time `json:"created_at"`
}
