package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"manabinote/internal/model"
)

// MistakeRepository is the append-only ledger of categorized errors.
// Rows are never updated, merged, or deleted.
type MistakeRepository struct {
	db *gorm.DB
}

// CategoryAggregate is one row of the grouped digest query.
type CategoryAggregate struct {
	Category string
	Count    int64
	LastSeen time.Time
}

func NewMistakeRepository(db *gorm.DB) *MistakeRepository {
	return &MistakeRepository{db: db}
}

func (r *MistakeRepository) Create(mistake *model.Mistake) error {
	if err := r.db.Create(mistake).Error; err != nil {
		return fmt.Errorf("create mistake failed: %w", err)
	}
	return nil
}

// AggregateByCategory returns count and most recent timestamp per category
// for one user. An empty slice, not an error, when the user has no records.
func (r *MistakeRepository) AggregateByCategory(userID string) ([]CategoryAggregate, error) {
	var rows []CategoryAggregate
	err := r.db.Model(&model.Mistake{}).
		Select("category, COUNT(id) AS count, MAX(created_at) AS last_seen").
		Where("user_id = ?", userID).
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate mistakes failed: %w", err)
	}
	return rows, nil
}

func (r *MistakeRepository) ListRecent(userID string, limit int) ([]model.Mistake, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var mistakes []model.Mistake
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&mistakes).Error
	if err != nil {
		return nil, fmt.Errorf("list mistakes failed: %w", err)
	}
	return mistakes, nil
}
