package app

import (
	"strings"
	"time"

	"manabinote/internal/model"
	"manabinote/internal/repository"
)

// CategoryStat is the per-category aggregate of a user's mistake ledger.
type CategoryStat struct {
	Count    int64     `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

// MistakeDigest maps category to its aggregate. Computed at read time from
// the append-only ledger, never stored.
type MistakeDigest map[string]CategoryStat

type MistakeService struct {
	userRepo    *repository.UserRepository
	mistakeRepo *repository.MistakeRepository
}

type RecordMistakeInput struct {
	UserID      string
	Category    string
	Description string
	Problem     string
}

func NewMistakeService(userRepo *repository.UserRepository, mistakeRepo *repository.MistakeRepository) *MistakeService {
	return &MistakeService{userRepo: userRepo, mistakeRepo: mistakeRepo}
}

// Record appends one immutable ledger row, creating the user first if
// absent. Repeated categories accumulate separate rows.
func (s *MistakeService) Record(input RecordMistakeInput) (*model.Mistake, error) {
	userID := strings.TrimSpace(input.UserID)
	category := strings.TrimSpace(input.Category)
	if userID == "" || category == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetOrCreate(userID); err != nil {
		return nil, err
	}

	mistake := &model.Mistake{
		UserID:      userID,
		Category:    category,
		Description: input.Description,
		Problem:     input.Problem,
	}
	if err := s.mistakeRepo.Create(mistake); err != nil {
		return nil, err
	}
	return mistake, nil
}

// SummaryFor returns the per-category digest for a user. A user with no
// records (or an unknown user) gets an empty digest, not an error.
func (s *MistakeService) SummaryFor(userID string) (MistakeDigest, error) {
	rows, err := s.mistakeRepo.AggregateByCategory(userID)
	if err != nil {
		return nil, err
	}

	digest := make(MistakeDigest, len(rows))
	for _, row := range rows {
		digest[row.Category] = CategoryStat{Count: row.Count, LastSeen: row.LastSeen}
	}
	return digest, nil
}

// HistoryFor returns the most recent ledger rows, newest first, capped at
// limit (default 50).
func (s *MistakeService) HistoryFor(userID string, limit int) ([]model.Mistake, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.mistakeRepo.ListRecent(userID, limit)
}
