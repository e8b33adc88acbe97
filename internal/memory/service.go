package memory

import (
	"context"
	"errors"
	"fmt"

	"manabinote/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// Store is the slice of the conversation store the compaction pass needs.
type Store interface {
	Get(sessionID string) (*model.Session, error)
	ListTurns(sessionID string) ([]model.Turn, error)
	SetSummary(sessionID, summary string, through uint) error
}

// Service runs one-shot compaction passes: load durable state, decide the
// fold, summarize, write back the new summary and watermark. Raw turns are
// never deleted; compaction changes only the in-context projection.
type Service struct {
	store      Store
	compactor  *Compactor
	summarizer Summarizer
}

func NewService(store Store, compactor *Compactor, summarizer Summarizer) *Service {
	return &Service{store: store, compactor: compactor, summarizer: summarizer}
}

// CompactSession folds the oldest over-budget turns of a session into its
// rolling summary. Reports whether anything was folded.
func (s *Service) CompactSession(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, ErrSessionNotFound
	}

	turns, err := s.store.ListTurns(sessionID)
	if err != nil {
		return false, err
	}

	plan, ok := s.compactor.BuildPlan(session, turns)
	if !ok {
		return false, nil
	}

	summary, err := s.summarizer.Summarize(ctx, session.Summary, FormatTranscript(plan.Fold))
	if err != nil {
		return false, fmt.Errorf("summarize folded turns failed: %w", err)
	}
	if summary == "" {
		return false, fmt.Errorf("summarizer returned empty summary for session %s", sessionID)
	}

	through := plan.Fold[len(plan.Fold)-1].ID
	if err := s.store.SetSummary(sessionID, summary, through); err != nil {
		return false, err
	}
	return true, nil
}
