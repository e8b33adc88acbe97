// Package memory bounds the raw conversation window that gets resent to the
// LLM on every call. Older turns are folded into a rolling summary; the
// durable turn log itself is never touched.
package memory

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"manabinote/internal/model"
)

const (
	defaultMaxContextTokens = 2000
	defaultMinRecentTurns   = 2
)

// Compactor decides which turns to fold when the unfolded window exceeds the
// token budget. It holds no per-session state; the fold watermark lives on
// the session row.
type Compactor struct {
	maxTokens      int
	minRecentTurns int
	codec          tokenizer.Codec
}

// Plan is the outcome of one compaction decision: Fold is the oldest slice
// of unfolded turns to be summarized, Keep is what stays verbatim.
type Plan struct {
	Fold []model.Turn
	Keep []model.Turn
}

func NewCompactor(maxTokens, minRecentTurns int) (*Compactor, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxContextTokens
	}
	if minRecentTurns <= 0 {
		minRecentTurns = defaultMinRecentTurns
	}

	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer failed: %w", err)
	}

	return &Compactor{
		maxTokens:      maxTokens,
		minRecentTurns: minRecentTurns,
		codec:          codec,
	}, nil
}

// NeedsCompaction reports whether the unfolded window is over budget.
func (c *Compactor) NeedsCompaction(session *model.Session, turns []model.Turn) bool {
	unfolded := unfoldedTurns(session, turns)
	return c.windowTokens(unfolded) > c.maxTokens
}

// BuildPlan peels the oldest unfolded turns until the remainder fits the
// budget, always keeping at least minRecentTurns verbatim. Reports false
// when there is nothing to fold.
func (c *Compactor) BuildPlan(session *model.Session, turns []model.Turn) (Plan, bool) {
	unfolded := unfoldedTurns(session, turns)
	total := c.windowTokens(unfolded)
	if total <= c.maxTokens {
		return Plan{}, false
	}

	foldCount := 0
	for total > c.maxTokens && len(unfolded)-foldCount > c.minRecentTurns {
		total -= c.turnTokens(unfolded[foldCount])
		foldCount++
	}
	if foldCount == 0 {
		return Plan{}, false
	}

	return Plan{
		Fold: unfolded[:foldCount],
		Keep: unfolded[foldCount:],
	}, true
}

func (c *Compactor) windowTokens(turns []model.Turn) int {
	total := 0
	for _, turn := range turns {
		total += c.turnTokens(turn)
	}
	return total
}

func (c *Compactor) turnTokens(turn model.Turn) int {
	ids, _, err := c.codec.Encode(turn.Role + ": " + turn.Content)
	if err != nil {
		// rough chars-per-token fallback
		return len(turn.Content)/4 + 1
	}
	return len(ids)
}

func unfoldedTurns(session *model.Session, turns []model.Turn) []model.Turn {
	for i, turn := range turns {
		if turn.ID > session.SummarizedThrough {
			return turns[i:]
		}
	}
	return nil
}
