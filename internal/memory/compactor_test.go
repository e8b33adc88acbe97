package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manabinote/internal/model"
)

// longText is comfortably over any small test budget on its own.
var longText = strings.Repeat("一次方程式の移項を確認しました。", 20)

func makeTurns(contents ...string) []model.Turn {
	turns := make([]model.Turn, 0, len(contents))
	for i, content := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		turns = append(turns, model.Turn{ID: uint(i + 1), Role: role, Content: content})
	}
	return turns
}

func TestBuildPlan_UnderBudget(t *testing.T) {
	compactor, err := NewCompactor(10000, 2)
	require.NoError(t, err)

	session := &model.Session{ID: "s"}
	turns := makeTurns("短い", "短い", "短い", "短い")

	assert.False(t, compactor.NeedsCompaction(session, turns))
	_, ok := compactor.BuildPlan(session, turns)
	assert.False(t, ok)
}

func TestBuildPlan_FoldsOldestKeepsRecent(t *testing.T) {
	compactor, err := NewCompactor(50, 2)
	require.NoError(t, err)

	session := &model.Session{ID: "s"}
	turns := makeTurns(longText, longText, longText, longText, longText, longText)

	require.True(t, compactor.NeedsCompaction(session, turns))
	plan, ok := compactor.BuildPlan(session, turns)
	require.True(t, ok)

	// every turn alone exceeds the budget, so folding stops only at the
	// keep-recent floor
	require.Len(t, plan.Keep, 2)
	require.Len(t, plan.Fold, 4)
	assert.Equal(t, uint(1), plan.Fold[0].ID)
	assert.Equal(t, uint(4), plan.Fold[3].ID)
	assert.Equal(t, uint(5), plan.Keep[0].ID)
}

func TestBuildPlan_SkipsAlreadyFoldedTurns(t *testing.T) {
	compactor, err := NewCompactor(10000, 2)
	require.NoError(t, err)

	session := &model.Session{ID: "s", SummarizedThrough: 4}
	turns := makeTurns(longText, longText, longText, longText, "短い", "短い")

	// folded turns no longer count against the budget
	assert.False(t, compactor.NeedsCompaction(session, turns))
	_, ok := compactor.BuildPlan(session, turns)
	assert.False(t, ok)
}

func TestFormatTranscript(t *testing.T) {
	turns := makeTurns("x+3=5 を解きました", "いいね！次は移項してみよう")

	transcript := FormatTranscript(turns)
	assert.Contains(t, transcript, "生徒: x+3=5 を解きました")
	assert.Contains(t, transcript, "先生: いいね！次は移項してみよう")
}

type memoryFakeStore struct {
	session *model.Session
	turns   []model.Turn

	setSummaryCalls int
}

func (f *memoryFakeStore) Get(sessionID string) (*model.Session, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, nil
	}
	return f.session, nil
}

func (f *memoryFakeStore) ListTurns(sessionID string) ([]model.Turn, error) {
	return f.turns, nil
}

func (f *memoryFakeStore) SetSummary(sessionID, summary string, through uint) error {
	f.session.Summary = summary
	f.session.SummarizedThrough = through
	f.setSummaryCalls++
	return nil
}

type fakeSummarizer struct {
	summary        string
	err            error
	gotPrior       string
	gotTranscript  string
	summarizeCalls int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, priorSummary, transcript string) (string, error) {
	f.summarizeCalls++
	f.gotPrior = priorSummary
	f.gotTranscript = transcript
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func TestCompactSession(t *testing.T) {
	compactor, err := NewCompactor(50, 2)
	require.NoError(t, err)

	store := &memoryFakeStore{
		session: &model.Session{ID: "s", Summary: "前回の要約"},
		turns:   makeTurns(longText, longText, longText, "短い", "短い"),
	}
	summarizer := &fakeSummarizer{summary: "更新された要約"}
	service := NewService(store, compactor, summarizer)

	folded, err := service.CompactSession(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, folded)

	assert.Equal(t, "更新された要約", store.session.Summary)
	assert.Equal(t, uint(3), store.session.SummarizedThrough)
	assert.Equal(t, "前回の要約", summarizer.gotPrior)
	assert.Contains(t, summarizer.gotTranscript, "生徒: ")

	// the kept tail is now under budget; a second pass is a no-op
	folded, err = service.CompactSession(context.Background(), "s")
	require.NoError(t, err)
	assert.False(t, folded)
	assert.Equal(t, 1, summarizer.summarizeCalls)
	assert.Equal(t, 1, store.setSummaryCalls)
}

func TestCompactSession_UnderBudgetNoop(t *testing.T) {
	compactor, err := NewCompactor(10000, 2)
	require.NoError(t, err)

	store := &memoryFakeStore{
		session: &model.Session{ID: "s"},
		turns:   makeTurns("短い", "短い"),
	}
	summarizer := &fakeSummarizer{summary: "要約"}
	service := NewService(store, compactor, summarizer)

	folded, err := service.CompactSession(context.Background(), "s")
	require.NoError(t, err)
	assert.False(t, folded)
	assert.Zero(t, summarizer.summarizeCalls)
}

func TestCompactSession_SummarizerFailureWritesNothing(t *testing.T) {
	compactor, err := NewCompactor(50, 2)
	require.NoError(t, err)

	store := &memoryFakeStore{
		session: &model.Session{ID: "s"},
		turns:   makeTurns(longText, longText, longText, longText),
	}
	summarizer := &fakeSummarizer{err: errors.New("upstream down")}
	service := NewService(store, compactor, summarizer)

	folded, err := service.CompactSession(context.Background(), "s")
	assert.Error(t, err)
	assert.False(t, folded)
	assert.Zero(t, store.setSummaryCalls)
	assert.Zero(t, store.session.SummarizedThrough)
}

func TestCompactSession_NotFound(t *testing.T) {
	compactor, err := NewCompactor(50, 2)
	require.NoError(t, err)

	service := NewService(&memoryFakeStore{}, compactor, &fakeSummarizer{})
	_, err = service.CompactSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
