package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"manabinote/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "repository_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Turn{},
		&model.SessionImage{},
		&model.Mistake{},
	))
	return db
}

func seedSession(t *testing.T, db *gorm.DB, sessionID string) {
	t.Helper()
	users := NewUserRepository(db)
	_, err := users.GetOrCreate("student-1")
	require.NoError(t, err)

	sessions := NewSessionRepository(db)
	require.NoError(t, sessions.Create(&model.Session{
		ID:       sessionID,
		UserID:   "student-1",
		ImageURL: "/uploads/a.jpg",
	}))
}

func TestUserRepository_GetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	missing, err := repo.GetByID("student-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := repo.GetOrCreate("student-1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultUserName, created.Name)

	again, err := repo.GetOrCreate("student-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSessionRepository_GetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)

	session, err := repo.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionRepository_AppendTurnPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	seedSession(t, db, "s1")

	first, err := repo.AppendTurnPair("s1", "問題を見てください", "いいですね！")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, model.RoleUser, first[0].Role)
	assert.Equal(t, model.RoleAssistant, first[1].Role)

	second, err := repo.AppendTurnPair("s1", "続きです", "その調子！")
	require.NoError(t, err)
	require.Len(t, second, 2)

	turns, err := repo.ListTurns("s1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	for i := 1; i < len(turns); i++ {
		assert.Greater(t, turns[i].ID, turns[i-1].ID)
	}
	assert.Equal(t, "問題を見てください", turns[0].Content)
	assert.Equal(t, "その調子！", turns[3].Content)
}

func TestSessionRepository_AppendTurnPairMissingSession(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)

	turns, err := repo.AppendTurnPair("missing", "u", "a")
	require.NoError(t, err)
	assert.Nil(t, turns)

	var count int64
	require.NoError(t, db.Model(&model.Turn{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSessionRepository_AppendImage(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	seedSession(t, db, "s1")

	for i := 1; i <= 3; i++ {
		image, err := repo.AppendImage("s1", "/uploads/b.jpg", "")
		require.NoError(t, err)
		require.NotNil(t, image)
		assert.Equal(t, i, image.OrderIndex)
	}

	images, err := repo.ListImages("s1")
	require.NoError(t, err)
	require.Len(t, images, 3)
	for i, image := range images {
		assert.Equal(t, i+1, image.OrderIndex)
	}

	missing, err := repo.AppendImage("missing", "/uploads/c.jpg", "")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepository_SetSummary(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	seedSession(t, db, "s1")

	require.NoError(t, repo.SetSummary("s1", "移項の練習をした", 6))

	session, err := repo.Get("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "移項の練習をした", session.Summary)
	assert.Equal(t, uint(6), session.SummarizedThrough)

	err = repo.SetSummary("missing", "x", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMistakeRepository_AggregateByCategory(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewMistakeRepository(db)

	_, err := users.GetOrCreate("student-1")
	require.NoError(t, err)
	_, err = users.GetOrCreate("student-2")
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rows := []model.Mistake{
		{UserID: "student-1", Category: "符号", Description: "マイナスを落とした", CreatedAt: base},
		{UserID: "student-1", Category: "符号", Description: "移項で符号ミス", CreatedAt: base.Add(time.Hour)},
		{UserID: "student-1", Category: "分数計算", Description: "通分を忘れた", CreatedAt: base.Add(2 * time.Hour)},
		{UserID: "student-2", Category: "符号", Description: "別の生徒の記録", CreatedAt: base},
	}
	for i := range rows {
		require.NoError(t, repo.Create(&rows[i]))
	}

	aggregates, err := repo.AggregateByCategory("student-1")
	require.NoError(t, err)
	require.Len(t, aggregates, 2)

	// categories sort ascending
	assert.Equal(t, "分数計算", aggregates[0].Category)
	assert.Equal(t, int64(1), aggregates[0].Count)
	assert.Equal(t, "符号", aggregates[1].Category)
	assert.Equal(t, int64(2), aggregates[1].Count)
	assert.Equal(t, base.Add(time.Hour).Unix(), aggregates[1].LastSeen.Unix())

	var total int64
	for _, aggregate := range aggregates {
		total += aggregate.Count
	}
	assert.Equal(t, int64(3), total)

	empty, err := repo.AggregateByCategory("nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMistakeRepository_ListRecent(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewMistakeRepository(db)

	_, err := users.GetOrCreate("student-1")
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(&model.Mistake{
			UserID:    "student-1",
			Category:  "符号",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := repo.ListRecent("student-1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	// newest first
	assert.Equal(t, base.Add(4*time.Minute).Unix(), recent[0].CreatedAt.Unix())
	assert.Equal(t, base.Add(2*time.Minute).Unix(), recent[2].CreatedAt.Unix())

	all, err := repo.ListRecent("student-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
