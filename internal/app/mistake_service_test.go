package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"manabinote/internal/model"
	"manabinote/internal/repository"
)

func newMistakeService(t *testing.T) *MistakeService {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "mistake_service_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Mistake{}))

	return NewMistakeService(repository.NewUserRepository(db), repository.NewMistakeRepository(db))
}

func TestMistakeService_Record(t *testing.T) {
	service := newMistakeService(t)

	mistake, err := service.Record(RecordMistakeInput{
		UserID:      "  student-1  ",
		Category:    " 符号 ",
		Description: "マイナスを落とした",
		Problem:     "2x-3=5",
	})
	require.NoError(t, err)
	assert.NotZero(t, mistake.ID)
	assert.Equal(t, "student-1", mistake.UserID)
	assert.Equal(t, "符号", mistake.Category)
}

func TestMistakeService_RecordValidation(t *testing.T) {
	service := newMistakeService(t)

	_, err := service.Record(RecordMistakeInput{Category: "符号"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Record(RecordMistakeInput{UserID: "student-1", Category: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMistakeService_SummaryFor(t *testing.T) {
	service := newMistakeService(t)

	empty, err := service.SummaryFor("student-1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	inputs := []RecordMistakeInput{
		{UserID: "student-1", Category: "符号"},
		{UserID: "student-1", Category: "符号"},
		{UserID: "student-1", Category: "分数計算"},
	}
	for _, input := range inputs {
		_, err := service.Record(input)
		require.NoError(t, err)
	}

	digest, err := service.SummaryFor("student-1")
	require.NoError(t, err)
	require.Len(t, digest, 2)
	assert.Equal(t, int64(2), digest["符号"].Count)
	assert.Equal(t, int64(1), digest["分数計算"].Count)

	// reading the digest never mutates the ledger
	again, err := service.SummaryFor("student-1")
	require.NoError(t, err)
	assert.Equal(t, digest, again)
}

func TestMistakeService_HistoryFor(t *testing.T) {
	service := newMistakeService(t)

	for i := 0; i < 3; i++ {
		_, err := service.Record(RecordMistakeInput{UserID: "student-1", Category: "符号"})
		require.NoError(t, err)
	}

	history, err := service.HistoryFor("student-1", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = service.HistoryFor("  ", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
