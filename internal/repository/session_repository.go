package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"manabinote/internal/model"
)

// SessionRepository is the durable conversation store: the session row plus
// its append-only turn and image logs. All appends run inside a transaction
// that first takes a write lock on the session row, so turn ordering and
// image order indices stay monotonic and gap-free under concurrent requests
// for the same session.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(sessionID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListTurns(sessionID string) ([]model.Turn, error) {
	var turns []model.Turn
	if err := r.db.Where("session_id = ?", sessionID).Order("id ASC").Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list turns failed: %w", err)
	}
	return turns, nil
}

func (r *SessionRepository) ListImages(sessionID string) ([]model.SessionImage, error) {
	var images []model.SessionImage
	if err := r.db.Where("session_id = ?", sessionID).Order("order_index ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images failed: %w", err)
	}
	return images, nil
}

// AppendTurnPair appends the user turn and the assistant turn as one atomic
// unit. Returns the created turns, or nil with no error when the session
// does not exist.
func (r *SessionRepository) AppendTurnPair(sessionID, userContent, assistantContent string) ([]model.Turn, error) {
	var created []model.Turn
	err := r.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if !locked {
			return nil
		}

		now := time.Now()
		pair := []model.Turn{
			{SessionID: sessionID, Role: model.RoleUser, Content: userContent, CreatedAt: now},
			{SessionID: sessionID, Role: model.RoleAssistant, Content: assistantContent, CreatedAt: now},
		}
		if err := tx.Create(&pair).Error; err != nil {
			return fmt.Errorf("create turn pair failed: %w", err)
		}
		created = pair
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AppendImage stores an additional image with order index = current image
// count + 1. Returns nil with no error when the session does not exist.
func (r *SessionRepository) AppendImage(sessionID, imageURL, comment string) (*model.SessionImage, error) {
	var created *model.SessionImage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if !locked {
			return nil
		}

		var count int64
		if err := tx.Model(&model.SessionImage{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
			return fmt.Errorf("count session images failed: %w", err)
		}

		image := &model.SessionImage{
			SessionID:  sessionID,
			ImageURL:   imageURL,
			Comment:    comment,
			OrderIndex: int(count) + 1,
		}
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("create session image failed: %w", err)
		}
		created = image
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetSummary overwrites the rolling summary and the folded-turn watermark.
// Returns gorm.ErrRecordNotFound wrapped when the session does not exist.
func (r *SessionRepository) SetSummary(sessionID, summary string, through uint) error {
	result := r.db.Model(&model.Session{}).Where("id = ?", sessionID).Updates(map[string]interface{}{
		"summary":            summary,
		"summarized_through": through,
	})
	if result.Error != nil {
		return fmt.Errorf("set session summary failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("set session summary failed: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// lockSession takes a row write lock via an UPDATE on the session, which
// serializes appenders on both InnoDB and SQLite. Reports whether the
// session exists.
func lockSession(tx *gorm.DB, sessionID string) (bool, error) {
	result := tx.Model(&model.Session{}).Where("id = ?", sessionID).Update("updated_at", time.Now())
	if result.Error != nil {
		return false, fmt.Errorf("lock session failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
