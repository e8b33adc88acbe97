package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"manabinote/internal/app"
	"manabinote/internal/memory"
	"manabinote/internal/model"
	"manabinote/internal/transport/http/response"
)

type SessionHandler struct {
	tutorService  *app.TutorService
	memoryService *memory.Service
}

type turnView struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type sessionImageView struct {
	ID        uint   `json:"id"`
	ImageURL  string `json:"image_url"`
	Comment   string `json:"comment"`
	Order     int    `json:"order"`
	CreatedAt string `json:"created_at"`
}

func NewSessionHandler(tutorService *app.TutorService, memoryService *memory.Service) *SessionHandler {
	return &SessionHandler{tutorService: tutorService, memoryService: memoryService}
}

// Get returns the full ordered history of a session.
func (h *SessionHandler) Get(c *gin.Context) {
	projection, err := h.tutorService.Inspect(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load session failed")
		}
		return
	}

	session := projection.Session
	response.OK(c, gin.H{
		"session_id":   session.ID,
		"user_id":      session.UserID,
		"image_url":    session.ImageURL,
		"user_comment": session.UserComment,
		"summary":      session.Summary,
		"messages":     turnViews(projection.Turns),
		"images":       imageViews(projection.Images),
		"created_at":   session.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Compact runs a maintenance compaction pass inline. Unlike the
// opportunistic background pass, this caller asked for it, so failures are
// surfaced.
func (h *SessionHandler) Compact(c *gin.Context) {
	folded, err := h.memoryService.CompactSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, memory.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "compact session failed")
		}
		return
	}

	response.OK(c, gin.H{"compacted": folded})
}

func turnViews(turns []model.Turn) []turnView {
	views := make([]turnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, turnView{
			Role:      t.Role,
			Content:   t.Content,
			Timestamp: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views
}

func imageViews(images []model.SessionImage) []sessionImageView {
	views := make([]sessionImageView, 0, len(images))
	for _, img := range images {
		views = append(views, sessionImageView{
			ID:        img.ID,
			ImageURL:  img.ImageURL,
			Comment:   img.Comment,
			Order:     img.OrderIndex,
			CreatedAt: img.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views
}
