package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"manabinote/internal/app"
	"manabinote/internal/model"
	"manabinote/internal/transport/http/response"
)

type MistakeHandler struct {
	mistakeService *app.MistakeService
}

type RecordMistakeRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Category    string `json:"category" binding:"required,max=100"`
	Description string `json:"description"`
	Problem     string `json:"problem"`
}

type categoryStatView struct {
	Count    int64  `json:"count"`
	LastSeen string `json:"lastSeen"`
}

type mistakeView struct {
	ID          uint   `json:"id"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Problem     string `json:"problem"`
	Timestamp   string `json:"timestamp"`
}

func NewMistakeHandler(mistakeService *app.MistakeService) *MistakeHandler {
	return &MistakeHandler{mistakeService: mistakeService}
}

// Record appends one categorized error to the student's ledger.
func (h *MistakeHandler) Record(c *gin.Context) {
	var req RecordMistakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	mistake, err := h.mistakeService.Record(app.RecordMistakeInput{
		UserID:      req.UserID,
		Category:    req.Category,
		Description: req.Description,
		Problem:     req.Problem,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "record mistake failed")
		}
		return
	}

	response.OK(c, gin.H{
		"mistake_id": mistake.ID,
		"category":   mistake.Category,
		"timestamp":  mistake.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// List returns the per-category digest plus the capped recent history.
func (h *MistakeHandler) List(c *gin.Context) {
	userID := c.Param("user_id")

	digest, err := h.mistakeService.SummaryFor(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load mistake summary failed")
		return
	}

	history, err := h.mistakeService.HistoryFor(userID, 50)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load mistake history failed")
		}
		return
	}

	summary := make(map[string]categoryStatView, len(digest))
	for category, stat := range digest {
		summary[category] = categoryStatView{
			Count:    stat.Count,
			LastSeen: stat.LastSeen.Format("2006/01/02"),
		}
	}

	response.OK(c, gin.H{
		"userId":   userID,
		"summary":  summary,
		"mistakes": mistakeViews(history),
	})
}

func mistakeViews(mistakes []model.Mistake) []mistakeView {
	views := make([]mistakeView, 0, len(mistakes))
	for _, m := range mistakes {
		views = append(views, mistakeView{
			ID:          m.ID,
			Category:    m.Category,
			Description: m.Description,
			Problem:     m.Problem,
			Timestamp:   m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return views
}
