package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"manabinote/internal/ai"
	"manabinote/internal/app"
	"manabinote/internal/pkg/uploads"
	"manabinote/internal/transport/http/response"
)

const maxImageSize = 5 << 20 // 5 MB

type HomeworkHandler struct {
	tutorService *app.TutorService
	uploadStore  *uploads.Store
}

type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
	UserID    string `json:"user_id"`
}

func NewHomeworkHandler(tutorService *app.TutorService, uploadStore *uploads.Store) *HomeworkHandler {
	return &HomeworkHandler{tutorService: tutorService, uploadStore: uploadStore}
}

// Upload starts a new homework-checking session from a photographed page.
func (h *HomeworkHandler) Upload(c *gin.Context) {
	saved, ok := h.saveImage(c)
	if !ok {
		return
	}

	result, err := h.tutorService.StartSession(app.StartSessionInput{
		UserID:       c.PostForm("user_id"),
		ImageURL:     saved.URL,
		ImageDataURL: saved.DataURL,
		Comment:      c.PostForm("comment"),
	})
	if err != nil {
		writeTutorError(c, err, "start session failed")
		return
	}

	response.OK(c, result)
}

// Continue uploads an additional page into an existing session.
func (h *HomeworkHandler) Continue(c *gin.Context) {
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing session_id")
		return
	}

	saved, ok := h.saveImage(c)
	if !ok {
		return
	}

	result, err := h.tutorService.ContinueSession(app.ContinueSessionInput{
		SessionID:    sessionID,
		ImageURL:     saved.URL,
		ImageDataURL: saved.DataURL,
		Comment:      c.PostForm("comment"),
	})
	if err != nil {
		writeTutorError(c, err, "continue session failed")
		return
	}

	response.OK(c, result)
}

// Chat continues the conversation with text only.
func (h *HomeworkHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.tutorService.Chat(app.ChatInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		UserID:    req.UserID,
	})
	if err != nil {
		writeTutorError(c, err, "chat failed")
		return
	}

	response.OK(c, gin.H{"response": reply})
}

// saveImage reads the multipart "image" field and persists it to the upload
// store. Writes the error response itself and reports ok=false on failure.
func (h *HomeworkHandler) saveImage(c *gin.Context) (*uploads.Saved, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing image file (form field 'image')")
		return nil, false
	}
	if file.Size > maxImageSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "image too large (max 5MB)")
		return nil, false
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to open uploaded file")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read image")
		return nil, false
	}

	saved, err := h.uploadStore.Save(file.Filename, file.Header.Get("Content-Type"), data)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store image failed")
		return nil, false
	}
	return saved, true
}

// writeTutorError maps the service error taxonomy onto the HTTP surface.
// Upstream failures keep the upstream status and detail.
func writeTutorError(c *gin.Context, err error, fallback string) {
	var upstream *ai.UpstreamError
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, ai.ErrMissingAPIKey):
		response.Error(c, http.StatusInternalServerError, response.CodeLLMConfig, err.Error())
	case errors.As(err, &upstream):
		response.Error(c, upstream.StatusCode, response.CodeUpstream, "OpenRouter API error: "+upstream.Detail)
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
