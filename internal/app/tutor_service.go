package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"manabinote/internal/ai"
	"manabinote/internal/model"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultUserID is used when a client does not identify the student.
const DefaultUserID = "default_user"

// ConversationStore is the durable session/turn/image log consumed by the
// orchestrator. Append methods return nil results when the session is
// absent; loads return nil sessions likewise.
type ConversationStore interface {
	Create(session *model.Session) error
	Get(sessionID string) (*model.Session, error)
	ListTurns(sessionID string) ([]model.Turn, error)
	ListImages(sessionID string) ([]model.SessionImage, error)
	AppendTurnPair(sessionID, userContent, assistantContent string) ([]model.Turn, error)
	AppendImage(sessionID, imageURL, comment string) (*model.SessionImage, error)
}

// UserStore creates students lazily on first contact.
type UserStore interface {
	GetOrCreate(id string) (*model.User, error)
}

// DigestSource produces the mistake digest folded into the system prompt.
type DigestSource interface {
	SummaryFor(userID string) (MistakeDigest, error)
}

// ChatClient is the LLM call boundary.
type ChatClient interface {
	Complete(ctx context.Context, req ai.ChatRequest) (string, error)
}

// CompactionScheduler enqueues an out-of-band memory compaction pass for a
// session. Scheduling failures must never fail the user-facing reply.
type CompactionScheduler interface {
	Schedule(ctx context.Context, sessionID string) error
}

// TurnCache is an optional read-through cache over a session's turn log.
type TurnCache interface {
	GetTurns(ctx context.Context, sessionID string) ([]model.Turn, bool, error)
	SetTurns(ctx context.Context, sessionID string, turns []model.Turn) error
	DeleteTurns(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// TutorService drives one homework-checking session across its entry
// actions: start with a fresh image, continue with an additional image,
// text-only chat, and read-only inspection.
type TutorService struct {
	store       ConversationStore
	users       UserStore
	ledger      DigestSource
	llm         ChatClient
	scheduler   CompactionScheduler
	turnCache   TurnCache
	maxTokens   int
	temperature float64
}

func NewTutorService(
	store ConversationStore,
	users UserStore,
	ledger DigestSource,
	llm ChatClient,
	scheduler CompactionScheduler,
	turnCache TurnCache,
	maxTokens int,
	temperature float64,
) *TutorService {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	if temperature <= 0 {
		temperature = 0.7
	}
	return &TutorService{
		store:       store,
		users:       users,
		ledger:      ledger,
		llm:         llm,
		scheduler:   scheduler,
		turnCache:   turnCache,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

type StartSessionInput struct {
	UserID       string
	ImageURL     string
	ImageDataURL string
	Comment      string
}

type StartSessionResult struct {
	SessionID string `json:"session_id"`
	ImageURL  string `json:"image_url"`
	Reply     string `json:"response"`
}

// StartSession creates the user if absent, opens a new session around the
// uploaded image, and runs the first assessment exchange. The turn pair is
// appended only after the LLM call succeeds.
func (s *TutorService) StartSession(input StartSessionInput) (*StartSessionResult, error) {
	if input.ImageURL == "" || input.ImageDataURL == "" {
		return nil, ErrInvalidInput
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		userID = DefaultUserID
	}

	user, err := s.users.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	digest, err := s.ledger.SummaryFor(user.ID)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		ID:          newSessionID(),
		UserID:      user.ID,
		ImageURL:    input.ImageURL,
		UserComment: input.Comment,
	}
	if err := s.store.Create(session); err != nil {
		return nil, err
	}

	prompt := initialPrompt(input.Comment)
	messages := BuildContext(ContextInput{
		Digest:      digest,
		UserMessage: prompt,
	})

	reply, err := s.complete(messages, input.ImageDataURL)
	if err != nil {
		return nil, err
	}

	if err := s.appendExchange(session.ID, prompt, reply); err != nil {
		return nil, err
	}

	return &StartSessionResult{
		SessionID: session.ID,
		ImageURL:  session.ImageURL,
		Reply:     reply,
	}, nil
}

type ContinueSessionInput struct {
	SessionID    string
	ImageURL     string
	ImageDataURL string
	Comment      string
}

type ContinueSessionResult struct {
	SessionID  string `json:"session_id"`
	ImageURL   string `json:"image_url"`
	ImageOrder int    `json:"image_order"`
	Reply      string `json:"response"`
}

// ContinueSession attaches an additional homework image to an existing
// session and runs a continuation exchange over the prior conversation. The
// stored image survives a failed LLM call; the turn pair does not.
func (s *TutorService) ContinueSession(input ContinueSessionInput) (*ContinueSessionResult, error) {
	if input.SessionID == "" || input.ImageURL == "" || input.ImageDataURL == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.store.Get(input.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	turns, err := s.loadTurns(session.ID)
	if err != nil {
		return nil, err
	}

	image, err := s.store.AppendImage(session.ID, input.ImageURL, input.Comment)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrSessionNotFound
	}

	digest, err := s.ledger.SummaryFor(session.UserID)
	if err != nil {
		return nil, err
	}

	prompt := continuationPrompt(input.Comment, image.OrderIndex)
	messages := BuildContext(ContextInput{
		Digest:            digest,
		Summary:           session.Summary,
		SummarizedThrough: session.SummarizedThrough,
		Turns:             turns,
		UserMessage:       prompt,
	})

	reply, err := s.complete(messages, input.ImageDataURL)
	if err != nil {
		return nil, err
	}

	if err := s.appendExchange(session.ID, prompt, reply); err != nil {
		return nil, err
	}

	return &ContinueSessionResult{
		SessionID:  session.ID,
		ImageURL:   image.ImageURL,
		ImageOrder: image.OrderIndex,
		Reply:      reply,
	}, nil
}

type ChatInput struct {
	SessionID string
	Message   string
	UserID    string
}

// Chat runs a text-only exchange on an existing session. An explicit UserID
// overrides the session owner for the digest lookup only.
func (s *TutorService) Chat(input ChatInput) (string, error) {
	message := strings.TrimSpace(input.Message)
	if input.SessionID == "" || message == "" {
		return "", ErrInvalidInput
	}

	session, err := s.store.Get(input.SessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrSessionNotFound
	}

	digestUserID := session.UserID
	if strings.TrimSpace(input.UserID) != "" {
		digestUserID = strings.TrimSpace(input.UserID)
	}
	digest, err := s.ledger.SummaryFor(digestUserID)
	if err != nil {
		return "", err
	}

	turns, err := s.loadTurns(session.ID)
	if err != nil {
		return "", err
	}

	messages := BuildContext(ContextInput{
		Digest:            digest,
		Summary:           session.Summary,
		SummarizedThrough: session.SummarizedThrough,
		Turns:             turns,
		UserMessage:       message,
	})

	reply, err := s.complete(messages, "")
	if err != nil {
		return "", err
	}

	if err := s.appendExchange(session.ID, message, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// SessionProjection is the read-only view of a session's full history.
type SessionProjection struct {
	Session *model.Session
	Turns   []model.Turn
	Images  []model.SessionImage
}

// Inspect returns the full ordered turn and image history with no state
// change.
func (s *TutorService) Inspect(sessionID string) (*SessionProjection, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	turns, err := s.loadTurns(sessionID)
	if err != nil {
		return nil, err
	}
	images, err := s.store.ListImages(sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionProjection{Session: session, Turns: turns, Images: images}, nil
}

// complete calls the LLM boundary. The background context keeps an in-flight
// call alive across a client disconnect.
func (s *TutorService) complete(messages []ai.ChatMessage, imageDataURL string) (string, error) {
	reply, err := s.llm.Complete(context.Background(), ai.ChatRequest{
		Messages:     messages,
		ImageDataURL: imageDataURL,
		MaxTokens:    s.maxTokens,
		Temperature:  s.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// appendExchange persists the user+assistant turn pair and opportunistically
// schedules a compaction pass.
func (s *TutorService) appendExchange(sessionID, userContent, assistantContent string) error {
	ctx := context.Background()
	if s.turnCache != nil {
		_ = s.turnCache.MarkDirty(ctx, sessionID)
		_ = s.turnCache.DeleteTurns(ctx, sessionID)
	}

	turns, err := s.store.AppendTurnPair(sessionID, userContent, assistantContent)
	if err != nil {
		return err
	}
	if turns == nil {
		return ErrSessionNotFound
	}

	if s.scheduler != nil {
		if err := s.scheduler.Schedule(ctx, sessionID); err != nil {
			log.Printf("schedule compaction for session %s failed: %v", sessionID, err)
		}
	}
	return nil
}

// loadTurns reads the turn log through the cache when it is clean.
func (s *TutorService) loadTurns(sessionID string) ([]model.Turn, error) {
	ctx := context.Background()
	if s.turnCache != nil {
		dirty, err := s.turnCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.turnCache.GetTurns(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	turns, err := s.store.ListTurns(sessionID)
	if err != nil {
		return nil, err
	}
	if s.turnCache != nil {
		if dirty, dirtyErr := s.turnCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.turnCache.SetTurns(ctx, sessionID, turns)
		}
	}
	return turns, nil
}

func newSessionID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
