package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned before any network call is attempted when no
// API key is configured.
var ErrMissingAPIKey = errors.New("openrouter api key is not configured")

// UpstreamError carries the status and body of a non-success response from
// the chat-completion API verbatim.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm response status %d: %s", e.StatusCode, e.Detail)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one outbound chat-completion call. If ImageDataURL is set,
// the image is attached to the first user message of Messages, the same
// anchor where the very first homework image of a session sits.
type ChatRequest struct {
	Messages     []ChatMessage
	ImageDataURL string
	MaxTokens    int
	Temperature  float64
}

type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	AppURL   string
	AppTitle string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrMissingAPIKey
	}

	reqBody := map[string]interface{}{
		"model":       c.cfg.Model,
		"messages":    encodeMessages(req.Messages, req.ImageDataURL),
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"stream":      false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build llm request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("HTTP-Referer", c.cfg.AppURL)
	httpReq.Header.Set("X-Title", c.cfg.AppTitle)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read llm response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Detail: string(raw)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Detail: "malformed llm payload: " + err.Error()}
	}
	if len(parsed.Choices) == 0 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Detail: "empty llm choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

// encodeMessages turns the message list into the wire shape, expanding the
// first user message into image+text content parts when an image is present.
func encodeMessages(messages []ChatMessage, imageDataURL string) []interface{} {
	encoded := make([]interface{}, 0, len(messages))
	attached := false
	for _, msg := range messages {
		if msg.Role == "user" && imageDataURL != "" && !attached {
			encoded = append(encoded, map[string]interface{}{
				"role": "user",
				"content": []contentPart{
					{Type: "image_url", ImageURL: &imageURL{URL: imageDataURL}},
					{Type: "text", Text: msg.Content},
				},
			})
			attached = true
			continue
		}
		encoded = append(encoded, msg)
	}
	return encoded
}
