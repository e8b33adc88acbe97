package memory

import (
	"context"
	"strings"

	"manabinote/internal/ai"
	"manabinote/internal/model"
)

const summarizerSystemPrompt = `あなたは家庭教師AIの会話記録を要約するアシスタントです。
これまでの要約と新しい会話を統合して、1つの要約に更新してください。
- 扱った問題、生徒のつまずき、与えたヒント、到達した結論を残す
- 今後の指導に不要な挨拶や繰り返しは省く
- 簡潔な日本語の箇条書きでまとめる`

// Summarizer folds a transcript of old turns into an updated rolling
// summary.
type Summarizer interface {
	Summarize(ctx context.Context, priorSummary, transcript string) (string, error)
}

// ChatCompleter is the slice of the LLM client the summarizer needs.
type ChatCompleter interface {
	Complete(ctx context.Context, req ai.ChatRequest) (string, error)
}

// LLMSummarizer summarizes via a dedicated low-temperature completion call.
type LLMSummarizer struct {
	client      ChatCompleter
	maxTokens   int
	temperature float64
}

func NewLLMSummarizer(client ChatCompleter, maxTokens int, temperature float64) *LLMSummarizer {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	if temperature <= 0 {
		temperature = 0.3
	}
	return &LLMSummarizer{client: client, maxTokens: maxTokens, temperature: temperature}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, priorSummary, transcript string) (string, error) {
	var b strings.Builder
	if strings.TrimSpace(priorSummary) != "" {
		b.WriteString("## これまでの要約\n")
		b.WriteString(priorSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("## 新しい会話\n")
	b.WriteString(transcript)

	reply, err := s.client.Complete(ctx, ai.ChatRequest{
		Messages: []ai.ChatMessage{
			{Role: "system", Content: summarizerSystemPrompt},
			{Role: "user", Content: b.String()},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// FormatTranscript renders folded turns for the summarization call.
func FormatTranscript(turns []model.Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		label := "生徒"
		if turn.Role == model.RoleAssistant {
			label = "先生"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}
