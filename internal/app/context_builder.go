package app

import (
	"strings"

	"manabinote/internal/ai"
	"manabinote/internal/model"
)

// ContextInput is everything the assembler reads. Turns is the full stored
// log; turns at or below SummarizedThrough are represented by Summary and
// excluded from the assembled list.
type ContextInput struct {
	Digest            MistakeDigest
	Summary           string
	SummarizedThrough uint
	Turns             []model.Turn
	UserMessage       string
}

// BuildContext produces the exact ordered message list for one LLM call:
// persona preamble plus mistake digest, the rolling summary when present,
// the unfolded stored turns in order, then the new user message. It never
// mutates stored state.
func BuildContext(in ContextInput) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(in.Turns)+3)
	messages = append(messages, ai.ChatMessage{
		Role:    "system",
		Content: systemPrompt + formatDigest(in.Digest),
	})

	if strings.TrimSpace(in.Summary) != "" {
		messages = append(messages, ai.ChatMessage{
			Role:    "system",
			Content: summaryMessagePrefix + in.Summary,
		})
	}

	for _, turn := range in.Turns {
		if turn.ID <= in.SummarizedThrough {
			continue
		}
		messages = append(messages, ai.ChatMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	messages = append(messages, ai.ChatMessage{
		Role:    "user",
		Content: in.UserMessage,
	})
	return messages
}
