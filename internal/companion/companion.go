// Package companion holds the persona chat core: language-style detection,
// system prompt composition, and the reply and summary calls against the
// completion API.
package companion

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultModel = "deepseek/deepseek-chat-v3.1:free"

	// MaxHistoryTurns is how many prior turns go into a reply request.
	MaxHistoryTurns = 6

	replyTemperature = 0.7
	replyMaxTokens   = 512
)

// Turn is one persisted user message and the persona's reply.
type Turn struct {
	Message string
	Reply   string
}

type Companion struct {
	client Completer
	model  string
}

func New(client Completer, model string) *Companion {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Companion{client: client, model: model}
}

// BuildReplyMessages lays out system prompt, trailing history and the new message.
// history and summaries are oldest first.
func BuildReplyMessages(bot Bot, message string, history []Turn, summaries []string) []Message {
	recent := tail(history, MaxHistoryTurns)
	system := ComposeSystemPrompt(bot, DetectStyle(message), summaries)

	messages := make([]Message, 0, len(recent)*2+2)
	messages = append(messages, Message{Role: "system", Content: system})
	for _, turn := range recent {
		messages = append(messages,
			Message{Role: "user", Content: turn.Message},
			Message{Role: "assistant", Content: turn.Reply},
		)
	}
	return append(messages, Message{Role: "user", Content: message})
}

// GenerateReply asks the completion API for the persona's next reply.
func (c *Companion) GenerateReply(ctx context.Context, bot Bot, message string, history []Turn, summaries []string) (string, error) {
	if !bot.Valid() {
		return "", fmt.Errorf("unknown bot %q", bot)
	}
	if c.client == nil {
		return "", ErrNotConfigured
	}
	return c.client.Complete(ctx, CompletionRequest{
		Model:       c.model,
		Messages:    BuildReplyMessages(bot, message, history, summaries),
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
}

// IsConfigurationError reports whether err stems from a missing API key.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
