package companion

import (
	"context"
	"fmt"
	"strings"
)

const (
	// SummaryEvery is the turn cadence for personalization summaries.
	SummaryEvery = 8

	// MaxTranscriptTurns caps how many turns a summary transcript may hold.
	MaxTranscriptTurns = 10

	summaryTemperature = 0.3
	summaryMaxTokens   = 200
)

const SummarizationPrompt = `Create a personalized user profile summary for future conversations. Include:

1. USER PROFILE:
   - Preferred language/communication style (English/Hindi/Hinglish/mix)
   - Main concerns and recurring themes
   - Current emotional state and mood patterns
   - Personal context (studies, family, relationships, work)

2. CONVERSATION INSIGHTS:
   - What coping strategies worked well for them
   - Their communication preferences and triggers
   - Cultural/personal references they relate to
   - Topics that help them feel better

3. RECOMMENDATIONS FOR FUTURE:
   - How to approach this user (tone, language, examples)
   - What support style works best for them
   - Key areas to focus on in future conversations

Keep under 200 words. This will help provide personalized support in future chats.`

// ShouldSummarize reports whether a (user, bot) pair with count saved turns is due a summary.
func ShouldSummarize(count int) bool {
	return count > 0 && count%SummaryEvery == 0
}

// BuildTranscript renders the trailing MaxTranscriptTurns turns as plain dialogue.
func BuildTranscript(bot Bot, history []Turn) string {
	speaker := bot.DisplayName()
	var b strings.Builder
	for _, turn := range tail(history, MaxTranscriptTurns) {
		fmt.Fprintf(&b, "User: %s\n%s: %s\n\n", turn.Message, speaker, turn.Reply)
	}
	return b.String()
}

// GenerateSummary condenses recent turns into a personalization note.
// Callers treat any error as non-fatal.
func (c *Companion) GenerateSummary(ctx context.Context, bot Bot, history []Turn) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("summarization failed: %w", ErrNotConfigured)
	}
	text, err := c.client.Complete(ctx, CompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: SummarizationPrompt},
			{Role: "user", Content: "Conversation to summarize:\n\n" + BuildTranscript(bot, history)},
		},
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return text, nil
}
