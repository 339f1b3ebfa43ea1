package companion

import (
	"context"
	"strings"
)

// MockCompleter answers without a network call. Used for local runs with AI_PROVIDER=mock.
type MockCompleter struct{}

func (MockCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "Mock response: no messages provided.", nil
	}
	first := req.Messages[0]
	if first.Role == "system" && first.Content == SummarizationPrompt {
		return "Mock summary: user chatted about their day; keep the same tone next time.", nil
	}

	last := strings.TrimSpace(req.Messages[len(req.Messages)-1].Content)
	if last == "" {
		last = "(empty message)"
	}
	switch DetectStyle(last) {
	case StyleHinglish:
		return "Mock response (Hinglish): Main sun raha hun, yaar. You said: " + last, nil
	case StyleHindiDevanagari:
		return "Mock response (हिंदी): मैं सुन रहा हूँ। " + last, nil
	default:
		return "Mock response: I hear you. You said: " + last, nil
	}
}
