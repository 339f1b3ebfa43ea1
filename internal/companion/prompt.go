package companion

import (
	"fmt"
	"strings"
)

// MaxPromptSummaries bounds how many stored summaries feed the personalization block.
const MaxPromptSummaries = 3

var styleInstructions = map[Style]string{
	StyleHindiDevanagari: "\n\nIMPORTANT: User prefers Hindi in Devanagari script. Respond primarily in Hindi with Devanagari script, but you can mix some English words naturally as Indians do.",
	StyleHinglish:        "\n\nIMPORTANT: User prefers Hinglish (Hindi-English mix). Respond in natural Hinglish style mixing Hindi and English words fluidly like: 'Yaar, that's really tough. Main samajh sakta hun how stressful ye situation hai.'",
	StyleEnglish:         "\n\nIMPORTANT: User prefers English. Respond in clear English but feel free to use Indian cultural references and occasional Hindi words that are commonly understood.",
	StyleMixed:           "\n\nIMPORTANT: User uses mixed language style. Mirror their communication pattern and adapt your language to match their style naturally.",
}

// StyleInstruction returns the suffix for style, falling back to the mixed-style suffix.
func StyleInstruction(style Style) string {
	if instruction, ok := styleInstructions[style]; ok {
		return instruction
	}
	return styleInstructions[StyleMixed]
}

// ComposeSystemPrompt builds the system message for one chat request.
// summaries are oldest first; only the trailing MaxPromptSummaries are used.
func ComposeSystemPrompt(bot Bot, style Style, summaries []string) string {
	var b strings.Builder
	b.WriteString(bot.BasePrompt())
	b.WriteString(StyleInstruction(style))

	recent := tail(summaries, MaxPromptSummaries)
	if len(recent) == 0 {
		return b.String()
	}

	b.WriteString("\n\nPERSONALIZATION CONTEXT (from previous conversations):\n")
	for i, summary := range recent {
		fmt.Fprintf(&b, "Session %d: %s\n", i+1, summary)
	}
	fmt.Fprintf(
		&b,
		"\nUser's detected communication style: %s. Use this context to provide personalized, culturally appropriate responses matching their preferred language style.",
		style,
	)
	return b.String()
}

func tail[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[len(items)-limit:]
}
