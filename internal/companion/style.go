package companion

import "strings"

// Style is the communication-language label detected for a user message.
type Style string

const (
	StyleHindiDevanagari Style = "hindi_devanagari"
	StyleHinglish        Style = "hinglish"
	StyleEnglish         Style = "english"
	StyleMixed           Style = "mixed"
)

var hinglishWords = []string{
	"kya", "hai", "haal", "kaise", "ho", "bhai", "yaar", "acha", "theek",
	"nahi", "haan", "kuch", "bhi", "matlab", "samjha", "dekho", "suno",
	"chal", "bas", "abhi", "phir", "waise", "kyun", "kahan", "kab",
	"accha", "thik", "bilkul", "sach", "jhooth", "paisa", "ghar", "mummy",
	"papa", "didi", "bhaiya", "aunty", "uncle", "ji", "sahab", "madam",
}

var romanHindiWords = []string{
	"namaste", "namaskar", "salaam", "adaab", "bhagwan", "allah", "ram",
	"beta", "baccha", "ladka", "ladki", "shaadi", "padhai", "naukri",
	"padhna", "likhna", "bolna", "sunna", "dekhna", "jana", "aana",
	"khana", "peena", "sona", "uthna", "baithna", "khada", "chalna",
}

var englishMarkers = []string{
	"the", "and", "is", "are", "was", "were", "have", "has", "will", "would", "should", "could",
}

const (
	hinglishThreshold   = 2
	romanHindiThreshold = 1
)

// DetectStyle classifies a message by script and keyword hits. Keywords are
// matched as substrings of the lowercased message, not as whole words, so
// "ho" inside "hope" counts as a Hinglish hit.
func DetectStyle(message string) Style {
	if hasDevanagari(message) {
		return StyleHindiDevanagari
	}

	lowered := strings.ToLower(message)
	if countContained(lowered, hinglishWords) >= hinglishThreshold ||
		countContained(lowered, romanHindiWords) >= romanHindiThreshold {
		return StyleHinglish
	}
	if countContained(lowered, englishMarkers) > 0 {
		return StyleEnglish
	}
	return StyleMixed
}

func hasDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

func countContained(text string, words []string) int {
	count := 0
	for _, word := range words {
		if strings.Contains(text, word) {
			count++
		}
	}
	return count
}
