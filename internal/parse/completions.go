package parse

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxSuggestions = 5
	// maxFallbackLen bounds fenced-block fallbacks (exclusive, in characters).
	maxFallbackLen = 100

	FallbackExplanation = "AI-generated suggestion"

	completionMarker  = "COMPLETION:"
	explanationMarker = "EXPLANATION:"
)

var reCodeBlock = regexp.MustCompile("(?s)```(?:\\w+)?\\n(.*?)\\n```")

// Suggestion is one completion offered at the cursor.
type Suggestion struct {
	Completion  string `json:"completion"`
	Explanation string `json:"explanation"`
}

// ExtractCompletions reads COMPLETION:/EXPLANATION: pairs in order. A pair
// is emitted once both halves are non-empty and either a new COMPLETION:
// starts or the input ends. Without any pair, short fenced code blocks are
// used instead. At most MaxSuggestions are returned.
func ExtractCompletions(text string) []Suggestion {
	var (
		out         []Suggestion
		completion  string
		explanation string
	)
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, completionMarker):
			if completion != "" && explanation != "" {
				out = append(out, Suggestion{Completion: completion, Explanation: explanation})
			}
			completion = strings.TrimSpace(line[len(completionMarker):])
			explanation = ""
		case strings.HasPrefix(line, explanationMarker) && completion != "":
			explanation = strings.TrimSpace(line[len(explanationMarker):])
		}
	}
	if completion != "" && explanation != "" {
		out = append(out, Suggestion{Completion: completion, Explanation: explanation})
	}

	if len(out) == 0 && strings.TrimSpace(text) != "" {
		for _, m := range reCodeBlock.FindAllStringSubmatch(text, -1) {
			if len(out) >= MaxSuggestions {
				break
			}
			code := strings.TrimSpace(m[1])
			if code != "" && utf8.RuneCountInString(code) < maxFallbackLen {
				out = append(out, Suggestion{Completion: code, Explanation: FallbackExplanation})
			}
		}
	}

	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
