package parse

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Optional marks whether a field was present and valid in the reply.
type Optional[T any] struct {
	Value T    `json:"value"`
	Set   bool `json:"set"`
}

func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

// Or returns the value when set, otherwise def.
func (o Optional[T]) Or(def T) T {
	if o.Set {
		return o.Value
	}
	return def
}

// CodeAnalysis is the parsed reply to a single-snippet quality review.
// Raw always holds the reply; other fields are set only when the reply
// carried a usable JSON object.
type CodeAnalysis struct {
	Score       Optional[int]    `json:"score"`
	Summary     Optional[string] `json:"summary"`
	Suggestions []string         `json:"suggestions"`
	Issues      []string         `json:"issues"`
	Raw         string           `json:"raw"`
}

// Structured reports whether any field beyond Raw was recovered.
func (a CodeAnalysis) Structured() bool {
	return a.Score.Set || a.Summary.Set || len(a.Suggestions) > 0 || len(a.Issues) > 0
}

var reJSONFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n(.*?)\\n\\s*```")

// itemKeys are tried in order when a list element is an object.
var itemKeys = []string{"description", "message", "text", "suggestion", "issue", "title"}

// ParseCodeAnalysis recovers the first JSON object in text, preferring one
// inside a fenced block. Scores outside 1..10 are treated as absent.
func ParseCodeAnalysis(text string) CodeAnalysis {
	out := CodeAnalysis{Raw: text}
	obj, ok := findObject(text)
	if !ok {
		return out
	}

	if v, ok := lookup(obj, "score", "rating", "quality"); ok {
		if n, ok := toScore(v); ok {
			out.Score = Some(n)
		}
	}
	if v, ok := lookup(obj, "summary", "overview"); ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out.Summary = Some(strings.TrimSpace(s))
		}
	}
	if v, ok := lookup(obj, "suggestions", "improvements"); ok {
		out.Suggestions = toStrings(v)
	}
	if v, ok := lookup(obj, "issues", "problems"); ok {
		out.Issues = toStrings(v)
	}
	return out
}

func findObject(text string) (map[string]any, bool) {
	for _, m := range reJSONFence.FindAllStringSubmatch(text, -1) {
		if obj, ok := firstObject(m[1]); ok {
			return obj, true
		}
	}
	return firstObject(text)
}

// firstObject decodes the first balanced {...} span that is valid JSON.
func firstObject(s string) (map[string]any, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			var obj map[string]any
			if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil {
				return obj, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func lookup(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		for name, v := range obj {
			if strings.EqualFold(name, k) {
				return v, true
			}
		}
	}
	return nil, false
}

func toScore(v any) (int, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		s := strings.TrimSpace(x)
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	n := int(math.Round(f))
	if n < 1 || n > 10 {
		return 0, false
	}
	return n, true
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		var out []string
		for _, item := range x {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				for _, k := range itemKeys {
					if s, ok := it[k].(string); ok && strings.TrimSpace(s) != "" {
						out = append(out, strings.TrimSpace(s))
						break
					}
				}
			}
		}
		return out
	}
	return nil
}
