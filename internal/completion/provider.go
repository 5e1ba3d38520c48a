package completion

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"codementor/internal/cache/memory"
	"codementor/internal/llm"
	"codementor/internal/logging"
	"codementor/internal/parse"
)

const (
	// windowLines is how many lines around the cursor are sent as context.
	windowLines = 5
	cursorMark  = "[CURSOR]"
)

// Languages are the document languages completions are offered for.
var Languages = []string{"javascript", "typescript", "python", "java", "c", "cpp", "go", "rust"}

// Supported reports whether completions are offered for language.
func Supported(language string) bool {
	return slices.Contains(Languages, language)
}

// Request describes the cursor position in a document.
type Request struct {
	Lines     []string
	Language  string
	Line      int // zero-based
	Character int // zero-based, in bytes
	// Word is the identifier under the cursor, if any.
	Word string
}

// Options configures a Provider. Zero values select the defaults; a negative
// MinInterval disables rate limiting.
type Options struct {
	MinInterval time.Duration
	CacheTTL    time.Duration
	CacheSize   int
	AutoSuggest bool
	Logger      *logging.Logger
}

// Provider serves inline completions. Requests closer together than the
// minimum interval are dropped without calling the model; results are
// cached per position and word.
type Provider struct {
	llm   llm.Client
	gate  *llm.IntervalGate
	cache *memory.TTLCache[string, []parse.Suggestion]
	auto  atomic.Bool
	log   *logging.Logger
}

func NewProvider(client llm.Client, opts Options) *Provider {
	interval := opts.MinInterval
	if interval == 0 {
		interval = llm.DefaultMinInterval
	}
	p := &Provider{
		llm:   client,
		gate:  llm.NewIntervalGate(interval),
		cache: memory.NewTTLCache[string, []parse.Suggestion](opts.CacheSize, opts.CacheTTL),
		log:   opts.Logger,
	}
	p.auto.Store(opts.AutoSuggest)
	return p
}

// SetAutoSuggest toggles whether Provide does anything at all.
func (p *Provider) SetAutoSuggest(on bool) { p.auto.Store(on) }

// Provide returns suggestions for req. It returns nil when auto-suggest is
// off, the language is not supported, the request was rate limited or the
// model call failed.
func (p *Provider) Provide(ctx context.Context, req Request) []parse.Suggestion {
	if !p.auto.Load() || !Supported(req.Language) {
		return nil
	}
	if !p.gate.Allow() {
		p.log.Debug("Completion at %d:%d skipped: rate limited", req.Line, req.Character)
		return nil
	}

	key := CacheKey(req)
	if cached, ok := p.cache.Get(key); ok {
		return cached
	}

	prompt := llm.CompletionPrompt(Window(req.Lines, req.Line, windowLines), req.Language, req.Line, req.Character, req.Word)
	txt, err := p.llm.GenerateContent(llm.WithPhase(ctx, "completion"), prompt)
	if err != nil {
		p.log.Error("Failed to generate suggestions: %v", err)
		return nil
	}
	suggestions := parse.ExtractCompletions(txt)
	if len(suggestions) > 0 {
		p.cache.Set(key, suggestions)
	}
	return suggestions
}

// ClearCache drops every cached suggestion.
func (p *Provider) ClearCache() { p.cache.Clear() }

// CacheLen reports how many positions are cached.
func (p *Provider) CacheLen() int { return p.cache.Len() }

// CacheKey identifies a completion request: language, position and word.
func CacheKey(req Request) string {
	return fmt.Sprintf("%s_%d_%d_%s", req.Language, req.Line, req.Character, req.Word)
}

// Window returns the lines from line-radius to line+radius (clamped), each
// followed by a newline.
func Window(lines []string, line, radius int) string {
	if len(lines) == 0 {
		return ""
	}
	start := max(0, line-radius)
	end := min(len(lines)-1, line+radius)
	var b strings.Builder
	for i := start; i <= end; i++ {
		b.WriteString(lines[i])
		b.WriteByte('\n')
	}
	return b.String()
}

// ContextText returns before lines above and after lines below the cursor
// with a [CURSOR] marker inserted at the cursor column.
func ContextText(lines []string, line, character, before, after int) string {
	if len(lines) == 0 {
		return ""
	}
	start := max(0, line-before)
	end := min(len(lines)-1, line+after)
	var b strings.Builder
	for i := start; i <= end; i++ {
		text := lines[i]
		if i == line {
			col := min(max(character, 0), len(text))
			b.WriteString(text[:col])
			b.WriteString(cursorMark)
			b.WriteString(text[col:])
		} else {
			b.WriteString(text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WordAt returns the identifier touching column character on text.
func WordAt(text string, character int) string {
	if character < 0 || character > len(text) {
		return ""
	}
	isWord := func(c byte) bool {
		return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
	}
	start, end := character, character
	for start > 0 && isWord(text[start-1]) {
		start--
	}
	for end < len(text) && isWord(text[end]) {
		end++
	}
	return text[start:end]
}
