package assist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codementor/internal/llm"
	"codementor/internal/logging"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newAnalyzer(t *testing.T, client llm.Client) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(client, Options{Logger: logging.Discard()})
	require.NoError(t, err)
	return a
}

func TestExplainCode_Passthrough(t *testing.T) {
	const reply = "  This prints *one*.\n\n```python\nprint(1)\n```\n"
	fake := llm.NewFakeClient(reply)
	a := newAnalyzer(t, fake)

	got, err := a.ExplainCode(context.Background(), "print(1)", "python")
	require.NoError(t, err)
	assert.Equal(t, reply, got)
	assert.Contains(t, fake.LastPrompt(), "```python\nprint(1)\n```")
}

func TestAnalyzeCode_Structured(t *testing.T) {
	fake := llm.NewFakeClient(`{"score": 6, "summary": "fine", "suggestions": ["a"], "issues": []}`)
	a := newAnalyzer(t, fake)

	res, err := a.AnalyzeCode(context.Background(), "x", "go")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Score.Or(0))
	assert.Equal(t, "fine", res.Summary.Or(""))
	assert.Equal(t, []string{"a"}, res.Suggestions)
}

func TestAnalyzeCode_UpstreamFailureSurfaces(t *testing.T) {
	fake := &llm.FakeClient{Respond: func(string) (string, error) {
		return "", &llm.UpstreamError{Code: 500, Message: "internal"}
	}}
	a := newAnalyzer(t, fake)
	_, err := a.AnalyzeCode(context.Background(), "x", "go")
	assert.Equal(t, KindUpstreamError, Kind(err))
	assert.Equal(t, 1, fake.Calls(), "no retry")
}

func TestAnalyzeRepository(t *testing.T) {
	root := t.TempDir()
	write(t, root, "main.go", "package main\n\nfunc main() {}")
	write(t, root, "README.md", "# Demo")
	write(t, root, "node_modules/lib/index.js", "module.exports = 1")
	write(t, root, "big.js", strings.Repeat("x", 100001))

	fake := llm.NewFakeClient("Intro\n## Architecture Overview\nSmall CLI.\n**Issues**\n- none")
	a := newAnalyzer(t, fake)

	var steps []string
	report, err := a.AnalyzeRepository(context.Background(), root, ProgressFunc(func(p int, msg string) {
		steps = append(steps, fmt.Sprintf("%d %s", p, msg))
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0 Scanning files...",
		"20 Found 3 files",
		"40 Building context...",
		"60 Analyzing with Gemini...",
		"100 Complete!",
	}, steps)

	require.Len(t, report.Files, 2)
	assert.Equal(t, "README.md", report.Files[0].Path)
	assert.Equal(t, "main.go", report.Files[1].Path)
	assert.Equal(t, 3, report.Stats.TotalFiles)
	assert.Equal(t, 4, report.Stats.TotalLines)
	assert.Equal(t, []string{"Markdown", "Go"}, report.Stats.Languages)

	body, ok := report.Analysis.Section("architecture overview")
	require.True(t, ok)
	assert.Equal(t, "Small CLI.", body)

	prompt := fake.LastPrompt()
	assert.Contains(t, prompt, "# Repository Analysis: "+filepath.Base(root))
	assert.Contains(t, prompt, "- main.go (Go, 3 lines)")
	assert.NotContains(t, prompt, "node_modules")
	assert.NotContains(t, prompt, "big.js")
}

func TestAnalyzeRepository_Errors(t *testing.T) {
	fake := llm.NewFakeClient("unused")
	a := newAnalyzer(t, fake)

	_, err := a.AnalyzeRepository(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNoWorkspace)
	assert.Equal(t, KindNoWorkspace, Kind(err))

	_, err = a.AnalyzeRepository(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, ErrNoWorkspace)

	empty := t.TempDir()
	write(t, empty, "notes.txt", "not supported")
	_, err = a.AnalyzeRepository(context.Background(), empty, nil)
	assert.ErrorIs(t, err, ErrNoSupportedFiles)
	assert.Equal(t, KindNoSupportedFiles, Kind(err))

	assert.Equal(t, 0, fake.Calls())
}

func TestAskQuestion_ReusesContext(t *testing.T) {
	root := t.TempDir()
	write(t, root, "app.py", "print('hi')")

	fake := llm.NewFakeClient("answer")
	a := newAnalyzer(t, fake)

	got, err := a.AskQuestion(context.Background(), root, "What does it print?", "")
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	first := fake.LastPrompt()
	assert.Contains(t, first, "### app.py")
	assert.Contains(t, first, "User Question: What does it print?")

	// Unchanged files reuse the memoized context.
	_, err = a.AskQuestion(context.Background(), root, "What does it print?", "")
	require.NoError(t, err)
	assert.Equal(t, first, fake.LastPrompt())

	// A file added after the first question shows up in the next one.
	write(t, root, "later.py", "x = 1")
	_, err = a.AskQuestion(context.Background(), root, "again", "")
	require.NoError(t, err)
	assert.Contains(t, fake.LastPrompt(), "later.py")

	a.ForgetContexts()
	_, err = a.AskQuestion(context.Background(), root, "again", "")
	require.NoError(t, err)
	assert.Contains(t, fake.LastPrompt(), "later.py")

	_, err = a.AskQuestion(context.Background(), "", "q", "PREVIOUS CONTEXT")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fake.LastPrompt(), "Based on this codebase:\n\nPREVIOUS CONTEXT\n"))
}

func TestAskQuestion_SeesEditsAfterRepositoryAnalysis(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.go", "package a // OLD")

	fake := llm.NewFakeClient("ok")
	a := newAnalyzer(t, fake)
	_, err := a.AnalyzeRepository(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Contains(t, fake.LastPrompt(), "// OLD")

	write(t, root, "a.go", "package a // NEW")
	later := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.go"), later, later))

	_, err = a.AskQuestion(context.Background(), root, "What changed?", "")
	require.NoError(t, err)
	assert.Contains(t, fake.LastPrompt(), "// NEW")
	assert.NotContains(t, fake.LastPrompt(), "// OLD")
}

func TestFindRelatedFiles(t *testing.T) {
	root := t.TempDir()
	write(t, root, "auth/login.ts", "export function login() {}")

	fake := llm.NewFakeClient("auth/login.ts is related")
	a := newAnalyzer(t, fake)
	got, err := a.FindRelatedFiles(context.Background(), root, "login")
	require.NoError(t, err)
	assert.Equal(t, "auth/login.ts is related", got)
	assert.Contains(t, fake.LastPrompt(), "auth/login.ts:\nexport function login() {}")
	assert.Contains(t, fake.LastPrompt(), `Find all files related to: "login"`)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindUninitialized, Kind(fmt.Errorf("explain: %w", llm.ErrUninitialized)))
	assert.Equal(t, KindCanceled, Kind(context.Canceled))
	assert.Equal(t, KindUnknown, Kind(errors.New("other")))
}
