package repoctx

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codementor/internal/scan"
)

func numbered(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func record(path, lang, content string) scan.FileRecord {
	return scan.FileRecord{
		Path:      path,
		Content:   content,
		LineCount: scan.CountLines(content),
		ByteSize:  int64(len(content)),
		Language:  lang,
	}
}

func TestBuild_HeaderListingAndShortFile(t *testing.T) {
	files := []scan.FileRecord{
		record("main.go", "Go", "package main\n\nfunc main() {}"),
		record("web/app.tsx", "React TypeScript", "export {}"),
	}
	got := Build("demo", files, Options{})

	want := "# Repository Analysis: demo\n\n" +
		"Total Files: 2\n" +
		"Total Lines: 4\n\n" +
		"## File Structure:\n" +
		"- main.go (Go, 3 lines)\n" +
		"- web/app.tsx (React TypeScript, 1 lines)\n" +
		"\n## File Contents:\n\n" +
		"### main.go\n```go\npackage main\n\nfunc main() {}\n```\n\n" +
		"### web/app.tsx\n```react typescript\nexport {}\n```\n\n"
	assert.Equal(t, want, got)
}

func TestExcerpt_LongFileKeepsHeadAndTail(t *testing.T) {
	content := numbered(250)
	got := Excerpt(content, Options{})

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 101)
	assert.Equal(t, "line 1", lines[0])
	assert.Equal(t, "line 50", lines[49])
	assert.Equal(t, "... (150 lines omitted) ...", lines[50])
	assert.Equal(t, "line 201", lines[51])
	assert.Equal(t, "line 250", lines[100])
	assert.NotContains(t, got, "line 51\n")
	assert.NotContains(t, got, "line 200\n")
}

func TestExcerpt_BoundaryIsVerbatim(t *testing.T) {
	content := numbered(100)
	assert.Equal(t, content, Excerpt(content, Options{}))

	content = numbered(101)
	assert.Contains(t, Excerpt(content, Options{}), "... (1 lines omitted) ...")
}

func TestExcerpt_CustomThresholds(t *testing.T) {
	got := Excerpt(numbered(10), Options{TruncateAbove: 4, HeadTail: 1})
	assert.Equal(t, "line 1\n... (8 lines omitted) ...\nline 10", got)
}

func TestBuild_LongFileBlock(t *testing.T) {
	got := Build("p", []scan.FileRecord{record("big.py", "Python", numbered(120))}, Options{})
	assert.Contains(t, got, "- big.py (Python, 120 lines)\n")
	assert.Contains(t, got, "```python\nline 1\n")
	assert.Contains(t, got, "line 50\n... (20 lines omitted) ...\nline 71\n")
	assert.True(t, strings.HasSuffix(got, "line 120\n```\n\n"))
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats([]scan.FileRecord{
		record("a.go", "Go", "a\nb"),
		record("b.md", "Markdown", "x"),
		record("c.go", "Go", "y"),
	})
	assert.Equal(t, Stats{TotalFiles: 3, TotalLines: 4, Languages: []string{"Go", "Markdown"}}, st)
}

func TestRelated(t *testing.T) {
	got := Related([]scan.FileRecord{
		record("a.go", "Go", strings.Repeat("x", 600)),
		record("b.go", "Go", "short"),
	}, 0)
	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 2)
	assert.Equal(t, "a.go:\n"+strings.Repeat("x", 500), parts[0])
	assert.Equal(t, "b.go:\nshort", parts[1])
}

func TestRelated_RuneSafe(t *testing.T) {
	got := Related([]scan.FileRecord{record("u.md", "Markdown", "ééé")}, 2)
	assert.Equal(t, "u.md:\néé", got)
}
