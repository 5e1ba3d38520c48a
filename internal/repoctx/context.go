// Package repoctx flattens scanned files into a single prompt context.
package repoctx

import (
	"fmt"
	"strings"

	"codementor/internal/scan"
)

const (
	DefaultTruncateAbove = 100
	DefaultHeadTail      = 50
	DefaultPreviewChars  = 500
)

// Options configures truncation. Zero values select the defaults.
type Options struct {
	// TruncateAbove is the line count above which a file is excerpted.
	TruncateAbove int
	// HeadTail is the number of leading and trailing lines kept in an excerpt.
	HeadTail int
}

func (o Options) withDefaults() Options {
	if o.TruncateAbove <= 0 {
		o.TruncateAbove = DefaultTruncateAbove
	}
	if o.HeadTail <= 0 {
		o.HeadTail = DefaultHeadTail
	}
	if 2*o.HeadTail > o.TruncateAbove {
		o.HeadTail = o.TruncateAbove / 2
	}
	return o
}

// Stats summarizes a set of files.
type Stats struct {
	TotalFiles int      `json:"totalFiles"`
	TotalLines int      `json:"totalLines"`
	Languages  []string `json:"languages"`
}

// ComputeStats counts files and lines; Languages keeps first-seen order.
func ComputeStats(files []scan.FileRecord) Stats {
	st := Stats{TotalFiles: len(files)}
	seen := map[string]bool{}
	for _, f := range files {
		st.TotalLines += f.LineCount
		if !seen[f.Language] {
			seen[f.Language] = true
			st.Languages = append(st.Languages, f.Language)
		}
	}
	return st
}

// Build renders the repository context: a stats header, the file list and
// one fenced block per file. Total size is not capped; only long files are
// excerpted.
func Build(projectName string, files []scan.FileRecord, opts Options) string {
	opts = opts.withDefaults()
	st := ComputeStats(files)

	var b strings.Builder
	fmt.Fprintf(&b, "# Repository Analysis: %s\n\n", projectName)
	fmt.Fprintf(&b, "Total Files: %d\n", st.TotalFiles)
	fmt.Fprintf(&b, "Total Lines: %d\n\n", st.TotalLines)

	b.WriteString("## File Structure:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s (%s, %d lines)\n", f.Path, f.Language, f.LineCount)
	}

	b.WriteString("\n## File Contents:\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "### %s\n", f.Path)
		fmt.Fprintf(&b, "```%s\n", strings.ToLower(f.Language))
		b.WriteString(Excerpt(f.Content, opts))
		b.WriteString("\n```\n\n")
	}
	return b.String()
}

// Excerpt returns content unchanged when it has at most TruncateAbove lines;
// otherwise the first and last HeadTail lines around an omission marker.
func Excerpt(content string, opts Options) string {
	opts = opts.withDefaults()
	lines := strings.Split(content, "\n")
	if len(lines) <= opts.TruncateAbove {
		return content
	}
	omitted := len(lines) - 2*opts.HeadTail
	var b strings.Builder
	b.WriteString(strings.Join(lines[:opts.HeadTail], "\n"))
	fmt.Fprintf(&b, "\n... (%d lines omitted) ...\n", omitted)
	b.WriteString(strings.Join(lines[len(lines)-opts.HeadTail:], "\n"))
	return b.String()
}

// Related renders the short per-file preview used to look up files related
// to a search term: "<path>:\n<first n characters>" joined by blank lines.
func Related(files []scan.FileRecord, previewChars int) string {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, f.Path+":\n"+headRunes(f.Content, previewChars))
	}
	return strings.Join(parts, "\n\n")
}

func headRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
