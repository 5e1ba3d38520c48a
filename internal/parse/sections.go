// Package parse turns unstructured model replies into typed results.
// Every parser is best effort: malformed input yields an empty result,
// never an error.
package parse

import "strings"

// DefaultSection names the text that precedes the first heading.
const DefaultSection = "overview"

// Section is one heading-delimited block of a reply.
type Section struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// RepoAnalysis is the parsed reply to a whole-repository review.
type RepoAnalysis struct {
	FullText string    `json:"fullText"`
	Sections []Section `json:"sections"`
}

// Section returns the body stored under name.
func (a RepoAnalysis) Section(name string) (string, bool) {
	for _, s := range a.Sections {
		if s.Name == name {
			return s.Body, true
		}
	}
	return "", false
}

// ParseRepoAnalysis keeps the full reply and its sections.
func ParseRepoAnalysis(text string) RepoAnalysis {
	return RepoAnalysis{FullText: text, Sections: ExtractSections(text)}
}

// ExtractSections splits text at lines starting with "**" or "##". The
// heading line, stripped of '*' and '#', trimmed and lowercased, names the
// lines that follow it. A heading with no following lines before the next
// heading produces no section. A repeated name replaces the earlier body in
// place.
func ExtractSections(text string) []Section {
	var (
		out     []Section
		index   = map[string]int{}
		current = DefaultSection
		content []string
	)
	flush := func() {
		if len(content) == 0 {
			return
		}
		body := strings.TrimSpace(strings.Join(content, "\n"))
		if i, ok := index[current]; ok {
			out[i].Body = body
			return
		}
		index[current] = len(out)
		out = append(out, Section{Name: current, Body: body})
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "**") || strings.HasPrefix(line, "##") {
			flush()
			current = headingName(line)
			content = content[:0]
			continue
		}
		content = append(content, line)
	}
	flush()
	return out
}

func headingName(line string) string {
	name := strings.Map(func(r rune) rune {
		if r == '*' || r == '#' {
			return -1
		}
		return r
	}, line)
	return strings.ToLower(strings.TrimSpace(name))
}
