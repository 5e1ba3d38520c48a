package assist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"codementor/internal/llm"
	"codementor/internal/logging"
	"codementor/internal/parse"
	"codementor/internal/repoctx"
	"codementor/internal/scan"
)

const defaultContextMemo = 8

// Progress receives coarse progress of a repository analysis: a percentage
// and a short message.
type Progress interface {
	Report(percent int, message string)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(percent int, message string)

func (f ProgressFunc) Report(percent int, message string) { f(percent, message) }

type noProgress struct{}

func (noProgress) Report(int, string) {}

// RepositoryReport is the outcome of AnalyzeRepository.
type RepositoryReport struct {
	Files    []scan.FileRecord  `json:"files"`
	Analysis parse.RepoAnalysis `json:"analysis"`
	Stats    repoctx.Stats      `json:"stats"`
}

// Options configures an Analyzer. Nil components get defaults.
type Options struct {
	Scanner      *scan.Scanner
	Reader       *scan.Reader
	Context      repoctx.Options
	PreviewChars int
	// ContextMemo is how many built repository contexts are kept for
	// follow-up questions.
	ContextMemo int
	Logger      *logging.Logger
}

// Analyzer composes prompts from code or repository contents, calls the
// model and post-processes the reply. It never retries.
type Analyzer struct {
	llm          llm.Client
	scanner      *scan.Scanner
	reader       *scan.Reader
	ctxOpts      repoctx.Options
	previewChars int
	contexts     *lru.Cache[string, memoEntry]
	log          *logging.Logger
}

func NewAnalyzer(client llm.Client, opts Options) (*Analyzer, error) {
	if opts.Scanner == nil {
		opts.Scanner = scan.NewScanner(scan.Options{}, opts.Logger)
	}
	if opts.Reader == nil {
		opts.Reader = scan.NewReader(scan.ReaderOptions{}, opts.Logger)
	}
	if opts.ContextMemo <= 0 {
		opts.ContextMemo = defaultContextMemo
	}
	memo, err := lru.New[string, memoEntry](opts.ContextMemo)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		llm:          client,
		scanner:      opts.Scanner,
		reader:       opts.Reader,
		ctxOpts:      opts.Context,
		previewChars: opts.PreviewChars,
		contexts:     memo,
		log:          opts.Logger,
	}, nil
}

// ExplainCode returns the model's explanation unmodified.
func (a *Analyzer) ExplainCode(ctx context.Context, code, language string) (string, error) {
	ctx = llm.WithPhase(ctx, "explain")
	return a.llm.GenerateContent(ctx, llm.ExplainPrompt(code, language))
}

// AnalyzeCode asks for a quality report and parses whatever structure the
// reply carries.
func (a *Analyzer) AnalyzeCode(ctx context.Context, code, language string) (parse.CodeAnalysis, error) {
	ctx = llm.WithPhase(ctx, "analyze")
	txt, err := a.llm.GenerateContent(ctx, llm.AnalyzePrompt(code, language))
	if err != nil {
		return parse.CodeAnalysis{}, err
	}
	return parse.ParseCodeAnalysis(txt), nil
}

// AnalyzeRepository scans root, builds the repository context and asks for a
// sectioned review.
func (a *Analyzer) AnalyzeRepository(ctx context.Context, root string, progress Progress) (RepositoryReport, error) {
	if progress == nil {
		progress = noProgress{}
	}
	progress.Report(0, "Scanning files...")
	abs, paths, err := a.scan(root)
	if err != nil {
		return RepositoryReport{}, err
	}
	if len(paths) == 0 {
		return RepositoryReport{}, ErrNoSupportedFiles
	}
	progress.Report(20, fmt.Sprintf("Found %d files", len(paths)))

	files, err := a.reader.ReadFiles(ctx, abs, paths)
	if err != nil {
		return RepositoryReport{}, fmt.Errorf("read files: %w", err)
	}

	progress.Report(40, "Building context...")
	repoContext := repoctx.Build(filepath.Base(abs), files, a.ctxOpts)
	a.contexts.Add(abs, memoEntry{fingerprint: fingerprint(abs, paths), text: repoContext})
	a.log.Info("Repository context for %s: %d files, %d bytes", abs, len(files), len(repoContext))

	progress.Report(60, "Analyzing with Gemini...")
	txt, err := a.llm.GenerateContent(llm.WithPhase(ctx, "repository"), llm.RepositoryPrompt(repoContext))
	if err != nil {
		return RepositoryReport{}, err
	}
	progress.Report(100, "Complete!")

	stats := repoctx.ComputeStats(files)
	// TotalFiles counts scanned paths, including ones the reader skipped.
	stats.TotalFiles = len(paths)
	return RepositoryReport{
		Files:    files,
		Analysis: parse.ParseRepoAnalysis(txt),
		Stats:    stats,
	}, nil
}

// AskQuestion answers a question about the repository at root. When
// previousContext is empty the context built for root is reused as long as
// the workspace files are unchanged, otherwise it is rebuilt.
func (a *Analyzer) AskQuestion(ctx context.Context, root, question, previousContext string) (string, error) {
	repoContext := previousContext
	if strings.TrimSpace(repoContext) == "" {
		var err error
		repoContext, err = a.RepositoryContext(ctx, root)
		if err != nil {
			return "", err
		}
	}
	return a.llm.GenerateContent(llm.WithPhase(ctx, "question"), llm.QuestionPrompt(repoContext, question))
}

// FindRelatedFiles asks which files relate to term, based on short previews.
func (a *Analyzer) FindRelatedFiles(ctx context.Context, root, term string) (string, error) {
	abs, paths, err := a.scan(root)
	if err != nil {
		return "", err
	}
	files, err := a.reader.ReadFiles(ctx, abs, paths)
	if err != nil {
		return "", fmt.Errorf("read files: %w", err)
	}
	previews := repoctx.Related(files, a.previewChars)
	return a.llm.GenerateContent(llm.WithPhase(ctx, "related"), llm.RelatedPrompt(previews, term))
}

// memoEntry is a built repository context and the fingerprint of the files
// it was built from.
type memoEntry struct {
	fingerprint string
	text        string
}

// RepositoryContext returns the context for root. The memoized context is
// reused only while the scanned file set and every file's size and mtime
// match the ones it was built from.
func (a *Analyzer) RepositoryContext(ctx context.Context, root string) (string, error) {
	abs, paths, err := a.scan(root)
	if err != nil {
		return "", err
	}
	fp := fingerprint(abs, paths)
	if m, ok := a.contexts.Get(abs); ok && m.fingerprint == fp {
		return m.text, nil
	}
	files, err := a.reader.ReadFiles(ctx, abs, paths)
	if err != nil {
		return "", fmt.Errorf("read files: %w", err)
	}
	c := repoctx.Build(filepath.Base(abs), files, a.ctxOpts)
	a.contexts.Add(abs, memoEntry{fingerprint: fp, text: c})
	a.log.Debug("Repository context for %s rebuilt: %d files", abs, len(files))
	return c, nil
}

// fingerprint hashes the sorted paths with their size and modification time.
func fingerprint(abs string, paths []string) string {
	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	h := sha256.New()
	for _, p := range sorted {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(abs, full)
		}
		info, err := os.Stat(full)
		if err != nil {
			fmt.Fprintf(h, "%s\x00missing\n", p)
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ForgetContexts drops every memoized repository context.
func (a *Analyzer) ForgetContexts() { a.contexts.Purge() }

func (a *Analyzer) scan(root string) (string, []string, error) {
	abs, err := workspaceRoot(root)
	if err != nil {
		return "", nil, err
	}
	paths, err := a.scanner.Scan(abs)
	if err != nil {
		return "", nil, fmt.Errorf("scan %s: %w", abs, err)
	}
	return abs, paths, nil
}

func workspaceRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", ErrNoWorkspace
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoWorkspace, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNoWorkspace, abs)
	}
	return abs, nil
}
