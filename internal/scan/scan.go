package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"codementor/internal/logging"
	"codementor/internal/safeio"
)

// DefaultExtensions is the allow-list of source extensions. Matching is
// case-sensitive.
var DefaultExtensions = []string{
	".js", ".ts", ".jsx", ".tsx", ".py", ".java", ".cpp", ".c",
	".go", ".rs", ".rb", ".php", ".cs", ".swift", ".kt", ".scala",
	".html", ".css", ".scss", ".json", ".yml", ".yaml", ".md",
}

// DefaultIgnoreNames lists build output, dependency and tooling directories.
// Any name starting with "." is ignored as well.
var DefaultIgnoreNames = []string{
	"node_modules", "dist", "build", "out", ".git",
	"coverage", "__pycache__", ".vscode", ".idea",
	"vendor", "target", "bin", "obj",
}

// Options configures a Scanner. Nil slices select the defaults.
type Options struct {
	Extensions  []string
	IgnoreNames []string
	// RespectGitignore also applies the root .gitignore rules.
	RespectGitignore bool
}

// Scanner lists the source files of a workspace.
type Scanner struct {
	exts      map[string]struct{}
	ignore    map[string]struct{}
	gitignore bool
	log       *logging.Logger
}

func NewScanner(opts Options, logger *logging.Logger) *Scanner {
	exts := opts.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}
	names := opts.IgnoreNames
	if names == nil {
		names = DefaultIgnoreNames
	}
	s := &Scanner{
		exts:      make(map[string]struct{}, len(exts)),
		ignore:    make(map[string]struct{}, len(names)),
		gitignore: opts.RespectGitignore,
		log:       logger,
	}
	for _, e := range exts {
		if e = strings.TrimSpace(e); e != "" {
			s.exts[e] = struct{}{}
		}
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s.ignore[n] = struct{}{}
		}
	}
	return s
}

// ShouldIgnore reports whether an entry name is excluded from the scan.
func (s *Scanner) ShouldIgnore(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := s.ignore[name]
	return ok
}

// Supported reports whether a file name carries an allowed extension.
func (s *Scanner) Supported(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	_, ok := s.exts[ext]
	return ok
}

// Scan walks root and returns the absolute paths of supported files in
// lexical directory order. Unreadable subdirectories are logged and skipped;
// only a failure to open root itself is returned.
//
// Symlinked directories are followed when they resolve inside root. Each
// directory is entered at most once by canonical path, which stops cycles.
func (s *Scanner) Scan(root string) ([]string, error) {
	sfs, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, err
	}

	w := &walker{
		s:       s,
		fs:      sfs,
		root:    abs,
		visited: map[string]struct{}{sfs.Root(): {}},
	}
	if s.gitignore {
		w.rules = loadGitignore(abs)
	}
	w.walk(abs)
	return w.files, nil
}

type walker struct {
	s       *Scanner
	fs      *safeio.SafeFS
	root    string
	rules   *ignore.GitIgnore
	visited map[string]struct{}
	files   []string
}

func (w *walker) walk(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.s.log.Error("Error scanning %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if w.s.ShouldIgnore(name) {
			continue
		}
		full := filepath.Join(dir, name)

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(full)
			if err != nil {
				w.s.log.Warn("Error resolving %s: %v", full, err)
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			if w.ignored(full, true) {
				continue
			}
			canon, err := w.fs.Resolve(full)
			if err != nil {
				w.s.log.Debug("Skipping %s: %v", full, err)
				continue
			}
			if _, seen := w.visited[canon]; seen {
				w.s.log.Debug("Skipping %s: already visited as %s", full, canon)
				continue
			}
			w.visited[canon] = struct{}{}
			w.walk(full)
		case mode.IsRegular():
			if !w.s.Supported(name) || w.ignored(full, false) {
				continue
			}
			w.files = append(w.files, full)
		}
	}
}

func (w *walker) ignored(full string, isDir bool) bool {
	if w.rules == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, full)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir && w.rules.MatchesPath(rel+"/") {
		return true
	}
	return w.rules.MatchesPath(rel)
}

func loadGitignore(root string) *ignore.GitIgnore {
	b, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}
