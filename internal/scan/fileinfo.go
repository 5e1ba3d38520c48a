package scan

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"codementor/internal/logging"
	"codementor/internal/safeio"
)

const (
	// DefaultMaxFileSize skips files larger than this many bytes.
	DefaultMaxFileSize int64 = 100000
	defaultReadLimit         = 8
)

// FileRecord is one readable source file of a scan.
type FileRecord struct {
	// Repo-relative path using forward slashes (e.g., "src/app.go").
	Path      string `json:"path"`
	Content   string `json:"content"`
	LineCount int    `json:"lines"`
	ByteSize  int64  `json:"size"`
	Language  string `json:"language"`
}

// ReaderOptions configures a Reader. Zero values select the defaults.
type ReaderOptions struct {
	MaxFileSize int64
	// Concurrency bounds parallel reads.
	Concurrency int
}

// Reader turns scanned paths into FileRecords.
type Reader struct {
	maxSize int64
	limit   int
	log     *logging.Logger
}

func NewReader(opts ReaderOptions, logger *logging.Logger) *Reader {
	r := &Reader{maxSize: opts.MaxFileSize, limit: opts.Concurrency, log: logger}
	if r.maxSize <= 0 {
		r.maxSize = DefaultMaxFileSize
	}
	if r.limit <= 0 {
		r.limit = defaultReadLimit
	}
	return r
}

// ReadFiles reads paths (absolute, or relative to root) and returns records
// in input order. Oversized files are silently omitted; unreadable ones are
// logged and omitted. It only fails when root itself is unusable or ctx ends.
func (r *Reader) ReadFiles(ctx context.Context, root string, paths []string) ([]FileRecord, error) {
	sfs, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	out := make([]*FileRecord, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, ok := r.readOne(sfs, absRoot, p)
			if ok {
				out[i] = &rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]FileRecord, 0, len(paths))
	for _, rec := range out {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (r *Reader) readOne(sfs *safeio.SafeFS, absRoot, p string) (FileRecord, bool) {
	full := p
	if !filepath.IsAbs(full) {
		full = filepath.Join(absRoot, full)
	}
	info, err := sfs.Stat(full)
	if err != nil {
		r.log.Error("Error reading %s: %v", full, err)
		return FileRecord{}, false
	}
	if info.Size() > r.maxSize {
		return FileRecord{}, false
	}
	b, err := sfs.ReadFile(full)
	if err != nil {
		r.log.Error("Error reading %s: %v", full, err)
		return FileRecord{}, false
	}
	rel, err := filepath.Rel(absRoot, full)
	if err != nil {
		rel = full
	}
	content := string(b)
	return FileRecord{
		Path:      filepath.ToSlash(rel),
		Content:   content,
		LineCount: CountLines(content),
		ByteSize:  info.Size(),
		Language:  LanguageFor(filepath.Ext(full)),
	}, true
}

// CountLines counts newline-separated lines; an empty text is one line.
func CountLines(s string) int {
	return strings.Count(s, "\n") + 1
}
