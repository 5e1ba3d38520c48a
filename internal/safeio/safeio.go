package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	ErrEmptyRoot    = errors.New("safeio: empty root")
	ErrNotDir       = errors.New("safeio: root is not a directory")
	ErrOutsideRoot  = errors.New("safeio: path resolves outside root")
	ErrIsDirectory  = errors.New("safeio: path is a directory")
	ErrUnconfigured = errors.New("safeio: filesystem not configured")
)

// SafeFS provides read-only helpers confined to a workspace root.
// Every path is resolved through symlinks before it is touched, so a
// link that escapes the root is refused rather than followed.
type SafeFS struct {
	absRoot string // absolute root with symlinks resolved
}

// NewSafeFS locks all future operations to the given root directory.
func NewSafeFS(root string) (*SafeFS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrEmptyRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDir
	}
	return &SafeFS{absRoot: abs}, nil
}

// Root returns the canonical root directory.
func (s *SafeFS) Root() string {
	if s == nil {
		return ""
	}
	return s.absRoot
}

// Stat returns metadata for a file or directory under the root.
func (s *SafeFS) Stat(userPath string) (fs.FileInfo, error) {
	p, err := s.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// ReadFile reads a regular file under the root.
func (s *SafeFS) ReadFile(userPath string) ([]byte, error) {
	p, err := s.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}
	return os.ReadFile(p)
}

// Resolve returns the canonical absolute path for userPath (absolute, or
// relative to the root), refusing anything that lands outside the root.
func (s *SafeFS) Resolve(userPath string) (string, error) {
	if s == nil {
		return "", ErrUnconfigured
	}
	if userPath == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(userPath)
	if clean == "." {
		return s.absRoot, nil
	}

	isAbs := filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "")
	joined := clean
	if !isAbs {
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, userPath)
		}
		joined = filepath.Join(s.absRoot, clean)
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !Within(resolved, s.absRoot) {
		return "", fmt.Errorf("%w (root=%s, path=%s)", ErrOutsideRoot, s.absRoot, resolved)
	}
	return resolved, nil
}

// Within reports whether path equals root or sits below it.
func Within(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if len(root) == 0 || path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	if !strings.HasSuffix(path, sep) {
		path += sep
	}
	return strings.HasPrefix(path, root)
}
