package main

import (
	"fmt"
	"io"
	"sync"
)

// status mirrors an editor status bar item on stderr.
type status struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
}

func newStatus(w io.Writer, quiet bool) *status {
	return &status{w: w, quiet: quiet}
}

func (s *status) set(icon, format string, v ...any) {
	if s == nil || s.quiet {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s CodeMentor: %s\n", icon, fmt.Sprintf(format, v...))
}

func (s *status) Busy(format string, v ...any) { s.set("…", format, v...) }
func (s *status) Done(format string, v ...any) { s.set("✓", format, v...) }
func (s *status) Fail(format string, v ...any) { s.set("✗", format, v...) }
