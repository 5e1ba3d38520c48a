package assist

import (
	"context"
	"errors"

	"codementor/internal/llm"
)

var (
	ErrNoWorkspace      = errors.New("no workspace folder open")
	ErrNoSupportedFiles = errors.New("no supported files found in repository")
)

// Error kinds surfaced to the user.
const (
	KindNoWorkspace      = "NoWorkspace"
	KindNoSupportedFiles = "NoSupportedFiles"
	KindUninitialized    = "Uninitialized"
	KindUpstreamError    = "UpstreamError"
	KindCanceled         = "Canceled"
	KindUnknown          = "Unknown"
)

// Kind names the failure class of err, or "" for nil.
func Kind(err error) string {
	var up *llm.UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoWorkspace):
		return KindNoWorkspace
	case errors.Is(err, ErrNoSupportedFiles):
		return KindNoSupportedFiles
	case errors.Is(err, llm.ErrUninitialized):
		return KindUninitialized
	case errors.As(err, &up):
		return KindUpstreamError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
