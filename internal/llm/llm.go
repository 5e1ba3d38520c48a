package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client generates free-form text from a prompt.
type Client interface {
	Name() string
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Close() error
}

// ErrUninitialized is returned when no credential has been configured.
var ErrUninitialized = errors.New("llm: Gemini AI not initialized, check API key")

// UpstreamError wraps a failed remote call. It is never retried.
type UpstreamError struct {
	Code    int    // HTTP status code when known
	Status  string // provider status string when known
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Code != 0 && e.Status != "":
		return fmt.Sprintf("Gemini API error: %d %s: %s", e.Code, e.Status, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("Gemini API error: %d: %s", e.Code, e.Message)
	default:
		return "Gemini API error: " + e.Message
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }
