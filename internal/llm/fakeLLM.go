package llm

import (
	"context"
	"sync"
)

// FakeClient returns canned text for offline runs and tests. Respond, when
// set, takes precedence over Response.
type FakeClient struct {
	Response string
	Respond  func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func NewFakeClient(response string) *FakeClient {
	return &FakeClient{Response: response}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.Respond != nil {
		return f.Respond(prompt)
	}
	return f.Response, nil
}

// Calls returns how many prompts were received.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of every prompt received, oldest first.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// LastPrompt returns the most recent prompt, or "".
func (f *FakeClient) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}
