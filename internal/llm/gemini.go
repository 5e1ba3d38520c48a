package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	genai "google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

var errEmptyResponse = errors.New("empty response from model")

// contentGenerator is the slice of genai.Models the client needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type generatorFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

func newGenAIGenerator(ctx context.Context, apiKey string) (contentGenerator, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return cli.Models, nil
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey string
	Model  string
	// Temperature is passed through when set.
	Temperature *float32
}

// GeminiClient is a thin wrapper around the official genai client. It only
// performs the call; logging and hooks are applied via Middleware.
type GeminiClient struct {
	mu          sync.RWMutex
	gen         contentGenerator
	apiKey      string
	model       string
	temperature *float32
	factory     generatorFactory
}

// NewGeminiClient builds a client. An empty API key is allowed: the client
// stays uninitialized until SetAPIKey supplies one.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	return newGeminiClient(ctx, cfg, newGenAIGenerator)
}

func newGeminiClient(ctx context.Context, cfg GeminiConfig, factory generatorFactory) (*GeminiClient, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	g := &GeminiClient{model: model, temperature: cfg.Temperature, factory: factory}
	if err := g.SetAPIKey(ctx, cfg.APIKey); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// Initialized reports whether a credential is configured.
func (g *GeminiClient) Initialized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gen != nil
}

// SetAPIKey replaces the credential and re-creates the underlying client.
// An empty key leaves the client uninitialized.
func (g *GeminiClient) SetAPIKey(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	var gen contentGenerator
	if apiKey != "" {
		var err error
		gen, err = g.factory(ctx, apiKey)
		if err != nil {
			return err
		}
	}
	g.mu.Lock()
	g.apiKey = apiKey
	g.gen = gen
	g.mu.Unlock()
	return nil
}

// GenerateContent sends prompt as a single user turn and returns the text reply.
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	g.mu.RLock()
	gen := g.gen
	g.mu.RUnlock()
	if gen == nil {
		return "", ErrUninitialized
	}

	var cfg *genai.GenerateContentConfig
	if g.temperature != nil {
		cfg = &genai.GenerateContentConfig{Temperature: g.temperature}
	}
	resp, err := gen.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", upstream(err)
	}
	txt, ok := responseText(resp)
	if !ok {
		return "", &UpstreamError{Message: errEmptyResponse.Error(), Err: errEmptyResponse}
	}
	return txt, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String(), true
}

func upstream(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch api := any(e).(type) {
		case genai.APIError:
			return &UpstreamError{Code: api.Code, Status: api.Status, Message: api.Message, Err: err}
		case *genai.APIError:
			if api != nil {
				return &UpstreamError{Code: api.Code, Status: api.Status, Message: api.Message, Err: err}
			}
		}
	}
	return &UpstreamError{Message: err.Error(), Err: err}
}
