package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

type stubGenerator struct {
	key    string
	resp   *genai.GenerateContentResponse
	err    error
	model  string
	prompt string
	cfg    *genai.GenerateContentConfig
}

func (s *stubGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.model = model
	s.cfg = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		s.prompt = contents[0].Parts[0].Text
	}
	return s.resp, s.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	c := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		c.Parts = append(c.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: c}}}
}

func stubFactory(stubs map[string]*stubGenerator) generatorFactory {
	return func(_ context.Context, apiKey string) (contentGenerator, error) {
		s, ok := stubs[apiKey]
		if !ok {
			return nil, errors.New("unknown key")
		}
		s.key = apiKey
		return s, nil
	}
}

func TestGemini_UninitializedWithoutKey(t *testing.T) {
	g, err := newGeminiClient(context.Background(), GeminiConfig{}, stubFactory(nil))
	require.NoError(t, err)
	assert.False(t, g.Initialized())
	assert.Equal(t, "Gemini:"+DefaultModel, g.Name())

	_, err = g.GenerateContent(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestGemini_ReturnsText(t *testing.T) {
	stub := &stubGenerator{resp: textResponse("Hello, ", "world")}
	temp := float32(0.2)
	g, err := newGeminiClient(context.Background(),
		GeminiConfig{APIKey: "k1", Model: "gemini-test", Temperature: &temp},
		stubFactory(map[string]*stubGenerator{"k1": stub}))
	require.NoError(t, err)

	txt, err := g.GenerateContent(context.Background(), "explain")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", txt)
	assert.Equal(t, "gemini-test", stub.model)
	assert.Equal(t, "explain", stub.prompt)
	require.NotNil(t, stub.cfg)
	assert.Equal(t, float32(0.2), *stub.cfg.Temperature)
}

func TestGemini_UpstreamErrors(t *testing.T) {
	stub := &stubGenerator{err: &genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}}
	g, err := newGeminiClient(context.Background(), GeminiConfig{APIKey: "k"},
		stubFactory(map[string]*stubGenerator{"k": stub}))
	require.NoError(t, err)

	_, err = g.GenerateContent(context.Background(), "p")
	var up *UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, 429, up.Code)
	assert.Equal(t, "RESOURCE_EXHAUSTED", up.Status)
	assert.Contains(t, err.Error(), "quota")

	stub.err = errors.New("dial tcp: timeout")
	_, err = g.GenerateContent(context.Background(), "p")
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "Gemini API error: dial tcp: timeout", err.Error())

	stub.err = nil
	stub.resp = &genai.GenerateContentResponse{}
	_, err = g.GenerateContent(context.Background(), "p")
	require.ErrorAs(t, err, &up)
}

func TestGemini_SetAPIKeyReinitializes(t *testing.T) {
	a := &stubGenerator{resp: textResponse("from a")}
	b := &stubGenerator{resp: textResponse("from b")}
	g, err := newGeminiClient(context.Background(), GeminiConfig{APIKey: "a"},
		stubFactory(map[string]*stubGenerator{"a": a, "b": b}))
	require.NoError(t, err)

	txt, err := g.GenerateContent(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "from a", txt)

	require.NoError(t, g.SetAPIKey(context.Background(), "b"))
	txt, err = g.GenerateContent(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "from b", txt)

	require.Error(t, g.SetAPIKey(context.Background(), "bad"))
	assert.True(t, g.Initialized(), "failed replacement keeps the previous client")

	require.NoError(t, g.SetAPIKey(context.Background(), " "))
	assert.False(t, g.Initialized())
}
