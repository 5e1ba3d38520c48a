package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"codementor/internal/assist"
	"codementor/internal/completion"
	"codementor/internal/config"
	"codementor/internal/llm"
	"codementor/internal/logging"
	"codementor/internal/repoctx"
	"codementor/internal/scan"
)

// ErrKeyUnsupported is returned by SetAPIKey when the client has no credential.
var ErrKeyUnsupported = errors.New("client does not take an API key")

type keySetter interface {
	SetAPIKey(ctx context.Context, apiKey string) error
}

// Options overrides parts of the container, mostly for offline runs and tests.
type Options struct {
	// Console receives log lines; nil means stderr.
	Console io.Writer
	// Client replaces the Gemini client when set.
	Client llm.Client
}

// App owns every long-lived service of a run.
type App struct {
	Config     *config.Config
	Log        *logging.Logger
	LLM        llm.Client
	Analyzer   *assist.Analyzer
	Completion *completion.Provider

	base    llm.Client
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	a := &App{Config: cfg}

	a.Log = logging.New(logging.Options{
		Console:    opts.Console,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Level:      logging.ParseLevel(cfg.Log.Level),
	})
	a.closers = append(a.closers, a.Log.Close)

	base := opts.Client
	if base == nil {
		gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			_ = a.DisposeAll()
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		if !gemini.Initialized() {
			a.Log.Warn("Gemini API key not configured")
		}
		base = gemini
	}
	a.base = base
	a.LLM = llm.Wrap(base, llm.WithLogging(a.Log), llm.WithHooks())
	a.closers = append(a.closers, a.LLM.Close)

	analyzer, err := assist.NewAnalyzer(a.LLM, assist.Options{
		Scanner: scan.NewScanner(scan.Options{
			Extensions:       cfg.Scan.Extensions,
			IgnoreNames:      cfg.Scan.IgnoreNames,
			RespectGitignore: cfg.Scan.RespectGitignore,
		}, a.Log),
		Reader: scan.NewReader(scan.ReaderOptions{
			MaxFileSize: cfg.Scan.MaxFileSize,
			Concurrency: cfg.Scan.Concurrency,
		}, a.Log),
		Context: repoctx.Options{
			TruncateAbove: cfg.Context.TruncateAbove,
			HeadTail:      cfg.Context.HeadTail,
		},
		PreviewChars: cfg.Context.PreviewChars,
		ContextMemo:  cfg.Context.Memo,
		Logger:       a.Log,
	})
	if err != nil {
		_ = a.DisposeAll()
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	a.Analyzer = analyzer

	// A configured 0 means no rate limit; the provider reads 0 as "default".
	interval := cfg.Completion.MinInterval
	if interval == 0 {
		interval = -1
	}
	a.Completion = completion.NewProvider(a.LLM, completion.Options{
		MinInterval: interval,
		CacheTTL:    cfg.Completion.CacheTTL,
		CacheSize:   cfg.Completion.CacheSize,
		AutoSuggest: cfg.AutoSuggest,
		Logger:      a.Log,
	})
	a.closers = append(a.closers, func() error {
		a.Completion.ClearCache()
		a.Analyzer.ForgetContexts()
		return nil
	})

	a.Log.Info("CodeMentor ready (%s)", a.LLM.Name())
	return a, nil
}

// SetAPIKey replaces the credential of the underlying client.
func (a *App) SetAPIKey(ctx context.Context, apiKey string) error {
	ks, ok := a.base.(keySetter)
	if !ok {
		return ErrKeyUnsupported
	}
	if err := ks.SetAPIKey(ctx, apiKey); err != nil {
		return fmt.Errorf("set API key: %w", err)
	}
	a.Config.APIKey = apiKey
	a.Log.Info("API key updated")
	return nil
}

// DisposeAll releases services in reverse creation order. It is safe to
// call more than once.
func (a *App) DisposeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
