package llm

import (
	"context"
	"time"

	"codementor/internal/logging"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (logging, hooks).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Logging --------

// WithLogging logs prompt size, latency and errors.
func WithLogging(logger *logging.Logger) Middleware {
	return func(next Client) Client {
		return &logged{next: next, log: logger}
	}
}

type logged struct {
	next Client
	log  *logging.Logger
}

func (l *logged) Name() string { return l.next.Name() }
func (l *logged) Close() error { return l.next.Close() }
func (l *logged) GenerateContent(ctx context.Context, prompt string) (string, error) {
	phase := PhaseFrom(ctx)
	l.log.Debug("LLM request (%s) to %s: %d bytes", phase, l.next.Name(), len(prompt))
	start := time.Now()
	txt, err := l.next.GenerateContent(ctx, prompt)
	if err != nil {
		l.log.Error("LLM error (%s): %v", phase, err)
		return txt, err
	}
	l.log.Debug("LLM response (%s): %d bytes in %s", phase, len(txt), time.Since(start).Round(time.Millisecond))
	return txt, nil
}

// -------- Hooks --------

// WithHooks calls HookFrom(ctx).Before/After around GenerateContent.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next Client) Client {
		return &hooked{next: next}
	}
}

type hooked struct{ next Client }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }
func (h *hooked) GenerateContent(ctx context.Context, prompt string) (string, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), prompt)
	}
	txt, err := h.next.GenerateContent(ctx, prompt)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), txt, err)
	}
	return txt, err
}
