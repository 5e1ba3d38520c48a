// Package panel bridges a browser panel to the assistant over a websocket.
package panel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"codementor/internal/assist"
	"codementor/internal/logging"
	"codementor/internal/parse"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsQueue     = 32
)

// Assistant is the part of assist.Analyzer the panel drives.
type Assistant interface {
	ExplainCode(ctx context.Context, code, language string) (string, error)
	AnalyzeCode(ctx context.Context, code, language string) (parse.CodeAnalysis, error)
	AnalyzeRepository(ctx context.Context, root string, progress assist.Progress) (assist.RepositoryReport, error)
	AskQuestion(ctx context.Context, root, question, previousContext string) (string, error)
	FindRelatedFiles(ctx context.Context, root, term string) (string, error)
}

// KeyFunc replaces the model credential.
type KeyFunc func(ctx context.Context, apiKey string) error

type BridgeOptions struct {
	// Root is the workspace folder repository requests run against.
	Root   string
	SetKey KeyFunc
	// AllowedOrigins are accepted in addition to loopback origins.
	AllowedOrigins []string
	Logger         *logging.Logger
}

// Bridge serves one goroutine per request on each websocket session.
type Bridge struct {
	assistant Assistant
	root      string
	setKey    KeyFunc
	origins   map[string]struct{}
	upgrader  websocket.Upgrader
	log       *logging.Logger
}

func NewBridge(a Assistant, opts BridgeOptions) *Bridge {
	b := &Bridge{
		assistant: a,
		root:      opts.Root,
		setKey:    opts.SetKey,
		origins:   make(map[string]struct{}, len(opts.AllowedOrigins)),
		log:       opts.Logger,
	}
	for _, o := range opts.AllowedOrigins {
		if o = normalizeOrigin(o); o != "" {
			b.origins[o] = struct{}{}
		}
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return b.AllowOrigin(r.Header.Get("Origin"))
		},
	}
	return b
}

// AllowOrigin reports whether a browser page at origin may use the bridge.
// Requests without an Origin header come from non-browser clients and pass.
func (b *Bridge) AllowOrigin(origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == "" {
		return true
	}
	if _, ok := b.origins[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

type inbound struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
	Question string `json:"question,omitempty"`
	Term     string `json:"term,omitempty"`
	Context  string `json:"context,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
}

type outbound struct {
	Type     string                   `json:"type"`
	ID       string                   `json:"id,omitempty"`
	Session  string                   `json:"session,omitempty"`
	Text     string                   `json:"text,omitempty"`
	Analysis *parse.CodeAnalysis      `json:"analysis,omitempty"`
	Report   *assist.RepositoryReport `json:"report,omitempty"`
	Percent  *int                     `json:"percent,omitempty"`
	Code     string                   `json:"code,omitempty"`
	Message  string                   `json:"message,omitempty"`
}

func (b *Bridge) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("panel ws upgrade rejected (origin %q): %v", r.Header.Get("Origin"), err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		b.log.Error("panel ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan outbound, wsQueue)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	b.log.Info("Panel session %s opened", session)
	push(writeCh, outbound{Type: "session", Session: session})

	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		<-writerDone
		b.log.Info("Panel session %s closed", session)
	}()

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		msgType := strings.TrimSpace(in.Type)
		switch msgType {
		case "":
			push(writeCh, errorReply(in.ID, "InvalidArgument", "type is required"))
		case "ping":
			push(writeCh, outbound{Type: "pong", ID: in.ID, Session: session})
		case "explain", "analyze", "askQuestion", "findRelated", "analyzeRepository", "setKey":
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				push(writeCh, b.dispatch(ctx, msgType, in, writeCh))
			}()
		default:
			push(writeCh, errorReply(in.ID, "InvalidArgument", "unsupported type: "+msgType))
		}
	}
}

// dispatch runs one request and returns its reply.
func (b *Bridge) dispatch(ctx context.Context, msgType string, in inbound, writeCh chan outbound) outbound {
	switch msgType {
	case "explain":
		if strings.TrimSpace(in.Code) == "" {
			return errorReply(in.ID, "InvalidArgument", "code is required")
		}
		txt, err := b.assistant.ExplainCode(ctx, in.Code, in.Language)
		if err != nil {
			return b.failure(in.ID, "explain", err)
		}
		return outbound{Type: "explanation", ID: in.ID, Text: txt}

	case "analyze":
		if strings.TrimSpace(in.Code) == "" {
			return errorReply(in.ID, "InvalidArgument", "code is required")
		}
		res, err := b.assistant.AnalyzeCode(ctx, in.Code, in.Language)
		if err != nil {
			return b.failure(in.ID, "analyze", err)
		}
		return outbound{Type: "analysis", ID: in.ID, Analysis: &res}

	case "analyzeRepository":
		progress := assist.ProgressFunc(func(percent int, message string) {
			p := percent
			push(writeCh, outbound{Type: "progress", ID: in.ID, Percent: &p, Message: message})
		})
		report, err := b.assistant.AnalyzeRepository(ctx, b.root, progress)
		if err != nil {
			return b.failure(in.ID, "analyzeRepository", err)
		}
		return outbound{Type: "report", ID: in.ID, Report: &report}

	case "askQuestion":
		if strings.TrimSpace(in.Question) == "" {
			return errorReply(in.ID, "InvalidArgument", "question is required")
		}
		txt, err := b.assistant.AskQuestion(ctx, b.root, in.Question, in.Context)
		if err != nil {
			return b.failure(in.ID, "askQuestion", err)
		}
		return outbound{Type: "answer", ID: in.ID, Text: txt}

	case "findRelated":
		if strings.TrimSpace(in.Term) == "" {
			return errorReply(in.ID, "InvalidArgument", "term is required")
		}
		txt, err := b.assistant.FindRelatedFiles(ctx, b.root, in.Term)
		if err != nil {
			return b.failure(in.ID, "findRelated", err)
		}
		return outbound{Type: "related", ID: in.ID, Text: txt}

	case "setKey":
		if b.setKey == nil {
			return errorReply(in.ID, "Unsupported", "API key cannot be changed")
		}
		if err := b.setKey(ctx, in.APIKey); err != nil {
			return b.failure(in.ID, "setKey", err)
		}
		return outbound{Type: "keySet", ID: in.ID}
	}
	return errorReply(in.ID, "InvalidArgument", "unsupported type: "+msgType)
}

func (b *Bridge) failure(id, op string, err error) outbound {
	kind := assist.Kind(err)
	if errors.Is(err, context.Canceled) {
		b.log.Debug("panel %s canceled", op)
	} else {
		b.log.Error("panel %s failed: %v", op, err)
	}
	return errorReply(id, kind, err.Error())
}

func errorReply(id, code, message string) outbound {
	return outbound{Type: "error", ID: id, Code: code, Message: message}
}

// push enqueues out, dropping the oldest queued reply when the writer lags.
func push(writeCh chan outbound, out outbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
