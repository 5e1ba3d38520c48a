package panel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codementor/internal/assist"
	"codementor/internal/llm"
	"codementor/internal/logging"
)

func dial(t *testing.T, b *Bridge) (*websocket.Conn, string) {
	t.Helper()
	srv := httptest.NewServer(NewMux(b))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello := read(t, conn)
	require.Equal(t, "session", hello.Type)
	require.NotEmpty(t, hello.Session)
	return conn, hello.Session
}

func read(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out outbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func newBridge(t *testing.T, fake *llm.FakeClient, root string, setKey KeyFunc) *Bridge {
	t.Helper()
	a, err := assist.NewAnalyzer(fake, assist.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	return NewBridge(a, BridgeOptions{Root: root, SetKey: setKey, Logger: logging.Discard()})
}

func TestBridge_PingAndExplain(t *testing.T) {
	fake := llm.NewFakeClient("It adds numbers.")
	conn, session := dial(t, newBridge(t, fake, t.TempDir(), nil))

	require.NoError(t, conn.WriteJSON(inbound{Type: "ping", ID: "1"}))
	pong := read(t, conn)
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, "1", pong.ID)
	assert.Equal(t, session, pong.Session)

	require.NoError(t, conn.WriteJSON(inbound{Type: "explain", ID: "2", Code: "a+b", Language: "go"}))
	got := read(t, conn)
	assert.Equal(t, "explanation", got.Type)
	assert.Equal(t, "2", got.ID)
	assert.Equal(t, "It adds numbers.", got.Text)
}

func TestBridge_AnalyzeRepositoryStreamsProgress(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))
	fake := llm.NewFakeClient("## Strengths\nSmall.")
	conn, _ := dial(t, newBridge(t, fake, root, nil))

	require.NoError(t, conn.WriteJSON(inbound{Type: "analyzeRepository", ID: "r"}))
	var percents []int
	for {
		out := read(t, conn)
		if out.Type == "progress" {
			require.NotNil(t, out.Percent, "progress frame without percent")
			percents = append(percents, *out.Percent)
			continue
		}
		require.Equal(t, "report", out.Type)
		require.NotNil(t, out.Report)
		assert.Equal(t, 1, out.Report.Stats.TotalFiles)
		body, ok := out.Report.Analysis.Section("strengths")
		assert.True(t, ok)
		assert.Equal(t, "Small.", body)
		break
	}
	assert.Equal(t, []int{0, 20, 40, 60, 100}, percents)
}

func TestBridge_Errors(t *testing.T) {
	fake := &llm.FakeClient{Respond: func(string) (string, error) { return "", llm.ErrUninitialized }}
	conn, _ := dial(t, newBridge(t, fake, "", nil))

	require.NoError(t, conn.WriteJSON(inbound{Type: "bogus", ID: "a"}))
	out := read(t, conn)
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "InvalidArgument", out.Code)

	require.NoError(t, conn.WriteJSON(inbound{Type: "analyze", ID: "b", Code: "x"}))
	out = read(t, conn)
	assert.Equal(t, "Uninitialized", out.Code)

	require.NoError(t, conn.WriteJSON(inbound{Type: "analyzeRepository", ID: "c"}))
	for out = read(t, conn); out.Type == "progress"; out = read(t, conn) {
	}
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "NoWorkspace", out.Code)

	require.NoError(t, conn.WriteJSON(inbound{Type: "setKey", ID: "d", APIKey: "k"}))
	out = read(t, conn)
	assert.Equal(t, "Unsupported", out.Code)
}

func TestBridge_SetKey(t *testing.T) {
	keys := make(chan string, 1)
	setKey := func(_ context.Context, key string) error {
		if key == "" {
			return errors.New("empty key")
		}
		keys <- key
		return nil
	}
	conn, _ := dial(t, newBridge(t, llm.NewFakeClient(""), t.TempDir(), setKey))

	require.NoError(t, conn.WriteJSON(inbound{Type: "setKey", ID: "1", APIKey: "secret"}))
	assert.Equal(t, "keySet", read(t, conn).Type)
	assert.Equal(t, "secret", <-keys)

	require.NoError(t, conn.WriteJSON(inbound{Type: "setKey", ID: "2"}))
	out := read(t, conn)
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "Unknown", out.Code)
}

func TestBridge_ProgressFrameKeepsZeroPercent(t *testing.T) {
	zero := 0
	raw, err := json.Marshal(outbound{Type: "progress", Percent: &zero, Message: "Scanning"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"percent":0`)

	raw, err = json.Marshal(outbound{Type: "answer", Text: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "percent")
}

func TestBridge_RejectsForeignOrigin(t *testing.T) {
	b := NewBridge(nil, BridgeOptions{Root: t.TempDir(), Logger: logging.Discard()})
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBridge_AcceptsLoopbackAndConfiguredOrigins(t *testing.T) {
	fake := llm.NewFakeClient("")
	a, err := assist.NewAnalyzer(fake, assist.Options{Logger: logging.Discard()})
	require.NoError(t, err)
	b := NewBridge(a, BridgeOptions{
		Root:           t.TempDir(),
		AllowedOrigins: []string{"https://Panel.example/"},
		Logger:         logging.Discard(),
	})
	srv := httptest.NewServer(NewMux(b))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	for _, origin := range []string{"http://127.0.0.1:5173", "http://localhost:3000", "http://[::1]:8080", "https://panel.example"} {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {origin}})
		require.NoError(t, err, origin)
		assert.Equal(t, "session", read(t, conn).Type, origin)
		conn.Close()
	}
}

func TestBridge_AllowOrigin(t *testing.T) {
	b := NewBridge(nil, BridgeOptions{AllowedOrigins: []string{"https://panel.example"}})
	cases := map[string]bool{
		"":                           true,
		"http://localhost":           true,
		"http://127.0.0.2:9000":      true,
		"https://panel.example":      true,
		"https://panel.example.evil": false,
		"http://localhost.evil.com":  false,
		"https://evil.example":       false,
		"null":                       false,
		"file://localhost":           false,
	}
	for origin, want := range cases {
		assert.Equal(t, want, b.AllowOrigin(origin), origin)
	}
}

func TestHealthzAndCORS(t *testing.T) {
	srv := httptest.NewServer(NewMux(NewBridge(nil, BridgeOptions{})))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	denied, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer denied.Body.Close()
	assert.Equal(t, http.StatusForbidden, denied.StatusCode)
	assert.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))
}
