package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocode/internal/command"
	"vocode/internal/editor"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, string) {
	t.Helper()

	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	return hub, srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connectEditor(t *testing.T, hub *Hub, url string) *ws.Conn {
	t.Helper()

	conn, _, err := ws.DefaultDialer.Dial(url+"/?role=editor", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, hub.EditorConnected, 5*time.Second, 5*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *ws.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestRelayForwardsAssistantCommands(t *testing.T) {
	hub, _, url := startHub(t)
	ed := connectEditor(t, hub, url)

	s, err := editor.Connect(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Dispatch(command.Classify("CREATE FUNCTION:\nok\n```python\nprint(1)\n```")))
	assert.JSONEq(t, `{"command":"insertGeneratedCode","content":"print(1)"}`, readFrame(t, ed))

	require.NoError(t, s.Dispatch(command.Classify("DELETE ROW:\nbye")))
	assert.JSONEq(t, `{"command":"deleteLine","content":null}`, readFrame(t, ed))
}

func TestRelayDropsUnknownCommands(t *testing.T) {
	hub, _, url := startHub(t)
	ed := connectEditor(t, hub, url)

	s, err := editor.Connect(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Send("formatDocument", nil))
	content := "stray"
	require.NoError(t, s.Send("deleteLine", &content))

	assert.JSONEq(t, `{"command":"deleteLine","content":null}`, readFrame(t, ed))
}

func TestForwardErrors(t *testing.T) {
	hub := NewHub()

	assert.ErrorIs(t, hub.Forward([]byte(`{"command":"editLine","content":"x"}`)), ErrNoEditor)
	assert.ErrorIs(t, hub.Forward([]byte(`{"command":"nope"}`)), ErrUnknownCommand)
	assert.Error(t, hub.Forward([]byte(`not json`)))
}

func TestCommandEndpoint(t *testing.T) {
	hub, srv, url := startHub(t)

	resp, err := http.Post(srv.URL+"/command", "application/json", strings.NewReader(`{"command":"deleteLine"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ed := connectEditor(t, hub, url)

	resp, err = http.Post(srv.URL+"/command", "application/json", strings.NewReader(`{"command":"editLine","content":"y = 2"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"command":"editLine","content":"y = 2"}`, readFrame(t, ed))

	resp, err = http.Post(srv.URL+"/command", "application/json", strings.NewReader(`{"command":"rm"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLatestEditorWins(t *testing.T) {
	hub, _, url := startHub(t)
	connectEditor(t, hub, url)

	second, _, err := ws.DefaultDialer.Dial(url+"/?role=editor", nil)
	require.NoError(t, err)
	defer second.Close()

	// wait until the hub has swapped to the second connection
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return hub.editor != nil && hub.editor.conn.RemoteAddr().String() == second.LocalAddr().String()
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Forward([]byte(`{"command":"deleteLine"}`)))
	assert.JSONEq(t, `{"command":"deleteLine","content":null}`, readFrame(t, second))
}
