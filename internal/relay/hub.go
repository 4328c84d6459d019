package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"vocode/internal/command"
	"vocode/internal/editor"
)

const (
	RoleEditor = "editor"
	writeWait  = 5 * time.Second
	maxBody    = 1 << 20
)

var (
	ErrNoEditor       = errors.New("no active editor connection")
	ErrUnknownCommand = errors.New("unknown command")
)

type peer struct {
	mu   sync.Mutex
	conn *ws.Conn
}

func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(ws.TextMessage, data)
}

// Hub forwards command frames from assistants to the one connected editor.
// The most recent editor connection wins.
type Hub struct {
	mu       sync.Mutex
	editor   *peer
	upgrader ws.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /command", h.handleCommand)
	mux.HandleFunc("/", h.handleSocket)
	return mux
}

func (h *Hub) EditorConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.editor != nil
}

func (h *Hub) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	if r.URL.Query().Get("role") == RoleEditor {
		h.serveEditor(&peer{conn: conn})
		return
	}

	log.Info("Assistant connected", "remote", r.RemoteAddr)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if editor.IsClosed(err) {
				log.Info("Assistant disconnected", "remote", r.RemoteAddr)
			} else {
				log.Warn("Assistant read failed", "remote", r.RemoteAddr, "err", err)
			}
			return
		}

		if err := h.Forward(msg); err != nil {
			log.Warn("Dropped frame", "msg", string(msg), "err", err)
		}
	}
}

func (h *Hub) serveEditor(p *peer) {
	h.mu.Lock()
	h.editor = p
	h.mu.Unlock()
	log.Info("Editor connected")

	defer func() {
		h.mu.Lock()
		if h.editor == p {
			h.editor = nil
		}
		h.mu.Unlock()
		log.Info("Editor disconnected")
	}()

	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		log.Debug("Message from editor", "msg", string(msg))
	}
}

// Forward validates one frame and relays it to the editor. Commands
// without a payload always go out with null content.
func (h *Hub) Forward(raw []byte) error {
	var in editor.Message
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	kind, ok := command.FromWire(in.Command)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, in.Command)
	}

	out := editor.Message{Command: in.Command}
	if kind.HasPayload() {
		out.Content = in.Content
	}

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}

	h.mu.Lock()
	p := h.editor
	h.mu.Unlock()

	if p == nil {
		return ErrNoEditor
	}

	if err := p.write(data); err != nil {
		return fmt.Errorf("write to editor: %w", err)
	}

	log.Info("Forwarded command", "cmd", in.Command)
	return nil
}

func (h *Hub) handleCommand(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.Forward(raw)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "sent"})
	case errors.Is(err, ErrNoEditor):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
