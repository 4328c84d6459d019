package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"vocode/internal/command"
	"vocode/internal/markdown"
)

const DefaultURL = "ws://localhost:5001"

var (
	ErrConnection = errors.New("editor listener unreachable")
	ErrClosed     = errors.New("editor session closed")
)

// Message is one frame on the wire. Content is null for commands that
// carry no payload.
type Message struct {
	Command string  `json:"command"`
	Content *string `json:"content"`
}

// Session is a persistent connection to the editor listener. Sends are
// serialized so frames never interleave.
type Session struct {
	mu   sync.Mutex
	sock *socket
}

func Connect(ctx context.Context, url string) (*Session, error) {
	if url == "" {
		url = DefaultURL
	}

	sock, err := dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, url, err)
	}

	log.Info("Connected to editor", "url", url)
	return &Session{sock: sock}, nil
}

// Send writes a single command frame. Code insertions are reduced to the
// first fenced block before they go out.
func (s *Session) Send(cmd string, content *string) error {
	if cmd == command.WireInsertCode {
		var text string
		if content != nil {
			text = *content
		}
		code := markdown.ExtractCode(text)
		content = &code
		log.Debug("Extracted code to insert", "code", code)
	}

	data, err := json.Marshal(Message{Command: cmd, Content: content})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", cmd, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock == nil {
		return ErrClosed
	}

	if err := s.sock.Write(data); err != nil {
		if IsClosed(err) {
			log.Warn("Editor listener went away", "url", s.sock.url)
		}
		log.Error("Failed to send command", "cmd", cmd, "err", err)
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	log.Info("Sent command to editor", "cmd", cmd)
	return nil
}

// Dispatch sends a classified command. NoCommand is a no-op.
func (s *Session) Dispatch(c command.Command) error {
	if !c.IsCommand() {
		return nil
	}
	return s.Send(c.Kind.Wire(), c.Content())
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock == nil {
		return nil
	}
	err := s.sock.Close()
	s.sock = nil
	return err
}
