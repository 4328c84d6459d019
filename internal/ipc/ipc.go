package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocketPath = "/tmp/vocode.sock"

const (
	CmdToggle = "toggle"
	CmdStart  = "start"
	CmdStop   = "stop"
	CmdListen = "listen"
	CmdAsk    = "ask"
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Reply struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type Handler func(ControlMessage) Reply

type Server struct {
	ln   net.Listener
	path string
}

// StartServer listens on a unix socket and handles each connection in its
// own goroutine: one request, one reply.
func StartServer(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Warn("Accept failed", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	log.Debug("Control socket ready", "path", path)
	return &Server{ln: ln, path: path}, nil
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		return
	}

	reply := handler(msg)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("Failed to reply", "cmd", msg.Cmd, "err", err)
	}
}

// SendCommand delivers msg and waits up to timeout for the reply.
func SendCommand(path string, msg ControlMessage, timeout time.Duration) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	conn, err := net.Dial("unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, err
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
