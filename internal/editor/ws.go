package editor

import (
	"context"
	log "log/slog"
	"time"

	ws "github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type socket struct {
	conn *ws.Conn
	url  string
}

func dial(ctx context.Context, url string) (*socket, error) {
	log.Debug("Dial editor websocket", "url", url)

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return &socket{conn: conn, url: url}, nil
}

func (s *socket) Write(payload []byte) error {
	log.Debug("Write ws", "msg", string(payload))
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(ws.TextMessage, payload)
}

func (s *socket) Close() error {
	msg := ws.FormatCloseMessage(ws.CloseNormalClosure, "")
	_ = s.conn.WriteControl(ws.CloseMessage, msg, time.Now().Add(writeWait))
	return s.conn.Close()
}

// IsClosed reports whether err means the listener hung up.
func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure) || err == ws.ErrCloseSent
}
