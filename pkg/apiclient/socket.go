package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fasthttp/websocket"
	"github.com/google/uuid"

	"taskboard/domain/events"
)

const (
	msgJoinBoard   = "join-board"
	msgLeaveBoard  = "leave-board"
	msgPing        = "ping"
	msgStartTyping = "start-typing"
	msgStopTyping  = "stop-typing"
	msgPong        = "pong"
	msgError       = "error"

	writeWait = 5 * time.Second
)

// ErrRejected is returned by Next when the server answered a control
// message with an error frame.
var ErrRejected = errors.New("socket message rejected")

type control struct {
	Type    string    `json:"type"`
	BoardID uuid.UUID `json:"boardId"`
	UserID  uuid.UUID `json:"userId"`
	TaskID  uuid.UUID `json:"taskId"`
}

// Socket is one realtime connection. Writes are serialised; Next must be
// called from a single goroutine.
type Socket struct {
	conn   *websocket.Conn
	userID uuid.UUID
	wmu    sync.Mutex
	log    *slog.Logger
}

// Dial opens the realtime socket with the client's identity.
func (c *Client) Dial(ctx context.Context) (*Socket, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := url.Values{}
	if c.token != "" {
		q.Set("token", c.token)
	} else if c.userID != uuid.Nil {
		q.Set("userId", c.userID.String())
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	if c.dial != nil {
		dial := c.dial
		dialer.NetDial = func(_, addr string) (net.Conn, error) { return dial(addr) }
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &Error{Status: resp.StatusCode, Message: "websocket handshake rejected"}
		}
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNetwork, u.Redacted(), err)
	}
	return &Socket{conn: conn, userID: c.userID, log: c.log.With("socket", u.Host)}, nil
}

func (s *Socket) send(msg control) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrNetwork, msg.Type, err)
	}
	return nil
}

// Join subscribes the socket to boardID, leaving any previous board.
func (s *Socket) Join(boardID uuid.UUID) error {
	return s.send(control{Type: msgJoinBoard, BoardID: boardID, UserID: s.userID})
}

func (s *Socket) Leave() error { return s.send(control{Type: msgLeaveBoard}) }

func (s *Socket) Ping() error { return s.send(control{Type: msgPing}) }

func (s *Socket) StartTyping(taskID uuid.UUID) error {
	return s.send(control{Type: msgStartTyping, TaskID: taskID})
}

func (s *Socket) StopTyping(taskID uuid.UUID) error {
	return s.send(control{Type: msgStopTyping, TaskID: taskID})
}

// Next blocks for the next board event. Pong frames are skipped, frames
// that fail validation are logged and skipped.
func (s *Socket) Next() (*events.Event, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", ErrNetwork, err)
		}

		var head struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := sonic.Unmarshal(data, &head); err != nil {
			s.log.Warn("Dropped malformed frame", "error", err)
			continue
		}
		switch head.Type {
		case msgPong:
			continue
		case msgError:
			return nil, fmt.Errorf("%w: %s", ErrRejected, head.Message)
		}

		evt, err := events.Decode(data)
		if err != nil {
			s.log.Warn("Dropped invalid event", "type", head.Type, "error", err)
			continue
		}
		return evt, nil
	}
}

// Stream calls fn for every event until ctx is done or the connection
// drops. Rejections are logged and do not end the stream.
func (s *Socket) Stream(ctx context.Context, fn func(*events.Event)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-stop:
		}
	}()

	for {
		evt, err := s.Next()
		if errors.Is(err, ErrRejected) {
			s.log.Warn("Server rejected socket message", "error", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(evt)
	}
}

// Close sends a close frame and closes the connection.
func (s *Socket) Close() error {
	s.wmu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.wmu.Unlock()
	return s.conn.Close()
}
