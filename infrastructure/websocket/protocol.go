package websocket

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"taskboard/domain/events"
	"taskboard/pkg/logger"
)

// Control message types sent by clients
const (
	MsgJoinBoard   = "join-board"
	MsgLeaveBoard  = "leave-board"
	MsgPing        = "ping"
	MsgStartTyping = "start-typing"
	MsgStopTyping  = "stop-typing"

	MsgPong  = "pong"
	MsgError = "error"
)

// Inbound control message จาก client
type Inbound struct {
	Type    string    `json:"type"`
	BoardID uuid.UUID `json:"boardId"`
	UserID  uuid.UUID `json:"userId"`
	TaskID  uuid.UUID `json:"taskId"`
}

// Reply ข้อความตอบกลับเฉพาะ connection (pong / error)
type Reply struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BoardChecker reports whether a board exists; nil means every id is accepted.
type BoardChecker func(ctx context.Context, boardID uuid.UUID) bool

// HandleMessage applies one inbound frame from c.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, data []byte, boardExists BoardChecker) {
	var msg Inbound
	if err := sonic.Unmarshal(data, &msg); err != nil {
		h.replyError(c, "malformed message")
		return
	}

	switch msg.Type {
	case MsgPing:
		h.reply(c, Reply{Type: MsgPong, Timestamp: time.Now().UTC()})

	case MsgJoinBoard:
		if msg.BoardID == uuid.Nil {
			h.replyError(c, "boardId is required")
			return
		}
		// identity จาก token มาก่อน; userId ในข้อความใช้เมื่อ connection ไม่มี identity
		userID := h.UserOf(c)
		if userID == uuid.Nil {
			userID = msg.UserID
		}
		if userID == uuid.Nil {
			h.replyError(c, "userId is required")
			return
		}
		if boardExists != nil && !boardExists(ctx, msg.BoardID) {
			h.replyError(c, "board not found")
			return
		}
		h.Join(c, msg.BoardID, userID)

	case MsgLeaveBoard:
		h.Leave(c)

	case MsgStartTyping, MsgStopTyping:
		if msg.TaskID == uuid.Nil {
			h.replyError(c, "taskId is required")
			return
		}
		kind := events.UserTyping
		if msg.Type == MsgStopTyping {
			kind = events.UserStoppedTyping
		}
		h.Typing(c, kind, msg.TaskID)

	default:
		if isMutation(events.Type(msg.Type)) {
			// การแก้ไขข้อมูลต้องผ่าน REST API เท่านั้น
			h.replyError(c, "mutations must be sent through the API")
			return
		}
		logger.Named("hub").Debug("Unknown websocket message", "type", msg.Type)
		h.replyError(c, "unknown message type")
	}
}

func isMutation(t events.Type) bool {
	switch t {
	case events.TaskCreated, events.TaskUpdated, events.TaskDeleted, events.TaskMoved,
		events.ColumnCreated, events.ColumnUpdated, events.ColumnDeleted,
		events.BoardUpdated, events.BoardDeleted:
		return true
	}
	return false
}

func (h *Hub) replyError(c *Client, message string) {
	h.reply(c, Reply{Type: MsgError, Message: message, Timestamp: time.Now().UTC()})
}

func (h *Hub) reply(c *Client, r Reply) {
	data, err := sonic.Marshal(r)
	if err != nil {
		return
	}
	h.SendTo(c, data)
}
