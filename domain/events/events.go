// Package events defines the messages that flow over the realtime channel.
//
// Every message is an Envelope whose Type selects the payload variant.
// Decode validates both the envelope and the payload so that consumers only
// ever see well-formed events.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"taskboard/domain/dto"
)

type Type string

// Entity mutations
const (
	TaskCreated   Type = "task-created"
	TaskUpdated   Type = "task-updated"
	TaskDeleted   Type = "task-deleted"
	TaskMoved     Type = "task-moved"
	ColumnCreated Type = "column-created"
	ColumnUpdated Type = "column-updated"
	ColumnDeleted Type = "column-deleted"
	BoardUpdated  Type = "board-updated"
	BoardDeleted  Type = "board-deleted"
)

// Presence and ephemeral signals
const (
	UserJoined        Type = "user-joined"
	UserLeft          Type = "user-left"
	BoardUsers        Type = "board-users"
	UserTyping        Type = "user-typing"
	UserStoppedTyping Type = "user-stopped-typing"
)

var (
	ErrUnknownType    = errors.New("unknown event type")
	ErrMissingBoard   = errors.New("event has no board id")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Envelope ข้อความที่ส่งผ่าน websocket / NATS
type Envelope struct {
	Type      Type            `json:"type"`
	BoardID   uuid.UUID       `json:"boardId"`
	UserID    uuid.UUID       `json:"userId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Payload is implemented by every variant body.
type Payload interface {
	validate() error
}

type TaskPayload struct {
	Task dto.TaskResponse `json:"task"`
}

type TaskDeletedPayload struct {
	TaskID   uuid.UUID `json:"taskId"`
	ColumnID uuid.UUID `json:"columnId"`
}

type TaskMovedPayload struct {
	Task           dto.TaskResponse   `json:"task"`
	AffectedTasks  []dto.TaskResponse `json:"affectedTasks"`
	SourceColumnID uuid.UUID          `json:"sourceColumnId"`
	DestColumnID   uuid.UUID          `json:"destColumnId"`
}

type ColumnPayload struct {
	Column dto.ColumnResponse `json:"column"`
}

type ColumnDeletedPayload struct {
	ColumnID uuid.UUID `json:"columnId"`
}

type BoardPayload struct {
	Board dto.BoardResponse `json:"board"`
}

type BoardDeletedPayload struct {
	BoardID uuid.UUID `json:"boardId"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"userId"`
}

type BoardUsersPayload struct {
	UserIDs []uuid.UUID `json:"userIds"`
}

type TypingPayload struct {
	TaskID uuid.UUID `json:"taskId"`
	UserID uuid.UUID `json:"userId"`
}

func (p *TaskPayload) validate() error { return requireID("task.id", p.Task.ID) }

func (p *TaskDeletedPayload) validate() error { return requireID("taskId", p.TaskID) }

func (p *TaskMovedPayload) validate() error {
	if err := requireID("task.id", p.Task.ID); err != nil {
		return err
	}
	for _, t := range p.AffectedTasks {
		if t.ID == uuid.Nil {
			return fmt.Errorf("%w: affected task without id", ErrInvalidPayload)
		}
	}
	return nil
}

func (p *ColumnPayload) validate() error { return requireID("column.id", p.Column.ID) }

func (p *ColumnDeletedPayload) validate() error { return requireID("columnId", p.ColumnID) }

func (p *BoardPayload) validate() error { return requireID("board.id", p.Board.ID) }

func (p *BoardDeletedPayload) validate() error { return requireID("boardId", p.BoardID) }

func (p *PresencePayload) validate() error { return requireID("userId", p.UserID) }

func (p *BoardUsersPayload) validate() error {
	if p.UserIDs == nil {
		p.UserIDs = []uuid.UUID{}
	}
	return nil
}

func (p *TypingPayload) validate() error { return requireID("taskId", p.TaskID) }

func requireID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: %s is required", ErrInvalidPayload, field)
	}
	return nil
}

// newPayload maps a type to an empty value of its variant.
func newPayload(t Type) (Payload, bool) {
	switch t {
	case TaskCreated, TaskUpdated:
		return &TaskPayload{}, true
	case TaskDeleted:
		return &TaskDeletedPayload{}, true
	case TaskMoved:
		return &TaskMovedPayload{}, true
	case ColumnCreated, ColumnUpdated:
		return &ColumnPayload{}, true
	case ColumnDeleted:
		return &ColumnDeletedPayload{}, true
	case BoardUpdated:
		return &BoardPayload{}, true
	case BoardDeleted:
		return &BoardDeletedPayload{}, true
	case UserJoined, UserLeft:
		return &PresencePayload{}, true
	case BoardUsers:
		return &BoardUsersPayload{}, true
	case UserTyping, UserStoppedTyping:
		return &TypingPayload{}, true
	}
	return nil, false
}

// IsPresence reports whether t only carries viewer information.
func (t Type) IsPresence() bool {
	return t == UserJoined || t == UserLeft || t == BoardUsers
}

// IsEphemeral reports signals that are never persisted.
func (t Type) IsEphemeral() bool {
	return t.IsPresence() || t == UserTyping || t == UserStoppedTyping
}

// Event is a decoded envelope together with its typed payload.
type Event struct {
	Envelope
	Body Payload
}

// New builds an envelope tagged with the originating user.
func New(t Type, boardID, userID uuid.UUID, body Payload) (*Envelope, error) {
	if _, ok := newPayload(t); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if boardID == uuid.Nil {
		return nil, ErrMissingBoard
	}
	if err := body.validate(); err != nil {
		return nil, err
	}
	raw, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Envelope{
		Type:      t,
		BoardID:   boardID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// Encode serialises the envelope for the wire.
func (e *Envelope) Encode() ([]byte, error) {
	return sonic.Marshal(e)
}

// Decode parses and validates a wire message.
func Decode(data []byte) (*Event, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return env.Decode()
}

// Decode validates the envelope and unpacks its payload variant.
func (e *Envelope) Decode() (*Event, error) {
	body, ok := newPayload(e.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	if e.BoardID == uuid.Nil {
		return nil, ErrMissingBoard
	}
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := sonic.Unmarshal(e.Payload, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := body.validate(); err != nil {
		return nil, err
	}
	return &Event{Envelope: *e, Body: body}, nil
}
