package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"taskboard/domain/dto"
)

func TestDecodeTypedPayload(t *testing.T) {
	board, user := uuid.New(), uuid.New()
	task := dto.TaskResponse{ID: uuid.New(), BoardID: board, Title: "Write docs"}

	env, err := New(TaskMoved, board, user, &TaskMovedPayload{Task: task, AffectedTasks: []dto.TaskResponse{task}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	evt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	body, ok := evt.Body.(*TaskMovedPayload)
	if !ok {
		t.Fatalf("body type = %T, want *TaskMovedPayload", evt.Body)
	}
	if body.Task.ID != task.ID || evt.UserID != user || evt.BoardID != board {
		t.Errorf("decoded event does not match: %+v", evt.Envelope)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	board := uuid.New().String()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "not json", data: `{`, wantErr: ErrInvalidPayload},
		{name: "unknown type", data: `{"type":"task-exploded","boardId":"` + board + `","payload":{}}`, wantErr: ErrUnknownType},
		{name: "missing board", data: `{"type":"task-deleted","payload":{"taskId":"` + uuid.NewString() + `"}}`, wantErr: ErrMissingBoard},
		{name: "missing payload", data: `{"type":"task-deleted","boardId":"` + board + `"}`, wantErr: ErrInvalidPayload},
		{name: "payload without id", data: `{"type":"task-updated","boardId":"` + board + `","payload":{"task":{"title":"x"}}}`, wantErr: ErrInvalidPayload},
		{name: "wrong payload shape", data: `{"type":"user-joined","boardId":"` + board + `","payload":{"userId":42}}`, wantErr: ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewValidatesBody(t *testing.T) {
	if _, err := New(ColumnDeleted, uuid.New(), uuid.New(), &ColumnDeletedPayload{}); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("err = %v, want ErrInvalidPayload", err)
	}
	if _, err := New(UserJoined, uuid.Nil, uuid.New(), &PresencePayload{UserID: uuid.New()}); !errors.Is(err, ErrMissingBoard) {
		t.Errorf("err = %v, want ErrMissingBoard", err)
	}
}

func TestTypeClassification(t *testing.T) {
	tests := []struct {
		typ       Type
		presence  bool
		ephemeral bool
	}{
		{TaskMoved, false, false},
		{UserJoined, true, true},
		{BoardUsers, true, true},
		{UserTyping, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.IsPresence(); got != tt.presence {
				t.Errorf("IsPresence = %v", got)
			}
			if got := tt.typ.IsEphemeral(); got != tt.ephemeral {
				t.Errorf("IsEphemeral = %v", got)
			}
		})
	}
}
