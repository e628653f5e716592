package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/events"
)

type fakeConn struct {
	writes    chan frame
	closed    chan struct{}
	closeOnce sync.Once
	block     bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{writes: make(chan frame, 64), closed: make(chan struct{})}
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	if f.block {
		<-f.closed
		return errors.New("closed")
	}
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.writes <- frame{kind: kind, data: data}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) isClosed(t *testing.T) bool {
	t.Helper()
	select {
	case <-f.closed:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func next(t *testing.T, f *fakeConn) frame {
	t.Helper()
	select {
	case fr := <-f.writes:
		return fr
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func nextEvent(t *testing.T, f *fakeConn) *events.Event {
	t.Helper()
	fr := next(t, f)
	evt, err := events.Decode(fr.data)
	if err != nil {
		t.Fatalf("decode %s: %v", fr.data, err)
	}
	return evt
}

func nextReply(t *testing.T, f *fakeConn) Reply {
	t.Helper()
	fr := next(t, f)
	var r Reply
	if err := sonic.Unmarshal(fr.data, &r); err != nil {
		t.Fatalf("decode reply %s: %v", fr.data, err)
	}
	return r
}

// expectQuiet proves nothing was queued for c before a marker reply.
func expectQuiet(t *testing.T, h *Hub, c *Client, f *fakeConn) {
	t.Helper()
	h.reply(c, Reply{Type: "marker"})
	if r := nextReply(t, f); r.Type != "marker" {
		t.Fatalf("unexpected frame before marker: %+v", r)
	}
}

func startHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	h := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func taskEvent(t *testing.T, boardID, userID uuid.UUID) *events.Envelope {
	t.Helper()
	env, err := events.New(events.TaskUpdated, boardID, userID, &events.TaskPayload{
		Task: dto.TaskResponse{ID: uuid.New(), BoardID: boardID, Title: "x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestJoinSendsSnapshotAndAnnounces(t *testing.T) {
	h := startHub(t, Config{})
	board, alice, bob := uuid.New(), uuid.New(), uuid.New()

	fa, fb := newFakeConn(), newFakeConn()
	a := h.Register(fa, alice)
	b := h.Register(fb, bob)

	h.Join(a, board, alice)
	snap := nextEvent(t, fa)
	if snap.Type != events.BoardUsers {
		t.Fatalf("first frame = %s, want board-users", snap.Type)
	}
	if users := snap.Body.(*events.BoardUsersPayload).UserIDs; len(users) != 1 || users[0] != alice {
		t.Errorf("snapshot = %v", users)
	}

	h.Join(b, board, bob)
	joined := nextEvent(t, fa)
	if joined.Type != events.UserJoined || joined.Body.(*events.PresencePayload).UserID != bob {
		t.Errorf("alice got %s, want user-joined(bob)", joined.Type)
	}
	snap = nextEvent(t, fb)
	if snap.Type != events.BoardUsers || len(snap.Body.(*events.BoardUsersPayload).UserIDs) != 2 {
		t.Errorf("bob snapshot = %+v", snap.Body)
	}

	if h.ActiveBoards() != 1 || h.Connections() != 2 || h.RoomConnections(board) != 2 {
		t.Errorf("boards=%d conns=%d room=%d", h.ActiveBoards(), h.Connections(), h.RoomConnections(board))
	}
}

func TestBroadcastExcludesOrigin(t *testing.T) {
	h := startHub(t, Config{})
	board, other := uuid.New(), uuid.New()
	alice, bob := uuid.New(), uuid.New()

	fa, fb, fo := newFakeConn(), newFakeConn(), newFakeConn()
	a, b, o := h.Register(fa, alice), h.Register(fb, bob), h.Register(fo, uuid.New())
	h.Join(a, board, alice)
	nextEvent(t, fa) // snapshot
	h.Join(b, board, bob)
	nextEvent(t, fa) // user-joined
	nextEvent(t, fb) // snapshot
	h.Join(o, other, uuid.Nil)
	nextEvent(t, fo)

	h.Broadcast(taskEvent(t, board, alice))

	if evt := nextEvent(t, fb); evt.Type != events.TaskUpdated || evt.UserID != alice {
		t.Errorf("bob got %s from %s", evt.Type, evt.UserID)
	}
	expectQuiet(t, h, a, fa)
	expectQuiet(t, h, o, fo)
}

func TestBroadcastPreservesOrder(t *testing.T) {
	h := startHub(t, Config{SendBuffer: 16})
	board, alice, bob := uuid.New(), uuid.New(), uuid.New()
	fb := newFakeConn()
	b := h.Register(fb, bob)
	h.Join(b, board, bob)
	nextEvent(t, fb)

	var sent []uuid.UUID
	for i := 0; i < 10; i++ {
		env := taskEvent(t, board, alice)
		h.Broadcast(env)
		evt, err := env.Decode()
		if err != nil {
			t.Fatal(err)
		}
		sent = append(sent, evt.Body.(*events.TaskPayload).Task.ID)
	}
	for i, want := range sent {
		evt := nextEvent(t, fb)
		if got := evt.Body.(*events.TaskPayload).Task.ID; got != want {
			t.Fatalf("event %d out of order", i)
		}
	}
}

func TestPresenceRefCountedByConnection(t *testing.T) {
	h := startHub(t, Config{})
	board, alice, bob := uuid.New(), uuid.New(), uuid.New()

	fb := newFakeConn()
	b := h.Register(fb, bob)
	h.Join(b, board, bob)
	nextEvent(t, fb)

	tab1, tab2 := newFakeConn(), newFakeConn()
	c1, c2 := h.Register(tab1, alice), h.Register(tab2, alice)
	h.Join(c1, board, alice)
	if evt := nextEvent(t, fb); evt.Type != events.UserJoined {
		t.Fatalf("got %s, want user-joined", evt.Type)
	}
	h.Join(c2, board, alice)
	expectQuiet(t, h, b, fb) // second tab is not a new viewer

	h.Unregister(c1)
	expectQuiet(t, h, b, fb)
	if users := h.BoardUsers(board); len(users) != 2 {
		t.Errorf("viewers = %v, want bob and alice", users)
	}

	h.Unregister(c2)
	if evt := nextEvent(t, fb); evt.Type != events.UserLeft || evt.Body.(*events.PresencePayload).UserID != alice {
		t.Errorf("got %s, want user-left(alice)", evt.Type)
	}
	if !tab1.isClosed(t) || !tab2.isClosed(t) {
		t.Error("unregistered connections should be closed")
	}
}

func TestJoinOtherBoardLeavesPrevious(t *testing.T) {
	h := startHub(t, Config{})
	first, second := uuid.New(), uuid.New()
	alice, bob := uuid.New(), uuid.New()

	fb := newFakeConn()
	b := h.Register(fb, bob)
	h.Join(b, first, bob)
	nextEvent(t, fb)

	fa := newFakeConn()
	a := h.Register(fa, alice)
	h.Join(a, first, alice)
	nextEvent(t, fb) // user-joined
	nextEvent(t, fa)

	h.Join(a, second, alice)
	if evt := nextEvent(t, fb); evt.Type != events.UserLeft {
		t.Errorf("got %s, want user-left", evt.Type)
	}
	if h.CurrentBoard(a) != second {
		t.Error("client should be on the second board")
	}
	if h.ActiveBoards() != 2 {
		t.Errorf("active boards = %d", h.ActiveBoards())
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h := startHub(t, Config{SendBuffer: 1})
	board, alice, bob := uuid.New(), uuid.New(), uuid.New()

	slow := newFakeConn()
	slow.block = true
	s := h.Register(slow, alice)
	fb := newFakeConn()
	b := h.Register(fb, bob)
	h.Join(b, board, bob)
	nextEvent(t, fb)
	h.Join(s, board, alice)
	nextEvent(t, fb) // user-joined(alice)

	for i := 0; i < 5; i++ {
		h.Broadcast(taskEvent(t, board, bob))
	}

	if !slow.isClosed(t) {
		t.Fatal("slow connection should be closed")
	}
	if h.Connections() != 1 {
		t.Errorf("connections = %d, want 1", h.Connections())
	}
	if evt := nextEvent(t, fb); evt.Type != events.UserLeft {
		t.Errorf("bob got %s, want user-left(alice)", evt.Type)
	}
}

func TestTypingRelay(t *testing.T) {
	h := startHub(t, Config{})
	board, alice, bob := uuid.New(), uuid.New(), uuid.New()
	fa, fb := newFakeConn(), newFakeConn()
	a, b := h.Register(fa, alice), h.Register(fb, bob)
	h.Join(a, board, alice)
	nextEvent(t, fa)
	h.Join(b, board, bob)
	nextEvent(t, fa)
	nextEvent(t, fb)

	task := uuid.New()
	h.HandleMessage(context.Background(), a, []byte(`{"type":"start-typing","taskId":"`+task.String()+`"}`), nil)
	evt := nextEvent(t, fb)
	if evt.Type != events.UserTyping {
		t.Fatalf("got %s, want user-typing", evt.Type)
	}
	if p := evt.Body.(*events.TypingPayload); p.TaskID != task || p.UserID != alice {
		t.Errorf("payload = %+v", p)
	}
	expectQuiet(t, h, a, fa)

	h.HandleMessage(context.Background(), a, []byte(`{"type":"stop-typing","taskId":"`+task.String()+`"}`), nil)
	if evt := nextEvent(t, fb); evt.Type != events.UserStoppedTyping {
		t.Errorf("got %s, want user-stopped-typing", evt.Type)
	}
}

func TestHandleMessageReplies(t *testing.T) {
	h := startHub(t, Config{})
	board := uuid.New()

	tests := []struct {
		name      string
		msg       string
		checker   BoardChecker
		wantType  string
		wantError string
	}{
		{"ping", `{"type":"ping"}`, nil, MsgPong, ""},
		{"malformed", `{not json`, nil, MsgError, "malformed message"},
		{"mutation rejected", `{"type":"task-moved","boardId":"` + board.String() + `"}`, nil, MsgError, "mutations must be sent through the API"},
		{"unknown", `{"type":"dance"}`, nil, MsgError, "unknown message type"},
		{"join without board", `{"type":"join-board"}`, nil, MsgError, "boardId is required"},
		{"join without user", `{"type":"join-board","boardId":"` + board.String() + `"}`, nil, MsgError, "userId is required"},
		{"join unknown board", `{"type":"join-board","boardId":"` + board.String() + `","userId":"` + uuid.NewString() + `"}`,
			func(context.Context, uuid.UUID) bool { return false }, MsgError, "board not found"},
		{"typing without task", `{"type":"start-typing"}`, nil, MsgError, "taskId is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeConn()
			c := h.Register(fc, uuid.Nil)
			defer h.Unregister(c)

			h.HandleMessage(context.Background(), c, []byte(tt.msg), tt.checker)
			r := nextReply(t, fc)
			if r.Type != tt.wantType || r.Message != tt.wantError {
				t.Errorf("reply = %+v, want %s %q", r, tt.wantType, tt.wantError)
			}
		})
	}
}

func TestJoinWithUserFromMessage(t *testing.T) {
	h := startHub(t, Config{})
	board, user := uuid.New(), uuid.New()
	fc := newFakeConn()
	c := h.Register(fc, uuid.Nil)

	h.HandleMessage(context.Background(), c, []byte(`{"type":"join-board","boardId":"`+board.String()+`","userId":"`+user.String()+`"}`), nil)
	if evt := nextEvent(t, fc); evt.Type != events.BoardUsers {
		t.Fatalf("got %s, want board-users", evt.Type)
	}
	if h.UserOf(c) != user {
		t.Errorf("user = %s, want %s", h.UserOf(c), user)
	}

	h.HandleMessage(context.Background(), c, []byte(`{"type":"leave-board"}`), nil)
	if h.ActiveBoards() != 0 {
		t.Errorf("active boards = %d after leave", h.ActiveBoards())
	}
}

func TestPingAllAndShutdown(t *testing.T) {
	h := NewHub(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	fc := newFakeConn()
	h.Register(fc, uuid.New())
	h.PingAll()
	if fr := next(t, fc); fr.kind != websocket.PingMessage {
		t.Errorf("frame kind = %d, want ping", fr.kind)
	}

	cancel()
	<-done
	if !fc.isClosed(t) {
		t.Error("connections should be closed on shutdown")
	}

	// calls after shutdown must not block
	h.Broadcast(taskEvent(t, uuid.New(), uuid.New()))
	late := newFakeConn()
	h.Register(late, uuid.New())
	if !late.isClosed(t) {
		t.Error("register after shutdown should close the connection")
	}
}
