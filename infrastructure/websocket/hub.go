package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"taskboard/domain/events"
	"taskboard/pkg/logger"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Config struct {
	SendBuffer int           // ข้อความค้างต่อ connection; เต็มแล้วตัดทิ้ง
	WriteWait  time.Duration // 0 = ไม่ตั้ง deadline
}

// Client หนึ่ง websocket connection
type Client struct {
	ID uuid.UUID

	userID  uuid.UUID // owned by the hub loop
	conn    Conn
	hub     *Hub
	send    chan frame
	boardID uuid.UUID // owned by the hub loop
	closed  bool      // owned by the hub loop
}

type frame struct {
	kind int
	data []byte
}

type joinRequest struct {
	client  *Client
	boardID uuid.UUID
	userID  uuid.UUID
	done    chan struct{}
}

type clientRequest struct {
	client *Client
	done   chan struct{}
}

type broadcastRequest struct {
	env  *events.Envelope
	done chan struct{}
}

type directRequest struct {
	client *Client
	data   []byte
	done   chan struct{}
}

type typingRequest struct {
	client *Client
	kind   events.Type
	taskID uuid.UUID
	done   chan struct{}
}

// Hub owns rooms and presence on a single goroutine. Exported methods are
// synchronous: they return after the loop has applied the request.
type Hub struct {
	cfg Config

	mu       sync.RWMutex // guards the maps below for snapshot readers
	clients  map[*Client]bool
	rooms    map[uuid.UUID]map[*Client]bool
	presence *presence

	register   chan clientRequest
	unregister chan clientRequest
	join       chan joinRequest
	leave      chan clientRequest
	broadcast  chan broadcastRequest
	direct     chan directRequest
	typing     chan typingRequest
	ping       chan chan struct{}

	stopped  chan struct{}
	stopOnce sync.Once
}

func NewHub(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return &Hub{
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		presence:   newPresence(),
		register:   make(chan clientRequest),
		unregister: make(chan clientRequest),
		join:       make(chan joinRequest),
		leave:      make(chan clientRequest),
		broadcast:  make(chan broadcastRequest),
		direct:     make(chan directRequest),
		typing:     make(chan typingRequest),
		ping:       make(chan chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run processes requests until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	log := logger.Named("hub")
	log.Info("Hub started", "send_buffer", h.cfg.SendBuffer)
	defer func() {
		h.stopOnce.Do(func() { close(h.stopped) })
		h.shutdown()
		log.Info("Hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-h.register:
			h.mu.Lock()
			h.clients[req.client] = true
			h.mu.Unlock()
			go req.client.writePump(h.cfg.WriteWait)
			log.Debug("Client connected", "client_id", req.client.ID, "user_id", req.client.userID)
			close(req.done)

		case req := <-h.unregister:
			h.removeClient(req.client)
			close(req.done)

		case req := <-h.join:
			h.joinBoard(req.client, req.boardID, req.userID)
			close(req.done)

		case req := <-h.leave:
			h.leaveBoard(req.client)
			close(req.done)

		case req := <-h.broadcast:
			h.fanOut(req.env)
			close(req.done)

		case req := <-h.direct:
			h.enqueue(req.client, frame{kind: websocket.TextMessage, data: req.data})
			close(req.done)

		case req := <-h.typing:
			h.relayTyping(req.client, req.kind, req.taskID)
			close(req.done)

		case done := <-h.ping:
			for _, c := range h.snapshotClients() {
				h.enqueue(c, frame{kind: websocket.PingMessage})
			}
			close(done)
		}
	}
}

// ========== Public API (synchronous) ==========

// Register adds a connection. userID may be uuid.Nil until the client joins a board.
func (h *Hub) Register(conn Conn, userID uuid.UUID) *Client {
	c := &Client{
		ID:     uuid.New(),
		userID: userID,
		conn:   conn,
		hub:    h,
		send:   make(chan frame, h.cfg.SendBuffer),
	}
	done := make(chan struct{})
	if !h.submit(func() bool { return h.trySend(h.register, clientRequest{c, done}) }, done) {
		_ = conn.Close()
	}
	return c
}

func (h *Hub) Unregister(c *Client) {
	done := make(chan struct{})
	h.submit(func() bool { return h.trySend(h.unregister, clientRequest{c, done}) }, done)
}

// Join moves the client into boardID's room, leaving any previous board.
func (h *Hub) Join(c *Client, boardID, userID uuid.UUID) {
	done := make(chan struct{})
	h.submit(func() bool {
		select {
		case h.join <- joinRequest{client: c, boardID: boardID, userID: userID, done: done}:
			return true
		case <-h.stopped:
			return false
		}
	}, done)
}

func (h *Hub) Leave(c *Client) {
	done := make(chan struct{})
	h.submit(func() bool { return h.trySend(h.leave, clientRequest{c, done}) }, done)
}

// Broadcast delivers env to every connection in its board except the
// origin user's own connections.
func (h *Hub) Broadcast(env *events.Envelope) {
	if env == nil {
		return
	}
	done := make(chan struct{})
	h.submit(func() bool {
		select {
		case h.broadcast <- broadcastRequest{env: env, done: done}:
			return true
		case <-h.stopped:
			return false
		}
	}, done)
}

// PublishBoardEvent lets the hub act as a publisher for single-instance setups.
func (h *Hub) PublishBoardEvent(_ context.Context, env *events.Envelope) error {
	h.Broadcast(env)
	return nil
}

// SendTo queues a message for one client only.
func (h *Hub) SendTo(c *Client, data []byte) {
	done := make(chan struct{})
	h.submit(func() bool {
		select {
		case h.direct <- directRequest{client: c, data: data, done: done}:
			return true
		case <-h.stopped:
			return false
		}
	}, done)
}

// Typing relays a typing indicator to the client's current board.
func (h *Hub) Typing(c *Client, kind events.Type, taskID uuid.UUID) {
	done := make(chan struct{})
	h.submit(func() bool {
		select {
		case h.typing <- typingRequest{client: c, kind: kind, taskID: taskID, done: done}:
			return true
		case <-h.stopped:
			return false
		}
	}, done)
}

// PingAll sends a ping frame to every connection (heartbeat job).
func (h *Hub) PingAll() {
	done := make(chan struct{})
	h.submit(func() bool {
		select {
		case h.ping <- done:
			return true
		case <-h.stopped:
			return false
		}
	}, done)
}

// ========== Snapshots ==========

// BoardUsers returns the users currently viewing boardID.
func (h *Hub) BoardUsers(boardID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.presence.users(boardID)
}

// ActiveBoards counts boards with at least one viewer.
func (h *Hub) ActiveBoards() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.presence.boards()
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomConnections(boardID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[boardID])
}

// UserOf returns the user the connection acts for, or uuid.Nil.
func (h *Hub) UserOf(c *Client) uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.userID
}

// CurrentBoard returns the board the client has joined, or uuid.Nil.
func (h *Hub) CurrentBoard(c *Client) uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.boardID
}

// ========== Loop internals ==========

func (h *Hub) trySend(ch chan clientRequest, req clientRequest) bool {
	select {
	case ch <- req:
		return true
	case <-h.stopped:
		return false
	}
}

// submit runs send and waits for the loop to finish the request.
func (h *Hub) submit(send func() bool, done chan struct{}) bool {
	if !send() {
		return false
	}
	select {
	case <-done:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) snapshotClients() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) roomMembers(boardID uuid.UUID) []*Client {
	room := h.rooms[boardID]
	out := make([]*Client, 0, len(room))
	for c := range room {
		out = append(out, c)
	}
	return out
}

func (h *Hub) joinBoard(c *Client, boardID, userID uuid.UUID) {
	if c.closed || !h.clients[c] {
		return
	}
	if c.boardID == boardID && (userID == uuid.Nil || userID == c.userID) {
		h.sendBoardUsers(c)
		return
	}
	h.leaveBoard(c)

	h.mu.Lock()
	if userID != uuid.Nil {
		c.userID = userID
	}
	c.boardID = boardID
	if h.rooms[boardID] == nil {
		h.rooms[boardID] = make(map[*Client]bool)
	}
	h.rooms[boardID][c] = true
	first := h.presence.add(boardID, c.userID)
	h.mu.Unlock()

	logger.Named("hub").Info("User joined board", "user_id", c.userID, "board_id", boardID, "first_connection", first)

	// user-joined เฉพาะ connection แรกของ user บน board นี้
	if first {
		h.emitPresence(events.UserJoined, boardID, c.userID)
	}
	h.sendBoardUsers(c)
}

func (h *Hub) leaveBoard(c *Client) {
	boardID := c.boardID
	if boardID == uuid.Nil {
		return
	}

	h.mu.Lock()
	if room := h.rooms[boardID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, boardID)
		}
	}
	c.boardID = uuid.Nil
	last := h.presence.remove(boardID, c.userID)
	h.mu.Unlock()

	logger.Named("hub").Info("User left board", "user_id", c.userID, "board_id", boardID, "last_connection", last)

	if last {
		h.emitPresence(events.UserLeft, boardID, c.userID)
	}
}

func (h *Hub) removeClient(c *Client) {
	if c.closed || !h.clients[c] {
		return
	}
	h.leaveBoard(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.closed = true
	close(c.send) // writePump drains and closes the conn
	logger.Named("hub").Debug("Client disconnected", "client_id", c.ID, "user_id", c.userID)
}

func (h *Hub) emitPresence(t events.Type, boardID, userID uuid.UUID) {
	env, err := events.New(t, boardID, userID, &events.PresencePayload{UserID: userID})
	if err != nil {
		logger.Named("hub").Error("Failed to build presence event", "type", t, "error", err)
		return
	}
	h.fanOut(env)
}

func (h *Hub) sendBoardUsers(c *Client) {
	h.mu.RLock()
	users := h.presence.users(c.boardID)
	h.mu.RUnlock()

	env, err := events.New(events.BoardUsers, c.boardID, uuid.Nil, &events.BoardUsersPayload{UserIDs: users})
	if err != nil {
		logger.Named("hub").Error("Failed to build board-users snapshot", "error", err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		return
	}
	h.enqueue(c, frame{kind: websocket.TextMessage, data: data})
}

func (h *Hub) relayTyping(c *Client, kind events.Type, taskID uuid.UUID) {
	if c.closed || c.boardID == uuid.Nil {
		return
	}
	env, err := events.New(kind, c.boardID, c.userID, &events.TypingPayload{TaskID: taskID, UserID: c.userID})
	if err != nil {
		logger.Named("hub").Warn("Dropping typing indicator", "error", err)
		return
	}
	h.fanOut(env)
}

// fanOut encodes once and queues the frame for every room member that is
// not the origin user.
func (h *Hub) fanOut(env *events.Envelope) {
	members := h.roomMembers(env.BoardID)
	if len(members) == 0 {
		return
	}
	data, err := env.Encode()
	if err != nil {
		logger.Named("hub").Error("Failed to encode board event", "type", env.Type, "error", err)
		return
	}
	for _, c := range members {
		if env.UserID != uuid.Nil && c.userID == env.UserID {
			continue
		}
		h.enqueue(c, frame{kind: websocket.TextMessage, data: data})
	}
}

// enqueue never blocks the loop: a client whose buffer is full is dropped.
func (h *Hub) enqueue(c *Client, f frame) {
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
		logger.Named("hub").Warn("Dropping slow client", "client_id", c.ID, "user_id", c.userID, "board_id", c.boardID)
		h.removeClient(c)
		// ปลด writer ที่ค้างอยู่กับ connection ที่ช้า
		go c.conn.Close()
	}
}

func (h *Hub) shutdown() {
	for _, c := range h.snapshotClients() {
		h.mu.Lock()
		delete(h.clients, c)
		if c.boardID != uuid.Nil {
			if room := h.rooms[c.boardID]; room != nil {
				delete(room, c)
			}
			h.presence.remove(c.boardID, c.userID)
			c.boardID = uuid.Nil
		}
		h.mu.Unlock()
		if !c.closed {
			c.closed = true
			close(c.send)
		}
	}
}

// writePump เขียน frame ตามลำดับ (FIFO) จนกว่า send จะถูกปิด
func (c *Client) writePump(writeWait time.Duration) {
	defer c.conn.Close()
	failed := false
	for f := range c.send {
		if failed {
			continue
		}
		if writeWait > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		}
		if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
			logger.Named("hub").Debug("Write failed, closing client", "client_id", c.ID, "error", err)
			failed = true
			go c.hub.Unregister(c)
		}
	}
}
