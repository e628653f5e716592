package apiclient_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp/fasthttputil"

	"taskboard/application/serviceimpl"
	"taskboard/domain/dto"
	"taskboard/domain/events"
	"taskboard/infrastructure/messaging"
	"taskboard/infrastructure/postgres"
	hub "taskboard/infrastructure/websocket"
	"taskboard/interfaces/api/handlers"
	"taskboard/interfaces/api/middleware"
	"taskboard/interfaces/api/routes"
	websocketHandler "taskboard/interfaces/api/websocket"
	"taskboard/pkg/apiclient"
	"taskboard/pkg/replica"
	"taskboard/pkg/utils"
)

const testSecret = "client-test-secret"

type server struct {
	ln *fasthttputil.InmemoryListener
}

// newServer runs the full API and socket stack on an in-memory listener.
func newServer(t *testing.T) *server {
	t.Helper()
	db, err := postgres.NewDatabase(postgres.DatabaseConfig{Driver: postgres.DriverSQLite, SQLitePath: ":memory:", LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := postgres.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tx := postgres.NewTransactor(db)
	taskRepo := postgres.NewTaskRepository(db)
	columnRepo := postgres.NewColumnRepository(db)
	boardRepo := postgres.NewBoardRepository(db)
	userRepo := postgres.NewUserRepository(db)
	bus := messaging.NewLocalBus()

	h := hub.NewHub(hub.Config{SendBuffer: 32, WriteWait: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	broadcaster := hub.NewBoardBroadcaster(bus, h)
	if err := broadcaster.Start(); err != nil {
		t.Fatalf("start broadcaster: %v", err)
	}

	boardService := serviceimpl.NewBoardService(tx, boardRepo, columnRepo, taskRepo, userRepo, bus)
	hs := handlers.NewHandlers(&handlers.Services{
		UserService:   serviceimpl.NewUserService(userRepo),
		BoardService:  boardService,
		ColumnService: serviceimpl.NewColumnService(tx, columnRepo, boardRepo, taskRepo, bus),
		TaskService:   serviceimpl.NewTaskService(tx, taskRepo, columnRepo, boardRepo, userRepo, bus),
		Presence:      h,
		ServiceName:   "taskboard",
	})
	ws := websocketHandler.NewWebSocketHandler(h, boardService, testSecret, websocketHandler.Config{})

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
	})
	routes.SetupRoutes(app, hs, ws, testSecret)

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = broadcaster.Stop()
		cancel()
	})
	return &server{ln: ln}
}

func (s *server) client(t *testing.T, cfg apiclient.Config) *apiclient.Client {
	t.Helper()
	cfg.BaseURL = "http://board.test"
	cfg.Dial = func(string) (net.Conn, error) { return s.ln.Dial() }
	c, err := apiclient.New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

// seed creates a user and a board owned by that user.
func (s *server) seed(t *testing.T, name, email string) (*apiclient.Client, dto.UserResponse, dto.BoardResponse) {
	t.Helper()
	ctx := context.Background()
	user, err := s.client(t, apiclient.Config{}).CreateUser(ctx, &dto.CreateUserRequest{Name: name, Email: email})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	c := s.client(t, apiclient.Config{UserID: user.ID})
	board, err := c.CreateBoard(ctx, &dto.CreateBoardRequest{Title: "Launch"})
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	return c, *user, *board
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "board.test", "ftp://board.test"} {
		if _, err := apiclient.New(apiclient.Config{BaseURL: raw}); err == nil {
			t.Errorf("%q accepted", raw)
		}
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c, _, board := s.seed(t, "Ada", "ada@example.com")
	col := board.Columns[0].ID

	tasks, err := c.BoardTasks(ctx, board.ID)
	if err != nil || len(tasks) != 0 {
		t.Fatalf("tasks = %v, %v", tasks, err)
	}

	a, err := c.CreateTask(ctx, &dto.CreateTaskRequest{Title: "A", BoardID: board.ID, ColumnID: col})
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	b, err := c.CreateTask(ctx, &dto.CreateTaskRequest{Title: "B", BoardID: board.ID, ColumnID: col, Priority: "high"})
	if err != nil {
		t.Fatalf("create B: %v", err)
	}
	if a.Order != 0 || b.Order != 1 {
		t.Fatalf("orders = %d, %d", a.Order, b.Order)
	}

	res, err := c.MoveTask(ctx, b.ID, &dto.MoveTaskRequest{SourceColumnID: col, DestColumnID: col, SourceIndex: 1, DestIndex: 0})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.Task.Order != 0 || len(res.AffectedTasks) != 2 || res.AffectedTasks[0].ID != b.ID {
		t.Fatalf("move result = %+v", res)
	}

	title := "B2"
	updated, err := c.UpdateTask(ctx, b.ID, &dto.UpdateTaskRequest{Title: &title})
	if err != nil || updated.Title != "B2" {
		t.Fatalf("update = %+v, %v", updated, err)
	}

	if err := c.DeleteTask(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.GetTask(ctx, a.ID); !apiclient.IsNotFound(err) {
		t.Fatalf("get deleted = %v, want not found", err)
	}
}

func TestAPIErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c, _, board := s.seed(t, "Ada", "ada@example.com")

	_, err := c.CreateTask(ctx, &dto.CreateTaskRequest{Title: "", BoardID: board.ID, ColumnID: board.Columns[0].ID})
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) || apiErr.Status != fiber.StatusBadRequest || apiErr.Code != utils.ErrCodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}

	anon := s.client(t, apiclient.Config{})
	_, err = anon.CreateBoard(ctx, &dto.CreateBoardRequest{Title: "x"})
	if !errors.As(err, &apiErr) || apiErr.Status != fiber.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}

	if _, err := c.GetBoard(ctx, uuid.New()); !apiclient.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestNetworkError(t *testing.T) {
	c, err := apiclient.New(apiclient.Config{
		BaseURL: "http://board.test",
		Dial:    func(string) (net.Conn, error) { return nil, errors.New("connection refused") },
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.ListBoards(context.Background(), false); !errors.Is(err, apiclient.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if _, err := c.Dial(context.Background()); !errors.Is(err, apiclient.ErrNetwork) {
		t.Fatalf("dial err = %v, want ErrNetwork", err)
	}
}

func TestMutatorConvergesWithServer(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	c, user, board := s.seed(t, "Ada", "ada@example.com")
	todo, doing := board.Columns[0].ID, board.Columns[1].ID

	for _, title := range []string{"A", "B", "C"} {
		if _, err := c.CreateTask(ctx, &dto.CreateTaskRequest{Title: title, BoardID: board.ID, ColumnID: todo}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	store := replica.NewStore(user.ID)
	if err := c.LoadReplica(ctx, board.ID, store); err != nil {
		t.Fatalf("load: %v", err)
	}
	m := replica.NewMutator(store, c, nil)

	b := store.ColumnTasks(todo)[1]
	if _, err := m.MoveTask(ctx, b.ID, doing, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := m.CreateTask(ctx, dto.CreateTaskRequest{Title: "D", ColumnID: doing}); err != nil {
		t.Fatalf("create D: %v", err)
	}

	server, err := c.BoardTasks(ctx, board.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := map[uuid.UUID]dto.TaskResponse{}
	for _, task := range server {
		want[task.ID] = task
	}
	local := store.Tasks()
	if len(local) != len(want) {
		t.Fatalf("local has %d tasks, server %d", len(local), len(want))
	}
	for _, task := range local {
		srv, ok := want[task.ID]
		if !ok || srv.ColumnID != task.ColumnID || srv.Order != task.Order {
			t.Fatalf("task %s diverged: local %d/%s server %d/%s", task.Title, task.Order, task.ColumnID, srv.Order, srv.ColumnID)
		}
	}
}

// nextEvent reads until an event satisfying match arrives.
func nextEvent(t *testing.T, s *apiclient.Socket, match func(*events.Event) bool) *events.Event {
	t.Helper()
	found := make(chan *events.Event, 1)
	failed := make(chan error, 1)
	go func() {
		for {
			evt, err := s.Next()
			if err != nil {
				failed <- err
				return
			}
			if match(evt) {
				found <- evt
				return
			}
		}
	}()
	select {
	case evt := <-found:
		return evt
	case err := <-failed:
		t.Fatalf("socket: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func ofType(types ...events.Type) func(*events.Event) bool {
	return func(e *events.Event) bool {
		for _, typ := range types {
			if e.Type == typ {
				return true
			}
		}
		return false
	}
}

func TestSocketRelaysWithOriginExclusion(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	ada, _, board := s.seed(t, "Ada", "ada@example.com")
	linusUser, err := s.client(t, apiclient.Config{}).CreateUser(ctx, &dto.CreateUserRequest{Name: "Linus", Email: "linus@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	linus := s.client(t, apiclient.Config{UserID: linusUser.ID})
	col := board.Columns[0].ID

	adaSock, err := ada.Dial(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer adaSock.Close()
	if err := adaSock.Join(board.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	nextEvent(t, adaSock, ofType(events.BoardUsers))

	linusSock, err := linus.Dial(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer linusSock.Close()
	if err := linusSock.Join(board.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	snapshot := nextEvent(t, linusSock, ofType(events.BoardUsers))
	if users := snapshot.Body.(*events.BoardUsersPayload).UserIDs; len(users) != 2 {
		t.Fatalf("snapshot = %v", users)
	}
	joined := nextEvent(t, adaSock, ofType(events.UserJoined))
	if joined.Body.(*events.PresencePayload).UserID != linusUser.ID {
		t.Fatalf("joined = %+v", joined.Body)
	}

	first, err := ada.CreateTask(ctx, &dto.CreateTaskRequest{Title: "from ada", BoardID: board.ID, ColumnID: col})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := linus.CreateTask(ctx, &dto.CreateTaskRequest{Title: "from linus", BoardID: board.ID, ColumnID: col})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// ada ไม่ได้รับ event ของตัวเอง: task แรกที่เห็นต้องเป็นของ linus
	got := nextEvent(t, adaSock, ofType(events.TaskCreated))
	if got.Body.(*events.TaskPayload).Task.ID != second.ID || got.UserID != linusUser.ID {
		t.Fatalf("ada received %+v", got.Body)
	}

	store := replica.NewStore(linusUser.ID)
	store.Load(board, nil)
	evt := nextEvent(t, linusSock, ofType(events.TaskCreated))
	if evt.Body.(*events.TaskPayload).Task.ID != first.ID {
		t.Fatalf("linus received %+v", evt.Body)
	}
	if !store.Apply(evt) {
		t.Fatal("event not applied")
	}
	if _, ok := store.Task(first.ID); !ok {
		t.Fatal("task missing after convergence")
	}
}
