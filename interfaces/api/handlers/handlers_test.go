package handlers_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskboard/application/serviceimpl"
	"taskboard/domain/dto"
	"taskboard/infrastructure/messaging"
	"taskboard/infrastructure/postgres"
	"taskboard/interfaces/api/handlers"
	"taskboard/interfaces/api/middleware"
	"taskboard/interfaces/api/routes"
	"taskboard/pkg/utils"
)

const testSecret = "test-secret"

type fakePresence struct {
	users map[uuid.UUID][]uuid.UUID
	conns int
}

func (p *fakePresence) BoardUsers(boardID uuid.UUID) []uuid.UUID { return p.users[boardID] }
func (p *fakePresence) ActiveBoards() int                        { return len(p.users) }
func (p *fakePresence) Connections() int                         { return p.conns }

type api struct {
	app      *fiber.App
	presence *fakePresence
}

func newAPI(t *testing.T) *api {
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
	presence := &fakePresence{users: map[uuid.UUID][]uuid.UUID{}}

	h := handlers.NewHandlers(&handlers.Services{
		UserService:   serviceimpl.NewUserService(userRepo),
		BoardService:  serviceimpl.NewBoardService(tx, boardRepo, columnRepo, taskRepo, userRepo, bus),
		ColumnService: serviceimpl.NewColumnService(tx, columnRepo, boardRepo, taskRepo, bus),
		TaskService:   serviceimpl.NewTaskService(tx, taskRepo, columnRepo, boardRepo, userRepo, bus),
		Presence:      presence,
		ServiceName:   "taskboard",
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
	})
	routes.SetupRoutes(app, h, nil, testSecret)
	return &api{app: app, presence: presence}
}

func (a *api) do(t *testing.T, method, path string, userID uuid.UUID, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req.Header.Set(middleware.UserIDHeader, userID.String())
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) utils.Envelope[T] {
	t.Helper()
	var env utils.Envelope[T]
	if err := sonic.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

// seed creates one user and one board with the default columns.
func (a *api) seed(t *testing.T) (dto.UserResponse, dto.BoardResponse) {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/v1/users", uuid.Nil, dto.CreateUserRequest{Name: "Grace", Email: "grace@example.com"})
	if status != http.StatusCreated {
		t.Fatalf("create user: %d %s", status, body)
	}
	user := decode[dto.UserResponse](t, body).Data

	status, body = a.do(t, http.MethodPost, "/api/v1/boards", user.ID, dto.CreateBoardRequest{Title: "Roadmap"})
	if status != http.StatusCreated {
		t.Fatalf("create board: %d %s", status, body)
	}
	return user, decode[dto.BoardResponse](t, body).Data
}

func (a *api) createTask(t *testing.T, user uuid.UUID, board dto.BoardResponse, column int, title string) dto.TaskResponse {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/v1/tasks", user, dto.CreateTaskRequest{
		Title:    title,
		BoardID:  board.ID,
		ColumnID: board.Columns[column].ID,
	})
	if status != http.StatusCreated {
		t.Fatalf("create task %q: %d %s", title, status, body)
	}
	return decode[dto.TaskResponse](t, body).Data
}

func TestMutationsRequireIdentity(t *testing.T) {
	a := newAPI(t)
	_, board := a.seed(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"create task", http.MethodPost, "/api/v1/tasks", dto.CreateTaskRequest{Title: "x", BoardID: board.ID, ColumnID: board.Columns[0].ID}},
		{"create board", http.MethodPost, "/api/v1/boards", dto.CreateBoardRequest{Title: "x"}},
		{"delete board", http.MethodDelete, "/api/v1/boards/" + board.ID.String(), nil},
		{"create column", http.MethodPost, "/api/v1/boards/" + board.ID.String() + "/columns", dto.CreateColumnRequest{Title: "x"}},
		{"delete column", http.MethodDelete, "/api/v1/columns/" + board.Columns[0].ID.String(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(t, tt.method, tt.path, uuid.Nil, tt.body)
			if status != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401 (%s)", status, body)
			}
			if env := decode[any](t, body); env.Error == nil || env.Error.Code != utils.ErrCodeUnauthorized {
				t.Fatalf("error = %+v", env.Error)
			}
		})
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	a := newAPI(t)
	user, board := a.seed(t)

	valid, err := utils.GenerateToken(user.ID, user.Name, user.Email, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	expired, err := utils.GenerateToken(user.ID, user.Name, user.Email, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	forged, err := utils.GenerateToken(user.ID, user.Name, user.Email, "other-secret", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	raw, _ := sonic.Marshal(dto.CreateColumnRequest{Title: "QA"})
	for _, tc := range []struct {
		name string
		auth string
		want int
	}{
		{"valid", "Bearer " + valid, http.StatusCreated},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized},
		{"wrong scheme", "Token " + valid, http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/boards/"+board.ID.String()+"/columns", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", tc.auth)
			resp, err := a.app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestCreateTaskValidation(t *testing.T) {
	a := newAPI(t)
	user, board := a.seed(t)

	status, body := a.do(t, http.MethodPost, "/api/v1/boards", user.ID, dto.CreateBoardRequest{Title: "Other"})
	if status != http.StatusCreated {
		t.Fatalf("create board: %d %s", status, body)
	}
	other := decode[dto.BoardResponse](t, body).Data

	tests := []struct {
		name      string
		req       dto.CreateTaskRequest
		wantField string
	}{
		{"empty title", dto.CreateTaskRequest{BoardID: board.ID, ColumnID: board.Columns[0].ID}, "title"},
		{"bad priority", dto.CreateTaskRequest{Title: "x", BoardID: board.ID, ColumnID: board.Columns[0].ID, Priority: "someday"}, "priority"},
		{"column from another board", dto.CreateTaskRequest{Title: "x", BoardID: board.ID, ColumnID: other.Columns[0].ID}, "columnId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(t, http.MethodPost, "/api/v1/tasks", user.ID, tt.req)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", status, body)
			}
			env := decode[any](t, body)
			if env.Error == nil || env.Error.Code != utils.ErrCodeValidation {
				t.Fatalf("error = %+v", env.Error)
			}
			details, ok := env.Error.Details.([]any)
			if !ok || len(details) == 0 {
				t.Fatalf("details = %#v", env.Error.Details)
			}
			first, _ := details[0].(map[string]any)
			if first["field"] != tt.wantField {
				t.Fatalf("field = %v, want %s", first["field"], tt.wantField)
			}
		})
	}
}

func TestMoveTaskEndpoint(t *testing.T) {
	a := newAPI(t)
	user, board := a.seed(t)

	taskA := a.createTask(t, user.ID, board, 0, "A")
	taskB := a.createTask(t, user.ID, board, 0, "B")
	a.createTask(t, user.ID, board, 1, "C")

	status, body := a.do(t, http.MethodPut, "/api/v1/tasks/"+taskA.ID.String()+"/move", user.ID, dto.MoveTaskRequest{
		SourceColumnID: board.Columns[0].ID,
		DestColumnID:   board.Columns[1].ID,
		SourceIndex:    0,
		DestIndex:      0,
	})
	if status != http.StatusOK {
		t.Fatalf("move: %d %s", status, body)
	}
	res := decode[dto.MoveTaskResponse](t, body).Data

	if res.Task.ID != taskA.ID || res.Task.ColumnID != board.Columns[1].ID || res.Task.Order != 0 {
		t.Fatalf("moved task = %+v", res.Task)
	}
	got := map[string]int{}
	for _, tk := range res.AffectedTasks {
		got[tk.Title] = tk.Order
	}
	want := map[string]int{"B": 0, "A": 0, "C": 1}
	if len(got) != len(want) {
		t.Fatalf("affected = %v", got)
	}
	for title, order := range want {
		if got[title] != order {
			t.Fatalf("affected %s order = %d, want %d (all %v)", title, got[title], order, got)
		}
	}

	status, body = a.do(t, http.MethodGet, "/api/v1/tasks/"+taskB.ID.String(), uuid.Nil, nil)
	if status != http.StatusOK {
		t.Fatalf("get: %d %s", status, body)
	}
	if b := decode[dto.TaskResponse](t, body).Data; b.Order != 0 {
		t.Fatalf("B order = %d, want 0", b.Order)
	}
}

func TestNotFoundAndBadIDs(t *testing.T) {
	a := newAPI(t)
	user, board := a.seed(t)
	missing := uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"get task", http.MethodGet, "/api/v1/tasks/" + missing, nil, http.StatusNotFound},
		{"move task", http.MethodPut, "/api/v1/tasks/" + missing + "/move", dto.MoveTaskRequest{SourceColumnID: board.Columns[0].ID, DestColumnID: board.Columns[0].ID}, http.StatusNotFound},
		{"delete task", http.MethodDelete, "/api/v1/tasks/" + missing, nil, http.StatusNotFound},
		{"board tasks", http.MethodGet, "/api/v1/boards/" + missing + "/tasks", nil, http.StatusNotFound},
		{"create column", http.MethodPost, "/api/v1/boards/" + missing + "/columns", dto.CreateColumnRequest{Title: "x"}, http.StatusNotFound},
		{"update column", http.MethodPut, "/api/v1/columns/" + missing, dto.UpdateColumnRequest{}, http.StatusNotFound},
		{"bad task id", http.MethodGet, "/api/v1/tasks/not-a-uuid", nil, http.StatusBadRequest},
		{"bad board id", http.MethodGet, "/api/v1/boards/42", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(t, tt.method, tt.path, user.ID, tt.body)
			if status != tt.want {
				t.Fatalf("status = %d, want %d (%s)", status, tt.want, body)
			}
		})
	}
}

func TestDeleteTaskReturnsID(t *testing.T) {
	a := newAPI(t)
	user, board := a.seed(t)
	task := a.createTask(t, user.ID, board, 0, "A")
	a.createTask(t, user.ID, board, 0, "B")

	status, body := a.do(t, http.MethodDelete, "/api/v1/tasks/"+task.ID.String(), user.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: %d %s", status, body)
	}
	if got := decode[dto.DeletedResponse](t, body).Data.ID; got != task.ID {
		t.Fatalf("id = %s, want %s", got, task.ID)
	}

	status, body = a.do(t, http.MethodGet, "/api/v1/boards/"+board.ID.String()+"/tasks", uuid.Nil, nil)
	if status != http.StatusOK {
		t.Fatalf("list: %d %s", status, body)
	}
	tasks := decode[[]dto.TaskResponse](t, body).Data
	if len(tasks) != 1 || tasks[0].Title != "B" || tasks[0].Order != 0 {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestCreateUserConflict(t *testing.T) {
	a := newAPI(t)
	a.seed(t)

	status, body := a.do(t, http.MethodPost, "/api/v1/users", uuid.Nil, dto.CreateUserRequest{Name: "Grace 2", Email: "GRACE@example.com"})
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (%s)", status, body)
	}
	if env := decode[any](t, body); env.Error == nil || env.Error.Code != utils.ErrCodeConflict {
		t.Fatalf("error = %+v", env.Error)
	}
}

func TestBoardLifecycle(t *testing.T) {
	a := newAPI(t)
	user, board := a.seed(t)

	if board.Slug != "roadmap" || len(board.Columns) != 3 {
		t.Fatalf("board = %+v", board)
	}

	status, body := a.do(t, http.MethodGet, "/api/v1/boards?mine=true", uuid.Nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("mine without identity: %d %s", status, body)
	}
	status, body = a.do(t, http.MethodGet, "/api/v1/boards?mine=true", user.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("mine: %d %s", status, body)
	}
	if boards := decode[[]dto.BoardResponse](t, body).Data; len(boards) != 1 || boards[0].ID != board.ID {
		t.Fatalf("boards = %+v", boards)
	}

	status, body = a.do(t, http.MethodDelete, "/api/v1/boards/"+board.ID.String(), user.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: %d %s", status, body)
	}
	status, _ = a.do(t, http.MethodGet, "/api/v1/boards/"+board.ID.String(), uuid.Nil, nil)
	if status != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", status)
	}
}

func TestPresenceAndHealth(t *testing.T) {
	a := newAPI(t)
	user, board := a.seed(t)
	a.presence.users[board.ID] = []uuid.UUID{user.ID}
	a.presence.conns = 2

	status, body := a.do(t, http.MethodGet, "/api/v1/boards/"+board.ID.String()+"/presence", uuid.Nil, nil)
	if status != http.StatusOK {
		t.Fatalf("presence: %d %s", status, body)
	}
	p := decode[dto.PresenceResponse](t, body).Data
	if p.BoardID != board.ID || len(p.UserIDs) != 1 || p.UserIDs[0] != user.ID {
		t.Fatalf("presence = %+v", p)
	}

	status, body = a.do(t, http.MethodGet, "/health", uuid.Nil, nil)
	if status != http.StatusOK {
		t.Fatalf("health: %d", status)
	}
	var h dto.HealthResponse
	if err := sonic.Unmarshal(body, &h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "ok" || h.ActiveBoards != 1 || h.Connections != 2 {
		t.Fatalf("health = %+v", h)
	}
}
