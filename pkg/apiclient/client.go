// Package apiclient talks to the task board API: JSON RPC over fasthttp and
// the realtime socket over fasthttp/websocket.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"taskboard/domain/dto"
	"taskboard/pkg/logger"
	"taskboard/pkg/replica"
	"taskboard/pkg/utils"
)

const (
	defaultTimeout = 10 * time.Second
	apiPrefix      = "/api/v1"
	userIDHeader   = "X-User-ID"
)

// ErrNetwork wraps every failure to reach the server or read its answer.
var ErrNetwork = errors.New("network error")

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == fasthttp.StatusNotFound
}

type Config struct {
	BaseURL string        // e.g. http://localhost:8080
	Token   string        // Bearer JWT; wins over UserID
	UserID  uuid.UUID     // sent as X-User-ID when there is no token
	Timeout time.Duration // per request when ctx has no deadline

	// Dial replaces the TCP dialer for both RPC and socket (tests dial in memory).
	Dial fasthttp.DialFunc
}

type Client struct {
	base    string
	token   string
	userID  uuid.UUID
	timeout time.Duration
	http    *fasthttp.Client
	dial    fasthttp.DialFunc
	log     *slog.Logger
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	httpClient := &fasthttp.Client{
		Name:                "boardctl",
		MaxConnsPerHost:     16,
		MaxIdleConnDuration: 30 * time.Second,
		Dial:                cfg.Dial,
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		base:    base,
		token:   cfg.Token,
		userID:  cfg.UserID,
		timeout: timeout,
		http:    httpClient,
		dial:    cfg.Dial,
		log:     logger.Named("apiclient"),
	}, nil
}

func (c *Client) BaseURL() string { return c.base }

// do sends one request and decodes the data field of the envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + apiPrefix + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	} else if c.userID != uuid.Nil {
		req.Header.Set(userIDHeader, c.userID.String())
	}
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	start := time.Now()
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		c.log.WarnContext(ctx, "Request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}

	status := resp.StatusCode()
	c.log.DebugContext(ctx, "Request done",
		"method", method,
		"path", path,
		"status", status,
		"duration", time.Since(start),
	)

	if status < 200 || status >= 300 {
		return decodeError(status, resp.Body())
	}
	if out == nil {
		return nil
	}

	var env utils.Envelope[json.RawMessage]
	if err := sonic.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrNetwork, method, path, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrNetwork, method, path, err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	apiErr := &Error{Status: status, Message: fasthttp.StatusMessage(status)}
	var env utils.Response
	if err := sonic.Unmarshal(body, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		if env.Error.Message != "" {
			apiErr.Message = env.Error.Message
		}
	}
	return apiErr
}

// ========== Users ==========

func (c *Client) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	var user dto.UserResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	var users []dto.UserResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ========== Boards ==========

// ListBoards returns every board, or only the caller's when mine is set.
func (c *Client) ListBoards(ctx context.Context, mine bool) ([]dto.BoardResponse, error) {
	path := "/boards"
	if mine {
		path += "?mine=true"
	}
	var boards []dto.BoardResponse
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) GetBoard(ctx context.Context, id uuid.UUID) (*dto.BoardResponse, error) {
	var board dto.BoardResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/boards/"+id.String(), nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) CreateBoard(ctx context.Context, req *dto.CreateBoardRequest) (*dto.BoardResponse, error) {
	var board dto.BoardResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/boards", req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

func (c *Client) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, fasthttp.MethodDelete, "/boards/"+id.String(), nil, nil)
}

// BoardTasks returns every task of the board.
func (c *Client) BoardTasks(ctx context.Context, boardID uuid.UUID) ([]dto.TaskResponse, error) {
	var tasks []dto.TaskResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/boards/"+boardID.String()+"/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) Presence(ctx context.Context, boardID uuid.UUID) (*dto.PresenceResponse, error) {
	var p dto.PresenceResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/boards/"+boardID.String()+"/presence", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateColumn(ctx context.Context, boardID uuid.UUID, req *dto.CreateColumnRequest) (*dto.ColumnResponse, error) {
	var col dto.ColumnResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/boards/"+boardID.String()+"/columns", req, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

// ========== Tasks ==========

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*dto.TaskResponse, error) {
	var task dto.TaskResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/tasks/"+id.String(), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	var task dto.TaskResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	var task dto.TaskResponse
	if err := c.do(ctx, fasthttp.MethodPut, "/tasks/"+id.String(), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	var res dto.DeletedResponse
	return c.do(ctx, fasthttp.MethodDelete, "/tasks/"+id.String(), nil, &res)
}

func (c *Client) MoveTask(ctx context.Context, id uuid.UUID, req *dto.MoveTaskRequest) (*dto.MoveTaskResponse, error) {
	var res dto.MoveTaskResponse
	if err := c.do(ctx, fasthttp.MethodPut, "/tasks/"+id.String()+"/move", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

var _ replica.API = (*Client)(nil)

// LoadReplica fetches the board and its tasks and loads them into store.
func (c *Client) LoadReplica(ctx context.Context, boardID uuid.UUID, store *replica.Store) error {
	board, err := c.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	tasks, err := c.BoardTasks(ctx, boardID)
	if err != nil {
		return err
	}
	store.Load(*board, tasks)
	return nil
}
