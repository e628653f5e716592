package websocket

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"taskboard/domain/services"
	hub "taskboard/infrastructure/websocket"
	"taskboard/pkg/logger"
	"taskboard/pkg/utils"
)

// Config limits for one socket connection
type Config struct {
	ReadLimit    int64
	PingInterval time.Duration // pong ต้องมาภายใน 2 เท่าของค่านี้
}

type WebSocketHandler struct {
	hub          *hub.Hub
	boardService services.BoardService
	jwtSecret    string
	cfg          Config
}

func NewWebSocketHandler(h *hub.Hub, boardService services.BoardService, jwtSecret string, cfg Config) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          h,
		boardService: boardService,
		jwtSecret:    jwtSecret,
		cfg:          cfg,
	}
}

// WebSocketUpgrade rejects plain HTTP and resolves the socket identity from
// the middleware locals, ?token= or ?userId=.
func (h *WebSocketHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	if _, err := utils.GetUserFromContext(c); err == nil {
		return c.Next()
	}

	if token := strings.TrimSpace(c.Query("token")); token != "" {
		user, err := utils.ValidateTokenStringToUUID(token, h.jwtSecret)
		if err != nil {
			logger.WarnContext(c.UserContext(), "WebSocket token rejected", "error", err)
			return utils.UnauthorizedResponse(c, "Invalid token")
		}
		c.Locals(utils.UserLocalsKey, user)
		return c.Next()
	}

	if raw := strings.TrimSpace(c.Query("userId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			return utils.BadRequestResponse(c, "Invalid userId")
		}
		c.Locals(utils.UserLocalsKey, &utils.UserContext{ID: id})
	}
	return c.Next()
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	log := logger.Named("websocket")

	// anonymous ได้ แต่ต้องส่ง userId มากับ join-board
	userID := uuid.Nil
	if user, ok := c.Locals(utils.UserLocalsKey).(*utils.UserContext); ok && user != nil {
		userID = user.ID
	}

	client := h.hub.Register(c, userID)
	log.Debug("WebSocket connected", "client_id", client.ID, "user_id", userID)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.hub.Unregister(client)
		log.Debug("WebSocket disconnected", "client_id", client.ID)
	}()

	if h.cfg.ReadLimit > 0 {
		c.SetReadLimit(h.cfg.ReadLimit)
	}
	if h.cfg.PingInterval > 0 {
		pongWait := 2 * h.cfg.PingInterval
		_ = c.SetReadDeadline(time.Now().Add(pongWait))
		c.SetPongHandler(func(string) error {
			return c.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read error", "client_id", client.ID, "error", err)
			}
			return
		}
		if h.cfg.PingInterval > 0 {
			_ = c.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.hub.HandleMessage(ctx, client, message, h.boardExists)
	}
}

func (h *WebSocketHandler) boardExists(ctx context.Context, boardID uuid.UUID) bool {
	if h.boardService == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := h.boardService.GetBoard(ctx, boardID)
	return err == nil
}
