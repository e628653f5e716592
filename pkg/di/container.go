package di

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskboard/application/serviceimpl"
	"taskboard/domain/ports"
	"taskboard/domain/repositories"
	"taskboard/domain/services"
	"taskboard/infrastructure/messaging"
	natspkg "taskboard/infrastructure/nats"
	"taskboard/infrastructure/postgres"
	redispkg "taskboard/infrastructure/redis"
	"taskboard/infrastructure/websocket"
	"taskboard/interfaces/api/handlers"
	websocketHandler "taskboard/interfaces/api/websocket"
	"taskboard/pkg/config"
	"taskboard/pkg/logger"
	"taskboard/pkg/scheduler"
)

const (
	jobHeartbeat = "ws-heartbeat"
	jobStats     = "realtime-stats"
)

type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	DB             *gorm.DB
	Transactor     repositories.Transactor
	RedisClient    *redispkg.Client // Redis client สำหรับ cache (optional)
	NATSClient     *natspkg.Client  // NATS connection (optional)
	NATSSubscriber *natspkg.Subscriber
	LocalBus       *messaging.LocalBus // ใช้แทน NATS เมื่อรัน instance เดียว
	EventScheduler scheduler.EventScheduler

	// Repositories
	UserRepository   repositories.UserRepository
	BoardRepository  repositories.BoardRepository
	ColumnRepository repositories.ColumnRepository
	TaskRepository   repositories.TaskRepository

	// Messaging Ports
	BoardCache      ports.BoardCachePort
	EventPublisher  ports.BoardEventPublisherPort
	EventSubscriber ports.BoardEventSubscriberPort

	// Services
	UserService   services.UserService
	BoardService  services.BoardService
	ColumnService services.ColumnService
	TaskService   services.TaskService

	// WebSocket & Broadcasting
	Hub              *websocket.Hub
	BoardBroadcaster *websocket.BoardBroadcaster
	hubCancel        context.CancelFunc
	hubDone          chan struct{}
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Initialize() error {
	if err := c.initConfig(); err != nil {
		return err
	}

	if err := c.initLogger(); err != nil {
		return err
	}

	if err := c.initInfrastructure(); err != nil {
		return err
	}

	if err := c.initRepositories(); err != nil {
		return err
	}

	if err := c.initRealtime(); err != nil {
		return err
	}

	if err := c.initServices(); err != nil {
		return err
	}

	if err := c.initScheduler(); err != nil {
		return err
	}

	return nil
}

func (c *Container) initConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

func (c *Container) initLogger() error {
	logConfig := logger.Config{
		Level:      c.Config.Log.Level,
		Format:     c.Config.Log.Format,
		Output:     c.Config.Log.Output,
		FilePath:   c.Config.Log.FilePath,
		MaxSize:    c.Config.Log.MaxSize,
		MaxBackups: c.Config.Log.MaxBackups,
		MaxAge:     c.Config.Log.MaxAge,
		Compress:   c.Config.Log.Compress,
	}

	if err := logger.Init(logConfig); err != nil {
		return err
	}

	logger.Info("Logger initialized",
		"level", c.Config.Log.Level,
		"format", c.Config.Log.Format,
		"output", c.Config.Log.Output,
		"file", c.Config.Log.FilePath,
	)
	logger.Info("Configuration loaded", "env", c.Config.App.Env)
	return nil
}

func (c *Container) initInfrastructure() error {
	// Initialize Database
	dbConfig := postgres.DatabaseConfig{
		Driver:     c.Config.Database.Driver,
		Host:       c.Config.Database.Host,
		Port:       c.Config.Database.Port,
		User:       c.Config.Database.User,
		Password:   c.Config.Database.Password,
		DBName:     c.Config.Database.DBName,
		SSLMode:    c.Config.Database.SSLMode,
		SQLitePath: c.Config.Database.SQLitePath,
		LogLevel:   c.Config.Database.LogLevel,
	}
	db, err := postgres.NewDatabase(dbConfig)
	if err != nil {
		return err
	}
	c.DB = db
	c.Transactor = postgres.NewTransactor(db)
	logger.Info("Database connected", "driver", dbConfig.Driver, "host", dbConfig.Host, "db", dbConfig.DBName)

	// Run migrations
	if err := postgres.Migrate(db); err != nil {
		return err
	}
	logger.Info("Database migrated")

	// Initialize Redis Client (optional - graceful degradation)
	if c.Config.Redis.URL != "" {
		redisClient, err := redispkg.NewClient(&c.Config.Redis)
		if err != nil {
			logger.Warn("Redis client initialization failed (cache disabled)", "error", err)
		} else {
			c.RedisClient = redisClient
			c.BoardCache = redispkg.NewBoardCache(redisClient, c.Config.Redis.TaskCacheTTL)
			logger.Info("Redis client initialized", "url", c.Config.Redis.URL, "ttl", c.Config.Redis.TaskCacheTTL)
		}
	} else {
		logger.Warn("REDIS_URL not set, board task cache disabled")
	}

	// Initialize NATS Client (optional - single instance falls back to the local bus)
	if c.Config.NATS.URL != "" {
		natsClient, err := natspkg.NewClient(natspkg.ClientConfig{
			URL:  c.Config.NATS.URL,
			Name: c.Config.App.Name,
		})
		if err != nil {
			logger.Warn("NATS client initialization failed (using in-process bus)", "error", err)
		} else {
			c.NATSClient = natsClient
			logger.Info("NATS client initialized", "url", c.Config.NATS.URL)
		}
	}

	c.initMessagingPorts()
	return nil
}

// initMessagingPorts เลือก adapter สำหรับ board events
func (c *Container) initMessagingPorts() {
	if c.NATSClient == nil {
		c.LocalBus = messaging.NewLocalBus()
		c.EventPublisher = c.LocalBus
		c.EventSubscriber = c.LocalBus
		logger.Warn("Board events stay in this process (NATS not available)")
		return
	}

	c.EventPublisher = messaging.NewNATSBoardEventPublisher(c.NATSClient.Conn())
	c.NATSSubscriber = natspkg.NewSubscriber(c.NATSClient.Conn(), natspkg.SubjectBoardAll)
	c.EventSubscriber = messaging.NewNATSBoardEventSubscriber(c.NATSSubscriber)
}

func (c *Container) initRepositories() error {
	c.UserRepository = postgres.NewUserRepository(c.DB)
	c.BoardRepository = postgres.NewBoardRepository(c.DB)
	c.ColumnRepository = postgres.NewColumnRepository(c.DB)
	c.TaskRepository = postgres.NewTaskRepository(c.DB)
	logger.Info("Repositories initialized")
	return nil
}

func (c *Container) initRealtime() error {
	c.Hub = websocket.NewHub(websocket.Config{
		SendBuffer: c.Config.Realtime.SendBuffer,
		WriteWait:  c.Config.Realtime.WriteWait,
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.hubCancel = cancel
	c.hubDone = make(chan struct{})
	go func() {
		defer close(c.hubDone)
		c.Hub.Run(ctx)
	}()

	c.BoardBroadcaster = websocket.NewBoardBroadcaster(c.EventSubscriber, c.Hub)
	if err := c.BoardBroadcaster.Start(); err != nil {
		return err
	}
	logger.Info("Realtime hub started",
		"send_buffer", c.Config.Realtime.SendBuffer,
		"nats", c.NATSClient != nil,
	)
	return nil
}

func (c *Container) initServices() error {
	c.UserService = serviceimpl.NewUserService(c.UserRepository)

	boardService := serviceimpl.NewBoardService(c.Transactor, c.BoardRepository, c.ColumnRepository, c.TaskRepository, c.UserRepository, c.EventPublisher)
	columnService := serviceimpl.NewColumnService(c.Transactor, c.ColumnRepository, c.BoardRepository, c.TaskRepository, c.EventPublisher)
	taskService := serviceimpl.NewTaskService(c.Transactor, c.TaskRepository, c.ColumnRepository, c.BoardRepository, c.UserRepository, c.EventPublisher)

	if c.BoardCache != nil {
		boardService.SetCache(c.BoardCache)
		columnService.SetCache(c.BoardCache)
		taskService.SetCache(c.BoardCache)
	}

	c.BoardService = boardService
	c.ColumnService = columnService
	c.TaskService = taskService
	logger.Info("Services initialized", "cache", c.BoardCache != nil)
	return nil
}

func (c *Container) initScheduler() error {
	c.EventScheduler = scheduler.NewEventScheduler()

	// ping ทุก connection; client ที่ไม่ตอบ pong จะหมด read deadline
	if interval := c.Config.Realtime.PingInterval; interval > 0 {
		if err := c.EventScheduler.AddIntervalJob(jobHeartbeat, interval, c.Hub.PingAll); err != nil {
			return err
		}
	}

	if err := c.EventScheduler.AddJob(jobStats, "*/5 * * * *", func() {
		logger.Info("Realtime stats",
			"active_boards", c.Hub.ActiveBoards(),
			"connections", c.Hub.Connections(),
		)
	}); err != nil {
		return err
	}

	c.EventScheduler.Start()
	return nil
}

func (c *Container) Cleanup() error {
	logger.Info("Starting cleanup...")

	// Stop scheduler
	if c.EventScheduler != nil && c.EventScheduler.IsRunning() {
		c.EventScheduler.Stop()
	}

	// Stop board broadcaster (also stops the NATS subscription)
	if c.BoardBroadcaster != nil {
		if err := c.BoardBroadcaster.Stop(); err != nil {
			logger.Warn("Failed to stop board broadcaster", "error", err)
		}
	}

	// Close every websocket connection
	if c.hubCancel != nil {
		c.hubCancel()
		select {
		case <-c.hubDone:
			logger.Info("Realtime hub stopped")
		case <-time.After(5 * time.Second):
			logger.Warn("Realtime hub did not stop in time")
		}
	}

	// Close NATS connection
	if c.NATSClient != nil {
		if err := c.NATSClient.Close(); err != nil {
			logger.Warn("Failed to close NATS connection", "error", err)
		} else {
			logger.Info("NATS connection closed")
		}
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.Warn("Failed to close Redis connection", "error", err)
		} else {
			logger.Info("Redis connection closed")
		}
	}

	// Close database connection
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("Failed to close database connection", "error", err)
			} else {
				logger.Info("Database connection closed")
			}
		}
	}

	logger.Info("Cleanup completed")
	return logger.Close()
}

func (c *Container) GetConfig() *config.Config {
	return c.Config
}

func (c *Container) GetHandlerServices() *handlers.Services {
	return &handlers.Services{
		UserService:   c.UserService,
		BoardService:  c.BoardService,
		ColumnService: c.ColumnService,
		TaskService:   c.TaskService,
		Presence:      c.Hub,
		ServiceName:   c.Config.App.Name,
	}
}

func (c *Container) GetWebSocketHandler() *websocketHandler.WebSocketHandler {
	return websocketHandler.NewWebSocketHandler(c.Hub, c.BoardService, c.Config.JWT.Secret, websocketHandler.Config{
		ReadLimit:    c.Config.Realtime.ReadLimit,
		PingInterval: c.Config.Realtime.PingInterval,
	})
}
