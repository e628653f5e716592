package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Realtime RealtimeConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Env         string
	CORSOrigins string // comma-separated, "*" = ทุก origin
}

type DatabaseConfig struct {
	Driver     string // postgres, sqlite
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	LogLevel   string
}

// RedisConfig สำหรับ cache รายการ task ของ board (optional)
type RedisConfig struct {
	URL          string // redis://localhost:6379, ว่าง = ปิด cache
	Password     string
	DB           int
	TaskCacheTTL time.Duration
}

// NATSConfig fan-out board events ข้าม instance (ว่าง = in-process bus)
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, text
	Output     string // stdout, file, both
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // วัน
	Compress   bool
}

// RealtimeConfig websocket hub
type RealtimeConfig struct {
	SendBuffer   int           // ข้อความค้างต่อ connection ก่อนถูกตัด
	PingInterval time.Duration // heartbeat
	WriteWait    time.Duration
	ReadLimit    int64 // bytes ต่อ frame
}

func LoadConfig() (*Config, error) {
	// ไม่มี .env ก็ใช้ environment variables อย่างเดียว
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Taskboard"),
			Port:        getEnv("APP_PORT", "8080"),
			Env:         getEnv("APP_ENV", "development"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "taskboard"),
			SSLMode:    getEnv("DB_SSL_MODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "taskboard.db"),
			LogLevel:   getEnv("DB_LOG_LEVEL", "warn"),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			TaskCacheTTL: getEnvDuration("REDIS_TASK_CACHE_TTL", 2*time.Minute),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", "your-secret-key"),
			TokenTTL: getEnvDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			FilePath:   getEnv("LOG_FILE", "logs/taskboard.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnv("LOG_COMPRESS", "true") == "true",
		},
		Realtime: RealtimeConfig{
			SendBuffer:   getEnvInt("WS_SEND_BUFFER", 64),
			PingInterval: getEnvDuration("WS_PING_INTERVAL", 30*time.Second),
			WriteWait:    getEnvDuration("WS_WRITE_WAIT", 10*time.Second),
			ReadLimit:    int64(getEnvInt("WS_READ_LIMIT", 64*1024)),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration รับทั้ง "30s" และตัวเลขวินาที "30"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// Origins splits CORSOrigins for the cors middleware.
func (a AppConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(a.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
