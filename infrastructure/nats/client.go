package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"taskboard/pkg/logger"
)

// Client wraps the core NATS connection used for board event fan-out
type Client struct {
	conn *nats.Conn
}

// ClientConfig configuration สำหรับ NATS Client
type ClientConfig struct {
	URL  string // nats://localhost:4222
	Name string // ชื่อ connection ที่เห็นใน nats monitoring
}

func NewClient(cfg ClientConfig) (*Client, error) {
	name := cfg.Name
	if name == "" {
		name = "taskboard-api"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1), // reconnect forever
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS client initialized", "url", cfg.URL)
	return &Client{conn: nc}, nil
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Close drains pending messages before closing
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
