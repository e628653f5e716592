package nats

import (
	"sync"

	"github.com/nats-io/nats.go"

	"taskboard/pkg/logger"
)

// MessageHandler รับ payload ดิบของ board event
type MessageHandler func(subject string, data []byte)

// Subscriber NATS Pub/Sub subscriber สำหรับ board events
type Subscriber struct {
	conn       *nats.Conn
	subject    string
	sub        *nats.Subscription
	handlers   []MessageHandler
	handlersMu sync.RWMutex
	running    bool
	runningMu  sync.Mutex
}

func NewSubscriber(conn *nats.Conn, subject string) *Subscriber {
	if subject == "" {
		subject = SubjectBoardAll
	}
	return &Subscriber{conn: conn, subject: subject}
}

func (s *Subscriber) OnMessage(handler MessageHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, handler)
}

func (s *Subscriber) Start() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if s.running {
		return nil
	}

	sub, err := s.conn.Subscribe(s.subject, s.handleMessage)
	if err != nil {
		return err
	}
	s.sub = sub
	s.running = true

	logger.Info("NATS subscriber started", "subject", s.subject)
	return nil
}

// handleMessage เรียก handler แบบ synchronous เพื่อรักษาลำดับ message
func (s *Subscriber) handleMessage(msg *nats.Msg) {
	s.handlersMu.RLock()
	handlers := s.handlers
	s.handlersMu.RUnlock()

	for _, handler := range handlers {
		func(h MessageHandler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Board event handler panicked", "subject", msg.Subject, "error", r)
				}
			}()
			h(msg.Subject, msg.Data)
		}(handler)
	}
}

func (s *Subscriber) Stop() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			logger.Warn("Failed to unsubscribe", "subject", s.subject, "error", err)
		}
	}
	logger.Info("NATS subscriber stopped", "subject", s.subject)
	return nil
}

func (s *Subscriber) IsRunning() bool {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	return s.running
}
