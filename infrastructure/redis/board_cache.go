package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskboard/domain/models"
	"taskboard/domain/ports"
)

// BoardCache caches a board's task list. Invalidation bumps a generation
// counter instead of deleting, so a load that raced with a write lands
// under a key nobody reads any more.
type BoardCache struct {
	client *Client
	ttl    time.Duration
}

func NewBoardCache(client *Client, ttl time.Duration) ports.BoardCachePort {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BoardCache{client: client, ttl: ttl}
}

func generationKey(boardID uuid.UUID) string {
	return fmt.Sprintf("board:%s:gen", boardID)
}

func tasksKey(boardID uuid.UUID, gen int64) string {
	return fmt.Sprintf("board:%s:tasks:%d", boardID, gen)
}

func (c *BoardCache) GetOrLoadTasks(ctx context.Context, boardID uuid.UUID, load func() ([]*models.Task, error)) ([]*models.Task, error) {
	gen, err := c.client.GetInt(ctx, generationKey(boardID))
	if err != nil {
		return nil, err
	}

	var tasks []*models.Task
	err = c.client.GetOrSet(ctx, tasksKey(boardID, gen), &tasks, c.ttl, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

func (c *BoardCache) InvalidateBoard(ctx context.Context, boardID uuid.UUID) error {
	gen, err := c.client.Incr(ctx, generationKey(boardID))
	if err != nil {
		return err
	}
	// entry ของ generation ก่อนหน้าไม่มีใครอ่านแล้ว
	return c.client.Del(ctx, tasksKey(boardID, gen-1))
}
