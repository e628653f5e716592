package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"taskboard/domain/models"
	"taskboard/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&config.RedisConfig{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestBoardCacheLoadsOnce(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewBoardCache(client, time.Minute)
	boardID := uuid.New()
	task := &models.Task{ID: uuid.New(), Title: "Ship", BoardID: boardID, Order: 0, Tags: []string{"x"}}

	calls := 0
	load := func() ([]*models.Task, error) {
		calls++
		return []*models.Task{task}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetOrLoadTasks(context.Background(), boardID, load)
		if err != nil {
			t.Fatalf("GetOrLoadTasks: %v", err)
		}
		if len(got) != 1 || got[0].ID != task.ID || got[0].Title != "Ship" {
			t.Fatalf("got %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestBoardCacheInvalidate(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewBoardCache(client, time.Minute)
	boardID := uuid.New()

	calls := 0
	load := func() ([]*models.Task, error) {
		calls++
		return []*models.Task{}, nil
	}
	ctx := context.Background()
	if _, err := cache.GetOrLoadTasks(ctx, boardID, load); err != nil {
		t.Fatal(err)
	}
	if err := cache.InvalidateBoard(ctx, boardID); err != nil {
		t.Fatalf("InvalidateBoard: %v", err)
	}
	if mr.Exists(tasksKey(boardID, 0)) {
		t.Error("old generation entry should be deleted")
	}
	if _, err := cache.GetOrLoadTasks(ctx, boardID, load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("loader called %d times, want 2", calls)
	}
}

func TestBoardCacheLoaderError(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewBoardCache(client, time.Minute)
	boardID := uuid.New()
	boom := errors.New("db down")

	_, err := cache.GetOrLoadTasks(context.Background(), boardID, func() ([]*models.Task, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want loader error", err)
	}
	if mr.Exists("lock:" + tasksKey(boardID, 0)) {
		t.Error("lock should be released after a failed load")
	}
}

func TestGetOrSetWaitsForLockHolder(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	// someone else holds the fill lock and never writes the value
	if err := mr.Set("lock:k", "1"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(ctx, 120*time.Millisecond)
	defer cancel()

	var out string
	err := client.GetOrSet(ctx, "k", &out, time.Minute, func() (interface{}, error) { return "v", nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
