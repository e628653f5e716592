package serviceimpl

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/domain/events"
	"taskboard/domain/services"
)

func TestCreateBoardDefaults(t *testing.T) {
	e := newEnv(t)

	if e.board.Slug != "launch-plan" {
		t.Errorf("slug = %q", e.board.Slug)
	}
	if e.board.OwnerID != e.user.ID {
		t.Errorf("owner = %s", e.board.OwnerID)
	}
	if len(e.board.Members) != 1 || e.board.Members[0].ID != e.user.ID {
		t.Errorf("owner should be the only member, got %v", e.board.MemberIDs())
	}
	if len(e.board.Columns) != len(DefaultColumns) {
		t.Fatalf("columns = %d, want %d", len(e.board.Columns), len(DefaultColumns))
	}
	for i, col := range e.board.Columns {
		if col.Title != DefaultColumns[i] || col.Order != i {
			t.Errorf("column %d = %s@%d", i, col.Title, col.Order)
		}
	}
}

func TestCreateBoardRejectsUnknownMember(t *testing.T) {
	e := newEnv(t)
	_, err := e.boards.CreateBoard(context.Background(), e.user.ID, &dto.CreateBoardRequest{
		Title:     "Team",
		MemberIDs: []uuid.UUID{uuid.New()},
	})
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestListBoardsByMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob, err := e.users.CreateUser(ctx, &dto.CreateUserRequest{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := e.boards.CreateBoard(ctx, bob.ID, &dto.CreateBoardRequest{Title: "Bob's"}); err != nil {
		t.Fatalf("create board: %v", err)
	}

	mine, err := e.boards.ListBoards(ctx, e.user.ID)
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != e.board.ID {
		t.Errorf("Ada's boards = %d", len(mine))
	}
	all, err := e.boards.ListBoards(ctx, uuid.Nil)
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all boards = %d, want 2", len(all))
	}
}

func TestUpdateBoardKeepsOwnerAsMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob, err := e.users.CreateUser(ctx, &dto.CreateUserRequest{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	e.pub.reset()

	title := "Launch v2"
	members := []uuid.UUID{bob.ID}
	updated, err := e.boards.UpdateBoard(ctx, e.user.ID, e.board.ID, &dto.UpdateBoardRequest{Title: &title, MemberIDs: &members})
	if err != nil {
		t.Fatalf("UpdateBoard: %v", err)
	}
	if updated.Title != title || updated.Slug != "launch-v2" {
		t.Errorf("updated = %s/%s", updated.Title, updated.Slug)
	}
	if len(updated.Members) != 2 {
		t.Errorf("members = %v, want owner and bob", updated.MemberIDs())
	}
	if last := e.pub.last(); last == nil || last.Type != events.BoardUpdated {
		t.Errorf("events = %v", e.pub.types())
	}
}

func TestDeleteBoardCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tasks := e.addTasks(t, e.column(0), "A", "B")

	if err := e.boards.DeleteBoard(ctx, e.user.ID, e.board.ID); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}
	if _, err := e.boards.GetBoard(ctx, e.board.ID); !errors.Is(err, services.ErrBoardNotFound) {
		t.Errorf("GetBoard err = %v", err)
	}
	if _, err := e.tasks.GetTask(ctx, tasks[0].ID); !errors.Is(err, services.ErrTaskNotFound) {
		t.Errorf("GetTask err = %v", err)
	}
	if last := e.pub.last(); last == nil || last.Type != events.BoardDeleted {
		t.Errorf("events = %v", e.pub.types())
	}
	if err := e.boards.DeleteBoard(ctx, e.user.ID, e.board.ID); !errors.Is(err, services.ErrBoardNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}
