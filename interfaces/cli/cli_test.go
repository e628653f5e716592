package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"taskboard/domain/dto"
	"taskboard/pkg/replica"
	"taskboard/pkg/utils"
)

func TestBuildView(t *testing.T) {
	alice := uuid.New()
	tests := []struct {
		name       string
		assignees  []string
		priorities []string
		sortKey    string
		wantErr    bool
	}{
		{name: "empty"},
		{name: "full", assignees: []string{alice.String()}, priorities: []string{"High", " low"}, sortKey: "dueDate"},
		{name: "bad assignee", assignees: []string{"alice"}, wantErr: true},
		{name: "bad priority", priorities: []string{"critical"}, wantErr: true},
		{name: "bad sort", sortKey: "color", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, sortBy, err := buildView("", tt.assignees, nil, tt.priorities, tt.sortKey, true)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(f.AssigneeIDs) != len(tt.assignees) || len(f.Priorities) != len(tt.priorities) {
				t.Fatalf("filter = %+v", f)
			}
			if sortBy.Key != replica.SortKey(tt.sortKey) || !sortBy.Desc {
				t.Fatalf("sort = %+v", sortBy)
			}
		})
	}
}

func TestMatchBoard(t *testing.T) {
	a := dto.BoardResponse{ID: uuid.New(), Title: "Roadmap", Slug: "roadmap"}
	b := dto.BoardResponse{ID: uuid.New(), Title: "Ops", Slug: "ops"}
	c := dto.BoardResponse{ID: uuid.New(), Title: "ops", Slug: "ops-2"}
	boards := []dto.BoardResponse{a, b, c}

	if id, err := matchBoard(boards, "roadmap"); err != nil || id != a.ID {
		t.Fatalf("slug match = %s, %v", id, err)
	}
	if id, err := matchBoard(boards, "ops-2"); err != nil || id != c.ID {
		t.Fatalf("slug match = %s, %v", id, err)
	}
	if _, err := matchBoard(boards, "OPS"); err == nil {
		t.Fatal("ambiguous title accepted")
	}
	if _, err := matchBoard(boards, "missing"); err == nil {
		t.Fatal("unknown board accepted")
	}
}

func TestResolveColumn(t *testing.T) {
	todo := dto.ColumnResponse{ID: uuid.New(), Title: "To Do"}
	done := dto.ColumnResponse{ID: uuid.New(), Title: "Done"}
	columns := []dto.ColumnResponse{todo, done}

	if id, err := resolveColumn(columns, "done"); err != nil || id != done.ID {
		t.Fatalf("by title = %s, %v", id, err)
	}
	if id, err := resolveColumn(columns, todo.ID.String()); err != nil || id != todo.ID {
		t.Fatalf("by id = %s, %v", id, err)
	}
	if _, err := resolveColumn(columns, uuid.NewString()); err == nil {
		t.Fatal("foreign column id accepted")
	}
}

func TestRenderBoard(t *testing.T) {
	board := dto.BoardResponse{ID: uuid.New(), Title: "Roadmap", Slug: "roadmap"}
	col := dto.ColumnResponse{ID: uuid.New(), Title: "To Do"}
	due := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	task := dto.TaskResponse{
		ID:        uuid.New(),
		Title:     "Write release notes",
		ColumnID:  col.ID,
		Priority:  "high",
		DueDate:   &due,
		Tags:      []string{"docs"},
		Assignees: []dto.UserResponse{{Name: "Grace"}},
	}

	out := renderBoard(board, replica.GroupByColumn([]dto.ColumnResponse{col}, []dto.TaskResponse{task}), []uuid.UUID{uuid.New()})
	for _, want := range []string{"Roadmap", "To Do", "Write release notes", "#docs", "@Grace", "due May 4", "1 viewing"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	got := truncate("สวัสดีครับทุกคน", 5)
	if len([]rune(got)) != 5 || !strings.HasSuffix(got, "…") {
		t.Errorf("got %q", got)
	}
}

func TestTokenCommand(t *testing.T) {
	user := uuid.New()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", user.String(), "--secret", "s3cret", "--ttl", "1h"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	signed := strings.TrimSpace(out.String())
	got, err := utils.ValidateTokenStringToUUID(signed, "s3cret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ID != user {
		t.Fatalf("user = %s, want %s", got.ID, user)
	}
	if id, err := utils.TokenUserID(signed); err != nil || id != user {
		t.Fatalf("unverified = %s, %v", id, err)
	}
}

func TestRenderTaskListKeepsOrder(t *testing.T) {
	todo := dto.ColumnResponse{ID: uuid.New(), Title: "To Do"}
	done := dto.ColumnResponse{ID: uuid.New(), Title: "Done"}
	tasks := []dto.TaskResponse{
		{ID: uuid.New(), Title: "zeta", ColumnID: done.ID, Priority: "low"},
		{ID: uuid.New(), Title: "alpha", ColumnID: todo.ID, Priority: "urgent"},
	}

	out := renderTaskList([]dto.ColumnResponse{todo, done}, tasks)
	z, a := strings.Index(out, "zeta"), strings.Index(out, "alpha")
	if z < 0 || a < 0 || z > a {
		t.Fatalf("order not kept:\n%s", out)
	}
	if !strings.Contains(out, "Done") || !strings.Contains(out, "To Do") {
		t.Errorf("column names missing:\n%s", out)
	}
	if got := renderTaskList(nil, nil); !strings.Contains(got, "No matching tasks") {
		t.Errorf("empty list = %q", got)
	}
}
