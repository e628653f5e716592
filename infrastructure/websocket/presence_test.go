package websocket

import (
	"testing"

	"github.com/google/uuid"
)

func TestPresenceCounts(t *testing.T) {
	p := newPresence()
	board, user := uuid.New(), uuid.New()

	steps := []struct {
		name string
		op   func() bool
		want bool
	}{
		{"first add", func() bool { return p.add(board, user) }, true},
		{"second add", func() bool { return p.add(board, user) }, false},
		{"first remove", func() bool { return p.remove(board, user) }, false},
		{"last remove", func() bool { return p.remove(board, user) }, true},
		{"extra remove", func() bool { return p.remove(board, user) }, false},
	}
	for _, s := range steps {
		if got := s.op(); got != s.want {
			t.Errorf("%s = %v, want %v", s.name, got, s.want)
		}
	}
	if p.boards() != 0 {
		t.Errorf("boards = %d, want 0", p.boards())
	}
}
