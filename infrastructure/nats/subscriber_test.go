package nats

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

func TestBoardSubject(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	if got := BoardSubject(id); got != "board.7c9e6679-7425-40de-944b-e07fc1f90ae7.events" {
		t.Errorf("BoardSubject = %q", got)
	}
}

func TestHandleMessageRecoversAndKeepsOrder(t *testing.T) {
	s := NewSubscriber(nil, "")
	if s.subject != SubjectBoardAll {
		t.Fatalf("default subject = %q", s.subject)
	}

	var got []string
	s.OnMessage(func(subject string, data []byte) { panic("boom") })
	s.OnMessage(func(subject string, data []byte) { got = append(got, string(data)) })

	for _, body := range []string{"1", "2", "3"} {
		s.handleMessage(&nats.Msg{Subject: "board.x.events", Data: []byte(body)})
	}
	if len(got) != 3 || got[0] != "1" || got[2] != "3" {
		t.Errorf("delivered %v, want [1 2 3]", got)
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := NewSubscriber(nil, "")
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.IsRunning() {
		t.Error("subscriber should not be running")
	}
}
