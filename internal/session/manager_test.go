package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerCreateGetRemove(t *testing.T) {
	m := NewManager(threeBoxSource(true), Options{RoundSize: 2})
	defer m.Close()

	s := m.Create(Options{Viewport: testViewport})
	if s.ID() == "" {
		t.Fatalf("expected generated id")
	}
	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}

	st := waitPhase(t, s, "in_progress")
	if len(st.Targets) != 2 {
		t.Fatalf("default round size not applied: %v", st.Targets)
	}

	m.Remove(s.ID())
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Remove err = %v", err)
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("removed session still running")
	}
}

func TestManagerUniqueIDs(t *testing.T) {
	m := NewManager(threeBoxSource(true), Options{})
	defer m.Close()
	a := m.Create(Options{})
	b := m.Create(Options{})
	if a.ID() == b.ID() {
		t.Fatalf("duplicate session id %q", a.ID())
	}
	if m.Len() != 2 || len(m.List()) != 2 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestManagerRemovesSessionWhenLastSubscriberLeaves(t *testing.T) {
	m := NewManager(threeBoxSource(true), Options{})
	defer m.Close()
	s := m.Create(Options{})

	id, err := s.Attach(context.Background(), newFakeConn())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	s.Detach(id)

	deadline := time.After(time.Second)
	for {
		if _, err := m.Get(s.ID()); errors.Is(err, ErrNotFound) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session not removed after last subscriber left")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManagerSweep(t *testing.T) {
	m := NewManager(threeBoxSource(true), Options{})
	defer m.Close()
	m.Create(Options{})

	if n := m.Sweep(time.Hour); n != 0 {
		t.Fatalf("fresh session swept")
	}
	time.Sleep(20 * time.Millisecond)
	if n := m.Sweep(10 * time.Millisecond); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if m.Len() != 0 {
		t.Fatalf("len = %d after sweep", m.Len())
	}
}

func TestManagerOnRemoveAfterLoopExits(t *testing.T) {
	removed := make(chan string, 2)
	m := NewManager(threeBoxSource(true), Options{OnRemove: func(id string) { removed <- id }})
	a := m.Create(Options{})
	b := m.Create(Options{})

	m.Remove(a.ID())
	select {
	case id := <-removed:
		if id != a.ID() {
			t.Fatalf("removed %q, want %q", id, a.ID())
		}
	case <-time.After(time.Second):
		t.Fatalf("OnRemove not called")
	}
	select {
	case <-a.Done():
	default:
		t.Fatalf("OnRemove ran before the loop exited")
	}

	m.Close()
	select {
	case id := <-removed:
		if id != b.ID() {
			t.Fatalf("removed %q on close, want %q", id, b.ID())
		}
	case <-time.After(time.Second):
		t.Fatalf("OnRemove not called on Close")
	}
}
