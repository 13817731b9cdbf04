package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/mitate/internal/generation"
)

func TestSlidingWindow(t *testing.T) {
	s := NewStore(10, time.Hour, 3)
	id := s.Create("u1")

	for i := 1; i <= 5; i++ {
		s.Append(id, generation.Turn{
			Query:  fmt.Sprintf("q%d", i),
			Answer: fmt.Sprintf("a%d", i),
		})
	}

	turns := s.History(id)
	if len(turns) != 3 {
		t.Fatalf("len(turns) = %d, want 3", len(turns))
	}
	if turns[0].Query != "q3" || turns[2].Query != "q5" {
		t.Errorf("window = [%s .. %s], want [q3 .. q5]", turns[0].Query, turns[2].Query)
	}
}

func TestUnknownSession(t *testing.T) {
	s := NewStore(10, time.Hour, 3)
	if got := s.History("nope"); got != nil {
		t.Errorf("History(nope) = %v", got)
	}
	// Append to an unknown session is a no-op
	s.Append("nope", generation.Turn{Query: "q"})
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestTTLExpiry(t *testing.T) {
	s := NewStore(10, time.Minute, 3)
	current := time.Now()
	s.now = func() time.Time { return current }

	id := s.Create("u1")
	s.Append(id, generation.Turn{Query: "q1", Answer: "a1"})

	current = current.Add(2 * time.Minute)
	if got := s.History(id); got != nil {
		t.Errorf("expired session returned %v", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len after expiry = %d, want 0", s.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	s := NewStore(2, time.Hour, 3)
	first := s.Create("u1")
	second := s.Create("u2")
	s.Append(second, generation.Turn{Query: "q", Answer: "a"})

	// touch first so second becomes the eviction candidate
	s.Append(first, generation.Turn{Query: "q", Answer: "a"})
	s.Create("u3")

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if got := s.History(second); got != nil {
		t.Error("least recently used session should have been evicted")
	}
	if s.History(first) == nil {
		t.Error("recently used session should survive eviction")
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewStore(10, time.Hour, 5)
	id := s.Create("u1")
	s.Append(id, generation.Turn{Query: "q1", Answer: "a1"})

	turns := s.History(id)
	turns[0].Query = "mutated"
	if got := s.History(id); got[0].Query != "q1" {
		t.Error("History must return a copy of the window")
	}
}
