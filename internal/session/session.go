// Package session keeps short-lived conversation state for the chat
// endpoint: a sliding window of recent turns per session, evicted by LRU
// and TTL.
package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/mitate/internal/generation"
)

// Session is one conversation. Turns is a sliding window: when the cap is
// reached the oldest turn drops off.
type Session struct {
	ID       string
	UserID   string
	Turns    []generation.Turn
	LastSeen time.Time
}

// Store holds sessions with LRU eviction beyond maxSessions and lazy TTL
// expiry. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*list.Element
	order       *list.List // front = most recently used
	maxSessions int
	ttl         time.Duration
	maxTurns    int
	now         func() time.Time
}

func NewStore(maxSessions int, ttl time.Duration, maxTurns int) *Store {
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Store{
		sessions:    make(map[string]*list.Element),
		order:       list.New(),
		maxSessions: maxSessions,
		ttl:         ttl,
		maxTurns:    maxTurns,
		now:         time.Now,
	}
}

// Create starts a new session and returns its id.
func (s *Store) Create(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{
		ID:       uuid.New().String(),
		UserID:   userID,
		LastSeen: s.now(),
	}
	s.sessions[sess.ID] = s.order.PushFront(sess)
	for s.order.Len() > s.maxSessions {
		s.evictOldest()
	}
	return sess.ID
}

// History returns the conversation window for id, oldest turn first.
// An unknown or expired id returns nil.
func (s *Store) History(id string) []generation.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(id)
	if sess == nil {
		return nil
	}
	return append([]generation.Turn(nil), sess.Turns...)
}

// Append records a completed exchange on the session. Unknown or expired
// ids are ignored.
func (s *Store) Append(id string, turn generation.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(id)
	if sess == nil {
		return
	}
	sess.Turns = append(sess.Turns, turn)
	if len(sess.Turns) > s.maxTurns {
		sess.Turns = sess.Turns[len(sess.Turns)-s.maxTurns:]
	}
}

// Len returns the number of live sessions. Expired sessions still count
// until touched.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// touch looks up a session, expiring it when past TTL, and marks it as
// most recently used. Caller holds the lock.
func (s *Store) touch(id string) *Session {
	el, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess := el.Value.(*Session)
	if s.ttl > 0 && s.now().Sub(sess.LastSeen) > s.ttl {
		s.order.Remove(el)
		delete(s.sessions, id)
		return nil
	}
	sess.LastSeen = s.now()
	s.order.MoveToFront(el)
	return sess
}

func (s *Store) evictOldest() {
	el := s.order.Back()
	if el == nil {
		return
	}
	s.order.Remove(el)
	delete(s.sessions, el.Value.(*Session).ID)
}
