package conversation

import (
	"sync"
	"time"

	"github.com/angelmondragon/menubot/internal/catalog"
)

// State is the navigation step a user is on.
type State string

const (
	StateChoosingCategory    State = "choosing_category"
	StateChoosingSubcategory State = "choosing_subcategory"
	StateChoosingProduct     State = "choosing_product"
	StateConfirmingOrder     State = "confirming_order"
	StateWaitingForContact   State = "waiting_for_contact"
)

func (s State) String() string {
	return string(s)
}

// Session is the per-user navigation context. It is replaced wholesale on
// every category selection so no stale subcategory survives.
type Session struct {
	State            State     `json:"state"`
	CategoryID       string    `json:"category_id,omitempty"`
	CategoryIndex    int       `json:"category_index"`
	SubcategoryID    string    `json:"subcategory_id,omitempty"`
	SubcategoryIndex int       `json:"subcategory_index"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newSession(now time.Time) Session {
	return Session{
		State:            StateChoosingCategory,
		CategoryIndex:    -1,
		SubcategoryIndex: catalog.NoSubcategory,
		UpdatedAt:        now,
	}
}

// SessionStore keeps sessions in memory, keyed by user id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]Session)}
}

// Get returns the user's session, or a fresh choosing_category one.
func (s *SessionStore) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session
	}
	return newSession(time.Time{})
}

func (s *SessionStore) Put(userID int64, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions untouched since cutoff and reports how many went.
// A swept user simply starts again from the category menu.
func (s *SessionStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}
