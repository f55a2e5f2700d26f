package appstate

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"medprep-server/models"
)

// Store keeps one UserState per user id.
type Store struct {
	mu    sync.RWMutex
	users map[string]UserState
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{users: make(map[string]UserState), now: time.Now}
}

// Dispatch reduces a into the user's state and returns the new state.
func (s *Store) Dispatch(userID string, a Action) UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Reduce(s.users[userID], a)
	if _, ok := a.(LoggedOut); ok {
		delete(s.users, userID)
		return next
	}
	s.users[userID] = next
	return next
}

func (s *Store) Get(userID string) UserState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID]
}

// CachedUser returns the last loaded profile and when it was loaded.
func (s *Store) CachedUser(userID string) (*models.User, time.Time, bool) {
	st := s.Get(userID)
	if st.Auth.User == nil {
		return nil, time.Time{}, false
	}
	u := *st.Auth.User
	return &u, st.Auth.LoadedAt, true
}

func (s *Store) Notifications(userID string) []Notification {
	list := s.Get(userID).Notifications
	out := make([]Notification, len(list))
	copy(out, list)
	return out
}

// Notify pushes a notification for the user.
func (s *Store) Notify(userID, level, message string) {
	s.Dispatch(userID, NotificationPushed{Notification: Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}})
}
