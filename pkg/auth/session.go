package auth

import (
	"sync"

	"github.com/rizkyap/ngobrol/pkg/model"
)

// Session holds the signed-in user for one client and notifies watchers when
// it changes. It replaces a global auth singleton: components that need the
// current identity take a *Session explicitly. Created at app start, cleared
// at logout.
type Session struct {
	mu       sync.Mutex
	user     *model.User
	watchers map[int]func(*model.User)
	nextID   int
}

func NewSession() *Session {
	return &Session{watchers: make(map[int]func(*model.User))}
}

// User returns the current user, or nil when signed out.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Set records a sign-in and notifies watchers.
func (s *Session) Set(user *model.User) {
	s.notify(user)
}

// Clear records a sign-out and notifies watchers with nil.
func (s *Session) Clear() {
	s.notify(nil)
}

// OnAuthChange registers a callback invoked on every sign-in and sign-out.
// The returned func removes the watcher; dropping it without calling leaks a
// permanent listener.
func (s *Session) OnAuthChange(fn func(*model.User)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Session) notify(user *model.User) {
	s.mu.Lock()
	s.user = user
	fns := make([]func(*model.User), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}
