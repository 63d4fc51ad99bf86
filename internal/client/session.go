package client

import (
	"sync"
	"time"

	"taskmanager/internal/model"
)

// Session holds the signed-in user of one Client. It starts empty; Login and
// VerifyEmail fill it, Logout and any rejected token clear it.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      *model.User
	expiresAt time.Time
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) IsAdmin() bool {
	u := s.User()
	return u != nil && u.IsAdmin()
}

func (s *Session) set(token string, user *model.User, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user, s.expiresAt = token, user, expiresAt
}

func (s *Session) setUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		s.user = user
	}
}

// Clear forgets the token and the user.
func (s *Session) Clear() {
	s.set("", nil, time.Time{})
}
