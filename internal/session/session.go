package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName carries the session id.
const CookieName = "console_session"

// ErrUnauthenticated means the request carries no live session.
var ErrUnauthenticated = errors.New("login required")

// Session is the state created by the login step. It only records who the
// operator said they were; it is not an authentication token.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps sessions in memory; they do not survive a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore returns a store whose sessions expire after ttl (never if ttl <= 0).
func NewStore(ttl time.Duration) *Store {
	return &Store{sessions: map[string]Session{}, ttl: ttl, now: time.Now}
}

// Login starts a session for the display name.
func (s *Store) Login(name string) (Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Session{}, errors.New("name is required")
	}
	sess := Session{ID: uuid.NewString(), Name: name, CreatedAt: s.now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(sess.CreatedAt)
	s.sessions[sess.ID] = sess
	return sess, nil
}

// sweepLocked drops sessions that expired without being looked up again.
func (s *Store) sweepLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) expired(sess Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.CreatedAt) > s.ttl
}

// Logout ends the session; unknown ids are ignored.
func (s *Store) Logout(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Lookup returns the live session for id.
func (s *Store) Lookup(id string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrUnauthenticated
	}
	if s.expired(sess, s.now()) {
		s.Logout(id)
		return Session{}, ErrUnauthenticated
	}
	return sess, nil
}

// FromRequest resolves the session named by the request cookie.
func (s *Store) FromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, ErrUnauthenticated
	}
	return s.Lookup(c.Value)
}

type ctxKey struct{}

// WithSession attaches sess to ctx.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session attached by Guard.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(Session)
	return sess, ok
}

// Guard admits requests with a live session and hands everything else to deny.
func (s *Store) Guard(deny func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := s.FromRequest(r)
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
