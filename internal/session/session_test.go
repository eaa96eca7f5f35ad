package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoginLookupLogout(t *testing.T) {
	s := NewStore(0)

	_, err := s.Login("   ")
	assert.Error(t, err)

	sess, err := s.Login(" Ada ")
	require.NoError(t, err)
	assert.Equal(t, "Ada", sess.Name)
	assert.NotEmpty(t, sess.ID)

	got, err := s.Lookup(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	s.Logout(sess.ID)
	_, err = s.Lookup(sess.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess, err := s.Login("ops")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = s.Lookup(sess.ID)
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Lookup(sess.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestStore_LoginSweepsAbandonedSessions(t *testing.T) {
	s := NewStore(time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	abandoned, err := s.Login("ops")
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	recent, err := s.Login("ops")
	require.NoError(t, err)

	now = now.Add(45 * time.Minute)
	current, err := s.Login("ada")
	require.NoError(t, err)

	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	assert.ElementsMatch(t, []string{recent.ID, current.ID}, ids)
	assert.NotContains(t, ids, abandoned.ID)
}

func TestGuard(t *testing.T) {
	s := NewStore(0)
	sess, err := s.Login("ops")
	require.NoError(t, err)

	var seen string
	h := s.Guard(func(w http.ResponseWriter, _ *http.Request, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = got.Name
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
	}{
		{"no cookie", nil, http.StatusUnauthorized},
		{"unknown session", &http.Cookie{Name: CookieName, Value: "nope"}, http.StatusUnauthorized},
		{"live session", &http.Cookie{Name: CookieName, Value: sess.ID}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/console/campaigns", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
	assert.Equal(t, "ops", seen)
}
