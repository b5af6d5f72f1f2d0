package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliotracker/src/model"
	"portfoliotracker/src/security"
)

type fakeSessions struct {
	sessions map[int64]*model.UserSession
	calls    int
	err      error
}

func (f *fakeSessions) FindByID(_ context.Context, id int64) (*model.UserSession, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[id], nil
}

type fakeCache struct {
	entries map[int64]*model.UserSession
}

func (c *fakeCache) Get(_ context.Context, id int64) (*model.UserSession, error) {
	return c.entries[id], nil
}

func (c *fakeCache) Set(_ context.Context, s *model.UserSession) error {
	c.entries[s.SessionID] = s
	return nil
}

func setup(t *testing.T) (*security.TokenManager, *fakeSessions, string) {
	t.Helper()
	tokens := security.NewTokenManager("secret", time.Hour)
	now := time.Now()
	session := &model.UserSession{SessionID: 11, UserID: 5, IsActive: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	token, err := tokens.Issue(*session)
	require.NoError(t, err)
	return tokens, &fakeSessions{sessions: map[int64]*model.UserSession{11: session}}, token
}

func protected(t *testing.T, seen *int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		*seen = id
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthentication(t *testing.T) {
	tokens, sessions, token := setup(t)
	var seen int64
	h := RequireAuthentication(tokens, sessions, nil)(protected(t, &seen))

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "missing header", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid header", header: "Bearer " + token, want: http.StatusNoContent},
		{name: "valid query token", query: "?token=" + token, want: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
		})
	}
	assert.Equal(t, int64(5), seen)
}

func TestRequireAuthentication_InactiveSession(t *testing.T) {
	tokens, sessions, token := setup(t)
	sessions.sessions[11].IsActive = false
	var seen int64
	h := RequireAuthentication(tokens, sessions, nil)(protected(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthentication_StoreError(t *testing.T) {
	tokens, sessions, token := setup(t)
	sessions.err = errors.New("db down")
	var seen int64
	h := RequireAuthentication(tokens, sessions, nil)(protected(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRequireAuthentication_UsesCache(t *testing.T) {
	tokens, sessions, token := setup(t)
	cache := &fakeCache{entries: map[int64]*model.UserSession{}}
	var seen int64
	h := RequireAuthentication(tokens, sessions, cache)(protected(t, &seen))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
	}
	assert.Equal(t, 1, sessions.calls)
}
