package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partshub/storefront/internal/models"
	"github.com/partshub/storefront/internal/storage"
)

type spyNotifier struct {
	successes []string
	errors    []string
	infos     []string
}

func (n *spyNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *spyNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }
func (n *spyNotifier) Info(msg string)    { n.infos = append(n.infos, msg) }

func newTestStorage(t *testing.T) *storage.Store {
	t.Helper()
	st, err := storage.Open(":memory:")
	require.NoError(t, err)
	return st
}

func newTestSession(t *testing.T, cfg Config, st *storage.Store) (*Store, *spyNotifier) {
	t.Helper()
	spy := &spyNotifier{}
	return New(cfg, st, spy, nil, slog.Default()), spy
}

// deadURL returns a base URL that refuses connections immediately.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func writeSession(w http.ResponseWriter, id, email, name, role, token string) {
	json.NewEncoder(w).Encode(map[string]any{
		"user":  map[string]string{"id": id, "email": email, "name": name, "role": role},
		"token": token,
	})
}

func authBackend(t *testing.T, role string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeSession(w, "u-1", "pat@example.com", "Pat", role, "tok-123")
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		writeSession(w, "u-2", req.Email, req.Name, "customer", "tok-456")
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"id": "u-1", "email": "pat@example.com", "name": "Pat Verified", "role": role},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLogin_FirstCandidateWins(t *testing.T) {
	srv := authBackend(t, "customer")
	st := newTestStorage(t)
	s, spy := newTestSession(t, Config{BaseURLs: []string{srv.URL}}, st)

	role, err := s.Login(context.Background(), "pat@example.com", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "customer", role)
	require.Len(t, spy.successes, 1)

	token, ok, err := st.GetRaw(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-123", token)

	var user models.User
	found, err := st.GetJSON(context.Background(), storage.KeyUser, &user)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "pat@example.com", user.Email)
}

func TestLogin_FallsThroughOn404(t *testing.T) {
	first := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(first.Close)
	second := authBackend(t, "vendor")

	st := newTestStorage(t)
	s, _ := newTestSession(t, Config{BaseURLs: []string{first.URL, second.URL}}, st)

	role, err := s.Login(context.Background(), "pat@example.com", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "vendor", role)
}

func TestLogin_RejectsNonCanonicalBody(t *testing.T) {
	junk := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	t.Cleanup(junk.Close)

	st := newTestStorage(t)
	s, spy := newTestSession(t, Config{BaseURLs: []string{junk.URL}}, st)

	_, err := s.Login(context.Background(), "pat@example.com", "secret", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Nil(t, s.Current())
	assert.NotEmpty(t, spy.errors)
}

func TestLogin_AccessTokenFieldAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"user":        map[string]string{"id": "u-9", "email": "x@example.com", "name": "X", "role": "customer"},
			"accessToken": "tok-alt",
		})
	}))
	t.Cleanup(srv.Close)

	s, _ := newTestSession(t, Config{BaseURLs: []string{srv.URL}}, newTestStorage(t))

	_, err := s.Login(context.Background(), "x@example.com", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "tok-alt", s.Token())
}

func TestLogin_OfflineFallback(t *testing.T) {
	st := newTestStorage(t)
	s, spy := newTestSession(t, Config{
		BaseURLs:        []string{deadURL(t)},
		OfflineLogin:    true,
		OfflineEmail:    "admin@partshub.dev",
		OfflinePassword: "dev-only",
	}, st)

	role, err := s.Login(context.Background(), "admin@partshub.dev", "dev-only", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
	assert.True(t, s.IsAdmin())
	assert.NotEmpty(t, s.Token())
	require.Len(t, spy.successes, 1)

	// The synthetic session persists like a real one.
	var user models.User
	found, err := st.GetJSON(context.Background(), storage.KeyUser, &user)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestLogin_OfflineFallbackRequiresFlag(t *testing.T) {
	s, spy := newTestSession(t, Config{
		BaseURLs:        []string{deadURL(t)},
		OfflineLogin:    false,
		OfflineEmail:    "admin@partshub.dev",
		OfflinePassword: "dev-only",
	}, newTestStorage(t))

	_, err := s.Login(context.Background(), "admin@partshub.dev", "dev-only", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Nil(t, s.Current())
	assert.NotEmpty(t, spy.errors)
}

func TestLogin_WrongOfflineCredentialsFail(t *testing.T) {
	s, _ := newTestSession(t, Config{
		BaseURLs:        []string{deadURL(t)},
		OfflineLogin:    true,
		OfflineEmail:    "admin@partshub.dev",
		OfflinePassword: "dev-only",
	}, newTestStorage(t))

	_, err := s.Login(context.Background(), "admin@partshub.dev", "nope", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestRegister_UsesBackend(t *testing.T) {
	srv := authBackend(t, "customer")
	st := newTestStorage(t)
	s, _ := newTestSession(t, Config{BaseURLs: []string{srv.URL}}, st)

	require.NoError(t, s.Register(context.Background(), "new@example.com", "secret", "New Person"))

	u := s.Current()
	require.NotNil(t, u)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, "New Person", u.Name)
	assert.Equal(t, models.RoleCustomer, u.Role)
}

func TestLogout_ClearsMemoryAndStorage(t *testing.T) {
	srv := authBackend(t, "customer")
	st := newTestStorage(t)
	s, _ := newTestSession(t, Config{BaseURLs: []string{srv.URL}}, st)

	_, err := s.Login(context.Background(), "pat@example.com", "secret", "")
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background()))
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Token())

	_, ok, err := st.GetRaw(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = st.GetRaw(context.Background(), storage.KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAuth_NoPersistedSession(t *testing.T) {
	s, _ := newTestSession(t, Config{BaseURLs: []string{deadURL(t)}}, newTestStorage(t))
	assert.False(t, s.CheckAuth(context.Background()))
}

func TestCheckAuth_TrustsStoredUserWhenOffline(t *testing.T) {
	ctx := context.Background()
	st := newTestStorage(t)
	require.NoError(t, st.PutRaw(ctx, storage.KeyToken, "stale-token"))
	require.NoError(t, st.PutJSON(ctx, storage.KeyUser, models.User{
		ID: "u-7", Email: "kept@example.com", Name: "Kept", Role: models.RoleVendor,
	}))

	s, _ := newTestSession(t, Config{BaseURLs: []string{deadURL(t)}}, st)

	require.True(t, s.CheckAuth(ctx))
	u := s.Current()
	require.NotNil(t, u)
	assert.Equal(t, "kept@example.com", u.Email)
	assert.Equal(t, "stale-token", s.Token())
}

func TestCheckAuth_StoredUserWithoutEmailRejected(t *testing.T) {
	ctx := context.Background()
	st := newTestStorage(t)
	require.NoError(t, st.PutJSON(ctx, storage.KeyUser, models.User{ID: "u-8", Name: "No Email"}))

	s, _ := newTestSession(t, Config{BaseURLs: []string{deadURL(t)}}, st)
	assert.False(t, s.CheckAuth(ctx))
}

func TestCheckAuth_CorruptStoredUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStorage(t)
	require.NoError(t, st.PutRaw(ctx, storage.KeyUser, "][ not json"))

	s, _ := newTestSession(t, Config{BaseURLs: []string{deadURL(t)}}, st)
	assert.False(t, s.CheckAuth(ctx))
	assert.Nil(t, s.Current())
}

func TestCheckAuth_VerifiesAgainstBackendWhenOnline(t *testing.T) {
	ctx := context.Background()
	srv := authBackend(t, "customer")
	st := newTestStorage(t)
	require.NoError(t, st.PutRaw(ctx, storage.KeyToken, "tok-123"))
	require.NoError(t, st.PutJSON(ctx, storage.KeyUser, models.User{
		ID: "u-1", Email: "pat@example.com", Name: "Pat Stale", Role: "customer",
	}))

	s, _ := newTestSession(t, Config{BaseURLs: []string{srv.URL}}, st)

	require.True(t, s.CheckAuth(ctx))
	u := s.Current()
	require.NotNil(t, u)
	assert.Equal(t, "Pat Verified", u.Name, "verify response wins over the stale record")
}

func TestCheckAuth_VerifyFailureFallsBackToStoredUser(t *testing.T) {
	ctx := context.Background()
	srv := authBackend(t, "customer")
	st := newTestStorage(t)
	require.NoError(t, st.PutRaw(ctx, storage.KeyToken, "revoked-token"))
	require.NoError(t, st.PutJSON(ctx, storage.KeyUser, models.User{
		ID: "u-1", Email: "pat@example.com", Name: "Pat Stale", Role: "customer",
	}))

	s, _ := newTestSession(t, Config{BaseURLs: []string{srv.URL}}, st)

	require.True(t, s.CheckAuth(ctx))
	u := s.Current()
	require.NotNil(t, u)
	assert.Equal(t, "Pat Stale", u.Name)
}

func TestCheckBackendConnection(t *testing.T) {
	srv := authBackend(t, "customer")

	online, _ := newTestSession(t, Config{BaseURLs: []string{deadURL(t), srv.URL}}, newTestStorage(t))
	assert.True(t, online.CheckBackendConnection(context.Background()))

	offline, _ := newTestSession(t, Config{BaseURLs: []string{deadURL(t)}}, newTestStorage(t))
	assert.False(t, offline.CheckBackendConnection(context.Background()))
}

func TestIsAdmin(t *testing.T) {
	s, _ := newTestSession(t, Config{}, newTestStorage(t))
	assert.False(t, s.IsAdmin())
}
