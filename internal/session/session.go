package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/partshub/storefront/internal/events"
	"github.com/partshub/storefront/internal/models"
	"github.com/partshub/storefront/internal/notify"
	"github.com/partshub/storefront/internal/storage"
)

var (
	ErrLoginFailed = errors.New("login failed")
	ErrBadResponse = errors.New("bad response")
	ErrUnreachable = errors.New("backend unreachable")
)

type Config struct {
	// BaseURLs are the candidate backends, tried in order. The first one
	// that answers authoritatively wins.
	BaseURLs []string

	// Offline dev affordance: when enabled and every candidate fails, the
	// configured credential pair yields a locally minted admin session.
	// Never a security boundary.
	OfflineLogin    bool
	OfflineEmail    string
	OfflinePassword string

	// JWTSecret signs offline session tokens.
	JWTSecret []byte
}

// Store owns the authenticated identity. A session is fully present or fully
// absent; any unreadable persisted state is treated as absence. Public
// operations serialize on a mutex so overlapping calls cannot interleave
// persistence writes.
type Store struct {
	mu      sync.Mutex
	user    *models.User
	token   string
	online  bool
	checked bool

	cfg      Config
	client   *http.Client
	storage  *storage.Store
	notifier notify.Notifier
	producer *events.Producer
	log      *slog.Logger
}

func New(cfg Config, st *storage.Store, n notify.Notifier, p *events.Producer, log *slog.Logger) *Store {
	return &Store{
		cfg: cfg,
		client: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		storage:  st,
		notifier: n,
		producer: p,
		log:      log,
	}
}

// Login tries each candidate base URL in order; a 404, transport error or
// malformed body falls through to the next one. On total failure the offline
// dev pair, when enabled, still yields an admin session. Returns the session
// role so the caller can route on it; never panics.
func (s *Store) Login(ctx context.Context, email, password, role string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.log.With("op", "session.login", "email", email)

	for _, base := range s.cfg.BaseURLs {
		resp, err := s.postCredentials(ctx, base+"/auth/login", credentialsRequest{
			Email:    email,
			Password: password,
			Role:     role,
		})
		if err != nil {
			l.Warn("login candidate failed", "base", base, "error", err)
			continue
		}

		user := resp.User.toUser(resp.bearer())
		if err := s.establishLocked(ctx, user); err != nil {
			return "", err
		}
		s.online = true
		s.checked = true
		s.notifier.Success(fmt.Sprintf("Welcome back, %s", user.Name))
		s.publishUser(ctx, "user_logged_in", user)
		return user.Role, nil
	}

	if s.offlineMatch(email, password) {
		user, err := s.offlineUser(email, "Offline Admin", models.RoleAdmin)
		if err != nil {
			l.Error("offline session mint failed", "error", err)
			s.notifier.Error("Could not sign in")
			return "", ErrLoginFailed
		}
		if err := s.establishLocked(ctx, user); err != nil {
			return "", err
		}
		l.Info("offline login", "role", user.Role)
		s.notifier.Success("Signed in (offline mode)")
		s.publishUser(ctx, "user_logged_in", user)
		return user.Role, nil
	}

	s.notifier.Error("Could not sign in. Check your credentials and connection.")
	return "", ErrLoginFailed
}

// Register performs a real registration against the backend using the same
// candidate loop as Login. With offline mode on and no reachable backend it
// falls back to a local customer session so the dev loop keeps working.
func (s *Store) Register(ctx context.Context, email, password, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.log.With("op", "session.register", "email", email)

	for _, base := range s.cfg.BaseURLs {
		resp, err := s.postCredentials(ctx, base+"/auth/register", credentialsRequest{
			Email:    email,
			Password: password,
			Name:     name,
		})
		if err != nil {
			l.Warn("register candidate failed", "base", base, "error", err)
			continue
		}

		user := resp.User.toUser(resp.bearer())
		if err := s.establishLocked(ctx, user); err != nil {
			return err
		}
		s.online = true
		s.checked = true
		s.notifier.Success(fmt.Sprintf("Welcome, %s", user.Name))
		s.publishUser(ctx, "user_registered", user)
		return nil
	}

	if s.cfg.OfflineLogin {
		user, err := s.offlineUser(email, name, models.RoleCustomer)
		if err != nil {
			s.notifier.Error("Could not create account")
			return ErrLoginFailed
		}
		if err := s.establishLocked(ctx, user); err != nil {
			return err
		}
		l.Info("offline registration")
		s.notifier.Success("Account created (offline mode)")
		s.publishUser(ctx, "user_registered", user)
		return nil
	}

	s.notifier.Error("Could not create account. Check your connection.")
	return ErrLoginFailed
}

// Logout clears the session in memory and in storage.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.user
	s.user = nil
	s.token = ""

	if err := s.storage.Delete(ctx, storage.KeyToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	if err := s.storage.Delete(ctx, storage.KeyUser); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}

	s.notifier.Info("Signed out")
	if prev != nil {
		s.publishUser(ctx, "user_logged_out", *prev)
	}
	return nil
}

// CheckAuth restores the persisted session. When the backend is reachable the
// token is verified against it; on any verification failure the persisted
// user record is trusted as-is, provided it at least carries an email.
// Reports whether a usable session was established.
func (s *Store) CheckAuth(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, _, err := s.storage.GetRaw(ctx, storage.KeyToken)
	if err != nil {
		s.log.Warn("persisted token unreadable", "error", err)
	}

	var user models.User
	hasUser, err := s.storage.GetJSON(ctx, storage.KeyUser, &user)
	if err != nil {
		s.log.Warn("persisted user unreadable, treating as signed out", "error", err)
		return false
	}
	if !hasUser && token == "" {
		return false
	}

	if !s.checked {
		s.probeLocked(ctx)
	}

	if s.online && token != "" {
		if verified, err := s.verify(ctx, token); err == nil {
			verified.Token = token
			if err := s.establishLocked(ctx, *verified); err == nil {
				return true
			}
		} else {
			s.log.Warn("token verify failed, falling back to stored session", "error", err)
		}
	}

	if user.Email == "" {
		return false
	}
	user.Token = token
	s.user = &user
	s.token = token
	return true
}

// CheckBackendConnection probes the candidate health endpoints once and
// reports whether any answered.
func (s *Store) CheckBackendConnection(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checked {
		s.probeLocked(ctx)
	}
	return s.online
}

func (s *Store) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.Role == models.RoleAdmin
}

func (s *Store) Current() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) postCredentials(ctx context.Context, url string, body credentialsRequest) (*loginResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s not found: %w", url, ErrUnreachable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrLoginFailed)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode body: %w", ErrBadResponse)
	}
	if out.User == nil || out.User.Email == "" || out.bearer() == "" {
		return nil, fmt.Errorf("missing user or token: %w", ErrBadResponse)
	}
	return &out, nil
}

func (s *Store) verify(ctx context.Context, token string) (*models.User, error) {
	for _, base := range s.cfg.BaseURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/auth/verify", nil)
		if err != nil {
			continue
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := s.client.Do(req)
		if err != nil {
			continue
		}

		var out verifyResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("verify status %d: %w", resp.StatusCode, ErrLoginFailed)
		}
		if decodeErr != nil || out.User == nil || out.User.Email == "" {
			return nil, fmt.Errorf("verify body: %w", ErrBadResponse)
		}
		u := out.User.toUser(token)
		return &u, nil
	}
	return nil, ErrUnreachable
}

func (s *Store) probeLocked(ctx context.Context) {
	s.checked = true
	for _, base := range s.cfg.BaseURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
		if err != nil {
			continue
		}
		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Debug("health probe failed", "base", base, "error", err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.online = true
			return
		}
	}
	s.online = false
}

func (s *Store) establishLocked(ctx context.Context, user models.User) error {
	s.user = &user
	s.token = user.Token
	if err := s.storage.PutRaw(ctx, storage.KeyToken, user.Token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.PutJSON(ctx, storage.KeyUser, user); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (s *Store) offlineMatch(email, password string) bool {
	return s.cfg.OfflineLogin &&
		s.cfg.OfflinePassword != "" &&
		email == s.cfg.OfflineEmail &&
		password == s.cfg.OfflinePassword
}

func (s *Store) offlineUser(email, name, role string) (models.User, error) {
	id := uuid.NewString()
	secret := s.cfg.JWTSecret
	if len(secret) == 0 {
		secret = []byte("offline-dev-secret")
	}

	claims := jwt.MapClaims{
		"sub":   id,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return models.User{}, fmt.Errorf("sign offline token: %w", err)
	}

	if name == "" {
		name = email
	}
	return models.User{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  role,
		Token: token,
	}, nil
}

func (s *Store) publishUser(ctx context.Context, eventType string, user models.User) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event := map[string]any{
		"type":    eventType,
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	}
	if err := s.producer.PublishEvent(ctx, events.TopicUserEvents, user.ID, event); err != nil {
		s.log.Error("kafka publish error", "error", err)
	}
}
