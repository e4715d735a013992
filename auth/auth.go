package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"snap2sell/db"
	"snap2sell/gateway"
	"snap2sell/globals"
	"snap2sell/middleware"
	"snap2sell/models"
	"snap2sell/mq"

	"github.com/sirupsen/logrus"
)

// Result is what every session operation hands back instead of an error.
type Result struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func failure(msg string) Result { return Result{Error: msg} }

// State is a point-in-time view of the session.
type State struct {
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
}

// Session owns the current user and the token pair.
type Session struct {
	api   *gateway.Client
	vault *Vault
	store db.Storage
	bus   *mq.Bus
	log   logrus.FieldLogger
	now   func() time.Time

	mu      sync.RWMutex
	user    *models.User
	loading bool
	lastErr string
}

func NewSession(api *gateway.Client, vault *Vault, store db.Storage, bus *mq.Bus, log logrus.FieldLogger) *Session {
	s := &Session{
		api:     api,
		vault:   vault,
		store:   store,
		bus:     bus,
		log:     log,
		now:     time.Now,
		loading: true,
	}
	if bus != nil {
		bus.Subscribe(globals.EventSessionLost, func(ctx context.Context, _ mq.Event) {
			s.drop(ctx, false)
		})
	}
	return s
}

// Restore rebuilds the session from a persisted access token by fetching the profile.
// Any failure discards both tokens. The loading flag is cleared on every path.
func (s *Session) Restore(ctx context.Context) State {
	s.restore(ctx)
	return s.Snapshot(ctx)
}

func (s *Session) restore(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if s.vault.AccessToken(ctx) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	user, err := s.fetchProfile(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Restore session error")
		if clearErr := s.vault.ClearTokens(ctx); clearErr != nil {
			s.log.WithError(clearErr).Error("Restore clear tokens error")
		}
		s.mu.Lock()
		s.user = nil
		s.mu.Unlock()
		return
	}

	s.setUser(ctx, user)
	s.log.WithField("userId", user.UserID).Info("Session restored")
}

// Login exchanges credentials for a token pair.
func (s *Session) Login(ctx context.Context, email, password string) Result {
	return s.authenticate(ctx, "/auth/login", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, "Login failed")
}

// Signup creates an account and logs it in.
func (s *Session) Signup(ctx context.Context, profile models.SignupProfile) Result {
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.Role == "" {
		profile.Role = models.RoleConsumer
	}
	return s.authenticate(ctx, "/auth/signup", profile, "Signup failed")
}

func (s *Session) authenticate(ctx context.Context, path string, body any, fallback string) Result {
	var pair models.TokenPair
	err := s.api.DoJSON(ctx, &gateway.Request{
		Method:    http.MethodPost,
		Path:      path,
		Body:      body,
		Anonymous: true,
	}, &pair)
	if err != nil {
		s.log.WithError(err).WithField("path", path).Warn("Authenticate error")
		return s.fail(gateway.MessageFrom(err, fallback))
	}
	if pair.AccessToken == "" || pair.User == nil {
		s.log.WithField("path", path).Warn("Authenticate error: incomplete credential response")
		return s.fail(fallback)
	}

	if err := s.vault.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		s.log.WithError(err).Error("Authenticate store tokens error")
		return s.fail(fallback)
	}
	s.setUser(ctx, pair.User)
	s.clearErr()
	s.bus.Emit(ctx, globals.EventLoggedIn, *pair.User)
	s.log.WithFields(logrus.Fields{"userId": pair.User.UserID, "role": pair.User.Role}).Info("Logged in")

	u := *pair.User
	return Result{Success: true, User: &u}
}

// Logout tells the server (best effort) and always wipes the local session.
func (s *Session) Logout(ctx context.Context) {
	if s.vault.AccessToken(ctx) != "" {
		if err := s.api.Post(ctx, "/auth/logout", nil, nil); err != nil {
			s.log.WithError(err).Debug("Logout notify error")
		}
	}
	s.drop(ctx, true)
}

// UpdateProfile patches the current user's profile. State is untouched on failure.
func (s *Session) UpdateProfile(ctx context.Context, patch models.ProfilePatch) Result {
	current := s.User()
	if current == nil {
		return s.fail("Not logged in")
	}
	if patch.Empty() {
		return Result{Success: true, User: current}
	}

	var body envelope
	if err := s.api.Put(ctx, "/auth/update-profile", patch, &body); err != nil {
		s.log.WithError(err).Warn("UpdateProfile error")
		return s.fail(gateway.MessageFrom(err, "Update failed"))
	}

	updated := body.user()
	if updated == nil {
		// the backend acknowledges without echoing the record
		u := patch.Apply(*current)
		updated = &u
	}
	s.setUser(ctx, updated)
	s.clearErr()

	u := *updated
	return Result{Success: true, User: &u}
}

// Snapshot reports the session state. IsAuthenticated requires both a user and an unexpired
// access token.
func (s *Session) Snapshot(ctx context.Context) State {
	s.mu.RLock()
	var user *models.User
	if s.user != nil {
		u := *s.user
		user = &u
	}
	loading := s.loading
	s.mu.RUnlock()

	return State{
		User:            user,
		IsAuthenticated: user != nil && s.tokenUsable(ctx),
		Loading:         loading,
	}
}

// IsAuthenticated is Snapshot(ctx).IsAuthenticated.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	return s.Snapshot(ctx).IsAuthenticated
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// LastError is the message of the most recent failed operation, cleared on success.
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Tokens exposes the vault for wiring the gateway.
func (s *Session) Tokens() *Vault { return s.vault }

func (s *Session) tokenUsable(ctx context.Context) bool {
	token := s.vault.AccessToken(ctx)
	return token != "" && !middleware.Expired(token, s.now())
}

func (s *Session) fetchProfile(ctx context.Context) (*models.User, error) {
	var body envelope
	if err := s.api.Get(ctx, "/auth/profile", nil, &body); err != nil {
		return nil, err
	}
	u := body.user()
	if u == nil {
		return nil, errors.New("profile response carried no user")
	}
	return u, nil
}

func (s *Session) setUser(ctx context.Context, u *models.User) {
	cp := *u
	s.mu.Lock()
	s.user = &cp
	s.mu.Unlock()

	raw, err := json.Marshal(cp)
	if err != nil {
		s.log.WithError(err).Error("Encode user error")
		return
	}
	if err := s.store.Set(ctx, globals.UserKey, string(raw)); err != nil {
		s.log.WithError(err).Error("Persist user error")
	}
}

// drop clears tokens, the cached user and the in-memory identity. The gateway has already
// cleared the tokens when it fires the session-lost event.
func (s *Session) drop(ctx context.Context, clearTokens bool) {
	s.mu.Lock()
	had := s.user != nil
	s.user = nil
	s.mu.Unlock()

	if clearTokens {
		if err := s.vault.ClearTokens(ctx); err != nil {
			s.log.WithError(err).Error("Clear tokens error")
		}
	}
	if err := s.store.Delete(ctx, globals.UserKey); err != nil {
		s.log.WithError(err).Error("Clear user error")
	}
	if had {
		s.bus.Emit(ctx, globals.EventLoggedOut, nil)
		s.log.Info("Logged out")
	}
}

func (s *Session) fail(msg string) Result {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	return failure(msg)
}

func (s *Session) clearErr() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// envelope accepts both {"user": {...}} and {"data": {...}} profile bodies.
type envelope struct {
	User *models.User `json:"user"`
	Data *models.User `json:"data"`
}

func (e envelope) user() *models.User {
	if e.Data != nil && (e.Data.UserID != "" || e.Data.Email != "") {
		return e.Data
	}
	if e.User != nil && (e.User.UserID != "" || e.User.Email != "") {
		return e.User
	}
	return nil
}
