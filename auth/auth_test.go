package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"snap2sell/db"
	"snap2sell/gateway"
	"snap2sell/globals"
	"snap2sell/logging"
	"snap2sell/models"
	"snap2sell/mq"
	"snap2sell/nav"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": `{"user_id":"u1","role":"consumer"}`,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

type fakeBackend struct {
	access        string
	logoutCalls   atomic.Int32
	failLogout    bool
	failProfile   bool
	echoOnUpdate  bool
	rejectUpdates bool
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	consumer := models.User{UserID: "u1", Name: "Asha", Email: "asha@example.com", Role: models.RoleConsumer}

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login carried a bearer token")
		}
		if in["password"] != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": f.access, "refresh_token": "r1", "user": consumer})
	})
	mux.HandleFunc("/api/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var in models.SignupProfile
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Email == "taken@example.com" {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "Email already registered"})
			return
		}
		if in.Email == "broken@example.com" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"access_token": f.access, "refresh_token": "r1",
			"user": models.User{UserID: "u2", Name: in.Name, Email: in.Email, Role: in.Role},
		})
	})
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if f.failProfile || r.Header.Get("Authorization") != "Bearer "+f.access {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": consumer})
	})
	mux.HandleFunc("/api/auth/update-profile", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectUpdates {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Phone is invalid"})
			return
		}
		if f.echoOnUpdate {
			u := consumer
			u.Name = "Server Name"
			writeJSON(w, http.StatusOK, map[string]any{"data": u})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		if f.failLogout {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "error", "message": "Refresh token expired"})
	})
	return mux
}

type fixture struct {
	sess    *Session
	store   *db.MemoryStore
	backend *fakeBackend
	events  *[]string
}

func newFixture(t *testing.T, b *fakeBackend) fixture {
	t.Helper()
	if b.access == "" {
		b.access = signed(t, time.Now().Add(time.Hour))
	}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)

	log := logging.Discard()
	store := db.NewMemoryStore()
	bus := mq.NewBus(log)
	events := &[]string{}
	bus.Subscribe("", func(_ context.Context, ev mq.Event) { *events = append(*events, ev.Name) })

	vault := NewVault(store, log)
	api := gateway.New(gateway.Options{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second, Bus: bus, Logger: log}, vault)
	return fixture{sess: NewSession(api, vault, store, bus, log), store: store, backend: b, events: events}
}

func TestLoginConsumerRoutesToMarketplace(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()

	res := fx.sess.Login(ctx, "asha@example.com", "secret1")
	if !res.Success || res.User == nil {
		t.Fatalf("Login = %+v", res)
	}
	if res.User.Role != models.RoleConsumer {
		t.Fatalf("role = %s, want consumer", res.User.Role)
	}
	if got := nav.HomeFor(res.User.Role); got != nav.Marketplace {
		t.Fatalf("next route = %s, want %s", got, nav.Marketplace)
	}

	st := fx.sess.Snapshot(ctx)
	if !st.IsAuthenticated || st.User.UserID != "u1" {
		t.Fatalf("state = %+v", st)
	}
	for _, key := range []string{globals.AccessTokenKey, globals.RefreshTokenKey, globals.UserKey} {
		if _, err := fx.store.Get(ctx, key); err != nil {
			t.Errorf("%s not persisted: %v", key, err)
		}
	}
}

func TestLoginFailureCarriesServerMessage(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()

	res := fx.sess.Login(ctx, "asha@example.com", "wrong")
	if res.Success || res.Error != "Invalid email or password" {
		t.Fatalf("Login = %+v", res)
	}
	if fx.sess.IsAuthenticated(ctx) {
		t.Fatal("failed login authenticated the session")
	}
	if fx.sess.LastError() != res.Error {
		t.Fatalf("LastError = %q", fx.sess.LastError())
	}
}

func TestSignup(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()

	res := fx.sess.Signup(ctx, models.SignupProfile{Name: "Ravi", Email: "ravi@example.com", Password: "secret1", Role: models.RoleFarmer})
	if !res.Success || res.User.Role != models.RoleFarmer {
		t.Fatalf("Signup = %+v", res)
	}

	res = fx.sess.Signup(ctx, models.SignupProfile{Email: "taken@example.com", Password: "secret1"})
	if res.Success || res.Error != "Email already registered" {
		t.Fatalf("Signup taken = %+v", res)
	}
	res = fx.sess.Signup(ctx, models.SignupProfile{Email: "broken@example.com", Password: "secret1"})
	if res.Error != "Signup failed" {
		t.Fatalf("Signup fallback = %+v", res)
	}
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	fx := newFixture(t, &fakeBackend{access: "placeholder"})
	ctx := context.Background()
	fx.backend.access = signed(t, time.Now().Add(-time.Minute))

	if res := fx.sess.Login(ctx, "asha@example.com", "secret1"); !res.Success {
		t.Fatalf("Login = %+v", res)
	}
	if fx.sess.IsAuthenticated(ctx) {
		t.Fatal("expired access token counted as authenticated")
	}
}

func TestRestore(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()

	if st := fx.sess.Snapshot(ctx); !st.Loading {
		t.Fatal("session should start loading")
	}
	_ = fx.store.Set(ctx, globals.AccessTokenKey, fx.backend.access)
	_ = fx.store.Set(ctx, globals.RefreshTokenKey, "r1")

	st := fx.sess.Restore(ctx)
	if st.Loading || !st.IsAuthenticated || st.User == nil || st.User.Email != "asha@example.com" {
		t.Fatalf("Restore = %+v", st)
	}
}

func TestRestoreWithoutToken(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	st := fx.sess.Restore(context.Background())
	if st.Loading || st.IsAuthenticated {
		t.Fatalf("Restore = %+v", st)
	}
}

func TestRestoreFailureDiscardsTokens(t *testing.T) {
	fx := newFixture(t, &fakeBackend{failProfile: true})
	ctx := context.Background()
	_ = fx.store.Set(ctx, globals.AccessTokenKey, fx.backend.access)
	_ = fx.store.Set(ctx, globals.RefreshTokenKey, "r1")

	st := fx.sess.Restore(ctx)
	if st.Loading || st.IsAuthenticated {
		t.Fatalf("Restore = %+v", st)
	}
	for _, key := range []string{globals.AccessTokenKey, globals.RefreshTokenKey} {
		if _, err := fx.store.Get(ctx, key); !errors.Is(err, db.ErrNotFound) {
			t.Errorf("%s survived failed restore", key)
		}
	}
}

func TestLogoutIgnoresServerFailure(t *testing.T) {
	fx := newFixture(t, &fakeBackend{failLogout: true})
	ctx := context.Background()
	fx.sess.Login(ctx, "asha@example.com", "secret1")

	fx.sess.Logout(ctx)
	if fx.backend.logoutCalls.Load() != 1 {
		t.Fatalf("logout calls = %d", fx.backend.logoutCalls.Load())
	}
	if st := fx.sess.Snapshot(ctx); st.IsAuthenticated || st.User != nil {
		t.Fatalf("state after logout = %+v", st)
	}
	for _, key := range []string{globals.AccessTokenKey, globals.RefreshTokenKey, globals.UserKey} {
		if _, err := fx.store.Get(ctx, key); !errors.Is(err, db.ErrNotFound) {
			t.Errorf("%s survived logout", key)
		}
	}
	if last := (*fx.events)[len(*fx.events)-1]; last != globals.EventLoggedOut {
		t.Fatalf("last event = %s", last)
	}
}

func TestUpdateProfile(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()
	fx.sess.Login(ctx, "asha@example.com", "secret1")

	phone := "9876543210"
	res := fx.sess.UpdateProfile(ctx, models.ProfilePatch{Phone: &phone})
	if !res.Success || res.User.Phone != phone || res.User.Name != "Asha" {
		t.Fatalf("UpdateProfile = %+v", res)
	}

	fx.backend.echoOnUpdate = true
	name := "ignored"
	res = fx.sess.UpdateProfile(ctx, models.ProfilePatch{Name: &name})
	if !res.Success || res.User.Name != "Server Name" {
		t.Fatalf("UpdateProfile echo = %+v", res)
	}

	raw, _ := fx.store.Get(ctx, globals.UserKey)
	var stored models.User
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.Name != "Server Name" {
		t.Fatalf("persisted user = %s", raw)
	}
}

func TestUpdateProfileFailureKeepsState(t *testing.T) {
	fx := newFixture(t, &fakeBackend{rejectUpdates: true})
	ctx := context.Background()
	fx.sess.Login(ctx, "asha@example.com", "secret1")
	before, _ := fx.store.Get(ctx, globals.UserKey)

	phone := "x"
	res := fx.sess.UpdateProfile(ctx, models.ProfilePatch{Phone: &phone})
	if res.Success || res.Error != "Phone is invalid" {
		t.Fatalf("UpdateProfile = %+v", res)
	}
	after, _ := fx.store.Get(ctx, globals.UserKey)
	if before != after || fx.sess.User().Phone != "" {
		t.Fatal("failed update mutated the session")
	}
}

func TestSessionLostDropsUser(t *testing.T) {
	fx := newFixture(t, &fakeBackend{})
	ctx := context.Background()
	fx.sess.Login(ctx, "asha@example.com", "secret1")

	// the backend now rejects the token and the refresh token
	fx.backend.failProfile = true
	st := fx.sess.Restore(ctx)
	if st.IsAuthenticated || fx.sess.User() != nil {
		t.Fatalf("state = %+v", st)
	}
	lost := 0
	for _, ev := range *fx.events {
		if ev == globals.EventSessionLost {
			lost++
		}
	}
	if lost != 1 {
		t.Fatalf("session-lost events = %d, want 1", lost)
	}
}
