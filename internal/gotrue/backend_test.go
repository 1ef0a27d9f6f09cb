package gotrue

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testEmail    = "a@b.com"
	testPassword = "secret"
)

// fakeBackend is a minimal GoTrue lookalike.
type fakeBackend struct {
	srv *httptest.Server

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	userCalls    atomic.Int32

	// refreshDelay slows down refresh answers to provoke concurrent refreshes.
	refreshDelay time.Duration
	// expiresIn of issued sessions, default 3600.
	expiresIn int64
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{expiresIn: 3600}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", fb.token)
	mux.HandleFunc("/user", fb.user)
	mux.HandleFunc("/logout", fb.logout)

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)

	return fb
}

func (fb *fakeBackend) api(t *testing.T) *API {
	t.Helper()

	api, err := NewAPI(Options{URL: fb.srv.URL, APIKey: "anon", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewAPI() error = %v", err)
	}

	return api
}

func testUser() *User {
	return &User{ID: "user-1", Email: testEmail, Role: "authenticated", Aud: "authenticated"}
}

func (fb *fakeBackend) session(access, refresh string) *Session {
	return &Session{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    fb.expiresIn,
		RefreshToken: refresh,
		User:         testUser(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (fb *fakeBackend) token(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(headerAPIKey) != "anon" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "no api key"})
		return
	}

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Query().Get("grant_type") {
	case "password":
		if body["email"] != testEmail || body["password"] != testPassword {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials",
			})

			return
		}

		writeJSON(w, http.StatusOK, fb.session("at-valid", "rt-valid"))
	case "refresh_token":
		fb.refreshCalls.Add(1)
		time.Sleep(fb.refreshDelay)

		if body["refresh_token"] != "rt-valid" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"code": 400, "error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token",
			})

			return
		}

		writeJSON(w, http.StatusOK, fb.session("at-new", "rt-valid"))
	case "pkce":
		if body["auth_code"] != "code-1" || body["code_verifier"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "bad code"})
			return
		}

		writeJSON(w, http.StatusOK, fb.session("at-valid", "rt-valid"))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "unsupported grant"})
	}
}

func (fb *fakeBackend) user(w http.ResponseWriter, r *http.Request) {
	fb.userCalls.Add(1)

	switch strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") {
	case "at-valid", "at-new":
		writeJSON(w, http.StatusOK, testUser())
	default:
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "bad_jwt", "msg": "invalid JWT"})
	}
}

func (fb *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	fb.logoutCalls.Add(1)

	if r.Header.Get("Authorization") == "Bearer at-valid" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]any{"code": 404, "error_code": "session_not_found", "msg": "no session"})
}

// memStorage is an in-memory fiber.Storage.
type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (s *memStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data[key], nil
}

func (s *memStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), val...)

	return nil
}

func (s *memStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *memStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *memStorage) Close() error { return nil }

// memJar is a CookieJar over a plain map.
type memJar struct {
	in  []Cookie
	out []Cookie
}

func (j *memJar) GetAll() []Cookie { return j.in }

func (j *memJar) SetAll(cookies []Cookie) { j.out = append(j.out, cookies...) }

func (j *memJar) outByName() map[string]Cookie {
	m := make(map[string]Cookie, len(j.out))
	for _, c := range j.out {
		m[c.Name] = c
	}

	return m
}
