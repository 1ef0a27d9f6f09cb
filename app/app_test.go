package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalboard/evalboard/internal/authstate"
	"github.com/evalboard/evalboard/internal/gotrue"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "secret"
)

// fakeGoTrue answers password sign-in and logout.
type fakeGoTrue struct {
	logouts atomic.Int32
	// expiresIn of issued sessions, 3600 when zero.
	expiresIn int64
}

func (f *fakeGoTrue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/token" && r.URL.Query().Get("grant_type") == "password":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body["email"] != testEmail || body["password"] != testPassword {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)

			return
		}

		expiresIn := f.expiresIn
		if expiresIn == 0 {
			expiresIn = 3600
		}

		_ = json.NewEncoder(w).Encode(&gotrue.Session{
			AccessToken:  "at",
			TokenType:    "bearer",
			ExpiresIn:    expiresIn,
			RefreshToken: "rt",
			User:         &gotrue.User{ID: "user-1", Email: testEmail},
		})
	case r.URL.Path == "/logout":
		f.logouts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"msg":"not found"}`)
	}
}

// testConfigFile writes a config pointing at authURL with a sqlite session
// store in a temp dir.
func testConfigFile(t *testing.T, authURL string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.toml")

	content := fmt.Sprintf(`title = "evalboard"

[log]
logLevel = "warn"

[auth]
url = %q
anonKey = "anon"
requestTimeout = "2s"

[storage]
driver = "sqlite"
path = %q
table = "evalboard_kv"
`, authURL, filepath.Join(dir, "session.db"))

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func run(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.Execute()

	return out.String(), err
}

func TestSessionLifecycle(t *testing.T) {
	fake := &fakeGoTrue{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	configPath := testConfigFile(t, srv.URL)

	_, err := run(t, configPath, "", "whoami")
	require.ErrorIs(t, err, ErrNotSignedIn)

	out, err := run(t, configPath, "", "login", "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "signed in as "+testEmail+"\n", out)

	out, err = run(t, configPath, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "email:   "+testEmail)
	assert.Contains(t, out, "id:      user-1")

	out, err = run(t, configPath, "", "login", "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "already signed in as "+testEmail+"\n", out)

	out, err = run(t, configPath, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "signed out\n", out)
	assert.Equal(t, int32(1), fake.logouts.Load())

	out, err = run(t, configPath, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "not signed in\n", out)

	_, err = run(t, configPath, "", "whoami")
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(&fakeGoTrue{})
	t.Cleanup(srv.Close)

	_, err := run(t, testConfigFile(t, srv.URL), "", "login", "-e", testEmail, "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	srv := httptest.NewServer(&fakeGoTrue{})
	t.Cleanup(srv.Close)

	configPath := testConfigFile(t, srv.URL)

	out, err := run(t, configPath, testPassword+"\n", "login", "-e", testEmail)
	require.NoError(t, err)
	assert.Equal(t, "signed in as "+testEmail+"\n", out)

	_, err = run(t, testConfigFile(t, srv.URL), "\n", "login", "-e", testEmail)
	require.ErrorIs(t, err, errEmptyPassword)
}

func TestLogin_Unreachable(t *testing.T) {
	srv := httptest.NewServer(&fakeGoTrue{})
	configPath := testConfigFile(t, srv.URL)
	srv.Close()

	_, err := run(t, configPath, "", "login", "-e", testEmail, "-p", testPassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth backend not reachable")
}

func TestBackendDownKeepsStoredSession(t *testing.T) {
	// expires inside the default refresh margin, so every check needs the backend
	srv := httptest.NewServer(&fakeGoTrue{expiresIn: 5})
	configPath := testConfigFile(t, srv.URL)

	_, err := run(t, configPath, "", "login", "-e", testEmail, "-p", testPassword)
	require.NoError(t, err)

	srv.Close()

	_, err = run(t, configPath, "", "whoami")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotSignedIn)
	assert.Contains(t, err.Error(), "auth backend not reachable")

	out, err := run(t, configPath, "", "logout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth backend not reachable")
	assert.NotContains(t, out, "not signed in")
}

func TestConfigDump(t *testing.T) {
	out, err := run(t, testConfigFile(t, "http://localhost:9999"), "", "config", "dump")
	require.NoError(t, err)

	assert.Contains(t, out, "http://localhost:9999")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, `"anon"`)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, testConfigFile(t, ""), "", "config", "dump")
	require.Error(t, err)
}

func TestRenderDashboard(t *testing.T) {
	user := &gotrue.User{ID: "user-1", Email: testEmail}

	tests := []struct {
		name  string
		state authstate.State
		want  []string
	}{
		{name: "loading", state: authstate.State{Status: authstate.StatusLoading}, want: []string{"checking session"}},
		{name: "anonymous", state: authstate.State{Status: authstate.StatusAnonymous}, want: []string{"signed out"}},
		{
			name:  "authenticated",
			state: authstate.State{Status: authstate.StatusAuthenticated, User: user},
			want:  []string{"welcome back, " + testEmail, "Total Evaluations", "Pending Review", "8.5"},
		},
		{
			name: "errored keeps the user",
			state: authstate.State{
				Status: authstate.StatusErrored,
				User:   user,
				Err:    fmt.Errorf("refresh: %w", gotrue.ErrNetwork),
			},
			want: []string{"welcome back", "warning: auth backend not reachable"},
		},
		{
			name:  "errored without user",
			state: authstate.State{Status: authstate.StatusErrored, Err: errors.New("boom")},
			want:  []string{"signed out"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer

			renderDashboard(&b, tt.state)

			for _, want := range tt.want {
				assert.Contains(t, b.String(), want)
			}
		})
	}
}
