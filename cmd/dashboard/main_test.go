package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant-dashboard/internal/api/apitest"
)

func setupEnv(t *testing.T) *apitest.Backend {
	t.Helper()
	b := apitest.NewBackend()
	t.Cleanup(b.Close)
	b.AddUser("Ada", "ada@example.com", "secret")

	dir := t.TempDir()
	t.Setenv("BACKEND_URL", b.URL())
	t.Setenv("SESSION_FILE_PATH", filepath.Join(dir, "session.json"))
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "logs", "dashboard.log"))
	t.Setenv("EXCHANGE_LOG_PATH", filepath.Join(dir, "exchanges.jsonl"))
	t.Setenv("SIGNUP_REDIRECT_DELAY", "10ms")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HISTORY_SYNC_SCHEDULE", "")
	require.NoError(t, os.Unsetenv("HISTORY_SYNC_SCHEDULE"))
	return b
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSessionLifecycle(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: logged out")

	_, err = run(t, "ask", "hello")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out, err = run(t, "login", "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful!")

	out, err = run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: logged in")
	assert.Contains(t, out, "Today:")

	out, err = run(t, "ask", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello there\n", out)

	out, err = run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "hello there")

	out, err = run(t, "exchanges")
	require.NoError(t, err)
	assert.Contains(t, out, "1 exchanges")

	out, err = run(t, "exchanges", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "You: hello there")
	assert.Contains(t, out, "AI: Echo: hello there")

	out, err = run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	_, err = run(t, "history")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoginFailure(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "login", "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestSignupWaitsForRedirect(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "signup", "Grace", "grace@example.com", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Signup successful! Redirecting to login...")
	assert.Contains(t, out, "Next: dashboard login")
}

func TestSignupPrintsSuccessBeforeRedirect(t *testing.T) {
	setupEnv(t)
	t.Setenv("SIGNUP_REDIRECT_DELAY", "1ns")

	for i := 0; i < 20; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		out, err := run(t, "signup", "User", email, "pw")
		require.NoError(t, err)

		success := strings.Index(out, "Signup successful!")
		next := strings.Index(out, "Next: dashboard login")
		require.GreaterOrEqual(t, success, 0, out)
		require.GreaterOrEqual(t, next, 0, out)
		assert.Less(t, success, next, out)
	}
}

func TestSignupDuplicate(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "signup", "Ada", "ada@example.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestAskBackendFailure(t *testing.T) {
	b := setupEnv(t)
	_, err := run(t, "login", "ada@example.com", "secret")
	require.NoError(t, err)
	b.FailAsk(500)

	_, err = run(t, "ask", "hello")
	require.Error(t, err)
	assert.Equal(t, "Failed to get response from AI", err.Error())
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("BACKEND_URL", "ftp://nowhere")

	_, err := run(t, "status")
	assert.Error(t, err)
}
