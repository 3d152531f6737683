package main

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/api/apitest"
	"assistant-dashboard/internal/session"
)

func newTestServer(t *testing.T, loggedIn bool) (*AssistantMCPServer, *apitest.Backend) {
	t.Helper()
	b := apitest.NewBackend()
	t.Cleanup(b.Close)
	b.AddUser("Ada", "ada@example.com", "secret")

	store := session.NewStore(session.NewMemoryRepository())
	if loggedIn {
		require.NoError(t, store.Set(apitest.TokenFor("ada@example.com")))
	}
	s := NewAssistantMCPServer(api.New(b.URL(), 5*time.Second), store, nil, zap.NewNop())
	t.Cleanup(s.Close)
	return s, b
}

func text(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func ask(s *AssistantMCPServer, message string) (*mcp.CallToolResultFor[any], error) {
	return s.Ask(context.Background(), nil, &mcp.CallToolParamsFor[AskParams]{Arguments: AskParams{Message: message}})
}

func history(s *AssistantMCPServer, limit int) (*mcp.CallToolResultFor[any], error) {
	return s.FetchHistory(context.Background(), nil, &mcp.CallToolParamsFor[HistoryParams]{Arguments: HistoryParams{Limit: limit}})
}

func TestAskRequiresLogin(t *testing.T) {
	s, b := newTestServer(t, false)

	res, err := ask(s, "hello")
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, notLoggedInText, text(t, res))
	assert.Empty(t, b.Requests())
}

func TestAskReturnsSanitizedReply(t *testing.T) {
	s, _ := newTestServer(t, true)

	res, err := ask(s, "hello")
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Echo: hello", text(t, res))
	assert.NotEmpty(t, res.Meta["turn_id"])
}

func TestAskBlank(t *testing.T) {
	s, b := newTestServer(t, true)

	res, err := ask(s, "   ")
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, b.Requests())
}

func TestAskBackendFailure(t *testing.T) {
	s, b := newTestServer(t, true)
	b.FailAsk(http.StatusBadGateway)

	res, err := ask(s, "hello")
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, api.AskFailedMessage, text(t, res))
}

func TestFetchHistory(t *testing.T) {
	s, _ := newTestServer(t, true)

	res, err := history(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "No history yet", text(t, res))

	for _, m := range []string{"one", "two", "three"} {
		_, err := ask(s, m)
		require.NoError(t, err)
	}

	res, err = history(s, 2)
	require.NoError(t, err)
	lines := strings.Split(text(t, res), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "two")
	assert.Contains(t, lines[1], "three")
	assert.Equal(t, 2, res.Meta["count"])
}

func TestFetchHistorySortsByTimestamp(t *testing.T) {
	s, b := newTestServer(t, true)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b.AddHistory("ada@example.com", "latest", base.Add(2*time.Hour))
	b.AddHistory("ada@example.com", "earliest", base)
	b.AddHistory("ada@example.com", "middle", base.Add(time.Hour))

	res, err := history(s, 0)
	require.NoError(t, err)
	lines := strings.Split(text(t, res), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "earliest")
	assert.Contains(t, lines[1], "middle")
	assert.Contains(t, lines[2], "latest")

	res, err = history(s, 1)
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "latest")
	assert.NotContains(t, text(t, res), "middle")
}

func TestFetchHistoryRequiresLogin(t *testing.T) {
	s, _ := newTestServer(t, false)

	res, err := history(s, 0)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
