package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/chat"
	"assistant-dashboard/internal/nav"
	"assistant-dashboard/internal/session"
)

const notLoggedInText = "not logged in: run `dashboard login <email> <password>` first"

// AskParams are the arguments of ask_assistant.
type AskParams struct {
	Message string `json:"message" mcp:"the prompt to send to the assistant"`
}

// HistoryParams are the arguments of fetch_history.
type HistoryParams struct {
	Limit int `json:"limit,omitempty" mcp:"maximum number of most recent entries to return (default: all)"`
}

// AssistantMCPServer exposes the logged-in dashboard session to MCP clients.
type AssistantMCPServer struct {
	client *api.Client
	store  *session.Store
	chat   *chat.Controller
	logger *zap.Logger
}

func NewAssistantMCPServer(client *api.Client, store *session.Store, opts []chat.Option, logger *zap.Logger) *AssistantMCPServer {
	// There is no view to redirect; a missing token is reported per call.
	ctrl := chat.New(client, store, nav.Func(func(nav.Route) {}), opts...)
	return &AssistantMCPServer{client: client, store: store, chat: ctrl, logger: logger}
}

func (s *AssistantMCPServer) Close() {
	s.chat.Close()
	s.chat.Wait()
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// token returns the stored token unless it is absent or expired.
func (s *AssistantMCPServer) token() (string, bool) {
	token, ok := s.store.Get()
	if !ok || s.store.Expired(time.Now()) {
		return "", false
	}
	return token, true
}

// Ask sends one message through the chat controller and returns the
// sanitized reply.
func (s *AssistantMCPServer) Ask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[AskParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if _, ok := s.token(); !ok {
		return errorResult(notLoggedInText), nil
	}

	ex, err := s.chat.Submit(args.Message)
	switch {
	case errors.Is(err, chat.ErrBlankMessage):
		return errorResult("message must not be blank"), nil
	case errors.Is(err, chat.ErrWaiting):
		return errorResult("another request is still waiting for the assistant"), nil
	case err != nil:
		return errorResult(err.Error()), nil
	}
	s.logger.Info("ask_assistant", zap.String("turn_id", ex.User.ID), zap.Int("chars", len(args.Message)))

	reply, err := ex.Wait(ctx)
	if err != nil {
		notice := s.chat.State().Notice
		if notice == "" {
			notice = api.UserMessage(err, api.AskFailedMessage)
		}
		return errorResult(notice), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: reply.Content}},
		Meta: map[string]interface{}{
			"turn_id": ex.User.ID,
		},
	}, nil
}

// FetchHistory lists the prompts stored by the backend, oldest first.
func (s *AssistantMCPServer) FetchHistory(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[HistoryParams]) (*mcp.CallToolResultFor[any], error) {
	token, ok := s.token()
	if !ok {
		return errorResult(notLoggedInText), nil
	}
	entries, err := s.client.History(ctx, token)
	if err != nil {
		s.logger.Warn("fetch_history failed", zap.Error(err))
		return errorResult(api.UserMessage(err, "Failed to fetch history")), nil
	}
	// The backend does not promise an order.
	slices.SortStableFunc(entries, func(a, b api.HistoryEntry) int {
		return a.Timestamp.Compare(b.Timestamp.Time)
	})
	if limit := params.Arguments.Limit; limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if len(entries) == 0 {
		return &mcp.CallToolResultFor[any]{
			Content: []mcp.Content{&mcp.TextContent{Text: "No history yet"}},
			Meta:    map[string]interface{}{"count": 0},
		}, nil
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", e.ID, e.Timestamp.UTC().Format(time.RFC3339), e.Prompt)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: strings.TrimRight(sb.String(), "\n")}},
		Meta:    map[string]interface{}{"count": len(entries)},
	}, nil
}
