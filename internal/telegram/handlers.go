package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/chat"
	"assistant-dashboard/internal/form"
	"assistant-dashboard/internal/nav"
)

const (
	welcomeText = "Hi! I relay your messages to the AI assistant.\n\n" +
		"/signup <name> <email> <password> - create an account\n" +
		"/login <email> <password> - log in\n" +
		"/history - your past prompts\n" +
		"/logout - log out\n\n" +
		"After logging in, just send a message."
	signupUsage    = "Usage: /signup <name> <email> <password>"
	loginUsage     = "Usage: /login <email> <password>"
	loggedOutText  = "You are not logged in. Use /login <email> <password> to continue."
	loginHintText  = "Now log in with /login <email> <password>."
	chatReadyText  = "Send any message to chat with the assistant."
	waitingText    = "Still waiting for the previous answer."
	noHistoryText  = "No history yet"
	unknownCommand = "Unknown command. Send /start for help."
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, welcomeText)
	case "signup":
		b.handleSignup(ctx, chatID, strings.Fields(msg.CommandArguments()))
	case "login":
		b.handleLogin(ctx, chatID, strings.Fields(msg.CommandArguments()))
	case "logout":
		b.handleLogout(chatID)
	case "history":
		b.handleHistory(chatID)
	default:
		b.sendMessage(chatID, unknownCommand)
	}
}

// navigator turns navigation side effects into chat messages.
func (b *Bot) navigator(chatID int64) nav.Navigator {
	return nav.Func(func(to nav.Route) {
		switch to {
		case nav.Home:
			b.sendMessage(chatID, loggedOutText)
		case nav.Login:
			b.sendMessage(chatID, loginHintText)
		case nav.Dashboard:
			// A fresh token invalidates any controller built for the old one.
			b.dropChat(chatID)
		}
	})
}

func (b *Bot) formOptions(chatID int64) []form.Option {
	return []form.Option{
		form.WithRedirectDelay(b.redirectDelay),
		form.WithLogger(b.logger.With(zap.Int64("chat_id", chatID))),
	}
}

// handleSignup takes the last two arguments as email and password and the
// rest as the name.
func (b *Bot) handleSignup(ctx context.Context, chatID int64, args []string) {
	if len(args) < 3 {
		b.sendMessage(chatID, signupUsage)
		return
	}
	n := len(args)
	f := form.NewSignup(b.backend, b.navigator(chatID), b.formOptions(chatID)...)
	_ = f.Set(form.FieldName, strings.Join(args[:n-2], " "))
	_ = f.Set(form.FieldEmail, args[n-2])
	_ = f.Set(form.FieldPassword, args[n-1])
	b.submitForm(ctx, chatID, f, signupUsage)
}

func (b *Bot) handleLogin(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.sendMessage(chatID, loginUsage)
		return
	}
	f := form.NewLogin(b.backend, b.storeFor(chatID), b.navigator(chatID), b.formOptions(chatID)...)
	_ = f.Set(form.FieldEmail, args[0])
	_ = f.Set(form.FieldPassword, args[1])
	if b.submitForm(ctx, chatID, f, loginUsage) {
		b.sendMessage(chatID, chatReadyText)
	}
}

func (b *Bot) submitForm(ctx context.Context, chatID int64, f *form.Form, usage string) bool {
	err := f.Submit(ctx)
	var missing *form.MissingFieldError
	if errors.As(err, &missing) {
		b.sendMessage(chatID, usage)
		return false
	}
	st := f.State()
	if st.Error != "" {
		b.sendMessage(chatID, st.Error)
		return false
	}
	b.sendMessage(chatID, st.Success)
	return err == nil
}

func (b *Bot) handleLogout(chatID int64) {
	b.mu.Lock()
	ctrl, ok := b.chats[chatID]
	delete(b.chats, chatID)
	b.mu.Unlock()
	if ok {
		if err := ctrl.Logout(); err != nil {
			b.logger.Warn("logout failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		ctrl.Wait()
		return
	}
	if err := b.storeFor(chatID).Clear(); err != nil {
		b.logger.Warn("logout failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.navigator(chatID).Navigate(nav.Home)
}

func (b *Bot) handleHistory(chatID int64) {
	ctrl, mounted, ok := b.chatFor(chatID)
	if !ok {
		return
	}
	// Mount already started a fetch for a fresh controller.
	if !mounted {
		ctrl.RefreshHistory()
	}
	ctrl.Wait()
	st := ctrl.State()
	if len(st.History) == 0 {
		b.sendMessage(chatID, noHistoryText)
		return
	}
	b.sendMessage(chatID, formatHistory(st.History))
}

func formatHistory(entries []api.HistoryEntry) string {
	var sb strings.Builder
	sb.WriteString("History:\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s", i+1, e.Prompt)
		if !e.Timestamp.IsZero() {
			fmt.Fprintf(&sb, " (%s)", e.Timestamp.Local().Format("2006-01-02 15:04"))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ctrl, _, ok := b.chatFor(chatID)
	if !ok {
		return
	}
	ex, err := ctrl.Submit(msg.Text)
	switch {
	case errors.Is(err, chat.ErrBlankMessage):
		return
	case errors.Is(err, chat.ErrWaiting):
		b.sendMessage(chatID, waitingText)
		return
	case err != nil:
		b.logger.Warn("submit rejected", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	b.logger.Info("incoming message", zap.Int64("chat_id", chatID), zap.Int64("user_id", msg.From.ID), zap.String("turn_id", ex.User.ID))

	reply, err := ex.Wait(ctx)
	if err != nil {
		notice := ctrl.State().Notice
		if notice == "" {
			notice = api.AskFailedMessage
		}
		b.sendMessage(chatID, notice)
		return
	}
	b.sendMessage(chatID, reply.Content)
}

// chatFor returns the controller of a chat; mounted reports that it was
// created by this call. When the chat has no usable token the guard redirect
// tells the user to log in and ok is false.
func (b *Bot) chatFor(chatID int64) (ctrl *chat.Controller, mounted, ok bool) {
	store := b.storeFor(chatID)
	b.mu.Lock()
	ctrl, ok = b.chats[chatID]
	b.mu.Unlock()
	if ok {
		if _, has := store.Get(); has && !store.Expired(time.Now()) {
			return ctrl, false, true
		}
		b.dropChat(chatID)
	}

	opts := []chat.Option{chat.WithLogger(b.logger.With(zap.Int64("chat_id", chatID)))}
	if b.recorder != nil {
		opts = append(opts, chat.WithRecorder(b.recorder))
	}
	ctrl = chat.New(b.backend, store, b.navigator(chatID), opts...)
	if !ctrl.Mount() {
		ctrl.Close()
		return nil, false, false
	}
	b.mu.Lock()
	b.chats[chatID] = ctrl
	b.mu.Unlock()
	return ctrl, true, true
}

func (b *Bot) dropChat(chatID int64) {
	b.mu.Lock()
	ctrl, ok := b.chats[chatID]
	delete(b.chats, chatID)
	b.mu.Unlock()
	if ok {
		ctrl.Close()
	}
}
