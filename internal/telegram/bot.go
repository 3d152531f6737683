// Package telegram is the chat-bot view of the dashboard. Every Telegram
// chat owns its own backend session; the bot itself is gated by an
// allowlist managed by an admin.
package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"assistant-dashboard/internal/auth"
	"assistant-dashboard/internal/chat"
	"assistant-dashboard/internal/form"
	"assistant-dashboard/internal/session"
	"assistant-dashboard/internal/storage"
)

// Backend is the assistant service as used by the bot.
type Backend interface {
	form.Signer
	form.Authenticator
	chat.Assistant
}

type Config struct {
	Backend Backend
	// Sessions holds one token per chat under "access_token:<chat id>".
	Sessions session.Repository
	Auth     *auth.Service
	// Pending stores access requests awaiting the admin; optional.
	Pending       auth.Repository
	AdminUserID   int64
	RedirectDelay time.Duration
	Recorder      storage.Recorder
	Logger        *zap.Logger
}

type Bot struct {
	api *tgbotapi.BotAPI
	s   sender

	backend       Backend
	sessions      session.Repository
	authSvc       *auth.Service
	restricted    bool
	pendingRepo   auth.Repository
	adminUserID   int64
	redirectDelay time.Duration
	recorder      storage.Recorder
	logger        *zap.Logger

	mu      sync.Mutex
	pending map[int64]auth.User
	chats   map[int64]*chat.Controller
}

func New(botToken string, cfg Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, cfg)
	b.api = api
	b.logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(s sender, cfg Config) *Bot {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Auth == nil {
		cfg.Auth, _ = auth.NewWithRepo(nil, nil)
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = form.DefaultRedirectDelay
	}
	b := &Bot{
		s:             s,
		backend:       cfg.Backend,
		sessions:      cfg.Sessions,
		authSvc:       cfg.Auth,
		restricted:    cfg.AdminUserID != 0 || !cfg.Auth.Empty(),
		pendingRepo:   cfg.Pending,
		adminUserID:   cfg.AdminUserID,
		redirectDelay: cfg.RedirectDelay,
		recorder:      cfg.Recorder,
		logger:        cfg.Logger,
		pending:       make(map[int64]auth.User),
		chats:         make(map[int64]*chat.Controller),
	}
	if b.pendingRepo != nil {
		users, err := b.pendingRepo.LoadAll()
		if err != nil {
			b.logger.Warn("failed to load pending access requests", zap.Error(err))
		}
		for _, u := range users {
			b.pending[u.ID] = u
		}
	}
	return b
}

// Start polls for updates until ctx is cancelled. Updates are handled one
// at a time.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.closeChats()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return
		}
		if !b.isAllowed(msg.From.ID) {
			b.requestAccess(msg)
			return
		}
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		b.handleText(ctx, msg)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

// storeFor returns the session store of one chat.
func (b *Bot) storeFor(chatID int64) *session.Store {
	return session.NewStore(b.sessions,
		session.WithKey(fmt.Sprintf("%s:%d", session.DefaultKey, chatID)),
		session.WithLogger(b.logger),
	)
}

func (b *Bot) closeChats() {
	b.mu.Lock()
	chats := b.chats
	b.chats = make(map[int64]*chat.Controller)
	b.mu.Unlock()
	for _, c := range chats {
		c.Close()
		c.Wait()
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
