package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"assistant-dashboard/internal/auth"
)

const (
	approvePrefix = "approve:"
	denyPrefix    = "deny:"

	accessRequestedText = "Your access request was sent to the administrator. You will be notified once it is approved."
	accessPendingText   = "Your access request is already waiting for the administrator."
	accessGrantedText   = "Access granted. Send /start to begin."
	accessDeniedText    = "Access denied."
)

// isAllowed is true for everyone when neither an allowlist nor an admin is
// configured.
func (b *Bot) isAllowed(userID int64) bool {
	return !b.restricted || userID == b.adminUserID || b.authSvc.IsAllowed(userID)
}

func (b *Bot) requestAccess(msg *tgbotapi.Message) {
	b.logger.Info("unauthorized access attempt", zap.Int64("user_id", msg.From.ID), zap.String("username", msg.From.UserName))

	b.mu.Lock()
	_, already := b.pending[msg.From.ID]
	user := auth.User{ID: msg.From.ID, Username: msg.From.UserName, FirstName: msg.From.FirstName, LastName: msg.From.LastName}
	if !already {
		b.pending[user.ID] = user
	}
	b.mu.Unlock()

	if already {
		b.sendMessage(msg.Chat.ID, accessPendingText)
		return
	}
	if b.pendingRepo != nil {
		if err := b.pendingRepo.Upsert(user); err != nil {
			b.logger.Warn("failed to persist access request", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}
	b.sendMessage(msg.Chat.ID, accessRequestedText)
	b.notifyAdminRequest(user)
}

func (b *Bot) notifyAdminRequest(user auth.User) {
	if b.adminUserID == 0 {
		return
	}
	text := fmt.Sprintf("User @%s (id %d) wants to use the bot", user.Username, user.ID)
	id := strconv.FormatInt(user.ID, 10)
	msg := tgbotapi.NewMessage(b.adminUserID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Allow", approvePrefix+id),
			tgbotapi.NewInlineKeyboardButtonData("Deny", denyPrefix+id),
		),
	)
	if _, err := b.s.Send(msg); err != nil {
		b.logger.Warn("failed to notify admin", zap.Error(err))
	}
}

// handleCallback only accepts decisions from the admin.
func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.From.ID != b.adminUserID || b.adminUserID == 0 {
		return
	}
	var (
		prefix  string
		approve bool
	)
	switch {
	case strings.HasPrefix(cb.Data, approvePrefix):
		prefix, approve = approvePrefix, true
	case strings.HasPrefix(cb.Data, denyPrefix):
		prefix = denyPrefix
	default:
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, prefix), 10, 64)
	if err != nil {
		b.logger.Warn("malformed callback data", zap.String("data", cb.Data))
		return
	}
	if approve {
		b.approveUser(id)
	} else {
		b.denyUser(id)
	}
}

func (b *Bot) takePending(userID int64) auth.User {
	b.mu.Lock()
	u, ok := b.pending[userID]
	delete(b.pending, userID)
	b.mu.Unlock()
	if !ok {
		u = auth.User{ID: userID}
	}
	if b.pendingRepo != nil {
		if err := b.pendingRepo.Remove(userID); err != nil {
			b.logger.Warn("failed to remove access request", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return u
}

func (b *Bot) approveUser(userID int64) {
	u := b.takePending(userID)
	if err := b.authSvc.Upsert(u); err != nil {
		b.logger.Error("failed to persist allowlist", zap.Int64("user_id", userID), zap.Error(err))
	}
	b.logger.Info("access granted", zap.Int64("user_id", userID))
	b.sendMessage(userID, accessGrantedText)
}

func (b *Bot) denyUser(userID int64) {
	b.takePending(userID)
	b.logger.Info("access denied", zap.Int64("user_id", userID))
	b.sendMessage(userID, accessDeniedText)
}
