// Package notify pushes shared plans to Telegram. The notifier is
// optional: without a bot token it turns into a no-op so the rest of
// the app never has to care.
package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends plan text to a configured chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// New builds a notifier. An empty token or zero chat id yields a
// disabled notifier and no error.
func New(token string, chatID int64, log *slog.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return &Notifier{log: log}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Info("telegram notifications enabled", "bot", bot.Self.UserName)
	return &Notifier{bot: bot, chatID: chatID, log: log}, nil
}

// Enabled reports whether sends will actually go out.
func (n *Notifier) Enabled() bool {
	return n.bot != nil
}

// SharePlan sends the rendered plan text. Disabled notifiers return nil.
func (n *Notifier) SharePlan(text string) error {
	if n.bot == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send plan to telegram: %w", err)
	}
	n.log.Info("plan shared to telegram", "chat_id", n.chatID)
	return nil
}
