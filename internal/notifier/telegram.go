package notifier

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/escalation"
)

// Notifier alerts human reviewers about escalated conversations.
// Fire-and-forget: delivery failures are logged, never propagated.
type Notifier interface {
	NotifyEscalation(sessionID string, result escalation.Result, inputPreview string)
}

// TelegramNotifier posts escalation alerts to a reviewers chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramNotifier returns nil (disabled) when no token is configured.
func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		logger.Info("Telegram escalation notifier is disabled (no token or chat id configured)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	logger.Info("Telegram escalation notifier authorized", zap.String("username", botAPI.Self.UserName))

	return &TelegramNotifier{api: botAPI, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) NotifyEscalation(sessionID string, result escalation.Result, inputPreview string) {
	if n == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "⚠️ Escalation: %s (%s)\n", result.Type, result.Urgency)
	fmt.Fprintf(&sb, "Reason: %s\n", result.Reason)
	fmt.Fprintf(&sb, "Session: %s\n", sessionID)
	if len(result.Triggers) > 0 {
		sb.WriteString("Triggers:\n")
		for _, t := range result.Triggers {
			fmt.Fprintf(&sb, "  - [%s] %q\n", t.Category, t.Keyword)
		}
	}
	fmt.Fprintf(&sb, "Input: %s", inputPreview)

	msg := tgbotapi.NewMessage(n.chatID, sb.String())
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error("Failed to send escalation notification", zap.Error(err),
			zap.String("session_id", sessionID), zap.String("type", result.Type))
	}
}
