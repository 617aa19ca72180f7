package dispatch

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shenikar/emergency_response_system/internal/models"
)

// TelegramSink дублирует в чат дежурной смены запросы эскалации и новые критические инциденты
type TelegramSink struct {
	api    TelegramSender
	chatID int64
}

// NewTelegramSink авторизует бота по токену
func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	return NewTelegramSinkWithSender(api, chatID), nil
}

func NewTelegramSinkWithSender(api TelegramSender, chatID int64) *TelegramSink {
	return &TelegramSink{api: api, chatID: chatID}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Accepts(event models.IncidentEvent) bool {
	switch event.Type {
	case models.EventIncidentEscalated:
		return true
	case models.EventIncidentCreated:
		return event.Urgency == models.UrgencyCritical
	}
	return false
}

func (s *TelegramSink) Deliver(_ context.Context, event models.IncidentEvent, _ []byte) error {
	msg := tgbotapi.NewMessage(s.chatID, formatTelegramText(event))
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}

func formatTelegramText(event models.IncidentEvent) string {
	var b strings.Builder
	switch event.Type {
	case models.EventIncidentEscalated:
		b.WriteString("🚨 Municipal assistance requested\n\n")
	default:
		b.WriteString("🔥 New critical incident\n\n")
	}
	fmt.Fprintf(&b, "Incident: %s\n", event.Title)
	fmt.Fprintf(&b, "Type: %s\nUrgency: %s\nStatus: %s\n", event.IncidentType, event.Urgency, event.Status)
	if event.Message != "" {
		fmt.Fprintf(&b, "\nReason: %s\n", event.Message)
	}
	fmt.Fprintf(&b, "\nID: %s", event.IncidentID)
	return b.String()
}
