package dispatch

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shenikar/emergency_response_system/internal/models"
)

//go:generate mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks

// Sink - получатель событий из очереди
type Sink interface {
	Name() string
	Accepts(event models.IncidentEvent) bool
	Deliver(ctx context.Context, event models.IncidentEvent, payload []byte) error
}

// TelegramSender - часть tgbotapi.BotAPI, которой пользуется TelegramSink
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
