package service

import (
	"context"
	"io"

	"github.com/shenikar/emergency_response_system/internal/models"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// TxManager выполняет функцию в одной транзакции бд
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher ставит событие инцидента в очередь исходящих доставок (webhook, Telegram)
type EventPublisher interface {
	Publish(ctx context.Context, event models.IncidentEvent) error
}

// RealtimePublisher рассылает изменения подписчикам websocket
type RealtimePublisher interface {
	PublishIncident(ctx context.Context, event models.IncidentEvent) error
	PublishNotifications(ctx context.Context, notifications []*models.Notification) error
}

// MediaStore - объектное хранилище вложений инцидентов
type MediaStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}
