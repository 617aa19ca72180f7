// Package realtime доставляет изменения инцидентов и новые уведомления подписчикам websocket
// через каналы Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

const (
	incidentsChannel           = "realtime:incidents"
	notificationsChannelPrefix = "realtime:notifications:"
)

func notificationsChannel(userID uuid.UUID) string {
	return notificationsChannelPrefix + userID.String()
}

type MessageKind string

const (
	KindReady        MessageKind = "ready"
	KindIncident     MessageKind = "incident"
	KindNotification MessageKind = "notification"
)

// Message - кадр, который получает клиент websocket
type Message struct {
	Kind         MessageKind           `json:"kind"`
	Incident     *models.IncidentEvent `json:"incident,omitempty"`
	Notification *models.Notification  `json:"notification,omitempty"`
}

// Publisher публикует события после фиксации транзакции
type Publisher struct {
	redisClient *redis.Client
}

func NewPublisher(redisClient *redis.Client) service.RealtimePublisher {
	return &Publisher{redisClient: redisClient}
}

func encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal realtime message: %w", err)
	}
	return payload, nil
}

func decode(payload string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal realtime message: %w", err)
	}
	if (m.Kind == KindIncident && m.Incident == nil) || (m.Kind == KindNotification && m.Notification == nil) {
		return Message{}, fmt.Errorf("realtime message %q without body", m.Kind)
	}
	return m, nil
}

func (p *Publisher) PublishIncident(ctx context.Context, event models.IncidentEvent) error {
	payload, err := encode(Message{Kind: KindIncident, Incident: &event})
	if err != nil {
		return err
	}
	if err := p.redisClient.Publish(ctx, incidentsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish incident event: %w", err)
	}
	return nil
}

// PublishNotifications отправляет каждое уведомление в личный канал получателя одним pipeline
func (p *Publisher) PublishNotifications(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	_, err := p.redisClient.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, n := range notifications {
			payload, err := encode(Message{Kind: KindNotification, Notification: n})
			if err != nil {
				return err
			}
			pipe.Publish(ctx, notificationsChannel(n.UserID), payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish notifications: %w", err)
	}
	return nil
}
