package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/sirupsen/logrus"
)

// ErrClosed - поток сообщений закрыт со стороны Redis
var ErrClosed = errors.New("realtime: subscription closed")

const bufferSize = 64

type Subscriber struct {
	redisClient *redis.Client
	logger      *logrus.Logger
}

func NewSubscriber(redisClient *redis.Client, logger *logrus.Logger) *Subscriber {
	return &Subscriber{redisClient: redisClient, logger: logger}
}

// Subscribe подписывает пользователя на общий канал инцидентов и его личный канал уведомлений.
// Вызывающий обязан вызвать close.
func (s *Subscriber) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Message, func() error, error) {
	pubsub := s.redisClient.Subscribe(ctx, incidentsChannel, notificationsChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to realtime channels: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"component": "realtime",
		"user_id":   userID,
	})
	out := make(chan Message, bufferSize)
	go func() {
		defer close(out)
		for raw := range pubsub.Channel() {
			m, err := decode(raw.Payload)
			if err != nil {
				log.WithError(err).Warn("Skipping malformed realtime message")
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close, nil
}

// Filter пропускает события инцидентов из области видимости актора и только его уведомления
func Filter(actor access.Actor) func(Message) bool {
	scope := access.ReadScope(actor)
	return func(m Message) bool {
		switch m.Kind {
		case KindIncident:
			e := m.Incident
			return scope.Allows(access.IncidentRef{
				ReporterID:     e.ReporterID,
				MunicipalityID: e.MunicipalityID,
				BarangayID:     e.BarangayID,
				AssigneeIDs:    e.AssigneeIDs,
			})
		case KindNotification:
			return m.Notification.UserID == actor.ID
		}
		return false
	}
}

// Pump пересылает допущенные allow сообщения в write до отмены ctx, закрытия in или ошибки записи
func Pump(ctx context.Context, in <-chan Message, allow func(Message) bool, write func(context.Context, Message) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-in:
			if !ok {
				return ErrClosed
			}
			if allow != nil && !allow(m) {
				continue
			}
			if err := write(ctx, m); err != nil {
				return err
			}
		}
	}
}
