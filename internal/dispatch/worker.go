package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/sirupsen/logrus"
)

const popTimeout = 5 * time.Second

// Worker - обработчик очереди доставки
type Worker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	sinks       []Sink
	retryDelay  time.Duration
	wg          sync.WaitGroup
}

// NewWorker создает Worker; retryDelay - пауза после ошибки Redis
func NewWorker(redisClient *redis.Client, logger *logrus.Logger, retryDelay time.Duration, sinks ...Sink) *Worker {
	return &Worker{
		redisClient: redisClient,
		logger:      logger,
		sinks:       sinks,
		retryDelay:  retryDelay,
	}
}

// Start запускает горутину обработки очереди; Wait дожидается её остановки после отмены ctx
func (w *Worker) Start(ctx context.Context) {
	if len(w.sinks) == 0 {
		w.logger.Warn("No dispatch sinks configured, dispatch worker is not started")
		return
	}
	w.logger.WithField("sinks", len(w.sinks)).Info("Starting dispatch worker...")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			if ctx.Err() != nil {
				w.logger.Info("Stopping dispatch worker.")
				return
			}

			result, err := w.redisClient.BRPop(ctx, popTimeout, queueKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				w.logger.WithError(err).Error("Failed to pop dispatch event from Redis")
				select {
				case <-ctx.Done():
				case <-time.After(w.retryDelay):
				}
				continue
			}

			// result[0] - ключ, result[1] - значение
			w.Handle(ctx, []byte(result[1]))
		}
	}()
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

// Handle доставляет одно событие всем принимающим его получателям.
// Ошибка одного получателя не мешает остальным.
func (w *Worker) Handle(ctx context.Context, payload []byte) {
	var event models.IncidentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		w.logger.WithError(err).Error("Failed to unmarshal dispatch event from Redis")
		return
	}

	log := w.logger.WithFields(logrus.Fields{
		"component":   "dispatch",
		"event_type":  event.Type,
		"incident_id": event.IncidentID,
	})
	log.Debug("Processing dispatch event...")

	for _, sink := range w.sinks {
		if !sink.Accepts(event) {
			continue
		}
		slog := log.WithField("sink", sink.Name())
		if err := sink.Deliver(ctx, event, payload); err != nil {
			slog.WithError(err).Error("Failed to deliver dispatch event")
			continue
		}
		slog.Info("Dispatch event delivered")
	}
}
