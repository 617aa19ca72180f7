package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/sirupsen/logrus"
)

const signatureHeader = "X-Webhook-Signature"

type WebhookConfig struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// WebhookSink отправляет каждое событие POST-запросом с HMAC-подписью тела
type WebhookSink struct {
	cfg        WebhookConfig
	logger     *logrus.Logger
	httpClient *http.Client
}

func NewWebhookSink(cfg WebhookConfig, logger *logrus.Logger) *WebhookSink {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &WebhookSink{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Accepts(models.IncidentEvent) bool { return true }

func (s *WebhookSink) Deliver(ctx context.Context, event models.IncidentEvent, payload []byte) error {
	log := s.logger.WithFields(logrus.Fields{
		"sink":        s.Name(),
		"incident_id": event.IncidentID,
	})

	delay := s.cfg.BaseDelay
	var lastErr error
	for i := 0; i < s.cfg.MaxRetries; i++ {
		if i > 0 {
			log.WithError(lastErr).Warnf("Webhook delivery failed. Retrying in %v. Retries left: %d", delay, s.cfg.MaxRetries-i)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2 // Экспоненциальная задержка
		}
		if lastErr = s.post(ctx, event, payload); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

func (s *WebhookSink) post(ctx context.Context, event models.IncidentEvent, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	// Добавляем HMAC подпись, если WEBHOOK_SECRET задан
	if s.cfg.Secret != "" {
		req.Header.Set(signatureHeader, Sign(payload, s.cfg.Secret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status code %d", resp.StatusCode)
	}
	return nil
}

// Sign - HMAC-SHA256 тела запроса в hex
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
