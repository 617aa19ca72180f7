package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=notification.go -destination=mocks/mock_notification.go -package=mocks

// NotificationRepository - хранилище уведомлений. Все операции ограничены владельцем.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, perPage int) ([]*models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	MarkIncidentRead(ctx context.Context, userID, incidentID uuid.UUID, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type NotificationService interface {
	List(ctx context.Context, actor access.Actor, unreadOnly bool, page, perPage int) ([]*models.Notification, int, error)
	MarkRead(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, actor access.Actor) (int64, error)
	MarkIncidentRead(ctx context.Context, actor access.Actor, incidentID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, actor access.Actor) (int, error)
}

type notificationService struct {
	repo   NotificationRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewNotificationService(repo NotificationRepository, logger *logrus.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *notificationService) log(method string, actor access.Actor) *logrus.Entry {
	return s.logger.WithFields(logrus.Fields{
		"service": "notification",
		"method":  method,
		"user_id": actor.ID,
	})
}

func (s *notificationService) List(ctx context.Context, actor access.Actor, unreadOnly bool, page, perPage int) ([]*models.Notification, int, error) {
	page, perPage = NormalizePage(page, perPage, DefaultNotificationsPerPage)
	notifications, total, err := s.repo.List(ctx, actor.ID, unreadOnly, page, perPage)
	if err != nil {
		s.log("List", actor).WithError(err).Error("Failed to list notifications")
		return nil, 0, fmt.Errorf("service: could not list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead идемпотентна: повторная отметка возвращает уведомление с прежним read_at.
// Чужое уведомление неотличимо от несуществующего.
func (s *notificationService) MarkRead(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Notification, error) {
	log := s.log("MarkRead", actor).WithField("notification_id", id)
	n, err := s.repo.MarkRead(ctx, id, actor.ID, s.now())
	if err != nil {
		logFailure(log, err, "Failed to mark notification read")
		return nil, fmt.Errorf("service: could not mark notification read: %w", err)
	}
	log.Info("Notification marked read")
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor access.Actor) (int64, error) {
	log := s.log("MarkAllRead", actor)
	n, err := s.repo.MarkAllRead(ctx, actor.ID, s.now())
	if err != nil {
		log.WithError(err).Error("Failed to mark all notifications read")
		return 0, fmt.Errorf("service: could not mark notifications read: %w", err)
	}
	log.WithField("updated", n).Info("Notifications marked read")
	return n, nil
}

func (s *notificationService) MarkIncidentRead(ctx context.Context, actor access.Actor, incidentID uuid.UUID) (int64, error) {
	log := s.log("MarkIncidentRead", actor).WithField("incident_id", incidentID)
	n, err := s.repo.MarkIncidentRead(ctx, actor.ID, incidentID, s.now())
	if err != nil {
		log.WithError(err).Error("Failed to mark incident notifications read")
		return 0, fmt.Errorf("service: could not mark notifications read: %w", err)
	}
	log.WithField("updated", n).Info("Incident notifications marked read")
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, actor access.Actor) (int, error) {
	n, err := s.repo.UnreadCount(ctx, actor.ID)
	if err != nil {
		s.log("UnreadCount", actor).WithError(err).Error("Failed to count unread notifications")
		return 0, fmt.Errorf("service: could not count notifications: %w", err)
	}
	return n, nil
}
