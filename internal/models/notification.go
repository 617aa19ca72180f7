package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationNewIncident       NotificationType = "new_incident"
	NotificationIncidentAssigned  NotificationType = "incident_assigned"
	NotificationStatusUpdate      NotificationType = "status_update"
	NotificationEscalationRequest NotificationType = "escalation_request"
)

// NotificationPriority - urgent клиент воспроизводит отдельным звуковым сигналом
type NotificationPriority string

const (
	PriorityNormal NotificationPriority = "normal"
	PriorityUrgent NotificationPriority = "urgent"
)

type Notification struct {
	ID         uuid.UUID            `json:"id"`
	UserID     uuid.UUID            `json:"user_id"`
	IncidentID *uuid.UUID           `json:"incident_id,omitempty"`
	Type       NotificationType     `json:"notification_type"`
	Priority   NotificationPriority `json:"priority"`
	Title      string               `json:"title"`
	Message    string               `json:"message"`
	IsRead     bool                 `json:"is_read"`
	ReadAt     *time.Time           `json:"read_at,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}
