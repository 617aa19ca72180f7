package models

import (
	"time"

	"github.com/google/uuid"
)

type IncidentEventType string

const (
	EventIncidentCreated       IncidentEventType = "incident.created"
	EventIncidentStatusChanged IncidentEventType = "incident.status_changed"
	EventIncidentAssigned      IncidentEventType = "incident.assigned"
	EventIncidentEscalated     IncidentEventType = "incident.escalated"
)

// IncidentEvent публикуется после фиксации транзакции: в realtime-канал и в очередь исходящих доставок
type IncidentEvent struct {
	Type           IncidentEventType `json:"type"`
	IncidentID     uuid.UUID         `json:"incident_id"`
	Title          string            `json:"title"`
	IncidentType   IncidentType      `json:"incident_type"`
	Urgency        Urgency           `json:"urgency_level"`
	Status         IncidentStatus    `json:"status"`
	PreviousStatus *IncidentStatus   `json:"previous_status,omitempty"`
	ReporterID     uuid.UUID         `json:"reporter_id"`
	MunicipalityID *uuid.UUID        `json:"municipality_id,omitempty"`
	BarangayID     *uuid.UUID        `json:"barangay_id,omitempty"`
	AssigneeIDs    []uuid.UUID       `json:"assignee_ids,omitempty"`
	ActorID        uuid.UUID         `json:"actor_id"`
	Message        string            `json:"message,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

func NewIncidentEvent(typ IncidentEventType, inc *Incident, actorID uuid.UUID, at time.Time) IncidentEvent {
	return IncidentEvent{
		Type:           typ,
		IncidentID:     inc.ID,
		Title:          inc.Title,
		IncidentType:   inc.Type,
		Urgency:        inc.Urgency,
		Status:         inc.Status,
		ReporterID:     inc.ReporterID,
		MunicipalityID: inc.MunicipalityID,
		BarangayID:     inc.BarangayID,
		ActorID:        actorID,
		OccurredAt:     at,
	}
}

// IncidentCount - строка агрегата для месячной статистики
type IncidentCount struct {
	Month   time.Time
	Type    IncidentType
	Status  IncidentStatus
	Urgency Urgency
	Count   int
}
