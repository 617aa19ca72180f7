package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type IncidentType string

const (
	IncidentFire            IncidentType = "fire"
	IncidentMedical         IncidentType = "medical"
	IncidentAccident        IncidentType = "accident"
	IncidentNaturalDisaster IncidentType = "natural_disaster"
	IncidentCrime           IncidentType = "crime"
	IncidentOther           IncidentType = "other"
)

func (t IncidentType) IsValid() bool {
	switch t {
	case IncidentFire, IncidentMedical, IncidentAccident, IncidentNaturalDisaster, IncidentCrime, IncidentOther:
		return true
	}
	return false
}

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// IncidentStatus - состояние инцидента в жизненном цикле
type IncidentStatus string

const (
	StatusReported   IncidentStatus = "reported"
	StatusAssigned   IncidentStatus = "assigned"
	StatusInProgress IncidentStatus = "in_progress"
	StatusResolved   IncidentStatus = "resolved"
	StatusCancelled  IncidentStatus = "cancelled"
)

// порядок статусов; переходы допускаются только вперёд
var statusRank = map[IncidentStatus]int{
	StatusReported:   0,
	StatusAssigned:   1,
	StatusInProgress: 2,
	StatusResolved:   3,
}

func (s IncidentStatus) IsValid() bool {
	switch s {
	case StatusReported, StatusAssigned, StatusInProgress, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal - resolved и cancelled не имеют исходящих переходов
func (s IncidentStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// CanTransitionTo проверяет допустимость перехода s -> next.
// cancelled достижим из любого нетерминального состояния, остальные переходы монотонны.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() || s == next {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// StatusPtr удобен для nullable полей журнала изменений
func StatusPtr(s IncidentStatus) *IncidentStatus {
	return &s
}

const GPSUnavailableMarker = "(GPS not available)"

// WithLocationFallback помечает адрес, если координаты деградировали до (0,0)
func WithLocationFallback(address string, lat, lon float64) string {
	address = strings.TrimSpace(address)
	if lat != 0 || lon != 0 || strings.Contains(address, GPSUnavailableMarker) {
		return address
	}
	if address == "" {
		return GPSUnavailableMarker
	}
	return address + " " + GPSUnavailableMarker
}

type Incident struct {
	ID              uuid.UUID      `json:"id"`
	ReporterID      uuid.UUID      `json:"reporter_id"`
	Type            IncidentType   `json:"incident_type"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	LocationAddress string         `json:"location_address"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	BarangayID      *uuid.UUID     `json:"barangay_id,omitempty"`
	MunicipalityID  *uuid.UUID     `json:"municipality_id,omitempty"`
	Urgency         Urgency        `json:"urgency_level"`
	Status          IncidentStatus `json:"status"`
	ContactNumber   *string        `json:"contact_number,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ApplyStatus переводит инцидент в новый статус; resolved_at выставляется только при resolved
func (i *Incident) ApplyStatus(next IncidentStatus, now time.Time) {
	i.Status = next
	if next == StatusResolved {
		t := now
		i.ResolvedAt = &t
	} else {
		i.ResolvedAt = nil
	}
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

type IncidentMedia struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	FilePath   string    `json:"file_path"`
	FileName   string    `json:"file_name"`
	FileType   MediaType `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	CreatedAt  time.Time `json:"created_at"`
	// URL не хранится в бд, заполняется ссылкой из объектного хранилища
	URL string `json:"url,omitempty"`
}

type UpdateKind string

const (
	UpdateReported     UpdateKind = "reported"
	UpdateStatusChange UpdateKind = "status_change"
	UpdateAssignment   UpdateKind = "assignment"
	UpdateEscalation   UpdateKind = "escalation"
)

// IncidentUpdate - неизменяемая запись журнала инцидента
type IncidentUpdate struct {
	ID             uuid.UUID       `json:"id"`
	IncidentID     uuid.UUID       `json:"incident_id"`
	UpdatedBy      uuid.UUID       `json:"updated_by"`
	Kind           UpdateKind      `json:"kind"`
	Message        string          `json:"message"`
	PreviousStatus *IncidentStatus `json:"previous_status"`
	NewStatus      *IncidentStatus `json:"new_status"`
	CreatedAt      time.Time       `json:"created_at"`
}

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentWithdrawn AssignmentStatus = "withdrawn"
)

type Assignment struct {
	ID          uuid.UUID        `json:"id"`
	IncidentID  uuid.UUID        `json:"incident_id"`
	ResponderID uuid.UUID        `json:"responder_id"`
	AssignedBy  uuid.UUID        `json:"assigned_by"`
	Status      AssignmentStatus `json:"status"`
	Notes       *string          `json:"notes,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// IncidentDetail - инцидент со всеми связанными сущностями для детального просмотра
type IncidentDetail struct {
	Incident     *Incident
	Reporter     *User
	Municipality *Municipality
	Barangay     *Barangay
	Media        []*IncidentMedia
	Updates      []*IncidentUpdate
	Assignments  []*Assignment
	Acknowledged bool
}

// IncidentFilter - фильтры списка инцидентов; nil означает отсутствие фильтра
type IncidentFilter struct {
	Status         *IncidentStatus
	Type           *IncidentType
	MunicipalityID *uuid.UUID
	BarangayID     *uuid.UUID
	Urgency        *Urgency
	DateFrom       *time.Time
	DateTo         *time.Time
}

// MonthlyStat - агрегат инцидентов за календарный месяц
type MonthlyStat struct {
	Month     string         `json:"month"`
	Total     int            `json:"total"`
	ByType    map[string]int `json:"by_type"`
	ByStatus  map[string]int `json:"by_status"`
	ByUrgency map[string]int `json:"by_urgency"`
}
