package v1

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

// RegisterRequest DTO для самостоятельной регистрации жителя
// @Description DTO для самостоятельной регистрации жителя
type RegisterRequest struct {
	Email          string  `json:"email" validate:"required,email,max=255"`
	Password       string  `json:"password" validate:"required,min=8,max=72"`
	FullName       string  `json:"full_name" validate:"required,min=2,max=255"`
	MunicipalityID string  `json:"municipality_id" validate:"omitempty,uuid"`
	BarangayID     string  `json:"barangay_id" validate:"omitempty,uuid"`
	PhoneNumber    *string `json:"phone_number,omitempty" validate:"omitempty,max=32"`
}

// LoginRequest DTO для входа
// @Description DTO для входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse DTO с токеном доступа и профилем
// @Description DTO с токеном доступа и профилем
type AuthResponse struct {
	User  *UserResponse  `json:"user"`
	Token *service.Token `json:"token"`
}

// CreateUserRequest DTO для создания учётной записи администратором
// @Description DTO для создания учётной записи администратором
type CreateUserRequest struct {
	Email          string  `json:"email" validate:"required,email,max=255"`
	Password       string  `json:"password" validate:"required,min=8,max=72"`
	FullName       string  `json:"full_name" validate:"required,min=2,max=255"`
	Role           string  `json:"role" validate:"required"`
	MunicipalityID string  `json:"municipality_id" validate:"omitempty,uuid"`
	BarangayID     string  `json:"barangay_id" validate:"omitempty,uuid"`
	PhoneNumber    *string `json:"phone_number,omitempty" validate:"omitempty,max=32"`
}

// VerifyResidentRequest DTO для решения по верификации жителя
// @Description DTO для решения по верификации жителя
type VerifyResidentRequest struct {
	Status string  `json:"status" validate:"required,oneof=verified rejected"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// UserListQuery - фильтры административного списка пользователей
type UserListQuery struct {
	Role           string `form:"role"`
	MunicipalityID string `form:"municipality_id" validate:"omitempty,uuid"`
	BarangayID     string `form:"barangay_id" validate:"omitempty,uuid"`
	IsActive       *bool  `form:"is_active"`
	Page           int    `form:"page"`
	PerPage        int    `form:"per_page"`
}

// UserResponse DTO профиля пользователя
// @Description DTO профиля пользователя
type UserResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	Role               string     `json:"role"`
	MunicipalityID     *uuid.UUID `json:"municipality_id,omitempty"`
	BarangayID         *uuid.UUID `json:"barangay_id,omitempty"`
	PhoneNumber        *string    `json:"phone_number,omitempty"`
	IsActive           bool       `json:"is_active"`
	VerificationStatus string     `json:"verification_status,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	VerificationNotes  *string    `json:"verification_notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CreateIncidentRequest DTO для сообщения об инциденте. Принимается как JSON или multipart/form-data с файлами media.
// @Description DTO для сообщения об инциденте
type CreateIncidentRequest struct {
	IncidentType    string   `json:"incident_type" form:"incident_type" validate:"required"`
	Title           string   `json:"title" form:"title" validate:"required,min=3,max=255"`
	Description     string   `json:"description" form:"description" validate:"required,max=5000"`
	LocationAddress string   `json:"location_address" form:"location_address" validate:"max=500"`
	Latitude        *float64 `json:"latitude" form:"latitude" validate:"required"`
	Longitude       *float64 `json:"longitude" form:"longitude" validate:"required"`
	MunicipalityID  string   `json:"municipality_id" form:"municipality_id" validate:"omitempty,uuid"`
	BarangayID      string   `json:"barangay_id" form:"barangay_id" validate:"omitempty,uuid"`
	UrgencyLevel    string   `json:"urgency_level" form:"urgency_level" validate:"required"`
	ContactNumber   *string  `json:"contact_number,omitempty" form:"contact_number" validate:"omitempty,max=32"`
}

// IncidentListQuery - фильтры и пагинация списка инцидентов
type IncidentListQuery struct {
	Status         string `form:"status"`
	IncidentType   string `form:"incident_type"`
	MunicipalityID string `form:"municipality_id" validate:"omitempty,uuid"`
	BarangayID     string `form:"barangay_id" validate:"omitempty,uuid"`
	UrgencyLevel   string `form:"urgency_level"`
	DateFrom       string `form:"date_from"`
	DateTo         string `form:"date_to"`
	Page           int    `form:"page"`
	PerPage        int    `form:"per_page"`
}

// UpdateStatusRequest DTO для смены статуса
// @Description DTO для смены статуса
type UpdateStatusRequest struct {
	Status        string `json:"status" validate:"required"`
	UpdateMessage string `json:"update_message" validate:"max=1000"`
	// Message - прежнее имя поля, используется, если update_message пуст
	Message string `json:"message" validate:"max=1000"`
}

// Text возвращает текст записи в хронологии
func (r UpdateStatusRequest) Text() string {
	if strings.TrimSpace(r.UpdateMessage) != "" {
		return r.UpdateMessage
	}
	return r.Message
}

// AssignRequest DTO для назначения ответственного
// @Description DTO для назначения ответственного
type AssignRequest struct {
	ResponderID string  `json:"responder_id" validate:"required,uuid"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// EscalateRequest DTO запроса помощи муниципалитета
// @Description DTO запроса помощи муниципалитета
type EscalateRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID              uuid.UUID  `json:"id"`
	ReporterID      uuid.UUID  `json:"reporter_id"`
	IncidentType    string     `json:"incident_type"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	LocationAddress string     `json:"location_address"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	MunicipalityID  *uuid.UUID `json:"municipality_id,omitempty"`
	BarangayID      *uuid.UUID `json:"barangay_id,omitempty"`
	UrgencyLevel    string     `json:"urgency_level"`
	Status          string     `json:"status"`
	ContactNumber   *string    `json:"contact_number,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IncidentDetailResponse DTO инцидента со связанными сущностями
// @Description DTO инцидента со связанными сущностями
type IncidentDetailResponse struct {
	IncidentResponse
	Reporter     *UserResponse            `json:"reporter,omitempty"`
	Municipality *models.Municipality     `json:"municipality,omitempty"`
	Barangay     *models.Barangay         `json:"barangay,omitempty"`
	Media        []*models.IncidentMedia  `json:"media"`
	Updates      []*models.IncidentUpdate `json:"updates"`
	Assignments  []*models.Assignment     `json:"assignments"`
	Acknowledged bool                     `json:"acknowledged"`
}

// NotificationResponse DTO уведомления
// @Description DTO уведомления
type NotificationResponse struct {
	ID               uuid.UUID  `json:"id"`
	IncidentID       *uuid.UUID `json:"incident_id,omitempty"`
	NotificationType string     `json:"notification_type"`
	Priority         string     `json:"priority"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	IsRead           bool       `json:"is_read"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NotificationListQuery - пагинация уведомлений
type NotificationListQuery struct {
	UnreadOnly bool `form:"unread_only"`
	Page       int  `form:"page"`
	PerPage    int  `form:"per_page"`
}

// UnreadCountResponse DTO счётчика непрочитанных
// @Description DTO счётчика непрочитанных
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// MarkedResponse DTO количества отмеченных прочитанными уведомлений
// @Description DTO количества отмеченных прочитанными уведомлений
type MarkedResponse struct {
	Updated int64 `json:"updated"`
}

// PageMeta - метаданные страницы списка
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// PagedIncidents DTO страницы инцидентов
// @Description DTO страницы инцидентов
type PagedIncidents struct {
	Data []*IncidentResponse `json:"data"`
	Meta PageMeta            `json:"meta"`
}

// PagedNotifications DTO страницы уведомлений
// @Description DTO страницы уведомлений
type PagedNotifications struct {
	Data []*NotificationResponse `json:"data"`
	Meta PageMeta                `json:"meta"`
}

// PagedUsers DTO страницы пользователей
// @Description DTO страницы пользователей
type PagedUsers struct {
	Data []*UserResponse `json:"data"`
	Meta PageMeta        `json:"meta"`
}

// ErrorResponse DTO ошибки; errors заполняется только при 422
// @Description DTO ошибки
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
