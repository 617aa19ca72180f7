package v1

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

const dateLayout = "2006-01-02"

// optionalUUID разбирает необязательный идентификатор; формат уже проверен валидатором
func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func DTOToRegisterInput(dto RegisterRequest) service.RegisterInput {
	return service.RegisterInput{
		Email:          dto.Email,
		Password:       dto.Password,
		FullName:       dto.FullName,
		MunicipalityID: optionalUUID(dto.MunicipalityID),
		BarangayID:     optionalUUID(dto.BarangayID),
		PhoneNumber:    dto.PhoneNumber,
	}
}

func DTOToCreateUserInput(dto CreateUserRequest) service.CreateUserInput {
	return service.CreateUserInput{
		Email:          dto.Email,
		Password:       dto.Password,
		FullName:       dto.FullName,
		Role:           models.Role(dto.Role),
		MunicipalityID: optionalUUID(dto.MunicipalityID),
		BarangayID:     optionalUUID(dto.BarangayID),
		PhoneNumber:    dto.PhoneNumber,
	}
}

// DTOToUserFilter преобразует query-параметры в фильтр; некорректная роль отклоняется как ошибка поля
func DTOToUserFilter(q UserListQuery) (models.UserFilter, error) {
	filter := models.UserFilter{
		MunicipalityID: optionalUUID(q.MunicipalityID),
		BarangayID:     optionalUUID(q.BarangayID),
		IsActive:       q.IsActive,
	}
	if q.Role != "" {
		role := models.Role(q.Role)
		if !role.IsValid() {
			return filter, models.NewValidationError("role", "is invalid")
		}
		filter.Role = &role
	}
	return filter, nil
}

func DTOToCreateIncidentInput(dto CreateIncidentRequest) service.CreateIncidentInput {
	input := service.CreateIncidentInput{
		Type:            models.IncidentType(dto.IncidentType),
		Title:           strings.TrimSpace(dto.Title),
		Description:     strings.TrimSpace(dto.Description),
		LocationAddress: dto.LocationAddress,
		MunicipalityID:  optionalUUID(dto.MunicipalityID),
		BarangayID:      optionalUUID(dto.BarangayID),
		Urgency:         models.Urgency(dto.UrgencyLevel),
		ContactNumber:   dto.ContactNumber,
	}
	if dto.Latitude != nil {
		input.Latitude = *dto.Latitude
	}
	if dto.Longitude != nil {
		input.Longitude = *dto.Longitude
	}
	return input
}

// DTOToIncidentFilter проверяет значения перечислений и дат из query-параметров
func DTOToIncidentFilter(q IncidentListQuery) (models.IncidentFilter, error) {
	filter := models.IncidentFilter{
		MunicipalityID: optionalUUID(q.MunicipalityID),
		BarangayID:     optionalUUID(q.BarangayID),
	}
	verr := &models.ValidationError{Fields: map[string]string{}}

	if q.Status != "" {
		status := models.IncidentStatus(q.Status)
		if status.IsValid() {
			filter.Status = &status
		} else {
			verr.Fields["status"] = "is invalid"
		}
	}
	if q.IncidentType != "" {
		typ := models.IncidentType(q.IncidentType)
		if typ.IsValid() {
			filter.Type = &typ
		} else {
			verr.Fields["incident_type"] = "is invalid"
		}
	}
	if q.UrgencyLevel != "" {
		urgency := models.Urgency(q.UrgencyLevel)
		if urgency.IsValid() {
			filter.Urgency = &urgency
		} else {
			verr.Fields["urgency_level"] = "is invalid"
		}
	}
	if q.DateFrom != "" {
		from, err := time.Parse(dateLayout, q.DateFrom)
		if err != nil {
			verr.Fields["date_from"] = "must be a date in YYYY-MM-DD format"
		} else {
			filter.DateFrom = &from
		}
	}
	if q.DateTo != "" {
		to, err := time.Parse(dateLayout, q.DateTo)
		switch {
		case err != nil:
			verr.Fields["date_to"] = "must be a date in YYYY-MM-DD format"
		case filter.DateFrom != nil && to.Before(*filter.DateFrom):
			verr.Fields["date_to"] = "must be a date after or equal to date_from"
		default:
			// date_to включает весь день: граница исключающая
			end := to.AddDate(0, 0, 1)
			filter.DateTo = &end
		}
	}
	if len(verr.Fields) > 0 {
		return filter, verr
	}
	return filter, nil
}

func ModelToUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               string(u.Role),
		MunicipalityID:     u.MunicipalityID,
		BarangayID:         u.BarangayID,
		PhoneNumber:        u.PhoneNumber,
		IsActive:           u.IsActive,
		VerificationStatus: string(u.VerificationStatus),
		VerifiedAt:         u.VerifiedAt,
		VerificationNotes:  u.VerificationNotes,
		CreatedAt:          u.CreatedAt,
	}
}

func ModelsToUserResponses(users []*models.User) []*UserResponse {
	responses := make([]*UserResponse, len(users))
	for i, u := range users {
		responses[i] = ModelToUserResponse(u)
	}
	return responses
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:              model.ID,
		ReporterID:      model.ReporterID,
		IncidentType:    string(model.Type),
		Title:           model.Title,
		Description:     model.Description,
		LocationAddress: model.LocationAddress,
		Latitude:        model.Latitude,
		Longitude:       model.Longitude,
		MunicipalityID:  model.MunicipalityID,
		BarangayID:      model.BarangayID,
		UrgencyLevel:    string(model.Urgency),
		Status:          string(model.Status),
		ContactNumber:   model.ContactNumber,
		ResolvedAt:      model.ResolvedAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(incidents []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(incidents))
	for i, model := range incidents {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

func ModelToIncidentDetailResponse(d *models.IncidentDetail) *IncidentDetailResponse {
	resp := &IncidentDetailResponse{
		IncidentResponse: *ModelToIncidentResponse(d.Incident),
		Reporter:         ModelToUserResponse(d.Reporter),
		Municipality:     d.Municipality,
		Barangay:         d.Barangay,
		Media:            d.Media,
		Updates:          d.Updates,
		Assignments:      d.Assignments,
		Acknowledged:     d.Acknowledged,
	}
	// пустые коллекции отдаём как [], а не null
	if resp.Media == nil {
		resp.Media = []*models.IncidentMedia{}
	}
	if resp.Updates == nil {
		resp.Updates = []*models.IncidentUpdate{}
	}
	if resp.Assignments == nil {
		resp.Assignments = []*models.Assignment{}
	}
	return resp
}

func ModelToNotificationResponse(n *models.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:               n.ID,
		IncidentID:       n.IncidentID,
		NotificationType: string(n.Type),
		Priority:         string(n.Priority),
		Title:            n.Title,
		Message:          n.Message,
		IsRead:           n.IsRead,
		ReadAt:           n.ReadAt,
		CreatedAt:        n.CreatedAt,
	}
}

func ModelsToNotificationResponses(notifications []*models.Notification) []*NotificationResponse {
	responses := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = ModelToNotificationResponse(n)
	}
	return responses
}

// pageMeta считает метаданные с теми же значениями по умолчанию, что и сервис
func pageMeta(page, perPage, def, total int) PageMeta {
	page, perPage = service.NormalizePage(page, perPage, def)
	last := (total + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}
	return PageMeta{CurrentPage: page, PerPage: perPage, Total: total, LastPage: last}
}
