package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/fanout"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=incident.go -destination=mocks/mock_incident.go -package=mocks

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateStatus(ctx context.Context, incident *models.Incident) error
	List(ctx context.Context, scope access.Scope, filter models.IncidentFilter, page, perPage int) ([]*models.Incident, int, error)
	CountByMonth(ctx context.Context, scope access.Scope, since time.Time) ([]models.IncidentCount, error)

	AddUpdate(ctx context.Context, update *models.IncidentUpdate) error
	ListUpdates(ctx context.Context, incidentID uuid.UUID) ([]*models.IncidentUpdate, error)
	AddMedia(ctx context.Context, media *models.IncidentMedia) error
	ListMedia(ctx context.Context, incidentID uuid.UUID) ([]*models.IncidentMedia, error)
	AddAssignment(ctx context.Context, assignment *models.Assignment) error
	ListAssignments(ctx context.Context, incidentID uuid.UUID) ([]*models.Assignment, error)
	Acknowledge(ctx context.Context, incidentID, userID uuid.UUID, at time.Time) error
	IsAcknowledged(ctx context.Context, incidentID, userID uuid.UUID) (bool, error)

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// IncidentService определяет контракт для бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	CreateIncident(ctx context.Context, actor access.Actor, input CreateIncidentInput) (*models.Incident, error)
	GetIncident(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.IncidentDetail, error)
	ListIncidents(ctx context.Context, actor access.Actor, filter models.IncidentFilter, page, perPage int) ([]*models.Incident, int, error)
	UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status models.IncidentStatus, message string) (*models.Incident, error)
	AssignResponder(ctx context.Context, actor access.Actor, id, responderID uuid.UUID, notes *string) (*models.Assignment, error)
	RequestEscalation(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*models.IncidentUpdate, error)
	Acknowledge(ctx context.Context, actor access.Actor, id uuid.UUID) error
	Stats(ctx context.Context, actor access.Actor, months int) ([]models.MonthlyStat, error)
}

// CreateIncidentInput - данные нового инцидента от жителя
type CreateIncidentInput struct {
	Type            models.IncidentType
	Title           string
	Description     string
	LocationAddress string
	Latitude        float64
	Longitude       float64
	MunicipalityID  *uuid.UUID
	BarangayID      *uuid.UUID
	Urgency         models.Urgency
	ContactNumber   *string
	Media           []MediaUpload
}

// MediaUpload - файл, загружаемый вместе с инцидентом; Open вызывается уже после фиксации инцидента
type MediaUpload struct {
	FileName string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// IncidentDeps - зависимости сервиса инцидентов; Media и Events могут быть nil
type IncidentDeps struct {
	Tx            TxManager
	Incidents     IncidentRepository
	Users         UserRepository
	Notifications NotificationRepository
	Geography     GeographyRepository
	Media         MediaStore
	Events        EventPublisher
	Realtime      RealtimePublisher
	Logger        *logrus.Logger
}

const (
	defaultStatsMonths = 12
	maxStatsMonths     = 36
)

type incidentService struct {
	tx            TxManager
	repo          IncidentRepository
	users         UserRepository
	notifications NotificationRepository
	geography     GeographyRepository
	media         MediaStore
	events        EventPublisher
	realtime      RealtimePublisher
	logger        *logrus.Logger
	now           func() time.Time
}

func NewIncidentService(deps IncidentDeps) IncidentService {
	return &incidentService{
		tx:            deps.Tx,
		repo:          deps.Incidents,
		users:         deps.Users,
		notifications: deps.Notifications,
		geography:     deps.Geography,
		media:         deps.Media,
		events:        deps.Events,
		realtime:      deps.Realtime,
		logger:        deps.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return models.NewValidationError("latitude", "must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return models.NewValidationError("longitude", "must be between -180 and 180")
	}
	return nil
}

// CreateIncident создает инцидент, запись журнала и уведомления в одной транзакции
func (s *incidentService) CreateIncident(ctx context.Context, actor access.Actor, input CreateIncidentInput) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateIncident",
		"user_id": actor.ID,
		"type":    input.Type,
	})
	log.Info("Attempting to create a new incident")

	if err := access.CanCreateIncident(actor); err != nil {
		log.WithError(err).Warn("Incident creation rejected")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}
	if !input.Type.IsValid() {
		return nil, models.NewValidationError("incident_type", "the selected incident type is invalid")
	}
	if !input.Urgency.IsValid() {
		return nil, models.NewValidationError("urgency_level", "the selected urgency level is invalid")
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}

	municipalityID, barangayID, err := resolveTerritory(ctx, s.geography, input.MunicipalityID, input.BarangayID)
	if err != nil {
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			log.WithError(err).Error("Failed to resolve territory")
		}
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	contact := input.ContactNumber
	if contact == nil || strings.TrimSpace(*contact) == "" {
		contact = nil
		if reporter, err := s.users.GetByID(ctx, actor.ID); err == nil {
			contact = reporter.PhoneNumber
		}
	}

	incident := &models.Incident{
		ReporterID:      actor.ID,
		Type:            input.Type,
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		LocationAddress: models.WithLocationFallback(input.LocationAddress, input.Latitude, input.Longitude),
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		MunicipalityID:  municipalityID,
		BarangayID:      barangayID,
		Urgency:         input.Urgency,
		ContactNumber:   contact,
	}
	incident.ApplyStatus(models.StatusReported, s.now())

	var notifications []*models.Notification
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, incident); err != nil {
			return err
		}
		update := &models.IncidentUpdate{
			IncidentID: incident.ID,
			UpdatedBy:  actor.ID,
			Kind:       models.UpdateReported,
			Message:    "Incident reported",
			NewStatus:  models.StatusPtr(models.StatusReported),
		}
		if err := s.repo.AddUpdate(ctx, update); err != nil {
			return err
		}

		candidates, err := s.creationCandidates(ctx, incident)
		if err != nil {
			return err
		}
		notifications = fanout.ForCreation(incident, candidates)
		return s.notifications.CreateBatch(ctx, notifications)
	})
	if err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	s.storeMedia(ctx, log, incident, input.Media)

	event := models.NewIncidentEvent(models.EventIncidentCreated, incident, actor.ID, s.now())
	s.afterCommit(ctx, log, incident, event, notifications)

	log.WithFields(logrus.Fields{
		"incident_id": incident.ID,
		"notified":    len(notifications),
	}).Info("Incident created successfully")
	return incident, nil
}

// creationCandidates - активные mdrrmo муниципалитета и официальные лица барангая
func (s *incidentService) creationCandidates(ctx context.Context, incident *models.Incident) ([]*models.User, error) {
	var candidates []*models.User
	if incident.MunicipalityID != nil {
		users, err := s.users.ListActiveByRole(ctx, models.RoleMDRRMO, incident.MunicipalityID, nil)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, users...)
	}
	if incident.BarangayID != nil {
		users, err := s.users.ListActiveByRole(ctx, models.RoleBarangayOfficial, nil, incident.BarangayID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, users...)
	}
	return candidates, nil
}

func mediaTypeOf(mime string) models.MediaType {
	if strings.HasPrefix(mime, "video/") {
		return models.MediaVideo
	}
	return models.MediaImage
}

// storeMedia загружает вложения после фиксации инцидента; ошибки только логируются
func (s *incidentService) storeMedia(ctx context.Context, log *logrus.Entry, incident *models.Incident, uploads []MediaUpload) {
	if len(uploads) == 0 {
		return
	}
	if s.media == nil {
		log.WithField("files", len(uploads)).Warn("Media storage is not configured, attachments dropped")
		return
	}

	stored := 0
	for _, upload := range uploads {
		flog := log.WithField("file_name", upload.FileName)
		key := fmt.Sprintf("incidents/%s/%s%s", incident.ID, uuid.New(), strings.ToLower(path.Ext(upload.FileName)))

		body, err := upload.Open()
		if err != nil {
			flog.WithError(err).Error("Failed to open uploaded file")
			continue
		}
		err = s.media.Put(ctx, key, body, upload.Size, upload.MimeType)
		body.Close()
		if err != nil {
			flog.WithError(err).Error("Failed to upload incident media")
			continue
		}

		media := &models.IncidentMedia{
			IncidentID: incident.ID,
			FilePath:   key,
			FileName:   upload.FileName,
			FileType:   mediaTypeOf(upload.MimeType),
			FileSize:   upload.Size,
			MimeType:   upload.MimeType,
		}
		if err := s.repo.AddMedia(ctx, media); err != nil {
			flog.WithError(err).Error("Failed to save incident media record")
			continue
		}
		stored++
	}
	log.WithFields(logrus.Fields{
		"stored": stored,
		"total":  len(uploads),
	}).Info("Incident media processed")
}

// afterCommit - побочные каналы после фиксации: кэш, realtime, очередь доставок. Ошибки не фатальны.
// В кэш пишется зафиксированная версия; более старая копия, прочитанная параллельно, её не вытеснит.
func (s *incidentService) afterCommit(ctx context.Context, log *logrus.Entry, incident *models.Incident, event models.IncidentEvent, notifications []*models.Notification) {
	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to refresh incident cache")
		if err := s.repo.InvalidateIncidentCache(ctx, incident.ID); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache")
		}
	}
	if err := s.realtime.PublishIncident(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish realtime incident event")
	}
	if len(notifications) > 0 {
		if err := s.realtime.PublishNotifications(ctx, notifications); err != nil {
			log.WithError(err).Warn("Failed to publish realtime notifications")
		}
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, event); err != nil {
			log.WithError(err).Warn("Failed to enqueue incident event for dispatch")
		}
	}
}

func assigneeIDs(assignments []*models.Assignment) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		if a.Status == models.AssignmentWithdrawn {
			continue
		}
		ids = append(ids, a.ResponderID)
	}
	return ids
}

// loadIncident читает инцидент через кэш
func (s *incidentService) loadIncident(ctx context.Context, log *logrus.Entry, id uuid.UUID) (*models.Incident, error) {
	incident, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if incident != nil {
		return incident, nil
	}

	incident, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// visibleIncident возвращает ErrNotFound и для отсутствующих, и для невидимых актору инцидентов
func (s *incidentService) visibleIncident(ctx context.Context, log *logrus.Entry, actor access.Actor, id uuid.UUID) (*models.Incident, []*models.Assignment, error) {
	incident, err := s.loadIncident(ctx, log, id)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanRead(actor, access.RefOf(incident, assigneeIDs(assignments))) {
		return nil, nil, fmt.Errorf("incident %s: %w", id, models.ErrNotFound)
	}
	return incident, assignments, nil
}

// lockVisibleIncident - то же внутри транзакции, с блокировкой строки
func (s *incidentService) lockVisibleIncident(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Incident, []*models.Assignment, error) {
	incident, err := s.repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanRead(actor, access.RefOf(incident, assigneeIDs(assignments))) {
		return nil, nil, fmt.Errorf("incident %s: %w", id, models.ErrNotFound)
	}
	return incident, assignments, nil
}

// logFailure: ошибки клиента - Warn, инфраструктурные - Error
func logFailure(log *logrus.Entry, err error, msg string) {
	var vErr *models.ValidationError
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrForbidden) || errors.As(err, &vErr) {
		log.WithError(err).Warn(msg)
		return
	}
	log.WithError(err).Error(msg)
}

// GetIncident получает инцидент со связанными сущностями
func (s *incidentService) GetIncident(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.IncidentDetail, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
		"user_id":     actor.ID,
	})
	log.Info("Fetching incident by ID")

	incident, assignments, err := s.visibleIncident(ctx, log, actor, id)
	if err != nil {
		logFailure(log, err, "Failed to get incident")
		return nil, fmt.Errorf("service: not get incident: %w", err)
	}

	detail := &models.IncidentDetail{Incident: incident, Assignments: assignments}
	if detail.Reporter, err = s.users.GetByID(ctx, incident.ReporterID); err != nil {
		log.WithError(err).Warn("Failed to load incident reporter")
		detail.Reporter = nil
	}
	if incident.MunicipalityID != nil {
		if detail.Municipality, err = s.geography.GetMunicipality(ctx, *incident.MunicipalityID); err != nil {
			log.WithError(err).Warn("Failed to load incident municipality")
			detail.Municipality = nil
		}
	}
	if incident.BarangayID != nil {
		if detail.Barangay, err = s.geography.GetBarangay(ctx, *incident.BarangayID); err != nil {
			log.WithError(err).Warn("Failed to load incident barangay")
			detail.Barangay = nil
		}
	}

	if detail.Updates, err = s.repo.ListUpdates(ctx, id); err != nil {
		log.WithError(err).Error("Failed to list incident updates")
		return nil, fmt.Errorf("service: not get incident: %w", err)
	}
	if detail.Media, err = s.repo.ListMedia(ctx, id); err != nil {
		log.WithError(err).Error("Failed to list incident media")
		return nil, fmt.Errorf("service: not get incident: %w", err)
	}
	if s.media != nil {
		for _, m := range detail.Media {
			if m.URL, err = s.media.URL(ctx, m.FilePath); err != nil {
				log.WithError(err).WithField("file_path", m.FilePath).Warn("Failed to sign media URL")
			}
		}
	}
	if detail.Acknowledged, err = s.repo.IsAcknowledged(ctx, id, actor.ID); err != nil {
		log.WithError(err).Warn("Failed to read acknowledgement")
	}

	log.Info("Incident fetched successfully")
	return detail, nil
}

// ListIncidents возвращает страницу инцидентов в области видимости актора
func (s *incidentService) ListIncidents(ctx context.Context, actor access.Actor, filter models.IncidentFilter, page, perPage int) ([]*models.Incident, int, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "ListIncidents",
		"user_id": actor.ID,
	})

	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, models.NewValidationError("status", "the selected status is invalid")
	}
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, 0, models.NewValidationError("incident_type", "the selected incident type is invalid")
	}
	if filter.Urgency != nil && !filter.Urgency.IsValid() {
		return nil, 0, models.NewValidationError("urgency_level", "the selected urgency level is invalid")
	}
	// DateTo - исключающая граница
	if filter.DateFrom != nil && filter.DateTo != nil && !filter.DateTo.After(*filter.DateFrom) {
		return nil, 0, models.NewValidationError("date_to", "must be a date after or equal to date_from")
	}

	page, perPage = NormalizePage(page, perPage, DefaultIncidentsPerPage)
	scope := access.ReadScope(actor)
	incidents, total, err := s.repo.List(ctx, scope, filter, page, perPage)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents")
		return nil, 0, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithFields(logrus.Fields{
		"scope": scope.Kind,
		"total": total,
	}).Info("Incidents listed")
	return incidents, total, nil
}

// UpdateStatus переводит инцидент в новый статус; строка блокируется до конца транзакции
func (s *incidentService) UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status models.IncidentStatus, message string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateStatus",
		"incident_id": id,
		"user_id":     actor.ID,
		"status":      status,
	})
	log.Info("Attempting to update incident status")

	if !status.IsValid() {
		return nil, models.NewValidationError("status", "the selected status is invalid")
	}

	var (
		incident      *models.Incident
		assignments   []*models.Assignment
		previous      models.IncidentStatus
		notifications []*models.Notification
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		incident, assignments, err = s.lockVisibleIncident(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := access.CanUpdateStatus(actor, incident); err != nil {
			return err
		}
		if !incident.Status.CanTransitionTo(status) {
			return models.NewTransitionError(incident.Status, status)
		}

		previous = incident.Status
		incident.ApplyStatus(status, s.now())
		if err := s.repo.UpdateStatus(ctx, incident); err != nil {
			return err
		}

		text := strings.TrimSpace(message)
		if text == "" {
			text = fmt.Sprintf("Status changed from %s to %s", previous, status)
		}
		update := &models.IncidentUpdate{
			IncidentID:     incident.ID,
			UpdatedBy:      actor.ID,
			Kind:           models.UpdateStatusChange,
			Message:        text,
			PreviousStatus: models.StatusPtr(previous),
			NewStatus:      models.StatusPtr(status),
		}
		if err := s.repo.AddUpdate(ctx, update); err != nil {
			return err
		}

		notifications = fanout.ForStatusChange(incident, assigneeIDs(assignments))
		return s.notifications.CreateBatch(ctx, notifications)
	})
	if err != nil {
		logFailure(log, err, "Failed to update incident status")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}

	event := models.NewIncidentEvent(models.EventIncidentStatusChanged, incident, actor.ID, s.now())
	event.PreviousStatus = models.StatusPtr(previous)
	event.AssigneeIDs = assigneeIDs(assignments)
	event.Message = strings.TrimSpace(message)
	s.afterCommit(ctx, log, incident, event, notifications)

	log.WithFields(logrus.Fields{
		"previous_status": previous,
		"notified":        len(notifications),
	}).Info("Incident status updated successfully")
	return incident, nil
}

// AssignResponder назначает ответственного; reported автоматически переходит в assigned
func (s *incidentService) AssignResponder(ctx context.Context, actor access.Actor, id, responderID uuid.UUID, notes *string) (*models.Assignment, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "incident",
		"method":       "AssignResponder",
		"incident_id":  id,
		"user_id":      actor.ID,
		"responder_id": responderID,
	})
	log.Info("Attempting to assign responder")

	var (
		incident      *models.Incident
		assignments   []*models.Assignment
		assignment    *models.Assignment
		previous      models.IncidentStatus
		notifications []*models.Notification
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		incident, assignments, err = s.lockVisibleIncident(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := access.CanAssign(actor); err != nil {
			return err
		}
		if incident.Status.IsTerminal() {
			return models.NewValidationError("status", fmt.Sprintf("cannot assign responders to a %s incident", incident.Status))
		}

		responder, err := s.users.GetByID(ctx, responderID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.NewValidationError("responder_id", "the selected responder is invalid")
			}
			return err
		}
		if !access.IsResponderCapable(responder.Role) || !responder.IsActive {
			return models.NewValidationError("responder_id", "the selected user cannot be assigned as a responder")
		}

		assignment = &models.Assignment{
			IncidentID:  incident.ID,
			ResponderID: responder.ID,
			AssignedBy:  actor.ID,
			Status:      models.AssignmentAssigned,
			Notes:       notes,
		}
		if err := s.repo.AddAssignment(ctx, assignment); err != nil {
			return err
		}

		previous = incident.Status
		update := &models.IncidentUpdate{
			IncidentID: incident.ID,
			UpdatedBy:  actor.ID,
			Kind:       models.UpdateAssignment,
			Message:    fmt.Sprintf("Responder %s assigned", responder.FullName),
		}
		if incident.Status == models.StatusReported {
			incident.ApplyStatus(models.StatusAssigned, s.now())
			if err := s.repo.UpdateStatus(ctx, incident); err != nil {
				return err
			}
			update.PreviousStatus = models.StatusPtr(previous)
			update.NewStatus = models.StatusPtr(models.StatusAssigned)
		}
		if err := s.repo.AddUpdate(ctx, update); err != nil {
			return err
		}

		notifications = fanout.ForAssignment(incident, responder)
		return s.notifications.CreateBatch(ctx, notifications)
	})
	if err != nil {
		logFailure(log, err, "Failed to assign responder")
		return nil, fmt.Errorf("service: could not assign responder: %w", err)
	}

	event := models.NewIncidentEvent(models.EventIncidentAssigned, incident, actor.ID, s.now())
	if previous != incident.Status {
		event.PreviousStatus = models.StatusPtr(previous)
	}
	event.AssigneeIDs = append(assigneeIDs(assignments), responderID)
	s.afterCommit(ctx, log, incident, event, notifications)

	log.WithField("assignment_id", assignment.ID).Info("Responder assigned successfully")
	return assignment, nil
}

// RequestEscalation - запрос помощи муниципалитета; статус инцидента не меняется
func (s *incidentService) RequestEscalation(ctx context.Context, actor access.Actor, id uuid.UUID, reason string) (*models.IncidentUpdate, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "RequestEscalation",
		"incident_id": id,
		"user_id":     actor.ID,
	})
	log.Info("Attempting to request municipal assistance")

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "the reason field is required")
	}

	var (
		incident      *models.Incident
		assignments   []*models.Assignment
		update        *models.IncidentUpdate
		notifications []*models.Notification
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		incident, assignments, err = s.lockVisibleIncident(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := access.CanEscalate(actor, incident); err != nil {
			return err
		}

		update = &models.IncidentUpdate{
			IncidentID: incident.ID,
			UpdatedBy:  actor.ID,
			Kind:       models.UpdateEscalation,
			Message:    reason,
		}
		if err := s.repo.AddUpdate(ctx, update); err != nil {
			return err
		}

		var candidates []*models.User
		if incident.MunicipalityID != nil {
			candidates, err = s.users.ListActiveByRole(ctx, models.RoleMDRRMO, incident.MunicipalityID, nil)
			if err != nil {
				return err
			}
		}
		notifications = fanout.ForEscalation(incident, reason, candidates)
		return s.notifications.CreateBatch(ctx, notifications)
	})
	if err != nil {
		logFailure(log, err, "Failed to request escalation")
		return nil, fmt.Errorf("service: could not request escalation: %w", err)
	}

	event := models.NewIncidentEvent(models.EventIncidentEscalated, incident, actor.ID, s.now())
	event.AssigneeIDs = assigneeIDs(assignments)
	event.Message = reason
	s.afterCommit(ctx, log, incident, event, notifications)

	log.WithField("notified", len(notifications)).Info("Escalation requested successfully")
	return update, nil
}

// Acknowledge отмечает инцидент просмотренным и гасит уведомления по нему
func (s *incidentService) Acknowledge(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Acknowledge",
		"incident_id": id,
		"user_id":     actor.ID,
	})

	if _, _, err := s.visibleIncident(ctx, log, actor, id); err != nil {
		logFailure(log, err, "Failed to acknowledge incident")
		return fmt.Errorf("service: could not acknowledge incident: %w", err)
	}

	now := s.now()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Acknowledge(ctx, id, actor.ID, now); err != nil {
			return err
		}
		_, err := s.notifications.MarkIncidentRead(ctx, actor.ID, id, now)
		return err
	})
	if err != nil {
		log.WithError(err).Error("Failed to acknowledge incident")
		return fmt.Errorf("service: could not acknowledge incident: %w", err)
	}
	log.Info("Incident acknowledged")
	return nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Stats - помесячная статистика за последние months месяцев, включая текущий
func (s *incidentService) Stats(ctx context.Context, actor access.Actor, months int) ([]models.MonthlyStat, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Stats",
		"user_id": actor.ID,
	})

	if months <= 0 {
		months = defaultStatsMonths
	}
	if months > maxStatsMonths {
		return nil, models.NewValidationError("months", fmt.Sprintf("may not be greater than %d", maxStatsMonths))
	}

	since := monthStart(s.now()).AddDate(0, -(months - 1), 0)
	counts, err := s.repo.CountByMonth(ctx, access.ReadScope(actor), since)
	if err != nil {
		log.WithError(err).Error("Failed to aggregate incidents")
		return nil, fmt.Errorf("service: could not build statistics: %w", err)
	}

	stats := make([]models.MonthlyStat, months)
	index := make(map[string]int, months)
	for i := range stats {
		key := since.AddDate(0, i, 0).Format("2006-01")
		stats[i] = models.MonthlyStat{
			Month:     key,
			ByType:    map[string]int{},
			ByStatus:  map[string]int{},
			ByUrgency: map[string]int{},
		}
		index[key] = i
	}
	for _, c := range counts {
		i, ok := index[monthStart(c.Month.UTC()).Format("2006-01")]
		if !ok {
			continue
		}
		stats[i].Total += c.Count
		stats[i].ByType[string(c.Type)] += c.Count
		stats[i].ByStatus[string(c.Status)] += c.Count
		stats[i].ByUrgency[string(c.Urgency)] += c.Count
	}
	return stats, nil
}
