package v1

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

// допустимые типы вложений
var allowedMediaTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"video/mp4":       true,
	"video/quicktime": true,
}

// mediaUploads проверяет файлы формы и откладывает их открытие до сохранения в сервисе
func (h *Handler) mediaUploads(files []*multipart.FileHeader) ([]service.MediaUpload, error) {
	uploads := make([]service.MediaUpload, 0, len(files))
	for i, fh := range files {
		field := fmt.Sprintf("media.%d", i)
		mime := fh.Header.Get("Content-Type")
		if !allowedMediaTypes[mime] {
			return nil, models.NewValidationError(field, "must be a file of type: jpeg, png, gif, mp4, mov")
		}
		if fh.Size > h.opts.MediaMaxBytes {
			return nil, models.NewValidationError(field, fmt.Sprintf("may not be greater than %d kilobytes", h.opts.MediaMaxBytes>>10))
		}
		uploads = append(uploads, service.MediaUpload{
			FileName: fh.Filename,
			MimeType: mime,
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads, nil
}

// @Summary Report a new incident
// @Description Create an incident as a verified resident. Accepts JSON or multipart/form-data with "media" files.
// @Tags Incidents
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Only verified residents can report incidents"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	log := h.log(c, "createIncident")
	var input CreateIncidentRequest
	var uploads []service.MediaUpload

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		if err := c.ShouldBind(&input); err != nil {
			log.WithError(err).Warn("Failed to bind multipart form")
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			log.WithError(err).Warn("Failed to read multipart form")
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
			return
		}
		files := append(form.File["media"], form.File["media[]"]...)
		if uploads, err = h.mediaUploads(files); err != nil {
			log.WithError(err).Warn("Media validation failed")
			h.respondError(c, log, err)
			return
		}
	} else if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}

	if err := h.validateStruct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.respondError(c, log, err)
		return
	}

	model := DTOToCreateIncidentInput(input)
	model.Media = uploads
	incident, err := h.incidents.CreateIncident(c.Request.Context(), mustActor(c), model)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Get a list of incidents
// @Description Get a paginated, role-scoped list of incidents
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param incident_type query string false "Incident type filter"
// @Param municipality_id query string false "Municipality filter"
// @Param barangay_id query string false "Barangay filter"
// @Param urgency_level query string false "Urgency filter"
// @Param date_from query string false "Created on or after (YYYY-MM-DD)"
// @Param date_to query string false "Created on or before (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Number of items per page" default(15)
// @Success 200 {object} PagedIncidents
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.log(c, "listIncidents")
	var q IncidentListQuery
	if !h.bindQuery(c, log, &q) {
		return
	}
	filter, err := DTOToIncidentFilter(q)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	incidents, total, err := h.incidents.ListIncidents(c.Request.Context(), mustActor(c), filter, q.Page, q.PerPage)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PagedIncidents{
		Data: ModelsToIncidentResponses(incidents),
		Meta: pageMeta(q.Page, q.PerPage, service.DefaultIncidentsPerPage, total),
	})
}

// @Summary Get incident by ID
// @Description Get a single incident with reporter, media, timeline and assignments
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentDetailResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "getIncident").WithField("id", id)

	detail, err := h.incidents.GetIncident(c.Request.Context(), mustActor(c), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentDetailResponse(detail))
}

// @Summary Update incident status
// @Description Move an incident forward in its lifecycle or cancel it
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param request body UpdateStatusRequest true "Status update request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID or request body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 422 {object} ErrorResponse "Invalid status transition"
// @Router /incidents/{id}/update-status [post]
func (h *Handler) updateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "updateStatus").WithField("id", id)

	var input UpdateStatusRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	incident, err := h.incidents.UpdateStatus(c.Request.Context(), mustActor(c), id, models.IncidentStatus(input.Status), input.Text())
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Assign a responder
// @Description Assign a responder to an incident
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param request body AssignRequest true "Assignment request"
// @Success 201 {object} models.Assignment
// @Failure 400 {object} ErrorResponse "Invalid incident ID or request body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Router /incidents/{id}/assign [post]
func (h *Handler) assignResponder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "assignResponder").WithField("id", id)

	var input AssignRequest
	if !h.bindJSON(c, log, &input) {
		return
	}
	responderID, err := uuid.Parse(input.ResponderID)
	if err != nil {
		h.respondError(c, log, models.NewValidationError("responder_id", "must be a valid UUID"))
		return
	}

	assignment, err := h.incidents.AssignResponder(c.Request.Context(), mustActor(c), id, responderID, input.Notes)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

// @Summary Request municipal assistance
// @Description Escalate an incident to the municipal level
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param request body EscalateRequest true "Escalation request"
// @Success 201 {object} models.IncidentUpdate
// @Failure 400 {object} ErrorResponse "Invalid incident ID or request body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Router /incidents/{id}/escalate [post]
func (h *Handler) escalate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "escalate").WithField("id", id)

	var input EscalateRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	update, err := h.incidents.RequestEscalation(c.Request.Context(), mustActor(c), id, input.Reason)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}

// @Summary Acknowledge an incident
// @Description Mark an incident as seen by the current user so its alert is not repeated
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Router /incidents/{id}/acknowledge [post]
func (h *Handler) acknowledge(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "acknowledge").WithField("id", id)

	if err := h.incidents.Acknowledge(c.Request.Context(), mustActor(c), id); err != nil {
		h.respondError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get incident statistics
// @Description Monthly incident counts by type, status and urgency within the caller's scope
// @Tags Incidents
// @Produce json
// @Security BearerAuth
// @Param months query int false "Number of months" default(12)
// @Success 200 {array} models.MonthlyStat
// @Failure 400 {object} ErrorResponse "Invalid months"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.log(c, "getStats")
	months := 0
	if raw := c.Query("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid months"})
			return
		}
		months = n
	}

	stats, err := h.incidents.Stats(c.Request.Context(), mustActor(c), months)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
