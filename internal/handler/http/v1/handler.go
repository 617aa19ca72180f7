package v1

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/sirupsen/logrus"
)

// Services - сервисы, которые обслуживает API
type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Incidents     service.IncidentService
	Notifications service.NotificationService
	Geography     service.GeographyService
}

// Options - ограничения HTTP-слоя
type Options struct {
	MediaMaxBytes    int64
	WSAllowedOrigins []string
}

type Handler struct {
	auth          service.AuthService
	users         service.UserService
	incidents     service.IncidentService
	notifications service.NotificationService
	geography     service.GeographyService
	realtime      RealtimeSubscriber
	logger        *logrus.Logger
	validate      *validator.Validate
	opts          Options
}

// NewHandler; realtime может быть nil, тогда /realtime не регистрируется
func NewHandler(services Services, realtime RealtimeSubscriber, logger *logrus.Logger, opts Options) *Handler {
	validate := validator.New()
	// в ошибках валидации используем имена полей из json/form тегов
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	if opts.MediaMaxBytes <= 0 {
		opts.MediaMaxBytes = 10 << 20
	}
	return &Handler{
		auth:          services.Auth,
		users:         services.Users,
		incidents:     services.Incidents,
		notifications: services.Notifications,
		geography:     services.Geography,
		realtime:      realtime,
		logger:        logger,
		validate:      validate,
		opts:          opts,
	}
}

// validateStruct переводит ошибки validator в ValidationError с картой полей
func (h *Handler) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeTag(fe)
	}
	return &models.ValidationError{Fields: fields, Cause: err}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "may not be greater than " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// bindJSON разбирает тело и валидирует его; при ошибке ответ уже отправлен
func (h *Handler) bindJSON(c *gin.Context, log *logrus.Entry, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return false
	}
	if err := h.validateStruct(dst); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.respondError(c, log, err)
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, log *logrus.Entry, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		log.WithError(err).Warn("Failed to bind query")
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid query parameters"})
		return false
	}
	if err := h.validateStruct(dst); err != nil {
		log.WithError(err).Warn("Validation failed")
		h.respondError(c, log, err)
		return false
	}
	return true
}

// pathID разбирает uuid из параметра пути; при ошибке отвечает 400
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// respondError - единое отображение доменных ошибок в HTTP-статусы
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "The given data was invalid.", Errors: verr.Fields})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthenticated"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "forbidden"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "not found"})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "conflict"})
	default:
		log.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal server error"})
	}
}

func (h *Handler) log(c *gin.Context, method string) *logrus.Entry {
	entry := h.logger.WithField("method", method)
	if rid, ok := c.Get(requestIDKey); ok {
		entry = entry.WithField("request_id", rid)
	}
	if actor, ok := actorFrom(c); ok {
		entry = entry.WithField("actor_id", actor.ID)
	}
	return entry
}

// mustActor возвращает актора, установленного AuthMiddleware
func mustActor(c *gin.Context) access.Actor {
	actor, _ := actorFrom(c)
	return actor
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
