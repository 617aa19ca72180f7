package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/access"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	actorKey     = "actor"
	claimsKey    = "claims"
	requestIDKey = "request_id"

	requestIDHeader = "X-Request-ID"
)

func actorFrom(c *gin.Context) (access.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return access.Actor{}, false
	}
	actor, ok := v.(access.Actor)
	return actor, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	// браузерный WebSocket не умеет передавать заголовки
	return c.Query("access_token")
}

// AuthMiddleware - middleware для аутентификации по bearer-токену
func AuthMiddleware(auth service.AuthService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			log.Warn("Bearer token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthenticated"})
			return
		}

		actor, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Warn("Invalid bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthenticated"})
			return
		}

		c.Set(actorKey, actor)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequestLogger пишет в лог каждый запрос и проставляет X-Request-ID
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": rid,
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request completed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}

// @Summary Register a resident
// @Description Self-registration of a resident account. The account starts with pending verification.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse "Invalid request body"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /register [post]
func (h *Handler) register(c *gin.Context) {
	log := h.log(c, "register")
	var input RegisterRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), DTOToRegisterInput(input))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{User: ModelToUserResponse(user), Token: token})
}

// @Summary Log in
// @Description Exchange email and password for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 403 {object} ErrorResponse "Account deactivated"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Router /login [post]
func (h *Handler) login(c *gin.Context) {
	log := h.log(c, "login")
	var input LoginRequest
	if !h.bindJSON(c, log, &input) {
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		log.WithError(err).Warn("Login failed")
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{User: ModelToUserResponse(user), Token: token})
}

// @Summary Log out
// @Description Revoke the current bearer token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 204 "No Content"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /logout [post]
func (h *Handler) logout(c *gin.Context) {
	log := h.log(c, "logout")
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*service.TokenClaims)
	if claims == nil {
		h.respondError(c, log, models.ErrUnauthorized)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		h.respondError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Current user
// @Description Get the profile of the authenticated user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /user [get]
func (h *Handler) me(c *gin.Context) {
	log := h.log(c, "me")
	user, err := h.users.Me(c.Request.Context(), mustActor(c))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}
