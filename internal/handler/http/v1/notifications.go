package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/emergency_response_system/internal/service"
)

// @Summary List notifications
// @Description Get the current user's notifications, newest first
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param unread_only query bool false "Only unread notifications"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Number of items per page" default(20)
// @Success 200 {object} PagedNotifications
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /notifications [get]
func (h *Handler) listNotifications(c *gin.Context) {
	log := h.log(c, "listNotifications")
	var q NotificationListQuery
	if !h.bindQuery(c, log, &q) {
		return
	}

	notifications, total, err := h.notifications.List(c.Request.Context(), mustActor(c), q.UnreadOnly, q.Page, q.PerPage)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PagedNotifications{
		Data: ModelsToNotificationResponses(notifications),
		Meta: pageMeta(q.Page, q.PerPage, service.DefaultNotificationsPerPage, total),
	})
}

// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UnreadCountResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /notifications/unread-count [get]
func (h *Handler) unreadCount(c *gin.Context) {
	log := h.log(c, "unreadCount")
	count, err := h.notifications.UnreadCount(c.Request.Context(), mustActor(c))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

// @Summary Mark a notification as read
// @Description Idempotent; the first read time is kept on repeated calls
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} NotificationResponse
// @Failure 400 {object} ErrorResponse "Invalid notification ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [post]
func (h *Handler) markRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "markRead").WithField("id", id)

	n, err := h.notifications.MarkRead(c.Request.Context(), mustActor(c), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToNotificationResponse(n))
}

// @Summary Mark all notifications as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkedResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /notifications/read-all [post]
func (h *Handler) markAllRead(c *gin.Context) {
	log := h.log(c, "markAllRead")
	n, err := h.notifications.MarkAllRead(c.Request.Context(), mustActor(c))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, MarkedResponse{Updated: n})
}

// @Summary Mark an incident's notifications as read
// @Description Mark every notification of the current user about one incident as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param incidentId path string true "Incident ID"
// @Success 200 {object} MarkedResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /notifications/incidents/{incidentId}/read [post]
func (h *Handler) markIncidentRead(c *gin.Context) {
	incidentID, ok := pathID(c, "incidentId")
	if !ok {
		return
	}
	log := h.log(c, "markIncidentRead").WithField("incident_id", incidentID)

	n, err := h.notifications.MarkIncidentRead(c.Request.Context(), mustActor(c), incidentID)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, MarkedResponse{Updated: n})
}
