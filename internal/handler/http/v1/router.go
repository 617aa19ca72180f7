package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Публичные маршруты
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.GET("/municipalities", h.listMunicipalities)
	api.GET("/municipalities/:id/barangays", h.listBarangays)
	api.GET("/system/health", h.healthCheck)

	protected := api.Group("", AuthMiddleware(h.auth, h.logger))
	protected.POST("/logout", h.logout)
	protected.GET("/user", h.me)

	incidents := protected.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.POST("", h.createIncident)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/update-status", h.updateStatus)
		incidents.POST("/:id/assign", h.assignResponder)
		incidents.POST("/:id/escalate", h.escalate)
		incidents.POST("/:id/acknowledge", h.acknowledge)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.listNotifications)
		notifications.GET("/unread-count", h.unreadCount)
		notifications.POST("/read-all", h.markAllRead)
		notifications.POST("/:id/read", h.markRead)
		notifications.POST("/incidents/:incidentId/read", h.markIncidentRead)
	}

	users := protected.Group("/users")
	{
		users.GET("", h.listUsers)
		users.POST("", h.createUser)
		users.POST("/:id/verification", h.verifyResident)
	}

	if h.realtime != nil {
		protected.GET("/realtime", h.streamRealtime)
	}
}
