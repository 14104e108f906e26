package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Открытые маршруты
	api.GET("/system/health", h.healthCheck)
	if h.push != nil {
		api.GET("/ws", h.serveWS)
	}
	if h.metricsHandler != nil {
		api.GET("/metrics", gin.WrapH(h.metricsHandler))
	}

	protected := api.Group("", APIKeyAuthMiddleware(h.cfg, h.logger))

	// Лента инцидентов
	incidents := protected.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.POST("/add", h.addIncident)
		incidents.POST("/batch", h.addIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id/status", h.updateStatus)
	}

	protected.POST("/voice-alert", h.voiceAlert)
	protected.POST("/dispatch", h.dispatchTeam)
	protected.GET("/summary", h.getSummary)

	// Бюро находок
	lostFound := protected.Group("/lostfound")
	{
		lostFound.GET("", h.listLostFound)
		lostFound.POST("/report", h.reportLostFound)
		lostFound.POST("/match", h.matchLostFound)
	}

	// Камеры, проксируются в сервис зрения
	camera := protected.Group("/camera")
	{
		camera.POST("/start", h.startCamera)
		camera.POST("/stop/:zone", h.stopCamera)
		camera.POST("/analyze", h.analyzeFrame)
	}
}
