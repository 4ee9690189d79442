package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/suggester/internal/auth"
)

// SetupRoutes registers the API. Health routes come from the server builder.
func SetupRoutes(router *gin.Engine, h *Handler, jwtSecret string, metrics http.Handler) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")

	v1.GET("/task-types", h.ListTaskTypes)
	v1.GET("/topics", h.ListTopics)
	v1.GET("/link-recommendations/:title", h.GetLinkRecommendation)
	v1.POST("/events/page-changed", h.PageChanged)

	user := v1.Group("", auth.OptionalMiddleware(jwtSecret))
	protected := v1.Group("", auth.Middleware(jwtSecret))

	user.GET("/tasks", h.ListTasks)
	user.POST("/tasks/complete", h.CompleteTask)
	user.POST("/link-recommendations/:title/feedback", h.RecordFeedback)

	protected.POST("/maintenance/refresh", h.TriggerRefresh)
}
