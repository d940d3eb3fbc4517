package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexus-rag/nexus/internal/common"
	"github.com/nexus-rag/nexus/internal/httpapi/handlers"
	"github.com/nexus-rag/nexus/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/", h.Ping)
	r.POST("/auth/token", h.IssueToken)

	api := r.Group("/api/v1")
	api.Use(middleware.KeyRequired(h.Cfg.APIKey, h.Cfg.Secret))

	api.POST("/chat", h.Chat)
	api.GET("/usage", h.Usage)
	api.GET("/history", h.History)
	api.GET("/status", h.Status)
	api.POST("/ingest", h.Ingest)

	admin := api.Group("/admin")
	admin.POST("/cleanup", h.Cleanup)
	admin.POST("/reset", h.ResetCollection)
	admin.GET("/leads", h.ListLeads)

	return r
}
