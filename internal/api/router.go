package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/synthsense-agent/internal/a2a"
)

// NewRouter serves the health check, the A2A agent and the /api routes.
// Health reports 503 while the store cannot be reached.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a2a.RequestLogger(h.logger))

	agent := a2a.NewHandler(h.simulator, h.cohorts, h.store, h.cohortSize, h.logger)
	router.GET("/.well-known/agent.json", agent.ServeAgentCard)
	router.POST("/a2a/simulate", agent.HandleSimulate)

	router.GET("/health", func(c *gin.Context) {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			h.logger.Error("health check: store unreachable", zap.Error(err))
			c.String(http.StatusServiceUnavailable, "UNAVAILABLE")
			return
		}
		c.String(http.StatusOK, "OK")
	})

	h.Register(router)
	return router
}
