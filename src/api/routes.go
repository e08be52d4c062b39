// Package api serves the simulator over HTTP.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dsesim/src/simulator"
	"dsesim/src/store"
)

// SetupRoutes registers every route under /api/v1.
func SetupRoutes(router *gin.Engine, db *gorm.DB, defaults simulator.Config) {
	runRepo := store.NewRunRepository(db)

	healthHandler := NewHealthHandler()
	scheduleHandler := NewScheduleHandler(runRepo, defaults)

	public := router.Group("/api/v1")
	{
		public.GET("/health", healthHandler.CheckHealth)

		schedules := public.Group("/schedules")
		{
			schedules.POST("", scheduleHandler.CreateSchedule)
			schedules.GET("", scheduleHandler.ListSchedules)
			schedules.GET("/:id", scheduleHandler.GetSchedule)
		}
	}
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// NewRouter returns a gin engine with recovery, request logging and all
// routes.
func NewRouter(db *gorm.DB, defaults simulator.Config) *gin.Engine {
	logger := defaults.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	SetupRoutes(router, db, defaults)
	return router
}
