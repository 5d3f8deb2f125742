package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smartwealth/pkg/monitoring"
)

// SetupRoutes registers middleware and every route on the router.
func SetupRoutes(router *gin.Engine, handler *Handler, metrics *monitoring.MetricsCollector, log zerolog.Logger) {
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(log))
	router.Use(MetricsMiddleware(metrics))
	router.Use(RateLimitMiddleware(120, time.Minute))

	router.GET("/health", handler.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/companies/discover", handler.DiscoverCompanies)
		v1.GET("/sectors", handler.ListSectors)
		v1.GET("/sectors/:name", handler.GetSector)
		v1.GET("/sectors/:name/subsectors", handler.GetSubsectors)
		v1.GET("/earnings", handler.EarningsCalendar)
		v1.GET("/system/metrics", handler.Metrics)
	}
}
