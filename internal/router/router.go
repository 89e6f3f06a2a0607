package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/monocle/internal/handlers"
	"github.com/monocle-dev/monocle/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, verifier middleware.TokenVerifier, allowedOrigins []string, logger *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(verifier), h.WebSocket)

		monitors := api.Group("/monitors", middleware.AuthMiddleware(verifier))
		{
			monitors.POST("/:monitor_id/check", h.TriggerCheck)
			monitors.GET("/:monitor_id/checks", h.GetMonitorChecks)
			monitors.GET("/:monitor_id/incidents", h.GetMonitorIncidents)
		}
	}

	return r
}
