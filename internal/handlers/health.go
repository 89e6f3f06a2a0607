package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	queueStatus := "ok"

	if err := h.jobs.Ping(ctx); err != nil {
		h.logger.Warnw("Queue ping failed", "error", err)
		status = "degraded"
		queueStatus = err.Error()
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"message":   "Monocle is running",
		"queue":     queueStatus,
		"consumer":  h.consumer.GetStatus(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
