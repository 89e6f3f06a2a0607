package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/queue"
	"github.com/monocle-dev/monocle/internal/store"
	"github.com/monocle-dev/monocle/internal/utils"
)

type CheckSummary struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	ResponseTime int64     `json:"response_time"`
	StatusCode   int       `json:"status_code,omitempty"`
	Message      string    `json:"message"`
	CheckedAt    time.Time `json:"checked_at"`
}

type IncidentSummary struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	DurationMs   int64      `json:"duration_ms"`
	ErrorMessage string     `json:"error_message"`
}

// ownedMonitor loads the monitor named in the path and checks that the caller
// owns it. It writes the error response itself.
func (h *Handler) ownedMonitor(ctx *gin.Context) (*models.Monitor, bool) {
	monitorID, err := utils.GetMonitorID(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}

	monitor, err := h.monitors.GetMonitor(ctx.Request.Context(), monitorID)

	if errors.Is(err, store.ErrMonitorNotFound) || (err == nil && monitor.UserID != userID) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
		return nil, false
	}

	if err != nil {
		h.logger.Errorw("Failed to load monitor", "monitor_id", monitorID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load monitor"})
		return nil, false
	}

	return monitor, true
}

// TriggerCheck enqueues an immediate check for the monitor.
func (h *Handler) TriggerCheck(ctx *gin.Context) {
	monitor, ok := h.ownedMonitor(ctx)
	if !ok {
		return
	}

	if err := h.jobs.Enqueue(ctx.Request.Context(), queue.Job{MonitorID: monitor.ID}); err != nil {
		h.logger.Errorw("Failed to enqueue check", "monitor_id", monitor.ID, "error", err)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue check"})
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"message":    "Check queued",
		"monitor_id": monitor.ID,
	})
}

func (h *Handler) GetMonitorChecks(ctx *gin.Context) {
	limit, err := utils.GetLimit(ctx, 50)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	monitor, ok := h.ownedMonitor(ctx)
	if !ok {
		return
	}

	checks, err := h.monitors.RecentCheckResults(ctx.Request.Context(), monitor.ID, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get checks"})
		return
	}

	summaries := make([]CheckSummary, 0, len(checks))
	for _, check := range checks {
		summaries = append(summaries, CheckSummary{
			ID:           check.ID,
			Status:       string(check.Status),
			ResponseTime: check.ResponseTime,
			StatusCode:   check.StatusCode,
			Message:      check.Message,
			CheckedAt:    check.CheckedAt,
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}

func (h *Handler) GetMonitorIncidents(ctx *gin.Context) {
	monitor, ok := h.ownedMonitor(ctx)
	if !ok {
		return
	}

	incidents, err := h.monitors.ListIncidents(ctx.Request.Context(), monitor.ID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get incidents"})
		return
	}

	summaries := make([]IncidentSummary, 0, len(incidents))
	for _, inc := range incidents {
		summaries = append(summaries, IncidentSummary{
			ID:           inc.ID,
			Status:       string(inc.Status),
			StartedAt:    inc.StartAt,
			ResolvedAt:   inc.EndAt,
			DurationMs:   inc.DurationMs,
			ErrorMessage: inc.ErrorMessage,
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}
