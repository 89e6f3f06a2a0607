package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxListLimit = 200

func GetMonitorID(ctx *gin.Context) (string, error) {
	monitorID := ctx.Param("monitor_id")

	if monitorID == "" {
		return "", errors.New("Monitor ID not found")
	}

	if _, err := uuid.Parse(monitorID); err != nil {
		return "", errors.New("Invalid Monitor ID")
	}

	return monitorID, nil
}

// GetLimit reads the ?limit= query parameter, clamped to [1, 200].
func GetLimit(ctx *gin.Context, fallback int) (int, error) {
	raw := ctx.Query("limit")

	if raw == "" {
		return fallback, nil
	}

	limit, err := strconv.Atoi(raw)

	if err != nil || limit < 1 {
		return 0, errors.New("Invalid limit")
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	return limit, nil
}
