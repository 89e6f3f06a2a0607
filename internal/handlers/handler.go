package handlers

import (
	"context"
	"net/http"

	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/queue"
	"go.uber.org/zap"
)

type MonitorReader interface {
	GetMonitor(ctx context.Context, id string) (*models.Monitor, error)
	RecentCheckResults(ctx context.Context, monitorID string, limit int) ([]models.CheckResult, error)
	ListIncidents(ctx context.Context, monitorID string) ([]models.Incident, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Ping(ctx context.Context) error
}

type StatusReporter interface {
	GetStatus() map[string]interface{}
}

type SessionServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

// Handler serves the ops API.
type Handler struct {
	monitors MonitorReader
	jobs     Enqueuer
	consumer StatusReporter
	sessions SessionServer
	logger   *zap.SugaredLogger
}

func New(monitors MonitorReader, jobs Enqueuer, consumer StatusReporter, sessions SessionServer, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		monitors: monitors,
		jobs:     jobs,
		consumer: consumer,
		sessions: sessions,
		logger:   logger,
	}
}
