package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/monocle-dev/monocle/internal/incident"
	"github.com/monocle-dev/monocle/internal/metrics"
	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/notify"
	"github.com/monocle-dev/monocle/internal/queue"
	"github.com/monocle-dev/monocle/internal/realtime"
	"github.com/monocle-dev/monocle/internal/store"
	"github.com/monocle-dev/monocle/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultConcurrency = 10
	dequeueWait        = 2 * time.Second
	retryDelay         = time.Second
)

// Jobs is the queue side of the consumer.
type Jobs interface {
	Dequeue(ctx context.Context, wait time.Duration) (*queue.Delivery, error)
	Ack(ctx context.Context, d *queue.Delivery) error
	Fail(ctx context.Context, d *queue.Delivery, cause error) error
}

// Store is the persistence gateway a check needs.
type Store interface {
	GetMonitor(ctx context.Context, id string) (*models.Monitor, error)
	SetMonitorStatus(ctx context.Context, id string, status types.MonitorStatus, checkedAt time.Time) error
	AppendCheckResult(ctx context.Context, result *models.CheckResult) error
	FindOpenIncident(ctx context.Context, monitorID string) (*models.Incident, error)
	CreateIncident(ctx context.Context, incident *models.Incident) error
	UpdateIncident(ctx context.Context, incident *models.Incident) error
	RecordNotifications(ctx context.Context, notifications []models.Notification) error
}

type Prober interface {
	Probe(ctx context.Context, target types.ProbeTarget) types.ProbeResult
}

type Notifier interface {
	Dispatch(ctx context.Context, event notify.Event) ([]notify.Outcome, error)
}

type Locker interface {
	Acquire(ctx context.Context, monitorID string) (func(), bool, error)
}

type Broadcaster interface {
	BroadcastIncident(userID string, msg realtime.IncidentMessage)
}

// Deps wires the consumer. Locker and Broadcaster are optional.
type Deps struct {
	Jobs        Jobs
	Store       Store
	Prober      Prober
	Notifier    Notifier
	Locker      Locker
	Broadcaster Broadcaster
}

// Consumer pulls check jobs with a bounded number of workers and runs the
// probe -> incident -> notification pipeline for each.
type Consumer struct {
	deps        Deps
	concurrency int
	logger      *zap.SugaredLogger
	now         func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	processed atomic.Int64
	failed    atomic.Int64
}

func NewConsumer(deps Deps, concurrency int, logger *zap.SugaredLogger) *Consumer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Consumer{
		deps:        deps,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Start launches the workers and returns immediately. Cancelling ctx stops
// pulling jobs, as does Stop.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return fmt.Errorf("consumer already running")
	}

	pullCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running.Store(true)

	for i := 0; i < c.concurrency; i++ {
		c.wg.Add(1)
		go c.run(pullCtx, i)
	}

	c.logger.Infow("Consumer started", "workers", c.concurrency)
	return nil
}

// Stop stops pulling new jobs and waits for in-flight jobs to finish.
// In-flight jobs are not cancelled.
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	c.logger.Info("Stopping consumer...")
	cancel()
	c.wg.Wait()
	c.running.Store(false)
	c.logger.Infow("Consumer stopped", "processed", c.processed.Load(), "failed", c.failed.Load())
}

// GetStatus returns current consumer status
func (c *Consumer) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"running":   c.running.Load(),
		"workers":   c.concurrency,
		"processed": c.processed.Load(),
		"failed":    c.failed.Load(),
	}
}

func (c *Consumer) run(ctx context.Context, slot int) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		d, err := c.deps.Jobs.Dequeue(ctx, dequeueWait)

		if errors.Is(err, queue.ErrNoJob) {
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}

			c.logger.Errorw("Failed to dequeue job", "worker", slot, "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		// Stop must not cut a job short.
		c.handle(context.WithoutCancel(ctx), d)
	}
}

func (c *Consumer) handle(ctx context.Context, d *queue.Delivery) {
	start := time.Now()
	err := c.Process(ctx, d.Job.MonitorID)
	metrics.JobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.failed.Add(1)
		metrics.JobsProcessed.WithLabelValues("failed").Inc()
		c.logger.Errorw("Check job failed", "monitor_id", d.Job.MonitorID, "attempts", d.Job.Attempts, "error", err)

		if ferr := c.deps.Jobs.Fail(ctx, d, err); ferr != nil {
			c.logger.Errorw("Failed to report job failure", "monitor_id", d.Job.MonitorID, "error", ferr)
		}
		return
	}

	c.processed.Add(1)
	metrics.JobsProcessed.WithLabelValues("completed").Inc()

	if aerr := c.deps.Jobs.Ack(ctx, d); aerr != nil {
		c.logger.Errorw("Failed to ack job", "monitor_id", d.Job.MonitorID, "error", aerr)
	}
}

// Process runs one check for monitorID. Only persistence failures are
// returned; probe and notification failures are recorded as data.
func (c *Consumer) Process(ctx context.Context, monitorID string) error {
	monitor, err := c.deps.Store.GetMonitor(ctx, monitorID)

	if errors.Is(err, store.ErrMonitorNotFound) {
		c.logger.Warnw("Monitor not found, skipping check", "monitor_id", monitorID)
		return nil
	}

	if err != nil {
		return err
	}

	if monitor.Status == types.MonitorPaused {
		c.logger.Debugw("Monitor paused, skipping check", "monitor_id", monitorID)
		return nil
	}

	if c.deps.Locker != nil {
		release, ok, err := c.deps.Locker.Acquire(ctx, monitorID)
		if err != nil {
			return err
		}

		if !ok {
			c.logger.Infow("Check already running for monitor, skipping", "monitor_id", monitorID)
			return nil
		}

		defer release()
	}

	result := c.deps.Prober.Probe(ctx, monitor.Target())

	metrics.ChecksTotal.WithLabelValues(string(result.CheckStatus()), string(result.ErrorType)).Inc()
	metrics.ProbeDuration.Observe(float64(result.ResponseMs) / 1000)

	if err := c.deps.Store.SetMonitorStatus(ctx, monitor.ID, result.MonitorStatus(), result.CheckedAt); err != nil {
		return err
	}

	check := &models.CheckResult{
		MonitorID:    monitor.ID,
		Status:       result.CheckStatus(),
		ResponseTime: result.ResponseMs,
		StatusCode:   result.StatusCode,
		Message:      result.ErrorMessage,
		CheckedAt:    result.CheckedAt,
	}

	if err := c.deps.Store.AppendCheckResult(ctx, check); err != nil {
		return err
	}

	if result.IsUp {
		c.logger.Debugw("Monitor check succeeded", "monitor_id", monitor.ID, "response_ms", result.ResponseMs)
	} else {
		c.logger.Infow("Monitor check failed",
			"monitor_id", monitor.ID,
			"error_type", result.ErrorType,
			"error", result.ErrorMessage,
			"response_ms", result.ResponseMs)
	}

	open, err := c.deps.Store.FindOpenIncident(ctx, monitor.ID)
	if err != nil {
		return err
	}

	now := c.now()
	tr := incident.Step(monitor, open, result, now)
	metrics.IncidentTransitions.WithLabelValues(tr.Action.String()).Inc()

	switch tr.Action {
	case incident.ActionCreate:
		if err := c.deps.Store.CreateIncident(ctx, tr.Incident); err != nil {
			return err
		}
		c.logger.Warnw("Incident opened", "monitor_id", monitor.ID, "incident_id", tr.Incident.ID)
	case incident.ActionUpdate:
		if err := c.deps.Store.UpdateIncident(ctx, tr.Incident); err != nil {
			return err
		}
	case incident.ActionResolve:
		if err := c.deps.Store.UpdateIncident(ctx, tr.Incident); err != nil {
			return err
		}
		c.logger.Infow("Incident resolved", "monitor_id", monitor.ID, "incident_id", tr.Incident.ID, "duration_ms", tr.Incident.DurationMs)
	}

	if tr.Event != incident.EventNone {
		c.announce(ctx, monitor, result, tr, now)
	}

	return nil
}

// announce fans the event out to the user's channels, records the delivery
// log and pushes a realtime update. None of it can fail the job.
func (c *Consumer) announce(ctx context.Context, monitor *models.Monitor, result types.ProbeResult, tr incident.Transition, now time.Time) {
	event := notify.Event{
		Kind:       tr.Event,
		Monitor:    *monitor,
		Result:     result,
		UserID:     monitor.UserID,
		IncidentID: tr.Incident.ID,
		Downtime:   time.Duration(tr.Incident.DurationMs) * time.Millisecond,
		OccurredAt: now,
	}

	outcomes, err := c.deps.Notifier.Dispatch(ctx, event)
	if err != nil {
		c.logger.Errorw("Failed to dispatch notifications", "monitor_id", monitor.ID, "incident_id", tr.Incident.ID, "error", err)
	}

	if len(outcomes) > 0 {
		title := notify.Render(event).Title
		sentAt := now

		log := make([]models.Notification, 0, len(outcomes))
		for _, o := range outcomes {
			n := models.Notification{
				IncidentID:  tr.Incident.ID,
				UserID:      monitor.UserID,
				ChannelID:   o.ChannelID,
				ChannelType: o.Type,
				Status:      models.NotificationSent,
				Message:     title,
				SentAt:      &sentAt,
			}

			if !o.Success {
				n.Status = models.NotificationFailed
				n.Message = o.Error
				n.SentAt = nil
			}

			log = append(log, n)
		}

		if err := c.deps.Store.RecordNotifications(ctx, log); err != nil {
			c.logger.Warnw("Failed to record notification log", "incident_id", tr.Incident.ID, "error", err)
		}
	}

	if c.deps.Broadcaster != nil {
		c.deps.Broadcaster.BroadcastIncident(monitor.UserID, realtime.IncidentMessage{
			Event:       string(tr.Event),
			MonitorID:   monitor.ID,
			MonitorName: monitor.DisplayName(),
			IncidentID:  tr.Incident.ID,
			Status:      string(tr.Incident.Status),
			Error:       tr.Incident.ErrorMessage,
			DurationMs:  tr.Incident.DurationMs,
			Timestamp:   now,
		})
	}
}
