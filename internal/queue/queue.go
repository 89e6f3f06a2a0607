package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrNoJob = errors.New("no job available")

// Job is the check job payload.
type Job struct {
	MonitorID string `json:"monitorId"`
	Attempts  int    `json:"attempts,omitempty"`
}

// Delivery is a dequeued job. raw is the exact list element so Ack and Fail
// can remove it from the processing list.
type Delivery struct {
	Job Job
	raw string
}

type failedJob struct {
	Job      Job       `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

// Queue is a reliable redis list queue: pending -> processing -> acked,
// retried or failed.
type Queue struct {
	client      *redis.Client
	name        string
	maxAttempts int
	logger      *zap.SugaredLogger
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(client *redis.Client, name string, maxAttempts int, logger *zap.SugaredLogger) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Queue{
		client:      client,
		name:        name,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (q *Queue) processingKey() string { return q.name + ":processing" }
func (q *Queue) FailedKey() string     { return q.name + ":failed" }

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.MonitorID == "" {
		return fmt.Errorf("job has no monitor id")
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("enqueue job for monitor %s: %w", job.MonitorID, err)
	}

	return nil
}

// Dequeue blocks up to wait for a job and moves it to the processing list.
// It returns ErrNoJob when nothing arrived in time.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*Delivery, error) {
	raw, err := q.client.BRPopLPush(ctx, q.name, q.processingKey(), wait).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrNoJob
	}

	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil || job.MonitorID == "" {
		q.logger.Warnw("Dropping malformed job", "payload", raw, "error", err)
		_ = q.bury(ctx, raw, Job{}, "malformed job payload")
		return nil, ErrNoJob
	}

	return &Delivery{Job: job, raw: raw}, nil
}

func (q *Queue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, q.processingKey(), 1, d.raw).Err(); err != nil {
		return fmt.Errorf("ack job for monitor %s: %w", d.Job.MonitorID, err)
	}
	return nil
}

// Fail re-enqueues the job until it has been attempted maxAttempts times,
// then moves it to the failed list.
func (q *Queue) Fail(ctx context.Context, d *Delivery, cause error) error {
	job := d.Job
	job.Attempts++

	if job.Attempts < q.maxAttempts {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}

		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, q.processingKey(), 1, d.raw)
		pipe.LPush(ctx, q.name, data)

		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("retry job for monitor %s: %w", job.MonitorID, err)
		}

		q.logger.Infow("Job scheduled for retry", "monitor_id", job.MonitorID, "attempts", job.Attempts, "error", cause)
		return nil
	}

	return q.bury(ctx, d.raw, job, cause.Error())
}

func (q *Queue) bury(ctx context.Context, raw string, job Job, reason string) error {
	data, err := json.Marshal(failedJob{Job: job, Error: reason, FailedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal failed job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, raw)
	pipe.LPush(ctx, q.FailedKey(), data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("move job to failed list: %w", err)
	}

	q.logger.Warnw("Job moved to failed list", "monitor_id", job.MonitorID, "attempts", job.Attempts, "reason", reason)
	return nil
}

// RecoverProcessing moves jobs left in the processing list by a previous
// process back onto the queue. Call it before starting consumers.
func (q *Queue) RecoverProcessing(ctx context.Context) (int, error) {
	moved := 0

	for {
		err := q.client.RPopLPush(ctx, q.processingKey(), q.name).Err()

		if errors.Is(err, redis.Nil) {
			return moved, nil
		}

		if err != nil {
			return moved, fmt.Errorf("recover processing jobs: %w", err)
		}

		moved++
	}
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

func (q *Queue) FailedLen(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.FailedKey()).Result()
}
