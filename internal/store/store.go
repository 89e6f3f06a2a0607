package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/types"
	"gorm.io/gorm"
)

var ErrMonitorNotFound = errors.New("monitor not found")

// Store is the persistence gateway used by the check engine.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetMonitor(ctx context.Context, id string) (*models.Monitor, error) {
	var monitor models.Monitor

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&monitor).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMonitorNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get monitor %s: %w", id, err)
	}

	return &monitor, nil
}

// SetMonitorStatus overwrites the monitor status and stamps the check time.
func (s *Store) SetMonitorStatus(ctx context.Context, id string, status types.MonitorStatus, checkedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.Monitor{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"last_checked_at": checkedAt,
		}).Error

	if err != nil {
		return fmt.Errorf("set monitor %s status: %w", id, err)
	}

	return nil
}

func (s *Store) AppendCheckResult(ctx context.Context, result *models.CheckResult) error {
	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("append check result for monitor %s: %w", result.MonitorID, err)
	}
	return nil
}

// FindOpenIncident returns nil without error when the monitor has no open incident.
func (s *Store) FindOpenIncident(ctx context.Context, monitorID string) (*models.Incident, error) {
	var incident models.Incident

	err := s.db.WithContext(ctx).
		Where("monitor_id = ? AND status = ?", monitorID, types.IncidentOpen).
		Order("start_at DESC").
		First(&incident).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("find open incident for monitor %s: %w", monitorID, err)
	}

	return &incident, nil
}

func (s *Store) CreateIncident(ctx context.Context, incident *models.Incident) error {
	if err := s.db.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("create incident for monitor %s: %w", incident.MonitorID, err)
	}
	return nil
}

func (s *Store) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	err := s.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ?", incident.ID).
		Updates(map[string]interface{}{
			"status":        incident.Status,
			"end_at":        incident.EndAt,
			"duration_ms":   incident.DurationMs,
			"error_message": incident.ErrorMessage,
		}).Error

	if err != nil {
		return fmt.Errorf("update incident %s: %w", incident.ID, err)
	}

	return nil
}

func (s *Store) ListChannels(ctx context.Context, userID string) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&channels).Error

	if err != nil {
		return nil, fmt.Errorf("list channels for user %s: %w", userID, err)
	}

	return channels, nil
}

func (s *Store) RecordNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Create(&notifications).Error; err != nil {
		return fmt.Errorf("record notifications: %w", err)
	}

	return nil
}

// RecentCheckResults returns the newest results first.
func (s *Store) RecentCheckResults(ctx context.Context, monitorID string, limit int) ([]models.CheckResult, error) {
	var results []models.CheckResult

	err := s.db.WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("checked_at DESC").
		Limit(limit).
		Find(&results).Error

	return results, err
}

func (s *Store) ListIncidents(ctx context.Context, monitorID string) ([]models.Incident, error) {
	var incidents []models.Incident

	err := s.db.WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("start_at ASC").
		Find(&incidents).Error

	return incidents, err
}
