package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/monocle-dev/monocle/db"
	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, db.MigrateDatabase(conn))

	t.Cleanup(func() { _ = db.Close(conn) })

	return conn
}

func seedMonitor(t *testing.T, conn *gorm.DB) *models.Monitor {
	t.Helper()

	monitor := &models.Monitor{
		UserID:         "user-1",
		Name:           "api",
		URL:            "https://example.com/health",
		Method:         "GET",
		ExpectedStatus: 200,
		Status:         types.MonitorUnknown,
	}
	require.NoError(t, conn.Create(monitor).Error)

	return monitor
}

func TestGetMonitor(t *testing.T) {
	conn := newTestDB(t)
	s := New(conn)
	ctx := context.Background()
	monitor := seedMonitor(t, conn)

	t.Run("found", func(t *testing.T) {
		got, err := s.GetMonitor(ctx, monitor.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/health", got.URL)
		assert.NotEmpty(t, got.ID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.GetMonitor(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrMonitorNotFound)
	})
}

func TestSetMonitorStatusOverwrites(t *testing.T) {
	conn := newTestDB(t)
	s := New(conn)
	ctx := context.Background()
	monitor := seedMonitor(t, conn)

	now := time.Now()
	require.NoError(t, s.SetMonitorStatus(ctx, monitor.ID, types.MonitorDown, now))
	require.NoError(t, s.SetMonitorStatus(ctx, monitor.ID, types.MonitorUp, now))

	got, err := s.GetMonitor(ctx, monitor.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MonitorUp, got.Status)
	require.NotNil(t, got.LastCheckedAt)
}

func TestIncidentLifecycle(t *testing.T) {
	conn := newTestDB(t)
	s := New(conn)
	ctx := context.Background()
	monitor := seedMonitor(t, conn)

	open, err := s.FindOpenIncident(ctx, monitor.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	incident := &models.Incident{
		MonitorID:    monitor.ID,
		UserID:       monitor.UserID,
		Status:       types.IncidentOpen,
		StartAt:      time.Now().Add(-time.Minute),
		ErrorMessage: "Expected 200, got 503",
	}
	require.NoError(t, s.CreateIncident(ctx, incident))

	open, err = s.FindOpenIncident(ctx, monitor.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, incident.ID, open.ID)

	end := time.Now()
	open.Status = types.IncidentResolved
	open.EndAt = &end
	open.DurationMs = 60000
	require.NoError(t, s.UpdateIncident(ctx, open))

	open, err = s.FindOpenIncident(ctx, monitor.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	incidents, err := s.ListIncidents(ctx, monitor.ID)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, int64(60000), incidents[0].DurationMs)
	assert.NotNil(t, incidents[0].EndAt)
}

func TestSecondOpenIncidentRejected(t *testing.T) {
	conn := newTestDB(t)
	s := New(conn)
	ctx := context.Background()
	monitor := seedMonitor(t, conn)

	first := &models.Incident{MonitorID: monitor.ID, UserID: monitor.UserID, Status: types.IncidentOpen, StartAt: time.Now()}
	require.NoError(t, s.CreateIncident(ctx, first))

	second := &models.Incident{MonitorID: monitor.ID, UserID: monitor.UserID, Status: types.IncidentOpen, StartAt: time.Now()}
	assert.Error(t, s.CreateIncident(ctx, second))
}

func TestAppendCheckResultAndChannels(t *testing.T) {
	conn := newTestDB(t)
	s := New(conn)
	ctx := context.Background()
	monitor := seedMonitor(t, conn)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendCheckResult(ctx, &models.CheckResult{
			MonitorID:    monitor.ID,
			Status:       types.CheckUp,
			ResponseTime: int64(50 + i),
			StatusCode:   200,
			CheckedAt:    time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	results, err := s.RecentCheckResults(ctx, monitor.ID, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(52), results[0].ResponseTime)

	channels, err := s.ListChannels(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, channels)

	require.NoError(t, conn.Create(&models.NotificationChannel{UserID: "user-1", Type: types.ChannelSlack, Value: "https://hooks.slack.test/x"}).Error)
	require.NoError(t, conn.Create(&models.NotificationChannel{UserID: "user-2", Type: types.ChannelEmail, Value: "ops@example.com"}).Error)

	channels, err = s.ListChannels(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, types.ChannelSlack, channels[0].Type)

	require.NoError(t, s.RecordNotifications(ctx, nil))
	require.NoError(t, s.RecordNotifications(ctx, []models.Notification{
		{IncidentID: "inc-1", UserID: "user-1", ChannelID: channels[0].ID, ChannelType: types.ChannelSlack, Status: models.NotificationSent},
	}))

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
