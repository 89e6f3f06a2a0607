package incident

import (
	"testing"
	"time"

	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	up   = types.ProbeResult{IsUp: true, StatusCode: 200, ResponseMs: 50}
	down = types.ProbeResult{IsUp: false, ErrorType: types.ErrorTimeout, ErrorMessage: "Request timed out after 10000ms"}
)

func testMonitor() *models.Monitor {
	m := &models.Monitor{UserID: "user-1", URL: "https://example.com"}
	m.ID = "mon-1"
	return m
}

func openIncident(start time.Time) *models.Incident {
	i := &models.Incident{
		MonitorID:    "mon-1",
		UserID:       "user-1",
		Status:       types.IncidentOpen,
		StartAt:      start,
		ErrorMessage: "old error",
	}
	i.ID = "inc-1"
	return i
}

func TestStep(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	t.Run("none and up is a no-op", func(t *testing.T) {
		tr := Step(testMonitor(), nil, up, now)

		assert.Equal(t, ActionNone, tr.Action)
		assert.Equal(t, EventNone, tr.Event)
		assert.Nil(t, tr.Incident)
	})

	t.Run("none and down opens an incident", func(t *testing.T) {
		tr := Step(testMonitor(), nil, down, now)

		require.Equal(t, ActionCreate, tr.Action)
		assert.Equal(t, EventNewIncident, tr.Event)
		require.NotNil(t, tr.Incident)
		assert.Equal(t, types.IncidentOpen, tr.Incident.Status)
		assert.Equal(t, now, tr.Incident.StartAt)
		assert.Zero(t, tr.Incident.DurationMs)
		assert.Nil(t, tr.Incident.EndAt)
		assert.Equal(t, "mon-1", tr.Incident.MonitorID)
		assert.Equal(t, "user-1", tr.Incident.UserID)
		assert.Equal(t, down.ErrorMessage, tr.Incident.ErrorMessage)
	})

	t.Run("open and down updates silently", func(t *testing.T) {
		open := openIncident(now.Add(-90 * time.Second))
		tr := Step(testMonitor(), open, down, now)

		require.Equal(t, ActionUpdate, tr.Action)
		assert.Equal(t, EventNone, tr.Event)
		assert.Equal(t, int64(90000), tr.Incident.DurationMs)
		assert.Equal(t, down.ErrorMessage, tr.Incident.ErrorMessage)
		assert.Equal(t, types.IncidentOpen, tr.Incident.Status)
		assert.Nil(t, tr.Incident.EndAt)

		// the input is untouched
		assert.Equal(t, "old error", open.ErrorMessage)
		assert.Zero(t, open.DurationMs)
	})

	t.Run("open and up resolves", func(t *testing.T) {
		start := now.Add(-5 * time.Minute)
		tr := Step(testMonitor(), openIncident(start), up, now)

		require.Equal(t, ActionResolve, tr.Action)
		assert.Equal(t, EventResolved, tr.Event)
		require.NotNil(t, tr.Incident.EndAt)
		assert.Equal(t, now, *tr.Incident.EndAt)
		assert.Equal(t, types.IncidentResolved, tr.Incident.Status)
		assert.Equal(t, tr.Incident.EndAt.Sub(start).Milliseconds(), tr.Incident.DurationMs)
		assert.Equal(t, "inc-1", tr.Incident.ID)
	})
}

func TestRepeatedDownIsMonotonicAndSilent(t *testing.T) {
	start := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	current := openIncident(start)

	var previous int64
	for i := 1; i <= 10; i++ {
		now := start.Add(time.Duration(i) * 30 * time.Second)
		tr := Step(testMonitor(), current, down, now)

		require.Equal(t, ActionUpdate, tr.Action)
		assert.Equal(t, EventNone, tr.Event)
		assert.Equal(t, current.ID, tr.Incident.ID)
		assert.GreaterOrEqual(t, tr.Incident.DurationMs, previous)

		previous = tr.Incident.DurationMs
		current = tr.Incident
	}

	// a clock step backwards keeps the last duration
	tr := Step(testMonitor(), current, down, start.Add(time.Minute))
	assert.Equal(t, previous, tr.Incident.DurationMs)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "create", ActionCreate.String())
	assert.Equal(t, "update", ActionUpdate.String())
	assert.Equal(t, "resolve", ActionResolve.String())
	assert.Equal(t, "none", ActionNone.String())
}
