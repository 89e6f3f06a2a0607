package notify

import (
	"testing"
	"time"

	"github.com/monocle-dev/monocle/internal/incident"
	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/types"
	"github.com/stretchr/testify/assert"
)

func testEvent(kind incident.Event, errorType types.ErrorType) Event {
	monitor := models.Monitor{Name: "Checkout API", URL: "https://shop.example.com/health", UserID: "user-1"}
	monitor.ID = "mon-1"

	return Event{
		Kind:    kind,
		Monitor: monitor,
		Result: types.ProbeResult{
			IsUp:         kind == incident.EventResolved,
			ResponseMs:   10000,
			ErrorType:    errorType,
			ErrorMessage: "Request timed out after 10000ms",
		},
		UserID:     "user-1",
		IncidentID: "inc-1",
		Downtime:   5*time.Minute + 12*time.Second,
		OccurredAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderNewIncident(t *testing.T) {
	msg := Render(testEvent(incident.EventNewIncident, types.ErrorTimeout))

	assert.Equal(t, "Service Down: Checkout API", msg.Title)
	assert.Equal(t, types.PriorityCritical, msg.Priority)
	assert.Contains(t, msg.Body, "URL: https://shop.example.com/health")
	assert.Contains(t, msg.Body, "Error: Request timed out after 10000ms")
	assert.Contains(t, msg.Body, "Error Type: timeout")
	assert.Contains(t, msg.Body, "Incident ID: inc-1")
	assert.Contains(t, msg.Body, "Detected At: 2026-10-18 12:00:00 UTC")
	assert.NotContains(t, msg.Body, "Status Code:")
	for _, tip := range Tips(types.ErrorTimeout) {
		assert.Contains(t, msg.Body, tip)
	}
}

func TestRenderTipsPerErrorType(t *testing.T) {
	for _, errorType := range []types.ErrorType{types.ErrorTimeout, types.ErrorNetwork, types.ErrorStatus, types.ErrorUnknown} {
		t.Run(string(errorType), func(t *testing.T) {
			msg := Render(testEvent(incident.EventNewIncident, errorType))
			assert.Contains(t, msg.Body, Tips(errorType)[0])
		})
	}

	assert.Equal(t, defaultTips, Tips(types.ErrorUnknown))
	assert.NotEqual(t, Tips(types.ErrorTimeout), Tips(types.ErrorNetwork))
}

func TestRenderStatusCode(t *testing.T) {
	event := testEvent(incident.EventNewIncident, types.ErrorStatus)
	event.Result.StatusCode = 503
	event.Result.ErrorMessage = "Expected 200, got 503"

	msg := Render(event)

	assert.Contains(t, msg.Body, "Status Code: 503")
	assert.Contains(t, msg.Body, "Error: Expected 200, got 503")
}

func TestRenderResolved(t *testing.T) {
	msg := Render(testEvent(incident.EventResolved, types.ErrorNone))

	assert.Equal(t, "Service Restored: Checkout API", msg.Title)
	assert.Equal(t, types.PriorityMedium, msg.Priority)
	assert.Contains(t, msg.Body, "Downtime: 5 minutes (5m12s)")
	assert.Contains(t, msg.Body, "Resolved At: 2026-10-18 12:00:00 UTC")
	assert.NotContains(t, msg.Body, "Troubleshooting")
}

func TestRenderIsDeterministic(t *testing.T) {
	event := testEvent(incident.EventNewIncident, types.ErrorNetwork)
	assert.Equal(t, Render(event), Render(event))
}

func TestRenderFallsBackToURL(t *testing.T) {
	event := testEvent(incident.EventNewIncident, types.ErrorNetwork)
	event.Monitor.Name = ""

	assert.Equal(t, "Service Down: https://shop.example.com/health", Render(event).Title)
}

func TestFormatDowntime(t *testing.T) {
	assert.Equal(t, "less than a second", FormatDowntime(300*time.Millisecond))
	assert.Equal(t, "1 minute (1m30s)", FormatDowntime(90*time.Second))
	assert.Equal(t, "2 hours (2h0m0s)", FormatDowntime(2*time.Hour))
}

func TestPriorityMapping(t *testing.T) {
	assert.Equal(t, types.PriorityCritical, PriorityFor(incident.EventNewIncident))
	assert.Equal(t, types.PriorityMedium, PriorityFor(incident.EventResolved))
	assert.Equal(t, "🚨", PriorityEmoji(types.PriorityCritical))
	assert.Equal(t, ColorRed, DiscordColor(types.PriorityCritical))
	assert.Equal(t, ColorGreen, DiscordColor(types.PriorityMedium))
	assert.Equal(t, "#FF0000", SlackColor(types.PriorityCritical))
}
