package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/monocle-dev/monocle/internal/incident"
	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/types"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

// Event is one incident notification to fan out to a user's channels.
type Event struct {
	Kind       incident.Event
	Monitor    models.Monitor
	Result     types.ProbeResult
	UserID     string
	IncidentID string
	Downtime   time.Duration
	OccurredAt time.Time
}

// Message is the channel-independent rendering of an Event.
type Message struct {
	Title     string
	Body      string
	Priority  types.Priority
	Timestamp time.Time
}

var troubleshootingTips = map[types.ErrorType][]string{
	types.ErrorTimeout: {
		"Check whether the server is overloaded or slow to respond",
		"Look for long-running requests or blocked workers",
		"Verify that no firewall or load balancer is silently dropping traffic",
	},
	types.ErrorNetwork: {
		"Verify the domain resolves and the host is reachable",
		"Check that the service is running and listening on the expected port",
		"Confirm no recent network or firewall change blocks the connection",
	},
	types.ErrorStatus: {
		"Review the application logs for errors around the detection time",
		"Confirm the endpoint path and the expected status code are correct",
		"Check for authentication, maintenance or rate limiting responses",
	},
}

var defaultTips = []string{
	"Check the service logs for errors",
	"Verify the monitor URL and configuration",
	"Try the request manually to reproduce the failure",
}

func Tips(errorType types.ErrorType) []string {
	if tips, ok := troubleshootingTips[errorType]; ok {
		return tips
	}
	return defaultTips
}

func PriorityFor(kind incident.Event) types.Priority {
	if kind == incident.EventNewIncident {
		return types.PriorityCritical
	}
	return types.PriorityMedium
}

func PriorityEmoji(p types.Priority) string {
	switch p {
	case types.PriorityCritical:
		return "🚨"
	case types.PriorityHigh:
		return "⚠️"
	case types.PriorityMedium:
		return "🔔"
	default:
		return "ℹ️"
	}
}

// Render is deterministic for a given event.
func Render(event Event) Message {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = event.Result.CheckedAt
	}
	ts = ts.UTC()

	msg := Message{
		Priority:  PriorityFor(event.Kind),
		Timestamp: ts,
	}

	name := event.Monitor.DisplayName()

	var b strings.Builder

	if event.Kind == incident.EventNewIncident {
		msg.Title = "Service Down: " + name

		fmt.Fprintf(&b, "%s is not responding as expected.\n\n", name)
		fmt.Fprintf(&b, "URL: %s\n", event.Monitor.URL)
		fmt.Fprintf(&b, "Error: %s\n", event.Result.ErrorMessage)
		fmt.Fprintf(&b, "Error Type: %s\n", errorTypeLabel(event.Result.ErrorType))
		if event.Result.StatusCode > 0 {
			fmt.Fprintf(&b, "Status Code: %d\n", event.Result.StatusCode)
		}
		fmt.Fprintf(&b, "Response Time: %dms\n", event.Result.ResponseMs)
		fmt.Fprintf(&b, "Incident ID: %s\n", event.IncidentID)
		fmt.Fprintf(&b, "Detected At: %s\n", ts.Format(timeLayout))
		b.WriteString("\nTroubleshooting Tips:\n")
		for _, tip := range Tips(event.Result.ErrorType) {
			fmt.Fprintf(&b, "• %s\n", tip)
		}
	} else {
		msg.Title = "Service Restored: " + name

		fmt.Fprintf(&b, "%s is back up and responding normally.\n\n", name)
		fmt.Fprintf(&b, "URL: %s\n", event.Monitor.URL)
		fmt.Fprintf(&b, "Downtime: %s\n", FormatDowntime(event.Downtime))
		fmt.Fprintf(&b, "Response Time: %dms\n", event.Result.ResponseMs)
		fmt.Fprintf(&b, "Incident ID: %s\n", event.IncidentID)
		fmt.Fprintf(&b, "Resolved At: %s\n", ts.Format(timeLayout))
	}

	msg.Body = strings.TrimRight(b.String(), "\n")

	return msg
}

// FormatDowntime renders e.g. "5 minutes (5m12s)".
func FormatDowntime(d time.Duration) string {
	if d < time.Second {
		return "less than a second"
	}

	base := time.Unix(0, 0)
	human := strings.TrimSpace(humanize.RelTime(base, base.Add(d), "", ""))

	return fmt.Sprintf("%s (%s)", human, d.Round(time.Second))
}

func errorTypeLabel(t types.ErrorType) string {
	if t == types.ErrorNone {
		return string(types.ErrorUnknown)
	}
	return string(t)
}
