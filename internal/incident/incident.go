// Package incident holds the per-monitor incident state machine. Step is pure:
// it never touches storage and never sends notifications.
package incident

import (
	"time"

	"github.com/monocle-dev/monocle/internal/models"
	"github.com/monocle-dev/monocle/internal/types"
)

type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionResolve
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionResolve:
		return "resolve"
	default:
		return "none"
	}
}

// Event is the notification emitted by a transition.
type Event string

const (
	EventNone        Event = ""
	EventNewIncident Event = "new_incident"
	EventResolved    Event = "resolved"
)

// Transition describes what to persist and what to announce. Incident is nil
// for ActionNone and is always a copy, never the caller's value.
type Transition struct {
	Action   Action
	Incident *models.Incident
	Event    Event
}

// Step applies one probe result to the monitor's open incident (nil if none).
//
//	None + down -> create, NewIncident
//	Open + down -> update duration and error, silent
//	Open + up   -> resolve, Resolved
//	None + up   -> nothing
func Step(monitor *models.Monitor, open *models.Incident, result types.ProbeResult, now time.Time) Transition {
	switch {
	case open == nil && !result.IsUp:
		return Transition{
			Action: ActionCreate,
			Event:  EventNewIncident,
			Incident: &models.Incident{
				MonitorID:    monitor.ID,
				UserID:       monitor.UserID,
				Status:       types.IncidentOpen,
				StartAt:      now,
				DurationMs:   0,
				ErrorMessage: result.ErrorMessage,
			},
		}

	case open != nil && !result.IsUp:
		updated := *open
		updated.DurationMs = elapsed(open.StartAt, now, open.DurationMs)
		updated.ErrorMessage = result.ErrorMessage

		return Transition{Action: ActionUpdate, Incident: &updated}

	case open != nil && result.IsUp:
		end := now
		if end.Before(open.StartAt) {
			end = open.StartAt
		}

		resolved := *open
		resolved.Status = types.IncidentResolved
		resolved.EndAt = &end
		resolved.DurationMs = end.Sub(open.StartAt).Milliseconds()

		return Transition{Action: ActionResolve, Event: EventResolved, Incident: &resolved}
	}

	return Transition{Action: ActionNone}
}

// elapsed never moves a duration backwards, even if the clock does.
func elapsed(start, now time.Time, previous int64) int64 {
	d := now.Sub(start).Milliseconds()
	if d < previous {
		return previous
	}
	return d
}
