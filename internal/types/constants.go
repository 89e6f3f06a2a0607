package types

import (
	"strings"
)

const ContextUserKey = "user"

type MonitorStatus string

const (
	MonitorUp      MonitorStatus = "up"
	MonitorDown    MonitorStatus = "down"
	MonitorPaused  MonitorStatus = "paused"
	MonitorUnknown MonitorStatus = "unknown"
)

type CheckStatus string

const (
	CheckUp   CheckStatus = "up"
	CheckDown CheckStatus = "down"
)

type IncidentStatus string

const (
	IncidentOpen     IncidentStatus = "open"
	IncidentResolved IncidentStatus = "resolved"
)

// ChannelType is the closed set of notification channel kinds.
type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelSlack   ChannelType = "slack"
	ChannelDiscord ChannelType = "discord"
	ChannelWebhook ChannelType = "webhook"
)

// ErrorType classifies why a probe failed.
type ErrorType string

const (
	ErrorNone    ErrorType = ""
	ErrorTimeout ErrorType = "timeout"
	ErrorNetwork ErrorType = "network"
	ErrorStatus  ErrorType = "status"
	ErrorUnknown ErrorType = "unknown"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
)

// AllowedOrigins merges the development defaults with a comma separated list.
func AllowedOrigins(extra string) []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	for _, origin := range strings.Split(extra, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}
