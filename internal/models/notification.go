package models

import (
	"time"

	"github.com/monocle-dev/monocle/internal/types"
)

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationChannel is owned by user configuration; the engine only reads it.
type NotificationChannel struct {
	BaseModel

	UserID string            `gorm:"not null;index"`
	Name   string
	Type   types.ChannelType `gorm:"not null"`
	Value  string            `gorm:"not null"` // email address or webhook URL
}

// Notification records the outcome of one channel delivery.
type Notification struct {
	BaseModel

	IncidentID  string            `gorm:"not null;index"`
	UserID      string            `gorm:"not null;index"`
	ChannelID   string            `gorm:"not null"`
	ChannelType types.ChannelType `gorm:"not null"`
	Status      string            `gorm:"not null"`
	Message     string
	SentAt      *time.Time
}
