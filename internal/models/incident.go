package models

import (
	"time"

	"github.com/monocle-dev/monocle/internal/types"
)

type Incident struct {
	BaseModel

	// The partial unique index keeps a single open incident per monitor.
	MonitorID    string               `gorm:"not null;index;uniqueIndex:idx_incidents_open_monitor,where:status = 'open'"`
	UserID       string               `gorm:"not null;index"`
	Status       types.IncidentStatus `gorm:"not null"`
	StartAt      time.Time            `gorm:"not null"`
	EndAt        *time.Time
	DurationMs   int64 `gorm:"not null;default:0"`
	ErrorMessage string

	// Relationships
	Notifications []Notification `gorm:"foreignKey:IncidentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (i *Incident) IsOpen() bool {
	return i.Status == types.IncidentOpen && i.EndAt == nil
}
