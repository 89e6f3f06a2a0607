package models

import (
	"time"

	"github.com/monocle-dev/monocle/internal/types"
)

// CheckResult rows are append-only.
type CheckResult struct {
	BaseModel

	MonitorID    string            `gorm:"not null;index"`
	Status       types.CheckStatus `gorm:"not null"`
	ResponseTime int64             `gorm:"not null"` // milliseconds
	StatusCode   int
	Message      string
	CheckedAt    time.Time `gorm:"not null;index"`
}
