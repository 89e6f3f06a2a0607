package models

import (
	"fmt"
	"time"

	"github.com/monocle-dev/monocle/internal/types"
	"gorm.io/datatypes"
)

type Monitor struct {
	BaseModel

	UserID         string              `gorm:"not null;index"`
	Name           string              `gorm:"not null"`
	URL            string              `gorm:"not null"`
	Method         string              `gorm:"not null;default:GET"`
	ExpectedStatus int                 `gorm:"not null;default:200"`
	Headers        datatypes.JSONMap
	Status         types.MonitorStatus `gorm:"not null;default:unknown"`
	LastCheckedAt  *time.Time

	// Relationships
	CheckResults []CheckResult `gorm:"foreignKey:MonitorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Incidents    []Incident    `gorm:"foreignKey:MonitorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// DisplayName is the name used in notifications.
func (m Monitor) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.URL
}

func (m Monitor) Target() types.ProbeTarget {
	headers := make(map[string]string, len(m.Headers))
	for key, value := range m.Headers {
		headers[key] = fmt.Sprint(value)
	}

	return types.ProbeTarget{
		Method:         m.Method,
		URL:            m.URL,
		Headers:        headers,
		ExpectedStatus: m.ExpectedStatus,
	}
}
