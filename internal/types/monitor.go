package types

import "time"

// ProbeTarget describes a single HTTP health probe.
type ProbeTarget struct {
	Method         string            `json:"method"`
	URL            string            `json:"url"`
	Headers        map[string]string `json:"headers"`
	ExpectedStatus int               `json:"expected_status"`
}

// ProbeResult is the classified outcome of one probe. StatusCode is zero when
// no response was received.
type ProbeResult struct {
	IsUp         bool      `json:"is_up"`
	ResponseMs   int64     `json:"response_ms"`
	StatusCode   int       `json:"status_code,omitempty"`
	ErrorType    ErrorType `json:"error_type,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

func (r ProbeResult) CheckStatus() CheckStatus {
	if r.IsUp {
		return CheckUp
	}
	return CheckDown
}

func (r ProbeResult) MonitorStatus() MonitorStatus {
	if r.IsUp {
		return MonitorUp
	}
	return MonitorDown
}
