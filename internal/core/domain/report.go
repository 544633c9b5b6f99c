package domain

import "time"

// Report is an error forwarded to an external monitoring sink.
type Report struct {
	Message     string    `json:"message"`
	Code        string    `json:"code"`
	StatusCode  int       `json:"status_code,omitempty"`
	Environment string    `json:"environment"`
	OccurredAt  time.Time `json:"occurred_at"`
}
