package domain

import "time"

// ClassifiedError is a single false-positive limit detection. It is never
// mutated after creation.
type ClassifiedError struct {
	Message   string    `json:"message"`
	Rule      string    `json:"rule,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
