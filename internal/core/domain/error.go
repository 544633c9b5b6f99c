package domain

import "fmt"

// FallbackMessage is used when a raw error value carries no extractable message.
const FallbackMessage = "An unexpected error occurred"

// NormalizedError is the canonical shape every raw error is converted to
// before classification, logging or display. Message is never empty.
type NormalizedError struct {
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// HasCode reports whether a domain code was extracted.
func (n NormalizedError) HasCode() bool {
	return n.Code != ""
}

// AppError is an application error carrying a domain code and an optional
// HTTP-style status code.
type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Err        error
}

// NewAppError creates an AppError with the given code and message.
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{Message: message, Code: code, StatusCode: statusCode}
}

// WrapAppError creates an AppError that wraps cause.
func WrapAppError(cause error, code, message string, statusCode int) *AppError {
	return &AppError{Message: message, Code: code, StatusCode: statusCode, Err: cause}
}

func (e *AppError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// String renders the error with its code for log lines.
func (e *AppError) String() string {
	if e.Code == "" {
		return e.Error()
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Error())
}

// CodeFalsePositiveLimit marks results produced for a classified
// false-positive limit error.
const CodeFalsePositiveLimit = "FALSE_POSITIVE_LIMIT"
