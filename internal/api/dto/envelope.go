package dto

import "github.com/spec-kit/task-service/internal/validation"

// Envelope wraps every API response.
type Envelope struct {
	Success bool                    `json:"success"`
	Data    any                     `json:"data,omitempty"`
	Message string                  `json:"message,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail builds an error envelope.
func Fail(message string, fieldErrors []validation.FieldError) Envelope {
	return Envelope{Success: false, Error: message, Errors: fieldErrors}
}
