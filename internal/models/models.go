// Package models defines the core data structures for NextCoach.
//
// It includes the coaching entities (users, sessions, messages, exercises,
// check-ins, recommendations, assessments) and the JSON envelope shared by
// the API layer. Types live here so that the dialog, recommendation, store
// and coaching packages can share them without circular imports.
package models

import "errors"

// Error variables for better error handling and testability
var (
	// ErrNotFound is returned when a record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	ErrEmptyUserID          = errors.New("user id cannot be empty")
	ErrEmptyUsername        = errors.New("username is required")
	ErrEmptyContent         = errors.New("message content is required")
	ErrContentTooLong       = errors.New("message content exceeds maximum length")
	ErrTitleTooLong         = errors.New("title exceeds maximum length")
	ErrInvalidMood          = errors.New("mood must be between 1 and 5")
	ErrInvalidEnergyLevel   = errors.New("energy_level must be between 1 and 10")
	ErrInvalidStressLevel   = errors.New("stress_level must be between 1 and 10")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrInvalidScore         = errors.New("assessment score out of range")
	ErrMissingSessionID     = errors.New("session_id is required")
	ErrCompletionNotOpen    = errors.New("exercise completion is already closed")
	ErrInvalidExerciseLevel = errors.New("difficulty_level must be between 1 and 5")
	ErrNoCoachRecipient     = errors.New("no coach recipient configured")
	ErrInvalidRecipient     = errors.New("invalid coach recipient")
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for a chat message
	MaxMessageLength = 4096
	// MaxTitleLength mirrors the width of title columns
	MaxTitleLength = 255
	// MaxUserIDLength bounds the X-User-ID header
	MaxUserIDLength = 128
	// MaxBigFiveScore is the upper bound of every five-factor sub-score
	MaxBigFiveScore = 30
	// MaxWellbeingScore is the upper bound of the wellbeing score
	MaxWellbeingScore = 100
	// MaxResilienceScore is the upper bound of the resilience score
	MaxResilienceScore = 40
)

// IsValidationError reports whether err is one of the client-side validation errors.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyUserID, ErrEmptyUsername, ErrEmptyContent, ErrContentTooLong,
		ErrTitleTooLong, ErrInvalidMood, ErrInvalidEnergyLevel, ErrInvalidStressLevel,
		ErrInvalidRating, ErrInvalidScore, ErrMissingSessionID, ErrCompletionNotOpen,
		ErrInvalidExerciseLevel, ErrNoCoachRecipient, ErrInvalidRecipient,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
	// APIStatusQueued indicates the request resulted in queued outbound delivery.
	APIStatusQueued APIStatus = "queued"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Convenience functions for common response patterns

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Recorded creates a recorded API response carrying the stored record.
func Recorded(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusRecorded).
		WithResult(result).
		Build()
}

// Queued creates a queued API response with a message.
func Queued(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusQueued).
		WithMessage(message).
		WithResult(result).
		Build()
}
