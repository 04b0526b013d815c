package models

import (
	"strings"
)

// UserRegistrationRequest registers the caller as a coaching user.
type UserRegistrationRequest struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name,omitempty"`
	CoachRecipient string `json:"coach_recipient,omitempty"`
}

// Validate checks the registration request.
func (r *UserRegistrationRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyUsername
	}
	return nil
}

// AssessmentRequest records a completed assessment.
type AssessmentRequest struct {
	SessionID       string         `json:"session_id,omitempty"`
	BigFive         BigFive        `json:"big_five"`
	DISC            map[string]int `json:"disc,omitempty"`
	WellbeingScore  int            `json:"wellbeing_score"`
	ResilienceScore int            `json:"resilience_score"`
	Notes           string         `json:"notes,omitempty"`
}

// Validate checks that every score lies on its declared scale.
func (r *AssessmentRequest) Validate() error {
	for _, v := range []int{
		r.BigFive.Openness, r.BigFive.Conscientiousness, r.BigFive.Extraversion,
		r.BigFive.Agreeableness, r.BigFive.Stability,
	} {
		if v < 0 || v > MaxBigFiveScore {
			return ErrInvalidScore
		}
	}
	if r.WellbeingScore < 0 || r.WellbeingScore > MaxWellbeingScore {
		return ErrInvalidScore
	}
	if r.ResilienceScore < 0 || r.ResilienceScore > MaxResilienceScore {
		return ErrInvalidScore
	}
	return nil
}

// CreateSessionRequest opens a new coaching session.
type CreateSessionRequest struct {
	Title       string `json:"title,omitempty"`
	Theme       string `json:"theme,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks the session request.
func (r *CreateSessionRequest) Validate() error {
	if len(r.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// SendMessageRequest carries one user utterance.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Validate checks the message request.
func (r *SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	if len(r.Content) > MaxMessageLength {
		return ErrContentTooLong
	}
	return nil
}

// AssignExerciseRequest assigns an exercise within a session.
type AssignExerciseRequest struct {
	SessionID string `json:"session_id"`
}

// Validate checks the assignment request.
func (r *AssignExerciseRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return ErrMissingSessionID
	}
	return nil
}

// CompleteExerciseRequest closes an assigned exercise with feedback.
type CompleteExerciseRequest struct {
	UserNotes           string            `json:"user_notes,omitempty"`
	ReflectionResponses map[string]string `json:"reflection_responses,omitempty"`
	Rating              *int              `json:"rating,omitempty"`
}

// Validate checks the completion feedback.
func (r *CompleteExerciseRequest) Validate() error {
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		return ErrInvalidRating
	}
	return nil
}

// CheckInRequest records today's check-in.
type CheckInRequest struct {
	Mood             int      `json:"mood"`
	EnergyLevel      int      `json:"energy_level"`
	StressLevel      int      `json:"stress_level"`
	Notes            string   `json:"notes,omitempty"`
	GratitudeEntries []string `json:"gratitude_entries,omitempty"`
}

// Validate checks the check-in ranges.
func (r *CheckInRequest) Validate() error {
	if r.Mood < 1 || r.Mood > 5 {
		return ErrInvalidMood
	}
	if r.EnergyLevel < 1 || r.EnergyLevel > 10 {
		return ErrInvalidEnergyLevel
	}
	if r.StressLevel < 1 || r.StressLevel > 10 {
		return ErrInvalidStressLevel
	}
	return nil
}
