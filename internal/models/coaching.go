package models

import (
	"strings"
	"time"
)

// DefaultDisplayName is used when a user has neither a first name nor a username.
const DefaultDisplayName = "friend"

// User is the account the coaching data belongs to.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name,omitempty"`
	CoachRecipient string    `json:"coach_recipient,omitempty"` // human coach phone number, overrides the global one
	CreatedAt      time.Time `json:"created_at"`
}

// DisplayName returns the first name, falling back to the username and then
// to DefaultDisplayName. A nil user yields the placeholder.
func (u *User) DisplayName() string {
	if u == nil {
		return DefaultDisplayName
	}
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	return DefaultDisplayName
}

// BigFive holds the five-factor personality sub-scores, each on a 0-30 scale.
// Absent scores decode as zero.
type BigFive struct {
	Openness          int `json:"openness"`
	Conscientiousness int `json:"conscientiousness"`
	Extraversion      int `json:"extraversion"`
	Agreeableness     int `json:"agreeableness"`
	Stability         int `json:"stability"`
}

// Assessment is a psychological profile used to personalize recommendations.
// It is read-only input to the recommendation policy.
type Assessment struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	SessionID       string         `json:"session_id,omitempty"`
	BigFive         BigFive        `json:"big_five"`
	DISC            map[string]int `json:"disc,omitempty"`
	WellbeingScore  int            `json:"wellbeing_score"`  // 0-100
	ResilienceScore int            `json:"resilience_score"` // 0-40
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// SessionStatus is the lifecycle status of a coaching session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusArchived  SessionStatus = "archived"
)

// Session is a single user's ongoing coaching conversation. State holds the
// scripted dialog's conversation state and is only changed by a dialog turn
// (or reset by creating a new session).
type Session struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	Title              string        `json:"title"`
	Description        string        `json:"description,omitempty"`
	Theme              string        `json:"theme,omitempty"`
	Status             SessionStatus `json:"status"`
	State              string        `json:"state"`
	StartedAt          time.Time     `json:"started_at"`
	LastInteraction    time.Time     `json:"last_interaction"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
	ProgressPercentage int           `json:"progress_percentage"`
	TotalMessages      int           `json:"total_messages"`
	ExercisesCompleted int           `json:"exercises_completed"`
}

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Message is an immutable record of one utterance in a session.
type Message struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Sender    Sender            `json:"sender"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ExerciseKey is the stable identifier of a canned guided activity.
type ExerciseKey string

const (
	ExerciseKeyBreathing   ExerciseKey = "breathing"
	ExerciseKeyGratitude   ExerciseKey = "gratitude"
	ExerciseKeyGoalSetting ExerciseKey = "goal_setting"
)

// IsValidExerciseKey reports whether k is one of the known exercise keys.
func IsValidExerciseKey(k ExerciseKey) bool {
	switch k {
	case ExerciseKeyBreathing, ExerciseKeyGratitude, ExerciseKeyGoalSetting:
		return true
	default:
		return false
	}
}

// ExerciseType classifies exercises in the catalog.
type ExerciseType string

const (
	ExerciseTypeCBC           ExerciseType = "cbc"
	ExerciseTypeMindfulness   ExerciseType = "mindfulness"
	ExerciseTypeSmartGoals    ExerciseType = "smart_goals"
	ExerciseTypeGratitude     ExerciseType = "gratitude"
	ExerciseTypeVisualization ExerciseType = "visualization"
	ExerciseTypeRolePlay      ExerciseType = "role_play"
	ExerciseTypeBreathing     ExerciseType = "breathing"
)

// Exercise is a guided activity that can be assigned to a user.
type Exercise struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title"`
	Description         string       `json:"description,omitempty"`
	ExerciseType        ExerciseType `json:"exercise_type"`
	Theme               string       `json:"theme,omitempty"`
	DifficultyLevel     int          `json:"difficulty_level"`   // 1-5
	EstimatedDuration   int          `json:"estimated_duration"` // minutes
	Instructions        string       `json:"instructions,omitempty"`
	ReflectionQuestions []string     `json:"reflection_questions,omitempty"`
	IsActive            bool         `json:"is_active"`
	CreatedAt           time.Time    `json:"created_at"`
}

// CompletionStatus is the progress of an assigned exercise.
type CompletionStatus string

const (
	CompletionStatusAssigned   CompletionStatus = "assigned"
	CompletionStatusInProgress CompletionStatus = "in_progress"
	CompletionStatusCompleted  CompletionStatus = "completed"
	CompletionStatusSkipped    CompletionStatus = "skipped"
)

// IsOpen reports whether the completion can still be started or completed.
func (s CompletionStatus) IsOpen() bool {
	return s == CompletionStatusAssigned || s == CompletionStatusInProgress
}

// ExerciseCompletion tracks an exercise assigned to a user within a session.
type ExerciseCompletion struct {
	ID                  string            `json:"id"`
	UserID              string            `json:"user_id"`
	ExerciseID          string            `json:"exercise_id"`
	SessionID           string            `json:"session_id"`
	Status              CompletionStatus  `json:"status"`
	AssignedAt          time.Time         `json:"assigned_at"`
	StartedAt           *time.Time        `json:"started_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	UserNotes           string            `json:"user_notes,omitempty"`
	ReflectionResponses map[string]string `json:"reflection_responses,omitempty"`
	Rating              *int              `json:"rating,omitempty"` // 1-5
}

// RecommendationType classifies recommendations shown on the dashboard.
type RecommendationType string

const (
	RecommendationTypeExercise  RecommendationType = "exercise"
	RecommendationTypeResource  RecommendationType = "resource"
	RecommendationTypeTheme     RecommendationType = "theme"
	RecommendationTypeBreak     RecommendationType = "break"
	RecommendationTypeChallenge RecommendationType = "challenge"
)

// Recommendation is a persisted suggestion for a user.
type Recommendation struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	SessionID   string             `json:"session_id,omitempty"`
	Type        RecommendationType `json:"recommendation_type"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Priority    int                `json:"priority"` // 1-5, 5 being highest
	Metadata    map[string]string  `json:"metadata,omitempty"`
	IsActedUpon bool               `json:"is_acted_upon"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
}

// IsPending reports whether the recommendation is neither acted upon nor expired at now.
func (r Recommendation) IsPending(now time.Time) bool {
	if r.IsActedUpon {
		return false
	}
	return r.ExpiresAt == nil || !r.ExpiresAt.Before(now)
}

// CheckInDateLayout is the layout of CheckIn.Date.
const CheckInDateLayout = "2006-01-02"

// CheckIn is a daily mood and energy record; one per user and day.
type CheckIn struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Date             string    `json:"date"`         // YYYY-MM-DD
	Mood             int       `json:"mood"`         // 1-5
	EnergyLevel      int       `json:"energy_level"` // 1-10
	StressLevel      int       `json:"stress_level"` // 1-10
	Notes            string    `json:"notes,omitempty"`
	GratitudeEntries []string  `json:"gratitude_entries,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CoachNote is a note addressed to the human coach.
type CoachNote struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id,omitempty"`
	GeneratedByAI bool      `json:"generated_by_ai"`
	NoteType      string    `json:"note_type"` // completion, report, ...
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Priority      int       `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
}
