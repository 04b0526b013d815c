// Package store provides storage backends for NextCoach.
//
// It defines the Store interface used by the coaching service and three
// implementations: an in-memory store for tests and ephemeral runs, and
// SQLite and PostgreSQL stores sharing one database/sql core. Every backend
// also implements OutboxRepo for restart-safe outgoing deliveries.
//
// Lookups return (nil, nil) when the record does not exist.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/NextMind/NextCoach/internal/models"
)

// DefaultMessageLimit is used by ListMessages when limit is not positive.
const DefaultMessageLimit = 50

// CompletionFilter selects exercise completions. UserID is required; the
// other fields are ignored when empty.
type CompletionFilter struct {
	UserID     string
	SessionID  string
	ExerciseID string
	Status     models.CompletionStatus
}

// Store is the persistence boundary of the coaching service.
type Store interface {
	SaveUser(u models.User) error
	GetUser(id string) (*models.User, error)

	SaveAssessment(a models.Assessment) error
	// LatestAssessment returns the most recently created assessment of the user.
	LatestAssessment(userID string) (*models.Assessment, error)

	SaveSession(s models.Session) error
	GetSession(id string) (*models.Session, error)
	// ListSessions returns the user's sessions, most recent interaction first.
	ListSessions(userID string) ([]models.Session, error)

	AddMessage(m models.Message) error
	// ListMessages returns up to limit messages of a session in chronological order.
	ListMessages(sessionID string, limit int) ([]models.Message, error)

	SaveExercise(e models.Exercise) error
	GetExercise(id string) (*models.Exercise, error)
	// ListExercises returns exercises ordered by difficulty then title.
	ListExercises(activeOnly bool) ([]models.Exercise, error)

	SaveCompletion(c models.ExerciseCompletion) error
	GetCompletion(id string) (*models.ExerciseCompletion, error)
	// ListCompletions returns matching completions, most recently assigned first.
	ListCompletions(f CompletionFilter) ([]models.ExerciseCompletion, error)

	SaveRecommendation(r models.Recommendation) error
	GetRecommendation(id string) (*models.Recommendation, error)
	// ListRecommendations returns the user's recommendations, highest priority first.
	ListRecommendations(userID string) ([]models.Recommendation, error)

	// SaveCheckIn inserts or replaces the check-in of a user for its date.
	SaveCheckIn(c models.CheckIn) error
	GetCheckIn(userID, date string) (*models.CheckIn, error)
	// ListCheckIns returns check-ins dated on or after since (YYYY-MM-DD, empty for all), newest first.
	ListCheckIns(userID, since string) ([]models.CheckIn, error)

	SaveCoachNote(n models.CoachNote) error
	// ListCoachNotes returns the user's coach notes, newest first.
	ListCoachNotes(userID string) ([]models.CoachNote, error)

	OutboxRepo

	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string // database connection string or SQLite file path
}

// Option defines a function for configuring store options.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DSNType identifies the backend a DSN belongs to.
type DSNType string

const (
	DSNTypeSQLite   DSNType = "sqlite3"
	DSNTypePostgres DSNType = "postgres"
)

// DetectDSNType classifies a DSN. URLs with a postgres scheme and keyword
// DSNs ("host=... dbname=...") are PostgreSQL; anything else is treated as an
// SQLite file path.
func DetectDSNType(dsn string) DSNType {
	d := strings.TrimSpace(dsn)
	lower := strings.ToLower(d)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DSNTypePostgres
	}
	if strings.Contains(d, "=") && (strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") || strings.Contains(lower, "user=")) {
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

// Open creates the store matching dsn's type.
func Open(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	switch DetectDSNType(dsn) {
	case DSNTypePostgres:
		slog.Info("Using PostgreSQL store")
		return NewPostgresStore(WithPostgresDSN(dsn))
	default:
		slog.Info("Using SQLite store", "path", dsn)
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	}
}
