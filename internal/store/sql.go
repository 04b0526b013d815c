package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NextMind/NextCoach/internal/models"
)

// sqlStore holds the queries shared by the SQLite and PostgreSQL backends.
// Queries are written with "?" placeholders and rebound per dialect.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	name    string // used as the log prefix, e.g. "SQLiteStore"
}

func (s *sqlStore) exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(s.dialect.rebind(query), args...)
}

func (s *sqlStore) queryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(s.dialect.rebind(query), args...)
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	slog.Debug(s.name + " closing database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error(s.name+" failed to close database", "error", err)
	} else {
		slog.Debug(s.name + " database connection closed successfully")
	}
	return err
}

// --- users ---

const userColumns = `id, username, first_name, coach_recipient, created_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var firstName, coach sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &firstName, &coach, &u.CreatedAt); err != nil {
		return u, err
	}
	u.FirstName = firstName.String
	u.CoachRecipient = coach.String
	return u, nil
}

func (s *sqlStore) SaveUser(u models.User) error {
	_, err := s.exec(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET username = excluded.username, first_name = excluded.first_name,
		coach_recipient = excluded.coach_recipient`,
		u.ID, u.Username, nilIfEmpty(u.FirstName), nilIfEmpty(u.CoachRecipient), u.CreatedAt.UTC())
	if err != nil {
		slog.Error(s.name+" SaveUser failed", "error", err, "userID", u.ID)
		return fmt.Errorf("failed to save user %s: %w", u.ID, err)
	}
	slog.Debug(s.name+" SaveUser succeeded", "userID", u.ID)
	return nil
}

func (s *sqlStore) GetUser(id string) (*models.User, error) {
	u, err := scanUser(s.queryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug(s.name+" GetUser not found", "userID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetUser failed", "error", err, "userID", id)
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &u, nil
}

// --- assessments ---

const assessmentColumns = `id, user_id, session_id, openness, conscientiousness, extraversion, agreeableness,
	stability, disc_json, wellbeing_score, resilience_score, notes, created_at`

func scanAssessment(row scanner) (models.Assessment, error) {
	var a models.Assessment
	var sessionID, discJSON, notes sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &sessionID, &a.BigFive.Openness, &a.BigFive.Conscientiousness,
		&a.BigFive.Extraversion, &a.BigFive.Agreeableness, &a.BigFive.Stability, &discJSON,
		&a.WellbeingScore, &a.ResilienceScore, &notes, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	a.SessionID = sessionID.String
	a.Notes = notes.String
	if err := decodeJSON(discJSON, &a.DISC); err != nil {
		return a, err
	}
	return a, nil
}

func (s *sqlStore) SaveAssessment(a models.Assessment) error {
	discJSON, err := encodeJSON(a.DISC)
	if err != nil {
		return err
	}
	bf := a.BigFive
	_, err = s.exec(`INSERT INTO assessments (`+assessmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET session_id = excluded.session_id, openness = excluded.openness,
		conscientiousness = excluded.conscientiousness, extraversion = excluded.extraversion,
		agreeableness = excluded.agreeableness, stability = excluded.stability, disc_json = excluded.disc_json,
		wellbeing_score = excluded.wellbeing_score, resilience_score = excluded.resilience_score, notes = excluded.notes`,
		a.ID, a.UserID, nilIfEmpty(a.SessionID), bf.Openness, bf.Conscientiousness, bf.Extraversion,
		bf.Agreeableness, bf.Stability, nilIfEmpty(discJSON), a.WellbeingScore, a.ResilienceScore,
		nilIfEmpty(a.Notes), a.CreatedAt.UTC())
	if err != nil {
		slog.Error(s.name+" SaveAssessment failed", "error", err, "userID", a.UserID)
		return fmt.Errorf("failed to save assessment for %s: %w", a.UserID, err)
	}
	slog.Debug(s.name+" SaveAssessment succeeded", "assessmentID", a.ID, "userID", a.UserID)
	return nil
}

func (s *sqlStore) LatestAssessment(userID string) (*models.Assessment, error) {
	a, err := scanAssessment(s.queryRow(`SELECT `+assessmentColumns+` FROM assessments
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" LatestAssessment failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get latest assessment for %s: %w", userID, err)
	}
	return &a, nil
}

// --- sessions ---

const sessionColumns = `id, user_id, title, description, theme, status, state, started_at, last_interaction,
	completed_at, progress_percentage, total_messages, exercises_completed`

func scanSession(row scanner) (models.Session, error) {
	var ss models.Session
	var description, theme sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&ss.ID, &ss.UserID, &ss.Title, &description, &theme, &ss.Status, &ss.State,
		&ss.StartedAt, &ss.LastInteraction, &completedAt, &ss.ProgressPercentage, &ss.TotalMessages,
		&ss.ExercisesCompleted)
	if err != nil {
		return ss, err
	}
	ss.Description = description.String
	ss.Theme = theme.String
	ss.CompletedAt = timePtr(completedAt)
	return ss, nil
}

func (s *sqlStore) SaveSession(ss models.Session) error {
	_, err := s.exec(`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, description = excluded.description,
		theme = excluded.theme, status = excluded.status, state = excluded.state,
		last_interaction = excluded.last_interaction, completed_at = excluded.completed_at,
		progress_percentage = excluded.progress_percentage, total_messages = excluded.total_messages,
		exercises_completed = excluded.exercises_completed`,
		ss.ID, ss.UserID, ss.Title, nilIfEmpty(ss.Description), nilIfEmpty(ss.Theme), string(ss.Status), ss.State,
		ss.StartedAt.UTC(), ss.LastInteraction.UTC(), nullTime(ss.CompletedAt), ss.ProgressPercentage,
		ss.TotalMessages, ss.ExercisesCompleted)
	if err != nil {
		slog.Error(s.name+" SaveSession failed", "error", err, "sessionID", ss.ID)
		return fmt.Errorf("failed to save session %s: %w", ss.ID, err)
	}
	slog.Debug(s.name+" SaveSession succeeded", "sessionID", ss.ID, "state", ss.State, "status", ss.Status)
	return nil
}

func (s *sqlStore) GetSession(id string) (*models.Session, error) {
	ss, err := scanSession(s.queryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug(s.name+" GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &ss, nil
}

func (s *sqlStore) ListSessions(userID string) ([]models.Session, error) {
	out, err := queryList(s, scanSession, `SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? ORDER BY last_interaction DESC, id`, userID)
	if err != nil {
		slog.Error(s.name+" ListSessions failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to list sessions for %s: %w", userID, err)
	}
	return out, nil
}

// --- messages ---

const messageColumns = `id, session_id, sender, content, metadata_json, sent_at`

func scanMessage(row scanner) (models.Message, error) {
	var m models.Message
	var metadata sql.NullString
	if err := row.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &metadata, &m.Timestamp); err != nil {
		return m, err
	}
	if err := decodeJSON(metadata, &m.Metadata); err != nil {
		return m, err
	}
	return m, nil
}

func (s *sqlStore) AddMessage(m models.Message) error {
	metadata, err := encodeJSON(m.Metadata)
	if err != nil {
		return err
	}
	_, err = s.exec(`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, string(m.Sender), m.Content, nilIfEmpty(metadata), m.Timestamp.UTC())
	if err != nil {
		slog.Error(s.name+" AddMessage failed", "error", err, "sessionID", m.SessionID)
		return fmt.Errorf("failed to add message to session %s: %w", m.SessionID, err)
	}
	slog.Debug(s.name+" AddMessage succeeded", "sessionID", m.SessionID, "sender", m.Sender)
	return nil
}

func (s *sqlStore) ListMessages(sessionID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	// seq breaks ties between messages written within the same clock tick.
	out, err := queryList(s, scanMessage, `SELECT `+messageColumns+` FROM messages
		WHERE session_id = ? ORDER BY sent_at, seq LIMIT ?`, sessionID, limit)
	if err != nil {
		slog.Error(s.name+" ListMessages failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to list messages for %s: %w", sessionID, err)
	}
	return out, nil
}

// --- exercises ---

const exerciseColumns = `id, title, description, exercise_type, theme, difficulty_level, estimated_duration,
	instructions, reflection_questions_json, is_active, created_at`

func scanExercise(row scanner) (models.Exercise, error) {
	var e models.Exercise
	var description, theme, instructions, questions sql.NullString
	err := row.Scan(&e.ID, &e.Title, &description, &e.ExerciseType, &theme, &e.DifficultyLevel,
		&e.EstimatedDuration, &instructions, &questions, &e.IsActive, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.Description = description.String
	e.Theme = theme.String
	e.Instructions = instructions.String
	if err := decodeJSON(questions, &e.ReflectionQuestions); err != nil {
		return e, err
	}
	return e, nil
}

func (s *sqlStore) SaveExercise(e models.Exercise) error {
	questions, err := encodeJSON(e.ReflectionQuestions)
	if err != nil {
		return err
	}
	_, err = s.exec(`INSERT INTO exercises (`+exerciseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, description = excluded.description,
		exercise_type = excluded.exercise_type, theme = excluded.theme, difficulty_level = excluded.difficulty_level,
		estimated_duration = excluded.estimated_duration, instructions = excluded.instructions,
		reflection_questions_json = excluded.reflection_questions_json, is_active = excluded.is_active`,
		e.ID, e.Title, nilIfEmpty(e.Description), string(e.ExerciseType), nilIfEmpty(e.Theme), e.DifficultyLevel,
		e.EstimatedDuration, nilIfEmpty(e.Instructions), nilIfEmpty(questions), e.IsActive, e.CreatedAt.UTC())
	if err != nil {
		slog.Error(s.name+" SaveExercise failed", "error", err, "exerciseID", e.ID)
		return fmt.Errorf("failed to save exercise %s: %w", e.ID, err)
	}
	slog.Debug(s.name+" SaveExercise succeeded", "exerciseID", e.ID, "title", e.Title)
	return nil
}

func (s *sqlStore) GetExercise(id string) (*models.Exercise, error) {
	e, err := scanExercise(s.queryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetExercise failed", "error", err, "exerciseID", id)
		return nil, fmt.Errorf("failed to get exercise %s: %w", id, err)
	}
	return &e, nil
}

func (s *sqlStore) ListExercises(activeOnly bool) ([]models.Exercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM exercises`
	var args []interface{}
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY difficulty_level, title, id`
	out, err := queryList(s, scanExercise, query, args...)
	if err != nil {
		slog.Error(s.name+" ListExercises failed", "error", err)
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	return out, nil
}

// --- exercise completions ---

const completionColumns = `id, user_id, exercise_id, session_id, status, assigned_at, started_at, completed_at,
	user_notes, reflection_responses_json, rating`

func scanCompletion(row scanner) (models.ExerciseCompletion, error) {
	var c models.ExerciseCompletion
	var startedAt, completedAt sql.NullTime
	var notes, responses sql.NullString
	var rating sql.NullInt64
	err := row.Scan(&c.ID, &c.UserID, &c.ExerciseID, &c.SessionID, &c.Status, &c.AssignedAt,
		&startedAt, &completedAt, &notes, &responses, &rating)
	if err != nil {
		return c, err
	}
	c.StartedAt = timePtr(startedAt)
	c.CompletedAt = timePtr(completedAt)
	c.UserNotes = notes.String
	if rating.Valid {
		r := int(rating.Int64)
		c.Rating = &r
	}
	if err := decodeJSON(responses, &c.ReflectionResponses); err != nil {
		return c, err
	}
	return c, nil
}

func (s *sqlStore) SaveCompletion(c models.ExerciseCompletion) error {
	responses, err := encodeJSON(c.ReflectionResponses)
	if err != nil {
		return err
	}
	var rating interface{}
	if c.Rating != nil {
		rating = *c.Rating
	}
	_, err = s.exec(`INSERT INTO exercise_completions (`+completionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status, started_at = excluded.started_at,
		completed_at = excluded.completed_at, user_notes = excluded.user_notes,
		reflection_responses_json = excluded.reflection_responses_json, rating = excluded.rating`,
		c.ID, c.UserID, c.ExerciseID, c.SessionID, string(c.Status), c.AssignedAt.UTC(), nullTime(c.StartedAt),
		nullTime(c.CompletedAt), nilIfEmpty(c.UserNotes), nilIfEmpty(responses), rating)
	if err != nil {
		slog.Error(s.name+" SaveCompletion failed", "error", err, "completionID", c.ID)
		return fmt.Errorf("failed to save completion %s: %w", c.ID, err)
	}
	slog.Debug(s.name+" SaveCompletion succeeded", "completionID", c.ID, "status", c.Status)
	return nil
}

func (s *sqlStore) GetCompletion(id string) (*models.ExerciseCompletion, error) {
	c, err := scanCompletion(s.queryRow(`SELECT `+completionColumns+` FROM exercise_completions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetCompletion failed", "error", err, "completionID", id)
		return nil, fmt.Errorf("failed to get completion %s: %w", id, err)
	}
	return &c, nil
}

func (s *sqlStore) ListCompletions(f CompletionFilter) ([]models.ExerciseCompletion, error) {
	query := `SELECT ` + completionColumns + ` FROM exercise_completions WHERE user_id = ?`
	args := []interface{}{f.UserID}
	if f.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if f.ExerciseID != "" {
		query += ` AND exercise_id = ?`
		args = append(args, f.ExerciseID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY assigned_at DESC, id`
	out, err := queryList(s, scanCompletion, query, args...)
	if err != nil {
		slog.Error(s.name+" ListCompletions failed", "error", err, "userID", f.UserID)
		return nil, fmt.Errorf("failed to list completions for %s: %w", f.UserID, err)
	}
	return out, nil
}

// --- recommendations ---

const recommendationColumns = `id, user_id, session_id, recommendation_type, title, description, priority,
	metadata_json, is_acted_upon, created_at, expires_at`

func scanRecommendation(row scanner) (models.Recommendation, error) {
	var r models.Recommendation
	var sessionID, description, metadata sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(&r.ID, &r.UserID, &sessionID, &r.Type, &r.Title, &description, &r.Priority,
		&metadata, &r.IsActedUpon, &r.CreatedAt, &expiresAt)
	if err != nil {
		return r, err
	}
	r.SessionID = sessionID.String
	r.Description = description.String
	r.ExpiresAt = timePtr(expiresAt)
	if err := decodeJSON(metadata, &r.Metadata); err != nil {
		return r, err
	}
	return r, nil
}

func (s *sqlStore) SaveRecommendation(r models.Recommendation) error {
	metadata, err := encodeJSON(r.Metadata)
	if err != nil {
		return err
	}
	_, err = s.exec(`INSERT INTO recommendations (`+recommendationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, description = excluded.description,
		priority = excluded.priority, metadata_json = excluded.metadata_json,
		is_acted_upon = excluded.is_acted_upon, expires_at = excluded.expires_at`,
		r.ID, r.UserID, nilIfEmpty(r.SessionID), string(r.Type), r.Title, nilIfEmpty(r.Description), r.Priority,
		nilIfEmpty(metadata), r.IsActedUpon, r.CreatedAt.UTC(), nullTime(r.ExpiresAt))
	if err != nil {
		slog.Error(s.name+" SaveRecommendation failed", "error", err, "recommendationID", r.ID)
		return fmt.Errorf("failed to save recommendation %s: %w", r.ID, err)
	}
	slog.Debug(s.name+" SaveRecommendation succeeded", "recommendationID", r.ID, "type", r.Type)
	return nil
}

func (s *sqlStore) GetRecommendation(id string) (*models.Recommendation, error) {
	r, err := scanRecommendation(s.queryRow(`SELECT `+recommendationColumns+` FROM recommendations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetRecommendation failed", "error", err, "recommendationID", id)
		return nil, fmt.Errorf("failed to get recommendation %s: %w", id, err)
	}
	return &r, nil
}

func (s *sqlStore) ListRecommendations(userID string) ([]models.Recommendation, error) {
	out, err := queryList(s, scanRecommendation, `SELECT `+recommendationColumns+` FROM recommendations
		WHERE user_id = ? ORDER BY priority DESC, created_at DESC, id`, userID)
	if err != nil {
		slog.Error(s.name+" ListRecommendations failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to list recommendations for %s: %w", userID, err)
	}
	return out, nil
}

// --- check-ins ---

const checkInColumns = `id, user_id, checkin_date, mood, energy_level, stress_level, notes, gratitude_json, created_at`

func scanCheckIn(row scanner) (models.CheckIn, error) {
	var c models.CheckIn
	var notes, gratitude sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Date, &c.Mood, &c.EnergyLevel, &c.StressLevel, &notes, &gratitude, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	c.Notes = notes.String
	if err := decodeJSON(gratitude, &c.GratitudeEntries); err != nil {
		return c, err
	}
	return c, nil
}

func (s *sqlStore) SaveCheckIn(c models.CheckIn) error {
	gratitude, err := encodeJSON(c.GratitudeEntries)
	if err != nil {
		return err
	}
	_, err = s.exec(`INSERT INTO checkins (`+checkInColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, checkin_date) DO UPDATE SET mood = excluded.mood,
		energy_level = excluded.energy_level, stress_level = excluded.stress_level,
		notes = excluded.notes, gratitude_json = excluded.gratitude_json`,
		c.ID, c.UserID, c.Date, c.Mood, c.EnergyLevel, c.StressLevel, nilIfEmpty(c.Notes), nilIfEmpty(gratitude),
		c.CreatedAt.UTC())
	if err != nil {
		slog.Error(s.name+" SaveCheckIn failed", "error", err, "userID", c.UserID, "date", c.Date)
		return fmt.Errorf("failed to save check-in for %s on %s: %w", c.UserID, c.Date, err)
	}
	slog.Debug(s.name+" SaveCheckIn succeeded", "userID", c.UserID, "date", c.Date)
	return nil
}

func (s *sqlStore) GetCheckIn(userID, date string) (*models.CheckIn, error) {
	c, err := scanCheckIn(s.queryRow(`SELECT `+checkInColumns+` FROM checkins WHERE user_id = ? AND checkin_date = ?`,
		userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error(s.name+" GetCheckIn failed", "error", err, "userID", userID, "date", date)
		return nil, fmt.Errorf("failed to get check-in for %s on %s: %w", userID, date, err)
	}
	return &c, nil
}

func (s *sqlStore) ListCheckIns(userID, since string) ([]models.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM checkins WHERE user_id = ?`
	args := []interface{}{userID}
	if since != "" {
		query += ` AND checkin_date >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY checkin_date DESC`
	out, err := queryList(s, scanCheckIn, query, args...)
	if err != nil {
		slog.Error(s.name+" ListCheckIns failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to list check-ins for %s: %w", userID, err)
	}
	return out, nil
}

// --- coach notes ---

const coachNoteColumns = `id, user_id, session_id, generated_by_ai, note_type, title, content, priority, created_at`

func scanCoachNote(row scanner) (models.CoachNote, error) {
	var n models.CoachNote
	var sessionID sql.NullString
	err := row.Scan(&n.ID, &n.UserID, &sessionID, &n.GeneratedByAI, &n.NoteType, &n.Title, &n.Content,
		&n.Priority, &n.CreatedAt)
	if err != nil {
		return n, err
	}
	n.SessionID = sessionID.String
	return n, nil
}

func (s *sqlStore) SaveCoachNote(n models.CoachNote) error {
	_, err := s.exec(`INSERT INTO coach_notes (`+coachNoteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, content = excluded.content, priority = excluded.priority`,
		n.ID, n.UserID, nilIfEmpty(n.SessionID), n.GeneratedByAI, n.NoteType, n.Title, n.Content, n.Priority,
		n.CreatedAt.UTC())
	if err != nil {
		slog.Error(s.name+" SaveCoachNote failed", "error", err, "userID", n.UserID)
		return fmt.Errorf("failed to save coach note for %s: %w", n.UserID, err)
	}
	slog.Debug(s.name+" SaveCoachNote succeeded", "noteID", n.ID, "type", n.NoteType)
	return nil
}

func (s *sqlStore) ListCoachNotes(userID string) ([]models.CoachNote, error) {
	out, err := queryList(s, scanCoachNote, `SELECT `+coachNoteColumns+` FROM coach_notes
		WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		slog.Error(s.name+" ListCoachNotes failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to list coach notes for %s: %w", userID, err)
	}
	return out, nil
}

// utcNow is the clock used for bookkeeping columns such as updated_at.
func utcNow() time.Time {
	return time.Now().UTC()
}
