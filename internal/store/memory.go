package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/util"
)

// InMemoryStore keeps everything in process memory. It is used by tests and
// for throwaway runs; nothing survives a restart.
type InMemoryStore struct {
	mu sync.RWMutex

	users           map[string]models.User
	assessments     []models.Assessment
	sessions        map[string]models.Session
	messages        map[string][]models.Message // by session ID, in insertion order
	exercises       map[string]models.Exercise
	completions     map[string]models.ExerciseCompletion
	recommendations map[string]models.Recommendation
	checkIns        map[string]models.CheckIn // by user ID + "/" + date
	coachNotes      []models.CoachNote
	outbox          map[string]OutboxMessage
	outboxOrder     []string
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:           make(map[string]models.User),
		sessions:        make(map[string]models.Session),
		messages:        make(map[string][]models.Message),
		exercises:       make(map[string]models.Exercise),
		completions:     make(map[string]models.ExerciseCompletion),
		recommendations: make(map[string]models.Recommendation),
		checkIns:        make(map[string]models.CheckIn),
		outbox:          make(map[string]OutboxMessage),
	}
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }

// The copy helpers below keep callers from aliasing maps and slices held by the store.

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyIntMap(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *InMemoryStore) SaveUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	}
	s.users[u.ID] = u
	return nil
}

func (s *InMemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *InMemoryStore) SaveAssessment(a models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.DISC = copyIntMap(a.DISC)
	for i := range s.assessments {
		if s.assessments[i].ID == a.ID {
			a.CreatedAt = s.assessments[i].CreatedAt
			s.assessments[i] = a
			return nil
		}
	}
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *InMemoryStore) LatestAssessment(userID string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.Assessment
	for i := range s.assessments {
		a := s.assessments[i]
		if a.UserID != userID {
			continue
		}
		// Later insertion wins ties.
		if latest == nil || !a.CreatedAt.Before(latest.CreatedAt) {
			latest = &a
		}
	}
	if latest == nil {
		return nil, nil
	}
	latest.DISC = copyIntMap(latest.DISC)
	return latest, nil
}

func (s *InMemoryStore) SaveSession(ss models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss.CompletedAt = copyTime(ss.CompletedAt)
	s.sessions[ss.ID] = ss
	return nil
}

func (s *InMemoryStore) GetSession(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	ss.CompletedAt = copyTime(ss.CompletedAt)
	return &ss, nil
}

func (s *InMemoryStore) ListSessions(userID string) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Session
	for _, ss := range s.sessions {
		if ss.UserID == userID {
			ss.CompletedAt = copyTime(ss.CompletedAt)
			out = append(out, ss)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastInteraction.Equal(out[j].LastInteraction) {
			return out[i].LastInteraction.After(out[j].LastInteraction)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) AddMessage(m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Metadata = copyStringMap(m.Metadata)
	s.messages[m.SessionID] = append(s.messages[m.SessionID], m)
	return nil
}

func (s *InMemoryStore) ListMessages(sessionID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		m.Metadata = copyStringMap(m.Metadata)
		out[i] = m
	}
	return out, nil
}

func (s *InMemoryStore) SaveExercise(e models.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ReflectionQuestions = copyStrings(e.ReflectionQuestions)
	s.exercises[e.ID] = e
	return nil
}

func (s *InMemoryStore) GetExercise(id string) (*models.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exercises[id]
	if !ok {
		return nil, nil
	}
	e.ReflectionQuestions = copyStrings(e.ReflectionQuestions)
	return &e, nil
}

func (s *InMemoryStore) ListExercises(activeOnly bool) ([]models.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Exercise
	for _, e := range s.exercises {
		if activeOnly && !e.IsActive {
			continue
		}
		e.ReflectionQuestions = copyStrings(e.ReflectionQuestions)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DifficultyLevel != out[j].DifficultyLevel {
			return out[i].DifficultyLevel < out[j].DifficultyLevel
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneCompletion(c models.ExerciseCompletion) models.ExerciseCompletion {
	c.StartedAt = copyTime(c.StartedAt)
	c.CompletedAt = copyTime(c.CompletedAt)
	c.ReflectionResponses = copyStringMap(c.ReflectionResponses)
	if c.Rating != nil {
		r := *c.Rating
		c.Rating = &r
	}
	return c
}

func (s *InMemoryStore) SaveCompletion(c models.ExerciseCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions[c.ID] = cloneCompletion(c)
	return nil
}

func (s *InMemoryStore) GetCompletion(id string) (*models.ExerciseCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.completions[id]
	if !ok {
		return nil, nil
	}
	c = cloneCompletion(c)
	return &c, nil
}

func (s *InMemoryStore) ListCompletions(f CompletionFilter) ([]models.ExerciseCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ExerciseCompletion
	for _, c := range s.completions {
		if c.UserID != f.UserID ||
			(f.SessionID != "" && c.SessionID != f.SessionID) ||
			(f.ExerciseID != "" && c.ExerciseID != f.ExerciseID) ||
			(f.Status != "" && c.Status != f.Status) {
			continue
		}
		out = append(out, cloneCompletion(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.After(out[j].AssignedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) SaveRecommendation(r models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Metadata = copyStringMap(r.Metadata)
	r.ExpiresAt = copyTime(r.ExpiresAt)
	s.recommendations[r.ID] = r
	return nil
}

func (s *InMemoryStore) GetRecommendation(id string) (*models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recommendations[id]
	if !ok {
		return nil, nil
	}
	r.Metadata = copyStringMap(r.Metadata)
	r.ExpiresAt = copyTime(r.ExpiresAt)
	return &r, nil
}

func (s *InMemoryStore) ListRecommendations(userID string) ([]models.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Recommendation
	for _, r := range s.recommendations {
		if r.UserID != userID {
			continue
		}
		r.Metadata = copyStringMap(r.Metadata)
		r.ExpiresAt = copyTime(r.ExpiresAt)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func checkInKey(userID, date string) string {
	return userID + "/" + date
}

func (s *InMemoryStore) SaveCheckIn(c models.CheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := checkInKey(c.UserID, c.Date)
	if existing, ok := s.checkIns[key]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	}
	c.GratitudeEntries = copyStrings(c.GratitudeEntries)
	s.checkIns[key] = c
	return nil
}

func (s *InMemoryStore) GetCheckIn(userID, date string) (*models.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkIns[checkInKey(userID, date)]
	if !ok {
		return nil, nil
	}
	c.GratitudeEntries = copyStrings(c.GratitudeEntries)
	return &c, nil
}

func (s *InMemoryStore) ListCheckIns(userID, since string) ([]models.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CheckIn
	for _, c := range s.checkIns {
		if c.UserID != userID || (since != "" && c.Date < since) {
			continue
		}
		c.GratitudeEntries = copyStrings(c.GratitudeEntries)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *InMemoryStore) SaveCoachNote(n models.CoachNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.coachNotes {
		if s.coachNotes[i].ID == n.ID {
			s.coachNotes[i] = n
			return nil
		}
	}
	s.coachNotes = append(s.coachNotes, n)
	return nil
}

func (s *InMemoryStore) ListCoachNotes(userID string) ([]models.CoachNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CoachNote
	for i := len(s.coachNotes) - 1; i >= 0; i-- {
		if s.coachNotes[i].UserID == userID {
			out = append(out, s.coachNotes[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- outbox ---

func (s *InMemoryStore) EnqueueOutboxMessage(userID, kind, payloadJSON, dedupeKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dedupeKey != "" {
		for _, id := range s.outboxOrder {
			m := s.outbox[id]
			if m.DedupeKey == dedupeKey && m.Status.pending() {
				slog.Debug("InMemoryStore.EnqueueOutboxMessage: dedupe hit", "dedupeKey", dedupeKey, "existingID", id)
				return id, nil
			}
		}
	}
	now := utcNow()
	m := OutboxMessage{
		ID:          util.NewID("outbox_"),
		UserID:      userID,
		Kind:        kind,
		PayloadJSON: payloadJSON,
		Status:      OutboxStatusQueued,
		DedupeKey:   dedupeKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.outbox[m.ID] = m
	s.outboxOrder = append(s.outboxOrder, m.ID)
	return m.ID, nil
}

func (s *InMemoryStore) ClaimDueOutboxMessages(now time.Time, limit int) ([]OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboxMessage
	for _, id := range s.outboxOrder {
		if len(out) >= limit {
			break
		}
		m := s.outbox[id]
		if m.Status != OutboxStatusQueued || (m.NextAttemptAt != nil && m.NextAttemptAt.After(now)) {
			continue
		}
		lockedAt := now
		m.Status = OutboxStatusSending
		m.LockedAt = &lockedAt
		m.UpdatedAt = now
		s.outbox[id] = m
		out = append(out, m)
	}
	return out, nil
}

func (s *InMemoryStore) updateOutbox(id string, fn func(*OutboxMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.outbox[id]
	if !ok {
		return nil
	}
	fn(&m)
	m.UpdatedAt = utcNow()
	s.outbox[id] = m
	return nil
}

func (s *InMemoryStore) MarkOutboxMessageSent(id string) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		m.Status = OutboxStatusSent
		m.LockedAt = nil
	})
}

func (s *InMemoryStore) FailOutboxMessage(id string, errMsg string, nextAttemptAt time.Time) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		m.Status = OutboxStatusQueued
		m.Attempts++
		m.LastError = errMsg
		next := nextAttemptAt
		m.NextAttemptAt = &next
		m.LockedAt = nil
	})
}

func (s *InMemoryStore) AbandonOutboxMessage(id string, errMsg string) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		m.Status = OutboxStatusFailed
		m.Attempts++
		m.LastError = errMsg
		m.LockedAt = nil
	})
}

func (s *InMemoryStore) RequeueStaleSendingMessages(staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, m := range s.outbox {
		if m.Status == OutboxStatusSending && m.LockedAt != nil && m.LockedAt.Before(staleBefore) {
			m.Status = OutboxStatusQueued
			m.LockedAt = nil
			s.outbox[id] = m
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) GetOutboxMessage(id string) (*OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.outbox[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}
