package coaching

import (
	"log/slog"
	"strings"

	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/store"
)

// ListExercises returns the active exercises, easiest first.
func (s *Service) ListExercises() ([]models.Exercise, error) {
	return s.st.ListExercises(true)
}

// GetExercise returns an active exercise.
func (s *Service) GetExercise(exerciseID string) (*models.Exercise, error) {
	ex, err := s.st.GetExercise(exerciseID)
	if err != nil {
		return nil, err
	}
	if ex == nil || !ex.IsActive {
		return nil, models.ErrNotFound
	}
	return ex, nil
}

// RecommendedExercises returns up to limit active exercises the user has not
// completed yet, optionally restricted to a theme, ordered by difficulty then
// title. A non-positive limit means DefaultRecommendedLimit.
func (s *Service) RecommendedExercises(userID, theme string, limit int) ([]models.Exercise, error) {
	if limit <= 0 {
		limit = DefaultRecommendedLimit
	}
	active, err := s.st.ListExercises(true)
	if err != nil {
		return nil, err
	}
	done, err := s.st.ListCompletions(store.CompletionFilter{UserID: userID, Status: models.CompletionStatusCompleted})
	if err != nil {
		return nil, err
	}
	completed := make(map[string]bool, len(done))
	for _, c := range done {
		completed[c.ExerciseID] = true
	}

	theme = strings.TrimSpace(theme)
	out := make([]models.Exercise, 0, limit)
	for _, ex := range active {
		if completed[ex.ID] {
			continue
		}
		if theme != "" && !strings.EqualFold(ex.Theme, theme) {
			continue
		}
		out = append(out, ex)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// AssignExercise assigns an active exercise to the user within one of their
// sessions. Assigning the same exercise twice in a session returns the
// existing completion; created reports whether a new one was stored.
func (s *Service) AssignExercise(userID, exerciseID string, req models.AssignExerciseRequest) (comp *models.ExerciseCompletion, created bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	unlock := s.locks.Lock(req.SessionID)
	defer unlock()

	if _, err := s.ownedSession(userID, req.SessionID); err != nil {
		return nil, false, err
	}
	if _, err := s.GetExercise(exerciseID); err != nil {
		return nil, false, err
	}
	return s.assign(userID, exerciseID, req.SessionID)
}

// ListCompletions returns the user's completions, optionally filtered by
// session and status, most recently assigned first.
func (s *Service) ListCompletions(userID, sessionID string, status models.CompletionStatus) ([]models.ExerciseCompletion, error) {
	return s.st.ListCompletions(store.CompletionFilter{UserID: userID, SessionID: sessionID, Status: status})
}

func (s *Service) ownedCompletion(userID, completionID string) (*models.ExerciseCompletion, error) {
	c, err := s.st.GetCompletion(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.UserID != userID {
		return nil, models.ErrNotFound
	}
	return c, nil
}

// StartCompletion marks an open completion as in progress.
func (s *Service) StartCompletion(userID, completionID string) (*models.ExerciseCompletion, error) {
	c, err := s.ownedCompletion(userID, completionID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(c.SessionID)
	defer unlock()

	if c, err = s.ownedCompletion(userID, completionID); err != nil {
		return nil, err
	}
	if !c.Status.IsOpen() {
		return nil, models.ErrCompletionNotOpen
	}
	if c.Status == models.CompletionStatusInProgress && c.StartedAt != nil {
		return c, nil
	}
	now := s.now()
	c.Status = models.CompletionStatusInProgress
	c.StartedAt = &now
	if err := s.st.SaveCompletion(*c); err != nil {
		slog.Error("Service StartCompletion failed", "error", err, "completion_id", c.ID)
		return nil, err
	}
	slog.Debug("Service StartCompletion succeeded", "completion_id", c.ID)
	return c, nil
}

// CompleteCompletion closes an open completion with the user's feedback and
// counts it on the session.
func (s *Service) CompleteCompletion(userID, completionID string, req models.CompleteExerciseRequest) (*models.ExerciseCompletion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.ownedCompletion(userID, completionID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(c.SessionID)
	defer unlock()

	if c, err = s.ownedCompletion(userID, completionID); err != nil {
		return nil, err
	}
	if !c.Status.IsOpen() {
		return nil, models.ErrCompletionNotOpen
	}
	now := s.now()
	c.Status = models.CompletionStatusCompleted
	c.CompletedAt = &now
	c.UserNotes = req.UserNotes
	c.ReflectionResponses = req.ReflectionResponses
	c.Rating = req.Rating
	if err := s.st.SaveCompletion(*c); err != nil {
		slog.Error("Service CompleteCompletion failed", "error", err, "completion_id", c.ID)
		return nil, err
	}

	sess, err := s.st.GetSession(c.SessionID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		sess.ExercisesCompleted++
		pct, _, err := s.completionRatio(userID, sess.ID)
		if err != nil {
			return nil, err
		}
		sess.ProgressPercentage = pct
		if err := s.st.SaveSession(*sess); err != nil {
			slog.Error("Service CompleteCompletion save session failed", "error", err, "session_id", sess.ID)
			return nil, err
		}
	}
	slog.Info("Service CompleteCompletion succeeded", "completion_id", c.ID, "session_id", c.SessionID)
	return c, nil
}
