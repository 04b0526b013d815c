package coaching

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/NextMind/NextCoach/internal/dialog"
	"github.com/NextMind/NextCoach/internal/metrics"
	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/store"
)

// Coach note types.
const (
	NoteTypeCompletion = "completion"
	NoteTypeReport     = "report"
)

// ResourceRecommendationPriority is the priority of recommendations created
// from dialog resource texts.
const ResourceRecommendationPriority = 4

// Directive outcomes recorded in metrics.
const (
	directiveApplied   = "applied"
	directiveDuplicate = "duplicate"
	directiveSkipped   = "skipped"
)

func completionNoteContent(sess models.Session) string {
	return fmt.Sprintf("Session '%s' completed. Total messages: %d, exercises completed: %d",
		sess.Title, sess.TotalMessages, sess.ExercisesCompleted)
}

func assignmentNotice(ex models.Exercise) string {
	return fmt.Sprintf("New exercise: %s. Duration: %d min.", ex.Title, ex.EstimatedDuration)
}

// applyDirectives performs the dialog's side effects in order and returns the
// system messages they produced. sess is updated in place but not saved.
func (s *Service) applyDirectives(sess *models.Session, directives []dialog.Directive) ([]models.Message, error) {
	var notices []models.Message
	for _, d := range directives {
		switch d.Kind {
		case dialog.DirectiveRecommendExercise:
			notice, err := s.recommendExercise(sess, d.ExerciseKey)
			if err != nil {
				return nil, err
			}
			if notice != nil {
				notices = append(notices, *notice)
			}
		case dialog.DirectiveMarkSessionCompleted:
			if err := s.completeOpenExercises(sess); err != nil {
				return nil, err
			}
		case dialog.DirectiveAddRecommendationText:
			if err := s.addResourceRecommendation(sess, d.Text); err != nil {
				return nil, err
			}
		default:
			slog.Warn("Service applyDirectives: unknown directive", "kind", d.Kind, "session_id", sess.ID)
			metrics.RecordDirective(string(d.Kind), directiveSkipped)
		}
	}
	return notices, nil
}

func (s *Service) recommendExercise(sess *models.Session, key models.ExerciseKey) (*models.Message, error) {
	kind := string(dialog.DirectiveRecommendExercise)
	ex, err := s.resolveExercise(key)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		slog.Warn("Service recommendExercise: no active exercise matches key", "key", key, "session_id", sess.ID)
		metrics.RecordDirective(kind, directiveSkipped)
		return nil, nil
	}
	comp, created, err := s.assign(sess.UserID, ex.ID, sess.ID)
	if err != nil {
		return nil, err
	}
	if !created {
		metrics.RecordDirective(kind, directiveDuplicate)
		return nil, nil
	}
	notice := models.Message{
		ID:        newID("msg_"),
		SessionID: sess.ID,
		Sender:    models.SenderSystem,
		Content:   assignmentNotice(*ex),
		Metadata:  map[string]string{"exercise_id": ex.ID, "completion_id": comp.ID},
		Timestamp: s.now(),
	}
	if err := s.st.AddMessage(notice); err != nil {
		slog.Error("Service recommendExercise notice failed", "error", err, "session_id", sess.ID)
		return nil, err
	}
	metrics.RecordDirective(kind, directiveApplied)
	return &notice, nil
}

// resolveExercise finds the active exercise for a catalog key: first by
// exercise type, then by a title containing one of the catalog keywords.
// It returns nil when nothing matches.
func (s *Service) resolveExercise(key models.ExerciseKey) (*models.Exercise, error) {
	entry, ok := s.policy.Catalog().Exercise(key)
	if !ok {
		return nil, nil
	}
	active, err := s.st.ListExercises(true)
	if err != nil {
		return nil, err
	}
	if entry.Type != "" {
		for i := range active {
			if active[i].ExerciseType == entry.Type {
				return &active[i], nil
			}
		}
	}
	keywords := append([]string{entry.Title}, entry.TitleKeywords...)
	for i := range active {
		title := strings.ToLower(active[i].Title)
		for _, kw := range keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(title, kw) {
				return &active[i], nil
			}
		}
	}
	return nil, nil
}

// assign returns the completion of exerciseID for the user in the session,
// creating it when missing. created reports whether a new one was stored.
func (s *Service) assign(userID, exerciseID, sessionID string) (comp *models.ExerciseCompletion, created bool, err error) {
	existing, err := s.st.ListCompletions(store.CompletionFilter{
		UserID:     userID,
		SessionID:  sessionID,
		ExerciseID: exerciseID,
	})
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}
	c := models.ExerciseCompletion{
		ID:         newID("comp_"),
		UserID:     userID,
		ExerciseID: exerciseID,
		SessionID:  sessionID,
		Status:     models.CompletionStatusAssigned,
		AssignedAt: s.now(),
	}
	if err := s.st.SaveCompletion(c); err != nil {
		slog.Error("Service assign failed", "error", err, "exercise_id", exerciseID, "session_id", sessionID)
		return nil, false, err
	}
	slog.Info("Service assign succeeded", "user_id", userID, "exercise_id", exerciseID, "session_id", sessionID)
	return &c, true, nil
}

func (s *Service) completeOpenExercises(sess *models.Session) error {
	completions, err := s.st.ListCompletions(store.CompletionFilter{UserID: sess.UserID, SessionID: sess.ID})
	if err != nil {
		return err
	}
	now := s.now()
	closed := 0
	for _, c := range completions {
		if !c.Status.IsOpen() {
			continue
		}
		c.Status = models.CompletionStatusCompleted
		c.CompletedAt = &now
		if err := s.st.SaveCompletion(c); err != nil {
			slog.Error("Service completeOpenExercises failed", "error", err, "completion_id", c.ID)
			return err
		}
		closed++
	}
	sess.ExercisesCompleted += closed
	metrics.RecordDirective(string(dialog.DirectiveMarkSessionCompleted), directiveApplied)
	slog.Debug("Service completeOpenExercises", "session_id", sess.ID, "closed", closed)
	return nil
}

func (s *Service) addResourceRecommendation(sess *models.Session, text string) error {
	r := models.Recommendation{
		ID:          newID("rec_"),
		UserID:      sess.UserID,
		SessionID:   sess.ID,
		Type:        models.RecommendationTypeResource,
		Title:       "Resources for you",
		Description: text,
		Priority:    ResourceRecommendationPriority,
		CreatedAt:   s.now(),
	}
	if err := s.st.SaveRecommendation(r); err != nil {
		slog.Error("Service addResourceRecommendation failed", "error", err, "session_id", sess.ID)
		return err
	}
	metrics.RecordDirective(string(dialog.DirectiveAddRecommendationText), directiveApplied)
	return nil
}
