package coaching

import (
	"log/slog"
	"strings"

	"github.com/NextMind/NextCoach/internal/dialog"
	"github.com/NextMind/NextCoach/internal/metrics"
	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/store"
)

// Turn is the outcome of SendMessage: the stored user message, the coach's
// reply, any system notices produced by directives, and the updated session.
type Turn struct {
	UserMessage      models.Message   `json:"user_message"`
	AssistantMessage models.Message   `json:"assistant_message"`
	Notices          []models.Message `json:"notices,omitempty"`
	Session          models.Session   `json:"session"`
}

// Progress summarizes how far a session has come.
type Progress struct {
	SessionID          string               `json:"session_id"`
	Status             models.SessionStatus `json:"status"`
	State              string               `json:"state"`
	ProgressPercentage int                  `json:"progress_percentage"`
	TotalMessages      int                  `json:"total_messages"`
	ExercisesAssigned  int                  `json:"exercises_assigned"`
	ExercisesCompleted int                  `json:"exercises_completed"`
}

// CreateSession opens a new session in the idle state and posts the opening
// prompt chosen for the user's latest assessment.
func (s *Service) CreateSession(userID string, req models.CreateSessionRequest) (*models.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultSessionTitle
	}
	latest, err := s.latestAssessment(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := models.Session{
		ID:              newID("sess_"),
		UserID:          userID,
		Title:           title,
		Description:     req.Description,
		Theme:           req.Theme,
		Status:          models.SessionStatusActive,
		State:           string(dialog.StateIdle),
		StartedAt:       now,
		LastInteraction: now,
	}
	if err := s.st.SaveSession(sess); err != nil {
		slog.Error("Service CreateSession failed", "error", err, "user_id", userID)
		return nil, err
	}
	opening := models.Message{
		ID:        newID("msg_"),
		SessionID: sess.ID,
		Sender:    models.SenderAssistant,
		Content:   s.policy.OpeningPrompt(latest),
		Timestamp: now,
	}
	if err := s.st.AddMessage(opening); err != nil {
		slog.Error("Service CreateSession opening message failed", "error", err, "session_id", sess.ID)
		return nil, err
	}
	slog.Info("Service CreateSession succeeded", "user_id", userID, "session_id", sess.ID, "assessed", latest != nil)
	return &sess, nil
}

// ListSessions returns the user's sessions, most recent interaction first.
func (s *Service) ListSessions(userID string) ([]models.Session, error) {
	return s.st.ListSessions(userID)
}

// GetSession returns a session owned by the user.
func (s *Service) GetSession(userID, sessionID string) (*models.Session, error) {
	return s.ownedSession(userID, sessionID)
}

// Messages returns up to limit messages of the session in chronological
// order; a non-positive limit means store.DefaultMessageLimit.
func (s *Service) Messages(userID, sessionID string, limit int) ([]models.Message, error) {
	if _, err := s.ownedSession(userID, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = store.DefaultMessageLimit
	}
	return s.st.ListMessages(sessionID, limit)
}

// SendMessage runs one dialog turn. Turns of the same session are
// serialized, so the state read here is the state the previous turn wrote.
//
// Writes are not transactional. They happen in message order: the user
// message, the reply, directive side effects with their notices, then the
// session. The session is saved last, so a failed turn leaves the dialog
// state and counters untouched and the client can resend; the messages
// already stored stay in the history. Directives are idempotent per session.
func (s *Service) SendMessage(userID, sessionID string, req models.SendMessageRequest) (*Turn, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	user, err := s.st.GetUser(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	userMsg := models.Message{
		ID:        newID("msg_"),
		SessionID: sess.ID,
		Sender:    models.SenderUser,
		Content:   req.Content,
		Timestamp: now,
	}
	if err := s.st.AddMessage(userMsg); err != nil {
		slog.Error("Service SendMessage user message failed", "error", err, "session_id", sess.ID)
		return nil, err
	}

	current, known := dialog.ParseState(sess.State)
	if !known && !dialog.IsUnset(sess.State) {
		slog.Warn("Service SendMessage: unknown dialog state, resetting to idle", "session_id", sess.ID, "state", sess.State)
	}
	res := dialog.Respond(sess.State, req.Content, user.DisplayName())
	metrics.RecordDialogTurn(string(current), res.Next != current)

	reply := models.Message{
		ID:        newID("msg_"),
		SessionID: sess.ID,
		Sender:    models.SenderAssistant,
		Content:   res.Reply,
		Metadata:  map[string]string{"state": string(res.Next)},
		Timestamp: now,
	}
	if err := s.st.AddMessage(reply); err != nil {
		slog.Error("Service SendMessage reply failed", "error", err, "session_id", sess.ID)
		return nil, err
	}

	notices, err := s.applyDirectives(sess, res.Directives)
	if err != nil {
		return nil, err
	}

	sess.State = string(res.Next)
	sess.TotalMessages += 2
	sess.LastInteraction = now
	pct, _, err := s.completionRatio(sess.UserID, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.ProgressPercentage = pct
	if err := s.st.SaveSession(*sess); err != nil {
		slog.Error("Service SendMessage save session failed", "error", err, "session_id", sess.ID)
		return nil, err
	}
	slog.Debug("Service SendMessage succeeded", "session_id", sess.ID, "from", current, "to", res.Next, "directives", len(res.Directives))
	return &Turn{
		UserMessage:      userMsg,
		AssistantMessage: reply,
		Notices:          notices,
		Session:          *sess,
	}, nil
}

// CompleteSession closes the session and leaves a completion note for the
// human coach.
func (s *Service) CompleteSession(userID, sessionID string) (*models.Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess.Status = models.SessionStatusCompleted
	sess.CompletedAt = &now
	if err := s.st.SaveSession(*sess); err != nil {
		slog.Error("Service CompleteSession failed", "error", err, "session_id", sess.ID)
		return nil, err
	}
	note := models.CoachNote{
		ID:            newID("note_"),
		UserID:        userID,
		SessionID:     sess.ID,
		GeneratedByAI: true,
		NoteType:      NoteTypeCompletion,
		Title:         "Session completed",
		Content:       completionNoteContent(*sess),
		Priority:      2,
		CreatedAt:     now,
	}
	if err := s.st.SaveCoachNote(note); err != nil {
		slog.Error("Service CompleteSession coach note failed", "error", err, "session_id", sess.ID)
		return nil, err
	}
	slog.Info("Service CompleteSession succeeded", "session_id", sess.ID)
	return sess, nil
}

// Progress recomputes and persists the session's completion percentage.
func (s *Service) Progress(userID, sessionID string) (*Progress, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	pct, assigned, err := s.completionRatio(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if pct != sess.ProgressPercentage {
		sess.ProgressPercentage = pct
		if err := s.st.SaveSession(*sess); err != nil {
			slog.Error("Service Progress save failed", "error", err, "session_id", sess.ID)
			return nil, err
		}
	}
	return &Progress{
		SessionID:          sess.ID,
		Status:             sess.Status,
		State:              sess.State,
		ProgressPercentage: pct,
		TotalMessages:      sess.TotalMessages,
		ExercisesAssigned:  assigned,
		ExercisesCompleted: sess.ExercisesCompleted,
	}, nil
}

// completionRatio returns the integer percentage of the session's
// completions that are completed, and the number of completions.
func (s *Service) completionRatio(userID, sessionID string) (int, int, error) {
	completions, err := s.st.ListCompletions(store.CompletionFilter{UserID: userID, SessionID: sessionID})
	if err != nil {
		return 0, 0, err
	}
	if len(completions) == 0 {
		return 0, 0, nil
	}
	done := 0
	for _, c := range completions {
		if c.Status == models.CompletionStatusCompleted {
			done++
		}
	}
	return done * 100 / len(completions), len(completions), nil
}
