package coaching

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NextMind/NextCoach/internal/dialog"
	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/notify"
	"github.com/NextMind/NextCoach/internal/recommend"
	"github.com/NextMind/NextCoach/internal/store"
	"github.com/google/go-cmp/cmp"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.InMemoryStore, *fakeClock) {
	t.Helper()
	st := store.NewInMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewService(st, opts...), st, clock
}

func mustSeed(t *testing.T, s *Service) {
	t.Helper()
	if _, err := s.SeedExercises(); err != nil {
		t.Fatalf("SeedExercises failed: %v", err)
	}
}

func mustSession(t *testing.T, s *Service, userID string) *models.Session {
	t.Helper()
	sess, err := s.CreateSession(userID, models.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return sess
}

func send(t *testing.T, s *Service, userID, sessionID, content string) *Turn {
	t.Helper()
	turn, err := s.SendMessage(userID, sessionID, models.SendMessageRequest{Content: content})
	if err != nil {
		t.Fatalf("SendMessage(%q) failed: %v", content, err)
	}
	return turn
}

func TestRegisterUser(t *testing.T) {
	s, _, clock := newTestService(t)

	if _, err := s.RegisterUser(models.UserRegistrationRequest{ID: "u1"}); !errors.Is(err, models.ErrEmptyUsername) {
		t.Errorf("expected ErrEmptyUsername, got %v", err)
	}
	_, err := s.RegisterUser(models.UserRegistrationRequest{ID: "u1", Username: "sam", CoachRecipient: "12"})
	if !errors.Is(err, models.ErrInvalidRecipient) || !models.IsValidationError(err) {
		t.Errorf("expected ErrInvalidRecipient, got %v", err)
	}

	u, err := s.RegisterUser(models.UserRegistrationRequest{ID: "u1", Username: "sam", CoachRecipient: "+44 20 7946 0000"})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if u.CoachRecipient != "+442079460000" {
		t.Errorf("recipient not canonicalized: %q", u.CoachRecipient)
	}
	created := u.CreatedAt

	clock.Advance(time.Hour)
	u, err = s.RegisterUser(models.UserRegistrationRequest{ID: "u1", Username: "sam", FirstName: "Sam"})
	if err != nil {
		t.Fatalf("RegisterUser update failed: %v", err)
	}
	if !u.CreatedAt.Equal(created) {
		t.Errorf("update should keep created_at, got %v want %v", u.CreatedAt, created)
	}

	got, err := s.GetUser("u1")
	if err != nil || got.DisplayName() != "Sam" {
		t.Errorf("GetUser = %+v, %v", got, err)
	}
	if _, err := s.GetUser("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAssessment(t *testing.T) {
	s, _, clock := newTestService(t)

	if _, err := s.RecordAssessment("u1", models.AssessmentRequest{WellbeingScore: 101}); !errors.Is(err, models.ErrInvalidScore) {
		t.Errorf("expected ErrInvalidScore, got %v", err)
	}
	other := mustSession(t, s, "u2")
	if _, err := s.RecordAssessment("u1", models.AssessmentRequest{SessionID: other.ID}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign session should be reported as not found, got %v", err)
	}
	if _, err := s.LatestAssessment("u1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound before any assessment, got %v", err)
	}

	if _, err := s.RecordAssessment("u1", models.AssessmentRequest{WellbeingScore: 10}); err != nil {
		t.Fatalf("RecordAssessment failed: %v", err)
	}
	clock.Advance(time.Minute)
	second, err := s.RecordAssessment("u1", models.AssessmentRequest{WellbeingScore: 60})
	if err != nil {
		t.Fatalf("RecordAssessment failed: %v", err)
	}
	latest, err := s.LatestAssessment("u1")
	if err != nil {
		t.Fatalf("LatestAssessment failed: %v", err)
	}
	if latest.ID != second.ID || latest.WellbeingScore != 60 {
		t.Errorf("expected the newest assessment, got %+v", latest)
	}
}

func TestCreateSession(t *testing.T) {
	s, _, _ := newTestService(t)

	sess := mustSession(t, s, "u1")
	if sess.Title != DefaultSessionTitle || sess.Status != models.SessionStatusActive || sess.State != string(dialog.StateIdle) {
		t.Errorf("unexpected session defaults: %+v", sess)
	}
	msgs, err := s.Messages("u1", sess.ID, 0)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Sender != models.SenderAssistant || msgs[0].Content != s.Policy().OpeningPrompt(nil) {
		t.Errorf("expected the generic opening prompt, got %+v", msgs)
	}

	if _, err := s.RecordAssessment("u1", models.AssessmentRequest{WellbeingScore: 5}); err != nil {
		t.Fatalf("RecordAssessment failed: %v", err)
	}
	titled, err := s.CreateSession("u1", models.CreateSessionRequest{Title: "  Stress  ", Theme: "stress"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if titled.Title != "Stress" || titled.Theme != "stress" {
		t.Errorf("unexpected session: %+v", titled)
	}
	msgs, _ = s.Messages("u1", titled.ID, 0)
	if len(msgs) != 1 || !strings.Contains(msgs[0].Content, "difficult time") {
		t.Errorf("expected the supportive opening prompt, got %+v", msgs)
	}

	_, err = s.CreateSession("u1", models.CreateSessionRequest{Title: strings.Repeat("x", models.MaxTitleLength+1)})
	if !errors.Is(err, models.ErrTitleTooLong) {
		t.Errorf("expected ErrTitleTooLong, got %v", err)
	}
}

func TestSessionOwnership(t *testing.T) {
	s, _, _ := newTestService(t)
	sess := mustSession(t, s, "owner")

	if _, err := s.GetSession("intruder", sess.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetSession: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Messages("intruder", sess.ID, 10); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Messages: expected ErrNotFound, got %v", err)
	}
	if _, err := s.SendMessage("intruder", sess.ID, models.SendMessageRequest{Content: "hi"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("SendMessage: expected ErrNotFound, got %v", err)
	}
	if _, err := s.CompleteSession("intruder", sess.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("CompleteSession: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Progress("intruder", sess.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Progress: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetSession("owner", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetSession missing: expected ErrNotFound, got %v", err)
	}
}

func TestSendMessage_DailyScript(t *testing.T) {
	s, st, _ := newTestService(t)
	mustSeed(t, s)
	if _, err := s.RegisterUser(models.UserRegistrationRequest{ID: "u1", Username: "sam_k", FirstName: "Sam"}); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	sess := mustSession(t, s, "u1")

	turn := send(t, s, "u1", sess.ID, "Hello there")
	if turn.Session.State != string(dialog.StateIdle) || !strings.Contains(turn.AssistantMessage.Content, "Hi Sam!") {
		t.Errorf("expected the idle greeting, got %q in %s", turn.AssistantMessage.Content, turn.Session.State)
	}

	turn = send(t, s, "u1", sess.ID, "I'm back, I need help")
	if turn.AssistantMessage.Content != "Oh Sam, I'm here for your help." {
		t.Errorf("unexpected reply: %q", turn.AssistantMessage.Content)
	}
	if turn.AssistantMessage.Metadata["state"] != string(dialog.StateWaitingForOK) {
		t.Errorf("reply metadata should carry the next state, got %v", turn.AssistantMessage.Metadata)
	}

	send(t, s, "u1", sess.ID, "ok")
	turn = send(t, s, "u1", sess.ID, "Ok, thanks")
	if turn.Session.State != string(dialog.StateWaitingForDone) {
		t.Fatalf("expected waiting_for_done, got %s", turn.Session.State)
	}
	var notices []string
	for _, n := range turn.Notices {
		if n.Sender != models.SenderSystem || n.Metadata["exercise_id"] == "" {
			t.Errorf("malformed notice: %+v", n)
		}
		notices = append(notices, n.Content)
	}
	want := []string{
		"New exercise: 4-7-8 Breathing. Duration: 10 min.",
		"New exercise: Gratitude Journal. Duration: 15 min.",
	}
	if diff := cmp.Diff(want, notices); diff != "" {
		t.Errorf("assignment notices mismatch (-want +got):\n%s", diff)
	}
	assigned, _ := s.ListCompletions("u1", sess.ID, models.CompletionStatusAssigned)
	if len(assigned) != 2 {
		t.Fatalf("expected 2 assigned exercises, got %d", len(assigned))
	}

	turn = send(t, s, "u1", sess.ID, "Done!")
	if turn.Session.State != string(dialog.StateCompleted) {
		t.Fatalf("expected completed, got %s", turn.Session.State)
	}
	if turn.Session.ExercisesCompleted != 2 || turn.Session.ProgressPercentage != 100 {
		t.Errorf("expected 2 exercises completed at 100%%, got %+v", turn.Session)
	}
	if turn.Session.TotalMessages != 10 {
		t.Errorf("expected 10 counted messages, got %d", turn.Session.TotalMessages)
	}
	recs, _ := st.ListRecommendations("u1")
	if len(recs) != 1 || recs[0].Type != models.RecommendationTypeResource ||
		recs[0].Priority != ResourceRecommendationPriority || recs[0].Description != dialog.ResourcesText {
		t.Errorf("unexpected recommendations: %+v", recs)
	}

	turn = send(t, s, "u1", sess.ID, "I'm back")
	if turn.Session.State != string(dialog.StateCompleted) || !strings.Contains(turn.AssistantMessage.Content, "Come back tomorrow") {
		t.Errorf("completed sessions should stay completed, got %q", turn.AssistantMessage.Content)
	}

	msgs, err := s.Messages("u1", sess.ID, 0)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	// opening prompt + 6 turns of two messages + 2 notices
	if len(msgs) != 15 {
		t.Errorf("expected 15 messages, got %d", len(msgs))
	}
	if msgs[len(msgs)-1].Sender != models.SenderAssistant {
		t.Errorf("the last message should be the coach reply, got %+v", msgs[len(msgs)-1])
	}
	limited, _ := s.Messages("u1", sess.ID, 3)
	if len(limited) != 3 || limited[0].ID != msgs[0].ID {
		t.Errorf("limit should keep the oldest messages, got %d", len(limited))
	}
}

func TestSendMessage_RepeatedAssignmentIsIdempotent(t *testing.T) {
	s, st, _ := newTestService(t)
	mustSeed(t, s)
	sess := mustSession(t, s, "u1")
	for _, text := range []string{"need help", "yes", "merci"} {
		send(t, s, "u1", sess.ID, text)
	}
	// Walk the script back to the assignment step.
	stored, _ := st.GetSession(sess.ID)
	stored.State = string(dialog.StateWaitingForOKThanks)
	if err := st.SaveSession(*stored); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	turn := send(t, s, "u1", sess.ID, "ok thanks")
	if len(turn.Notices) != 0 {
		t.Errorf("re-assigning should not post notices, got %+v", turn.Notices)
	}
	all, _ := s.ListCompletions("u1", sess.ID, "")
	if len(all) != 2 {
		t.Errorf("expected 2 completions, got %d", len(all))
	}
}

func TestSendMessage_SkipsUnknownExercises(t *testing.T) {
	s, _, _ := newTestService(t)
	sess := mustSession(t, s, "u1")
	for _, text := range []string{"i am back", "okay"} {
		send(t, s, "u1", sess.ID, text)
	}
	turn := send(t, s, "u1", sess.ID, "ok thanks")
	if turn.Session.State != string(dialog.StateWaitingForDone) {
		t.Errorf("the dialog should advance even without exercises, got %s", turn.Session.State)
	}
	if len(turn.Notices) != 0 {
		t.Errorf("expected no notices, got %+v", turn.Notices)
	}
}

func TestSendMessage_UnknownStateResetsToIdle(t *testing.T) {
	s, st, _ := newTestService(t)
	sess := mustSession(t, s, "u1")
	sess.State = "lost"
	if err := st.SaveSession(*sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// An unknown state resets to idle even when the utterance would advance idle.
	turn := send(t, s, "u1", sess.ID, "I'm back, I need help")
	if turn.Session.State != string(dialog.StateIdle) {
		t.Errorf("expected idle, got %s", turn.Session.State)
	}
	if !strings.Contains(turn.AssistantMessage.Content, "Hi friend!") {
		t.Errorf("expected the placeholder name, got %q", turn.AssistantMessage.Content)
	}
	stored, _ := st.GetSession(sess.ID)
	if stored == nil || stored.State != string(dialog.StateIdle) {
		t.Errorf("expected the reset state to be persisted, got %+v", stored)
	}

	// The "None" placeholder is processed as idle.
	stored.State = "None"
	if err := st.SaveSession(*stored); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	turn = send(t, s, "u1", sess.ID, "I'm back, I need help")
	if turn.Session.State != string(dialog.StateWaitingForOK) {
		t.Errorf("expected waiting_for_ok, got %s", turn.Session.State)
	}
}

type failingSaveStore struct {
	*store.InMemoryStore
	failures int
}

func (f *failingSaveStore) SaveSession(sess models.Session) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("disk full")
	}
	return f.InMemoryStore.SaveSession(sess)
}

func TestSendMessage_FailedSaveLeavesStateForRetry(t *testing.T) {
	mem := store.NewInMemoryStore()
	fs := &failingSaveStore{InMemoryStore: mem}
	s := NewService(fs)
	sess := mustSession(t, s, "u1")

	fs.failures = 1
	if _, err := s.SendMessage("u1", sess.ID, models.SendMessageRequest{Content: "I'm back, I need help"}); err == nil {
		t.Fatal("expected the save failure to be returned")
	}
	stored, _ := mem.GetSession(sess.ID)
	if stored.State != string(dialog.StateIdle) || stored.TotalMessages != sess.TotalMessages {
		t.Errorf("failed turn changed the session: %+v", stored)
	}

	turn := send(t, s, "u1", sess.ID, "I'm back, I need help")
	if turn.Session.State != string(dialog.StateWaitingForOK) {
		t.Errorf("retry should advance once, got %s", turn.Session.State)
	}
	if turn.Session.TotalMessages != sess.TotalMessages+2 {
		t.Errorf("retry should count one turn, got %d", turn.Session.TotalMessages)
	}
}

func TestSendMessage_Validation(t *testing.T) {
	s, _, _ := newTestService(t)
	sess := mustSession(t, s, "u1")

	tests := map[string]struct {
		content string
		want    error
	}{
		"empty":    {"", models.ErrEmptyContent},
		"blank":    {"  \n", models.ErrEmptyContent},
		"too long": {strings.Repeat("a", models.MaxMessageLength+1), models.ErrContentTooLong},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.SendMessage("u1", sess.ID, models.SendMessageRequest{Content: tt.content})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	msgs, _ := s.Messages("u1", sess.ID, 0)
	if len(msgs) != 1 {
		t.Errorf("rejected messages must not be stored, got %d messages", len(msgs))
	}
}

func TestSendMessage_ConcurrentTurnsAreSerialized(t *testing.T) {
	s, _, _ := newTestService(t)
	sess := mustSession(t, s, "u1")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SendMessage("u1", sess.ID, models.SendMessageRequest{Content: "hello"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	got, _ := s.GetSession("u1", sess.ID)
	if got.TotalMessages != 2*n {
		t.Errorf("lost updates: expected %d messages counted, got %d", 2*n, got.TotalMessages)
	}
	if size := s.locks.size(); size != 0 {
		t.Errorf("session locks should be released, %d left", size)
	}
}

func TestCompleteSession(t *testing.T) {
	s, st, _ := newTestService(t)
	sess, err := s.CreateSession("u1", models.CreateSessionRequest{Title: "Evening"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	send(t, s, "u1", sess.ID, "hi")

	done, err := s.CompleteSession("u1", sess.ID)
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if done.Status != models.SessionStatusCompleted || done.CompletedAt == nil {
		t.Errorf("unexpected session: %+v", done)
	}
	notes, _ := st.ListCoachNotes("u1")
	if len(notes) != 1 {
		t.Fatalf("expected one coach note, got %d", len(notes))
	}
	want := "Session 'Evening' completed. Total messages: 2, exercises completed: 0"
	if notes[0].NoteType != NoteTypeCompletion || notes[0].Content != want || notes[0].Priority != 2 {
		t.Errorf("unexpected note: %+v", notes[0])
	}
}

func TestProgress(t *testing.T) {
	s, st, _ := newTestService(t)
	mustSeed(t, s)
	sess := mustSession(t, s, "u1")

	p, err := s.Progress("u1", sess.ID)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if p.ProgressPercentage != 0 || p.ExercisesAssigned != 0 {
		t.Errorf("expected no progress, got %+v", p)
	}

	exs, _ := s.ListExercises()
	var comps []*models.ExerciseCompletion
	for _, ex := range exs[:3] {
		c, _, err := s.AssignExercise("u1", ex.ID, models.AssignExerciseRequest{SessionID: sess.ID})
		if err != nil {
			t.Fatalf("AssignExercise failed: %v", err)
		}
		comps = append(comps, c)
	}
	if _, err := s.CompleteCompletion("u1", comps[0].ID, models.CompleteExerciseRequest{}); err != nil {
		t.Fatalf("CompleteCompletion failed: %v", err)
	}

	// Drift the stored value so Progress has to persist it.
	stored, _ := st.GetSession(sess.ID)
	stored.ProgressPercentage = 0
	_ = st.SaveSession(*stored)

	p, err = s.Progress("u1", sess.ID)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if p.ProgressPercentage != 33 || p.ExercisesAssigned != 3 || p.ExercisesCompleted != 1 {
		t.Errorf("unexpected progress: %+v", p)
	}
	stored, _ = st.GetSession(sess.ID)
	if stored.ProgressPercentage != 33 {
		t.Errorf("progress not persisted, got %d", stored.ProgressPercentage)
	}
}

func TestRecommendedExercises(t *testing.T) {
	s, st, _ := newTestService(t)
	mustSeed(t, s)
	sess := mustSession(t, s, "u1")

	all, err := s.RecommendedExercises("u1", "", 0)
	if err != nil {
		t.Fatalf("RecommendedExercises failed: %v", err)
	}
	if len(all) != DefaultRecommendedLimit {
		t.Fatalf("expected %d exercises, got %d", DefaultRecommendedLimit, len(all))
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.DifficultyLevel > cur.DifficultyLevel ||
			(prev.DifficultyLevel == cur.DifficultyLevel && prev.Title > cur.Title) {
			t.Errorf("exercises out of order: %q before %q", prev.Title, cur.Title)
		}
	}

	stress, _ := s.RecommendedExercises("u1", "STRESS", 10)
	var titles []string
	for _, ex := range stress {
		titles = append(titles, ex.Title)
	}
	if diff := cmp.Diff([]string{"4-7-8 Breathing", "Mindful Body Scan"}, titles); diff != "" {
		t.Errorf("theme filter mismatch (-want +got):\n%s", diff)
	}

	c, _, err := s.AssignExercise("u1", stress[0].ID, models.AssignExerciseRequest{SessionID: sess.ID})
	if err != nil {
		t.Fatalf("AssignExercise failed: %v", err)
	}
	if _, err := s.CompleteCompletion("u1", c.ID, models.CompleteExerciseRequest{}); err != nil {
		t.Fatalf("CompleteCompletion failed: %v", err)
	}
	stress, _ = s.RecommendedExercises("u1", "stress", 10)
	if len(stress) != 1 || stress[0].Title != "Mindful Body Scan" {
		t.Errorf("completed exercises should be excluded, got %+v", stress)
	}

	inactive := stress[0]
	inactive.IsActive = false
	_ = st.SaveExercise(inactive)
	if stress, _ = s.RecommendedExercises("u1", "stress", 10); len(stress) != 0 {
		t.Errorf("inactive exercises should be excluded, got %+v", stress)
	}
}

func TestAssignExercise(t *testing.T) {
	s, st, _ := newTestService(t)
	mustSeed(t, s)
	sess := mustSession(t, s, "u1")
	exs, _ := s.ListExercises()

	if _, _, err := s.AssignExercise("u1", exs[0].ID, models.AssignExerciseRequest{}); !errors.Is(err, models.ErrMissingSessionID) {
		t.Errorf("expected ErrMissingSessionID, got %v", err)
	}
	if _, _, err := s.AssignExercise("u2", exs[0].ID, models.AssignExerciseRequest{SessionID: sess.ID}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign session: expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.AssignExercise("u1", "missing", models.AssignExerciseRequest{SessionID: sess.ID}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing exercise: expected ErrNotFound, got %v", err)
	}

	first, created, err := s.AssignExercise("u1", exs[0].ID, models.AssignExerciseRequest{SessionID: sess.ID})
	if err != nil || !created {
		t.Fatalf("AssignExercise = %v, %v", created, err)
	}
	again, created, err := s.AssignExercise("u1", exs[0].ID, models.AssignExerciseRequest{SessionID: sess.ID})
	if err != nil || created || again.ID != first.ID {
		t.Errorf("second assignment should return the first one, got %+v created=%v err=%v", again, created, err)
	}

	retired := exs[1]
	retired.IsActive = false
	_ = st.SaveExercise(retired)
	if _, _, err := s.AssignExercise("u1", retired.ID, models.AssignExerciseRequest{SessionID: sess.ID}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("inactive exercise: expected ErrNotFound, got %v", err)
	}
}

func TestCompletionLifecycle(t *testing.T) {
	s, _, _ := newTestService(t)
	mustSeed(t, s)
	sess := mustSession(t, s, "u1")
	exs, _ := s.ListExercises()
	c, _, err := s.AssignExercise("u1", exs[0].ID, models.AssignExerciseRequest{SessionID: sess.ID})
	if err != nil {
		t.Fatalf("AssignExercise failed: %v", err)
	}

	if _, err := s.StartCompletion("u2", c.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign completion: expected ErrNotFound, got %v", err)
	}
	started, err := s.StartCompletion("u1", c.ID)
	if err != nil {
		t.Fatalf("StartCompletion failed: %v", err)
	}
	if started.Status != models.CompletionStatusInProgress || started.StartedAt == nil {
		t.Errorf("unexpected completion: %+v", started)
	}

	bad := 6
	if _, err := s.CompleteCompletion("u1", c.ID, models.CompleteExerciseRequest{Rating: &bad}); !errors.Is(err, models.ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}

	rating := 4
	done, err := s.CompleteCompletion("u1", c.ID, models.CompleteExerciseRequest{
		UserNotes:           "calmer",
		ReflectionResponses: map[string]string{"How do you feel?": "better"},
		Rating:              &rating,
	})
	if err != nil {
		t.Fatalf("CompleteCompletion failed: %v", err)
	}
	if done.Status != models.CompletionStatusCompleted || done.CompletedAt == nil || *done.Rating != 4 || done.UserNotes != "calmer" {
		t.Errorf("unexpected completion: %+v", done)
	}

	if _, err := s.CompleteCompletion("u1", c.ID, models.CompleteExerciseRequest{}); !errors.Is(err, models.ErrCompletionNotOpen) {
		t.Errorf("expected ErrCompletionNotOpen, got %v", err)
	}
	if _, err := s.StartCompletion("u1", c.ID); !errors.Is(err, models.ErrCompletionNotOpen) {
		t.Errorf("expected ErrCompletionNotOpen, got %v", err)
	}

	got, _ := s.GetSession("u1", sess.ID)
	if got.ExercisesCompleted != 1 || got.ProgressPercentage != 100 {
		t.Errorf("session counters not updated: %+v", got)
	}
}

func TestRecordCheckInAndTrends(t *testing.T) {
	s, _, clock := newTestService(t)

	if _, _, err := s.RecordCheckIn("u1", models.CheckInRequest{Mood: 0, EnergyLevel: 5, StressLevel: 5}); !errors.Is(err, models.ErrInvalidMood) {
		t.Errorf("expected ErrInvalidMood, got %v", err)
	}

	first, created, err := s.RecordCheckIn("u1", models.CheckInRequest{Mood: 2, EnergyLevel: 3, StressLevel: 8})
	if err != nil || !created {
		t.Fatalf("RecordCheckIn = %v, %v", created, err)
	}
	clock.Advance(2 * time.Hour)
	second, created, err := s.RecordCheckIn("u1", models.CheckInRequest{Mood: 3, EnergyLevel: 4, StressLevel: 7, GratitudeEntries: []string{"tea"}})
	if err != nil || created {
		t.Fatalf("second check-in of the day should replace the first: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("replacement should keep id and created_at: %+v vs %+v", second, first)
	}

	clock.Advance(24 * time.Hour)
	if _, _, err := s.RecordCheckIn("u1", models.CheckInRequest{Mood: 5, EnergyLevel: 9, StressLevel: 2}); err != nil {
		t.Fatalf("RecordCheckIn failed: %v", err)
	}

	all, _ := s.ListCheckIns("u1")
	if len(all) != 2 || all[0].Date != "2026-03-11" {
		t.Errorf("expected two check-ins newest first, got %+v", all)
	}

	trends, err := s.Trends("u1", 0)
	if err != nil {
		t.Fatalf("Trends failed: %v", err)
	}
	want := []TrendPoint{{Date: "2026-03-10", Value: 3}, {Date: "2026-03-11", Value: 5}}
	if diff := cmp.Diff(want, trends.Mood); diff != "" {
		t.Errorf("mood trend mismatch (-want +got):\n%s", diff)
	}
	if trends.Days != DefaultTrendDays || trends.StressLevel[1].Value != 2 || trends.EnergyLevel[0].Value != 4 {
		t.Errorf("unexpected trends: %+v", trends)
	}
}

func TestOverview(t *testing.T) {
	s, st, clock := newTestService(t)
	mustSeed(t, s)

	record := func(mood, energy, stress int) {
		t.Helper()
		if _, _, err := s.RecordCheckIn("u1", models.CheckInRequest{Mood: mood, EnergyLevel: energy, StressLevel: stress}); err != nil {
			t.Fatalf("RecordCheckIn failed: %v", err)
		}
	}
	clock.Advance(-20 * 24 * time.Hour)
	record(1, 2, 9)
	clock.Advance(19 * 24 * time.Hour)
	record(4, 6, 5)
	clock.Advance(24 * time.Hour)
	record(5, 7, 4)

	sess := mustSession(t, s, "u1")
	closed := mustSession(t, s, "u1")
	if _, err := s.CompleteSession("u1", closed.ID); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	exs, _ := s.ListExercises()
	c, _, _ := s.AssignExercise("u1", exs[0].ID, models.AssignExerciseRequest{SessionID: sess.ID})
	if _, err := s.CompleteCompletion("u1", c.ID, models.CompleteExerciseRequest{}); err != nil {
		t.Fatalf("CompleteCompletion failed: %v", err)
	}
	_ = st.SaveRecommendation(models.Recommendation{ID: "r1", UserID: "u1", Title: "Walk", Priority: 3})

	o, err := s.Overview("u1")
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	want := &Overview{
		ActiveSessions:         1,
		ExercisesCompleted:     1,
		CheckInsThisWeek:       2,
		AverageMood:            3.3,
		AverageEnergy:          5,
		AverageStress:          6,
		PendingRecommendations: 1,
	}
	if diff := cmp.Diff(want, o); diff != "" {
		t.Errorf("overview mismatch (-want +got):\n%s", diff)
	}

	empty, err := s.Overview("nobody")
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if diff := cmp.Diff(&Overview{}, empty); diff != "" {
		t.Errorf("expected an empty overview (-want +got):\n%s", diff)
	}
}

func TestRecommendations(t *testing.T) {
	s, st, clock := newTestService(t)
	now := clock.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	for _, r := range []models.Recommendation{
		{ID: "low", UserID: "u1", Title: "low", Priority: 1, CreatedAt: now},
		{ID: "high", UserID: "u1", Title: "high", Priority: 5, CreatedAt: now, ExpiresAt: &future},
		{ID: "expired", UserID: "u1", Title: "expired", Priority: 5, CreatedAt: now, ExpiresAt: &past},
		{ID: "done", UserID: "u1", Title: "done", Priority: 5, CreatedAt: now, IsActedUpon: true},
		{ID: "other", UserID: "u2", Title: "other", Priority: 5, CreatedAt: now},
	} {
		if err := st.SaveRecommendation(r); err != nil {
			t.Fatalf("SaveRecommendation failed: %v", err)
		}
	}

	pending, err := s.PendingRecommendations("u1")
	if err != nil {
		t.Fatalf("PendingRecommendations failed: %v", err)
	}
	var ids []string
	for _, r := range pending {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"high", "low"}, ids); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}

	acted, err := s.ActUpon("u1", "high")
	if err != nil || !acted.IsActedUpon {
		t.Fatalf("ActUpon = %+v, %v", acted, err)
	}
	for _, id := range []string{"high", "expired", "other", "missing"} {
		if _, err := s.ActUpon("u1", id); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("ActUpon(%s): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestDashboardRecommendationsAndReport(t *testing.T) {
	s, _, _ := newTestService(t)

	rec, err := s.DashboardRecommendations("u1", 0)
	if err != nil {
		t.Fatalf("DashboardRecommendations failed: %v", err)
	}
	if len(rec.Exercises) != DefaultDashboardLimit || rec.OpeningPrompt != s.Policy().OpeningPrompt(nil) {
		t.Errorf("unexpected recommendation: %+v", rec)
	}

	report, err := s.CoachReport("u1")
	if err != nil {
		t.Fatalf("CoachReport failed: %v", err)
	}
	if !strings.Contains(report.Content, "has not completed a psychological assessment") {
		t.Errorf("unexpected report: %q", report.Content)
	}

	a := models.AssessmentRequest{WellbeingScore: 12, BigFive: models.BigFive{Stability: 8, Extraversion: 20}}
	if _, err := s.RecordAssessment("u1", a); err != nil {
		t.Fatalf("RecordAssessment failed: %v", err)
	}
	rec, _ = s.DashboardRecommendations("u1", 5)
	var keys []models.ExerciseKey
	for _, ex := range rec.Exercises {
		keys = append(keys, ex.Key)
	}
	if diff := cmp.Diff([]models.ExerciseKey{models.ExerciseKeyBreathing, models.ExerciseKeyGratitude}, keys); diff != "" {
		t.Errorf("supportive exercises mismatch (-want +got):\n%s", diff)
	}
	report, _ = s.CoachReport("u1")
	if !strings.Contains(report.Content, "Overall wellbeing: 12/100") {
		t.Errorf("report should reflect the assessment: %q", report.Content)
	}
}

func TestSendReportToCoach(t *testing.T) {
	bare, _, _ := newTestService(t)
	if _, err := bare.SendReportToCoach("u1"); !errors.Is(err, models.ErrNoCoachRecipient) {
		t.Errorf("expected ErrNoCoachRecipient, got %v", err)
	}

	s, st, clock := newTestService(t, WithCoachRecipient("+1 (555) 010-2030"))
	first, err := s.SendReportToCoach("u1")
	if err != nil {
		t.Fatalf("SendReportToCoach failed: %v", err)
	}
	if first.Recipient != "+15550102030" {
		t.Errorf("unexpected recipient %q", first.Recipient)
	}
	second, err := s.SendReportToCoach("u1")
	if err != nil {
		t.Fatalf("SendReportToCoach failed: %v", err)
	}
	if second.OutboxID != first.OutboxID {
		t.Errorf("same-day reports should share a delivery: %s vs %s", first.OutboxID, second.OutboxID)
	}
	notes, _ := st.ListCoachNotes("u1")
	if len(notes) != 2 || notes[0].NoteType != NoteTypeReport {
		t.Errorf("expected two report notes, got %+v", notes)
	}

	mock := notify.NewMockSender()
	sender := store.NewOutboxSender(st, notify.OutboxDelivery(mock), time.Second)
	sender.Poll(context.Background())
	sent := mock.Messages()
	if len(sent) != 1 || sent[0].To != "+15550102030" || !strings.Contains(sent[0].Body, "AI Coach Report") {
		t.Fatalf("unexpected deliveries: %+v", sent)
	}
	msg, _ := st.GetOutboxMessage(first.OutboxID)
	if msg == nil || msg.Status != store.OutboxStatusSent || msg.Kind != notify.KindCoachReport {
		t.Errorf("unexpected outbox message: %+v", msg)
	}

	if _, err := s.RegisterUser(models.UserRegistrationRequest{ID: "u1", Username: "sam", CoachRecipient: "+44 20 7946 0000"}); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	clock.Advance(24 * time.Hour)
	next, err := s.SendReportToCoach("u1")
	if err != nil {
		t.Fatalf("SendReportToCoach failed: %v", err)
	}
	if next.Recipient != "+442079460000" || next.OutboxID == first.OutboxID {
		t.Errorf("expected a new delivery to the user's coach, got %+v", next)
	}
}

func TestSendReportToCoach_RequeuesAfterAbandonedDelivery(t *testing.T) {
	s, st, _ := newTestService(t, WithCoachRecipient("+15550102030"))
	first, err := s.SendReportToCoach("u1")
	if err != nil {
		t.Fatalf("SendReportToCoach failed: %v", err)
	}
	if err := st.AbandonOutboxMessage(first.OutboxID, "max attempts reached"); err != nil {
		t.Fatalf("AbandonOutboxMessage failed: %v", err)
	}

	second, err := s.SendReportToCoach("u1")
	if err != nil {
		t.Fatalf("SendReportToCoach failed: %v", err)
	}
	if second.OutboxID == first.OutboxID {
		t.Fatalf("a failed delivery must not absorb later reports, got %s twice", first.OutboxID)
	}

	mock := notify.NewMockSender()
	store.NewOutboxSender(st, notify.OutboxDelivery(mock), time.Second).Poll(context.Background())
	if sent := mock.Messages(); len(sent) != 1 {
		t.Errorf("expected the new report to be delivered once, got %+v", sent)
	}
}

func TestSeedExercises(t *testing.T) {
	s, _, _ := newTestService(t)
	n, err := s.SeedExercises()
	if err != nil {
		t.Fatalf("SeedExercises failed: %v", err)
	}
	if n != len(defaultLibrary()) {
		t.Errorf("expected %d exercises, got %d", len(defaultLibrary()), n)
	}
	if n, err = s.SeedExercises(); err != nil || n != 0 {
		t.Errorf("second seed should be a no-op, got %d, %v", n, err)
	}

	for _, key := range []models.ExerciseKey{models.ExerciseKeyBreathing, models.ExerciseKeyGratitude, models.ExerciseKeyGoalSetting} {
		ex, err := s.resolveExercise(key)
		if err != nil || ex == nil {
			t.Errorf("catalog key %s should resolve to a seeded exercise, got %v, %v", key, ex, err)
		}
	}
}

func TestSeedExercises_CatalogFallback(t *testing.T) {
	catalog, err := recommend.NewCatalog([]recommend.Exercise{
		{Key: models.ExerciseKeyBreathing, Title: "Ocean breath", Type: models.ExerciseTypeRolePlay, DurationMinutes: 3},
	}, nil)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	s, _, _ := newTestService(t, WithPolicy(recommend.NewPolicy(catalog)))
	n, err := s.SeedExercises()
	if err != nil {
		t.Fatalf("SeedExercises failed: %v", err)
	}
	if n != len(defaultLibrary())+1 {
		t.Errorf("expected the catalog exercise to be added, got %d", n)
	}
	ex, err := s.resolveExercise(models.ExerciseKeyBreathing)
	if err != nil || ex == nil || ex.Title != "Ocean breath" {
		t.Errorf("expected the catalog exercise, got %+v, %v", ex, err)
	}
}

func TestResolveExercise_KeywordFallback(t *testing.T) {
	s, st, _ := newTestService(t)
	_ = st.SaveExercise(models.Exercise{ID: "e1", Title: "Evening RESPIRATION routine", ExerciseType: models.ExerciseTypeMindfulness, IsActive: true})

	ex, err := s.resolveExercise(models.ExerciseKeyBreathing)
	if err != nil || ex == nil || ex.ID != "e1" {
		t.Errorf("expected keyword match, got %+v, %v", ex, err)
	}
	if ex, _ := s.resolveExercise(models.ExerciseKeyGratitude); ex != nil {
		t.Errorf("expected no match, got %+v", ex)
	}
	if ex, _ := s.resolveExercise("unknown"); ex != nil {
		t.Errorf("unknown keys should not resolve, got %+v", ex)
	}
}
