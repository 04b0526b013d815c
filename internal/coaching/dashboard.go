package coaching

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/notify"
	"github.com/NextMind/NextCoach/internal/recommend"
)

// Overview is the dashboard summary of a user's activity.
type Overview struct {
	ActiveSessions         int     `json:"active_sessions"`
	ExercisesCompleted     int     `json:"exercises_completed"`
	CheckInsThisWeek       int     `json:"check_ins_this_week"`
	AverageMood            float64 `json:"average_mood"`
	AverageEnergy          float64 `json:"average_energy"`
	AverageStress          float64 `json:"average_stress"`
	PendingRecommendations int     `json:"pending_recommendations"`
}

// CoachReport is the summary prepared for the human coach.
type CoachReport struct {
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ReportDelivery describes a report queued for the human coach.
type ReportDelivery struct {
	NoteID    string `json:"note_id"`
	OutboxID  string `json:"outbox_id"`
	Recipient string `json:"recipient"`
}

// PendingRecommendations returns the user's recommendations that are neither
// acted upon nor expired, highest priority first.
func (s *Service) PendingRecommendations(userID string) ([]models.Recommendation, error) {
	all, err := s.st.ListRecommendations(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	pending := make([]models.Recommendation, 0, len(all))
	for _, r := range all {
		if r.IsPending(now) {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// ActUpon marks a pending recommendation as acted upon.
func (s *Service) ActUpon(userID, recommendationID string) (*models.Recommendation, error) {
	r, err := s.st.GetRecommendation(recommendationID)
	if err != nil {
		return nil, err
	}
	if r == nil || r.UserID != userID || !r.IsPending(s.now()) {
		return nil, models.ErrNotFound
	}
	r.IsActedUpon = true
	if err := s.st.SaveRecommendation(*r); err != nil {
		slog.Error("Service ActUpon failed", "error", err, "recommendation_id", r.ID)
		return nil, err
	}
	slog.Debug("Service ActUpon succeeded", "recommendation_id", r.ID)
	return r, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Overview builds the dashboard summary.
func (s *Service) Overview(userID string) (*Overview, error) {
	var o Overview

	sessions, err := s.st.ListSessions(userID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.Status == models.SessionStatusActive {
			o.ActiveSessions++
		}
	}

	done, err := s.ListCompletions(userID, "", models.CompletionStatusCompleted)
	if err != nil {
		return nil, err
	}
	o.ExercisesCompleted = len(done)

	week, err := s.st.ListCheckIns(userID, s.sinceDate(OverviewCheckInWindowDays))
	if err != nil {
		return nil, err
	}
	o.CheckInsThisWeek = len(week)

	month, err := s.st.ListCheckIns(userID, s.sinceDate(OverviewAverageWindowDays))
	if err != nil {
		return nil, err
	}
	if n := len(month); n > 0 {
		var mood, energy, stress int
		for _, c := range month {
			mood += c.Mood
			energy += c.EnergyLevel
			stress += c.StressLevel
		}
		o.AverageMood = roundTenth(float64(mood) / float64(n))
		o.AverageEnergy = roundTenth(float64(energy) / float64(n))
		o.AverageStress = roundTenth(float64(stress) / float64(n))
	}

	pending, err := s.PendingRecommendations(userID)
	if err != nil {
		return nil, err
	}
	o.PendingRecommendations = len(pending)
	return &o, nil
}

// DashboardRecommendations returns the policy's picks for the user's latest
// assessment; a non-positive limit means DefaultDashboardLimit.
func (s *Service) DashboardRecommendations(userID string, limit int) (*recommend.Recommendation, error) {
	if limit <= 0 {
		limit = DefaultDashboardLimit
	}
	latest, err := s.latestAssessment(userID)
	if err != nil {
		return nil, err
	}
	rec := s.policy.Recommend(latest, limit)
	return &rec, nil
}

// CoachReport renders the human-coach summary of the user's latest assessment.
func (s *Service) CoachReport(userID string) (*CoachReport, error) {
	latest, err := s.latestAssessment(userID)
	if err != nil {
		return nil, err
	}
	return &CoachReport{
		UserID:      userID,
		Content:     s.policy.CoachSummary(latest),
		GeneratedAt: s.now(),
	}, nil
}

// recipientFor picks the user's own coach, falling back to the global one.
func (s *Service) recipientFor(userID string) (string, error) {
	u, err := s.st.GetUser(userID)
	if err != nil {
		return "", err
	}
	recipient := s.coachRecipient
	if u != nil && u.CoachRecipient != "" {
		recipient = u.CoachRecipient
	}
	if recipient == "" {
		return "", models.ErrNoCoachRecipient
	}
	canonical, err := notify.CanonicalizeRecipient(recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidRecipient, err)
	}
	return canonical, nil
}

// SendReportToCoach records the coach report as a note and queues it for
// delivery. Repeated requests on the same day share one pending delivery.
func (s *Service) SendReportToCoach(userID string) (*ReportDelivery, error) {
	recipient, err := s.recipientFor(userID)
	if err != nil {
		return nil, err
	}
	report, err := s.CoachReport(userID)
	if err != nil {
		return nil, err
	}

	note := models.CoachNote{
		ID:            newID("note_"),
		UserID:        userID,
		GeneratedByAI: true,
		NoteType:      NoteTypeReport,
		Title:         "AI coach report",
		Content:       report.Content,
		Priority:      3,
		CreatedAt:     report.GeneratedAt,
	}
	if err := s.st.SaveCoachNote(note); err != nil {
		slog.Error("Service SendReportToCoach note failed", "error", err, "user_id", userID)
		return nil, err
	}

	payload, err := notify.Payload{To: recipient, Body: report.Content}.Encode()
	if err != nil {
		return nil, err
	}
	dedupeKey := fmt.Sprintf("report:%s:%s", userID, s.today())
	outboxID, err := s.st.EnqueueOutboxMessage(userID, notify.KindCoachReport, payload, dedupeKey)
	if err != nil {
		slog.Error("Service SendReportToCoach enqueue failed", "error", err, "user_id", userID)
		return nil, err
	}
	slog.Info("Service SendReportToCoach queued", "user_id", userID, "outbox_id", outboxID)
	return &ReportDelivery{NoteID: note.ID, OutboxID: outboxID, Recipient: recipient}, nil
}
