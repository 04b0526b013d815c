// Package coaching implements the coaching operations exposed by the API.
//
// The Service ties the scripted dialog engine and the recommendation policy
// to a store.Store: it persists every turn of a session, applies the
// directives the dialog emits (exercise assignment, session completion,
// resource recommendations) and builds the dashboard views. Record lookups
// that miss, or that hit a record owned by another user, fail with
// models.ErrNotFound.
package coaching

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/notify"
	"github.com/NextMind/NextCoach/internal/recommend"
	"github.com/NextMind/NextCoach/internal/store"
)

// Defaults applied when the caller passes no value.
const (
	DefaultSessionTitle       = "New Coaching Session"
	DefaultRecommendedLimit   = 5
	DefaultTrendDays          = 30
	DefaultDashboardLimit     = 3
	OverviewCheckInWindowDays = 7
	OverviewAverageWindowDays = 30
)

// Opts holds configuration options for the coaching service.
type Opts struct {
	Policy         *recommend.Policy
	CoachRecipient string           // global human coach phone number
	Clock          func() time.Time // defaults to time.Now
}

// Option defines a function for configuring the coaching service.
type Option func(*Opts)

// WithPolicy sets the recommendation policy. The default policy uses the
// built-in catalog.
func WithPolicy(p *recommend.Policy) Option {
	return func(o *Opts) {
		o.Policy = p
	}
}

// WithCoachRecipient sets the phone number reports are sent to when the user
// has no coach of their own.
func WithCoachRecipient(recipient string) Option {
	return func(o *Opts) {
		o.CoachRecipient = recipient
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Clock = now
	}
}

// Service implements the coaching operations on top of a store.
type Service struct {
	st             store.Store
	policy         *recommend.Policy
	coachRecipient string
	now            func() time.Time
	locks          *keyedMutex
}

// NewService creates a coaching service backed by st.
func NewService(st store.Store, opts ...Option) *Service {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Policy == nil {
		cfg.Policy = recommend.NewPolicy(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	slog.Debug("Service created", "coach_recipient_set", cfg.CoachRecipient != "")
	return &Service{
		st:             st,
		policy:         cfg.Policy,
		coachRecipient: strings.TrimSpace(cfg.CoachRecipient),
		now:            func() time.Time { return cfg.Clock().UTC() },
		locks:          newKeyedMutex(),
	}
}

// Policy returns the recommendation policy in use.
func (s *Service) Policy() *recommend.Policy {
	return s.policy
}

// RegisterUser creates or updates the user record of the caller.
func (s *Service) RegisterUser(req models.UserRegistrationRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.st.GetUser(req.ID)
	if err != nil {
		return nil, err
	}
	u := models.User{
		ID:        strings.TrimSpace(req.ID),
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		CreatedAt: s.now(),
	}
	if existing != nil {
		u.CreatedAt = existing.CreatedAt
	}
	if req.CoachRecipient != "" {
		canonical, err := notify.CanonicalizeRecipient(req.CoachRecipient)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidRecipient, err)
		}
		u.CoachRecipient = canonical
	}
	if err := s.st.SaveUser(u); err != nil {
		slog.Error("Service RegisterUser failed", "error", err, "user_id", u.ID)
		return nil, err
	}
	slog.Info("Service RegisterUser succeeded", "user_id", u.ID, "updated", existing != nil)
	return &u, nil
}

// GetUser returns the user record.
func (s *Service) GetUser(userID string) (*models.User, error) {
	u, err := s.st.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.ErrNotFound
	}
	return u, nil
}

// RecordAssessment stores a completed assessment for the user.
func (s *Service) RecordAssessment(userID string, req models.AssessmentRequest) (*models.Assessment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SessionID != "" {
		if _, err := s.ownedSession(userID, req.SessionID); err != nil {
			return nil, err
		}
	}
	a := models.Assessment{
		ID:              newID("asmt_"),
		UserID:          userID,
		SessionID:       req.SessionID,
		BigFive:         req.BigFive,
		DISC:            req.DISC,
		WellbeingScore:  req.WellbeingScore,
		ResilienceScore: req.ResilienceScore,
		Notes:           req.Notes,
		CreatedAt:       s.now(),
	}
	if err := s.st.SaveAssessment(a); err != nil {
		slog.Error("Service RecordAssessment failed", "error", err, "user_id", userID)
		return nil, err
	}
	slog.Info("Service RecordAssessment succeeded", "user_id", userID, "assessment_id", a.ID)
	return &a, nil
}

// LatestAssessment returns the user's most recent assessment.
func (s *Service) LatestAssessment(userID string) (*models.Assessment, error) {
	a, err := s.st.LatestAssessment(userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, models.ErrNotFound
	}
	return a, nil
}

// latestAssessment is LatestAssessment without the not-found error; nil means
// the user has not been assessed.
func (s *Service) latestAssessment(userID string) (*models.Assessment, error) {
	return s.st.LatestAssessment(userID)
}

func (s *Service) ownedSession(userID, sessionID string) (*models.Session, error) {
	sess, err := s.st.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID {
		return nil, models.ErrNotFound
	}
	return sess, nil
}

func (s *Service) today() string {
	return s.now().Format(models.CheckInDateLayout)
}
