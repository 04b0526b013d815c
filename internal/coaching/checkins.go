package coaching

import (
	"log/slog"

	"github.com/NextMind/NextCoach/internal/models"
)

// TrendPoint is one day's value of a check-in metric.
type TrendPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// Trends holds the per-day check-in series, oldest first.
type Trends struct {
	Days        int          `json:"days"`
	Mood        []TrendPoint `json:"mood"`
	EnergyLevel []TrendPoint `json:"energy_level"`
	StressLevel []TrendPoint `json:"stress_level"`
}

// RecordCheckIn stores today's check-in, replacing an earlier one from the
// same day. created reports whether this is the first check-in of the day.
func (s *Service) RecordCheckIn(userID string, req models.CheckInRequest) (ci *models.CheckIn, created bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	now := s.now()
	date := now.Format(models.CheckInDateLayout)
	existing, err := s.st.GetCheckIn(userID, date)
	if err != nil {
		return nil, false, err
	}
	c := models.CheckIn{
		ID:               newID("chk_"),
		UserID:           userID,
		Date:             date,
		Mood:             req.Mood,
		EnergyLevel:      req.EnergyLevel,
		StressLevel:      req.StressLevel,
		Notes:            req.Notes,
		GratitudeEntries: req.GratitudeEntries,
		CreatedAt:        now,
	}
	if existing != nil {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	}
	if err := s.st.SaveCheckIn(c); err != nil {
		slog.Error("Service RecordCheckIn failed", "error", err, "user_id", userID, "date", date)
		return nil, false, err
	}
	slog.Info("Service RecordCheckIn succeeded", "user_id", userID, "date", date, "replaced", existing != nil)
	return &c, existing == nil, nil
}

// ListCheckIns returns all check-ins of the user, newest first.
func (s *Service) ListCheckIns(userID string) ([]models.CheckIn, error) {
	return s.st.ListCheckIns(userID, "")
}

// sinceDate returns the date days before today.
func (s *Service) sinceDate(days int) string {
	return s.now().AddDate(0, 0, -days).Format(models.CheckInDateLayout)
}

// Trends returns the mood, energy and stress series of the last days days;
// a non-positive value means DefaultTrendDays.
func (s *Service) Trends(userID string, days int) (*Trends, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	checkins, err := s.st.ListCheckIns(userID, s.sinceDate(days))
	if err != nil {
		return nil, err
	}
	t := &Trends{
		Days:        days,
		Mood:        make([]TrendPoint, 0, len(checkins)),
		EnergyLevel: make([]TrendPoint, 0, len(checkins)),
		StressLevel: make([]TrendPoint, 0, len(checkins)),
	}
	for i := len(checkins) - 1; i >= 0; i-- {
		c := checkins[i]
		t.Mood = append(t.Mood, TrendPoint{Date: c.Date, Value: c.Mood})
		t.EnergyLevel = append(t.EnergyLevel, TrendPoint{Date: c.Date, Value: c.EnergyLevel})
		t.StressLevel = append(t.StressLevel, TrendPoint{Date: c.Date, Value: c.StressLevel})
	}
	return t, nil
}
