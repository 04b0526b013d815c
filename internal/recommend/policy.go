package recommend

import (
	"fmt"
	"strings"

	"github.com/NextMind/NextCoach/internal/models"
)

// Thresholds of the policy. Scores at or below the low marks select the
// supportive branch; extraversion at or above the high mark selects the
// energetic opener.
const (
	LowStabilityMax     = 11
	LowWellbeingMax     = 14
	HighExtraversionMin = 19
	IntroversionMax     = 11
)

// Recommendation is the full policy output for one user.
type Recommendation struct {
	Exercises     []Exercise `json:"exercises"`
	Resources     []Resource `json:"resources"`
	Motivation    string     `json:"motivation"`
	OpeningPrompt string     `json:"opening_prompt"`
}

// Policy selects exercises, resources and texts from a Catalog. It holds no
// mutable state and is safe for concurrent use.
type Policy struct {
	catalog *Catalog
}

// NewPolicy creates a policy over catalog; a nil catalog means DefaultCatalog.
func NewPolicy(catalog *Catalog) *Policy {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Policy{catalog: catalog}
}

// Catalog returns the catalog the policy draws from.
func (p *Policy) Catalog() *Catalog {
	return p.catalog
}

// needsSupport reports whether the assessment falls in the low
// wellbeing-or-stability branch.
func needsSupport(a *models.Assessment) bool {
	return a.BigFive.Stability <= LowStabilityMax || a.WellbeingScore <= LowWellbeingMax
}

// Exercises returns up to limit exercises, most relevant first. Without an
// assessment the catalog's default order is used. Keys missing from the
// catalog are skipped.
func (p *Policy) Exercises(a *models.Assessment, limit int) []Exercise {
	if limit <= 0 {
		return nil
	}
	var out []Exercise
	if a == nil {
		out = p.catalog.Exercises()
	} else {
		keys := []models.ExerciseKey{models.ExerciseKeyGoalSetting, models.ExerciseKeyBreathing}
		if needsSupport(a) {
			keys = []models.ExerciseKey{models.ExerciseKeyBreathing, models.ExerciseKeyGratitude}
		}
		for _, k := range keys {
			if ex, ok := p.catalog.Exercise(k); ok {
				out = append(out, ex)
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Resources returns up to limit catalog resources in catalog order.
func (p *Policy) Resources(a *models.Assessment, limit int) []Resource {
	if limit <= 0 {
		return nil
	}
	out := p.catalog.Resources()
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// OpeningPrompt returns the first thing the coach says in a new session.
func (p *Policy) OpeningPrompt(a *models.Assessment) string {
	switch {
	case a == nil:
		return "Hello, I'm your NextMind coach. Tell me, how are you doing today?"
	case needsSupport(a):
		return "Hello, I can see you're going through a difficult time. " +
			"Would you like to start with a 3 to 5 minute breathing exercise?"
	case a.BigFive.Extraversion >= HighExtraversionMin:
		return "Hi! Ready to move forward today? I have short exercises to boost your day."
	default:
		return "Hello, I'm your NextMind coach. How can I help you today?"
	}
}

// Motivation returns the daily motivational message.
func (p *Policy) Motivation(a *models.Assessment) string {
	switch {
	case a == nil:
		return "Every day is a new opportunity to grow. Let's get started together!"
	case needsSupport(a):
		return "Remember: every small step counts. You are stronger than you think."
	default:
		return "Today is a great day to move toward your goals. You're on the right track!"
	}
}

// Recommend bundles exercises, resources and texts for the dashboard.
func (p *Policy) Recommend(a *models.Assessment, limit int) Recommendation {
	return Recommendation{
		Exercises:     p.Exercises(a, limit),
		Resources:     p.Resources(a, limit),
		Motivation:    p.Motivation(a),
		OpeningPrompt: p.OpeningPrompt(a),
	}
}

// CoachSummary renders the deterministic report handed to a human coach.
func (p *Policy) CoachSummary(a *models.Assessment) string {
	if a == nil {
		return "AI Coach Report\n\n" +
			"The user has not completed a psychological assessment yet.\n" +
			"Recommendation: start with a complete NextMind assessment."
	}

	bf := a.BigFive
	var b strings.Builder
	b.WriteString("=== AI COACH REPORT FOR THE HUMAN COACH ===\n\n")
	fmt.Fprintf(&b, "Overall wellbeing: %d/%d\n", a.WellbeingScore, models.MaxWellbeingScore)
	b.WriteString("Big Five:\n")
	fmt.Fprintf(&b, "  - Emotional stability: %d/%d\n", bf.Stability, models.MaxBigFiveScore)
	fmt.Fprintf(&b, "  - Extraversion: %d/%d\n", bf.Extraversion, models.MaxBigFiveScore)
	fmt.Fprintf(&b, "  - Openness: %d/%d\n", bf.Openness, models.MaxBigFiveScore)
	fmt.Fprintf(&b, "  - Conscientiousness: %d/%d\n", bf.Conscientiousness, models.MaxBigFiveScore)
	fmt.Fprintf(&b, "  - Agreeableness: %d/%d\n\n", bf.Agreeableness, models.MaxBigFiveScore)

	b.WriteString("POINTS OF ATTENTION:\n")
	if a.WellbeingScore <= LowWellbeingMax {
		b.WriteString("- Low wellbeing: the user is going through a difficult period. Prioritize emotional support.\n")
	}
	if bf.Stability <= LowStabilityMax {
		b.WriteString("- Low emotional stability: stress-management exercises recommended.\n")
	}
	if bf.Extraversion <= IntroversionMax {
		b.WriteString("- Marked introversion: favor individual rather than group exercises.\n")
	}

	b.WriteString("\nRECOMMENDATIONS:\n")
	b.WriteString("- Regular follow-up of breathing and gratitude exercises\n")
	b.WriteString("- SMART goals adapted to the profile\n")
	b.WriteString("- Personalized coaching sessions based on the Big Five profile\n\n")
	b.WriteString("This report was generated automatically by the NextMind AI Coach.\n")
	return b.String()
}
