// Package recommend maps an optional assessment to prioritized exercises,
// resources, and short coaching texts.
//
// The exercise and resource lists are immutable Catalog values injected into
// the Policy, so alternative catalogs can be loaded from YAML or built in tests.
package recommend

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/NextMind/NextCoach/internal/models"
	"gopkg.in/yaml.v3"
)

// Exercise is a catalog entry for a canned guided activity.
type Exercise struct {
	Key             models.ExerciseKey  `yaml:"key" json:"key"`
	Title           string              `yaml:"title" json:"title"`
	Instructions    string              `yaml:"instructions" json:"instructions"`
	Type            models.ExerciseType `yaml:"type" json:"exercise_type"`
	DurationMinutes int                 `yaml:"duration_minutes" json:"duration_minutes"`
	TitleKeywords   []string            `yaml:"title_keywords" json:"-"`
}

// Resource is a catalog entry for external reading or viewing material.
type Resource struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

// Catalog is the immutable set of exercises and resources the policy draws
// from. Order matters: it is the default recommendation order.
type Catalog struct {
	exercises []Exercise
	resources []Resource
}

type catalogFile struct {
	Exercises []Exercise `yaml:"exercises"`
	Resources []Resource `yaml:"resources"`
}

// NewCatalog validates and copies the given entries.
func NewCatalog(exercises []Exercise, resources []Resource) (*Catalog, error) {
	seen := make(map[models.ExerciseKey]bool, len(exercises))
	for i, ex := range exercises {
		if !models.IsValidExerciseKey(ex.Key) {
			return nil, fmt.Errorf("exercise %d: unknown key %q", i, ex.Key)
		}
		if seen[ex.Key] {
			return nil, fmt.Errorf("exercise %d: duplicate key %q", i, ex.Key)
		}
		if strings.TrimSpace(ex.Title) == "" {
			return nil, fmt.Errorf("exercise %q: title is required", ex.Key)
		}
		seen[ex.Key] = true
	}
	for i, r := range resources {
		if strings.TrimSpace(r.Title) == "" {
			return nil, fmt.Errorf("resource %d: title is required", i)
		}
	}
	c := &Catalog{
		exercises: make([]Exercise, len(exercises)),
		resources: append([]Resource(nil), resources...),
	}
	for i, ex := range exercises {
		ex.TitleKeywords = append([]string(nil), ex.TitleKeywords...)
		c.exercises[i] = ex
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog document. Unknown fields are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return NewCatalog(f.Exercises, f.Resources)
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Exercises returns a copy of the catalog exercises in default order.
func (c *Catalog) Exercises() []Exercise {
	out := make([]Exercise, len(c.exercises))
	copy(out, c.exercises)
	return out
}

// Resources returns a copy of the catalog resources in default order.
func (c *Catalog) Resources() []Resource {
	return append([]Resource(nil), c.resources...)
}

// Exercise looks up an exercise by key.
func (c *Catalog) Exercise(key models.ExerciseKey) (Exercise, bool) {
	for _, ex := range c.exercises {
		if ex.Key == key {
			return ex, true
		}
	}
	return Exercise{}, false
}

// DefaultCatalog returns the built-in catalog: breathing first, then the
// goal-setting and gratitude exercises, and three resources.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultExercises, defaultResources)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in catalog: %v", err))
	}
	return c
}

var defaultExercises = []Exercise{
	{
		Key:             models.ExerciseKeyBreathing,
		Title:           "4-7-8 Breathing",
		Instructions:    "Breathe in for 4s, hold for 7s, breathe out for 8s. Repeat 4 times.",
		Type:            models.ExerciseTypeBreathing,
		DurationMinutes: 10,
		TitleKeywords:   []string{"breathing", "respiration", "4-7-8"},
	},
	{
		Key:             models.ExerciseKeyGoalSetting,
		Title:           "15-minute SMART Goal",
		Instructions:    "Define one SMART goal for today.",
		Type:            models.ExerciseTypeSmartGoals,
		DurationMinutes: 15,
		TitleKeywords:   []string{"smart", "goal", "objectif"},
	},
	{
		Key:             models.ExerciseKeyGratitude,
		Title:           "Gratitude Journal (3 items)",
		Instructions:    "Write down 3 positive things from today.",
		Type:            models.ExerciseTypeGratitude,
		DurationMinutes: 15,
		TitleKeywords:   []string{"gratitude"},
	},
}

var defaultResources = []Resource{
	{Title: "Video: 5-minute guided breathing", URL: "https://example.com/breathing-video"},
	{Title: "Guide: Organizing your day (PDF)", URL: "https://example.com/productivity-guide"},
	{Title: "Article: Building resilience", URL: "https://example.com/resilience-article"},
}
