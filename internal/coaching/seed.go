package coaching

import (
	"log/slog"

	"github.com/NextMind/NextCoach/internal/models"
)

// defaultLibrary is the exercise set installed into an empty store.
func defaultLibrary() []models.Exercise {
	return []models.Exercise{
		{
			Title:             "4-7-8 Breathing",
			Description:       "A breathing technique to bring stress down quickly.",
			ExerciseType:      models.ExerciseTypeBreathing,
			Theme:             "stress",
			DifficultyLevel:   1,
			EstimatedDuration: 10,
			Instructions: "1. Sit comfortably with your back straight.\n" +
				"2. Rest the tip of your tongue behind your front teeth.\n" +
				"3. Breathe in quietly through your nose for 4 seconds.\n" +
				"4. Hold your breath for 7 seconds.\n" +
				"5. Breathe out completely through your mouth for 8 seconds.\n" +
				"6. Repeat the cycle 4 times.",
			ReflectionQuestions: []string{
				"How do you feel after this exercise?",
				"Did you notice any change in your stress level?",
				"When could you fit this exercise into your day?",
			},
		},
		{
			Title:             "Gratitude Journal",
			Description:       "Cultivate gratitude to strengthen wellbeing.",
			ExerciseType:      models.ExerciseTypeGratitude,
			Theme:             "confidence",
			DifficultyLevel:   1,
			EstimatedDuration: 15,
			Instructions: "1. Find a quiet place.\n" +
				"2. Write down 3 things you are grateful for today.\n" +
				"3. For each one, write why it matters to you.\n" +
				"4. Take a moment to feel that gratitude.",
			ReflectionQuestions: []string{
				"What emotions did you feel?",
				"How does this practice shape your day?",
				"What did you learn about yourself?",
			},
		},
		{
			Title:             "15-minute SMART Goal",
			Description:       "Turn an intention into one specific, measurable goal for today.",
			ExerciseType:      models.ExerciseTypeSmartGoals,
			Theme:             "productivity",
			DifficultyLevel:   2,
			EstimatedDuration: 15,
			Instructions: "Define one goal that is Specific, Measurable, Achievable, Relevant and Time-bound.\n" +
				"S: What exactly do I want to achieve?\n" +
				"M: How will I measure my progress?\n" +
				"A: Is it realistic today?\n" +
				"R: Why does it matter to me?\n" +
				"T: By when will it be done?",
			ReflectionQuestions: []string{
				"Which part of the goal was hardest to define?",
				"What is the first step you will take?",
			},
		},
		{
			Title:             "DESC Technique",
			Description:       "A structured method for assertive communication.",
			ExerciseType:      models.ExerciseTypeCBC,
			Theme:             "assertiveness",
			DifficultyLevel:   3,
			EstimatedDuration: 20,
			Instructions: "DESC: Describe, Express, Specify, Consequences\n\n" +
				"1. Describe the situation objectively.\n" +
				"2. Express your feelings with \"I\" statements.\n" +
				"3. Specify one concrete solution.\n" +
				"4. Explain the positive consequences.\n\n" +
				"Think of a real situation and prepare what you will say.",
			ReflectionQuestions: []string{
				"How did you feel while preparing this?",
				"What was the hardest part?",
				"How do you think the other person will react?",
			},
		},
		{
			Title:             "Success Visualization",
			Description:       "A visualization technique to build confidence.",
			ExerciseType:      models.ExerciseTypeVisualization,
			Theme:             "confidence",
			DifficultyLevel:   2,
			EstimatedDuration: 15,
			Instructions: "1. Close your eyes and breathe deeply.\n" +
				"2. Picture a future situation in which you succeed.\n" +
				"3. Notice the details: place, people, sounds, colors.\n" +
				"4. Feel the emotions of that success.\n" +
				"5. Notice your posture and tone of voice.\n" +
				"6. Anchor that feeling of confidence.",
			ReflectionQuestions: []string{
				"Which situation did you picture?",
				"What emotions did you feel?",
				"How can you use this energy now?",
			},
		},
		{
			Title:             "Mindful Body Scan",
			Description:       "A mindfulness practice for managing stress.",
			ExerciseType:      models.ExerciseTypeMindfulness,
			Theme:             "stress",
			DifficultyLevel:   2,
			EstimatedDuration: 20,
			Instructions: "1. Lie down or sit comfortably.\n" +
				"2. Close your eyes and focus on your breathing.\n" +
				"3. Move your attention through your body: feet, legs, belly, chest and back, arms and hands, neck and head.\n" +
				"4. Notice sensations without judging them.\n" +
				"5. Release the tension you find.",
			ReflectionQuestions: []string{
				"Where did you feel the most tension?",
				"Were you able to release some areas?",
				"How do you feel now?",
			},
		},
	}
}

// SeedExercises installs the default exercise library when the store holds
// no exercises. Catalog exercises whose type the library does not cover are
// added from the catalog so every dialog recommendation can be resolved.
// It returns the number of exercises created.
func (s *Service) SeedExercises() (int, error) {
	existing, err := s.st.ListExercises(false)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		slog.Debug("Service SeedExercises: store already has exercises", "count", len(existing))
		return 0, nil
	}

	library := defaultLibrary()
	covered := make(map[models.ExerciseType]bool, len(library))
	for _, ex := range library {
		covered[ex.ExerciseType] = true
	}
	for _, entry := range s.policy.Catalog().Exercises() {
		if entry.Type != "" && covered[entry.Type] {
			continue
		}
		library = append(library, models.Exercise{
			Title:             entry.Title,
			ExerciseType:      entry.Type,
			DifficultyLevel:   1,
			EstimatedDuration: entry.DurationMinutes,
			Instructions:      entry.Instructions,
		})
	}

	now := s.now()
	for _, ex := range library {
		ex.ID = newID("ex_")
		ex.IsActive = true
		ex.CreatedAt = now
		if err := s.st.SaveExercise(ex); err != nil {
			slog.Error("Service SeedExercises failed", "error", err, "title", ex.Title)
			return 0, err
		}
	}
	slog.Info("Service SeedExercises succeeded", "count", len(library))
	return len(library), nil
}
