package dialog

import (
	"fmt"
	"strings"

	"github.com/NextMind/NextCoach/internal/models"
)

// State is the conversation state persisted on a coaching session.
type State string

const (
	StateIdle               State = "idle"
	StateWaitingForOK       State = "waiting_for_ok"
	StateWaitingForOKThanks State = "waiting_for_ok_thanks"
	StateWaitingForDone     State = "waiting_for_done"
	StateCompleted          State = "completed"
)

// States lists the canonical states in script order.
var States = []State{
	StateIdle,
	StateWaitingForOK,
	StateWaitingForOKThanks,
	StateWaitingForDone,
	StateCompleted,
}

// ParseState returns the canonical state for s and whether s was recognized.
// Unrecognized values (empty, "None", anything else) map to StateIdle.
func ParseState(s string) (State, bool) {
	st := State(strings.TrimSpace(s))
	for _, known := range States {
		if st == known {
			return known, true
		}
	}
	return StateIdle, false
}

// IsUnset reports whether s is one of the values stored for a session that
// never had a state: empty or the "None" placeholder.
func IsUnset(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "None":
		return true
	}
	return false
}

// DirectiveKind enumerates the side effects the dialog can request.
type DirectiveKind string

const (
	DirectiveRecommendExercise     DirectiveKind = "recommend_exercise"
	DirectiveMarkSessionCompleted  DirectiveKind = "mark_session_completed"
	DirectiveAddRecommendationText DirectiveKind = "add_recommendation_text"
)

// Directive describes a side effect for the caller to perform. Only the field
// matching Kind is set.
type Directive struct {
	Kind        DirectiveKind      `json:"kind"`
	ExerciseKey models.ExerciseKey `json:"exercise_key,omitempty"`
	Text        string             `json:"text,omitempty"`
}

// RecommendExercise builds a recommend_exercise directive.
func RecommendExercise(key models.ExerciseKey) Directive {
	return Directive{Kind: DirectiveRecommendExercise, ExerciseKey: key}
}

// MarkSessionCompleted builds a mark_session_completed directive.
func MarkSessionCompleted() Directive {
	return Directive{Kind: DirectiveMarkSessionCompleted}
}

// AddRecommendationText builds an add_recommendation_text directive.
func AddRecommendationText(text string) Directive {
	return Directive{Kind: DirectiveAddRecommendationText, Text: text}
}

// Result is the outcome of one dialog turn.
type Result struct {
	Reply      string      `json:"reply"`
	Directives []Directive `json:"directives,omitempty"`
	Next       State       `json:"next_state"`
}

// ResourcesText is attached as a recommendation when the daily script completes.
const ResourcesText = "Resources: Breathing video; Productivity guide; Resilience article."

// transition is one row of the script. A row whose Require is PatternNone
// never advances and always answers with Fallback.
type transition struct {
	Require    Pattern
	Reply      func(name string) string
	Directives []Directive
	Next       State
	Fallback   func(name string) string
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

func idleGreeting(name string) string {
	return fmt.Sprintf("Hi %s! To start our coaching session, please say: \"I'm back, I need help\"", name)
}

// script is the transition table, keyed by current state.
var script = map[State]transition{
	StateIdle: {
		Require: PatternBackOrHelp,
		Reply: func(name string) string {
			return fmt.Sprintf("Oh %s, I'm here for your help.", name)
		},
		Next:     StateWaitingForOK,
		Fallback: idleGreeting,
	},
	StateWaitingForOK: {
		Require: PatternOKOnly,
		Reply: fixed("I've heard that your tone was overwhelmed, it was stressed, and I'm here to help you. " +
			"First, I will suggest things to do for you — please stick to them."),
		Next:     StateWaitingForOKThanks,
		Fallback: fixed("Please reply with 'ok' to continue."),
	},
	StateWaitingForOKThanks: {
		Require: PatternOKThanks,
		Reply: fixed("I have for today exercises for you. Please do them. I will add them in the Exercises section — check it out. " +
			"Then tell me after finishing the exercise, come back to me. I am waiting for you."),
		Directives: []Directive{
			RecommendExercise(models.ExerciseKeyBreathing),
			RecommendExercise(models.ExerciseKeyGratitude),
		},
		Next:     StateWaitingForDone,
		Fallback: fixed("Please reply with 'ok thanks' so I can assign your exercises."),
	},
	StateWaitingForDone: {
		Require: PatternDoneOrBack,
		Reply: func(name string) string {
			return fmt.Sprintf("Hi %s, thank you for coming back. I have the result of your exercise and I'm so happy that you finished it all. "+
				"Now as we finished our daily exercise, I will give you some resources — please check it out. "+
				"If you need any help, I'm here. You're doing well; after our sessions together the AI will be better and you will feel much better.", name)
		},
		Directives: []Directive{
			MarkSessionCompleted(),
			AddRecommendationText(ResourcesText),
		},
		Next:     StateCompleted,
		Fallback: fixed("Please complete your exercises and come back to say 'I'm back' or 'done'."),
	},
	StateCompleted: {
		Require:  PatternNone,
		Next:     StateCompleted,
		Fallback: fixed("Great! You've completed today's session. Come back tomorrow to start a new one!"),
	},
}

// Respond runs one turn of the script. It is total: unset states are
// processed as idle, any other unknown state answers with the idle greeting
// and resets to idle without looking at the utterance, an empty utterance
// takes the fallback path, and an empty display name is replaced by
// models.DefaultDisplayName.
func Respond(state, utterance, displayName string) Result {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = models.DefaultDisplayName
	}
	current, known := ParseState(state)
	if !known && !IsUnset(state) {
		return Result{Reply: idleGreeting(name), Next: StateIdle}
	}
	t := script[current]

	if t.Require != PatternNone && Matches(utterance, t.Require) {
		return Result{
			Reply:      t.Reply(name),
			Directives: append([]Directive(nil), t.Directives...),
			Next:       t.Next,
		}
	}
	return Result{Reply: t.Fallback(name), Next: current}
}
