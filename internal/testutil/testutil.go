// Package testutil provides common test utilities and helpers for NextCoach tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/NextMind/NextCoach/internal/models"
	"github.com/NextMind/NextCoach/internal/store"
)

// UserIDHeader mirrors the header the API reads the caller from.
const UserIDHeader = "X-User-ID"

// TestingT is the subset of testing.TB used by the helpers, so they can be
// exercised with a recording fake.
type TestingT interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TestingT, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// NewJSONRequest creates a request with an optional JSON body, sent on behalf
// of userID when it is non-empty.
func NewJSONRequest(t TestingT, method, url, userID string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, url, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	return req
}

// DecodeAPIResponse decodes the response envelope, checks its status field
// and, when result is non-nil, decodes the envelope's result into it.
func DecodeAPIResponse(t TestingT, rr *httptest.ResponseRecorder, expectedStatus models.APIStatus, result interface{}) models.APIResponse {
	t.Helper()
	var envelope struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	MustUnmarshalJSON(t, rr.Body.Bytes(), &envelope)
	if envelope.Status != string(expectedStatus) {
		t.Errorf("expected status '%s', got '%s' (message: %q)", expectedStatus, envelope.Status, envelope.Message)
	}
	if result != nil && len(envelope.Result) > 0 {
		MustUnmarshalJSON(t, envelope.Result, result)
	}
	return models.APIResponse{Status: envelope.Status, Message: envelope.Message, Result: envelope.Result}
}

// SeedTestData adds a user, an active exercise and an idle session owned by
// userID, and returns the session.
func SeedTestData(t TestingT, st store.Store, userID string) models.Session {
	t.Helper()
	now := time.Now().UTC()

	if err := st.SaveUser(models.User{ID: userID, Username: userID, CreatedAt: now}); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	ex := models.Exercise{
		ID:                "seed-breathing",
		Title:             "Box Breathing",
		ExerciseType:      models.ExerciseTypeBreathing,
		Theme:             "stress",
		DifficultyLevel:   1,
		EstimatedDuration: 4,
		IsActive:          true,
		CreatedAt:         now,
	}
	if err := st.SaveExercise(ex); err != nil {
		t.Fatalf("failed to seed exercise: %v", err)
	}
	sess := models.Session{
		ID:              "seed-session-" + userID,
		UserID:          userID,
		Title:           "Seeded session",
		Status:          models.SessionStatusActive,
		State:           "idle",
		StartedAt:       now,
		LastInteraction: now,
	}
	if err := st.SaveSession(sess); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return sess
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TestingT, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t TestingT, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
