// Package notify delivers outbound text messages, currently the coach reports
// queued in the outbox, to a human coach.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/NextMind/NextCoach/internal/store"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to string, body string) error
}

// KindCoachReport is the outbox kind of coach report deliveries.
const KindCoachReport = "coach_report"

// Payload is the JSON body of an outbox message handled by this package.
type Payload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Encode returns the JSON form stored in the outbox.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(b), nil
}

var nonDigits = regexp.MustCompile(`\D`)

// CanonicalizeRecipient strips formatting from a phone number and returns it
// in "+<digits>" form. At least 6 digits are required.
func CanonicalizeRecipient(recipient string) (string, error) {
	if strings.TrimSpace(recipient) == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	digits := nonDigits.ReplaceAllString(recipient, "")
	if digits == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(digits) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", digits)
	}
	return "+" + digits, nil
}

// OutboxDelivery adapts a Sender to the outbox sender callback.
func OutboxDelivery(sender Sender) store.OutboxSendFunc {
	return func(ctx context.Context, msg store.OutboxMessage) error {
		if msg.Kind != KindCoachReport {
			return fmt.Errorf("unsupported outbox kind %q", msg.Kind)
		}
		var p Payload
		if err := json.Unmarshal([]byte(msg.PayloadJSON), &p); err != nil {
			return fmt.Errorf("invalid outbox payload %s: %w", msg.ID, err)
		}
		to, err := CanonicalizeRecipient(p.To)
		if err != nil {
			return err
		}
		return sender.Send(ctx, to, p.Body)
	}
}

// LogSender only logs messages. It is used when no provider is configured.
type LogSender struct{}

// Send logs the message and always succeeds.
func (LogSender) Send(ctx context.Context, to string, body string) error {
	slog.Info("LogSender.Send: delivery provider not configured, message logged only", "to", to, "length", len(body))
	slog.Debug("LogSender.Send: body", "to", to, "body", body)
	return nil
}

// SentMessage is a message recorded by MockSender.
type SentMessage struct {
	To   string
	Body string
}

// MockSender records messages for tests. When Err is set, Send fails with it.
type MockSender struct {
	mu   sync.Mutex
	Sent []SentMessage
	Err  error
}

// NewMockSender creates an empty MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMessage{To: to, Body: body})
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *MockSender) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Sent...)
}
