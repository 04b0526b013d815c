package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/NextMind/NextCoach/internal/store"
	"github.com/google/go-cmp/cmp"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSender_Send(t *testing.T) {
	tests := []struct {
		channel  Channel
		wantTo   string
		wantFrom string
	}{
		{"", "whatsapp:+33600000000", "whatsapp:+15550001111"},
		{ChannelWhatsApp, "whatsapp:+33600000000", "whatsapp:+15550001111"},
		{ChannelSMS, "+33600000000", "+15550001111"},
	}
	for _, tt := range tests {
		t.Run(string(tt.channel), func(t *testing.T) {
			api := &fakeCreator{}
			s := newTwilioSender(api, "+15550001111", tt.channel)
			if err := s.Send(context.Background(), "+33600000000", "report"); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if len(api.params) != 1 {
				t.Fatalf("expected 1 API call, got %d", len(api.params))
			}
			p := api.params[0]
			if *p.To != tt.wantTo || *p.From != tt.wantFrom || *p.Body != "report" {
				t.Errorf("unexpected params to=%s from=%s body=%s", *p.To, *p.From, *p.Body)
			}
		})
	}
}

func TestTwilioSender_SendError(t *testing.T) {
	s := newTwilioSender(&fakeCreator{err: errors.New("401")}, "+15550001111", ChannelSMS)
	if err := s.Send(context.Background(), "+33600000000", "report"); err == nil {
		t.Error("expected error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api := &fakeCreator{}
	if err := newTwilioSender(api, "+1555", ChannelSMS).Send(ctx, "+33600000000", "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(api.params) != 0 {
		t.Error("no API call expected after cancellation")
	}
}

func TestNewTwilioSender_RequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewTwilioSender(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewTwilioSender(WithAccountSID("AC1"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without from number")
	}
	if _, err := NewTwilioSender(WithAccountSID("AC1"), WithAuthToken("tok"), WithFrom("+1555")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCanonicalizeRecipient(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+33 6 12 34 56 78", "+33612345678", false},
		{"(555) 000-1111", "+5550001111", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalizeRecipient(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CanonicalizeRecipient(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestOutboxDelivery(t *testing.T) {
	mock := NewMockSender()
	deliver := OutboxDelivery(mock)

	payload, err := Payload{To: "+33 6 12 34 56 78", Body: "AI Coach Report"}.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := deliver(context.Background(), store.OutboxMessage{ID: "o1", Kind: KindCoachReport, PayloadJSON: payload}); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	want := []SentMessage{{To: "+33612345678", Body: "AI Coach Report"}}
	if diff := cmp.Diff(want, mock.Messages()); diff != "" {
		t.Errorf("sent messages mismatch (-want +got):\n%s", diff)
	}

	if err := deliver(context.Background(), store.OutboxMessage{ID: "o2", Kind: "other", PayloadJSON: payload}); err == nil {
		t.Error("expected error for unknown kind")
	}
	if err := deliver(context.Background(), store.OutboxMessage{ID: "o3", Kind: KindCoachReport, PayloadJSON: "{"}); err == nil {
		t.Error("expected error for malformed payload")
	}

	mock.Err = errors.New("down")
	if err := deliver(context.Background(), store.OutboxMessage{ID: "o4", Kind: KindCoachReport, PayloadJSON: payload}); err == nil {
		t.Error("expected sender error to propagate")
	}
}

func TestLogSender(t *testing.T) {
	if err := (LogSender{}).Send(context.Background(), "+1555000", "hi"); err != nil {
		t.Errorf("LogSender.Send returned %v", err)
	}
}
