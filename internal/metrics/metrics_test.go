package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDialogTurn(t *testing.T) {
	DialogTurnsTotal.Reset()

	RecordDialogTurn("idle", true)
	RecordDialogTurn("idle", false)
	RecordDialogTurn("idle", false)

	if got := testutil.ToFloat64(DialogTurnsTotal.WithLabelValues("idle", "advanced")); got != 1 {
		t.Errorf("advanced turns = %v, want 1", got)
	}
	if got := testutil.ToFloat64(DialogTurnsTotal.WithLabelValues("idle", "fallback")); got != 2 {
		t.Errorf("fallback turns = %v, want 2", got)
	}
}

func TestRecordDirective(t *testing.T) {
	DirectivesAppliedTotal.Reset()
	RecordDirective("recommend_exercise", "ok")
	if got := testutil.ToFloat64(DirectivesAppliedTotal.WithLabelValues("recommend_exercise", "ok")); got != 1 {
		t.Errorf("directives = %v, want 1", got)
	}
}

func TestExposure(t *testing.T) {
	ObserveHTTPRequest("GET /healthz", 200, 5*time.Millisecond)
	IncRateLimited()
	RecordOutboxDelivery("coach_report", errors.New("down"))

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"nextcoach_http_requests_total",
		"nextcoach_http_request_duration_seconds",
		"nextcoach_http_rate_limited_total",
		"nextcoach_outbox_deliveries_total",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metric %s not exposed", name)
		}
	}
}
