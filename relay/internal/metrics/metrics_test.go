package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// scrape fetches the handler output and parses it the way a Prometheus
// server would.
func scrape(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return mfs
}

func counterValue(mf *dto.MetricFamily, label, value string) float64 {
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestFinding_CountsByStatus(t *testing.T) {
	m := New()
	m.Finding("delivered")
	m.Finding("delivered")
	m.Finding("dropped")

	mfs := scrape(t, m)
	mf := mfs["findingrelay_findings_total"]
	if mf == nil {
		t.Fatal("findingrelay_findings_total not exposed")
	}
	if got := counterValue(mf, "status", "delivered"); got != 2 {
		t.Errorf("delivered: got %v, want 2", got)
	}
	if got := counterValue(mf, "status", "dropped"); got != 1 {
		t.Errorf("dropped: got %v, want 1", got)
	}
}

func TestWebhook_ObservesLatency(t *testing.T) {
	m := New()
	m.Webhook("delivered", 120*time.Millisecond)

	mf := scrape(t, m)["findingrelay_webhook_duration_seconds"]
	if mf == nil {
		t.Fatal("findingrelay_webhook_duration_seconds not exposed")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count: got %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.119 || h.GetSampleSum() > 0.121 {
		t.Errorf("sample sum: got %v, want ~0.12", h.GetSampleSum())
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Finding("retry")

	if got := counterValue(scrape(t, b)["findingrelay_findings_total"], "status", "retry"); got != 0 {
		t.Errorf("registry leak: got %v, want 0", got)
	}
}
