package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

type fakeSource struct {
	counters map[goSession.MetricID]uint64
	dropped  uint64
}

func (s *fakeSource) MetricsSnapshot() goSession.MetricsSnapshot {
	return goSession.MetricsSnapshot{Counters: s.counters}
}

func (s *fakeSource) AuditDropped() uint64 {
	return s.dropped
}

func TestRender(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&fakeSource{
		counters: map[goSession.MetricID]uint64{
			goSession.MetricSeriesIssued:       3,
			goSession.MetricTokenTheftDetected: 1,
		},
		dropped: 7,
	})

	out := exporter.Render()
	for _, want := range []string{
		"# TYPE gosession_series_issued_total counter",
		"gosession_series_issued_total 3",
		"gosession_token_theft_detected_total 1",
		"gosession_refresh_performed_total 0",
		"gosession_audit_dropped_total 7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q", want)
		}
	}
}

func TestHandler(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&fakeSource{
		counters: map[goSession.MetricID]uint64{goSession.MetricLogout: 2},
	})

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("Content-Type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "gosession_logout_total 2") {
		t.Fatal("body missing logout counter")
	}
}

func TestRenderNilSource(t *testing.T) {
	var exporter *PrometheusExporter
	if exporter.Render() != "" {
		t.Fatal("nil exporter must render nothing")
	}
}
