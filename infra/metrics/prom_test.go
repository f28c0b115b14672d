package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/oncall/core/metrics"
)

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	ev := coremetrics.RunEvent{Status: coremetrics.StatusRelaxed, Relaxed: 2, Unfilled: 7, Elapsed: 300 * time.Millisecond}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordStep(coremetrics.StepEvent{Phase: "DISABLING", Status: "infeasible"}); err != nil {
		t.Fatalf("record step: %v", err)
	}
	if err := sink.RecordRelaxation(coremetrics.RelaxationEvent{Rule: "rest"}); err != nil {
		t.Fatalf("record relaxation: %v", err)
	}

	if v := testutil.ToFloat64(sink.runs.WithLabelValues("relaxed")); v != 1 {
		t.Errorf("runs = %v", v)
	}
	if v := testutil.ToFloat64(sink.steps.WithLabelValues("DISABLING", "infeasible")); v != 1 {
		t.Errorf("steps = %v", v)
	}
	if v := testutil.ToFloat64(sink.relaxed.WithLabelValues("rest")); v != 1 {
		t.Errorf("relaxed = %v", v)
	}
	if v := testutil.ToFloat64(sink.unfilled); v != 7 {
		t.Errorf("unfilled = %v", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s1, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	s2, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = s1.RecordRun(coremetrics.RunEvent{Status: "ok"})
	_ = s2.RecordRun(coremetrics.RunEvent{Status: "ok"})
	if v := testutil.ToFloat64(s1.runs.WithLabelValues("ok")); v != 2 {
		t.Fatalf("collectors not shared: %v", v)
	}
}

func TestPromSink_HTTPExposure(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordRun(coremetrics.RunEvent{Status: "ok"})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	out := string(body)
	if !strings.Contains(out, `oncall_runs_total{status="ok"} 1`) {
		t.Errorf("metrics output missing counter: %s", out)
	}
}
