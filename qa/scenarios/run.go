package scenarios

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/oncall/app"
	"github.com/kilianp07/oncall/config"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/infra/metrics"
	"github.com/kilianp07/oncall/infra/mqtt"
)

func RunScenario(t *testing.T, sc *Scenario) {
	in, err := sc.Input()
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	pub := mqtt.NewMockNotifier()

	cfg := config.Default()
	cfg.Relaxation = sc.Relaxation
	cfg.Relaxation.SetDefaults()
	svc := app.NewWithDeps(cfg, app.Deps{Metrics: sink, Notifier: pub})
	defer func() { _ = svc.Close() }()

	res, err := svc.Solve(context.Background(), app.Request{Input: in, Rules: sc.Rules, Source: sc.Name})
	status := app.StatusOf(err)
	if res != nil {
		status = res.Report.Status
	}
	if status != sc.Expected.Status {
		t.Fatalf("scenario %s expected status %s, got %s (err %v)", sc.Name, sc.Expected.Status, status, err)
	}
	if n, err := testutil.GatherAndCount(reg, "oncall_runs_total"); err != nil || n != 1 {
		t.Errorf("scenario %s recorded %d run series (err %v)", sc.Name, n, err)
	}
	if msgs := pub.Published(); len(msgs) != 1 || msgs[0].Status != status {
		t.Errorf("scenario %s published %+v", sc.Name, msgs)
	}
	if err != nil {
		var mu *model.ModelUnsatisfiableError
		if sc.Expected.FailedContains != "" && errors.As(err, &mu) {
			if len(mu.Failed) == 0 {
				t.Errorf("scenario %s: no pinned constraint reported", sc.Name)
			}
			for _, name := range mu.Failed {
				if !strings.Contains(name, sc.Expected.FailedContains) {
					t.Errorf("scenario %s: pinned constraint %q does not mention %q", sc.Name, name, sc.Expected.FailedContains)
				}
			}
		}
		return
	}

	relaxed := res.Outcome.RelaxedRules()
	want := append([]string(nil), sc.Expected.Relaxed...)
	sort.Strings(relaxed)
	sort.Strings(want)
	if len(relaxed) != len(want) {
		t.Fatalf("scenario %s expected relaxed %v, got %v", sc.Name, want, relaxed)
	}
	for i := range want {
		if relaxed[i] != want[i] {
			t.Fatalf("scenario %s expected relaxed %v, got %v", sc.Name, want, relaxed)
		}
	}

	s := res.Schedule
	for shift, min := range sc.Expected.MinPerDay {
		for d, day := range s.Days {
			n := 0
			for r := range s.Residents {
				e := s.At(r, d)
				if (e.Kind == model.EntryAssigned || e.Kind == model.EntryFixed) && string(e.Shift) == shift {
					n++
				}
			}
			if n < min {
				t.Errorf("scenario %s: day %d has %d %s shifts, want at least %d", sc.Name, day.Number, n, shift, min)
			}
		}
	}
	if sc.Expected.Assigned != nil && s.Assigned() != *sc.Expected.Assigned {
		t.Errorf("scenario %s expected %d assignments, got %d", sc.Name, *sc.Expected.Assigned, s.Assigned())
	}
	// fixed and status cells come back verbatim
	for r, row := range in.Rows {
		for d, code := range row.Codes {
			if e := s.At(r, d); e.Kind != model.EntryAssigned && e.Render() != code {
				t.Errorf("scenario %s: cell %s/%d changed from %q to %q", sc.Name, row.Resident.Name, d+1, code, e.Render())
			}
		}
	}
}
