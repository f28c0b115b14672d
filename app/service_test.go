package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/config"
	coremetrics "github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/relax"
	"github.com/kilianp07/oncall/core/rules"
	"github.com/kilianp07/oncall/infra/logger"
	"github.com/kilianp07/oncall/infra/mqtt"
	"github.com/kilianp07/oncall/infra/runlog"
)

type recordingSink struct {
	mu      sync.Mutex
	runs    []coremetrics.RunEvent
	steps   []coremetrics.StepEvent
	relaxed []coremetrics.RelaxationEvent
}

func (s *recordingSink) RecordRun(ev coremetrics.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, ev)
	return nil
}

func (s *recordingSink) RecordStep(ev coremetrics.StepEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, ev)
	return nil
}

func (s *recordingSink) RecordRelaxation(ev coremetrics.RelaxationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relaxed = append(s.relaxed, ev)
	return nil
}

type fixture struct {
	svc      *Service
	sink     *recordingSink
	store    runlog.Store
	notifier *mqtt.MockNotifier
}

func quietLogs(t *testing.T) {
	t.Helper()
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quietLogs(t)
	store, err := runlog.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	f := &fixture{sink: &recordingSink{}, store: store, notifier: mqtt.NewMockNotifier()}
	f.svc = NewWithDeps(config.Default(), Deps{Metrics: f.sink, Store: store, Notifier: f.notifier})
	n := 0
	f.svc.newID = func() string { n++; return fmt.Sprintf("run-%d", n) }
	t.Cleanup(func() { _ = f.svc.Close() })
	return f
}

func input(rows ...[]string) model.Input {
	var in model.Input
	for i, codes := range rows {
		in.Rows = append(in.Rows, model.Row{
			Resident: model.Resident{Index: i, Name: fmt.Sprintf("r%d", i+1), Rank: "R1"},
			Codes:    codes,
		})
	}
	return in
}

var (
	coverG = model.RuleSpec{ID: "cover_g", Kind: rules.KindCoverage, Params: map[string]any{"shift_types": []string{"G"}, "min": 1}}
	rest   = model.RuleSpec{ID: "rest", Kind: rules.KindRestPeriod, Params: map[string]any{"days": 1}}
)

func TestSolveFeasible(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Solve(context.Background(), Request{
		Input:  input([]string{"", "", ""}, []string{"", "V", ""}),
		Rules:  []model.RuleSpec{coverG},
		Source: "month.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, coremetrics.StatusOK, res.Report.Status)
	assert.Empty(t, res.Report.Relaxed)
	assert.Equal(t, []string{"cover_g"}, res.Report.Rules)
	assert.Equal(t, model.EntryStatus, res.Schedule.At(1, 1).Kind)
	assert.Equal(t, "V", res.Schedule.At(1, 1).Render())
	require.Len(t, res.Report.Workload, 2)
	assert.Equal(t, res.Schedule.Assigned(), res.Report.Assigned)

	require.Len(t, f.sink.runs, 1)
	assert.Equal(t, coremetrics.StatusOK, f.sink.runs[0].Status)
	assert.Equal(t, 2, f.sink.runs[0].Residents)
	assert.NotEmpty(t, f.sink.steps)
	assert.Equal(t, "run-1", f.sink.steps[0].RunID)

	recs, err := f.svc.History(context.Background(), runlog.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "month.csv", recs[0].Source)
	require.NotNil(t, recs[0].Checkpoint)

	msgs := f.notifier.Published()
	require.Len(t, msgs, 1)
	assert.Equal(t, coremetrics.StatusOK, msgs[0].Status)
}

func TestSolveRelaxed(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Solve(context.Background(), Request{
		Input: input([]string{"", "", ""}),
		Rules: []model.RuleSpec{coverG, rest},
	})
	require.NoError(t, err)
	assert.Equal(t, coremetrics.StatusRelaxed, res.Report.Status)
	require.Len(t, res.Report.Relaxed, 1)
	assert.Equal(t, "rest", res.Report.Relaxed[0].Rule)
	assert.NotEmpty(t, res.Report.Relaxed[0].Violated)
	assert.Equal(t, 3.0, res.Report.MeanLoad)
	assert.Equal(t, 0.0, res.Report.StdDevLoad)

	require.Len(t, f.sink.relaxed, 1)
	assert.Equal(t, "rest", f.sink.relaxed[0].Rule)

	recs, err := f.svc.History(context.Background(), runlog.Query{Rule: "rest"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, coremetrics.StatusRelaxed, recs[0].Status)

	again, err := f.svc.Solve(context.Background(), Request{
		Input:  input([]string{"", "", ""}),
		Rules:  []model.RuleSpec{coverG, rest},
		Resume: recs[0].Checkpoint,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rest"}, again.Outcome.RelaxedRules())
}

func TestSolveFailuresAreRecorded(t *testing.T) {
	cases := []struct {
		name       string
		in         model.Input
		rules      []model.RuleSpec
		status     string
		checkpoint bool
	}{
		{"unsatisfiable", input([]string{"V", "V"}), []model.RuleSpec{coverG}, coremetrics.StatusUnsatisfiable, true},
		{"invalid rule", input([]string{"", ""}), []model.RuleSpec{{ID: "x", Kind: "nope"}}, coremetrics.StatusInvalid, false},
		{"malformed", input([]string{"", "??"}), nil, coremetrics.StatusInvalid, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Solve(context.Background(), Request{Input: tc.in, Rules: tc.rules})
			require.Error(t, err)
			assert.Equal(t, tc.status, StatusOf(err))

			require.Len(t, f.sink.runs, 1)
			assert.Equal(t, tc.status, f.sink.runs[0].Status)
			recs, err := f.svc.History(context.Background(), runlog.Query{Status: tc.status})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.NotEmpty(t, recs[0].Error)
			if tc.checkpoint {
				// the search ran, so the run can be resumed from its last step
				require.NotNil(t, recs[0].Checkpoint)
				assert.Equal(t, relax.PhaseAllEnabled, recs[0].Checkpoint.Phase)
			} else {
				assert.Nil(t, recs[0].Checkpoint)
			}
			msgs := f.notifier.Published()
			require.Len(t, msgs, 1)
			assert.NotEmpty(t, msgs[0].Error)
		})
	}
}

func TestValidate(t *testing.T) {
	quietLogs(t)
	svc := NewWithDeps(config.Default(), Deps{})
	ctx := context.Background()
	v, err := svc.Validate(ctx, input([]string{"", "", ""}, []string{"", "", ""}), []model.RuleSpec{coverG, rest})
	require.NoError(t, err)
	assert.Len(t, v.Compiled, 2)
	assert.Positive(t, v.Constraints())
	assert.Len(t, v.Problem.Units, 2)
	assert.True(t, v.Diagnosis.Feasible())
	assert.Empty(t, v.Diagnosis.Core)

	_, err = svc.Validate(ctx, input([]string{""}), []model.RuleSpec{{ID: "bad", Kind: rules.KindCoverage, Params: map[string]any{"colour": "red"}}})
	assert.True(t, rules.IsInvalid(err), "got %v", err)
}

func TestValidateReportsMinimalConflict(t *testing.T) {
	quietLogs(t)
	svc := NewWithDeps(config.Default(), Deps{})
	atLeastOne := model.RuleSpec{ID: "at_least_one", Kind: rules.KindWorkload, Params: map[string]any{"min": 1}}
	v, err := svc.Validate(context.Background(), input([]string{"", "", ""}), []model.RuleSpec{coverG, atLeastOne, rest})
	require.NoError(t, err)
	d := v.Diagnosis
	assert.False(t, d.Feasible())
	assert.Equal(t, []string{"cover_g", "rest"}, d.CoreRules)
	assert.Empty(t, d.Pinned)
	assert.Greater(t, d.Solves, 1)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, coremetrics.StatusOK, StatusOf(nil))
	assert.Equal(t, coremetrics.StatusTimeout, StatusOf(fmt.Errorf("wrap: %w", &model.SolverTimeoutError{Phase: "DISABLING"})))
	assert.Equal(t, coremetrics.StatusError, StatusOf(errors.New("boom")))
	assert.Equal(t, coremetrics.StatusError, StatusOf(context.Canceled))
}
