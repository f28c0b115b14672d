// Package app wires the scheduler core to its adapters: it builds the grid,
// compiles the rules, runs the relaxation search and reports the outcome to
// metrics, run history and notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/oncall/config"
	"github.com/kilianp07/oncall/core/extract"
	"github.com/kilianp07/oncall/core/grid"
	coremetrics "github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/monitoring"
	"github.com/kilianp07/oncall/core/relax"
	"github.com/kilianp07/oncall/core/rules"
	"github.com/kilianp07/oncall/core/solver"
	"github.com/kilianp07/oncall/infra/logger"
	"github.com/kilianp07/oncall/infra/metrics"
	"github.com/kilianp07/oncall/infra/mqtt"
	"github.com/kilianp07/oncall/infra/runlog"
	"github.com/kilianp07/oncall/internal/eventbus"
	"github.com/kilianp07/oncall/pkg/export"

	// gini backend
	_ "github.com/kilianp07/oncall/core/solver/sat"
)

// StepForwarder streams controller steps to an external system.
type StepForwarder interface {
	ForwardSteps(ctx context.Context, bus *eventbus.TypedBus[relax.StepEvent]) <-chan struct{}
}

// Deps are the adapters a Service reports to. Nil fields disable the
// corresponding output.
type Deps struct {
	Metrics  coremetrics.MetricsSink
	Store    runlog.Store
	Notifier mqtt.Notifier
}

// Service runs scheduling requests.
type Service struct {
	cfg      *config.Config
	metrics  coremetrics.MetricsSink
	store    runlog.Store
	notifier mqtt.Notifier
	log      logger.Logger
	newID    func() string
}

// Request is one scheduling request.
type Request struct {
	Input model.Input
	Rules []model.RuleSpec
	// Source names the grid file for the run history.
	Source string
	// Resume continues the relaxation search from a previous checkpoint.
	Resume *relax.Checkpoint
}

// Result is a successful run.
type Result struct {
	RunID    string
	Schedule *model.Schedule
	Outcome  *relax.Outcome
	Report   *export.Report
}

// New creates a Service from the configuration, opening the run history,
// the metrics sinks and the MQTT notifier it enables.
func New(cfg *config.Config) (*Service, error) {
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	deps := Deps{Metrics: sink, Store: store}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		deps.Notifier = client
	}
	return NewWithDeps(cfg, deps), nil
}

// NewWithDeps creates a Service reporting to the given adapters.
func NewWithDeps(cfg *config.Config, deps Deps) *Service {
	if deps.Metrics == nil {
		deps.Metrics = coremetrics.NopSink{}
	}
	if deps.Store == nil {
		deps.Store = runlog.NopStore{}
	}
	return &Service{
		cfg:      cfg,
		metrics:  deps.Metrics,
		store:    deps.Store,
		notifier: deps.Notifier,
		log:      logger.New("service"),
		newID:    uuid.NewString,
	}
}

// StartMetricsServer serves /metrics until ctx is canceled when a
// Prometheus address is configured.
func (s *Service) StartMetricsServer(ctx context.Context) {
	addr := s.cfg.Metrics.PrometheusAddr
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, addr); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// Prepared is a grid with its compiled rules, ready to be solved.
type Prepared struct {
	Grid     *grid.Grid
	Problem  *relax.Problem
	Compiled []rules.Compiled
	Baseline []rules.Constraint
}

// Constraints counts the configurable constraints.
func (p *Prepared) Constraints() int {
	n := 0
	for _, rc := range p.Compiled {
		n += len(rc.Constraints)
	}
	return n
}

// Prepare builds the grid and compiles the rules against backend. Every
// input and rule error surfaces here, before anything is solved.
func (s *Service) Prepare(in model.Input, specs []model.RuleSpec, backend solver.Allocator) (*Prepared, error) {
	g, err := grid.Build(in, s.cfg.Grid.Codes, backend)
	if err != nil {
		return nil, err
	}
	baseline := rules.Baseline(g, backend)
	compiled, err := rules.CompileAll(specs, g, backend)
	if err != nil {
		return nil, err
	}
	p, err := relax.NewProblem(baseline, compiled, s.cfg.Relaxation)
	if err != nil {
		return nil, err
	}
	p.Objective = g.Vars()
	return &Prepared{Grid: g, Problem: p, Compiled: compiled, Baseline: baseline}, nil
}

// Validation is a compiled rule set and its feasibility check.
type Validation struct {
	*Prepared
	Diagnosis *relax.Diagnosis
}

// Validate compiles a grid and rule set, then solves once with every rule
// enabled. An infeasible rule set is reported with a minimal set of
// conflicting rules; nothing is relaxed.
func (s *Service) Validate(ctx context.Context, in model.Input, specs []model.RuleSpec) (*Validation, error) {
	backend, err := solver.NewBackend(s.cfg.Solver)
	if err != nil {
		return nil, fmt.Errorf("solver backend: %w", err)
	}
	defer func() { _ = backend.Close() }()
	prep, err := s.Prepare(in, specs, backend)
	if err != nil {
		return nil, err
	}
	d, err := relax.NewController(backend, s.cfg.Relaxation, logger.New("relax"), nil).Diagnose(ctx, prep.Problem)
	if err != nil {
		return nil, err
	}
	return &Validation{Prepared: prep, Diagnosis: d}, nil
}

// Solve runs one scheduling request. Failed runs are still recorded in
// metrics, run history and notifications before the error is returned.
func (s *Service) Solve(ctx context.Context, req Request) (*Result, error) {
	runID := s.newID()
	start := time.Now()
	res, prep, cp, err := s.solve(ctx, runID, req)
	rep := buildReport(runID, req, prep, res, err)
	rep.Checkpoint = cp
	rep.Elapsed = time.Since(start)
	rep.GeneratedAt = start.UTC()
	s.publish(ctx, rep, prep, res)
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"run_id": runID, "status": rep.Status})
		s.log.Errorf("run %s failed: %v", runID, err)
		return nil, err
	}
	res.Report = rep
	s.log.Infof("run %s %s: %d assigned, %d rules relaxed in %s", runID, rep.Status, rep.Assigned, len(rep.Relaxed), rep.Elapsed)
	return res, nil
}

// solve returns the run's last checkpoint even when the search fails, so
// an interrupted run can be resumed.
func (s *Service) solve(ctx context.Context, runID string, req Request) (*Result, *Prepared, *relax.Checkpoint, error) {
	backend, err := solver.NewBackend(s.cfg.Solver)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("solver backend: %w", err)
	}
	defer func() { _ = backend.Close() }()

	prep, err := s.Prepare(req.Input, req.Rules, backend)
	if err != nil {
		return nil, nil, nil, err
	}

	bus := eventbus.NewTyped[relax.StepEvent]()
	waits := []<-chan struct{}{metrics.StartStepCollector(ctx, bus, s.metrics)}
	if fw, ok := s.notifier.(StepForwarder); ok {
		waits = append(waits, fw.ForwardSteps(ctx, bus))
	}
	ctrl := relax.NewController(backend, s.cfg.Relaxation, logger.New("relax"), bus)
	ctrl.SetRunID(runID)
	var out *relax.Outcome
	if req.Resume != nil {
		out, err = ctrl.Resume(ctx, prep.Problem, *req.Resume)
	} else {
		out, err = ctrl.Run(ctx, prep.Problem)
	}
	bus.Close()
	for _, w := range waits {
		<-w
	}
	if err != nil {
		var cp *relax.Checkpoint
		if last, ok := ctrl.LastCheckpoint(); ok {
			cp = &last
		}
		return nil, prep, cp, err
	}
	cp := out.Checkpoint
	sched, err := extract.Schedule(prep.Grid, out.Assignment)
	if err != nil {
		return nil, prep, &cp, err
	}
	return &Result{RunID: runID, Schedule: sched, Outcome: out}, prep, &cp, nil
}

// publish reports the run to every configured output. Output failures are
// logged and never fail the run.
func (s *Service) publish(ctx context.Context, rep *export.Report, prep *Prepared, res *Result) {
	ev := coremetrics.RunEvent{
		RunID:     rep.RunID,
		Status:    rep.Status,
		Residents: rep.Residents,
		Days:      rep.Days,
		Rules:     len(rep.Rules),
		Relaxed:   len(rep.Relaxed),
		Assigned:  rep.Assigned,
		Steps:     len(rep.Steps),
		Elapsed:   rep.Elapsed,
		Time:      rep.GeneratedAt,
	}
	if prep != nil {
		ev.Constraints = prep.Constraints()
	}
	if res != nil {
		ev.Unfilled = res.Schedule.Unfilled()
	}
	if err := s.metrics.RecordRun(ev); err != nil {
		s.log.Warnf("record run: %v", err)
	}
	if rr, ok := s.metrics.(coremetrics.RelaxationRecorder); ok {
		for _, r := range rep.Relaxed {
			rev := coremetrics.RelaxationEvent{
				RunID: rep.RunID, Rule: r.Rule, Unit: r.Unit, Priority: r.Priority,
				Violated: len(r.Violated), Time: rep.GeneratedAt,
			}
			if err := rr.RecordRelaxation(rev); err != nil {
				s.log.Warnf("record relaxation: %v", err)
			}
		}
	}

	rec := runlog.RunRecord{
		RunID:      rep.RunID,
		Timestamp:  rep.GeneratedAt,
		Status:     rep.Status,
		Source:     rep.Source,
		Residents:  rep.Residents,
		Days:       rep.Days,
		Rules:      rep.Rules,
		Frontier:   rep.Frontier,
		Assigned:   rep.Assigned,
		Unfilled:   ev.Unfilled,
		Steps:      len(rep.Steps),
		ElapsedMS:  rep.Elapsed.Milliseconds(),
		Error:      rep.Error,
		Checkpoint: rep.Checkpoint,
	}
	for _, r := range rep.Relaxed {
		rec.Relaxed = appendUnique(rec.Relaxed, r.Rule)
	}
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Warnf("run log: %v", err)
	}

	if s.notifier != nil {
		msg := mqtt.RunMessage{
			RunID: rep.RunID, Status: rep.Status, Relaxed: rec.Relaxed,
			Assigned: rep.Assigned, Unfilled: ev.Unfilled, Error: rep.Error, Timestamp: rep.GeneratedAt,
		}
		if err := s.notifier.PublishRun(ctx, msg); err != nil {
			s.log.Warnf("notify: %v", err)
		}
	}
}

// History queries the run history.
func (s *Service) History(ctx context.Context, q runlog.Query) ([]runlog.RunRecord, error) {
	return s.store.Query(ctx, q)
}

// Close releases the run history and the notifier.
func (s *Service) Close() error {
	if s.notifier != nil {
		s.notifier.Close()
	}
	if c, ok := s.metrics.(interface{ Close() }); ok {
		c.Close()
	}
	return s.store.Close()
}

// StatusOf classifies a run error for metrics and history.
func StatusOf(err error) string {
	var (
		malformed *model.MalformedInputError
		invalid   *model.InvalidRuleError
		unsat     *model.ModelUnsatisfiableError
		timeout   *model.SolverTimeoutError
	)
	switch {
	case err == nil:
		return coremetrics.StatusOK
	case errors.As(err, &malformed), errors.As(err, &invalid):
		return coremetrics.StatusInvalid
	case errors.As(err, &unsat):
		return coremetrics.StatusUnsatisfiable
	case errors.As(err, &timeout):
		return coremetrics.StatusTimeout
	default:
		return coremetrics.StatusError
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
