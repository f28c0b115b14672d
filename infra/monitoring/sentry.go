// Package monitoring reports errors to Sentry.
package monitoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/oncall/core/model"
	coremon "github.com/kilianp07/oncall/core/monitoring"
)

// NewSentryMonitor initializes Sentry and returns a Monitor reporting to the
// current hub. An empty DSN yields a NopMonitor.
func NewSentryMonitor(cfg coremon.Config) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &sentryMonitor{hub: sentry.CurrentHub()}, nil
}

type sentryMonitor struct {
	hub *sentry.Hub
}

// CaptureException reports err with its scheduler error class as the
// error_type tag, so that unsatisfiable inputs and solver failures group
// separately.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", errorType(err))
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) RecoverPanic(v any) { s.hub.Recover(v) }

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }

func errorType(err error) string {
	var (
		malformed    *model.MalformedInputError
		invalid      *model.InvalidRuleError
		unsat        *model.ModelUnsatisfiableError
		timeout      *model.SolverTimeoutError
		inconsistent *model.InconsistentSolutionError
	)
	switch {
	case errors.As(err, &malformed):
		return "malformed_input"
	case errors.As(err, &invalid):
		return "invalid_rule"
	case errors.As(err, &unsat):
		return "model_unsatisfiable"
	case errors.As(err, &timeout):
		return "solver_timeout"
	case errors.As(err, &inconsistent):
		return "inconsistent_solution"
	default:
		return "internal"
	}
}
