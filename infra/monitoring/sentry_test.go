package monitoring

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/model"
	coremon "github.com/kilianp07/oncall/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(coremon.Config{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func captured(t *testing.T) (*sentryMonitor, *[]*sentry.Event) {
	t.Helper()
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://key@example.com/1",
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			events = append(events, e)
			return nil
		},
	})
	require.NoError(t, err)
	return &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}, &events
}

func TestSentryMonitorTags(t *testing.T) {
	m, events := captured(t)
	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("publish failed"), map[string]string{"run_id": "r1"})
	m.CaptureException(fmt.Errorf("solve: %w", &model.ModelUnsatisfiableError{Failed: []string{"coverage G d1"}}), nil)
	m.Flush(time.Second)

	require.Len(t, *events, 2)
	assert.Equal(t, "r1", (*events)[0].Tags["run_id"])
	assert.Equal(t, "internal", (*events)[0].Tags["error_type"])
	assert.Equal(t, "model_unsatisfiable", (*events)[1].Tags["error_type"])
}

func TestErrorType(t *testing.T) {
	cases := map[string]error{
		"malformed_input":       &model.MalformedInputError{Reason: "x"},
		"invalid_rule":          &model.InvalidRuleError{Rule: "r"},
		"solver_timeout":        &model.SolverTimeoutError{Phase: "DISABLING"},
		"inconsistent_solution": &model.InconsistentSolutionError{Resident: "a"},
		"internal":              errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, errorType(err))
	}
}
