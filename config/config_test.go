package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/relax"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `log:
  level: debug
grid:
  codes:
    assignable: [G, T]
    unavailable: [V]
    excused: [E]
    must_work: [P]
solver:
  type: gini
relaxation:
  step_timeout_ms: 2000
  granularity: constraint
  order: [coverage_g, rest]
runlog:
  backend: sqlite
  path: runs.db
metrics:
  sinks:
    - type: "nop"
  prometheus_addr: ":9091"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  qos:
    run: 1
sentry:
  dsn: "https://key@example.invalid/1"
  environment: test
sheet:
  sheet: Guardias
  weekday_row: 2
  rank_col: 1
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"log.level", cfg.Log.Level, "debug"},
		{"log.format", cfg.Log.Format, "json"},
		{"codes", cfg.Grid.Codes.Assignable, []model.ShiftType{"G", "T"}},
		{"solver", cfg.Solver.Type, "gini"},
		{"step_timeout", cfg.Relaxation.StepTimeoutMS, 2000},
		{"final_timeout", cfg.Relaxation.FinalTimeoutMS, 30000},
		{"granularity", cfg.Relaxation.Granularity, relax.GranularityConstraint},
		{"order", cfg.Relaxation.Order, []string{"coverage_g", "rest"}},
		{"runlog", cfg.RunLog.Backend, "sqlite"},
		{"runlog.path", cfg.RunLog.Path, "runs.db"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9091"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.qos", cfg.MQTT.QoS["run"], byte(1)},
		{"mqtt.prefix", cfg.MQTT.TopicPrefix, "oncall"},
		{"sentry.env", cfg.Sentry.Environment, "test"},
		{"sheet.name", cfg.Sheet.Sheet, "Guardias"},
		{"sheet.weekday_row", cfg.Sheet.WeekdayRow, 2},
		{"sheet.first_row", cfg.Sheet.FirstRow, 3},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, model.DefaultCodeTable(), cfg.Grid.Codes)
	assert.Equal(t, "jsonl", cfg.RunLog.Backend)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"relaxation":{"step_timeout_ms":2000}}`), 0o644))
	t.Setenv("ONCALL_RELAXATION__STEP_TIMEOUT_MS", "500")
	t.Setenv("ONCALL_RUNLOG__BACKEND", "none")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Relaxation.StepTimeoutMS)
	assert.Equal(t, "none", cfg.RunLog.Backend)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "config.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("relaxation:\n  granularity: week\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	mq := filepath.Join(dir, "mqtt.yaml")
	require.NoError(t, os.WriteFile(mq, []byte("mqtt:\n  enabled: true\n"), 0o644))
	_, err = Load(mq)
	assert.Error(t, err, "broker required when enabled")

	codes := filepath.Join(dir, "codes.yaml")
	require.NoError(t, os.WriteFile(codes, []byte("grid:\n  codes:\n    assignable: [G]\n    unavailable: [G]\n"), 0o644))
	_, err = Load(codes)
	assert.Error(t, err, "code listed twice")
}
