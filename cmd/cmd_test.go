package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/infra/logger"
	"github.com/kilianp07/oncall/infra/sheet"
)

const grid = `,,1,2,3
,,L,M,X
R1,Ana,,,V
R2,Ben,,,
`

const ruleYAML = `rules:
  - id: cover_g
    kind: coverage
    params:
      shift_types: [G]
      min: 1
      max: 1
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	cfgPath = ""
	solveOpts = struct{ grid, rules, out, report, summary, resume string }{}
	historyOpts = struct {
		since  time.Duration
		status string
		rule   string
	}{}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeInputs(t *testing.T) (dir, cfgFile string) {
	t.Helper()
	dir = t.TempDir()
	cfgFile = filepath.Join(dir, "config.yaml")
	conf := "log:\n  level: error\nrunlog:\n  backend: jsonl\n  path: " + filepath.Join(dir, "runs.jsonl") +
		"\nsheet:\n  weekday_row: 2\n  rank_col: 1\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(conf), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "month.csv"), []byte(grid), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte(ruleYAML), 0o644))
	return dir, cfgFile
}

func TestSolveAndHistory(t *testing.T) {
	dir, cfgFile := writeInputs(t)
	report := filepath.Join(dir, "report.json")
	summary := filepath.Join(dir, "summary.csv")

	out, err := execute(t, "solve", "-c", cfgFile,
		"--grid", filepath.Join(dir, "month.csv"),
		"--rules", filepath.Join(dir, "rules.yaml"),
		"--report", report, "--summary", summary)
	require.NoError(t, err, out)
	assert.Contains(t, out, ": ok,")

	doc, err := sheet.Load(filepath.Join(dir, "month_solved.csv"), sheet.Layout{WeekdayRow: 2, RankCol: 1})
	require.NoError(t, err)
	assert.Equal(t, "V", doc.Input.Rows[0].Codes[2])
	for d := 0; d < 3; d++ {
		g := 0
		for _, row := range doc.Input.Rows {
			if row.Codes[d] == "G" {
				g++
			}
		}
		if g != 1 {
			t.Fatalf("day %d has %d general shifts", d+1, g)
		}
	}
	_, err = os.Stat(report)
	require.NoError(t, err)
	data, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "resident,rank,total"))

	out, err = execute(t, "history", "-c", cfgFile, "--status", "ok")
	require.NoError(t, err)
	assert.Contains(t, out, "month.csv")
}

func TestValidateCommand(t *testing.T) {
	dir, cfgFile := writeInputs(t)
	out, err := execute(t, "validate", "-c", cfgFile,
		"--grid", filepath.Join(dir, "month.csv"),
		"--rules", filepath.Join(dir, "rules.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "2 residents, 3 days")
	assert.Contains(t, out, "cover_g")
	assert.Contains(t, out, "feasible with every rule enabled")

	// Ana is away on day 3, so two G shifts cannot be staffed there
	tight := strings.Replace(ruleYAML, "min: 1\n      max: 1", "min: 2", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tight.yaml"), []byte(tight), 0o644))
	out, err = execute(t, "validate", "-c", cfgFile,
		"--grid", filepath.Join(dir, "month.csv"),
		"--rules", filepath.Join(dir, "tight.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "infeasible with every rule enabled")
	assert.Contains(t, out, "fixed: coverage G d3")
}

func TestRulesCommand(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "coverage")
	assert.Contains(t, out, "gini")
}
