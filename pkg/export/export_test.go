package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/relax"
)

func sample() *Report {
	return &Report{
		RunID:   "run-1",
		Status:  "relaxed",
		Rules:   []string{"coverage_g", "rest"},
		Relaxed: []RelaxedRule{{Rule: "rest", Unit: "rest", Priority: 3, Violated: []string{"rest Ana d1"}}},
		Workload: []ResidentLoad{
			{Name: "Ana", Rank: "R1", Total: 3, ByType: map[string]int{"G": 2, "T": 1}},
			{Name: "Ben", Rank: "R2", Total: 1, ByType: map[string]int{"R": 1}},
		},
		Steps:      []relax.Step{{Phase: relax.PhaseAllEnabled, Action: relax.ActionSolve, Status: "infeasible"}},
		Checkpoint: &relax.Checkpoint{Phase: relax.PhaseDone, Disabled: []string{"rest"}},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))
	assert.Contains(t, buf.String(), `"run_id": "run-1"`)

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, "rest", back.Relaxed[0].Rule)
	assert.Equal(t, []string{"rest Ana d1"}, back.Relaxed[0].Violated)
	require.NotNil(t, back.Checkpoint)
	assert.Equal(t, relax.PhaseDone, back.Checkpoint.Phase)
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"resident", "rank", "total", "G", "R", "T"}, recs[0])
	assert.Equal(t, []string{"Ana", "R1", "3", "2", "0", "1"}, recs[1])
	assert.Equal(t, []string{"Ben", "R2", "1", "0", "1", "0"}, recs[2])
}
