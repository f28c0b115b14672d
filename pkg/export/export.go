// Package export writes run reports as JSON and per-resident summaries as
// CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/oncall/core/relax"
)

// RelaxedRule is a unit left disabled by the run.
type RelaxedRule struct {
	Rule     string `json:"rule"`
	Unit     string `json:"unit"`
	Priority int    `json:"priority"`
	// Violated lists the constraints of the unit the schedule breaks.
	Violated []string `json:"violated,omitempty"`
}

// UnfilledCell is a must-work cell the schedule leaves empty.
type UnfilledCell struct {
	Resident string `json:"resident"`
	Day      int    `json:"day"`
	Code     string `json:"code"`
}

// ResidentLoad is the number of shifts a resident works.
type ResidentLoad struct {
	Name   string         `json:"name"`
	Rank   string         `json:"rank,omitempty"`
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// Report describes one run.
type Report struct {
	RunID       string            `json:"run_id"`
	Status      string            `json:"status"`
	Source      string            `json:"source,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	Residents   int               `json:"residents"`
	Days        int               `json:"days"`
	Rules       []string          `json:"rules"`
	Relaxed     []RelaxedRule     `json:"relaxed"`
	Frontier    []string          `json:"frontier,omitempty"`
	Assigned    int               `json:"assigned"`
	Unfilled    []UnfilledCell    `json:"unfilled"`
	Objective   int               `json:"objective"`
	Optimized   bool              `json:"optimized"`
	Workload    []ResidentLoad    `json:"workload"`
	MeanLoad    float64           `json:"mean_load"`
	StdDevLoad  float64           `json:"stddev_load"`
	Steps       []relax.Step      `json:"steps"`
	Checkpoint  *relax.Checkpoint `json:"checkpoint,omitempty"`
	Elapsed     time.Duration     `json:"elapsed"`
	Error       string            `json:"error,omitempty"`
}

// WriteJSON writes the report to w as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// WriteSummaryCSV writes one line per resident with the total and one
// column per shift type, sorted by type.
func WriteSummaryCSV(w io.Writer, r *Report) error {
	typeSet := make(map[string]bool)
	for _, l := range r.Workload {
		for t := range l.ByType {
			typeSet[t] = true
		}
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"resident", "rank", "total"}, types...)); err != nil {
		return err
	}
	for _, l := range r.Workload {
		rec := []string{l.Name, l.Rank, strconv.Itoa(l.Total)}
		for _, t := range types {
			rec = append(rec, strconv.Itoa(l.ByType[t]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
