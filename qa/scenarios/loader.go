// Package scenarios runs end-to-end scheduling scenarios described in YAML.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/relax"
)

type ResidentDef struct {
	Name  string   `yaml:"name"`
	Rank  string   `yaml:"rank"`
	Codes []string `yaml:"codes"`
}

type Expected struct {
	// Status is the run status: ok, relaxed, unsatisfiable, timeout or invalid.
	Status string `yaml:"status"`
	// Relaxed lists the rule ids left disabled, in any order.
	Relaxed []string `yaml:"relaxed"`
	// FailedContains must appear in every pinned constraint name of an
	// unsatisfiable run.
	FailedContains string `yaml:"failed_contains,omitempty"`
	// MinPerDay requires at least n cells of a shift type on every day.
	MinPerDay map[string]int `yaml:"min_per_day,omitempty"`
	// Assigned is the exact number of solver assignments when set.
	Assigned *int `yaml:"assigned,omitempty"`
}

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Start is the date of the first day (2006-01-02); empty starts on a
	// Monday with calendar numbers from 1.
	Start      string           `yaml:"start,omitempty"`
	Holidays   []int            `yaml:"holidays,omitempty"`
	Residents  []ResidentDef    `yaml:"residents"`
	Rules      []model.RuleSpec `yaml:"rules"`
	Relaxation relax.Config     `yaml:"relaxation,omitempty"`
	Expected   Expected         `yaml:"expected"`
}

// Input builds the grid input of the scenario.
func (sc *Scenario) Input() (model.Input, error) {
	var in model.Input
	for i, r := range sc.Residents {
		in.Rows = append(in.Rows, model.Row{
			Resident: model.Resident{Index: i, Name: r.Name, Rank: r.Rank},
			Codes:    r.Codes,
		})
	}
	if len(in.Rows) == 0 {
		return in, fmt.Errorf("scenario %s has no residents", sc.Name)
	}
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if sc.Start != "" {
		t, err := time.Parse(time.DateOnly, sc.Start)
		if err != nil {
			return in, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		start = t
	}
	in.Days = model.NewDays(start, len(in.Rows[0].Codes), sc.Holidays...)
	return in, nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	return &sc, nil
}
