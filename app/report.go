package app

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/oncall/core/extract"
	coremetrics "github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/rules"
	"github.com/kilianp07/oncall/pkg/export"
)

func buildReport(runID string, req Request, prep *Prepared, res *Result, err error) *export.Report {
	rep := &export.Report{
		RunID:     runID,
		Status:    StatusOf(err),
		Source:    req.Source,
		Residents: len(req.Input.Rows),
		Days:      len(req.Input.Days),
	}
	if err != nil {
		rep.Error = err.Error()
	}
	if prep != nil {
		rep.Days = len(prep.Grid.Days())
		for _, rc := range prep.Compiled {
			rep.Rules = append(rep.Rules, rc.Spec.ID)
		}
	} else {
		for _, r := range req.Rules {
			if r.Active() {
				rep.Rules = append(rep.Rules, r.ID)
			}
		}
	}
	if res == nil {
		return rep
	}

	out := res.Outcome
	units := make(map[string][]rules.Constraint, len(prep.Problem.Units))
	for _, u := range prep.Problem.Units {
		units[u.Name] = u.Constraints
	}
	for _, r := range out.Relaxed {
		rep.Relaxed = append(rep.Relaxed, export.RelaxedRule{
			Rule:     r.Rule,
			Unit:     r.Unit,
			Priority: r.Priority,
			Violated: extract.Violated(units[r.Unit], out.Assignment),
		})
	}
	if len(rep.Relaxed) > 0 {
		rep.Status = coremetrics.StatusRelaxed
	}
	rep.Frontier = out.Frontier
	rep.Steps = out.Steps
	rep.Objective = out.Objective
	rep.Optimized = out.Optimized

	s := res.Schedule
	rep.Assigned = s.Assigned()
	rep.Unfilled = unfilledRequired(s)
	rep.Workload, rep.MeanLoad, rep.StdDevLoad = workload(s)
	return rep
}

// unfilledRequired lists must-work cells left empty. Plain open cells
// without an assignment are normal days off and are not listed.
func unfilledRequired(s *model.Schedule) []export.UnfilledCell {
	var out []export.UnfilledCell
	for r, row := range s.Entries {
		for d, e := range row {
			if e.Kind == model.EntryUnfilled && e.Code != "" {
				out = append(out, export.UnfilledCell{Resident: s.Residents[r].Name, Day: s.Days[d].Number, Code: e.Code})
			}
		}
	}
	return out
}

// workload counts worked shifts per resident and type, fixed ones
// included, with the population mean and standard deviation of the totals.
func workload(s *model.Schedule) ([]export.ResidentLoad, float64, float64) {
	totals := s.Workload()
	loads := make([]export.ResidentLoad, len(s.Residents))
	xs := make([]float64, len(totals))
	for r, res := range s.Residents {
		by := make(map[string]int)
		for _, e := range s.Entries[r] {
			if e.Kind == model.EntryAssigned || e.Kind == model.EntryFixed {
				by[string(e.Shift)]++
			}
		}
		loads[r] = export.ResidentLoad{Name: res.Name, Rank: res.Rank, Total: totals[r], ByType: by}
		xs[r] = float64(totals[r])
	}
	if len(xs) == 0 {
		return loads, 0, 0
	}
	mean, std := stat.PopMeanStdDev(xs, nil)
	return loads, mean, std
}
