package rules

import (
	"fmt"
	"strings"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/solver"
)

// Targets narrows a rule to a subset of residents. At most two filters may
// be combined, and only as include_ranks with exclude_names or
// exclude_ranks with include_names.
type Targets struct {
	IncludeRanks   []string `json:"include_ranks"`
	ExcludeRanks   []string `json:"exclude_ranks"`
	IncludeNames   []string `json:"include_names"`
	ExcludeNames   []string `json:"exclude_names"`
	IncludeExcused *bool    `json:"include_excused"`
}

func (t Targets) validate() error {
	set := map[string]bool{
		"include_ranks": len(t.IncludeRanks) > 0,
		"exclude_ranks": len(t.ExcludeRanks) > 0,
		"include_names": len(t.IncludeNames) > 0,
		"exclude_names": len(t.ExcludeNames) > 0,
	}
	var used []string
	for _, k := range []string{"include_ranks", "exclude_ranks", "include_names", "exclude_names"} {
		if set[k] {
			used = append(used, k)
		}
	}
	switch len(used) {
	case 0, 1:
		return nil
	case 2:
		if (set["include_ranks"] && set["exclude_names"]) || (set["exclude_ranks"] && set["include_names"]) {
			return nil
		}
	}
	return fmt.Errorf("target filters %s cannot be combined", strings.Join(used, " and "))
}

// residents resolves the filters. Residents holding an excused code are
// left out when skipExcused applies and include_excused is not set.
func (t Targets) residents(g *grid.Grid, skipExcused bool) ([]int, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	known := make(map[string]bool)
	for _, r := range g.Residents() {
		known[r.Name] = true
	}
	for _, n := range append(append([]string(nil), t.IncludeNames...), t.ExcludeNames...) {
		if !known[n] {
			return nil, fmt.Errorf("unknown resident %q", n)
		}
	}
	if t.IncludeExcused != nil {
		skipExcused = !*t.IncludeExcused
	}
	var out []int
	for i, r := range g.Residents() {
		if !t.match(r) {
			continue
		}
		if skipExcused && g.Excused(i) {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (t Targets) match(r model.Resident) bool {
	if len(t.IncludeRanks) > 0 && !in(t.IncludeRanks, r.Rank) {
		return false
	}
	if len(t.ExcludeRanks) > 0 && in(t.ExcludeRanks, r.Rank) {
		return false
	}
	if len(t.IncludeNames) > 0 && !in(t.IncludeNames, r.Name) {
		return false
	}
	if len(t.ExcludeNames) > 0 && in(t.ExcludeNames, r.Name) {
		return false
	}
	return true
}

func in(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Holiday handling of a DaySelector.
const (
	HolidaysIgnore  = ""
	HolidaysOnly    = "only"
	HolidaysExclude = "exclude"
	HolidaysAlso    = "also"
)

// DaySelector picks the days a rule applies to. Days are calendar numbers;
// weekdays accept grid letters or English names. Holidays "also" adds
// holidays to the weekday selection.
type DaySelector struct {
	Days     []int    `json:"days"`
	Weekdays []string `json:"weekdays"`
	Holidays string   `json:"holidays"`
}

func (s DaySelector) empty() bool {
	return len(s.Days) == 0 && len(s.Weekdays) == 0 && s.Holidays == HolidaysIgnore
}

func (s DaySelector) resolve(g *grid.Grid) ([]int, error) {
	numbers := make(map[int]bool, len(s.Days))
	for _, n := range s.Days {
		if _, ok := g.DayByNumber(n); !ok {
			return nil, fmt.Errorf("day %d out of range", n)
		}
		numbers[n] = true
	}
	weekdays := make(map[int]bool, len(s.Weekdays))
	for _, w := range s.Weekdays {
		wd, err := model.ParseWeekday(w)
		if err != nil {
			return nil, err
		}
		weekdays[int(wd)] = true
	}
	switch s.Holidays {
	case HolidaysIgnore, HolidaysOnly, HolidaysExclude, HolidaysAlso:
	default:
		return nil, fmt.Errorf("holidays must be one of only, exclude or also, got %q", s.Holidays)
	}
	var out []int
	for _, d := range g.Days() {
		if len(numbers) > 0 && !numbers[d.Number] {
			continue
		}
		wdOK := len(weekdays) == 0 || weekdays[int(d.Weekday)]
		ok := wdOK
		switch s.Holidays {
		case HolidaysOnly:
			ok = wdOK && d.Holiday
		case HolidaysExclude:
			ok = wdOK && !d.Holiday
		case HolidaysAlso:
			ok = (len(weekdays) > 0 && wdOK) || d.Holiday
		}
		if ok {
			out = append(out, d.Index)
		}
	}
	return out, nil
}

// shiftTypes validates names against the grid. An empty list means every
// assignable type when all is set.
func shiftTypes(g *grid.Grid, names []string, all bool) ([]model.ShiftType, error) {
	if len(names) == 0 {
		if all {
			return g.Types(), nil
		}
		return nil, fmt.Errorf("shift_types is required")
	}
	out := make([]model.ShiftType, 0, len(names))
	for _, n := range names {
		t := model.ShiftType(strings.TrimSpace(n))
		if !g.HasType(t) {
			return nil, fmt.Errorf("undefined shift type %q", n)
		}
		out = append(out, t)
	}
	return out, nil
}

// groups splits types into one group per type when perType is set.
func groups(types []model.ShiftType, perType bool) [][]model.ShiftType {
	if !perType {
		return [][]model.ShiftType{types}
	}
	out := make([][]model.ShiftType, len(types))
	for i, t := range types {
		out[i] = []model.ShiftType{t}
	}
	return out
}

// sum collects the terms of cells over types. Fixed cells add to the
// constant only when countFixed is set.
type sum struct {
	vars   []solver.Var
	offset int
}

func (s *sum) add(g *grid.Grid, r, d int, types []model.ShiftType, countFixed bool) {
	vs, k := g.Term(r, d, types)
	s.vars = append(s.vars, vs...)
	if countFixed {
		s.offset += k
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func typeList(types []model.ShiftType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, "+")
}
