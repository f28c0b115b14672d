package rules

import (
	"fmt"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/solver"
)

// Linked day modes.
const (
	// LinkSameCount works the linked day exactly when the anchor is worked.
	LinkSameCount = "same_count"
	// LinkDifferentType forbids repeating the anchor shift type.
	LinkDifferentType = "different_type"
	// LinkExclusive allows at most one of the two days.
	LinkExclusive = "exclusive"
)

// linkedDays ties every anchor weekday to the day Offset days later, per
// targeted resident.
type linkedDays struct {
	Targets     `json:",squash"`
	Weekday     string   `json:"weekday"`
	Offset      int      `json:"offset"`
	Mode        string   `json:"mode"`
	ShiftTypes  []string `json:"shift_types"`
	LinkedTypes []string `json:"linked_types"`
	CountFixed  *bool    `json:"count_fixed"`
}

func (p *linkedDays) Compile(g *grid.Grid) ([]Draft, error) {
	anchor, err := model.ParseWeekday(p.Weekday)
	if err != nil {
		return nil, err
	}
	if p.Offset <= 0 {
		return nil, fmt.Errorf("offset must be positive, got %d", p.Offset)
	}
	switch p.Mode {
	case LinkSameCount, LinkDifferentType, LinkExclusive:
	default:
		return nil, fmt.Errorf("unknown mode %q", p.Mode)
	}
	from, err := shiftTypes(g, p.ShiftTypes, true)
	if err != nil {
		return nil, err
	}
	to := from
	if len(p.LinkedTypes) > 0 {
		if to, err = shiftTypes(g, p.LinkedTypes, false); err != nil {
			return nil, err
		}
	}
	targets, err := p.residents(g, true)
	if err != nil {
		return nil, err
	}
	countFixed := boolOr(p.CountFixed, true)
	days := g.Days()
	var out []Draft
	for _, r := range targets {
		name := g.Residents()[r].Name
		for d := range days {
			l := d + p.Offset
			if days[d].Weekday != anchor || l >= len(days) {
				continue
			}
			label := fmt.Sprintf("%s %s d%d-d%d", p.Mode, name, days[d].Number, days[l].Number)
			var a, b sum
			a.add(g, r, d, from, countFixed)
			b.add(g, r, l, to, countFixed)
			switch p.Mode {
			case LinkSameCount:
				out = append(out, Draft{Name: label, Expr: solver.SameCount(a.vars, a.offset, b.vars, b.offset)})
			case LinkExclusive:
				out = append(out, Draft{Name: label, Expr: solver.AtMost(append(a.vars, b.vars...), a.offset+b.offset, 1)})
			case LinkDifferentType:
				out = append(out, p.differentType(g, r, d, l, from, to, label)...)
			}
		}
	}
	return out, nil
}

func (p *linkedDays) differentType(g *grid.Grid, r, d, l int, from, to []model.ShiftType, label string) []Draft {
	var out []Draft
	for _, t := range from {
		if !containsType(to, t) {
			continue
		}
		var next sum
		next.add(g, r, l, []model.ShiftType{t}, true)
		e := solver.AtMost(next.vars, next.offset, 0)
		if v, ok := g.VariableFor(r, d, t); ok {
			e = e.When(v)
		} else if c := g.Cell(r, d); c.Kind != model.CellFixed || c.Shift != t {
			continue
		}
		out = append(out, Draft{Name: fmt.Sprintf("%s %s", label, t), Expr: e})
	}
	return out
}

func containsType(list []model.ShiftType, t model.ShiftType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
