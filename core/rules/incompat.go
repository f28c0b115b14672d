package rules

import (
	"fmt"
	"strings"

	"github.com/kilianp07/oncall/core/grid"
	"github.com/kilianp07/oncall/core/solver"
)

// fixedIncompatibility forbids the given shift types around each cell
// holding one of FixedCodes: Before and After days on either side, and the
// whole Monday to Sunday week when SameWeek is set.
type fixedIncompatibility struct {
	Targets    `json:",squash"`
	FixedCodes []string `json:"fixed_codes"`
	ShiftTypes []string `json:"shift_types"`
	Before     int      `json:"before"`
	After      int      `json:"after"`
	SameWeek   bool     `json:"same_week"`
}

func (p *fixedIncompatibility) Compile(g *grid.Grid) ([]Draft, error) {
	if len(p.FixedCodes) == 0 {
		return nil, fmt.Errorf("fixed_codes is required")
	}
	anchors := make(map[string]bool, len(p.FixedCodes))
	for _, c := range p.FixedCodes {
		c = strings.TrimSpace(c)
		if c == "" || !g.Codes().Known(c) {
			return nil, fmt.Errorf("undefined fixed code %q", c)
		}
		anchors[c] = true
	}
	if p.Before < 0 || p.After < 0 {
		return nil, fmt.Errorf("before and after must not be negative")
	}
	if p.Before == 0 && p.After == 0 && !p.SameWeek {
		return nil, fmt.Errorf("one of before, after or same_week is required")
	}
	types, err := shiftTypes(g, p.ShiftTypes, true)
	if err != nil {
		return nil, err
	}
	targets, err := p.residents(g, false)
	if err != nil {
		return nil, err
	}
	days := g.Days()
	var out []Draft
	for _, r := range targets {
		for d := range days {
			cell := g.Cell(r, d)
			if cell.Open() || !anchors[cell.Code] {
				continue
			}
			lo, hi := p.window(g, d)
			var s sum
			for w := lo; w <= hi; w++ {
				if w != d {
					s.add(g, r, w, types, true)
				}
			}
			out = append(out, Draft{
				Name: fmt.Sprintf("no %s near %s %s d%d", typeList(types), cell.Code, g.Residents()[r].Name, days[d].Number),
				Expr: solver.AtMost(s.vars, s.offset, 0),
			})
		}
	}
	return out, nil
}

func (p *fixedIncompatibility) window(g *grid.Grid, d int) (int, int) {
	n := len(g.Days())
	lo, hi := d-p.Before, d+p.After
	if p.SameWeek {
		sinceMonday := (int(g.Days()[d].Weekday) + 6) % 7
		lo = min(lo, d-sinceMonday)
		hi = max(hi, d+6-sinceMonday)
	}
	return max(lo, 0), min(hi, n-1)
}
