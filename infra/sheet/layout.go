// Package sheet reads the monthly resident grid from CSV or XLSX files and
// writes solved schedules back, filling only the open cells.
package sheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/oncall/core/model"
)

// Layout locates the grid inside a sheet. Rows and columns are 1-based.
type Layout struct {
	// Sheet names the XLSX sheet; empty selects the first one.
	Sheet string `json:"sheet"`
	// DayRow holds the calendar day numbers.
	DayRow int `json:"day_row"`
	// WeekdayRow holds weekday letters; 0 derives weekdays from FirstWeekday.
	WeekdayRow int `json:"weekday_row"`
	// HolidayRow marks holidays with any non-empty cell; 0 disables it.
	HolidayRow int `json:"holiday_row"`
	// FirstRow is the first resident row.
	FirstRow int `json:"first_row"`
	RankCol  int `json:"rank_col"`
	NameCol  int `json:"name_col"`
	// FirstCol is the column of the first day.
	FirstCol int `json:"first_col"`
	// Residents and Days bound the grid; 0 reads until the first blank
	// name or day number.
	Residents int `json:"residents"`
	Days      int `json:"days"`
	// FirstWeekday is the weekday of the first day when no weekday row is
	// present.
	FirstWeekday string `json:"first_weekday"`
	// Holidays lists extra holiday day numbers.
	Holidays []int `json:"holidays"`
}

// SetDefaults applies the layout of the reference template: day numbers on
// row 1, weekday letters on row 2, then one resident per row with rank and
// name in the first two columns.
func (l *Layout) SetDefaults() {
	if l.DayRow == 0 {
		l.DayRow = 1
	}
	if l.FirstRow == 0 {
		l.FirstRow = 3
	}
	if l.NameCol == 0 {
		l.NameCol = 2
	}
	if l.FirstCol == 0 {
		l.FirstCol = 3
	}
	if l.FirstWeekday == "" {
		l.FirstWeekday = "monday"
	}
}

// Validate checks that the regions do not overlap.
func (l Layout) Validate() error {
	if l.DayRow < 1 || l.FirstRow < 1 || l.NameCol < 1 || l.FirstCol < 1 {
		return fmt.Errorf("sheet: rows and columns are 1-based")
	}
	if l.FirstRow <= l.DayRow || (l.WeekdayRow > 0 && l.FirstRow <= l.WeekdayRow) || (l.HolidayRow > 0 && l.FirstRow <= l.HolidayRow) {
		return fmt.Errorf("sheet: header rows must precede first_row %d", l.FirstRow)
	}
	if l.FirstCol <= l.NameCol || (l.RankCol > 0 && l.FirstCol <= l.RankCol) {
		return fmt.Errorf("sheet: resident columns must precede first_col %d", l.FirstCol)
	}
	if l.Residents < 0 || l.Days < 0 {
		return fmt.Errorf("sheet: negative bounds")
	}
	if _, err := model.ParseWeekday(l.FirstWeekday); err != nil {
		return fmt.Errorf("sheet: %w", err)
	}
	return nil
}

// Position is the 1-based (row, column) of a grid cell.
type Position struct {
	Row int
	Col int
}

// Grid is a parsed sheet: the solver input plus where each cell came from.
type Grid struct {
	Input model.Input
	// RowOf and ColOf map resident and day indices to sheet coordinates.
	RowOf []int
	ColOf []int
}

func cell(rows [][]string, r, c int) string {
	if r < 1 || r > len(rows) || c < 1 || c > len(rows[r-1]) {
		return ""
	}
	return strings.TrimSpace(rows[r-1][c-1])
}

// Parse extracts the grid described by l from a rectangular text table.
func Parse(rows [][]string, l Layout) (*Grid, error) {
	l.SetDefaults()
	if err := l.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{}
	first, _ := model.ParseWeekday(l.FirstWeekday)
	holidays := make(map[int]bool, len(l.Holidays))
	for _, h := range l.Holidays {
		holidays[h] = true
	}
	for c := l.FirstCol; ; c++ {
		if l.Days > 0 && c >= l.FirstCol+l.Days {
			break
		}
		raw := cell(rows, l.DayRow, c)
		if raw == "" {
			if l.Days > 0 {
				return nil, &model.MalformedInputError{Reason: fmt.Sprintf("missing day number in column %d", c)}
			}
			break
		}
		n, err := parseDayNumber(raw)
		if err != nil {
			return nil, &model.MalformedInputError{Reason: fmt.Sprintf("column %d: %v", c, err)}
		}
		i := len(g.ColOf)
		wd := time.Weekday((int(first) + i) % 7)
		if l.WeekdayRow > 0 {
			if w := cell(rows, l.WeekdayRow, c); w != "" {
				if wd, err = model.ParseWeekday(w); err != nil {
					return nil, &model.MalformedInputError{Day: n, Reason: err.Error()}
				}
			}
		}
		hol := holidays[n] || (l.HolidayRow > 0 && cell(rows, l.HolidayRow, c) != "")
		g.Input.Days = append(g.Input.Days, model.Day{Index: i, Number: n, Weekday: wd, Holiday: hol})
		g.ColOf = append(g.ColOf, c)
	}
	if len(g.ColOf) == 0 {
		return nil, &model.MalformedInputError{Reason: fmt.Sprintf("no day numbers on row %d", l.DayRow)}
	}
	rank := ""
	for r := l.FirstRow; ; r++ {
		if l.Residents > 0 && r >= l.FirstRow+l.Residents {
			break
		}
		name := cell(rows, r, l.NameCol)
		if name == "" {
			if l.Residents > 0 {
				return nil, &model.MalformedInputError{Reason: fmt.Sprintf("missing resident name on row %d", r)}
			}
			break
		}
		// merged rank cells leave the following rows blank
		if l.RankCol > 0 {
			if v := cell(rows, r, l.RankCol); v != "" {
				rank = v
			}
		}
		codes := make([]string, len(g.ColOf))
		for i, c := range g.ColOf {
			codes[i] = cell(rows, r, c)
		}
		g.Input.Rows = append(g.Input.Rows, model.Row{
			Resident: model.Resident{Index: len(g.RowOf), Name: name, Rank: rank},
			Codes:    codes,
		})
		g.RowOf = append(g.RowOf, r)
	}
	return g, nil
}

// parseDayNumber accepts "7" as well as spreadsheet floats such as "7.0".
func parseDayNumber(s string) (int, error) {
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil || f != float64(int(f)) || f < 1 {
		return 0, fmt.Errorf("invalid day number %q", s)
	}
	return int(f), nil
}

// Fill returns the cells a schedule adds to the sheet: every solver
// assignment, keyed by position. Fixed, status and unfilled cells are
// left out so the source keeps its exact content.
func (g *Grid) Fill(s *model.Schedule) (map[Position]string, error) {
	if len(s.Entries) != len(g.RowOf) {
		return nil, fmt.Errorf("sheet: schedule has %d residents, grid has %d", len(s.Entries), len(g.RowOf))
	}
	out := make(map[Position]string)
	for r, row := range s.Entries {
		if len(row) != len(g.ColOf) {
			return nil, fmt.Errorf("sheet: schedule has %d days, grid has %d", len(row), len(g.ColOf))
		}
		for d, e := range row {
			if e.Kind == model.EntryAssigned {
				out[Position{Row: g.RowOf[r], Col: g.ColOf[d]}] = e.Render()
			}
		}
	}
	return out, nil
}
