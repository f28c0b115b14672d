package model

// EntryKind tells how a schedule entry was obtained.
type EntryKind uint8

const (
	EntryUnfilled EntryKind = iota
	EntryAssigned
	EntryFixed
	EntryStatus
)

// Entry is the final content of one (resident, day) slot.
type Entry struct {
	Kind  EntryKind
	Shift ShiftType
	// Code is the raw input code for fixed, status and unfilled must-work
	// cells.
	Code string
}

// Render returns the text written back to the grid.
func (e Entry) Render() string {
	if e.Kind == EntryAssigned {
		return string(e.Shift)
	}
	return e.Code
}

// Schedule is the resident by day result of a run.
type Schedule struct {
	Days      []Day
	Residents []Resident
	Entries   [][]Entry
}

// At returns the entry of resident r on day d.
func (s *Schedule) At(r, d int) Entry { return s.Entries[r][d] }

// Matrix renders every entry as text, row per resident.
func (s *Schedule) Matrix() [][]string {
	out := make([][]string, len(s.Entries))
	for r, row := range s.Entries {
		out[r] = make([]string, len(row))
		for d, e := range row {
			out[r][d] = e.Render()
		}
	}
	return out
}

// Assigned counts the shifts newly assigned by the solver.
func (s *Schedule) Assigned() int {
	n := 0
	for _, row := range s.Entries {
		for _, e := range row {
			if e.Kind == EntryAssigned {
				n++
			}
		}
	}
	return n
}

// Unfilled counts open cells left empty.
func (s *Schedule) Unfilled() int {
	n := 0
	for _, row := range s.Entries {
		for _, e := range row {
			if e.Kind == EntryUnfilled {
				n++
			}
		}
	}
	return n
}

// Workload returns, per resident, the number of shifts worked including
// fixed pre-assignments.
func (s *Schedule) Workload() []int {
	out := make([]int, len(s.Entries))
	for r, row := range s.Entries {
		for _, e := range row {
			if e.Kind == EntryAssigned || e.Kind == EntryFixed {
				out[r]++
			}
		}
	}
	return out
}
