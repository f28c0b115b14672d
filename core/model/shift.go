package model

import (
	"fmt"
	"strings"
)

// ShiftType is an assignable duty code.
type ShiftType string

const (
	General ShiftType = "G"
	OnCall  ShiftType = "T"
	Reserve ShiftType = "R"
	Morning ShiftType = "M"
)

// StatusClass classifies non-assignable codes found in the input grid.
type StatusClass uint8

const (
	StatusNone StatusClass = iota
	// StatusUnavailable marks a day the resident cannot work.
	StatusUnavailable
	// StatusExcused marks an external rotation; the resident is out of the
	// service for that day.
	StatusExcused
	// StatusOther marks fixed duties outside the assignable set, such as
	// emergency shifts.
	StatusOther
)

func (s StatusClass) String() string {
	switch s {
	case StatusUnavailable:
		return "unavailable"
	case StatusExcused:
		return "excused"
	case StatusOther:
		return "other"
	default:
		return "none"
	}
}

// CodeTable lists the codes recognised in an input grid.
type CodeTable struct {
	Assignable  []ShiftType `json:"assignable" yaml:"assignable"`
	Unavailable []string    `json:"unavailable" yaml:"unavailable"`
	Excused     []string    `json:"excused" yaml:"excused"`
	Other       []string    `json:"other" yaml:"other"`
	MustWork    []string    `json:"must_work" yaml:"must_work"`
}

// DefaultCodeTable returns the codes used by the residency service.
func DefaultCodeTable() CodeTable {
	return CodeTable{
		Assignable:  []ShiftType{Reserve, General, OnCall, Morning},
		Unavailable: []string{"V", "B", "Mo", "Cu", "Co", "Con"},
		Excused:     []string{"E"},
		Other:       []string{"U", "UT"},
		MustWork:    []string{"P"},
	}
}

// Validate checks that the table is usable and that no code is listed twice.
func (t CodeTable) Validate() error {
	if len(t.Assignable) == 0 {
		return fmt.Errorf("code table: no assignable shift types")
	}
	seen := make(map[string]string)
	add := func(code, group string) error {
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("code table: empty code in %s", group)
		}
		if prev, ok := seen[code]; ok {
			return fmt.Errorf("code table: %q listed in both %s and %s", code, prev, group)
		}
		seen[code] = group
		return nil
	}
	for _, s := range t.Assignable {
		if err := add(string(s), "assignable"); err != nil {
			return err
		}
	}
	groups := []struct {
		name  string
		codes []string
	}{
		{"unavailable", t.Unavailable},
		{"excused", t.Excused},
		{"other", t.Other},
		{"must_work", t.MustWork},
	}
	for _, g := range groups {
		for _, c := range g.codes {
			if err := add(c, g.name); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsAssignable reports whether s belongs to the assignable set.
func (t CodeTable) IsAssignable(s ShiftType) bool {
	for _, a := range t.Assignable {
		if a == s {
			return true
		}
	}
	return false
}

// Known reports whether code is any recognised code.
func (t CodeTable) Known(code string) bool {
	_, err := t.Classify(code)
	return err == nil
}

// Classify turns a raw grid code into a Cell. Surrounding whitespace is
// ignored; an empty code is an open cell.
func (t CodeTable) Classify(raw string) (Cell, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return Cell{Kind: CellOpen}, nil
	}
	if t.IsAssignable(ShiftType(code)) {
		return Cell{Kind: CellFixed, Code: code, Shift: ShiftType(code)}, nil
	}
	if contains(t.MustWork, code) {
		return Cell{Kind: CellOpen, Code: code, MustWork: true}, nil
	}
	if contains(t.Unavailable, code) {
		return Cell{Kind: CellStatus, Code: code, Status: StatusUnavailable}, nil
	}
	if contains(t.Excused, code) {
		return Cell{Kind: CellStatus, Code: code, Status: StatusExcused}, nil
	}
	if contains(t.Other, code) {
		return Cell{Kind: CellStatus, Code: code, Status: StatusOther}, nil
	}
	return Cell{}, fmt.Errorf("unrecognised code %q", code)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
