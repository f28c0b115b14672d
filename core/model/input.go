package model

// Resident is a person receiving shifts. Index is the row position.
type Resident struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Rank  string `json:"rank,omitempty"`
}

// Row is one resident line of the uploaded grid with one raw code per day.
type Row struct {
	Resident Resident
	Codes    []string
}

// Input is the fixed data a schedule is computed from.
type Input struct {
	Days []Day
	Rows []Row
}
