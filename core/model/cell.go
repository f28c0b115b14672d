package model

// CellKind describes the ground truth of a (resident, day) slot.
type CellKind uint8

const (
	// CellOpen has one decision variable per assignable shift type.
	CellOpen CellKind = iota
	// CellFixed holds a pre-assigned shift and has no decision variable.
	CellFixed
	// CellStatus holds a non-assignable status code.
	CellStatus
)

func (k CellKind) String() string {
	switch k {
	case CellOpen:
		return "open"
	case CellFixed:
		return "fixed"
	case CellStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Cell is the classified content of one input slot. Code keeps the raw
// input text so writers can reproduce it unchanged.
type Cell struct {
	Kind     CellKind
	Code     string
	Shift    ShiftType
	Status   StatusClass
	MustWork bool
}

// Open reports whether the cell receives decision variables.
func (c Cell) Open() bool { return c.Kind == CellOpen }
