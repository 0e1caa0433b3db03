package module

// Priority orders queued items; lower values dispatch first. The domain is
// bounded to [PriorityHighest, PriorityLowest].
type Priority int

// Priority levels.
const (
	// PriorityHighest dispatches before everything else.
	PriorityHighest Priority = 1
	// PriorityHigh is for time-sensitive work.
	PriorityHigh Priority = 2
	// PriorityNormal is the default for unspecified priorities.
	PriorityNormal Priority = 3
	// PriorityLow is for deferrable work.
	PriorityLow Priority = 4
	// PriorityLowest dispatches after everything else.
	PriorityLowest Priority = 5
)

// String returns a string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	default:
		return "invalid"
	}
}

// Clamp bounds the priority to the valid domain.
func (p Priority) Clamp() Priority {
	if p < PriorityHighest {
		return PriorityHighest
	}
	if p > PriorityLowest {
		return PriorityLowest
	}
	return p
}

// Valid reports whether the priority is inside the domain.
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityLowest
}
