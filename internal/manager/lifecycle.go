package manager

// State identifies a manager's position in the lifecycle. States only
// advance; a stopped manager cannot be restarted.
type State int32

const (
	StateCreated State = iota
	StateStarting
	StateActive
	StateStopping
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
