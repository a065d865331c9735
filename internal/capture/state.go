package capture

// State is the lifecycle state of one capture session.
type State int

const (
	StateDown State = iota
	StateWaiting
	StateStarting
	StateActive
	StateStuck
	StateError
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDown:
		return "down"
	case StateWaiting:
		return "waiting"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStuck:
		return "stuck"
	case StateError:
		return "error"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
