package session

type State int

const (
	StateNoSession State = iota
	StatePending
	StateActive
	StateStale
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}
