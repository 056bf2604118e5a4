package radio

// State is the orchestrator's lifecycle position.
type State int

const (
	StateIdle         State = iota // constructed, not yet started
	StatePlaying                   // current track is audible
	StateCommentating              // volume ducked, commentary in flight
	StatePaused                    // explicit pause
	StateStopped                   // terminal, explicit stop only
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateCommentating:
		return "commentating"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
