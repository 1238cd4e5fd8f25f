package reconcile

// State - этап подготовки комнаты к показу.
type State int

const (
	Idle State = iota
	Subscribing
	FetchingHistory
	Deduplicating
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Subscribing:
		return "subscribing"
	case FetchingHistory:
		return "fetching_history"
	case Deduplicating:
		return "deduplicating"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
