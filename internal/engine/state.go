package engine

// State is the lifecycle of a single render run.
type State uint8

const (
	StateIdle State = iota
	StateCreatingDirectories
	StateExtractingAudio
	StateRendering
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreatingDirectories:
		return "creating-directories"
	case StateExtractingAudio:
		return "extracting-audio"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
