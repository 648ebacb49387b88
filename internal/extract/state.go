package extract

// State is the orchestrator's position in the per-document lifecycle.
type State int32

const (
	StateIdle State = iota
	StateExtracting
	StateEnriching
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateEnriching:
		return "enriching"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
