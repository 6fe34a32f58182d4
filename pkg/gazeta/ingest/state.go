package ingest

// State is a stage of a mining run.
type State int

const (
	StateIdle State = iota
	StateFetching
	StatePaginating
	StateWindowing
	StateResolving
	StateFiltering
	StateSlicing
	StateExtracting
	StateClassifying
	StateDeduplicating
	StateDraining
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateFetching:      "fetching",
	StatePaginating:    "paginating",
	StateWindowing:     "windowing",
	StateResolving:     "resolving",
	StateFiltering:     "filtering",
	StateSlicing:       "slicing",
	StateExtracting:    "extracting",
	StateClassifying:   "classifying",
	StateDeduplicating: "deduplicating",
	StateDraining:      "draining",
	StateDone:          "done",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
