package cuesheet

import "fmt"

// Phase is the coarse position of a sequencer within its cue sheet.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseCue
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCue:
		return "cue"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Stage is the value dependent visuals key their presentation off.
//
// Index is -1 while idle, the cue position while a cue is current, and the
// number of cues once complete, so stages of one sheet compare by Index.
type Stage struct {
	Phase Phase
	Index int
	Name  string
}

// Idle is the stage before the first cue and after a reset.
var Idle = Stage{Phase: PhaseIdle, Index: -1, Name: "idle"}

func completeStage(cues int) Stage {
	return Stage{Phase: PhaseComplete, Index: cues, Name: "complete"}
}

// IsIdle reports whether no cue has been reached.
func (s Stage) IsIdle() bool { return s.Phase == PhaseIdle }

// IsComplete reports whether the run finished.
func (s Stage) IsComplete() bool { return s.Phase == PhaseComplete }

// Reached reports whether the cue at index has been reached, which is how
// visuals decide to light up: everything at or below the current stage.
func (s Stage) Reached(index int) bool {
	return s.Phase != PhaseIdle && index <= s.Index
}

// Mode is the stage name as a stable string for UIs and test assertions.
func (s Stage) Mode() string {
	return s.Name
}

func (s Stage) String() string {
	if s.Phase == PhaseCue {
		return fmt.Sprintf("%s#%d(%s)", s.Phase, s.Index, s.Name)
	}
	return s.Phase.String()
}
