package cuesheet

import (
	"time"

	"github.com/teranos/cuesheet/trip"
)

// Cue is one scheduled transition: the stage to enter and when, measured
// from the start of the run.
type Cue struct {
	Name        string        `yaml:"name"`
	Delay       time.Duration `yaml:"delay"`
	Description string        `yaml:"description,omitempty"`
}

// CueSheet is the fixed, ordered configuration of a sequencer.
//
// The run reaches Complete Settle after the last cue.
type CueSheet struct {
	Cues   []Cue         `yaml:"cues"`
	Settle time.Duration `yaml:"settle"`
}

// Len returns the number of cues.
func (cs CueSheet) Len() int {
	return len(cs.Cues)
}

// CompleteAt is the delay from run start at which Complete is reached.
func (cs CueSheet) CompleteAt() time.Duration {
	if len(cs.Cues) == 0 {
		return cs.Settle
	}
	return cs.Cues[len(cs.Cues)-1].Delay + cs.Settle
}

// Stage returns the stage entered by the cue at index. Index len(Cues) is
// Complete; anything else out of range is Idle.
func (cs CueSheet) Stage(index int) Stage {
	switch {
	case index >= 0 && index < len(cs.Cues):
		return Stage{Phase: PhaseCue, Index: index, Name: cs.Cues[index].Name}
	case index == len(cs.Cues):
		return completeStage(len(cs.Cues))
	default:
		return Idle
	}
}

// delayOf returns the offset of stage index, Complete included.
func (cs CueSheet) delayOf(index int) time.Duration {
	if index == len(cs.Cues) {
		return cs.CompleteAt()
	}
	return cs.Cues[index].Delay
}

// Validate checks the cue sheet invariants: at least one cue, non-empty unique
// names, non-negative strictly increasing delays and a non-negative settle.
// Failures are returned as a *trip.Trip of type trip.TypeCueSheet.
func (cs CueSheet) Validate() error {
	if len(cs.Cues) == 0 {
		return trip.NewTrip(trip.TypeCueSheet, "cue sheet has no cues", nil)
	}

	if cs.Settle < 0 {
		return trip.NewTrip(trip.TypeCueSheet, "settle must not be negative", trip.Context{
			"settle": cs.Settle,
		})
	}

	seen := make(map[string]int, len(cs.Cues))
	for i, cue := range cs.Cues {
		if cue.Name == "" {
			return trip.NewTrip(trip.TypeCueSheet, "cue name must not be empty", trip.Context{
				"index": i,
			})
		}
		if cue.Name == Idle.Name || cue.Name == "complete" {
			return trip.NewTrip(trip.TypeCueSheet, "cue name is reserved: "+cue.Name, trip.Context{
				"index": i,
				"name":  cue.Name,
			})
		}
		if prev, dup := seen[cue.Name]; dup {
			return trip.NewTrip(trip.TypeCueSheet, "duplicate cue name: "+cue.Name, trip.Context{
				"index":          i,
				"name":           cue.Name,
				"previous_index": prev,
			})
		}
		seen[cue.Name] = i

		if cue.Delay < 0 {
			return trip.NewTrip(trip.TypeCueSheet, "cue delay must not be negative", trip.Context{
				"index": i,
				"name":  cue.Name,
				"delay": cue.Delay,
			})
		}
		if i > 0 && cue.Delay <= cs.Cues[i-1].Delay {
			return trip.NewTrip(trip.TypeCueSheet, "cue delays must be strictly increasing", trip.Context{
				"index":          i,
				"name":           cue.Name,
				"delay":          cue.Delay,
				"previous_delay": cs.Cues[i-1].Delay,
			})
		}
	}

	return nil
}

// Evenly builds a sheet with one cue per name, the first at 0 and each next
// one interval later. Complete follows one interval after the last cue.
func Evenly(interval time.Duration, names ...string) CueSheet {
	cues := make([]Cue, len(names))
	for i, name := range names {
		cues[i] = Cue{Name: name, Delay: time.Duration(i) * interval}
	}
	return CueSheet{Cues: cues, Settle: interval}
}

// InferenceInterval is the pace of the inference walkthrough.
const InferenceInterval = 600 * time.Millisecond

// InferenceCueSheet walks a food classifier forward pass layer by layer and
// completes, revealing the predictions, one interval after the output layer.
func InferenceCueSheet() CueSheet {
	sheet := Evenly(InferenceInterval,
		"Input", "Conv1", "Conv2", "Conv3", "Conv4", "Pooling", "Dense", "Output")

	descriptions := []string{
		"Raw RGB image 224×224×3",
		"Edge detection & basic patterns",
		"Texture & shape features",
		"Object parts & components",
		"High-level semantic features",
		"Spatial compression",
		"Feature vector",
		"Class probabilities",
	}
	for i := range sheet.Cues {
		sheet.Cues[i].Description = descriptions[i]
	}

	return sheet
}
