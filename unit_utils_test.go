package cuesheet

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/teranos/cuesheet/clock"
)

var epoch = time.Date(2024, 11, 9, 15, 30, 45, 0, time.UTC)

// newManualSequencer builds a sequencer on a manual clock.
func newManualSequencer(t *testing.T, sheet CueSheet) (*Sequencer, *clock.Manual) {
	t.Helper()

	manual := clock.NewManual(epoch)
	config := DefaultSequencerConfig()
	config.Clock = manual

	seq, err := NewSequencerWithConfig(sheet, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = seq.Close() })

	return seq, manual
}

// drain reads every transition currently buffered without blocking.
func drain(seq *Sequencer) []Transition {
	var out []Transition
	for {
		select {
		case tr, ok := <-seq.Changes():
			if !ok {
				return out
			}
			out = append(out, tr)
		default:
			return out
		}
	}
}

func modes(transitions []Transition) []string {
	out := make([]string, 0, len(transitions))
	for _, tr := range transitions {
		out = append(out, tr.To.Mode())
	}
	return out
}

// stageVisitSpy records the stages a reader observed, safe across goroutines.
type stageVisitSpy struct {
	narrative   []string
	narrativeMx sync.RWMutex
}

func (spy *stageVisitSpy) Append(mode string) {
	spy.narrativeMx.Lock()
	spy.narrative = append(spy.narrative, mode)
	spy.narrativeMx.Unlock()
}

func (spy *stageVisitSpy) Snapshot() []string {
	spy.narrativeMx.RLock()
	defer spy.narrativeMx.RUnlock()
	return append([]string(nil), spy.narrative...)
}

// follow copies every transition into the spy until the channel closes.
func (spy *stageVisitSpy) follow(seq *Sequencer) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for tr := range seq.Changes() {
			spy.Append(tr.To.Mode())
		}
	}()
	return done
}
