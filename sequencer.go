// Package cuesheet drives a UI through an ordered, timed sequence of named
// stages, with cancel-safe reset and teardown.
//
// A Sequencer owns a fixed CueSheet. Start schedules one deferred callback per
// cue, every delay measured from the start of the run so late callbacks never
// push later ones back. Each callback carries the generation it was scheduled
// under; Reset, a new Start and Close bump the generation, so callbacks of an
// abandoned run find a stale generation when they fire and do nothing.
//
// Basic usage:
//
//	seq, err := cuesheet.NewSequencer(cuesheet.Evenly(600*time.Millisecond, "Input", "Conv1", "Output"))
//	if err != nil {
//		return err
//	}
//	defer seq.Close()
//
//	_ = seq.Start()
//	for tr := range seq.Changes() {
//		fmt.Println(tr.To.Mode())
//		if tr.To.IsComplete() {
//			break
//		}
//	}
//
// Visual components read Current or consume Changes; only the owner of the
// sequencer calls Start, Reset and Close.
package cuesheet

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/teranos/cuesheet/clock"
	"github.com/teranos/cuesheet/trip"
)

// ErrClosed is returned by Start once the sequencer has been torn down.
var ErrClosed = errors.New("sequencer is closed")

// Transition records one applied stage change.
type Transition struct {
	Generation uint64    // run generation the change belongs to
	From       Stage     // stage before the change
	To         Stage     // stage after the change
	At         time.Time // clock reading when applied
}

// SequencerConfig configures a Sequencer.
//
// Example usage:
//
//	config := cuesheet.DefaultSequencerConfig()
//	config.Clock = clock.NewManual(time.Unix(0, 0)) // deterministic tests
//	config.EventBuffer = 8
//
//	seq, err := cuesheet.NewSequencerWithConfig(sheet, config)
type SequencerConfig struct {
	// Clock schedules the deferred callbacks
	Clock clock.Clock
	// EventBuffer is the capacity of the Changes channel (<= 0 = default)
	EventBuffer int
	// Logger receives run lifecycle events at debug level; nil disables logging
	Logger *zerolog.Logger
	// Trips collects lifecycle misuse; nil creates a private handler
	Trips *trip.Handler
}

const defaultEventBuffer = 64

// DefaultSequencerConfig returns the system clock and a 64-event buffer,
// with logging disabled.
func DefaultSequencerConfig() SequencerConfig {
	return SequencerConfig{
		Clock:       clock.System(),
		EventBuffer: defaultEventBuffer,
	}
}

// Sequencer advances through a cue sheet on a schedule.
type Sequencer struct {
	sheet  CueSheet
	clock  clock.Clock
	logger zerolog.Logger
	trips  *trip.Handler

	// Guarded by mu; every timer callback, Start, Reset and Close runs its
	// critical section under it, so no callback sees a half-cancelled run.
	mu         sync.Mutex
	generation uint64
	live       bool
	closed     bool
	current    Stage
	startedAt  time.Time
	timers     []clock.Timer
	changes    chan Transition

	// Counters, read without the lock by Stats
	runsStarted        int64
	transitionsApplied int64
	staleSuppressed    int64
	resets             int64
	eventsDropped      int64
}

// NewSequencer creates a sequencer with DefaultSequencerConfig.
func NewSequencer(sheet CueSheet) (*Sequencer, error) {
	return NewSequencerWithConfig(sheet, DefaultSequencerConfig())
}

// NewSequencerWithConfig validates the sheet and creates a sequencer. The
// sheet is copied; later changes to the caller's slice have no effect.
func NewSequencerWithConfig(sheet CueSheet, config SequencerConfig) (*Sequencer, error) {
	if err := sheet.Validate(); err != nil {
		return nil, fmt.Errorf("new sequencer: %w", err)
	}

	if config.Clock == nil {
		config.Clock = clock.System()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	if config.Trips == nil {
		config.Trips = trip.NewHandler("sequencer", trip.DefaultPolicy())
	}

	return &Sequencer{
		sheet: CueSheet{
			Cues:   append([]Cue(nil), sheet.Cues...),
			Settle: sheet.Settle,
		},
		clock:   config.Clock,
		logger:  logger,
		trips:   config.Trips,
		current: Idle,
		changes: make(chan Transition, config.EventBuffer),
	}, nil
}

// Start begins a new run. A live run is cancelled first, so transitions of
// two runs never interleave. Cues due at offset zero are applied before Start
// returns; the rest fire at their offsets from now.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.trips.Record(trip.NewStumble(trip.TypeLifecycle, "start after close", trip.Context{
			"generation": s.generation,
		}))
		return fmt.Errorf("start: %w", ErrClosed)
	}

	if s.live || !s.current.IsIdle() {
		s.cancelLocked()
		s.enterLocked(Idle)
	}

	s.generation++
	gen := s.generation
	s.live = true
	s.startedAt = s.clock.Now()
	atomic.AddInt64(&s.runsStarted, 1)

	s.logger.Debug().
		Uint64("generation", gen).
		Int("cues", s.sheet.Len()).
		Dur("complete_at", s.sheet.CompleteAt()).
		Msg("run started")

	// Stage indices 0..n-1 are cues, n is Complete.
	for index := 0; index <= s.sheet.Len(); index++ {
		delay := s.sheet.delayOf(index)
		if delay <= 0 {
			s.advanceLocked(index)
			continue
		}

		index := index
		s.timers = append(s.timers, s.clock.AfterFunc(delay, func() {
			s.fire(gen, index)
		}))
	}

	return nil
}

// Reset cancels the live run, if any, and returns to Idle. It is safe to call
// at any time, any number of times.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.cancelLocked()
	s.generation++
	atomic.AddInt64(&s.resets, 1)

	if !s.current.IsIdle() {
		s.enterLocked(Idle)
	}

	s.logger.Debug().Uint64("generation", s.generation).Msg("sequencer reset")
}

// Close tears the sequencer down: the live run is cancelled, the stage
// returns to Idle, Changes is closed, and nothing is mutated or emitted
// afterwards. Start returns ErrClosed from then on.
func (s *Sequencer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.cancelLocked()
	s.generation++
	s.current = Idle
	s.closed = true
	close(s.changes)

	s.logger.Debug().Uint64("generation", s.generation).Msg("sequencer closed")
	return nil
}

// Current returns the latest stage reached by the live run, or Idle/Complete
// when no run is live.
func (s *Sequencer) Current() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Live reports whether a run has transitions still pending.
func (s *Sequencer) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Generation returns the current run generation. It moves on every Start,
// Reset and Close.
func (s *Sequencer) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Elapsed returns the time since the live run started, zero when none is live.
func (s *Sequencer) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live {
		return 0
	}
	return s.clock.Now().Sub(s.startedAt)
}

// Changes streams applied transitions. Delivery never blocks the sequencer:
// when the buffer is full the transition is dropped and counted in Stats.
// The channel is closed by Close.
func (s *Sequencer) Changes() <-chan Transition {
	return s.changes
}

// Sheet returns a copy of the cue sheet.
func (s *Sequencer) Sheet() CueSheet {
	return CueSheet{
		Cues:   append([]Cue(nil), s.sheet.Cues...),
		Settle: s.sheet.Settle,
	}
}

// Trips returns the handler lifecycle misuse is recorded on.
func (s *Sequencer) Trips() *trip.Handler {
	return s.trips
}

// Stats returns counters useful for diagnosing cancelled runs and slow readers.
func (s *Sequencer) Stats() map[string]int64 {
	return map[string]int64{
		"runs_started":        atomic.LoadInt64(&s.runsStarted),
		"transitions_applied": atomic.LoadInt64(&s.transitionsApplied),
		"stale_suppressed":    atomic.LoadInt64(&s.staleSuppressed),
		"resets":              atomic.LoadInt64(&s.resets),
		"events_dropped":      atomic.LoadInt64(&s.eventsDropped),
		"event_buffer_len":    int64(len(s.changes)),
		"event_buffer_cap":    int64(cap(s.changes)),
	}
}

// fire is the deferred callback for stage index of generation gen.
func (s *Sequencer) fire(gen uint64, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		atomic.AddInt64(&s.staleSuppressed, 1)
		s.logger.Debug().
			Uint64("generation", gen).
			Uint64("live_generation", s.generation).
			Int("index", index).
			Msg("stale transition suppressed")
		return
	}

	s.advanceLocked(index)
}

// advanceLocked moves forward to stage index, entering every stage in
// between so none is skipped when callbacks are delivered out of order.
// Indices at or behind the current stage are already applied.
func (s *Sequencer) advanceLocked(index int) {
	if index <= s.current.Index {
		return
	}

	for next := s.current.Index + 1; next <= index; next++ {
		s.enterLocked(s.sheet.Stage(next))
		atomic.AddInt64(&s.transitionsApplied, 1)
	}

	if s.current.IsComplete() {
		s.live = false
		s.timers = nil
		s.logger.Debug().Uint64("generation", s.generation).Msg("run complete")
	}
}

func (s *Sequencer) enterLocked(stage Stage) {
	tr := Transition{
		Generation: s.generation,
		From:       s.current,
		To:         stage,
		At:         s.clock.Now(),
	}
	s.current = stage

	select {
	case s.changes <- tr:
	default:
		atomic.AddInt64(&s.eventsDropped, 1)
	}
}

// cancelLocked stops pending timers. Stopping is best effort; a callback
// already waiting on the lock is turned away by the generation check.
func (s *Sequencer) cancelLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.live = false
}
