// Package stagetest drives bubbletea models headlessly from tests.
//
// A StageDirector runs the model in a real tea.Program without a terminal,
// sends it keys, waits for modes, texts and conditions, and collects every
// failure as a trip instead of stopping the test at the first one.
//
// Basic usage:
//
//	result := stagetest.NewStageDirector(t, showcase.New(seq)).
//		WithTimeout(5 * time.Second).
//		Start().
//		PressEnter().
//		WaitForMode("complete").
//		AssertViewContains("Prediction Results").
//		Stop()
//
//	assert.True(t, result.Success)
//
// An Operator additionally captures PNG frames of the view and writes them
// into an HTML report.
package stagetest

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is a bubbletea model the director can inspect.
//
//	func (m Model) CurrentMode() string { return m.stage.Mode() }
//	func (m Model) CheckCondition(condition string) bool {
//		switch condition {
//		case "complete": return m.stage.IsComplete()
//		default: return false
//		}
//	}
type Model interface {
	tea.Model
	// CurrentInput returns the text the user has typed, if any
	CurrentInput() string
	// CurrentMode returns the current application mode as a string
	CurrentMode() string
	// CheckCondition answers model specific wait conditions and assertions
	CheckCondition(condition string) bool
}

// Closeable models have Close called when the director stops.
type Closeable interface {
	Close() error
}

// modelUpdate is a model state produced by Update, tagged for ordering.
type modelUpdate struct {
	model     Model
	sequence  int64
	timestamp time.Time
}

// StageAction records a single interaction during staging.
type StageAction struct {
	Timestamp time.Time
	Type      string      // "keypress", "type", "send", "wait", "assertion", "frame"
	Details   interface{} // Specific interaction details
}

// StageSnapshot captures the state of the model at one moment.
type StageSnapshot struct {
	Timestamp time.Time
	Reason    string // why it was taken: start, interaction, wait, stop, error
	View      string
	Mode      string
	Input     string
}

// StageResult is returned by Stop.
type StageResult struct {
	Actions      []StageAction
	Snapshots    []StageSnapshot
	Success      bool          // no trip spoiled the stage
	Duration     time.Duration // from Start to Stop
	ErrorMessage string        // human readable description of the last trip
	Error        error         // the last trip
	ErrorDetails string        // trip context and synchronization issues
	TripReport   string        // every trip recorded
	SyncStats    map[string]int64
}

// StageConfig configures a StageDirector.
//
//	config := stagetest.StageConfig{
//		Timeout:      5 * time.Second,
//		TypingSpeed:  0,
//		CaptureViews: false,
//	}
type StageConfig struct {
	// Timeout bounds the whole stage and every individual wait
	Timeout time.Duration
	// TypingSpeed is the delay between keystrokes sent by Type (0 = none)
	TypingSpeed time.Duration
	// CaptureViews enables automatic view snapshots
	CaptureViews bool
	// SettleTimeout caps how long an interaction waits for the view to change
	SettleTimeout time.Duration
	// UpdateBuffer is the capacity of the model update channel
	UpdateBuffer int
}

// DefaultStageConfig returns a 30 second timeout, 10ms typing, snapshots on.
func DefaultStageConfig() StageConfig {
	return StageConfig{
		Timeout:       30 * time.Second,
		TypingSpeed:   10 * time.Millisecond,
		CaptureViews:  true,
		SettleTimeout: time.Second,
		UpdateBuffer:  50,
	}
}
