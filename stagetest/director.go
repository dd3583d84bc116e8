package stagetest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/teranos/cuesheet/trip"
)

// StageDirector orchestrates a headless bubbletea program.
//
// Interactions are fluent and never stop the test themselves: failures are
// recorded as trips and reported by Stop. After an unrecoverable trip every
// following step is skipped.
type StageDirector struct {
	t       testing.TB
	model   Model
	program *tea.Program
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	recordMu     sync.Mutex
	interactions []StageAction
	snapshots    []StageSnapshot
	tripHandler  *trip.Handler
	lastTrip     *trip.Trip
	failed       bool

	// typing holds keystrokes of one Type call together
	typing sync.Mutex

	modelChan   chan modelUpdate
	latestModel Model
	modelMu     sync.RWMutex
	stats       syncStats

	config    StageConfig
	started   bool
	stopped   bool
	startedAt time.Time
}

// NewStageDirector creates a director with DefaultStageConfig.
func NewStageDirector(t testing.TB, model Model) *StageDirector {
	return NewStageDirectorWithConfig(t, model, DefaultStageConfig())
}

// NewStageDirectorWithConfig creates a director with config. Zero fields of
// config fall back to the defaults.
func NewStageDirectorWithConfig(t testing.TB, model Model, config StageConfig) *StageDirector {
	defaults := DefaultStageConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.SettleTimeout <= 0 {
		config.SettleTimeout = defaults.SettleTimeout
	}
	if config.UpdateBuffer <= 0 {
		config.UpdateBuffer = defaults.UpdateBuffer
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)

	return &StageDirector{
		t:           t,
		model:       model,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		tripHandler: trip.NewHandler("stage_director", trip.DefaultPolicy()),
		modelChan:   make(chan modelUpdate, config.UpdateBuffer),
		latestModel: model,
		config:      config,
	}
}

// WithTimeout replaces the stage timeout. It must be called before Start.
func (d *StageDirector) WithTimeout(timeout time.Duration) *StageDirector {
	if d.started {
		d.t.Logf("⚠️ Cannot change timeout after director has started - ignoring WithTimeout(%v)", timeout)
		return d
	}

	d.cancel()
	d.ctx, d.cancel = context.WithTimeout(context.Background(), timeout)
	d.config.Timeout = timeout
	return d
}

// WithViewCapture enables or disables automatic snapshots. It must be called
// before Start.
func (d *StageDirector) WithViewCapture(enabled bool) *StageDirector {
	if d.started {
		d.t.Logf("⚠️ Cannot change view capture after director has started - ignoring WithViewCapture(%v)", enabled)
		return d
	}
	d.config.CaptureViews = enabled
	return d
}

// Start runs the model in a headless program and waits for its first view.
func (d *StageDirector) Start() *StageDirector {
	if d.started {
		d.t.Logf("⚠️ StageDirector already started")
		return d
	}
	d.startedAt = time.Now()

	d.t.Logf("[TRACE] Start: Creating headless bubbletea program...")
	go d.syncModelUpdates()

	d.program = tea.NewProgram(stageModelWrapper{Model: d.model, director: d},
		tea.WithContext(d.ctx),
		tea.WithoutRenderer(),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)

	go func() {
		defer close(d.done)
		defer func() {
			if r := recover(); r != nil {
				d.t.Logf("🚨 Program goroutine panicked: %v", r)
			}
		}()

		if _, err := d.program.Run(); err != nil {
			d.t.Logf("[TRACE] Start: program.Run() returned with error=%v", err)
		}
	}()

	if err := d.waitForProgramReady(); err != nil {
		d.recordTrip(trip.NewFall(trip.TypeTimeout, err.Error(), trip.Context{"timeout": d.config.Timeout}))
		return d
	}

	d.started = true
	d.captureSnapshot("start")
	d.t.Logf("[TRACE] Start: Start completed successfully")
	return d
}

// Stop ends the stage: it captures a final snapshot, quits the program,
// closes a Closeable model and reports everything recorded.
func (d *StageDirector) Stop() *StageResult {
	if d.stopped {
		return d.result()
	}
	d.stopped = true

	if d.started {
		d.captureSnapshot("stop")
	}

	if d.program != nil {
		d.program.Quit()
		select {
		case <-d.done:
		case <-time.After(d.config.SettleTimeout):
			d.t.Logf("[TRACE] Stop: program did not exit within %v", d.config.SettleTimeout)
		}
	}
	d.cancel()

	if closer, ok := d.latest().(Closeable); ok {
		if err := closer.Close(); err != nil {
			d.recordTrip(trip.NewStumble(trip.TypeModel, "close model: "+err.Error(), nil))
		}
	}

	return d.result()
}

func (d *StageDirector) result() *StageResult {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()

	result := &StageResult{
		Actions:   append([]StageAction(nil), d.interactions...),
		Snapshots: append([]StageSnapshot(nil), d.snapshots...),
		Success:   !d.failed,
		SyncStats: d.GetSynchronizationStats(),
	}
	if !d.startedAt.IsZero() {
		result.Duration = time.Since(d.startedAt)
	}

	if d.lastTrip == nil {
		return result
	}

	result.Error = d.lastTrip
	result.ErrorMessage = fmt.Sprintf("[%s] %s", d.lastTrip.Type, d.lastTrip.Message)
	result.TripReport = d.tripHandler.DetailedReport()

	var details strings.Builder
	fmt.Fprintf(&details, "Trip Type: %s\n", d.lastTrip.Type)
	fmt.Fprintf(&details, "Error: %s\n", d.lastTrip.Message)
	fmt.Fprintf(&details, "Timestamp: %s\n", d.lastTrip.Timestamp.Format(time.RFC3339))
	if len(d.lastTrip.Context) > 0 {
		details.WriteString("Context:\n")
		keys := make([]string, 0, len(d.lastTrip.Context))
		for key := range d.lastTrip.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&details, "  %s: %v\n", key, d.lastTrip.Context[key])
		}
	}
	if d.HasDroppedUpdates() {
		details.WriteString("\nSynchronization Issues:\n")
		for key, value := range result.SyncStats {
			if value > 0 && (strings.Contains(key, "dropped") || strings.Contains(key, "overflow") || strings.Contains(key, "gap")) {
				fmt.Fprintf(&details, "  %s: %d\n", key, value)
			}
		}
	}
	result.ErrorDetails = details.String()
	return result
}

// waitForProgramReady waits for the first non-empty view.
func (d *StageDirector) waitForProgramReady() error {
	d.t.Logf("[TRACE] waitForProgramReady: Starting wait with timeout=%v", d.config.Timeout)

	ok := d.poll(d.config.Timeout, 20*time.Millisecond, func() bool {
		return d.getCurrentView() != ""
	})
	if !ok {
		return fmt.Errorf("timeout waiting for program to be ready")
	}
	return nil
}

// poll checks cond every interval until it holds, the timeout expires or
// the stage is cancelled.
func (d *StageDirector) poll(timeout, interval time.Duration, cond func() bool) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if cond() {
			return true
		}
		select {
		case <-timer.C:
			return false
		case <-d.ctx.Done():
			return cond()
		case <-time.After(interval):
		}
	}
}

func (d *StageDirector) latest() Model {
	d.modelMu.RLock()
	defer d.modelMu.RUnlock()
	return d.latestModel
}

func (d *StageDirector) getCurrentView() string {
	if model := d.latest(); model != nil {
		return model.View()
	}
	return ""
}

func (d *StageDirector) getCurrentMode() string {
	if model := d.latest(); model != nil {
		return model.CurrentMode()
	}
	return ""
}

func (d *StageDirector) getCurrentInput() string {
	if model := d.latest(); model != nil {
		return model.CurrentInput()
	}
	return ""
}

// View returns the latest rendered view.
func (d *StageDirector) View() string {
	return d.getCurrentView()
}

// Mode returns the latest model mode.
func (d *StageDirector) Mode() string {
	return d.getCurrentMode()
}

// GetLatestSnapshot returns the most recent snapshot.
func (d *StageDirector) GetLatestSnapshot() StageSnapshot {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	if len(d.snapshots) == 0 {
		return StageSnapshot{}
	}
	return d.snapshots[len(d.snapshots)-1]
}

// GetStageActionCount returns the number of recorded interactions.
func (d *StageDirector) GetStageActionCount() int {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	return len(d.interactions)
}

func (d *StageDirector) recordStageAction(actionType string, details interface{}) {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	d.interactions = append(d.interactions, StageAction{
		Timestamp: time.Now(),
		Type:      actionType,
		Details:   details,
	})
}

func (d *StageDirector) captureSnapshot(reason string) {
	if !d.config.CaptureViews {
		return
	}

	snapshot := StageSnapshot{
		Timestamp: time.Now(),
		Reason:    reason,
		View:      d.getCurrentView(),
		Mode:      d.getCurrentMode(),
		Input:     d.getCurrentInput(),
	}

	d.recordMu.Lock()
	d.snapshots = append(d.snapshots, snapshot)
	d.recordMu.Unlock()
}

// recordTrip records t and marks the stage failed unless it is a stumble.
// Falls are reported to the test immediately.
func (d *StageDirector) recordTrip(t *trip.Trip) {
	d.recordMu.Lock()
	d.tripHandler.Record(t)
	d.lastTrip = t
	if !t.CanRecover() {
		d.failed = true
	}
	d.recordMu.Unlock()

	d.t.Helper()
	if t.IsFall() {
		d.t.Error(t)
	} else {
		d.t.Log(t.DetailedString())
	}
}

// HasFailed reports whether a trip spoiled the stage.
func (d *StageDirector) HasFailed() bool {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	return d.failed || !d.tripHandler.ShouldContinue()
}

// GetError returns the last trip, if any.
func (d *StageDirector) GetError() error {
	d.recordMu.Lock()
	defer d.recordMu.Unlock()
	if d.lastTrip != nil {
		return d.lastTrip
	}
	return nil
}

// GetTripHandler returns the handler holding every trip of the stage.
func (d *StageDirector) GetTripHandler() *trip.Handler {
	return d.tripHandler
}

// truncate keeps the first maxLen runes of s.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
