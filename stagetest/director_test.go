package stagetest

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/cuesheet/trip"
)

// mockREPL is a small line editor: runes append, enter executes, tab and esc
// switch modes, "!" panics.
type mockREPL struct {
	input  string
	mode   string
	closed *int32
}

func (m mockREPL) Init() tea.Cmd        { return nil }
func (m mockREPL) View() string         { return "Mock REPL [" + m.mode + "]: " + m.input }
func (m mockREPL) CurrentInput() string { return m.input }
func (m mockREPL) CurrentMode() string  { return m.mode }

func (m mockREPL) CheckCondition(condition string) bool {
	switch condition {
	case "has_input":
		return m.input != ""
	case "test_condition":
		return true
	default:
		return false
	}
}

func (m mockREPL) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyRunes:
		if string(key.Runes) == "!" {
			panic("exclamation")
		}
		m.input += string(key.Runes)
	case tea.KeyEnter:
		m.mode = "executed"
	case tea.KeyTab:
		m.mode = "tab_pressed"
	case tea.KeyEsc:
		m.mode = "escaped"
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	}
	return m, nil
}

func (m mockREPL) Close() error {
	if m.closed != nil {
		atomic.AddInt32(m.closed, 1)
	}
	return nil
}

// nilModel returns nil from Update.
type nilModel struct{ mockREPL }

func (m nilModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return nil, nil }

// recordingTB captures Error calls instead of failing the test.
type recordingTB struct {
	testing.TB
	mu     sync.Mutex
	errors []string
}

func (r *recordingTB) Error(args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprint(args...))
}

func (r *recordingTB) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func fastConfig() StageConfig {
	return StageConfig{
		Timeout:       5 * time.Second,
		TypingSpeed:   0,
		CaptureViews:  true,
		SettleTimeout: 500 * time.Millisecond,
	}
}

func TestStageDirector_BasicInteractions(t *testing.T) {
	director := NewStageDirectorWithConfig(t, mockREPL{mode: "initial"}, fastConfig())
	defer director.Stop()

	director.Start()

	director.Type("hello")
	assert.Equal(t, "hello", director.getCurrentInput())
	assert.True(t, director.CheckCondition("has_input"))

	director.PressEnter()
	assert.Equal(t, "executed", director.Mode())

	assert.Greater(t, director.GetStageActionCount(), 5)

	var types []string
	for _, action := range director.Stop().Actions {
		types = append(types, action.Type)
	}
	assert.Contains(t, types, "type")
	assert.Contains(t, types, "keypress")
}

func TestStageDirector_AllKeyPresses(t *testing.T) {
	result := NewStageDirectorWithConfig(t, mockREPL{mode: "key_test"}, fastConfig()).
		Start().
		Type("test").
		AssertInputEquals("test").
		PressTab().
		AssertMode("tab_pressed").
		PressBackspace().
		AssertInputEquals("tes").
		PressEscape().
		AssertMode("escaped").
		ClearInput().
		AssertInputEquals("").
		Press("up", "down", "x").
		AssertInputEquals("x").
		Stop()

	assert.True(t, result.Success, result.ErrorDetails)
	assert.Empty(t, result.ErrorMessage)
}

func TestStageDirector_TypingSpeed(t *testing.T) {
	config := fastConfig()
	config.TypingSpeed = 50 * time.Millisecond
	config.CaptureViews = false

	director := NewStageDirectorWithConfig(t, mockREPL{}, config).Start()
	defer director.Stop()

	start := time.Now()
	director.Type("abc")
	assert.Greater(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, "abc", director.getCurrentInput())
}

func TestStageDirector_Waits(t *testing.T) {
	result := NewStageDirectorWithConfig(t, mockREPL{mode: "ready"}, fastConfig()).
		Start().
		WaitForMode("ready").
		Type("query").
		WaitForText("query").
		WaitForCondition("has_input").
		PressEnter().
		WaitForMode("executed").
		AssertCondition("test_condition").
		Stop()

	assert.True(t, result.Success, result.ErrorDetails)
}

func TestStageDirector_WaitTimeout(t *testing.T) {
	config := fastConfig()
	config.Timeout = 300 * time.Millisecond

	director := NewStageDirectorWithConfig(t, mockREPL{mode: "stuck"}, config).Start()
	director.WaitForMode("never")
	assert.True(t, director.HasFailed())

	before := director.GetStageActionCount()
	director.Type("ignored")
	assert.Equal(t, before, director.GetStageActionCount(), "steps after a failure are skipped")

	result := director.Stop()
	t.Logf("[TRACE] result: %s", result.ErrorMessage)

	assert.False(t, result.Success)
	assert.Equal(t, "[timeout] timeout waiting for mode=never", result.ErrorMessage)
	assert.Contains(t, result.ErrorDetails, "expected_mode: never")
	assert.Contains(t, result.ErrorDetails, "current_mode: stuck")
	assert.Contains(t, result.TripReport, "timeout waiting for mode=never")
	assert.ErrorIs(t, result.Error, &trip.Trip{Type: trip.TypeTimeout})
}

func TestStageDirector_AssertionFailures(t *testing.T) {
	result := NewStageDirectorWithConfig(t, mockREPL{mode: "initial"}, fastConfig()).
		Start().
		AssertViewContains("Mock REPL").
		AssertViewContains("missing text").
		Stop()

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "view does not contain expected text: missing text")
	assert.ErrorIs(t, result.Error, &trip.Trip{Type: trip.TypeAssertion})

	result = NewStageDirectorWithConfig(t, mockREPL{mode: "initial"}, fastConfig()).
		Start().
		AssertViewNotContains("Mock REPL").
		Stop()
	assert.False(t, result.Success)

	result = NewStageDirectorWithConfig(t, mockREPL{mode: "initial"}, fastConfig()).
		Start().
		AssertCondition("unknown").
		Stop()
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "condition does not hold: unknown")
}

func TestStageDirector_ModelPanic(t *testing.T) {
	rec := &recordingTB{TB: t}
	director := NewStageDirectorWithConfig(rec, mockREPL{mode: "initial"}, fastConfig()).Start()

	director.Type("a!b")
	result := director.Stop()

	require.Len(t, rec.Errors(), 1)
	assert.Contains(t, rec.Errors()[0], "model panic during Update: exclamation")

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, &trip.Trip{Type: trip.TypeModel})
	assert.Equal(t, "a", director.getCurrentInput(), "nothing typed after the panic")

	var errorSnapshot *StageSnapshot
	for i := range result.Snapshots {
		if result.Snapshots[i].Reason == "error" {
			errorSnapshot = &result.Snapshots[i]
		}
	}
	require.NotNil(t, errorSnapshot)
	assert.Equal(t, "error_model_panic", errorSnapshot.Mode)
	assert.Contains(t, errorSnapshot.View, "Last View:\nMock REPL [initial]: a")
}

func TestStageDirector_InvalidModelState(t *testing.T) {
	rec := &recordingTB{TB: t}
	result := NewStageDirectorWithConfig(rec, nilModel{mockREPL{mode: "initial"}}, fastConfig()).
		Start().
		PressEnter().
		Stop()

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "Update returned nil model")
	assert.Len(t, rec.Errors(), 1)
}

func TestStageDirector_ClosesModel(t *testing.T) {
	var closed int32
	director := NewStageDirectorWithConfig(t, mockREPL{closed: &closed}, fastConfig()).Start()
	director.Type("x")

	result := director.Stop()
	assert.True(t, result.Success)
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed))

	director.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed), "stop is idempotent")
}

func TestStageDirector_Snapshots(t *testing.T) {
	result := NewStageDirectorWithConfig(t, mockREPL{mode: "snap"}, fastConfig()).
		Start().
		Type("ab").
		Wait(10 * time.Millisecond).
		Stop()

	require.NotEmpty(t, result.Snapshots)
	assert.Equal(t, "start", result.Snapshots[0].Reason)
	assert.Equal(t, "Mock REPL [snap]: ", result.Snapshots[0].View)

	last := result.Snapshots[len(result.Snapshots)-1]
	assert.Equal(t, "stop", last.Reason)
	assert.Equal(t, "ab", last.Input)

	var reasons []string
	for _, s := range result.Snapshots {
		reasons = append(reasons, s.Reason)
	}
	assert.Contains(t, reasons, "interaction")
	assert.Contains(t, reasons, "wait")

	noViews := NewStageDirectorWithConfig(t, mockREPL{}, fastConfig()).WithViewCapture(false).Start()
	noViews.Type("a")
	assert.Empty(t, noViews.Stop().Snapshots)
}

func TestStageDirector_ConfigAfterStart(t *testing.T) {
	director := NewStageDirectorWithConfig(t, mockREPL{}, fastConfig()).Start()
	defer director.Stop()

	director.WithTimeout(time.Millisecond)
	assert.Equal(t, 5*time.Second, director.config.Timeout)

	director.WithViewCapture(false)
	assert.True(t, director.config.CaptureViews)
}

func TestStageDirector_SynchronizationStats(t *testing.T) {
	director := NewStageDirectorWithConfig(t, mockREPL{}, fastConfig()).Start()
	director.Type("sync")

	stats := director.GetSynchronizationStats()
	t.Logf("[TRACE] stats: %v", stats)

	assert.GreaterOrEqual(t, stats["updates_generated"], int64(4))
	assert.Equal(t, stats["updates_generated"], stats["updates_sent"])
	assert.Equal(t, int64(0), stats["buffer_overflows"])
	assert.Equal(t, int64(50), stats["buffer_capacity"])
	assert.False(t, director.HasDroppedUpdates())
	assert.GreaterOrEqual(t, director.GetBufferUtilization(), 0.0)

	result := director.Stop()
	assert.Equal(t, stats["buffer_capacity"], result.SyncStats["buffer_capacity"])
}

func TestKeyMsg(t *testing.T) {
	assert.Equal(t, tea.KeyMsg{Type: tea.KeyEnter}, KeyMsg("enter"))
	assert.Equal(t, tea.KeyMsg{Type: tea.KeyEsc}, KeyMsg("ESC"))
	assert.Equal(t, tea.KeyMsg{Type: tea.KeyCtrlC}, KeyMsg("ctrl+c"))
	assert.Equal(t, "r", KeyMsg("r").String())
	assert.Equal(t, " ", KeyMsg("space").String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	box := "┌──────┐ Input ×"
	cut := truncate(box, 3)
	assert.Equal(t, "┌──...", cut)
	assert.True(t, utf8.ValidString(cut))
	assert.True(t, utf8.ValidString(truncate(box, 15)))
}
