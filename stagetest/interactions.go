package stagetest

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/teranos/cuesheet/trip"
)

var namedKeys = map[string]tea.KeyType{
	"enter":     tea.KeyEnter,
	"esc":       tea.KeyEsc,
	"escape":    tea.KeyEsc,
	"tab":       tea.KeyTab,
	"up":        tea.KeyUp,
	"down":      tea.KeyDown,
	"left":      tea.KeyLeft,
	"right":     tea.KeyRight,
	"backspace": tea.KeyBackspace,
	"space":     tea.KeySpace,
	"ctrl+c":    tea.KeyCtrlC,
}

// KeyMsg converts a key name ("enter", "esc", "ctrl+c") or a single
// character into the message bubbletea would deliver for it.
func KeyMsg(name string) tea.KeyMsg {
	if kt, ok := namedKeys[strings.ToLower(name)]; ok {
		if kt == tea.KeySpace {
			return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		}
		return tea.KeyMsg{Type: kt}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(name)}
}

// Press sends each named key in turn.
func (d *StageDirector) Press(keys ...string) *StageDirector {
	for _, k := range keys {
		if d.skip() {
			return d
		}
		d.sendMessage(KeyMsg(k))
		d.recordStageAction("keypress", k)
	}
	return d
}

// PressEnter sends Enter.
func (d *StageDirector) PressEnter() *StageDirector {
	return d.Press("enter")
}

// PressEscape sends Escape.
func (d *StageDirector) PressEscape() *StageDirector {
	return d.Press("esc")
}

// PressTab sends Tab.
func (d *StageDirector) PressTab() *StageDirector {
	return d.Press("tab")
}

// PressBackspace sends Backspace.
func (d *StageDirector) PressBackspace() *StageDirector {
	return d.Press("backspace")
}

// Type sends text one character at a time, TypingSpeed apart.
func (d *StageDirector) Type(text string) *StageDirector {
	d.typing.Lock()
	defer d.typing.Unlock()

	for _, char := range text {
		if d.skip() {
			return d
		}
		d.sendMessage(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{char}})
		d.recordStageAction("type", string(char))
		if d.config.TypingSpeed > 0 {
			time.Sleep(d.config.TypingSpeed)
		}
	}
	return d
}

// ClearInput deletes the current input with backspaces.
func (d *StageDirector) ClearInput() *StageDirector {
	for range d.getCurrentInput() {
		d.PressBackspace()
	}
	return d
}

// Send delivers an arbitrary message, such as a window resize.
func (d *StageDirector) Send(msg tea.Msg) *StageDirector {
	if d.skip() {
		return d
	}
	d.sendMessage(msg)
	d.recordStageAction("send", fmt.Sprintf("%T", msg))
	return d
}

// Wait pauses for duration. Prefer the condition based waits.
func (d *StageDirector) Wait(duration time.Duration) *StageDirector {
	time.Sleep(duration)
	d.recordStageAction("wait", duration)
	d.captureSnapshot("wait")
	return d
}

// WaitForMode waits until the model reports mode.
func (d *StageDirector) WaitForMode(mode string) *StageDirector {
	return d.waitFor("mode="+mode, func() bool { return d.getCurrentMode() == mode }, trip.Context{
		"expected_mode": mode,
	})
}

// WaitForText waits until the view contains text.
func (d *StageDirector) WaitForText(text string) *StageDirector {
	return d.waitFor("text="+text, func() bool { return strings.Contains(d.getCurrentView(), text) }, trip.Context{
		"expected_text": text,
	})
}

// WaitForCondition waits until the model's CheckCondition holds.
func (d *StageDirector) WaitForCondition(condition string) *StageDirector {
	return d.waitFor("condition="+condition, func() bool { return d.CheckCondition(condition) }, trip.Context{
		"condition": condition,
	})
}

func (d *StageDirector) waitFor(what string, cond func() bool, context trip.Context) *StageDirector {
	if d.skip() {
		return d
	}

	start := time.Now()
	if d.poll(d.config.Timeout, 5*time.Millisecond, cond) {
		d.recordStageAction("wait", what)
		d.t.Logf("[TRACE] waitFor: %s after %v", what, time.Since(start))
		return d
	}

	context["current_mode"] = d.getCurrentMode()
	context["current_view"] = truncate(d.getCurrentView(), 200)
	d.recordTrip(trip.NewTrip(trip.TypeTimeout, "timeout waiting for "+what, context))
	return d
}

// CheckCondition asks the latest model.
func (d *StageDirector) CheckCondition(condition string) bool {
	if model := d.latest(); model != nil {
		return model.CheckCondition(condition)
	}
	return false
}

// AssertViewContains records an assertion trip unless the view contains text.
func (d *StageDirector) AssertViewContains(text string) *StageDirector {
	view := d.getCurrentView()
	if !strings.Contains(view, text) {
		d.recordTrip(trip.NewTrip(trip.TypeAssertion, "view does not contain expected text: "+text, trip.Context{
			"expected":    text,
			"actual_view": view,
		}))
		return d
	}
	d.recordStageAction("assertion", "contains="+text)
	return d
}

// AssertViewNotContains records an assertion trip if the view contains text.
func (d *StageDirector) AssertViewNotContains(text string) *StageDirector {
	view := d.getCurrentView()
	if strings.Contains(view, text) {
		d.recordTrip(trip.NewTrip(trip.TypeAssertion, "view contains unexpected text: "+text, trip.Context{
			"unexpected":  text,
			"actual_view": view,
		}))
		return d
	}
	d.recordStageAction("assertion", "not_contains="+text)
	return d
}

// AssertMode records an assertion trip unless the model is in mode.
func (d *StageDirector) AssertMode(mode string) *StageDirector {
	actual := d.getCurrentMode()
	if actual != mode {
		d.recordTrip(trip.NewTrip(trip.TypeAssertion, "expected mode "+mode+", got "+actual, trip.Context{
			"expected": mode,
			"actual":   actual,
		}))
		return d
	}
	d.recordStageAction("assertion", "mode="+mode)
	return d
}

// AssertCondition records an assertion trip unless condition holds.
func (d *StageDirector) AssertCondition(condition string) *StageDirector {
	if !d.CheckCondition(condition) {
		d.recordTrip(trip.NewTrip(trip.TypeAssertion, "condition does not hold: "+condition, trip.Context{
			"condition":    condition,
			"current_mode": d.getCurrentMode(),
		}))
		return d
	}
	d.recordStageAction("assertion", "condition="+condition)
	return d
}

// AssertInputEquals records an assertion trip unless the input is expected.
func (d *StageDirector) AssertInputEquals(expected string) *StageDirector {
	actual := d.getCurrentInput()
	if actual != expected {
		d.recordTrip(trip.NewTrip(trip.TypeAssertion, "expected input '"+expected+"', got '"+actual+"'", trip.Context{
			"expected": expected,
			"actual":   actual,
		}))
		return d
	}
	d.recordStageAction("assertion", "input="+expected)
	return d
}

// skip reports whether steps must be skipped: not started, stopped, or an
// unrecoverable trip already happened.
func (d *StageDirector) skip() bool {
	return !d.started || d.stopped || d.HasFailed() || d.ctx.Err() != nil
}

// sendMessage delivers msg and waits briefly for the view to react.
func (d *StageDirector) sendMessage(msg tea.Msg) {
	before := d.getCurrentView()
	d.t.Logf("[TRACE] sendMessage: type=%T view_len=%d first_50_chars=%q", msg, len(before), truncate(before, 50))

	seq := d.processedSeq()
	d.program.Send(msg)

	// settled once an update is processed or the view changes
	changed := d.poll(d.config.SettleTimeout, 2*time.Millisecond, func() bool {
		return d.processedSeq() > seq || d.getCurrentView() != before
	})
	d.t.Logf("[TRACE] sendMessage: settled=%t changed=%t", changed, d.getCurrentView() != before)
	d.captureSnapshot("interaction")
}
