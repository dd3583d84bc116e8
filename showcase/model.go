// Package showcase is the terminal rendition of the live inference widget: a
// bubbletea model that lights up the layers of a classifier as a sequencer
// walks its cue sheet, and reveals the predictions on completion.
//
// The model only reads the stage. It starts, resets and closes the sequencer
// in response to keys, and follows it through Changes.
package showcase

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/teranos/cuesheet"
	"github.com/teranos/cuesheet/scene"
)

// TransitionMsg carries a stage change from the sequencer into the program.
type TransitionMsg cuesheet.Transition

type changesClosedMsg struct{}

type frameMsg time.Time

// FrameInterval paces the scene animation.
const FrameInterval = time.Second / 30

// Model is the bubbletea model. It is a value; every Update returns a copy.
type Model struct {
	seq    *cuesheet.Sequencer
	layers []Layer
	stage  cuesheet.Stage

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	backdrop *scene.Scene
	pointer  scene.Pointer
	frame    int
	sceneW   int
	sceneH   int

	width, height int
	closed        bool
}

// New builds the showcase for seq. The sequencer is owned by the model from
// then on: quitting closes it.
func New(seq *cuesheet.Sequencer) Model {
	return Model{
		seq:    seq,
		layers: layersFor(seq.Sheet()),
		stage:  seq.Current(),
		keys:   newKeyMap(),
		help:   help.New(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(activeStyle),
		),
		pointer: *scene.NewPointer(scene.EaseCover),
		sceneW:  60,
		sceneH:  12,
	}
}

// WithScene draws s above the pipeline on a width x height canvas.
func (m Model) WithScene(s *scene.Scene, width, height int) Model {
	m.backdrop = s
	if width > 0 && height > 0 {
		m.sceneW, m.sceneH = width, height
	}
	return m
}

// WithPointerEase overrides the pointer easing factor.
func (m Model) WithPointerEase(ease float64) Model {
	m.pointer = *scene.NewPointer(ease)
	return m
}

// Init subscribes to the sequencer and starts the spinner.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForTransition(m.seq.Changes()), m.spinner.Tick}
	if m.backdrop != nil {
		cmds = append(cmds, frameTick())
	}
	return tea.Batch(cmds...)
}

func waitForTransition(changes <-chan cuesheet.Transition) tea.Cmd {
	return func() tea.Msg {
		tr, ok := <-changes
		if !ok {
			return changesClosedMsg{}
		}
		return TransitionMsg(tr)
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update handles keys, transitions, animation frames and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.closed = true
			_ = m.seq.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Run):
			if m.seq.Live() {
				return m, nil
			}
			if err := m.seq.Start(); err != nil {
				return m, nil
			}
			m.setStage(m.seq.Current())
		case key.Matches(msg, m.keys.Reset):
			m.seq.Reset()
			m.setStage(m.seq.Current())
		}
		return m, nil

	case TransitionMsg:
		// Transitions queued before a reset or restart belong to a cancelled
		// run and must not move the stage.
		if msg.Generation == m.seq.Generation() {
			m.setStage(msg.To)
		}
		return m, waitForTransition(m.seq.Changes())

	case changesClosedMsg:
		m.closed = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case frameMsg:
		m.pointer.Step()
		m.frame++
		return m, frameTick()

	case tea.MouseMsg:
		m.pointer.Move(msg.X, msg.Y, m.width, m.height)
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m *Model) setStage(stage cuesheet.Stage) {
	m.stage = stage
	m.keys.Run.SetEnabled(!m.running())
}

func (m Model) running() bool {
	return m.stage.Phase == cuesheet.PhaseCue
}

// Stage returns the stage the model last observed.
func (m Model) Stage() cuesheet.Stage {
	return m.stage
}

// CurrentMode is the stage name: idle, a layer name, or complete.
func (m Model) CurrentMode() string {
	return m.stage.Mode()
}

// CurrentInput is always empty; the showcase takes no text.
func (m Model) CurrentInput() string {
	return ""
}

// CheckCondition answers idle, running, complete, predictions, closed and
// layer:<name> (that layer has been reached).
func (m Model) CheckCondition(condition string) bool {
	switch condition {
	case "idle":
		return m.stage.IsIdle()
	case "running":
		return m.running()
	case "complete", "predictions":
		return m.stage.IsComplete()
	case "closed":
		return m.closed
	}
	if name, ok := strings.CutPrefix(condition, "layer:"); ok {
		for i, l := range m.layers {
			if l.Name == name {
				return m.stage.Reached(i)
			}
		}
	}
	return false
}

// Close tears the sequencer down.
func (m Model) Close() error {
	return m.seq.Close()
}
