package stagetest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/teranos/cuesheet/film"
	"github.com/teranos/cuesheet/report"
	"github.com/teranos/cuesheet/trip"
)

// Operator is a StageDirector that also films: CaptureFrame renders the
// current view to a numbered PNG, and WriteReport gathers the frames into an
// HTML report.
type Operator struct {
	*StageDirector
	renderer *film.Renderer
	filmDir  string
	frames   []report.Frame
}

// NewOperator creates an operator writing frames into filmDir.
func NewOperator(t testing.TB, model Model, filmDir string) *Operator {
	return &Operator{
		StageDirector: NewStageDirector(t, model),
		renderer:      film.NewRenderer(film.DefaultConfig()),
		filmDir:       filmDir,
	}
}

// WithConfig changes the frame geometry and colours.
func (op *Operator) WithConfig(config film.Config) *Operator {
	op.renderer = film.NewRenderer(config)
	return op
}

// WithTimeout wraps StageDirector.WithTimeout.
func (op *Operator) WithTimeout(timeout time.Duration) *Operator {
	op.StageDirector.WithTimeout(timeout)
	return op
}

// Start wraps StageDirector.Start.
func (op *Operator) Start() *Operator {
	op.StageDirector.Start()
	return op
}

// Press wraps StageDirector.Press.
func (op *Operator) Press(keys ...string) *Operator {
	op.StageDirector.Press(keys...)
	return op
}

// WaitForMode wraps StageDirector.WaitForMode.
func (op *Operator) WaitForMode(mode string) *Operator {
	op.StageDirector.WaitForMode(mode)
	return op
}

// WaitForText wraps StageDirector.WaitForText.
func (op *Operator) WaitForText(text string) *Operator {
	op.StageDirector.WaitForText(text)
	return op
}

// WaitForCondition wraps StageDirector.WaitForCondition.
func (op *Operator) WaitForCondition(condition string) *Operator {
	op.StageDirector.WaitForCondition(condition)
	return op
}

var unsafeLabel = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// CaptureFrame films the current view as <filmDir>/<NNN>-<label>.png.
func (op *Operator) CaptureFrame(label string) *Operator {
	if op.skip() {
		return op
	}

	view := op.getCurrentView()
	name := fmt.Sprintf("%03d-%s", len(op.frames)+1, strings.Trim(unsafeLabel.ReplaceAllString(label, "_"), "_"))
	path := filepath.Join(op.filmDir, name+".png")

	if err := op.renderer.WriteFrame(path, view); err != nil {
		op.recordTrip(trip.NewTrip(trip.TypeRender, err.Error(), trip.Context{"label": label, "path": path}))
		return op
	}

	op.frames = append(op.frames, report.Frame{
		Label:    name,
		Stage:    op.getCurrentMode(),
		At:       time.Since(op.startedAt),
		Filename: filepath.Base(path),
		View:     report.ViewHTML(view),
	})
	op.recordStageAction("frame", name)
	return op
}

// PressWithFrame presses keys, then captures a frame.
func (op *Operator) PressWithFrame(label string, keys ...string) *Operator {
	return op.Press(keys...).CaptureFrame(label)
}

// WaitForModeWithFrame waits for mode, then captures a frame.
func (op *Operator) WaitForModeWithFrame(mode, label string) *Operator {
	return op.WaitForMode(mode).CaptureFrame(label)
}

// Frames returns the frames captured so far.
func (op *Operator) Frames() []report.Frame {
	return append([]report.Frame(nil), op.frames...)
}

// WriteReport stops the stage and writes <filmDir>/index.html with every
// captured frame embedded.
func (op *Operator) WriteReport(name string) (*StageResult, error) {
	result := op.Stop()

	frames := op.Frames()
	for i := range frames {
		url, err := report.FrameDataURL(filepath.Join(op.filmDir, frames[i].Filename))
		if err != nil {
			return result, err
		}
		frames[i].DataURL = url
	}

	r := report.RunReport{
		Name:      name,
		Timestamp: op.startedAt.Format(report.TimestampLayout),
		Duration:  result.Duration,
		Success:   result.Success,
		Frames:    frames,
		Metadata:  map[string]string{"source": "stage director"},
	}
	if result.Error != nil {
		r.Problems = append(r.Problems, result.ErrorMessage)
	}

	return result, report.NewGenerator(op.filmDir).Generate(r)
}
