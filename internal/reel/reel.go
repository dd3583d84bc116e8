// Package reel replays a cue sheet through the showcase on a manual clock and
// keeps one shot per stage. The same sheet always yields the same shots, so
// the frames can be compared against baselines.
package reel

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/teranos/cuesheet"
	"github.com/teranos/cuesheet/clock"
	"github.com/teranos/cuesheet/film"
	"github.com/teranos/cuesheet/report"
	"github.com/teranos/cuesheet/scene"
	"github.com/teranos/cuesheet/showcase"
)

// Epoch is the manual clock reading at which every recording starts.
var Epoch = time.Unix(0, 0).UTC()

// Options shape a recording.
type Options struct {
	Width, Height int // window size sent to the model; zero sends none

	Scene       *scene.Scene // optional backdrop
	SceneWidth  int
	SceneHeight int

	Logger *zerolog.Logger // passed to the sequencer
}

// Shot is the view at one point of the run.
type Shot struct {
	Label string
	Stage cuesheet.Stage
	At    time.Duration // offset from the start of the run
	View  string
}

// Reel is a finished recording.
type Reel struct {
	Sheet       cuesheet.CueSheet
	Shots       []Shot
	Transitions []cuesheet.Transition
	Stats       map[string]int64
}

// Record plays sheet once from idle to complete.
func Record(sheet cuesheet.CueSheet, opts Options) (*Reel, error) {
	manual := clock.NewManual(Epoch)

	config := cuesheet.DefaultSequencerConfig()
	config.Clock = manual
	config.Logger = opts.Logger

	seq, err := cuesheet.NewSequencerWithConfig(sheet, config)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}

	r := &reel{
		Reel:   &Reel{Sheet: seq.Sheet()},
		seq:    seq,
		clock:  manual,
		model:  showcase.New(seq),
		labels: map[string]int{},
	}
	if opts.Scene != nil {
		r.model = r.model.WithScene(opts.Scene, opts.SceneWidth, opts.SceneHeight)
	}
	if opts.Width > 0 && opts.Height > 0 {
		r.send(tea.WindowSizeMsg{Width: opts.Width, Height: opts.Height})
	}

	r.shoot()
	r.send(tea.KeyMsg{Type: tea.KeyEnter})
	r.drain()

	for _, offset := range offsets(r.Sheet) {
		if elapsed := manual.Now().Sub(Epoch); offset > elapsed {
			manual.Advance(offset - elapsed)
		}
		r.drain()
	}

	r.Stats = seq.Stats()
	if err := r.model.Close(); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	if !r.model.Stage().IsComplete() {
		return nil, fmt.Errorf("record: run ended at %s, not complete", r.model.Stage())
	}
	return r.Reel, nil
}

type reel struct {
	*Reel
	seq    *cuesheet.Sequencer
	clock  *clock.Manual
	model  showcase.Model
	labels map[string]int
}

func (r *reel) send(msg tea.Msg) {
	next, _ := r.model.Update(msg)
	r.model = next.(showcase.Model)
}

// drain applies every pending transition, one shot each.
func (r *reel) drain() {
	for {
		select {
		case tr := <-r.seq.Changes():
			r.Transitions = append(r.Transitions, tr)
			r.send(showcase.TransitionMsg(tr))
			r.shoot()
		default:
			return
		}
	}
}

func (r *reel) shoot() {
	stage := r.model.Stage()
	label := Slug(stage.Mode())
	if n := r.labels[label]; n > 0 {
		r.labels[label] = n + 1
		label = fmt.Sprintf("%s-%d", label, n+1)
	} else {
		r.labels[label] = 1
	}

	r.Shots = append(r.Shots, Shot{
		Label: fmt.Sprintf("%02d-%s", len(r.Shots)+1, label),
		Stage: stage,
		At:    r.clock.Now().Sub(Epoch),
		View:  r.model.View(),
	})
}

// offsets lists every cue delay, then the completion offset.
func offsets(sheet cuesheet.CueSheet) []time.Duration {
	var out []time.Duration
	for _, cue := range sheet.Cues {
		out = append(out, cue.Delay)
	}
	return append(out, sheet.CompleteAt())
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and collapses everything but letters and digits to "-".
func Slug(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "stage"
	}
	return slug
}

// Develop renders every shot to <dir>/<label>.png and returns the frames
// for a report, images embedded.
func (r *Reel) Develop(renderer *film.Renderer, dir string) ([]report.Frame, error) {
	frames := make([]report.Frame, 0, len(r.Shots))
	for _, shot := range r.Shots {
		path := filepath.Join(dir, shot.Label+".png")
		if err := renderer.WriteFrame(path, shot.View); err != nil {
			return nil, err
		}
		url, err := report.FrameDataURL(path)
		if err != nil {
			return nil, err
		}
		frames = append(frames, report.Frame{
			Label:    shot.Label,
			Stage:    shot.Stage.Mode(),
			At:       shot.At,
			Filename: filepath.Base(path),
			View:     report.ViewHTML(shot.View),
			DataURL:  url,
		})
	}
	return frames, nil
}

// Rows converts the transitions for the report table.
func (r *Reel) Rows() []report.TransitionRow {
	rows := make([]report.TransitionRow, 0, len(r.Transitions))
	for _, tr := range r.Transitions {
		rows = append(rows, report.Row(Epoch, tr))
	}
	return rows
}
