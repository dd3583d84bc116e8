package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/teranos/cuesheet/film"
	"github.com/teranos/cuesheet/internal/reel"
	"github.com/teranos/cuesheet/report"
)

type framesOptions struct {
	out      string
	name     string
	baseline string
	promote  bool
}

func framesCmd(a *app) *cobra.Command {
	var opts framesOptions

	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Film every stage of the cue sheet and write a report",
		Long: `Replays the cue sheet on a simulated clock, renders one PNG per stage,
and writes <out>/<name>/<timestamp>/index.html plus a dashboard of all runs.

With --baseline each frame is compared against the baseline frame of the same
name; --promote copies the new frames over the baseline instead of failing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.frames(opts, time.Now())
			if dir != "" {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.out, "out", "film", "Directory receiving runs and the dashboard")
	cmd.Flags().StringVar(&opts.name, "name", "inference", "Run name")
	cmd.Flags().StringVar(&opts.baseline, "baseline", "", "Baseline frame directory to compare against")
	cmd.Flags().BoolVar(&opts.promote, "promote", false, "Copy the new frames over the baseline")
	return cmd
}

// frames records, develops, checks and reports one run, returning its
// directory.
func (a *app) frames(opts framesOptions, now time.Time) (string, error) {
	backdrop, err := a.cfg.Backdrop()
	if err != nil {
		return "", err
	}

	recorded, err := reel.Record(a.cfg.Sheet, reel.Options{
		Width:       a.cfg.Frames.Width,
		Height:      a.cfg.Frames.Height,
		Scene:       backdrop,
		SceneWidth:  a.cfg.Scene.Width,
		SceneHeight: a.cfg.Scene.Height,
		Logger:      &log.Logger,
	})
	if err != nil {
		return "", err
	}

	renderConfig := film.DefaultConfig()
	renderConfig.Width, renderConfig.Height = a.cfg.Frames.Width, a.cfg.Frames.Height

	dir := report.RunDir(opts.out, reel.Slug(opts.name), now)
	frames, err := recorded.Develop(film.NewRenderer(renderConfig), dir)
	if err != nil {
		return "", err
	}
	log.Info().Str("dir", dir).Int("frames", len(frames)).Msg("Frames written")

	var problems []string
	if opts.baseline != "" {
		problems, err = supervise(film.NewSupervisor(opts.baseline, dir), frames, opts.promote)
		if err != nil {
			return dir, err
		}
	}

	r := report.RunReport{
		Name:        reel.Slug(opts.name),
		Timestamp:   now.Format(report.TimestampLayout),
		Duration:    recorded.Sheet.CompleteAt(),
		Success:     len(problems) == 0,
		Sheet:       recorded.Sheet,
		Frames:      frames,
		Transitions: recorded.Rows(),
		Problems:    problems,
		Metadata: map[string]string{
			"scene":    a.cfg.Scene.Kind,
			"geometry": fmt.Sprintf("%dx%d", a.cfg.Frames.Width, a.cfg.Frames.Height),
		},
	}
	if opts.baseline != "" {
		r.Metadata["baseline"] = opts.baseline
	}
	if err := report.NewGenerator(dir).Generate(r); err != nil {
		return dir, err
	}
	if err := report.GenerateDashboard(opts.out); err != nil {
		return dir, err
	}

	if len(problems) > 0 {
		return dir, fmt.Errorf("%d of %d frames regressed", len(problems), len(frames))
	}
	return dir, nil
}

// supervise checks every frame against the baseline. Frames without a
// baseline are promoted; regressions are promoted only when asked.
func supervise(sup *film.Supervisor, frames []report.Frame, promote bool) ([]string, error) {
	var problems []string
	for _, f := range frames {
		err := sup.Check(f.Label)

		var regression *film.RegressionError
		switch {
		case err == nil:
			continue
		case errors.Is(err, fs.ErrNotExist):
			log.Info().Str("frame", f.Label).Msg("No baseline, promoting")
		case errors.As(err, &regression):
			log.Warn().
				Str("frame", f.Label).
				Float64("difference", regression.Difference).
				Str("diff", regression.DiffPath).
				Msg("Visual regression")
			if !promote {
				problems = append(problems, regression.Error())
				continue
			}
		default:
			return nil, err
		}

		if err := sup.Promote(f.Label); err != nil {
			return nil, fmt.Errorf("promote %s: %w", f.Label, err)
		}
	}
	return problems, nil
}
