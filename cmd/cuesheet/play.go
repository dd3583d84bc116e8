package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/teranos/cuesheet"
	"github.com/teranos/cuesheet/showcase"
)

func playCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Run the inference showcase in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.play(ctx)
		},
	}
}

func (a *app) play(ctx context.Context) error {
	config := cuesheet.DefaultSequencerConfig()
	config.Logger = &log.Logger

	seq, err := cuesheet.NewSequencerWithConfig(a.cfg.Sheet, config)
	if err != nil {
		return err
	}

	model := showcase.New(seq)
	backdrop, err := a.cfg.Backdrop()
	if err != nil {
		return err
	}
	if backdrop != nil {
		model = model.WithScene(backdrop, a.cfg.Scene.Width, a.cfg.Scene.Height)
	}

	log.Debug().
		Int("cues", a.cfg.Sheet.Len()).
		Str("scene", a.cfg.Scene.Kind).
		Msg("playing")

	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	final, err := program.Run()
	if m, ok := final.(showcase.Model); ok {
		_ = m.Close()
	}
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
