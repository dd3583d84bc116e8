package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/teranos/cuesheet"
)

var (
	purple = lipgloss.Color("#7c3aed")
	dim    = lipgloss.Color("#8b949e")
	faint  = lipgloss.Color("#30363d")
)

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and print the cue schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load already validated; reaching here means the sheet is sound.
			fmt.Fprintln(cmd.OutOrStdout(), schedule(a.cfg.Sheet))
			fmt.Fprintf(cmd.OutOrStdout(), "%d cues, complete at %s\n", a.cfg.Sheet.Len(), a.cfg.Sheet.CompleteAt())
			return nil
		},
	}
}

// schedule renders the sheet as a table, the completion row last.
func schedule(sheet cuesheet.CueSheet) string {
	rows := make([][]string, 0, sheet.Len()+1)
	for i, cue := range sheet.Cues {
		rows = append(rows, []string{strconv.Itoa(i + 1), cue.Name, cue.Delay.String(), cue.Description})
	}
	rows = append(rows, []string{"", "complete", sheet.CompleteAt().String(), "settle " + sheet.Settle.String()})

	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == len(rows)-1:
				return cellStyle.Foreground(dim)
			default:
				return cellStyle
			}
		}).
		Headers("#", "Cue", "At", "Description").
		Rows(rows...).
		String()
}
