package showcase

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/teranos/cuesheet/scene"
)

const (
	layersPerRow = 4
	barWidth     = 30
)

// View renders the title, the optional scene, the layer pipeline, the
// status line, the predictions once complete, and the key help.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Live Neural Network"))
	b.WriteString(mutedStyle.Render(" · food classifier"))
	b.WriteString("\n\n")

	if m.backdrop != nil {
		b.WriteString(sceneStyle.Render(m.viewScene()))
		b.WriteString("\n\n")
	}

	b.WriteString(m.viewPipeline())
	b.WriteString("\n\n")
	b.WriteString(m.viewStatus())
	b.WriteString("\n")

	if m.stage.IsComplete() {
		b.WriteString("\n")
		b.WriteString(viewPredictions())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) viewScene() string {
	canvas := scene.NewCanvas(m.sceneW, m.sceneH)
	pointer := m.pointer
	if err := scene.Render(m.backdrop, canvas, &pointer, m.frame); err != nil {
		return err.Error()
	}
	return canvas.String()
}

func (m Model) viewPipeline() string {
	rows := make([]string, 0, (len(m.layers)+layersPerRow-1)/layersPerRow)
	for start := 0; start < len(m.layers); start += layersPerRow {
		end := min(start+layersPerRow, len(m.layers))

		blocks := make([]string, 0, 2*(end-start))
		for i := start; i < end; i++ {
			lit := m.stage.Reached(i)
			blocks = append(blocks, connector(lit), layerBlock(m.layers[i], lit))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, blocks...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func connector(lit bool) string {
	if lit {
		return activeStyle.Render("━━▶")
	}
	return faintStyle.Render(" ┈ ")
}

func layerBlock(l Layer, lit bool) string {
	name := mutedStyle.Render(l.Name)
	if lit {
		name = nameStyle.Render(l.Name)
	}

	dims := "—"
	if l.Channels > 0 {
		dims = fmt.Sprintf("%d×%d×%d", l.Size, l.Size, l.Channels)
	}

	return layerBox.Render(lipgloss.JoinVertical(lipgloss.Center,
		name,
		activationGrid(l.Cells(), lit),
		mutedStyle.Render(dims),
	))
}

// activationGrid lays cells out in a near-square block.
func activationGrid(cells int, lit bool) string {
	cols := int(math.Ceil(math.Sqrt(float64(cells))))
	cell, style := "·", faintStyle
	if lit {
		cell, style = "■", activeStyle
	}

	var lines []string
	for drawn := 0; drawn < cells; drawn += cols {
		n := min(cols, cells-drawn)
		lines = append(lines, style.Render(strings.TrimSpace(strings.Repeat(cell+" ", n))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewStatus() string {
	switch {
	case m.stage.IsComplete():
		return successStyle.Render("✓ Inference complete")
	case m.running():
		l := m.layers[m.stage.Index]
		line := nameStyle.Render(l.Name+":") + " " + l.Description
		return lipgloss.JoinHorizontal(lipgloss.Center,
			m.spinner.View()+" ",
			currentBox.Render(line),
			mutedStyle.Render(fmt.Sprintf("  layer %d/%d", m.stage.Index+1, len(m.layers))),
		)
	default:
		return mutedStyle.Render("Press enter to run inference")
	}
}

func viewPredictions() string {
	rows := make([]string, 0, len(Predictions)+2)
	rows = append(rows, titleStyle.Render("Prediction Results"))

	for i, p := range Predictions {
		filled := int(math.Round(p.Confidence / 100 * barWidth))
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

		style := mutedStyle
		if i == 0 {
			style = nameStyle
		}
		rows = append(rows, fmt.Sprintf("%s %s %s",
			style.Render(fmt.Sprintf("%-13s", p.Label)),
			style.Render(bar),
			style.Render(fmt.Sprintf("%5.1f%%", p.Confidence)),
		))
	}

	best := Predictions[0]
	rows = append(rows, "", successStyle.Render(fmt.Sprintf(
		"✓ The model classified this image as %s with %.1f%% confidence", best.Label, best.Confidence)))
	return strings.Join(rows, "\n")
}
