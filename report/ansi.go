package report

import (
	"fmt"
	"html/template"
	"image/color"
	"strings"

	"github.com/teranos/cuesheet/film"
)

const emptyView = `<span class="empty">No terminal output at this point</span>`

// ViewHTML converts a rendered terminal view into HTML for a <pre> block.
// Runs of equally styled cells share one span; unstyled text is bare.
func ViewHTML(view string) template.HTML {
	if strings.TrimSpace(film.Plain(view)) == "" {
		return template.HTML(emptyView)
	}

	var b strings.Builder
	for i, line := range film.Parse(view) {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeLine(&b, line)
	}
	return template.HTML(b.String())
}

func writeLine(b *strings.Builder, line []film.Cell) {
	for start := 0; start < len(line); {
		style := line[start].Style
		end := start + 1
		for end < len(line) && line[end].Style == style {
			end++
		}

		var text strings.Builder
		for _, c := range line[start:end] {
			text.WriteString(c.Content)
		}

		if css := inlineStyle(style); css != "" {
			fmt.Fprintf(b, `<span style="%s">%s</span>`, css, template.HTMLEscapeString(text.String()))
		} else {
			b.WriteString(template.HTMLEscapeString(text.String()))
		}
		start = end
	}
}

func inlineStyle(s film.Style) string {
	var parts []string
	fg, bg := s.FG, s.BG
	hasFG, hasBG := s.HasFG, s.HasBG
	if s.Reverse {
		fg, bg = bg, fg
		hasFG, hasBG = hasBG, hasFG
	}

	if hasFG {
		parts = append(parts, "color: "+hex(fg))
	}
	if hasBG {
		parts = append(parts, "background: "+hex(bg))
	}
	if s.Bold {
		parts = append(parts, "font-weight: bold")
	}
	if s.Faint {
		parts = append(parts, "opacity: 0.6")
	}
	if s.Italic {
		parts = append(parts, "font-style: italic")
	}
	if s.Underline {
		parts = append(parts, "text-decoration: underline")
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
