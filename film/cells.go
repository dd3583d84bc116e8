// Package film turns rendered terminal views into still frames: PNG images
// for the frame reel and visual regression checks against a baseline reel.
package film

import (
	"image/color"

	"github.com/charmbracelet/x/ansi"
)

// Style is the SGR state a cell was drawn with.
type Style struct {
	FG, BG       color.RGBA
	HasFG, HasBG bool
	Bold         bool
	Faint        bool
	Italic       bool
	Underline    bool
	Reverse      bool
}

// Cell is one terminal column of a parsed view. A grapheme wider than one
// column fills its first cell and leaves empty continuation cells (Width 0)
// behind it, so a line has as many cells as it has columns.
type Cell struct {
	Content string
	Width   int
	Style   Style
}

// Parse splits a view into lines of styled cells. SGR sequences set the style
// of the cells that follow; every other escape sequence and control character
// is dropped.
func Parse(view string) [][]Cell {
	var (
		lines [][]Cell
		line  []Cell
		style Style
		state byte
	)

	p := ansi.NewParser()
	for len(view) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(view, state, p)
		state = newState
		view = view[n:]

		switch {
		case width > 0:
			line = append(line, Cell{Content: seq, Width: width, Style: style})
			for i := 1; i < width; i++ {
				line = append(line, Cell{Style: style})
			}
		case seq == "\n":
			lines = append(lines, line)
			line = nil
		case ansi.HasCsiPrefix(seq) && state == ansi.NormalState:
			cmd := ansi.Cmd(p.Command())
			if cmd.Final() == 'm' && cmd.Prefix() == 0 && cmd.Intermediate() == 0 {
				style = applySGR(style, p.Params())
			}
		}
	}
	return append(lines, line)
}

func applySGR(s Style, params ansi.Params) Style {
	if len(params) == 0 {
		return Style{}
	}

	for i := 0; i < len(params); i++ {
		switch code := params[i].Param(0); {
		case code == 0:
			s = Style{}
		case code == 1:
			s.Bold = true
		case code == 2:
			s.Faint = true
		case code == 3:
			s.Italic = true
		case code == 4:
			s.Underline = true
		case code == 7:
			s.Reverse = true
		case code == 22:
			s.Bold, s.Faint = false, false
		case code == 23:
			s.Italic = false
		case code == 24:
			s.Underline = false
		case code == 27:
			s.Reverse = false
		case code >= 30 && code <= 37:
			s.FG, s.HasFG = Xterm(code-30), true
		case code >= 90 && code <= 97:
			s.FG, s.HasFG = Xterm(code-90+8), true
		case code >= 40 && code <= 47:
			s.BG, s.HasBG = Xterm(code-40), true
		case code >= 100 && code <= 107:
			s.BG, s.HasBG = Xterm(code-100+8), true
		case code == 39:
			s.HasFG = false
		case code == 49:
			s.HasBG = false
		case code == 38 || code == 48:
			c, used, ok := extendedColor(params[i+1:], params[i].HasMore())
			i += used
			if !ok {
				continue
			}
			if code == 38 {
				s.FG, s.HasFG = c, true
			} else {
				s.BG, s.HasBG = c, true
			}
		}
	}
	return s
}

// extendedColor reads the colour following a 38 or 48: "5;n" and "2;r;g;b",
// or with colon subparameters "5:n", "2:r:g:b" and "2:cs:r:g:b". It reports
// how many parameters it consumed.
func extendedColor(rest ansi.Params, colon bool) (color.RGBA, int, bool) {
	n := len(rest)
	if colon {
		n = 0
		for n < len(rest) {
			n++
			if !rest[n-1].HasMore() {
				break
			}
		}
	}
	if n == 0 {
		return color.RGBA{}, 0, false
	}

	v := func(i int) int { return rest[i].Param(0) }
	used := func(semicolon int) int {
		if colon {
			return n
		}
		return semicolon
	}

	switch v(0) {
	case 5:
		if n >= 2 {
			return Xterm(v(1)), used(2), true
		}
	case 2:
		if colon && n >= 5 {
			return rgb(v(2), v(3), v(4)), n, true
		}
		if n >= 4 {
			return rgb(v(1), v(2), v(3)), used(4), true
		}
	}
	return color.RGBA{}, used(1), false
}

func rgb(r, g, b int) color.RGBA {
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
}

var ansi16 = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xff}, {0xcd, 0x31, 0x31, 0xff}, {0x0d, 0xbc, 0x79, 0xff}, {0xe5, 0xe5, 0x10, 0xff},
	{0x24, 0x72, 0xc8, 0xff}, {0xbc, 0x3f, 0xbc, 0xff}, {0x11, 0xa8, 0xcd, 0xff}, {0xe5, 0xe5, 0xe5, 0xff},
	{0x66, 0x66, 0x66, 0xff}, {0xf1, 0x4c, 0x4c, 0xff}, {0x23, 0xd1, 0x8b, 0xff}, {0xf5, 0xf5, 0x43, 0xff},
	{0x3b, 0x8e, 0xea, 0xff}, {0xd6, 0x70, 0xd6, 0xff}, {0x29, 0xb8, 0xdb, 0xff}, {0xff, 0xff, 0xff, 0xff},
}

var cubeLevels = [6]uint8{0, 95, 135, 175, 215, 255}

// Xterm maps a 256-colour palette index to RGB.
func Xterm(index int) color.RGBA {
	switch {
	case index < 0:
		return ansi16[0]
	case index < 16:
		return ansi16[index]
	case index < 232:
		index -= 16
		return color.RGBA{
			R: cubeLevels[index/36],
			G: cubeLevels[(index/6)%6],
			B: cubeLevels[index%6],
			A: 0xff,
		}
	case index < 256:
		level := uint8(8 + (index-232)*10)
		return color.RGBA{R: level, G: level, B: level, A: 0xff}
	default:
		return ansi16[15]
	}
}
