package scene

import "strings"

// Canvas is a fixed grid of runes. Writes outside the grid are dropped.
type Canvas struct {
	Width, Height int
	cells         [][]rune
}

// NewCanvas returns a blank width x height canvas.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{Width: width, Height: height, cells: make([][]rune, height)}
	for i := range c.cells {
		c.cells[i] = make([]rune, width)
	}
	c.Clear()
	return c
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for _, row := range c.cells {
		for i := range row {
			row[i] = ' '
		}
	}
}

// Set writes r at col,row.
func (c *Canvas) Set(col, row int, r rune) {
	if col < 0 || row < 0 || col >= c.Width || row >= c.Height {
		return
	}
	c.cells[row][col] = r
}

// At returns the rune at col,row, or zero outside the grid.
func (c *Canvas) At(col, row int) rune {
	if col < 0 || row < 0 || col >= c.Width || row >= c.Height {
		return 0
	}
	return c.cells[row][col]
}

// Line draws from x0,y0 to x1,y1 with Bresenham's algorithm, leaving
// non-blank cells alone.
func (c *Canvas) Line(x0, y0, x1, y1 int, r rune) {
	dx, sx := abs(x1-x0), sign(x1-x0)
	dy, sy := -abs(y1-y0), sign(y1-y0)
	err := dx + dy
	for {
		if c.At(x0, y0) == ' ' {
			c.Set(x0, y0, r)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// String joins the rows, trailing blanks trimmed.
func (c *Canvas) String() string {
	lines := make([]string, len(c.cells))
	for i, row := range c.cells {
		lines[i] = strings.TrimRight(string(row), " ")
	}
	return strings.Join(lines, "\n")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
