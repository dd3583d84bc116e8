package film

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Config defines the frame geometry and default colours. A zero Width or
// Height sizes that dimension to the view being rendered.
type Config struct {
	Width      int        // Terminal width in cells
	Height     int        // Terminal height in cells
	Background color.RGBA // Background colour
	Foreground color.RGBA // Text colour when no SGR colour is set
}

// DefaultConfig returns a 100x32 dark terminal.
func DefaultConfig() Config {
	return Config{
		Width:      100,
		Height:     32,
		Background: color.RGBA{0x0d, 0x11, 0x17, 0xff},
		Foreground: color.RGBA{0xc9, 0xd1, 0xd9, 0xff},
	}
}

const (
	cellWidth  = 8
	cellHeight = 16
	baseline   = 12
)

// Renderer draws views onto images with the basic 7x13 bitmap font.
type Renderer struct {
	config Config
	face   font.Face
}

// NewRenderer creates a renderer for config.
func NewRenderer(config Config) *Renderer {
	return &Renderer{
		config: config,
		face:   basicfont.Face7x13,
	}
}

// Plain strips every escape sequence from view.
func Plain(view string) string {
	return ansi.Strip(view)
}

// Measure returns the widest line of view in cells and its line count.
func Measure(view string) (cols, rows int) {
	lines := strings.Split(view, "\n")
	for _, line := range lines {
		cols = max(cols, ansi.StringWidth(line))
	}
	return cols, len(lines)
}

// Render draws view into a new image. Lines and cells beyond the configured
// geometry are clipped.
func (r *Renderer) Render(view string) *image.RGBA {
	cols, rows := r.config.Width, r.config.Height
	if cols <= 0 || rows <= 0 {
		w, h := Measure(view)
		if cols <= 0 {
			cols = max(w, 1)
		}
		if rows <= 0 {
			rows = max(h, 1)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, cols*cellWidth, rows*cellHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.config.Background), image.Point{}, draw.Src)

	drawer := &font.Drawer{Dst: img, Face: r.face}
	for y, line := range Parse(view) {
		if y >= rows {
			break
		}
		for x, cell := range line {
			if x >= cols {
				break
			}
			r.drawCell(drawer, x, y, cell)
		}
	}
	return img
}

func (r *Renderer) drawCell(drawer *font.Drawer, x, y int, cell Cell) {
	fg, bg := r.config.Foreground, r.config.Background
	if cell.Style.HasFG {
		fg = cell.Style.FG
	}
	if cell.Style.HasBG {
		bg = cell.Style.BG
	}
	if cell.Style.Reverse {
		fg, bg = bg, fg
	}
	if cell.Style.Faint {
		fg = blend(fg, bg)
	}

	rect := image.Rect(x*cellWidth, y*cellHeight, (x+1)*cellWidth, (y+1)*cellHeight)
	if bg != r.config.Background {
		draw.Draw(drawer.Dst, rect, image.NewUniform(bg), image.Point{}, draw.Src)
	}
	if cell.Style.Underline {
		under := image.Rect(rect.Min.X, rect.Max.Y-2, rect.Max.X, rect.Max.Y-1)
		draw.Draw(drawer.Dst, under, image.NewUniform(fg), image.Point{}, draw.Src)
	}
	if cell.Content == "" || cell.Content == " " {
		return
	}

	drawer.Src = image.NewUniform(fg)
	dot := fixed.P(rect.Min.X, rect.Min.Y+baseline)
	drawer.Dot = dot
	drawer.DrawString(cell.Content)
	if cell.Style.Bold {
		drawer.Dot = dot.Add(fixed.P(1, 0))
		drawer.DrawString(cell.Content)
	}
}

func blend(a, b color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(a.R) + uint16(b.R)) / 2),
		G: uint8((uint16(a.G) + uint16(b.G)) / 2),
		B: uint8((uint16(a.B) + uint16(b.B)) / 2),
		A: 0xff,
	}
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

// WriteFrame renders view and saves it as a PNG at path, creating the
// directory if needed.
func (r *Renderer) WriteFrame(path, view string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create frame directory: %w", err)
	}

	if err := writePNG(path, r.Render(view)); err != nil {
		return fmt.Errorf("write frame %s: %w", filepath.Base(path), err)
	}
	return nil
}
