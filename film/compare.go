package film

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// DefaultTolerance is the share of pixels allowed to differ from a baseline.
const DefaultTolerance = 0.05

var diffMark = color.RGBA{0xff, 0x00, 0x00, 0xff}

// Comparison is the outcome of comparing a frame with its baseline.
type Comparison struct {
	Difference float64     // share of differing pixels, 1 when the sizes differ
	Diff       *image.RGBA // differing pixels in red over the dimmed baseline
}

// Compare measures how far current drifted from baseline.
func Compare(baseline, current image.Image) Comparison {
	bounds := baseline.Bounds()
	diff := image.NewRGBA(bounds.Union(current.Bounds()))

	sameSize := bounds == current.Bounds()
	total := bounds.Dx() * bounds.Dy()
	differing := 0

	for y := diff.Rect.Min.Y; y < diff.Rect.Max.Y; y++ {
		for x := diff.Rect.Min.X; x < diff.Rect.Max.X; x++ {
			p := image.Pt(x, y)
			if !p.In(bounds) || !p.In(current.Bounds()) {
				diff.SetRGBA(x, y, diffMark)
				continue
			}

			base := baseline.At(x, y)
			if !sameColor(base, current.At(x, y)) {
				differing++
				diff.SetRGBA(x, y, diffMark)
				continue
			}

			r, g, b, _ := base.RGBA()
			diff.SetRGBA(x, y, color.RGBA{uint8(r >> 9), uint8(g >> 9), uint8(b >> 9), 0xff})
		}
	}

	result := Comparison{Diff: diff, Difference: 1}
	if sameSize && total > 0 {
		result.Difference = float64(differing) / float64(total)
	}
	return result
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

// LoadFrame reads a PNG frame from path.
func LoadFrame(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// RegressionError reports a frame that drifted past the tolerance.
type RegressionError struct {
	Name       string
	Difference float64
	Tolerance  float64
	DiffPath   string
}

func (e *RegressionError) Error() string {
	return fmt.Sprintf("visual regression in %s: %.2f%% difference (tolerance: %.2f%%)",
		e.Name, e.Difference*100, e.Tolerance*100)
}

// Supervisor compares a reel of frames against a baseline reel. Frames are
// addressed by name, stored as <dir>/<name>.png.
type Supervisor struct {
	BaselineDir string
	CurrentDir  string
	Tolerance   float64
}

// NewSupervisor creates a supervisor with DefaultTolerance.
func NewSupervisor(baselineDir, currentDir string) *Supervisor {
	return &Supervisor{
		BaselineDir: baselineDir,
		CurrentDir:  currentDir,
		Tolerance:   DefaultTolerance,
	}
}

// Check compares one frame. A drift past the tolerance writes
// <current>/<name>_diff.png and returns a *RegressionError.
func (s *Supervisor) Check(name string) error {
	baseline, err := LoadFrame(filepath.Join(s.BaselineDir, name+".png"))
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}
	current, err := LoadFrame(filepath.Join(s.CurrentDir, name+".png"))
	if err != nil {
		return fmt.Errorf("load current: %w", err)
	}

	cmp := Compare(baseline, current)
	if cmp.Difference <= s.Tolerance {
		return nil
	}

	regression := &RegressionError{Name: name, Difference: cmp.Difference, Tolerance: s.Tolerance}
	diffPath := filepath.Join(s.CurrentDir, name+"_diff.png")
	if err := writePNG(diffPath, cmp.Diff); err != nil {
		log.Warn().Err(err).Str("frame", name).Msg("Failed to write diff image")
	} else {
		regression.DiffPath = diffPath
	}
	return regression
}

// Promote copies the current frame over its baseline.
func (s *Supervisor) Promote(name string) error {
	if err := os.MkdirAll(s.BaselineDir, 0o755); err != nil {
		return fmt.Errorf("create baseline directory: %w", err)
	}

	input, err := os.Open(filepath.Join(s.CurrentDir, name+".png"))
	if err != nil {
		return err
	}
	defer input.Close()

	output, err := os.Create(filepath.Join(s.BaselineDir, name+".png"))
	if err != nil {
		return err
	}
	if _, err := io.Copy(output, input); err != nil {
		_ = output.Close()
		return err
	}
	return output.Close()
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, img); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
