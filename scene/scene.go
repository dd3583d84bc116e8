// Package scene draws the decorative backgrounds of the walkthrough as
// character art: seeded particle fields and a small layered network, chosen
// from a closed set of kinds and nudged by an eased pointer.
package scene

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Kind is the closed set of scenes.
type Kind uint8

const (
	KindNone Kind = iota
	KindParticleField
	KindFloatingField
	KindNeuralNetwork
)

var kindNames = map[Kind]string{
	KindNone:          "none",
	KindParticleField: "particles",
	KindFloatingField: "floating",
	KindNeuralNetwork: "network",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a config value to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("unknown scene kind %q", s)
}

// Scene holds the generated geometry of one kind. Geometry is fixed at
// construction; only the pointer and the frame counter move it.
type Scene struct {
	Kind      Kind
	Particles []Vec3
	Nodes     []Vec3
	Edges     []Edge
	Extent    float64 // half-width of the visible square in scene units
}

// New generates a scene of kind k from rng.
func New(k Kind, rng *rand.Rand) (*Scene, error) {
	s := &Scene{Kind: k, Extent: 6}
	switch k {
	case KindNone:
	case KindParticleField:
		s.Particles = ScatterBox(rng, HeroCount, HeroField)
		s.Extent = 10
	case KindFloatingField:
		s.Particles = ScatterBox(rng, FloatingCount, FloatingField)
		s.Extent = 20
	case KindNeuralNetwork:
		for _, layer := range NetworkLayers {
			s.Nodes = append(s.Nodes, layer.Column()...)
		}
		s.Edges = Connections(rng, NetworkLayers, ConnectionOdds)
		s.Particles = ScatterBox(rng, NetworkCount, NetworkField)
	default:
		return nil, fmt.Errorf("new scene: %w", errUnknownKind(k))
	}
	return s, nil
}

type errUnknownKind Kind

func (e errUnknownKind) Error() string {
	return fmt.Sprintf("unknown scene kind %d", uint8(e))
}

type renderer func(s *Scene, c *Canvas, view viewport, frame int)

var renderers = map[Kind]renderer{
	KindNone:          func(*Scene, *Canvas, viewport, int) {},
	KindParticleField: renderParticles,
	KindFloatingField: renderParticles,
	KindNeuralNetwork: renderNetwork,
}

// Render draws s onto c for the given frame. The pointer, when not nil,
// shifts the view so the scene leans toward it.
func Render(s *Scene, c *Canvas, p *Pointer, frame int) error {
	draw, ok := renderers[s.Kind]
	if !ok {
		return errUnknownKind(s.Kind)
	}
	c.Clear()
	draw(s, c, newViewport(s.Extent, p), frame)
	return nil
}

// viewport maps scene units onto canvas cells.
type viewport struct {
	extent         float64
	shiftX, shiftY float64
}

// parallax is how far, in scene units, the pointer can lean the view.
const parallax = 1.0

func newViewport(extent float64, p *Pointer) viewport {
	v := viewport{extent: extent}
	if p != nil {
		v.shiftX = (p.X - 0.5) * 2 * parallax
		v.shiftY = (p.Y - 0.5) * 2 * parallax
	}
	return v
}

func (v viewport) cell(c *Canvas, pt Vec3) (int, int) {
	x := (pt.X + v.shiftX + v.extent) / (2 * v.extent)
	y := (v.extent - (pt.Y + v.shiftY)) / (2 * v.extent)
	return int(math.Floor(x * float64(c.Width))), int(math.Floor(y * float64(c.Height)))
}

func renderParticles(s *Scene, c *Canvas, view viewport, frame int) {
	for i, pt := range s.Particles {
		col, row := view.cell(c, pt)
		glyph := '.'
		if (i+frame/8)%7 == 0 {
			glyph = '*'
		}
		c.Set(col, row, glyph)
	}
}

func renderNetwork(s *Scene, c *Canvas, view viewport, frame int) {
	for _, pt := range s.Particles {
		col, row := view.cell(c, pt)
		c.Set(col, row, '.')
	}
	for _, e := range s.Edges {
		x0, y0 := view.cell(c, e.From)
		x1, y1 := view.cell(c, e.To)
		c.Line(x0, y0, x1, y1, '·')
	}
	// Data particles travel the first edges.
	for i, e := range s.Edges {
		if i >= maxDataParticles {
			break
		}
		t := math.Mod(float64(frame+i*7)/40, 1)
		col, row := view.cell(c, e.Lerp(t))
		c.Set(col, row, '•')
	}
	for _, pt := range s.Nodes {
		col, row := view.cell(c, pt)
		c.Set(col, row, 'O')
	}
}

const maxDataParticles = 10
