package scene

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScatterBox(t *testing.T) {
	points := ScatterBox(rand.New(rand.NewSource(7)), NetworkCount, NetworkField)
	require.Len(t, points, NetworkCount)

	for _, p := range points {
		assert.True(t, p.X >= -10 && p.X < 10, "x %v", p.X)
		assert.True(t, p.Y >= -10 && p.Y < 10, "y %v", p.Y)
		assert.True(t, p.Z >= -10 && p.Z < 0, "z %v", p.Z)
	}

	again := ScatterBox(rand.New(rand.NewSource(7)), NetworkCount, NetworkField)
	assert.Equal(t, points, again, "same seed, same field")
}

func TestLayerColumn(t *testing.T) {
	nodes := Layer{X: 2, Nodes: 4}.Column()
	require.Len(t, nodes, 4)

	assert.InDelta(t, -1.8, nodes[0].Y, 1e-9)
	assert.InDelta(t, 1.8, nodes[3].Y, 1e-9)
	for i := 1; i < len(nodes); i++ {
		assert.InDelta(t, NodeSpacing, nodes[i].Y-nodes[i-1].Y, 1e-9)
		assert.Equal(t, 2.0, nodes[i].X)
	}
}

func TestConnections(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	assert.Empty(t, Connections(rng, NetworkLayers, 0))

	all := Connections(rng, NetworkLayers, 1)
	assert.Len(t, all, 4*6+6*8+8*6+6*4)

	some := Connections(rand.New(rand.NewSource(1)), NetworkLayers, ConnectionOdds)
	assert.Greater(t, len(some), 0)
	assert.Less(t, len(some), len(all))
	for _, e := range some {
		assert.InDelta(t, 2, e.To.X-e.From.X, 1e-9, "edges only join adjacent layers")
	}

	mid := all[0].Lerp(0.5)
	assert.InDelta(t, (all[0].From.X+all[0].To.X)/2, mid.X, 1e-9)
}

func TestPointer(t *testing.T) {
	p := NewPointer(EaseCover)
	p.Move(100, 0, 100, 50)

	x, y := p.Target()
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 1.0, y, "row zero is the top")

	p.Step()
	assert.InDelta(t, 0.5+0.5*EaseCover, p.X, 1e-9)

	for i := 0; i < 500; i++ {
		p.Step()
	}
	assert.InDelta(t, 1.0, p.X, 1e-6)
	assert.InDelta(t, 1.0, p.Y, 1e-6)

	t.Run("overlay eases slower", func(t *testing.T) {
		slow, fast := NewPointer(EaseOverlay), NewPointer(EaseCover)
		slow.Move(0, 0, 10, 10)
		fast.Move(0, 0, 10, 10)
		slow.Step()
		fast.Step()
		assert.Greater(t, slow.X, fast.X)
	})

	t.Run("degenerate grid ignored", func(t *testing.T) {
		p := NewPointer(EaseOverlay)
		p.Move(3, 3, 0, 0)
		x, y := p.Target()
		assert.Equal(t, 0.5, x)
		assert.Equal(t, 0.5, y)
	})
}

func TestKind(t *testing.T) {
	for k, name := range kindNames {
		parsed, err := ParseKind(strings.ToUpper(name))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.Equal(t, name, k.String())
	}

	_, err := ParseKind("mercury")
	assert.ErrorContains(t, err, "unknown scene kind")
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestRender(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	t.Run("network", func(t *testing.T) {
		s, err := New(KindNeuralNetwork, rng)
		require.NoError(t, err)
		assert.Len(t, s.Nodes, 28)
		assert.Len(t, s.Particles, NetworkCount)

		c := NewCanvas(60, 20)
		require.NoError(t, Render(s, c, nil, 0))
		assert.Equal(t, 28, strings.Count(c.String(), "O")+overlap(s, c), "every node drawn")
		assert.Contains(t, c.String(), "·")
	})

	t.Run("pointer leans the view", func(t *testing.T) {
		s, err := New(KindNeuralNetwork, rand.New(rand.NewSource(3)))
		require.NoError(t, err)

		centred, leaned := NewCanvas(60, 20), NewCanvas(60, 20)
		require.NoError(t, Render(s, centred, NewPointer(EaseCover), 0))

		p := NewPointer(1)
		p.Move(60, 0, 60, 20)
		p.Step()
		require.NoError(t, Render(s, leaned, p, 0))

		assert.NotEqual(t, centred.String(), leaned.String())
	})

	t.Run("particles", func(t *testing.T) {
		s, err := New(KindParticleField, rng)
		require.NoError(t, err)
		c := NewCanvas(40, 20)
		require.NoError(t, Render(s, c, nil, 0))
		assert.NotEmpty(t, strings.TrimSpace(c.String()))
	})

	t.Run("none is blank", func(t *testing.T) {
		s, err := New(KindNone, rng)
		require.NoError(t, err)
		c := NewCanvas(10, 3)
		c.Set(1, 1, 'x')
		require.NoError(t, Render(s, c, nil, 0))
		assert.Equal(t, "\n\n", c.String())
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := New(Kind(9), rng)
		assert.ErrorContains(t, err, "unknown scene kind 9")
		assert.Error(t, Render(&Scene{Kind: Kind(9)}, NewCanvas(1, 1), nil, 0))
	})
}

// overlap counts nodes sharing a cell with an earlier node.
func overlap(s *Scene, c *Canvas) int {
	view := newViewport(s.Extent, nil)
	seen := map[[2]int]bool{}
	dup := 0
	for _, n := range s.Nodes {
		col, row := view.cell(c, n)
		key := [2]int{col, row}
		if seen[key] {
			dup++
		}
		seen[key] = true
	}
	return dup
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(5, 5)
	c.Line(0, 0, 4, 4, '\\')
	for i := 0; i < 5; i++ {
		assert.Equal(t, '\\', c.At(i, i))
	}

	c.Set(2, 0, 'O')
	c.Line(0, 0, 4, 0, '-')
	assert.Equal(t, 'O', c.At(2, 0), "lines never overwrite")
	assert.Equal(t, rune(0), c.At(-1, 0))
}
