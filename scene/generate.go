package scene

import "math/rand"

// Vec3 is a point in scene space. Scenes are drawn looking down -Z, so Z
// only orders what is drawn over what.
type Vec3 struct {
	X, Y, Z float64
}

// Box is an axis-aligned volume centred on Offset.
type Box struct {
	Size   Vec3
	Offset Vec3
}

// ScatterBox places n points uniformly in box. The same rng seed always
// yields the same field.
func ScatterBox(rng *rand.Rand, n int, box Box) []Vec3 {
	points := make([]Vec3, n)
	for i := range points {
		points[i] = Vec3{
			X: (rng.Float64()-0.5)*box.Size.X + box.Offset.X,
			Y: (rng.Float64()-0.5)*box.Size.Y + box.Offset.Y,
			Z: (rng.Float64()-0.5)*box.Size.Z + box.Offset.Z,
		}
	}
	return points
}

// Particle boxes of the decorative backgrounds.
var (
	HeroField     = Box{Size: Vec3{20, 20, 20}}
	NetworkField  = Box{Size: Vec3{20, 20, 10}, Offset: Vec3{Z: -5}}
	FloatingField = Box{Size: Vec3{40, 80, 20}, Offset: Vec3{Z: -15}}
)

const (
	HeroCount     = 200
	NetworkCount  = 150
	FloatingCount = 100

	ConnectionOdds = 0.5
	NodeSpacing    = 1.2
)

// Layer is one column of nodes in the network scene.
type Layer struct {
	X     float64
	Nodes int
	Color string
}

// NetworkLayers is the five-column network drawn behind the walkthrough.
var NetworkLayers = []Layer{
	{X: -4, Nodes: 4, Color: "#3b82f6"},
	{X: -2, Nodes: 6, Color: "#8b5cf6"},
	{X: 0, Nodes: 8, Color: "#a855f7"},
	{X: 2, Nodes: 6, Color: "#d946ef"},
	{X: 4, Nodes: 4, Color: "#ec4899"},
}

// Column returns the node positions of l, centred vertically on zero.
func (l Layer) Column() []Vec3 {
	startY := -float64(l.Nodes-1) * NodeSpacing / 2
	nodes := make([]Vec3, l.Nodes)
	for i := range nodes {
		nodes[i] = Vec3{X: l.X, Y: startY + float64(i)*NodeSpacing}
	}
	return nodes
}

// Edge joins a node to a node of the next layer.
type Edge struct {
	From, To Vec3
	Color    string
}

// Connections links every node pair of adjacent layers with probability p.
func Connections(rng *rand.Rand, layers []Layer, p float64) []Edge {
	var edges []Edge
	for l := 0; l+1 < len(layers); l++ {
		from, to := layers[l].Column(), layers[l+1].Column()
		for _, a := range from {
			for _, b := range to {
				if rng.Float64() < p {
					edges = append(edges, Edge{From: a, To: b, Color: layers[l].Color})
				}
			}
		}
	}
	return edges
}

// Lerp returns the point a fraction t of the way along e.
func (e Edge) Lerp(t float64) Vec3 {
	return Vec3{
		X: e.From.X + (e.To.X-e.From.X)*t,
		Y: e.From.Y + (e.To.Y-e.From.Y)*t,
		Z: e.From.Z + (e.To.Z-e.From.Z)*t,
	}
}
