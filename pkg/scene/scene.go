// Package scene turns a roadmap and its layout into a retained-mode list of
// drawables (node shapes, connection edges, labels). A scene is rebuilt
// whenever positions change; renderers (terminal canvas, SVG, PNG) only read
// it.
package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Node box sizes in canvas units.
const (
	NodeWidth    = 170.0
	NodeHeight   = 70.0
	Node3DSize   = 60.0
	Scale3D      = 48.0 // canvas units per radial world unit
	Margin3D     = 60.0
	MaxLabelRune = 40
)

// NodeShape is a drawable node box centred on Center.
type NodeShape struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Type      model.NodeType `json:"type"`
	Completed bool           `json:"completed"`
	Selected  bool           `json:"selected,omitempty"`
	Center    r2.Vec         `json:"center"`
	World     model.Vec3     `json:"world"`
	W         float64        `json:"w"`
	H         float64        `json:"h"`
}

// Contains reports whether canvas point p lies within the box.
func (n NodeShape) Contains(p r2.Vec) bool {
	return math.Abs(p.X-n.Center.X) <= n.W/2 && math.Abs(p.Y-n.Center.Y) <= n.H/2
}

// Label is text anchored below-left of a node's top edge.
type Label struct {
	NodeID string `json:"node_id"`
	At     r2.Vec `json:"at"`
	Text   string `json:"text"`
}

// Scene is the full drawable list for one frame. Draw order is Edges, Nodes,
// Labels.
type Scene struct {
	Mode   layout.Mode `json:"mode"`
	Title  string      `json:"title"`
	Edges  []Edge      `json:"edges"`
	Nodes  []NodeShape `json:"nodes"`
	Labels []Label     `json:"labels"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Hidden []string    `json:"hidden,omitempty"`
}

// Options tweaks a build.
type Options struct {
	Selected string
	// Pulse is the decorative animation phase in radians.
	Pulse float64
}

// Build produces the scene for rm using the positions in res. Nodes that the
// layout hid are skipped along with their connections.
func Build(rm *model.Roadmap, res layout.Result, opts Options) Scene {
	defer metrics.Timer(metrics.SceneBuild)()

	sc := Scene{Mode: res.Mode, Hidden: res.Hidden}
	if rm == nil {
		return sc
	}
	sc.Title = rm.Title

	is3D := res.Mode.Is3D()
	canvas := make(map[string]r2.Vec, len(res.Positions))
	offset := r2.Vec{}
	if is3D {
		minX, minY := math.Inf(1), math.Inf(1)
		for _, p := range res.Positions {
			q := Project(p)
			minX = math.Min(minX, q.X)
			minY = math.Min(minY, q.Y)
		}
		if len(res.Positions) > 0 {
			offset = r2.Vec{X: Margin3D - minX, Y: Margin3D - minY}
		}
	}
	for id, p := range res.Positions {
		if is3D {
			canvas[id] = r2.Add(Project(p), offset)
		} else {
			canvas[id] = r2.Vec{X: p.X, Y: p.Y}
		}
	}

	w, h := NodeWidth, NodeHeight
	if is3D {
		w, h = Node3DSize, Node3DSize
	}
	for _, n := range rm.Nodes {
		c, ok := canvas[n.ID]
		if !ok {
			continue
		}
		sc.Nodes = append(sc.Nodes, NodeShape{
			ID:        n.ID,
			Title:     n.Title,
			Type:      n.Type,
			Completed: n.Completed,
			Selected:  n.ID == opts.Selected,
			Center:    c,
			World:     res.Positions[n.ID],
			W:         w,
			H:         h,
		})
		sc.Labels = append(sc.Labels, Label{
			NodeID: n.ID,
			At:     r2.Vec{X: c.X - w/2 + 8, Y: c.Y - h/2 + 16},
			Text:   truncate(n.Title, MaxLabelRune),
		})
	}

	sc.Edges = Connect(rm.Connections, canvas, res.Positions, is3D)
	opacity := 0.75 + 0.25*math.Sin(opts.Pulse)
	for i := range sc.Edges {
		sc.Edges[i].Opacity = opacity
	}

	if is3D {
		for _, n := range sc.Nodes {
			sc.Width = math.Max(sc.Width, n.Center.X+w/2+Margin3D)
			sc.Height = math.Max(sc.Height, n.Center.Y+h/2+Margin3D)
		}
	} else {
		sc.Width = res.Bounds.Max.X
		sc.Height = res.Bounds.Max.Y
	}
	return sc
}

// Project maps a 3D layout point onto the canvas with an isometric view.
// Y is up in layout space and down on the canvas.
func Project(p model.Vec3) r2.Vec {
	const cos30, sin30 = 0.8660254037844386, 0.5
	return r2.Vec{
		X: (p.X - p.Z) * cos30 * Scale3D,
		Y: ((p.X+p.Z)*sin30 - p.Y) * Scale3D,
	}
}

// HitTest returns the topmost node containing canvas point p.
func (s Scene) HitTest(p r2.Vec) (string, bool) {
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		if s.Nodes[i].Contains(p) {
			return s.Nodes[i].ID, true
		}
	}
	return "", false
}

// Node returns the shape for id.
func (s Scene) Node(id string) (NodeShape, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeShape{}, false
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
