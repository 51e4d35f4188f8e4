package scene

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Edge is a drawable connection. Curved edges are cubic Béziers; straight
// edges keep C1 == P0 and C2 == P3 so the same evaluation code applies.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation,omitempty"`
	Straight bool   `json:"straight,omitempty"`

	P0 r2.Vec `json:"p0"`
	C1 r2.Vec `json:"c1"`
	C2 r2.Vec `json:"c2"`
	P3 r2.Vec `json:"p3"`

	// A3/B3 are the 3D endpoints of straight edges.
	A3 model.Vec3 `json:"a3,omitzero"`
	B3 model.Vec3 `json:"b3,omitzero"`

	// Opacity is decorative. It never affects geometry or hit testing.
	Opacity float64 `json:"opacity"`
}

// Curve returns the 2D connector between two node centres: a cubic Bézier
// whose control points sit at the horizontal midpoint, level with each
// endpoint, giving horizontal tangents at both ends.
func Curve(from, to r2.Vec) Edge {
	midX := (from.X + to.X) / 2
	return Edge{
		P0:      from,
		C1:      r2.Vec{X: midX, Y: from.Y},
		C2:      r2.Vec{X: midX, Y: to.Y},
		P3:      to,
		Opacity: 1,
	}
}

// Segment returns a straight connector. a3/b3 are kept for 3D consumers.
func Segment(from, to r2.Vec, a3, b3 model.Vec3) Edge {
	return Edge{
		Straight: true,
		P0:       from,
		C1:       from,
		C2:       to,
		P3:       to,
		A3:       a3,
		B3:       b3,
		Opacity:  1,
	}
}

// Point evaluates the edge at t in [0,1].
func (e Edge) Point(t float64) r2.Vec {
	if e.Straight {
		return r2.Add(e.P0, r2.Scale(t, r2.Sub(e.P3, e.P0)))
	}
	u := 1 - t
	p := r2.Scale(u*u*u, e.P0)
	p = r2.Add(p, r2.Scale(3*u*u*t, e.C1))
	p = r2.Add(p, r2.Scale(3*u*t*t, e.C2))
	return r2.Add(p, r2.Scale(t*t*t, e.P3))
}

// Flatten samples the edge into n+1 points, endpoints included.
func (e Edge) Flatten(n int) []r2.Vec {
	if n < 1 || e.Straight {
		return []r2.Vec{e.P0, e.P3}
	}
	pts := make([]r2.Vec, 0, n+1)
	for i := 0; i <= n; i++ {
		pts = append(pts, e.Point(float64(i)/float64(n)))
	}
	return pts
}

// Connect renders every connection whose endpoints both have a canvas
// position. Connections referencing unknown nodes produce nothing.
func Connect(conns []model.Connection, canvas map[string]r2.Vec, world map[string]model.Vec3, straight bool) []Edge {
	edges := make([]Edge, 0, len(conns))
	for _, c := range conns {
		from, okFrom := canvas[c.From]
		to, okTo := canvas[c.To]
		if !okFrom || !okTo {
			continue
		}
		var e Edge
		if straight {
			e = Segment(from, to, world[c.From], world[c.To])
		} else {
			e = Curve(from, to)
		}
		e.From = c.From
		e.To = c.To
		e.Relation = c.Relation
		edges = append(edges, e)
	}
	return edges
}
