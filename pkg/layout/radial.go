package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Radial produces the 3D fan-out used by the roadmap globe view.
//
// Roots (phases, or any node without a known parent) sit on anchors spaced
// along X. Their children ring the anchor at Radius, evenly spread over 2π and
// dropped by VerticalOffset. Grandchildren ring their parent at
// SecondaryRadius, fanned around the parent's angle; only MaxGrandkids per
// parent are placed, the rest (and anything deeper) are reported as Hidden.
func Radial(rm *model.Roadmap, opts Options) Result {
	opts = opts.normalized()
	res := Result{
		Mode:      ModeRadial,
		Positions: make(map[string]model.Vec3),
	}
	if rm == nil || len(rm.Nodes) == 0 {
		return res
	}

	known := make(map[string]bool, len(rm.Nodes))
	for _, n := range rm.Nodes {
		known[n.ID] = true
	}
	children := make(map[string][]string, len(rm.Nodes))
	var roots []string
	for _, n := range rm.Nodes {
		if n.Parent == "" || n.Parent == n.ID || !known[n.Parent] {
			roots = append(roots, n.ID)
			continue
		}
		children[n.Parent] = append(children[n.Parent], n.ID)
	}

	placed := make(map[string]bool, len(rm.Nodes))
	place := func(id string, v r3.Vec) {
		res.Positions[id] = model.Vec3{X: v.X, Y: v.Y, Z: v.Z}
		res.Order = append(res.Order, id)
		placed[id] = true
	}

	for i, root := range roots {
		anchor := r3.Vec{X: float64(i) * opts.PhaseSpacing}
		place(root, anchor)

		kids := children[root]
		for j, kid := range kids {
			angle := float64(j) / float64(len(kids)) * 2 * math.Pi
			kidPos := r3.Add(anchor, ring(angle, opts.Radius, opts.VerticalOffset))
			place(kid, kidPos)

			grand := children[kid]
			visible := len(grand)
			if visible > opts.MaxGrandkids {
				visible = opts.MaxGrandkids
			}
			for g := 0; g < visible; g++ {
				offset := (float64(g) - float64(visible-1)/2) * opts.Spread
				place(grand[g], r3.Add(kidPos, ring(angle+offset, opts.SecondaryRadius, opts.SkillOffset)))
			}
		}
	}

	for _, n := range rm.Nodes {
		if !placed[n.ID] {
			res.Hidden = append(res.Hidden, n.ID)
		}
	}
	res.Bounds = boundsOf(res.Positions)
	return res
}

// ring returns the offset of a point on a horizontal circle of radius r at
// angle, lowered by dy.
func ring(angle, r, dy float64) r3.Vec {
	unit := r3.Vec{X: math.Cos(angle), Z: math.Sin(angle)}
	return r3.Add(r3.Scale(r, unit), r3.Vec{Y: dy})
}
