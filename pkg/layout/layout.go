// Package layout assigns canvas coordinates to roadmap nodes.
//
// Every layout is a pure function of the node order and the options: the same
// input always yields the same positions, so re-renders never jitter.
package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Mode selects a placement strategy.
type Mode string

const (
	ModeGrid    Mode = "grid"
	ModeRadial  Mode = "radial"
	ModeLayered Mode = "layered"
)

// Modes lists the available modes in cycling order.
var Modes = []Mode{ModeGrid, ModeLayered, ModeRadial}

// ParseMode resolves a user supplied mode name. "3d" is accepted as an alias
// for radial.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grid":
		return ModeGrid, nil
	case "radial", "3d":
		return ModeRadial, nil
	case "layered", "layers":
		return ModeLayered, nil
	default:
		return "", fmt.Errorf("unknown layout mode %q (want grid, layered or radial)", s)
	}
}

// Is3D reports whether the mode produces depth coordinates.
func (m Mode) Is3D() bool { return m == ModeRadial }

// Next returns the mode after m in Modes.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Modes[0]
}

// MaxGrandchildren bounds how many skills are drawn around one milestone.
const MaxGrandchildren = 3

// Options holds the geometry used by all modes.
type Options struct {
	ColumnWidth float64
	RowHeight   float64

	PhaseSpacing    float64 // distance between radial anchors along X
	Radius          float64 // milestone ring radius
	SecondaryRadius float64 // skill ring radius around a milestone
	VerticalOffset  float64 // Y offset of milestones from their anchor
	SkillOffset     float64 // Y offset of skills from their milestone
	Spread          float64 // angle between neighbouring skills, radians
	MaxGrandkids    int
}

// DefaultOptions returns the compact preset.
func DefaultOptions() Options {
	return Options{
		ColumnWidth:     220,
		RowHeight:       110,
		PhaseSpacing:    12,
		Radius:          3,
		SecondaryRadius: 1.2,
		VerticalOffset:  -1.5,
		SkillOffset:     -1,
		Spread:          math.Pi / 6,
		MaxGrandkids:    MaxGrandchildren,
	}
}

// Preset returns options for a named preset: "compact" (default) or "roomy".
func Preset(name string) Options {
	opts := DefaultOptions()
	if strings.EqualFold(name, "roomy") {
		opts.ColumnWidth = 280
		opts.RowHeight = 140
		opts.PhaseSpacing = 16
		opts.Radius = 4
		opts.SecondaryRadius = 1.6
	}
	return opts
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.ColumnWidth <= 0 {
		o.ColumnWidth = d.ColumnWidth
	}
	if o.RowHeight <= 0 {
		o.RowHeight = d.RowHeight
	}
	if o.PhaseSpacing <= 0 {
		o.PhaseSpacing = d.PhaseSpacing
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.SecondaryRadius <= 0 {
		o.SecondaryRadius = d.SecondaryRadius
	}
	if o.Spread <= 0 {
		o.Spread = d.Spread
	}
	if o.MaxGrandkids <= 0 || o.MaxGrandkids > MaxGrandchildren {
		o.MaxGrandkids = MaxGrandchildren
	}
	return o
}

// Bounds is the axis-aligned box containing a layout.
type Bounds struct {
	Min model.Vec3 `json:"min"`
	Max model.Vec3 `json:"max"`
}

// Width returns the X extent.
func (b Bounds) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the Y extent.
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Contains reports whether p lies inside b, inclusive.
func (b Bounds) Contains(p model.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Result is the output of a layout pass.
type Result struct {
	Mode      Mode                  `json:"mode"`
	Positions map[string]model.Vec3 `json:"positions"`
	Order     []string              `json:"order"`
	Bounds    Bounds                `json:"bounds"`
	Columns   int                   `json:"columns,omitempty"`
	Rows      int                   `json:"rows,omitempty"`
	Hidden    []string              `json:"hidden,omitempty"`
}

// Position returns the position for id.
func (r Result) Position(id string) (model.Vec3, bool) {
	p, ok := r.Positions[id]
	return p, ok
}

// Compute runs the layout for mode over the roadmap's nodes.
func Compute(rm *model.Roadmap, mode Mode, opts Options) Result {
	defer metrics.Timer(metrics.Layout)()
	opts = opts.normalized()

	var res Result
	switch mode {
	case ModeRadial:
		res = Radial(rm, opts)
	case ModeLayered:
		res = Layered(rm, opts)
	default:
		res = Grid(nodeIDs(rm), opts)
	}
	debug.Log("layout %s: %d positioned, %d hidden", res.Mode, len(res.Positions), len(res.Hidden))
	return res
}

// Apply writes computed positions back onto the roadmap's nodes. Hidden
// nodes keep their previous position.
func Apply(rm *model.Roadmap, res Result) {
	for i := range rm.Nodes {
		if p, ok := res.Positions[rm.Nodes[i].ID]; ok {
			rm.Nodes[i].Position = p
		}
	}
}

func nodeIDs(rm *model.Roadmap) []string {
	if rm == nil {
		return nil
	}
	ids := make([]string, len(rm.Nodes))
	for i, n := range rm.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func boundsOf(positions map[string]model.Vec3) Bounds {
	var b Bounds
	first := true
	for _, p := range positions {
		if first {
			b.Min, b.Max = p, p
			first = false
			continue
		}
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}
