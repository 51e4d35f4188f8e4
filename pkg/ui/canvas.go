package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/roadwork/pkg/scene"
	"github.com/vanderheijden86/roadwork/pkg/viewport"
)

// cell is one terminal cell. A zero rune marks the right half of a wide
// rune and is skipped on output.
type cell struct {
	r     rune
	style int
}

// Canvas is a fixed-size grid of styled runes.
type Canvas struct {
	W, H   int
	cells  []cell
	styles []lipgloss.Style
	index  map[string]int
}

func newCanvas(w, h int) *Canvas {
	w, h = max(w, 0), max(h, 0)
	c := &Canvas{
		W:      w,
		H:      h,
		cells:  make([]cell, w*h),
		styles: []lipgloss.Style{{}},
		index:  map[string]int{"": 0},
	}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

// style registers s under key and returns its palette index.
func (c *Canvas) style(key string, s lipgloss.Style) int {
	if i, ok := c.index[key]; ok {
		return i
	}
	c.styles = append(c.styles, s)
	c.index[key] = len(c.styles) - 1
	return len(c.styles) - 1
}

func (c *Canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.W && y < c.H
}

func (c *Canvas) set(x, y int, r rune, style int) {
	if c.inside(x, y) {
		c.cells[y*c.W+x] = cell{r: r, style: style}
	}
}

// Rune returns the rune at x,y, or 0 outside the canvas.
func (c *Canvas) Rune(x, y int) rune {
	if !c.inside(x, y) {
		return 0
	}
	return c.cells[y*c.W+x].r
}

// text writes s starting at x,y, clipped to maxW display cells.
func (c *Canvas) text(x, y int, s string, maxW int, style int) {
	s = truncateRunesHelper(s, maxW, "…")
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if w == 2 && x+1 < c.W {
			c.set(x, y, r, style)
			c.set(x+1, y, 0, style)
		} else if w == 1 {
			c.set(x, y, r, style)
		}
		x += w
	}
}

// Plain returns the canvas without styling.
func (c *Canvas) Plain() string {
	var sb strings.Builder
	for y := 0; y < c.H; y++ {
		for x := 0; x < c.W; x++ {
			if r := c.cells[y*c.W+x].r; r != 0 {
				sb.WriteRune(r)
			}
		}
		if y < c.H-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Render returns the canvas with runs of equally styled cells rendered
// together.
func (c *Canvas) Render() string {
	var sb strings.Builder
	var run strings.Builder
	for y := 0; y < c.H; y++ {
		current := -1
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if current <= 0 {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(c.styles[current].Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < c.W; x++ {
			cl := c.cells[y*c.W+x]
			if cl.r == 0 {
				continue
			}
			if cl.style != current {
				flush()
				current = cl.style
			}
			run.WriteRune(cl.r)
		}
		flush()
		if y < c.H-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// toCell maps a canvas-space point through the viewport to a terminal cell
// relative to the canvas origin.
func toCell(tf viewport.Transform, p r2.Vec) (int, int) {
	s := tf.Apply(p)
	return int(math.Floor(s.X / CellWidth)), int(math.Floor(s.Y / CellHeight))
}

// cellCenter maps a terminal cell back to screen space.
func cellCenter(x, y int) r2.Vec {
	return r2.Vec{X: (float64(x) + 0.5) * CellWidth, Y: (float64(y) + 0.5) * CellHeight}
}

// drawScene rasterises sc: edges first, then node boxes over them.
func drawScene(c *Canvas, sc scene.Scene, tf viewport.Transform, th Theme) {
	edge := c.style("edge", th.Edge)
	edgeDim := c.style("edge-dim", th.EdgeDim)
	er := edgeRune
	if sc.Mode.Is3D() {
		er = edgeRune3D
	}

	for _, e := range sc.Edges {
		x0, y0 := toCell(tf, e.P0)
		x3, y3 := toCell(tf, e.P3)
		span := max(abs(x3-x0), abs(y3-y0))
		n := clampInt(span*2, 2, 800)
		style := edge
		if e.Opacity < 0.85 {
			style = edgeDim
		}
		for i := 0; i <= n; i++ {
			x, y := toCell(tf, e.Point(float64(i)/float64(n)))
			c.set(x, y, er, style)
		}
	}

	labels := make(map[string]string, len(sc.Labels))
	for _, l := range sc.Labels {
		labels[l.NodeID] = l.Text
	}
	for _, n := range sc.Nodes {
		drawNode(c, n, labels[n.ID], tf, th)
	}
}

func drawNode(c *Canvas, n scene.NodeShape, label string, tf viewport.Transform, th Theme) {
	half := r2.Vec{X: n.W / 2, Y: n.H / 2}
	x0, y0 := toCell(tf, r2.Sub(n.Center, half))
	x1, y1 := toCell(tf, r2.Add(n.Center, half))
	w, h := x1-x0, y1-y0

	key := "node-" + string(n.Type)
	st := th.NodeStyle(n.Type, n.Completed)
	if n.Completed {
		key = "node-done"
	}
	style := c.style(key, st)
	border := style
	if n.Selected {
		border = c.style("node-selected", th.Selected)
	}

	icon := n.Type.Icon()
	if n.Completed {
		icon = checkedMark
	}
	if label == "" {
		label = n.Title
	}

	// Too small for a box: draw a marker and the label beside it.
	if w < 4 || h < 3 {
		cx, cy := toCell(tf, n.Center)
		c.text(cx, cy, icon, 1, border)
		c.text(cx+2, cy, label, 18, style)
		return
	}

	tl, tr, bl, br, hz, vt := boxTL, boxTR, boxBL, boxBR, boxH, boxV
	if n.Selected {
		tl, tr, bl, br, hz, vt = boxTLSel, boxTRSel, boxBLSel, boxBRSel, boxHSel, boxVSel
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, hz, border)
		c.set(x, y1, hz, border)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, vt, border)
		c.set(x1, y, vt, border)
		for x := x0 + 1; x < x1; x++ {
			c.set(x, y, ' ', 0)
		}
	}
	c.set(x0, y0, tl, border)
	c.set(x1, y0, tr, border)
	c.set(x0, y1, bl, border)
	c.set(x1, y1, br, border)

	inner := w - 2
	c.text(x0+2, y0+1, icon+" "+label, inner-1, style)
	if h >= 4 {
		sub := string(n.Type)
		if n.Completed {
			sub += " " + checkedMark
		}
		c.text(x0+2, y0+2, sub, inner-1, c.style("muted", th.MutedText))
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
