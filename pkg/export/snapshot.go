package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/progress"
	"github.com/vanderheijden86/roadwork/pkg/scene"
)

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path     string // Output path; format inferred from extension when Format empty
	Format   string // "svg" or "png" (case-insensitive)
	Title    string // Rendered in the summary block; defaults to the scene title
	Progress progress.Summary
}

const (
	padding      = 36.0
	headerHeight = 140.0
	minWidth     = 640
	minHeight    = 480
)

// frame is a scene placed on a page with a summary header.
type frame struct {
	Scene   scene.Scene
	Width   int
	Height  int
	Offset  r2.Vec
	Title   string
	Summary []string
}

// SaveSnapshot renders sc to a static SVG or PNG file.
func SaveSnapshot(sc scene.Scene, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.Snapshot)()

	format, path, err := resolveImageFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fr := newFrame(sc, opts)
	switch format {
	case FormatSVG:
		err = writeSVG(f, fr)
	case FormatPNG:
		err = writePNG(f, fr)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteSVG renders sc as SVG to w.
func WriteSVG(w io.Writer, sc scene.Scene, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.Snapshot)()
	return writeSVG(w, newFrame(sc, opts))
}

// WritePNG renders sc as PNG to w.
func WritePNG(w io.Writer, sc scene.Scene, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.Snapshot)()
	return writePNG(w, newFrame(sc, opts))
}

func resolveImageFormat(explicit, path string) (Format, string, error) {
	format, path, err := InferFormat(explicit, path)
	if err != nil {
		return "", "", err
	}
	if format != FormatSVG && format != FormatPNG {
		return "", "", fmt.Errorf("unsupported snapshot format %q (want svg or png)", format)
	}
	return format, path, nil
}

func newFrame(sc scene.Scene, opts SnapshotOptions) frame {
	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = sc.Title
	}
	if strings.TrimSpace(title) == "" {
		title = "Roadmap Snapshot"
	}

	width := int(math.Ceil(sc.Width + padding*2))
	if width < minWidth {
		width = minWidth
	}
	height := int(math.Ceil(sc.Height + padding*2 + headerHeight))
	if height < minHeight {
		height = minHeight
	}

	summary := []string{
		fmt.Sprintf("layout: %s  nodes: %d  connections: %d", sc.Mode, len(sc.Nodes), len(sc.Edges)),
		fmt.Sprintf("progress: %s", opts.Progress),
	}
	if len(sc.Hidden) > 0 {
		summary = append(summary, fmt.Sprintf("hidden: %d (more than %d skills per milestone)", len(sc.Hidden), layout.MaxGrandchildren))
	}

	return frame{
		Scene:   sc,
		Width:   width,
		Height:  height,
		Offset:  r2.Vec{X: padding, Y: padding + headerHeight},
		Title:   title,
		Summary: summary,
	}
}

func (f frame) at(p r2.Vec) r2.Vec { return r2.Add(p, f.Offset) }

// --- rendering -------------------------------------------------------------

var (
	colorDone      = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorPhase     = color.RGBA{0xd1, 0xc4, 0xe9, 0xff}
	colorMilestone = color.RGBA{0xbb, 0xde, 0xfb, 0xff}
	colorSkill     = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorWork      = color.RGBA{0xff, 0xe0, 0xb2, 0xff} // project, internship
	colorCredit    = color.RGBA{0xf8, 0xbb, 0xd0, 0xff} // certification, course
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorSelected  = color.RGBA{0xe5, 0x39, 0x35, 0xff}
	colorEdge      = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG  = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func nodeColor(n scene.NodeShape) color.RGBA {
	if n.Completed {
		return colorDone
	}
	switch n.Type {
	case model.TypePhase:
		return colorPhase
	case model.TypeMilestone:
		return colorMilestone
	case model.TypeProject, model.TypeInternship:
		return colorWork
	case model.TypeCertification, model.TypeCourse:
		return colorCredit
	default:
		return colorSkill
	}
}

type legendEntry struct {
	Color color.RGBA
	Label string
}

var legend = []legendEntry{
	{colorPhase, "Phase"},
	{colorMilestone, "Milestone"},
	{colorSkill, "Skill"},
	{colorWork, "Project / Internship"},
	{colorCredit, "Course / Certification"},
	{colorDone, "Completed"},
}

// arrowAt returns the midpoint of e and its unit tangent there.
func arrowAt(e scene.Edge) (r2.Vec, r2.Vec) {
	mid := e.Point(0.5)
	dir := r2.Sub(e.Point(0.55), e.Point(0.45))
	if n := r2.Norm(dir); n > 0 {
		dir = r2.Scale(1/n, dir)
	} else {
		dir = r2.Vec{X: 1}
	}
	return mid, dir
}

// arrowHead returns the three corners of an arrow pointing along dir at tip.
func arrowHead(tip, dir r2.Vec) [3]r2.Vec {
	const length, half = 8.0, 4.0
	back := r2.Sub(tip, r2.Scale(length, dir))
	perp := r2.Vec{X: -dir.Y, Y: dir.X}
	return [3]r2.Vec{
		tip,
		r2.Add(back, r2.Scale(half, perp)),
		r2.Sub(back, r2.Scale(half, perp)),
	}
}

func writeSVG(w io.Writer, f frame) error {
	canvas := svg.New(w)
	canvas.Start(f.Width, f.Height)
	canvas.Title(f.Title)
	canvas.Rect(0, 0, f.Width, f.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, f.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, f)
	drawLegendSVG(canvas, f)

	canvas.Gid("edges")
	for _, e := range f.Scene.Edges {
		p0, c1, c2, p3 := f.at(e.P0), f.at(e.C1), f.at(e.C2), f.at(e.P3)
		style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:2;stroke-opacity:%.2f", css(colorEdge), e.Opacity)
		if e.Straight {
			canvas.Line(int(p0.X), int(p0.Y), int(p3.X), int(p3.Y), style)
		} else {
			canvas.Path(fmt.Sprintf("M%.1f,%.1f C%.1f,%.1f %.1f,%.1f %.1f,%.1f",
				p0.X, p0.Y, c1.X, c1.Y, c2.X, c2.Y, p3.X, p3.Y), style)
		}
		mid, dir := arrowAt(e)
		head := arrowHead(f.at(mid), dir)
		canvas.Polygon(
			[]int{int(head[0].X), int(head[1].X), int(head[2].X)},
			[]int{int(head[0].Y), int(head[1].Y), int(head[2].Y)},
			fmt.Sprintf("fill:%s;fill-opacity:%.2f", css(colorEdge), e.Opacity),
		)
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range f.Scene.Nodes {
		c := f.at(n.Center)
		x, y := int(c.X-n.W/2), int(c.Y-n.H/2)
		stroke, width := colorStroke, 1.2
		if n.Selected {
			stroke, width = colorSelected, 3
		}
		canvas.Roundrect(x, y, int(n.W), int(n.H), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(nodeColor(n)), css(stroke), width))
		canvas.Text(x+8, y+16, n.Type.Icon()+" "+string(n.Type),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
	}
	canvas.Gend()

	canvas.Gid("labels")
	for _, l := range f.Scene.Labels {
		at := f.at(l.At)
		canvas.Text(int(at.X), int(at.Y)+18, l.Text,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;font-weight:bold", css(colorText)))
	}
	canvas.Gend()

	canvas.End()
	return nil
}

func writePNG(w io.Writer, f frame) error {
	dc := gg.NewContext(f.Width, f.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(f.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, f)
	drawLegend(dc, f)

	dc.SetLineWidth(2)
	for _, e := range f.Scene.Edges {
		edge := colorEdge
		edge.A = uint8(math.Round(255 * clamp01(e.Opacity)))
		dc.SetColor(edge)
		p0, c1, c2, p3 := f.at(e.P0), f.at(e.C1), f.at(e.C2), f.at(e.P3)
		dc.NewSubPath()
		dc.MoveTo(p0.X, p0.Y)
		if e.Straight {
			dc.LineTo(p3.X, p3.Y)
		} else {
			dc.CubicTo(c1.X, c1.Y, c2.X, c2.Y, p3.X, p3.Y)
		}
		dc.Stroke()

		mid, dir := arrowAt(e)
		head := arrowHead(f.at(mid), dir)
		dc.NewSubPath()
		dc.MoveTo(head[0].X, head[0].Y)
		dc.LineTo(head[1].X, head[1].Y)
		dc.LineTo(head[2].X, head[2].Y)
		dc.ClosePath()
		dc.Fill()
	}

	for _, n := range f.Scene.Nodes {
		drawNode(dc, f, n)
	}
	dc.SetColor(colorText)
	for _, l := range f.Scene.Labels {
		at := f.at(l.At)
		dc.DrawStringAnchored(l.Text, at.X, at.Y+14, 0, 0.5)
	}

	return dc.EncodePNG(w)
}

func drawNode(dc *gg.Context, f frame, n scene.NodeShape) {
	c := f.at(n.Center)
	x, y := c.X-n.W/2, c.Y-n.H/2
	dc.SetColor(nodeColor(n))
	dc.DrawRoundedRectangle(x, y, n.W, n.H, 8)
	dc.Fill()
	if n.Selected {
		dc.SetColor(colorSelected)
		dc.SetLineWidth(3)
	} else {
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
	}
	dc.DrawRoundedRectangle(x, y, n.W, n.H, 8)
	dc.Stroke()

	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(string(n.Type), x+8, y+12, 0, 0.5)
}

func drawSummaryBlock(dc *gg.Context, f frame) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(f.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range f.Summary {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
}

func drawLegend(dc *gg.Context, f frame) {
	boxW, boxH := 360.0, 96.0
	x := float64(f.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	for i, entry := range legend {
		col, row := float64(i/3), float64(i%3)
		drawLegendRow(dc, x+12+col*175, y+40+row*18, entry.Color, entry.Label)
	}
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

func drawSummaryBlockSVG(canvas *svg.SVG, f frame) {
	canvas.Text(32, 44, f.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range f.Summary {
		canvas.Text(32, 64+i*20, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}
}

func drawLegendSVG(canvas *svg.SVG, f frame) {
	boxW, boxH := 360, 96
	x := f.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, entry := range legend {
		col, row := i/3, i%3
		drawLegendRowSVG(canvas, x+12+col*175, y+40+row*18, entry.Color, entry.Label)
	}
}

func drawLegendRowSVG(canvas *svg.SVG, x, y int, c color.RGBA, label string) {
	canvas.Roundrect(x, y-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(c), css(colorStroke)))
	canvas.Text(x+20, y+4, label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

// --- helpers ---------------------------------------------------------------

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
