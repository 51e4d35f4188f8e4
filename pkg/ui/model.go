// Package ui is the terminal roadmap viewer: a bubbletea model that draws the
// roadmap scene on a character canvas, pans and zooms it with mouse and keys,
// and edits progress through the selection state machine.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/roadwork/internal/datasource"
	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/progress"
	"github.com/vanderheijden86/roadwork/pkg/scene"
	"github.com/vanderheijden86/roadwork/pkg/selection"
	"github.com/vanderheijden86/roadwork/pkg/viewport"
	"github.com/vanderheijden86/roadwork/pkg/watcher"
)

const (
	defaultWidth   = 120
	defaultHeight  = 36
	defaultPanStep = 40.0
	statusTTL      = 4 * time.Second
	pulseInterval  = 150 * time.Millisecond
	pulseStep      = 0.35
)

// ProgressSavedMsg carries the persistence result for an optimistic change.
type ProgressSavedMsg struct {
	Pending selection.Pending
	Err     error
}

// FileChangedMsg is sent when the watched roadmap file changes on disk.
type FileChangedMsg struct {
	Path string
}

type pulseTickMsg time.Time

type statusExpiredMsg struct{ seq int }

// statusLine is the toast shown in the footer. It is shared by pointer so the
// selection notifier can write to it.
type statusLine struct {
	msg     string
	isError bool
	seq     int
}

func (s *statusLine) set(msg string, isError bool) {
	s.msg, s.isError = msg, isError
	s.seq++
}

// Options configures a Model.
type Options struct {
	Roadmap *model.Roadmap
	// Demo marks fallback data; the header shows a badge.
	Demo bool
	// Saver persists progress. Nil keeps changes in memory only.
	Saver selection.Saver
	// Reload re-reads the roadmap after the watcher fires.
	Reload  func() (*model.Roadmap, error)
	Watcher *watcher.Watcher

	Mode       layout.Mode
	Preset     string
	PanStep    float64
	Pulse      bool
	ShowDetail bool
	Context    context.Context
}

// Model is the bubbletea model for the roadmap viewer.
type Model struct {
	rm      *model.Roadmap
	demo    bool
	saver   selection.Saver
	reload  func() (*model.Roadmap, error)
	watcher *watcher.Watcher
	ctx     context.Context

	mode       layout.Mode
	preset     string
	layoutOpts layout.Options
	result     layout.Result
	scene      scene.Scene

	vp     *viewport.Controller
	sel    *selection.Machine
	notes  textarea.Model
	detail *detailCache
	status *statusLine
	theme  Theme

	cursor     int
	pulse      float64
	pulseOn    bool
	showDetail bool
	showHelp   bool
	panStep    float64

	width  int
	height int
}

// NewModel builds a viewer for opts.Roadmap.
func NewModel(opts Options) Model {
	rm := opts.Roadmap
	if rm == nil {
		rm = &model.Roadmap{}
	}
	mode := opts.Mode
	if mode == "" {
		mode = layout.ModeGrid
	}
	panStep := opts.PanStep
	if panStep <= 0 {
		panStep = defaultPanStep
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	status := &statusLine{}
	detail := &detailCache{}
	sel := selection.New(rm, selection.NotifierFunc(status.set))
	sel.OnChange(func(selection.State, *model.Node) { detail.invalidate() })

	ta := textarea.New()
	ta.Placeholder = "Notes…"
	ta.SetWidth(DetailPaneWidth - DetailWrapMargin)
	ta.SetHeight(6)
	ta.CharLimit = 5000

	m := Model{
		rm:         rm,
		demo:       opts.Demo,
		saver:      opts.Saver,
		reload:     opts.Reload,
		watcher:    opts.Watcher,
		ctx:        ctx,
		mode:       mode,
		preset:     opts.Preset,
		layoutOpts: layout.Preset(opts.Preset),
		vp:         viewport.New(),
		sel:        sel,
		notes:      ta,
		detail:     detail,
		status:     status,
		theme:      DefaultTheme(lipgloss.DefaultRenderer()),
		pulseOn:    opts.Pulse,
		showDetail: opts.ShowDetail,
		panStep:    panStep,
		width:      defaultWidth,
		height:     defaultHeight,
	}
	if opts.Demo {
		status.set("Showing demo data: the roadmap could not be loaded", true)
	}
	m.relayout()
	return m
}

// WatchFileCmd waits for the next settled change from w.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		ev := <-w.Events()
		return FileChangedMsg{Path: ev.Path}
	}
}

func pulseTickCmd() tea.Cmd {
	return tea.Tick(pulseInterval, func(t time.Time) tea.Msg { return pulseTickMsg(t) })
}

func statusExpireCmd(seq int) tea.Cmd {
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return statusExpiredMsg{seq: seq} })
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	if m.pulseOn {
		cmds = append(cmds, pulseTickCmd())
	}
	if m.status.msg != "" {
		cmds = append(cmds, statusExpireCmd(m.status.seq))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	seq := m.status.seq

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.notes.SetWidth(max(m.paneWidth()-DetailWrapMargin, 10))

	case tea.KeyMsg:
		if cmd, quit := m.handleKey(msg); quit {
			return m, tea.Quit
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case ProgressSavedMsg:
		m.sel.Resolve(msg.Pending, msg.Err)
		if msg.Err == nil {
			m.status.set(savedMessage(m.rm, msg.Pending), false)
		}
		m.rebuild()

	case FileChangedMsg:
		m.reloadRoadmap()
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case pulseTickMsg:
		m.pulse += pulseStep
		m.rebuild()
		if m.pulseOn {
			cmds = append(cmds, pulseTickCmd())
		}

	case statusExpiredMsg:
		if msg.seq == m.status.seq {
			m.status.msg, m.status.isError = "", false
		}

	default:
		if m.sel.State() == selection.EditingNotes {
			var cmd tea.Cmd
			m.notes, cmd = m.notes.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.status.seq != seq && m.status.msg != "" {
		cmds = append(cmds, statusExpireCmd(m.status.seq))
	}
	return m, tea.Batch(cmds...)
}

// handleKey applies a key press. It reports true when the program should quit.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" {
		return nil, true
	}

	if m.sel.State() == selection.EditingNotes {
		switch key {
		case "ctrl+s":
			text := m.notes.Value()
			m.notes.Blur()
			if p, ok := m.sel.SaveNotes(text); ok {
				m.rebuild()
				return m.persistCmd(p), false
			}
			return nil, false
		case "esc":
			m.notes.Blur()
			m.sel.CancelEdit()
			return nil, false
		case "ctrl+x":
			// The draft stays in the editor.
			if p, ok := m.sel.ToggleComplete(); ok {
				m.rebuild()
				return m.persistCmd(p), false
			}
			return nil, false
		}
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return cmd, false
	}

	switch key {
	case "q":
		return nil, true
	case "left", "h":
		m.vp.PanBy(m.panStep, 0)
	case "right", "l":
		m.vp.PanBy(-m.panStep, 0)
	case "up", "k":
		m.vp.PanBy(0, m.panStep)
	case "down", "j":
		m.vp.PanBy(0, -m.panStep)
	case "+", "=":
		m.vp.ZoomIn()
	case "-", "_":
		m.vp.ZoomOut()
	case "0":
		m.vp.Reset()
	case "tab":
		m.moveCursor(1)
	case "shift+tab":
		m.moveCursor(-1)
	case "enter":
		if m.sel.State() == selection.NoSelection {
			if id, ok := m.cursorID(); ok {
				m.sel.Select(id)
				m.rebuild()
			}
		} else {
			m.centerOn(m.sel.SelectedID())
		}
	case "esc":
		m.sel.Clear()
		m.rebuild()
	case " ", "x":
		if p, ok := m.sel.ToggleComplete(); ok {
			m.rebuild()
			return m.persistCmd(p), false
		}
	case "e":
		if n, ok := m.sel.Selected(); ok && m.sel.BeginEdit() {
			m.notes.SetValue(n.Notes)
			m.notes.CursorEnd()
			return m.notes.Focus(), false
		}
	case "m":
		m.mode = m.mode.Next()
		m.relayout()
		m.status.set("Layout: "+string(m.mode), false)
	case "p":
		if strings.EqualFold(m.preset, "roomy") {
			m.preset = "compact"
		} else {
			m.preset = "roomy"
		}
		m.layoutOpts = layout.Preset(m.preset)
		m.relayout()
	case "d":
		m.showDetail = !m.showDetail
	case "y":
		m.copySelectedID()
	case "?":
		m.showHelp = !m.showHelp
	}
	return nil, false
}

// handleMouse routes mouse events on the canvas to the viewport and the
// selection machine.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	cw, ch := m.canvasSize()
	x, y := msg.X, msg.Y-HeaderRows
	onCanvas := x >= 0 && y >= 0 && x < cw && y < ch
	screen := cellCenter(x, y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.vp.Wheel(-1)
	case msg.Button == tea.MouseButtonWheelDown:
		m.vp.Wheel(1)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !onCanvas {
			return
		}
		world := m.vp.Transform().Invert(screen)
		if id, hit := m.scene.HitTest(world); hit {
			m.vp.PointerDown(screen, false)
			m.sel.Select(id)
			m.syncCursor(id)
		} else {
			m.vp.PointerDown(screen, true)
			m.sel.Clear()
		}
		m.rebuild()
	case msg.Action == tea.MouseActionMotion:
		m.vp.PointerMove(screen)
	case msg.Action == tea.MouseActionRelease:
		m.vp.PointerUp()
	}
}

func (m Model) persistCmd(p selection.Pending) tea.Cmd {
	saver, ctx := m.saver, m.ctx
	return func() tea.Msg {
		stop := metrics.Timer(metrics.ProgressSave)
		err := p.Save(ctx, saver)
		stop()
		return ProgressSavedMsg{Pending: p, Err: err}
	}
}

func savedMessage(rm *model.Roadmap, p selection.Pending) string {
	title := p.NodeID
	if n := rm.NodeByID(p.NodeID); n != nil {
		title = n.Title
	}
	switch {
	case p.Kind == selection.ChangeNotes:
		return fmt.Sprintf("Saved notes for %s", title)
	case p.Completed:
		return fmt.Sprintf("Marked %s complete", title)
	default:
		return fmt.Sprintf("Marked %s incomplete", title)
	}
}

func (m *Model) reloadRoadmap() {
	if m.reload == nil {
		return
	}
	rm, err := m.reload()
	if err != nil {
		m.status.set(fmt.Sprintf("Reload error: %v", err), true)
		return
	}
	d := datasource.Diff(m.rm, rm)
	debug.Log("ui: reloaded %s (%s)", rm.ID, d.Summary())
	m.rm = rm
	m.sel.SetRoadmap(rm)
	m.relayout()
	if !d.Empty() {
		m.status.set("Reloaded: "+d.Summary(), false)
	}
}

func (m *Model) copySelectedID() {
	id := m.sel.SelectedID()
	if id == "" {
		m.status.set("Nothing selected", true)
		return
	}
	if err := clipboard.WriteAll(id); err != nil {
		m.status.set(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.status.set(fmt.Sprintf("Copied %s to clipboard", id), false)
}

// relayout recomputes positions for the current mode and rebuilds the scene.
func (m *Model) relayout() {
	m.result = layout.Compute(m.rm, m.mode, m.layoutOpts)
	m.rebuild()
	if m.cursor >= len(m.scene.Nodes) {
		m.cursor = 0
	}
}

func (m *Model) rebuild() {
	m.scene = scene.Build(m.rm, m.result, scene.Options{
		Selected: m.sel.SelectedID(),
		Pulse:    m.pulse,
	})
}

func (m *Model) moveCursor(delta int) {
	n := len(m.scene.Nodes)
	if n == 0 {
		return
	}
	if m.sel.State() != selection.NoSelection {
		m.cursor = (m.cursor + delta + n) % n
	}
	id := m.scene.Nodes[m.cursor].ID
	m.sel.Select(id)
	m.rebuild()
	m.ensureVisible(id)
}

func (m *Model) syncCursor(id string) {
	for i, n := range m.scene.Nodes {
		if n.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) cursorID() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.scene.Nodes) {
		return "", false
	}
	return m.scene.Nodes[m.cursor].ID, true
}

// centerOn pans so node id sits in the middle of the canvas.
func (m *Model) centerOn(id string) {
	n, ok := m.scene.Node(id)
	if !ok {
		return
	}
	cw, ch := m.canvasSize()
	target := r2.Vec{X: float64(cw) * CellWidth / 2, Y: float64(ch) * CellHeight / 2}
	cur := m.vp.Transform().Apply(n.Center)
	m.vp.PanBy(target.X-cur.X, target.Y-cur.Y)
}

func (m *Model) ensureVisible(id string) {
	n, ok := m.scene.Node(id)
	if !ok {
		return
	}
	cw, ch := m.canvasSize()
	x, y := toCell(m.vp.Transform(), n.Center)
	if x < 0 || y < 0 || x >= cw || y >= ch {
		m.centerOn(id)
	}
}

// paneWidth is the detail panel width, or 0 when hidden.
func (m Model) paneWidth() int {
	if !m.showDetail || m.sel.State() == selection.NoSelection {
		return 0
	}
	w := min(DetailPaneWidth, m.width-MinCanvasWidth)
	if w < MinDetailPane {
		return 0
	}
	return w
}

func (m Model) canvasSize() (int, int) {
	return max(m.width-m.paneWidth(), 0), max(m.height-HeaderRows-FooterRows, 0)
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	cw, ch := m.canvasSize()
	c := newCanvas(cw, ch)
	drawScene(c, m.scene, m.vp.Transform(), m.theme)
	body := c.Render()

	if pw := m.paneWidth(); pw > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderDetail(pw, ch))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	sum := progress.ForRoadmap(m.rm)
	title := m.rm.Title
	if title == "" {
		title = m.rm.ID
	}
	left := m.theme.Header.Render("roadwork") + " " + m.theme.PrimaryBold.Render(title)
	right := fmt.Sprintf("%s %s  %s  zoom %d%%",
		m.theme.RenderProgressBar(sum.Percent, 10), sum, m.mode, int(m.vp.Zoom()*100+0.5))
	if !m.rm.UpdatedAt.IsZero() {
		right = m.theme.MutedText.Render("updated "+FormatTimeRel(m.rm.UpdatedAt)) + "  " + right
	}
	if m.demo {
		right = m.theme.DemoBadge.Render("DEMO") + " " + right
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncateRunesHelper(left, m.width, "…")
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderFooter() string {
	if m.status.msg != "" {
		style := m.theme.StatusOK
		if m.status.isError {
			style = m.theme.StatusError
		}
		return style.Render(truncateRunesHelper(m.status.msg, m.width, "…"))
	}
	hint := "?: help  q: quit"
	switch {
	case m.showHelp:
		hint = "←↑↓→/hjkl pan · +/- zoom · 0 reset · tab select · enter center · space toggle · e notes · m layout · p spacing · d detail · y copy id · esc clear"
	case m.sel.State() == selection.EditingNotes:
		hint = "ctrl+s save notes · ctrl+x toggle complete · esc cancel"
	case m.sel.State() == selection.NodeSelected:
		hint = "space: toggle complete  e: notes  y: copy id  esc: close  ?: help"
	}
	return m.theme.MutedText.Render(truncateRunesHelper(hint, m.width, "…"))
}

func (m Model) renderDetail(width, height int) string {
	n, ok := m.sel.Selected()
	if !ok {
		return ""
	}
	inner := width - DetailWrapMargin
	content := m.theme.RenderTypeBadge(n.Type, n.Completed) + "\n" + m.detail.render(n, inner)
	if m.sel.State() == selection.EditingNotes {
		content += "\n\n" + m.theme.PrimaryBold.Render("Edit notes") + "\n" + m.notes.View()
	}
	return m.theme.Panel.
		Width(width - 2).
		Height(max(height-2, 1)).
		MaxHeight(height).
		Render(content)
}

// Roadmap returns the roadmap being viewed.
func (m Model) Roadmap() *model.Roadmap { return m.rm }

// Selection returns the selection state machine.
func (m Model) Selection() *selection.Machine { return m.sel }

// Viewport returns the pan/zoom controller.
func (m Model) Viewport() *viewport.Controller { return m.vp }

// Scene returns the current drawable scene.
func (m Model) Scene() scene.Scene { return m.scene }

// Mode returns the active layout mode.
func (m Model) Mode() layout.Mode { return m.mode }

// Status returns the footer toast.
func (m Model) Status() (string, bool) { return m.status.msg, m.status.isError }

// Stop releases the file watcher.
func (m Model) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}
