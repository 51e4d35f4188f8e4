package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/selection"
	"github.com/vanderheijden86/roadwork/pkg/testutil"
	"github.com/vanderheijden86/roadwork/pkg/viewport"
)

type failingSaver struct{ err error }

func (f failingSaver) UpdateProgress(context.Context, string, bool, string) error { return f.err }
func (f failingSaver) SaveRoadmap(context.Context, *model.Roadmap) error           { return f.err }

type recordingSaver struct {
	calls []string
}

func (r *recordingSaver) UpdateProgress(_ context.Context, id string, completed bool, notes string) error {
	r.calls = append(r.calls, id)
	return nil
}
func (r *recordingSaver) SaveRoadmap(context.Context, *model.Roadmap) error { return nil }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// runCmd executes cmd and flattens batches. Only use it where no tick
// commands are pending.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func savedMsg(t *testing.T, cmd tea.Cmd) ProgressSavedMsg {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		if saved, ok := msg.(ProgressSavedMsg); ok {
			return saved
		}
	}
	t.Fatalf("expected a ProgressSavedMsg from command")
	return ProgressSavedMsg{}
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	if m.Mode() != layout.ModeGrid {
		t.Errorf("mode = %s, want grid", m.Mode())
	}
	if len(m.Scene().Nodes) != 2 || len(m.Scene().Edges) != 1 {
		t.Errorf("scene = %d nodes %d edges, want 2 and 1", len(m.Scene().Nodes), len(m.Scene().Edges))
	}
	if m.Selection().State() != selection.NoSelection {
		t.Errorf("expected no selection")
	}
	if msg, _ := m.Status(); msg != "" {
		t.Errorf("unexpected status %q", msg)
	}

	empty := NewModel(Options{})
	if empty.Roadmap() == nil || len(empty.Scene().Nodes) != 0 {
		t.Errorf("nil roadmap should give an empty scene")
	}
}

func TestDemoModelShowsBadgeAndWarning(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes(), Demo: true})
	msg, isErr := m.Status()
	if !isErr || !strings.Contains(msg, "demo") {
		t.Errorf("status = %q (err=%v), want demo warning", msg, isErr)
	}
	if !strings.Contains(m.View(), "DEMO") {
		t.Errorf("expected DEMO badge in view")
	}
}

func TestZoomAndPanKeys(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes(), PanStep: 25})

	m, _ = send(t, m, runes("+"))
	if got := m.Viewport().Zoom(); got != viewport.ZoomInFactor {
		t.Errorf("zoom after + = %v", got)
	}
	m, _ = send(t, m, runes("-"))
	m, _ = send(t, m, runes("-"))
	if got := m.Viewport().Zoom(); got >= 1 {
		t.Errorf("zoom after two - = %v, want < 1", got)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = send(t, m, runes("k"))
	if p := m.Viewport().Pan(); p.X != 25 || p.Y != 25 {
		t.Errorf("pan = %v, want (25,25)", p)
	}
	m, _ = send(t, m, runes("l"))
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if p := m.Viewport().Pan(); p.X != 0 || p.Y != 0 {
		t.Errorf("pan = %v, want origin", p)
	}

	m, _ = send(t, m, runes("+"))
	m, _ = send(t, m, runes("h"))
	m, _ = send(t, m, runes("0"))
	if m.Viewport().Zoom() != 1 || m.Viewport().Pan().X != 0 {
		t.Errorf("reset did not restore zoom 1 and pan origin")
	}
}

func TestZoomClampsAtLimits(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	for i := 0; i < 30; i++ {
		m, _ = send(t, m, runes("+"))
	}
	if m.Viewport().Zoom() != viewport.MaxZoom {
		t.Errorf("zoom = %v, want max %v", m.Viewport().Zoom(), viewport.MaxZoom)
	}
	for i := 0; i < 30; i++ {
		m, _ = send(t, m, runes("-"))
	}
	if m.Viewport().Zoom() != viewport.MinZoom {
		t.Errorf("zoom = %v, want min %v", m.Viewport().Zoom(), viewport.MinZoom)
	}
}

func TestTabCyclesSelectionAndEscClears(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	first := m.Scene().Nodes[0].ID
	second := m.Scene().Nodes[1].ID

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Selection().SelectedID() != first {
		t.Fatalf("first tab selected %q, want %q", m.Selection().SelectedID(), first)
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Selection().SelectedID() != second {
		t.Fatalf("second tab selected %q, want %q", m.Selection().SelectedID(), second)
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.Selection().SelectedID() != first {
		t.Fatalf("shift+tab selected %q, want %q", m.Selection().SelectedID(), first)
	}

	var selected int
	for _, n := range m.Scene().Nodes {
		if n.Selected {
			selected++
		}
	}
	if selected != 1 {
		t.Errorf("scene marks %d nodes selected, want 1", selected)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Selection().State() != selection.NoSelection {
		t.Errorf("esc should clear the selection")
	}
}

func TestToggleCompletePersists(t *testing.T) {
	saver := &recordingSaver{}
	m := NewModel(Options{Roadmap: testutil.TwoNodes(), Saver: saver})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	id := m.Selection().SelectedID()
	before := m.Roadmap().NodeByID(id).Completed

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if m.Roadmap().NodeByID(id).Completed == before {
		t.Fatalf("toggle should apply optimistically")
	}
	saved := savedMsg(t, cmd)
	if saved.Err != nil {
		t.Fatalf("unexpected save error: %v", saved.Err)
	}
	if len(saver.calls) != 1 || saver.calls[0] != id {
		t.Errorf("saver calls = %v", saver.calls)
	}

	m, _ = send(t, m, saved)
	if m.Roadmap().NodeByID(id).Completed == before {
		t.Errorf("successful save must keep the new state")
	}
	if msg, isErr := m.Status(); isErr || !strings.HasPrefix(msg, "Marked") {
		t.Errorf("status = %q (err=%v)", msg, isErr)
	}
}

func TestToggleCompleteRollsBackOnError(t *testing.T) {
	rm := testutil.TwoNodes()
	m := NewModel(Options{Roadmap: rm, Saver: failingSaver{err: errors.New("offline")}})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	id := m.Selection().SelectedID()
	before := rm.NodeByID(id).Completed
	beforeProgress := rm.Progress

	m, cmd := send(t, m, runes("x"))
	saved := savedMsg(t, cmd)
	if saved.Err == nil {
		t.Fatalf("expected save error")
	}
	m, _ = send(t, m, saved)

	if got := m.Roadmap().NodeByID(id).Completed; got != before {
		t.Errorf("completed = %v after failed save, want %v", got, before)
	}
	if m.Roadmap().Progress != beforeProgress {
		t.Errorf("progress = %d after rollback, want %d", m.Roadmap().Progress, beforeProgress)
	}
	msg, isErr := m.Status()
	if !isErr || !strings.Contains(msg, "Failed to save progress") || !strings.Contains(msg, "offline") {
		t.Errorf("status = %q (err=%v)", msg, isErr)
	}
}

func TestToggleWithoutSelectionIsNoop(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if cmd != nil {
		if msgs := runCmd(cmd); len(msgs) > 0 {
			t.Errorf("expected no command, got %v", msgs)
		}
	}
}

func TestNotesEditSaveAndCancel(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes(), ShowDetail: true})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	id := m.Selection().SelectedID()

	m, _ = send(t, m, runes("e"))
	if m.Selection().State() != selection.EditingNotes {
		t.Fatalf("state = %s, want editing", m.Selection().State())
	}
	m, _ = send(t, m, runes("hi"))
	// Keys go to the editor while editing.
	if m.Mode() != layout.ModeGrid {
		t.Fatalf("keys leaked out of the notes editor")
	}
	m, _ = send(t, m, runes("m"))
	if m.Mode() != layout.ModeGrid {
		t.Fatalf("m should be typed into notes, not switch layout")
	}

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if got := m.Roadmap().NodeByID(id).Notes; got != "him" {
		t.Errorf("notes = %q, want %q", got, "him")
	}
	if m.Selection().State() != selection.NodeSelected {
		t.Errorf("state after save = %s", m.Selection().State())
	}
	m, _ = send(t, m, savedMsg(t, cmd))
	if msg, _ := m.Status(); !strings.HasPrefix(msg, "Saved notes") {
		t.Errorf("status = %q", msg)
	}

	m, _ = send(t, m, runes("e"))
	m, _ = send(t, m, runes(" more"))
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Selection().State() != selection.NodeSelected {
		t.Errorf("esc in editor should return to selected, got %s", m.Selection().State())
	}
	if got := m.Roadmap().NodeByID(id).Notes; got != "him" {
		t.Errorf("cancel changed notes to %q", got)
	}
}

func TestToggleCompleteWhileEditingNotes(t *testing.T) {
	saver := &recordingSaver{}
	m := NewModel(Options{Roadmap: testutil.TwoNodes(), Saver: saver, ShowDetail: true})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	id := m.Selection().SelectedID()
	before := m.Roadmap().NodeByID(id).Completed

	m, _ = send(t, m, runes("e"))
	m, _ = send(t, m, runes("draft"))
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if m.Roadmap().NodeByID(id).Completed == before {
		t.Fatalf("ctrl+x should toggle completion while editing")
	}
	if m.Selection().State() != selection.EditingNotes {
		t.Errorf("state = %s, want editing", m.Selection().State())
	}
	if got := m.notes.Value(); got != "draft" {
		t.Errorf("editor draft = %q, want %q", got, "draft")
	}
	if saved := savedMsg(t, cmd); saved.Err != nil {
		t.Fatalf("unexpected save error: %v", saved.Err)
	}
	if len(saver.calls) != 1 || saver.calls[0] != id {
		t.Errorf("saver calls = %v", saver.calls)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	n := m.Roadmap().NodeByID(id)
	if n.Notes != "draft" || n.Completed == before {
		t.Errorf("after save: notes=%q completed=%v", n.Notes, n.Completed)
	}
}

func TestModeCyclingRelayouts(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.QuickPhased(2, 2, 2)})
	seen := []layout.Mode{m.Mode()}
	for range layout.Modes {
		m, _ = send(t, m, runes("m"))
		seen = append(seen, m.Mode())
	}
	if seen[0] != layout.ModeGrid || seen[1] != layout.ModeLayered || seen[2] != layout.ModeRadial || seen[3] != layout.ModeGrid {
		t.Errorf("mode sequence = %v", seen)
	}

	m, _ = send(t, m, runes("m"))
	m, _ = send(t, m, runes("m"))
	if m.Scene().Mode != layout.ModeRadial {
		t.Errorf("scene mode = %s, want radial", m.Scene().Mode)
	}
	for _, e := range m.Scene().Edges {
		if !e.Straight {
			t.Fatalf("radial edges should be straight")
		}
	}
}

func TestMouseClickSelectsNode(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	target := m.Scene().Nodes[1]
	x, y := toCell(m.Viewport().Transform(), target.Center)

	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y + HeaderRows, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.Selection().SelectedID() != target.ID {
		t.Fatalf("click selected %q, want %q", m.Selection().SelectedID(), target.ID)
	}
	if m.Viewport().Dragging() {
		t.Errorf("pressing a node must not start a drag")
	}
	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y + HeaderRows, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	// Header row is outside the canvas.
	m, _ = send(t, m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.Selection().SelectedID() != target.ID {
		t.Errorf("press on header changed selection")
	}
}

func TestMouseDragOnEmptyCanvasPans(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	x, y := 100, 30

	m, _ = send(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if !m.Viewport().Dragging() {
		t.Fatalf("press on empty canvas should start a drag")
	}
	if m.Selection().State() != selection.NoSelection {
		t.Errorf("press on empty canvas should clear the selection")
	}
	m, _ = send(t, m, tea.MouseMsg{X: x - 10, Y: y - 2, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	p := m.Viewport().Pan()
	if p.X != -10*CellWidth || p.Y != -2*CellHeight {
		t.Errorf("pan = %v, want (%v,%v)", p, -10*CellWidth, -2*CellHeight)
	}
	m, _ = send(t, m, tea.MouseMsg{X: x - 10, Y: y - 2, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if m.Viewport().Dragging() {
		t.Errorf("release should end the drag")
	}

	// Motion without a drag leaves the pan alone.
	m, _ = send(t, m, tea.MouseMsg{X: 5, Y: 5, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	if m.Viewport().Pan() != p {
		t.Errorf("motion after release moved the pan")
	}
}

func TestMouseWheelZooms(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	m, _ = send(t, m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if got := m.Viewport().Zoom(); got != viewport.ZoomInFactor {
		t.Errorf("wheel up zoom = %v", got)
	}
	m, _ = send(t, m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	m, _ = send(t, m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	if got := m.Viewport().Zoom(); got >= 1 {
		t.Errorf("wheel down zoom = %v, want < 1", got)
	}
}

func TestFileChangedReloads(t *testing.T) {
	rm := testutil.TwoNodes()
	next := rm.Clone()
	next.Nodes = append(next.Nodes, model.Node{ID: "c", Title: "C", Type: model.TypeSkill})
	next.RefreshProgress()

	calls := 0
	m := NewModel(Options{Roadmap: rm, Reload: func() (*model.Roadmap, error) {
		calls++
		return next, nil
	}})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	selected := m.Selection().SelectedID()

	m, _ = send(t, m, FileChangedMsg{Path: "roadmap.json"})
	if calls != 1 {
		t.Fatalf("reload calls = %d", calls)
	}
	if m.Roadmap() != next || len(m.Scene().Nodes) != 3 {
		t.Errorf("model did not switch to the reloaded roadmap")
	}
	if m.Selection().SelectedID() != selected {
		t.Errorf("selection %q lost across reload", selected)
	}
	if msg, _ := m.Status(); !strings.Contains(msg, "Reloaded") {
		t.Errorf("status = %q", msg)
	}
}

func TestFileChangedReloadError(t *testing.T) {
	rm := testutil.TwoNodes()
	m := NewModel(Options{Roadmap: rm, Reload: func() (*model.Roadmap, error) {
		return nil, errors.New("bad json")
	}})
	m, _ = send(t, m, FileChangedMsg{Path: "roadmap.json"})
	if m.Roadmap() != rm {
		t.Errorf("failed reload replaced the roadmap")
	}
	if msg, isErr := m.Status(); !isErr || !strings.Contains(msg, "bad json") {
		t.Errorf("status = %q (err=%v)", msg, isErr)
	}
}

func TestStatusExpiry(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	m, _ = send(t, m, runes("m"))
	msg, _ := m.Status()
	if msg == "" {
		t.Fatalf("expected a layout status")
	}
	seq := m.status.seq

	m, _ = send(t, m, statusExpiredMsg{seq: seq - 1})
	if got, _ := m.Status(); got == "" {
		t.Errorf("stale expiry cleared the status")
	}
	m, _ = send(t, m, statusExpiredMsg{seq: seq})
	if got, _ := m.Status(); got != "" {
		t.Errorf("status = %q after expiry", got)
	}
}

func TestViewContainsHeaderAndNodes(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes(), ShowDetail: true})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 140, Height: 30})
	out := m.View()
	for _, want := range []string{"Two Nodes", "1/2 (50%)", "grid", "zoom 100%"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if got := strings.Count(out, "\n") + 1; got != 30 {
		t.Errorf("view has %d lines, want 30", got)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.paneWidth() == 0 {
		t.Fatalf("detail pane should open on selection")
	}
	m, _ = send(t, m, runes("d"))
	if m.paneWidth() != 0 {
		t.Errorf("d should hide the detail pane")
	}
}

func TestHelpToggleAndQuit(t *testing.T) {
	m := NewModel(Options{Roadmap: testutil.TwoNodes()})
	m, _ = send(t, m, runes("?"))
	if !m.showHelp || !strings.Contains(m.renderFooter(), "zoom") {
		t.Errorf("help footer not shown")
	}
	_, cmd := send(t, m, runes("q"))
	if cmd == nil {
		t.Fatalf("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q did not produce QuitMsg")
	}
}

func TestSavedMessage(t *testing.T) {
	rm := testutil.TwoNodes()
	tests := []struct {
		p    selection.Pending
		want string
	}{
		{selection.Pending{Kind: selection.ChangeCompleted, NodeID: "a", Completed: true}, "Marked A complete"},
		{selection.Pending{Kind: selection.ChangeCompleted, NodeID: "b"}, "Marked B incomplete"},
		{selection.Pending{Kind: selection.ChangeNotes, NodeID: "b"}, "Saved notes for B"},
		{selection.Pending{Kind: selection.ChangeNotes, NodeID: "gone"}, "Saved notes for gone"},
	}
	for _, tt := range tests {
		if got := savedMessage(rm, tt.p); got != tt.want {
			t.Errorf("savedMessage(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
