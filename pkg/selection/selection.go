// Package selection implements the node selection and detail-panel state
// machine, including optimistic completion toggles that roll back when the
// persistence call fails.
package selection

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

// State is the detail panel state.
type State int

const (
	NoSelection State = iota
	NodeSelected
	EditingNotes
)

func (s State) String() string {
	switch s {
	case NoSelection:
		return "none"
	case NodeSelected:
		return "selected"
	case EditingNotes:
		return "editing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Saver persists per-node progress and whole roadmaps.
type Saver interface {
	UpdateProgress(ctx context.Context, nodeID string, completed bool, notes string) error
	SaveRoadmap(ctx context.Context, rm *model.Roadmap) error
}

// Notifier surfaces user-visible messages (toasts, status lines).
type Notifier interface {
	Notify(msg string, isError bool)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string, isError bool)

func (f NotifierFunc) Notify(msg string, isError bool) { f(msg, isError) }

// ChangeKind says what a Pending change altered.
type ChangeKind int

const (
	ChangeCompleted ChangeKind = iota
	ChangeNotes
)

// Pending is an optimistic change already applied to the roadmap and waiting
// for its persistence result. Pass it back to Resolve.
type Pending struct {
	Kind   ChangeKind
	NodeID string

	Completed     bool
	PrevCompleted bool
	Notes         string
	PrevNotes     string
}

// Save sends the change to s.
func (p Pending) Save(ctx context.Context, s Saver) error {
	if s == nil {
		return nil
	}
	return s.UpdateProgress(ctx, p.NodeID, p.Completed, p.Notes)
}

// Machine is the selection state machine. It mutates the roadmap it was given
// and is owned by a single goroutine.
type Machine struct {
	rm       *model.Roadmap
	state    State
	selected string
	detail   model.Node

	notifier  Notifier
	observers []func(State, *model.Node)
}

// New returns a machine over rm with nothing selected. notifier may be nil.
func New(rm *model.Roadmap, notifier Notifier) *Machine {
	return &Machine{rm: rm, notifier: notifier}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// SelectedID returns the selected node ID, or "".
func (m *Machine) SelectedID() string { return m.selected }

// Selected returns the captured copy of the selected node.
func (m *Machine) Selected() (model.Node, bool) {
	if m.state == NoSelection {
		return model.Node{}, false
	}
	return m.detail, true
}

// Roadmap returns the roadmap the machine operates on.
func (m *Machine) Roadmap() *model.Roadmap { return m.rm }

// OnChange registers an observer called after every state or data change.
// The node is nil when nothing is selected.
func (m *Machine) OnChange(fn func(State, *model.Node)) {
	if fn != nil {
		m.observers = append(m.observers, fn)
	}
}

// Select captures a copy of node id and enters NodeSelected. Unknown IDs are
// ignored and reported as false.
func (m *Machine) Select(id string) bool {
	if m.rm == nil {
		return false
	}
	n := m.rm.NodeByID(id)
	if n == nil {
		debug.Log("selection: ignoring unknown node %q", id)
		return false
	}
	m.selected = id
	m.detail = n.Clone()
	m.state = NodeSelected
	m.emit()
	return true
}

// Clear returns to NoSelection from any state.
func (m *Machine) Clear() {
	if m.state == NoSelection {
		return
	}
	m.state = NoSelection
	m.selected = ""
	m.detail = model.Node{}
	m.emit()
}

// BeginEdit enters EditingNotes. Only valid from NodeSelected.
func (m *Machine) BeginEdit() bool {
	if m.state != NodeSelected {
		return false
	}
	m.state = EditingNotes
	m.emit()
	return true
}

// CancelEdit drops an in-progress edit.
func (m *Machine) CancelEdit() bool {
	if m.state != EditingNotes {
		return false
	}
	m.state = NodeSelected
	m.emit()
	return true
}

// SaveNotes applies text to the selected node and returns to NodeSelected.
// The returned Pending must be persisted and resolved by the caller.
func (m *Machine) SaveNotes(text string) (Pending, bool) {
	if m.state != EditingNotes {
		return Pending{}, false
	}
	n := m.rm.NodeByID(m.selected)
	if n == nil {
		m.Clear()
		return Pending{}, false
	}
	p := Pending{
		Kind:          ChangeNotes,
		NodeID:        n.ID,
		Completed:     n.Completed,
		PrevCompleted: n.Completed,
		Notes:         text,
		PrevNotes:     n.Notes,
	}
	n.Notes = text
	m.state = NodeSelected
	m.refresh()
	return p, true
}

// ToggleComplete flips the selected node's completion flag immediately and
// returns the change for persistence. Valid in NodeSelected and EditingNotes.
func (m *Machine) ToggleComplete() (Pending, bool) {
	if m.state == NoSelection {
		return Pending{}, false
	}
	n := m.rm.NodeByID(m.selected)
	if n == nil {
		m.Clear()
		return Pending{}, false
	}
	p := Pending{
		Kind:          ChangeCompleted,
		NodeID:        n.ID,
		Completed:     !n.Completed,
		PrevCompleted: n.Completed,
		Notes:         n.Notes,
		PrevNotes:     n.Notes,
	}
	n.Completed = p.Completed
	m.rm.RefreshProgress()
	debug.Log("selection: toggled %s completed=%v", n.ID, n.Completed)
	m.refresh()
	return p, true
}

// Resolve settles a pending change. A nil err keeps it; otherwise the node is
// reverted to its value before the change and the notifier is told. There is
// no retry. When two changes to the same node overlap, the last resolve wins.
func (m *Machine) Resolve(p Pending, err error) {
	if err == nil {
		return
	}
	debug.Log("selection: reverting %s after save error: %v", p.NodeID, err)
	if m.rm != nil {
		if n := m.rm.NodeByID(p.NodeID); n != nil {
			switch p.Kind {
			case ChangeCompleted:
				n.Completed = p.PrevCompleted
				m.rm.RefreshProgress()
			case ChangeNotes:
				n.Notes = p.PrevNotes
			}
		}
	}
	if m.notifier != nil {
		what := "progress"
		if p.Kind == ChangeNotes {
			what = "notes"
		}
		m.notifier.Notify(fmt.Sprintf("Failed to save %s for %s: %v", what, p.NodeID, err), true)
	}
	if p.NodeID == m.selected {
		m.refresh()
	} else {
		m.emit()
	}
}

// Persist saves p through s and resolves it with the result.
func (m *Machine) Persist(ctx context.Context, s Saver, p Pending) error {
	stop := metrics.Timer(metrics.ProgressSave)
	err := p.Save(ctx, s)
	stop()
	m.Resolve(p, err)
	return err
}

// SetRoadmap swaps in a reloaded roadmap. The selection survives when the
// selected node still exists.
func (m *Machine) SetRoadmap(rm *model.Roadmap) {
	m.rm = rm
	if m.state == NoSelection {
		return
	}
	if rm == nil || rm.NodeByID(m.selected) == nil {
		m.Clear()
		return
	}
	m.refresh()
}

// refresh recaptures the selected node copy and notifies observers.
func (m *Machine) refresh() {
	if m.state != NoSelection && m.rm != nil {
		if n := m.rm.NodeByID(m.selected); n != nil {
			m.detail = n.Clone()
		}
	}
	m.emit()
}

func (m *Machine) emit() {
	var n *model.Node
	if m.state != NoSelection {
		d := m.detail
		n = &d
	}
	for _, fn := range m.observers {
		fn(m.state, n)
	}
}
