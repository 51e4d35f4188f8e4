package selection

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/progress"
)

type fakeSaver struct {
	err   error
	calls []string
}

func (f *fakeSaver) UpdateProgress(_ context.Context, nodeID string, completed bool, notes string) error {
	f.calls = append(f.calls, nodeID)
	return f.err
}

func (f *fakeSaver) SaveRoadmap(context.Context, *model.Roadmap) error { return f.err }

type recorder struct {
	msgs   []string
	errors int
}

func (r *recorder) Notify(msg string, isError bool) {
	r.msgs = append(r.msgs, msg)
	if isError {
		r.errors++
	}
}

func fourNodes() *model.Roadmap {
	return &model.Roadmap{
		ID: "r",
		Nodes: []model.Node{
			{ID: "W", Completed: true},
			{ID: "X", Notes: "start here"},
			{ID: "Y"},
			{ID: "Z"},
		},
	}
}

func TestTransitions(t *testing.T) {
	m := New(fourNodes(), nil)
	if m.State() != NoSelection {
		t.Fatalf("initial state = %v", m.State())
	}
	if m.BeginEdit() {
		t.Error("BeginEdit allowed without a selection")
	}
	if m.Select("nope") || m.State() != NoSelection {
		t.Error("unknown id should be a no-op")
	}
	if !m.Select("X") || m.State() != NodeSelected {
		t.Fatalf("Select failed, state %v", m.State())
	}
	n, ok := m.Selected()
	if !ok || n.Notes != "start here" {
		t.Errorf("detail copy = %+v", n)
	}
	if !m.BeginEdit() || m.State() != EditingNotes {
		t.Fatal("BeginEdit failed")
	}
	if m.BeginEdit() {
		t.Error("BeginEdit allowed while editing")
	}
	if !m.CancelEdit() || m.State() != NodeSelected {
		t.Error("CancelEdit did not return to NodeSelected")
	}
	m.BeginEdit()
	m.Clear()
	if m.State() != NoSelection || m.SelectedID() != "" {
		t.Error("Clear did not reset from EditingNotes")
	}
}

func TestSelectedIsACopy(t *testing.T) {
	rm := fourNodes()
	m := New(rm, nil)
	m.Select("Y")
	n, _ := m.Selected()
	n.Title = "mutated"
	if rm.NodeByID("Y").Title == "mutated" {
		t.Error("detail copy aliases the roadmap")
	}
}

func TestToggleComplete_Success(t *testing.T) {
	rm := fourNodes()
	m := New(rm, nil)
	saver := &fakeSaver{}

	if _, ok := m.ToggleComplete(); ok {
		t.Fatal("toggle allowed without a selection")
	}
	m.Select("X")
	if got := progress.ForRoadmap(rm).Percent; got != 25 {
		t.Fatalf("before toggle percent = %d", got)
	}
	p, ok := m.ToggleComplete()
	if !ok {
		t.Fatal("toggle rejected")
	}
	if !rm.NodeByID("X").Completed {
		t.Error("toggle was not applied optimistically")
	}
	if err := m.Persist(context.Background(), saver, p); err != nil {
		t.Fatal(err)
	}
	s := progress.ForRoadmap(rm)
	if s.Completed != 2 || s.Percent != 50 {
		t.Errorf("after toggle = %s", s)
	}
	if rm.Progress != 50 {
		t.Errorf("cached progress = %d", rm.Progress)
	}
	if len(saver.calls) != 1 || saver.calls[0] != "X" {
		t.Errorf("saver calls = %v", saver.calls)
	}
}

func TestToggleComplete_RollsBackOnFailure(t *testing.T) {
	rm := fourNodes()
	rec := &recorder{}
	m := New(rm, rec)
	var seen []bool
	m.OnChange(func(s State, n *model.Node) {
		if n != nil {
			seen = append(seen, n.Completed)
		}
	})

	m.Select("X")
	p, _ := m.ToggleComplete()
	err := m.Persist(context.Background(), &fakeSaver{err: errors.New("permission denied")}, p)
	if err == nil {
		t.Fatal("expected save error")
	}
	if rm.NodeByID("X").Completed {
		t.Error("completion not reverted")
	}
	if got := progress.ForRoadmap(rm).Percent; got != 25 {
		t.Errorf("percent after rollback = %d", got)
	}
	if rec.errors != 1 {
		t.Errorf("expected one error notification, got %v", rec.msgs)
	}
	if d, _ := m.Selected(); d.Completed {
		t.Error("detail panel still shows the optimistic value")
	}
	if len(seen) < 2 || !seen[len(seen)-2] || seen[len(seen)-1] {
		t.Errorf("observer sequence = %v", seen)
	}
}

func TestToggleComplete_AllowedWhileEditing(t *testing.T) {
	m := New(fourNodes(), nil)
	m.Select("Y")
	m.BeginEdit()
	if _, ok := m.ToggleComplete(); !ok {
		t.Error("toggle rejected in EditingNotes")
	}
	if m.State() != EditingNotes {
		t.Errorf("toggle changed state to %v", m.State())
	}
}

func TestSaveNotes(t *testing.T) {
	rm := fourNodes()
	rec := &recorder{}
	m := New(rm, rec)
	m.Select("X")

	if _, ok := m.SaveNotes("nope"); ok {
		t.Error("SaveNotes allowed outside EditingNotes")
	}
	m.BeginEdit()
	p, ok := m.SaveNotes("read the docs")
	if !ok || m.State() != NodeSelected {
		t.Fatal("SaveNotes did not return to NodeSelected")
	}
	if rm.NodeByID("X").Notes != "read the docs" {
		t.Error("notes not applied")
	}
	m.Resolve(p, errors.New("offline"))
	if rm.NodeByID("X").Notes != "start here" {
		t.Error("notes not reverted")
	}
	if rec.errors != 1 {
		t.Errorf("notifications = %v", rec.msgs)
	}
}

func TestSetRoadmap(t *testing.T) {
	m := New(fourNodes(), nil)
	m.Select("Z")
	m.SetRoadmap(fourNodes())
	if m.State() != NodeSelected {
		t.Error("selection lost although node still exists")
	}
	m.SetRoadmap(&model.Roadmap{Nodes: []model.Node{{ID: "other"}}})
	if m.State() != NoSelection {
		t.Error("selection kept for a removed node")
	}
}

// A failed toggle always restores the exact pre-toggle roadmap state.
func TestToggleRollbackRestoresState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		flags := rapid.SliceOfN(rapid.Bool(), 1, 20).Draw(t, "flags")
		rm := &model.Roadmap{}
		for i, f := range flags {
			rm.Nodes = append(rm.Nodes, model.Node{ID: string(rune('a' + i)), Completed: f})
		}
		before := rm.Clone()
		target := rapid.IntRange(0, len(flags)-1).Draw(t, "target")

		m := New(rm, nil)
		m.Select(rm.Nodes[target].ID)
		p, _ := m.ToggleComplete()
		m.Resolve(p, errors.New("fail"))

		for i := range rm.Nodes {
			if rm.Nodes[i].Completed != before.Nodes[i].Completed {
				t.Fatalf("node %s not restored", rm.Nodes[i].ID)
			}
		}
	})
}
