package model

import (
	"errors"
	"testing"
)

func sampleRoadmap() *Roadmap {
	return &Roadmap{
		ID:    "r1",
		Title: "Backend",
		Nodes: []Node{
			{ID: "a", Title: "Go basics", Type: TypeSkill, Completed: true},
			{ID: "b", Title: "HTTP", Type: TypeSkill},
			{ID: "c", Title: "Project", Type: TypeProject},
			{ID: "d", Title: "Cert", Type: TypeCertification},
		},
		Connections: []Connection{
			{From: "a", To: "b", Relation: RelationPrerequisite},
			{From: "b", To: "c"},
		},
	}
}

func TestRefreshProgress(t *testing.T) {
	r := sampleRoadmap()
	if got := r.RefreshProgress(); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	if err := r.SetCompleted("c", true); err != nil {
		t.Fatal(err)
	}
	if r.Progress != 50 {
		t.Errorf("expected 50 after completing c, got %d", r.Progress)
	}

	empty := &Roadmap{}
	if got := empty.RefreshProgress(); got != 0 {
		t.Errorf("empty roadmap progress = %d, want 0", got)
	}
}

func TestSetCompleted_UnknownNode(t *testing.T) {
	r := sampleRoadmap()
	err := r.SetCompleted("nope", true)
	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Roadmap)
		wantErr error
	}{
		{"valid", func(r *Roadmap) {}, nil},
		{"dangling", func(r *Roadmap) {
			r.Connections = append(r.Connections, Connection{From: "a", To: "ghost"})
		}, ErrDanglingEdge},
		{"duplicate", func(r *Roadmap) {
			r.Nodes = append(r.Nodes, Node{ID: "a", Type: TypeSkill})
		}, ErrDuplicateID},
		{"bad type", func(r *Roadmap) {
			r.Nodes[0].Type = "wizardry"
		}, ErrInvalidType},
		{"empty id", func(r *Roadmap) {
			r.Nodes[1].ID = " "
		}, ErrEmptyID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRoadmap()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidConnections_SkipsDangling(t *testing.T) {
	r := sampleRoadmap()
	r.Connections = append(r.Connections, Connection{From: "ghost", To: "a"})
	if got := len(r.ValidConnections()); got != 2 {
		t.Errorf("expected 2 valid connections, got %d", got)
	}
}

func TestClone_IsDeep(t *testing.T) {
	r := sampleRoadmap()
	r.Nodes[0].Skills = []string{"go"}
	c := r.Clone()
	c.Nodes[0].Completed = false
	c.Nodes[0].Skills[0] = "rust"
	c.Connections[0].From = "z"

	if !r.Nodes[0].Completed {
		t.Error("clone mutation leaked into completion flag")
	}
	if r.Nodes[0].Skills[0] != "go" {
		t.Error("clone mutation leaked into skills")
	}
	if r.Connections[0].From != "a" {
		t.Error("clone mutation leaked into connections")
	}
}

func TestChildren(t *testing.T) {
	r := &Roadmap{Nodes: []Node{
		{ID: "p", Type: TypePhase},
		{ID: "m1", Type: TypeMilestone, Parent: "p"},
		{ID: "m2", Type: TypeMilestone, Parent: "p"},
		{ID: "s1", Type: TypeSkill, Parent: "m1"},
	}}
	got := r.Children("p")
	if len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Errorf("unexpected children %v", got)
	}
}
