package model

import (
	"errors"
	"fmt"
	"math"
)

// NodeIndex returns the slice index of the node with the given ID, or -1.
func (r *Roadmap) NodeIndex(id string) int {
	for i := range r.Nodes {
		if r.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// NodeByID returns a pointer into r.Nodes, or nil when id is unknown.
func (r *Roadmap) NodeByID(id string) *Node {
	if i := r.NodeIndex(id); i >= 0 {
		return &r.Nodes[i]
	}
	return nil
}

// NodeMap indexes nodes by ID. Later duplicates win.
func (r *Roadmap) NodeMap() map[string]*Node {
	m := make(map[string]*Node, len(r.Nodes))
	for i := range r.Nodes {
		m[r.Nodes[i].ID] = &r.Nodes[i]
	}
	return m
}

// Children returns the IDs of nodes whose Parent is parentID, in roadmap order.
func (r *Roadmap) Children(parentID string) []string {
	var ids []string
	for _, n := range r.Nodes {
		if n.Parent == parentID && n.ID != parentID {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// ValidConnections returns the connections whose endpoints both exist.
func (r *Roadmap) ValidConnections() []Connection {
	ids := make(map[string]bool, len(r.Nodes))
	for _, n := range r.Nodes {
		ids[n.ID] = true
	}
	out := make([]Connection, 0, len(r.Connections))
	for _, c := range r.Connections {
		if ids[c.From] && ids[c.To] {
			out = append(out, c)
		}
	}
	return out
}

// CompletedCount returns the number of completed nodes.
func (r *Roadmap) CompletedCount() int {
	n := 0
	for _, node := range r.Nodes {
		if node.Completed {
			n++
		}
	}
	return n
}

// RefreshProgress recomputes the cached progress percentage and returns it.
func (r *Roadmap) RefreshProgress() int {
	if len(r.Nodes) == 0 {
		r.Progress = 0
		return 0
	}
	r.Progress = int(math.Round(float64(r.CompletedCount()) / float64(len(r.Nodes)) * 100))
	return r.Progress
}

// SetCompleted updates a node's completion flag and refreshes progress.
func (r *Roadmap) SetCompleted(id string, completed bool) error {
	n := r.NodeByID(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.Completed = completed
	r.RefreshProgress()
	return nil
}

// SetNotes updates a node's notes.
func (r *Roadmap) SetNotes(id, notes string) error {
	n := r.NodeByID(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.Notes = notes
	return nil
}

// Validate checks node fields, ID uniqueness and connection endpoints.
// All problems are joined into a single error.
func (r *Roadmap) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(r.Nodes))
	for _, n := range r.Nodes {
		if err := n.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateID, n.ID))
		}
		seen[n.ID] = true
	}
	for _, c := range r.Connections {
		if !seen[c.From] || !seen[c.To] {
			errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrDanglingEdge, c.From, c.To))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of the roadmap.
func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	out := *r
	out.Nodes = make([]Node, len(r.Nodes))
	for i, n := range r.Nodes {
		out.Nodes[i] = n.Clone()
	}
	out.Connections = append([]Connection(nil), r.Connections...)
	return &out
}
