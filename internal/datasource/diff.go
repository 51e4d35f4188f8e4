package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// RoadmapDiff describes how two versions of a roadmap differ.
type RoadmapDiff struct {
	Added            []string // node IDs only in the new version
	Removed          []string // node IDs only in the old version
	CompletionChange []CompletionDifference
	NotesChanged     []string
	OldConnections   int
	NewConnections   int
}

// CompletionDifference is a node whose completion flag changed.
type CompletionDifference struct {
	ID  string `json:"id"`
	Old bool   `json:"old"`
	New bool   `json:"new"`
}

// Diff compares two versions of a roadmap. Either may be nil.
func Diff(old, cur *model.Roadmap) RoadmapDiff {
	var d RoadmapDiff
	oldNodes := nodesByID(old)
	newNodes := nodesByID(cur)
	if old != nil {
		d.OldConnections = len(old.Connections)
	}
	if cur != nil {
		d.NewConnections = len(cur.Connections)
	}

	for id, n := range newNodes {
		o, ok := oldNodes[id]
		if !ok {
			d.Added = append(d.Added, id)
			continue
		}
		if o.Completed != n.Completed {
			d.CompletionChange = append(d.CompletionChange, CompletionDifference{ID: id, Old: o.Completed, New: n.Completed})
		}
		if o.Notes != n.Notes {
			d.NotesChanged = append(d.NotesChanged, id)
		}
	}
	for id := range oldNodes {
		if _, ok := newNodes[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.NotesChanged)
	sort.Slice(d.CompletionChange, func(i, j int) bool { return d.CompletionChange[i].ID < d.CompletionChange[j].ID })
	return d
}

func nodesByID(rm *model.Roadmap) map[string]model.Node {
	if rm == nil {
		return nil
	}
	m := make(map[string]model.Node, len(rm.Nodes))
	for _, n := range rm.Nodes {
		m[n.ID] = n
	}
	return m
}

// Empty reports whether nothing changed.
func (d RoadmapDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.CompletionChange) == 0 &&
		len(d.NotesChanged) == 0 && d.OldConnections == d.NewConnections
}

// Summary returns a one-line description suitable for a status bar.
func (d RoadmapDiff) Summary() string {
	if d.Empty() {
		return "no changes"
	}
	var parts []string
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d nodes", n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d nodes", n))
	}
	if n := len(d.CompletionChange); n > 0 {
		parts = append(parts, fmt.Sprintf("%d progress changes", n))
	}
	if n := len(d.NotesChanged); n > 0 {
		parts = append(parts, fmt.Sprintf("%d notes edited", n))
	}
	if d.OldConnections != d.NewConnections {
		parts = append(parts, fmt.Sprintf("connections %d→%d", d.OldConnections, d.NewConnections))
	}
	return strings.Join(parts, ", ")
}
