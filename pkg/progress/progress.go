// Package progress computes completion statistics for a roadmap.
package progress

import (
	"fmt"
	"math"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Summary is the aggregate completion of a node set.
type Summary struct {
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Percent   int             `json:"percent"`
	Phases    []PhaseProgress `json:"phases,omitempty"`
}

// PhaseProgress counts the nodes nested (at any depth) under one phase. The
// phase node itself is a container and is not counted.
type PhaseProgress struct {
	PhaseID   string `json:"phase_id"`
	Title     string `json:"title"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d/%d (%d%%)", s.Completed, s.Total, s.Percent)
}

// Percent returns round(completed/total*100), or 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Summarize counts completed nodes. Phase breakdowns are included when any
// node is a phase.
func Summarize(nodes []model.Node) Summary {
	s := Summary{Total: len(nodes)}
	for _, n := range nodes {
		if n.Completed {
			s.Completed++
		}
	}
	s.Percent = Percent(s.Completed, s.Total)
	s.Phases = byPhase(nodes)
	return s
}

// ForRoadmap summarizes a roadmap, treating nil as empty.
func ForRoadmap(rm *model.Roadmap) Summary {
	if rm == nil {
		return Summary{}
	}
	return Summarize(rm.Nodes)
}

func byPhase(nodes []model.Node) []PhaseProgress {
	byID := make(map[string]*model.Node, len(nodes))
	var phases []PhaseProgress
	index := make(map[string]int)
	for i := range nodes {
		n := &nodes[i]
		byID[n.ID] = n
		if n.Type == model.TypePhase {
			if _, dup := index[n.ID]; dup {
				continue
			}
			index[n.ID] = len(phases)
			phases = append(phases, PhaseProgress{PhaseID: n.ID, Title: n.Title})
		}
	}
	if len(phases) == 0 {
		return nil
	}

	for _, n := range nodes {
		if n.Type == model.TypePhase {
			continue
		}
		phaseID, ok := enclosingPhase(n, byID, len(nodes))
		if !ok {
			continue
		}
		p := &phases[index[phaseID]]
		p.Total++
		if n.Completed {
			p.Completed++
		}
	}
	for i := range phases {
		phases[i].Percent = Percent(phases[i].Completed, phases[i].Total)
	}
	return phases
}

// enclosingPhase walks Parent links up to the nearest phase. The walk is
// bounded so parent cycles terminate.
func enclosingPhase(n model.Node, byID map[string]*model.Node, limit int) (string, bool) {
	cur := n.Parent
	for steps := 0; cur != "" && steps < limit; steps++ {
		parent, ok := byID[cur]
		if !ok {
			return "", false
		}
		if parent.Type == model.TypePhase {
			return parent.ID, true
		}
		cur = parent.Parent
	}
	return "", false
}
