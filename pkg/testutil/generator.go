// Package testutil provides roadmap fixture generators for various graph
// topologies. All generators produce deterministic output for reproducible
// tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// GraphFixture is an abstract graph: node names plus [from, to] index pairs.
// Parents optionally maps a node index to its enclosing node index.
type GraphFixture struct {
	Description string      `json:"description"`
	Nodes       []string    `json:"nodes"`
	Edges       [][2]int    `json:"edges"`
	Parents     map[int]int `json:"parents,omitempty"`
	Properties  Properties  `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles     bool `json:"has_cycles,omitempty"`
	ExpectedDepth int  `json:"expected_depth,omitempty"`
}

// GeneratorConfig controls roadmap generation.
type GeneratorConfig struct {
	Seed          int64            // Random seed (0 = use current time)
	IDPrefix      string           // Prefix for node IDs (default: "N")
	BaseTime      time.Time        // CreatedAt/UpdatedAt of generated roadmaps
	CompletedRate float64          // Fraction of nodes marked completed
	TypeMix       []model.NodeType // Types for non-nested nodes (nil = skill)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		IDPrefix: "N",
		BaseTime: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		TypeMix:  []model.NodeType{model.TypeSkill},
	}
}

// Generator creates roadmap fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = DefaultConfig().BaseTime
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "N"
	}
	if len(cfg.TypeMix) == 0 {
		cfg.TypeMix = []model.NodeType{model.TypeSkill}
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Chain creates n0 -> n1 -> ... -> n{size-1}.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Linear chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{ExpectedDepth: max(size-1, 0)},
	}
}

// Star creates a hub pointing to every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := []string{"hub"}
	edges := make([][2]int, 0, spokes)
	for i := 1; i <= spokes; i++ {
		nodes = append(nodes, fmt.Sprintf("spoke%d", i))
		edges = append(edges, [2]int{0, i})
	}
	return GraphFixture{
		Description: fmt.Sprintf("Star with hub and %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{ExpectedDepth: 1},
	}
}

// Cycle creates n0 -> n1 -> ... -> n{size-1} -> n0.
func (g *Generator) Cycle(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Cycle of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{HasCycles: true},
	}
}

// Phased creates the nested shape the radial layout expects: `phases` roots,
// each with `milestones` children, each with `skills` grandchildren. Parent
// links and parent->child edges are both set, and phases are chained.
func (g *Generator) Phased(phases, milestones, skills int) GraphFixture {
	gf := GraphFixture{
		Description: fmt.Sprintf("%d phases x %d milestones x %d skills", phases, milestones, skills),
		Parents:     map[int]int{},
		Properties:  Properties{ExpectedDepth: 2},
	}
	add := func(name string) int {
		gf.Nodes = append(gf.Nodes, name)
		return len(gf.Nodes) - 1
	}
	prevPhase := -1
	for p := 0; p < phases; p++ {
		pi := add(fmt.Sprintf("phase%d", p))
		if prevPhase >= 0 {
			gf.Edges = append(gf.Edges, [2]int{prevPhase, pi})
		}
		prevPhase = pi
		for m := 0; m < milestones; m++ {
			mi := add(fmt.Sprintf("phase%d-m%d", p, m))
			gf.Parents[mi] = pi
			gf.Edges = append(gf.Edges, [2]int{pi, mi})
			for s := 0; s < skills; s++ {
				si := add(fmt.Sprintf("phase%d-m%d-s%d", p, m, s))
				gf.Parents[si] = mi
				gf.Edges = append(gf.Edges, [2]int{mi, si})
			}
		}
	}
	return gf
}

// RandomDAG creates a random DAG; edges only go from lower to higher index.
func (g *Generator) RandomDAG(size int, density float64) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		for j := 0; j < i; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{j, i})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Random DAG with %d nodes, density %.2f", size, density),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// ToRoadmap converts a GraphFixture into a roadmap. Nodes with a parent get a
// type by nesting depth (milestone, then skill); roots that have children
// become phases.
func (g *Generator) ToRoadmap(gf GraphFixture) *model.Roadmap {
	id := func(i int) string { return fmt.Sprintf("%s-%s", g.cfg.IDPrefix, gf.Nodes[i]) }

	hasKids := map[int]bool{}
	for _, parent := range gf.Parents {
		hasKids[parent] = true
	}
	depth := func(i int) int {
		d := 0
		for cur, ok := gf.Parents[i]; ok && d <= len(gf.Nodes); cur, ok = gf.Parents[cur] {
			d++
		}
		return d
	}

	rm := &model.Roadmap{
		ID:        g.cfg.IDPrefix + "-roadmap",
		Title:     gf.Description,
		CreatedAt: g.cfg.BaseTime,
		UpdatedAt: g.cfg.BaseTime,
		Nodes:     make([]model.Node, len(gf.Nodes)),
	}
	for i, name := range gf.Nodes {
		n := model.Node{
			ID:         id(i),
			Title:      "Node " + name,
			Importance: float64(g.rng.Intn(100)) / 100,
			Completed:  g.rng.Float64() < g.cfg.CompletedRate,
		}
		switch {
		case depth(i) == 1:
			n.Type = model.TypeMilestone
		case depth(i) >= 2:
			n.Type = model.TypeSkill
		case hasKids[i]:
			n.Type = model.TypePhase
		default:
			n.Type = g.cfg.TypeMix[g.rng.Intn(len(g.cfg.TypeMix))]
		}
		if p, ok := gf.Parents[i]; ok {
			n.Parent = id(p)
		}
		rm.Nodes[i] = n
	}
	for _, e := range gf.Edges {
		rm.Connections = append(rm.Connections, model.Connection{From: id(e[0]), To: id(e[1])})
	}
	rm.RefreshProgress()
	return rm
}

// QuickChain creates a chain roadmap with default settings.
func QuickChain(size int) *model.Roadmap {
	gen := NewDefault()
	return gen.ToRoadmap(gen.Chain(size))
}

// QuickStar creates a star roadmap with default settings.
func QuickStar(spokes int) *model.Roadmap {
	gen := NewDefault()
	return gen.ToRoadmap(gen.Star(spokes))
}

// QuickCycle creates a cyclic roadmap with default settings.
func QuickCycle(size int) *model.Roadmap {
	gen := NewDefault()
	return gen.ToRoadmap(gen.Cycle(size))
}

// QuickPhased creates a nested phase/milestone/skill roadmap.
func QuickPhased(phases, milestones, skills int) *model.Roadmap {
	gen := NewDefault()
	return gen.ToRoadmap(gen.Phased(phases, milestones, skills))
}

// TwoNodes returns the smallest interesting roadmap: a (completed) -> b.
func TwoNodes() *model.Roadmap {
	rm := &model.Roadmap{
		ID:    "two",
		Title: "Two Nodes",
		Nodes: []model.Node{
			{ID: "a", Title: "A", Type: model.TypeSkill, Completed: true},
			{ID: "b", Title: "B", Type: model.TypeSkill},
		},
		Connections: []model.Connection{{From: "a", To: "b", Relation: model.RelationPrerequisite}},
	}
	rm.RefreshProgress()
	return rm
}
