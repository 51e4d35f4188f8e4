package testutil

import (
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

func TestChain(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		size      int
		wantEdges int
		wantDepth int
	}{
		{"chain_1", 1, 0, 0},
		{"chain_2", 2, 1, 1},
		{"chain_5", 5, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gf := gen.Chain(tt.size)
			if len(gf.Nodes) != tt.size {
				t.Errorf("Chain(%d) nodes = %d", tt.size, len(gf.Nodes))
			}
			if len(gf.Edges) != tt.wantEdges {
				t.Errorf("Chain(%d) edges = %d, want %d", tt.size, len(gf.Edges), tt.wantEdges)
			}
			if gf.Properties.ExpectedDepth != tt.wantDepth {
				t.Errorf("Chain(%d) depth = %d, want %d", tt.size, gf.Properties.ExpectedDepth, tt.wantDepth)
			}
			for i, e := range gf.Edges {
				if e[0] != i || e[1] != i+1 {
					t.Errorf("edge %d: got %v", i, e)
				}
			}
		})
	}
}

func TestPhased(t *testing.T) {
	rm := QuickPhased(2, 3, 2)
	AssertNodeCount(t, rm, 2+2*3+2*3*2)
	AssertValid(t, rm)

	counts := map[model.NodeType]int{}
	for _, n := range rm.Nodes {
		counts[n.Type]++
	}
	if counts[model.TypePhase] != 2 || counts[model.TypeMilestone] != 6 || counts[model.TypeSkill] != 12 {
		t.Errorf("type counts = %v", counts)
	}
	AssertConnectionExists(t, rm, "N-phase0", "N-phase1")
	if got := rm.NodeByID("N-phase1-m2-s1").Parent; got != "N-phase1-m2" {
		t.Errorf("parent = %q", got)
	}
}

func TestCycleFixture(t *testing.T) {
	rm := QuickCycle(3)
	if !NewDefault().Cycle(3).Properties.HasCycles {
		t.Error("cycle fixture not flagged")
	}
	AssertValid(t, rm)
	AssertConnectionExists(t, rm, "N-n2", "N-n0")
}

func TestDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CompletedRate = 0.5

	gen1 := New(cfg)
	rm1 := gen1.ToRoadmap(gen1.RandomDAG(20, 0.4))
	gen2 := New(cfg)
	rm2 := gen2.ToRoadmap(gen2.RandomDAG(20, 0.4))

	AssertSameNodes(t, rm1, rm2)
	if len(rm1.Connections) != len(rm2.Connections) {
		t.Errorf("connection counts differ: %d vs %d", len(rm1.Connections), len(rm2.Connections))
	}
}

func TestTwoNodes(t *testing.T) {
	rm := TwoNodes()
	AssertValid(t, rm)
	AssertProgress(t, rm, 1, 2, 50)
}

func TestWriteRoadmapFileAndGolden(t *testing.T) {
	dir := t.TempDir()
	path := WriteRoadmapFile(t, filepath.Join(dir, "nested", "two.json"), TwoNodes())
	if filepath.Base(path) != "two.json" {
		t.Errorf("path = %s", path)
	}

	t.Setenv("GENERATE_GOLDEN", "1")
	g := NewGoldenFile(t, dir, "ids.golden")
	g.Assert("a\nb\n")
	t.Setenv("GENERATE_GOLDEN", "")
	NewGoldenFile(t, dir, "ids.golden").Assert("a\nb\n")
}

func BenchmarkPhased(b *testing.B) {
	gen := NewDefault()
	for i := 0; i < b.N; i++ {
		_ = gen.ToRoadmap(gen.Phased(5, 5, 5))
	}
}
