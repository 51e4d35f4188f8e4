package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/progress"
)

// AssertNodeCount checks the roadmap has the expected number of nodes.
func AssertNodeCount(t *testing.T, rm *model.Roadmap, expected int) {
	t.Helper()
	if len(rm.Nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(rm.Nodes))
	}
}

// AssertValid fails if the roadmap does not validate.
func AssertValid(t *testing.T, rm *model.Roadmap) {
	t.Helper()
	if err := rm.Validate(); err != nil {
		t.Errorf("roadmap %s invalid: %v", rm.ID, err)
	}
}

// AssertConnectionExists checks that from -> to is a connection.
func AssertConnectionExists(t *testing.T, rm *model.Roadmap, from, to string) {
	t.Helper()
	for _, c := range rm.Connections {
		if c.From == from && c.To == to {
			return
		}
	}
	t.Errorf("expected connection %s -> %s", from, to)
}

// AssertProgress checks the recomputed completion counts.
func AssertProgress(t *testing.T, rm *model.Roadmap, completed, total, percent int) {
	t.Helper()
	s := progress.ForRoadmap(rm)
	if s.Completed != completed || s.Total != total || s.Percent != percent {
		t.Errorf("progress = %s, want %d/%d (%d%%)", s, completed, total, percent)
	}
}

// AssertSameNodes checks two roadmaps hold the same nodes (ID, completion and
// notes) in the same order.
func AssertSameNodes(t *testing.T, want, got *model.Roadmap) {
	t.Helper()
	if len(want.Nodes) != len(got.Nodes) {
		t.Fatalf("node count: want %d, got %d", len(want.Nodes), len(got.Nodes))
	}
	for i := range want.Nodes {
		w, g := want.Nodes[i], got.Nodes[i]
		if w.ID != g.ID || w.Completed != g.Completed || w.Notes != g.Notes || w.Type != g.Type {
			t.Errorf("node %d: want %+v, got %+v", i, w, g)
		}
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper. With GENERATE_GOLDEN set the
// file is rewritten instead of compared.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{t: t, dir: dir, name: name, update: os.Getenv("GENERATE_GOLDEN") != ""}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}
	expLines := strings.Split(string(expected), "\n")
	actLines := strings.Split(actual, "\n")
	for i := 0; i < len(expLines) || i < len(actLines); i++ {
		var e, a string
		if i < len(expLines) {
			e = expLines[i]
		}
		if i < len(actLines) {
			a = actLines[i]
		}
		if e != a {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, e, a)
			return
		}
	}
}

// WriteRoadmapFile writes rm as indented JSON to path and returns path.
func WriteRoadmapFile(t *testing.T, path string, rm *model.Roadmap) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	data, err := json.MarshalIndent(rm, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal roadmap: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write roadmap file: %v", err)
	}
	return path
}

// NodeIDs returns the node IDs in order.
func NodeIDs(rm *model.Roadmap) []string {
	ids := make([]string, len(rm.Nodes))
	for i, n := range rm.Nodes {
		ids[i] = n.ID
	}
	return ids
}
