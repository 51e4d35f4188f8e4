//go:build ignore

// generate_testdata.go creates roadmap datasets for benchmarking the layout
// engine and the canvas.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	testdata/roadmaps/small.json   (phased, ~60 nodes)
//	testdata/roadmaps/medium.json  (random DAG, 500 nodes)
//	testdata/roadmaps/large.json   (random DAG, 2000 nodes)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/roadwork/internal/datasource"
	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
	desc string
}

var datasets = []datasetSpec{
	{"small", 0, "Phased roadmap: 4 phases, 3 milestones each, 4 skills per milestone"},
	{"medium", 500, "500 nodes - sparse random DAG"},
	{"large", 2000, "2000 nodes - very sparse random DAG"},
}

var titles = []string{
	"Learn the fundamentals",
	"Build a portfolio project",
	"Pass the certification exam",
	"Complete the online course",
	"Ship an internship deliverable",
	"Practice system design",
	"Write technical documentation",
	"Contribute to open source",
}

func main() {
	outputDir := "testdata/roadmaps"

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset...\n", ds.name)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:          int64(ds.size + 1), // Reproducible per-size
			IDPrefix:      ds.name,
			CompletedRate: 0.3,
			TypeMix: []model.NodeType{
				model.TypeSkill, model.TypeProject, model.TypeCourse,
				model.TypeCertification, model.TypeInternship,
			},
		})

		var gf testutil.GraphFixture
		if ds.size == 0 {
			gf = gen.Phased(4, 3, 4)
		} else {
			gf = gen.RandomDAG(ds.size, calculateDensity(ds.size))
		}
		rm := gen.ToRoadmap(gf)
		rm.Title = ds.desc
		for i := range rm.Nodes {
			rm.Nodes[i].Title = fmt.Sprintf("%s #%d", titles[i%len(titles)], i)
		}

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := datasource.WriteRoadmapFile(outputPath, rm); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d nodes, %d connections)\n", outputPath, len(rm.Nodes), len(rm.Connections))
	}

	fmt.Println("\nDone! Roadmap datasets created in", outputDir)
}

// calculateDensity keeps the edge count roughly linear in size.
func calculateDensity(size int) float64 {
	switch {
	case size <= 100:
		return 0.05
	case size <= 1000:
		return 0.004
	default:
		return 0.001
	}
}
