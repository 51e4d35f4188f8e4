package layout

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Layered places nodes in columns by their longest prerequisite chain, so
// every connection points left to right. Within a column nodes are ordered by
// importance, then ID. Roadmaps with a connection cycle fall back to Grid.
func Layered(rm *model.Roadmap, opts Options) Result {
	opts = opts.normalized()
	if rm == nil || len(rm.Nodes) == 0 {
		return Result{Mode: ModeLayered, Positions: map[string]model.Vec3{}}
	}

	index := make(map[string]int64, len(rm.Nodes))
	g := simple.NewDirectedGraph()
	for i, n := range rm.Nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		index[n.ID] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, c := range rm.ValidConnections() {
		from, to := index[c.From], index[c.To]
		if from == to {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	sorted, err := topo.Sort(g)
	if err != nil {
		return Grid(nodeIDs(rm), opts)
	}

	depth := make(map[int64]int, len(sorted))
	maxDepth := 0
	for _, n := range sorted {
		d := 0
		preds := g.To(n.ID())
		for preds.Next() {
			if pd := depth[preds.Node().ID()] + 1; pd > d {
				d = pd
			}
		}
		depth[n.ID()] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	columns := make([][]*model.Node, maxDepth+1)
	for _, idx := range index {
		columns[depth[idx]] = append(columns[depth[idx]], &rm.Nodes[idx])
	}

	res := Result{
		Mode:      ModeLayered,
		Positions: make(map[string]model.Vec3, len(index)),
		Columns:   len(columns),
	}
	for col, nodes := range columns {
		sort.Slice(nodes, func(i, j int) bool {
			const eps = 1e-9
			if diff := nodes[i].Importance - nodes[j].Importance; math.Abs(diff) > eps {
				return diff > 0
			}
			return nodes[i].ID < nodes[j].ID
		})
		if len(nodes) > res.Rows {
			res.Rows = len(nodes)
		}
		for row, n := range nodes {
			res.Positions[n.ID] = model.Vec3{
				X: float64(col)*opts.ColumnWidth + opts.ColumnWidth/2,
				Y: float64(row)*opts.RowHeight + opts.RowHeight/2,
			}
			res.Order = append(res.Order, n.ID)
		}
	}
	res.Bounds = Bounds{
		Max: model.Vec3{X: float64(res.Columns) * opts.ColumnWidth, Y: float64(res.Rows) * opts.RowHeight},
	}
	return res
}
