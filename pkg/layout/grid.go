package layout

import (
	"math"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Grid places ids row-major on a square-ish grid. Each node sits at the
// centre of its cell; the canvas is Columns*ColumnWidth by Rows*RowHeight.
func Grid(ids []string, opts Options) Result {
	opts = opts.normalized()
	n := len(ids)
	res := Result{
		Mode:      ModeGrid,
		Positions: make(map[string]model.Vec3, n),
		Order:     append([]string(nil), ids...),
	}
	if n == 0 {
		return res
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	for i, id := range ids {
		row := i / cols
		col := i % cols
		res.Positions[id] = model.Vec3{
			X: float64(col)*opts.ColumnWidth + opts.ColumnWidth/2,
			Y: float64(row)*opts.RowHeight + opts.RowHeight/2,
		}
	}
	res.Columns = cols
	res.Rows = rows
	res.Bounds = Bounds{
		Max: model.Vec3{X: float64(cols) * opts.ColumnWidth, Y: float64(rows) * opts.RowHeight},
	}
	return res
}
