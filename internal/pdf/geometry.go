package pdf

import (
	"math"
	"sync"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/model"
)

// The tabula content stream parser keeps its operand stack in a package
// variable.
var parseMu sync.Mutex

// placement is one image XObject painted on the page, in user space.
type placement struct {
	name string
	box  model.BBox
}

// imagePlacements walks a content stream and records every image painted with
// Do, tracking the CTM through q, Q and cm. isImage decides which XObject
// names refer to images; forms and unknown names are ignored.
func imagePlacements(content []byte, isImage func(name string) bool) ([]placement, error) {
	parseMu.Lock()
	ops, err := contentstream.NewParser(content).Parse()
	parseMu.Unlock()
	if err != nil {
		return nil, err
	}

	ctm := model.Identity()
	var stack []model.Matrix
	var out []placement

	for _, op := range ops {
		switch op.Operator {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			m, ok := matrixOperands(op.Operands)
			if !ok {
				continue
			}
			ctm = m.Multiply(ctm)
		case "Do":
			if len(op.Operands) != 1 {
				continue
			}
			name, ok := op.Operands[0].(core.Name)
			if !ok || !isImage(string(name)) {
				continue
			}
			out = append(out, placement{name: string(name), box: unitSquare(ctm)})
		}
	}
	return out, nil
}

// unitSquare maps the image space unit square through m.
func unitSquare(m model.Matrix) model.BBox {
	corners := []model.Point{
		m.Transform(model.Point{X: 0, Y: 0}),
		m.Transform(model.Point{X: 1, Y: 0}),
		m.Transform(model.Point{X: 0, Y: 1}),
		m.Transform(model.Point{X: 1, Y: 1}),
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	return model.NewBBox(minX, minY, maxX-minX, maxY-minY)
}

func matrixOperands(operands []core.Object) (model.Matrix, bool) {
	var m model.Matrix
	if len(operands) != 6 {
		return m, false
	}
	for i, o := range operands {
		v, ok := number(o)
		if !ok {
			return m, false
		}
		m[i] = v
	}
	return m, true
}

func number(o core.Object) (float64, bool) {
	switch v := o.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	}
	return 0, false
}

// coverageFraction sums placement areas over the page area, capped at 1.
// Overlapping images are counted twice.
func coverageFraction(placements []placement, pageWidth, pageHeight float64) float64 {
	pageArea := pageWidth * pageHeight
	if pageArea <= 0 {
		return 0
	}
	var area float64
	for _, p := range placements {
		area += math.Abs(p.box.Width * p.box.Height)
	}
	return math.Min(area/pageArea, 1)
}

// paintOrder returns distinct image names in the order they are first painted.
func paintOrder(placements []placement) []string {
	seen := make(map[string]bool, len(placements))
	var names []string
	for _, p := range placements {
		if !seen[p.name] {
			seen[p.name] = true
			names = append(names, p.name)
		}
	}
	return names
}
