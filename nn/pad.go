package nn

import (
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/go-compute/ir"
)

// PadMode selects how out-of-range elements of a padded tensor are filled.
type PadMode int

const (
	// PadConstant fills with a constant value (zero by default).
	PadConstant PadMode = iota
	// PadEdge replicates the nearest boundary element.
	PadEdge
	// PadReflect mirrors the interior around the boundary.
	PadReflect
)

// String returns the mode's conventional name.
func (m PadMode) String() string {
	switch m {
	case PadConstant:
		return "constant"
	case PadEdge:
		return "edge"
	case PadReflect:
		return "reflect"
	default:
		return "unknown"
	}
}

// Pad builds a padded view of x. The pad amounts apply from the leading
// dimensions; dimensions beyond len(before) are unpadded. Missing trailing
// entries of after default to the corresponding before value, producing
// symmetric padding on those dimensions. All pad amounts must be int32
// expressions.
//
// fill is the value substituted outside the valid region in PadConstant
// mode; pass ir.None for the zero value of x's element type. PadEdge and
// PadReflect ignore fill.
//
// name labels the output tensor; when empty a unique name is generated.
func Pad(x *ir.Tensor, before, after []ir.Expr, fill ir.Expr, mode PadMode, name string) (*ir.Tensor, error) {
	g := x.Graph()
	if len(before) == 0 {
		return nil, errors.Wrap(ErrConfig, "Pad: pad_before must not be empty")
	}
	if len(before) > x.Rank() {
		return nil, errors.Wrapf(ErrConfig, "Pad: %d pad amounts for a rank-%d tensor",
			len(before), x.Rank())
	}
	if len(after) > len(before) {
		return nil, errors.Wrapf(ErrConfig, "Pad: pad_after has %d entries, pad_before only %d",
			len(after), len(before))
	}
	// Missing trailing pad_after entries take the pad_before value,
	// giving symmetric padding on those dimensions.
	after = append(append([]ir.Expr(nil), after...), before[len(after):]...)
	for i := range before {
		if g.DTypeOf(before[i]) != dtypes.Int32 {
			return nil, errors.Wrapf(ErrConfig, "Pad: pad_before[%d] must be int32, got %s",
				i, g.DTypeOf(before[i]))
		}
		if g.DTypeOf(after[i]) != dtypes.Int32 {
			return nil, errors.Wrapf(ErrConfig, "Pad: pad_after[%d] must be int32, got %s",
				i, g.DTypeOf(after[i]))
		}
	}
	switch mode {
	case PadConstant, PadEdge, PadReflect:
	default:
		return nil, errors.Wrapf(ErrUnsupported, "Pad: unknown pad mode %d", int(mode))
	}
	if !fill.Valid() {
		fill = g.Zero(x.DType())
	}

	shape := x.Shape()
	outShape := make([]ir.Expr, x.Rank())
	for i := range outShape {
		if i < len(before) {
			outShape[i] = g.Simplify(g.Add(g.Add(shape[i], before[i]), after[i]))
		} else {
			outShape[i] = shape[i]
		}
	}
	if name == "" {
		name = g.UniqueName("pad_out")
	}

	out := g.Compute(name, outShape, func(index []ir.Expr) ir.Expr {
		indices := make([]ir.Expr, 0, len(index))
		padIdx := make([]ir.Expr, 0, len(index))
		var conds []ir.Expr
		for i, iv := range index {
			if i >= len(before) {
				indices = append(indices, iv)
				padIdx = append(padIdx, iv)
				continue
			}
			lo, hi := before[i], after[i]
			upper := g.Simplify(g.Add(lo, shape[i]))
			if isStaticZero(g, lo) {
				indices = append(indices, iv)
			} else {
				conds = append(conds, g.Ge(iv, lo))
				indices = append(indices, g.Sub(iv, lo))
			}
			if !isStaticZero(g, hi) {
				conds = append(conds, g.Lt(iv, upper))
			}
			switch mode {
			case PadEdge:
				// Clamp to [0, size-1].
				padIdx = append(padIdx, g.Select(
					g.Lt(iv, lo),
					g.Int(0),
					g.Select(g.Ge(iv, upper),
						g.Simplify(g.Sub(shape[i], g.Int(1))),
						g.Sub(iv, lo))))
			case PadReflect:
				// Mirror: before-i below the valid region, size*2-i+before-2 above.
				padIdx = append(padIdx, g.Select(
					g.Lt(iv, lo),
					g.Sub(lo, iv),
					g.Select(g.Ge(iv, upper),
						g.Add(g.Sub(g.Mul(shape[i], g.Int(2)), iv), g.Sub(lo, g.Int(2))),
						g.Sub(iv, lo))))
			default:
				padIdx = append(padIdx, iv)
			}
		}
		if len(conds) == 0 {
			return x.At(indices...)
		}
		cond := conds[0]
		for _, c := range conds[1:] {
			cond = g.And(cond, c)
		}
		if mode == PadConstant {
			return g.Select(cond, x.At(indices...), fill)
		}
		return g.Select(cond, x.At(indices...), x.At(padIdx...))
	})
	if err := g.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// isStaticZero reports whether e folds to the integer constant 0.
func isStaticZero(g *ir.Graph, e ir.Expr) bool {
	v, ok := g.IntValue(g.Simplify(e))
	return ok && v == 0
}
