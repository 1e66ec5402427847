package nn

import (
	"github.com/pkg/errors"

	"github.com/gomlx/go-compute/ir"
)

// Relu builds the elementwise rectifier max(x, 0).
func Relu(x *ir.Tensor, name string) *ir.Tensor {
	g := x.Graph()
	if name == "" {
		name = g.UniqueName("relu_out")
	}
	return g.Compute(name, x.Shape(), func(index []ir.Expr) ir.Expr {
		return g.Max(x.At(index...), g.Zero(x.DType()))
	})
}

// LeakyRelu builds the elementwise activation: x when x >= 0, alpha*x
// otherwise.
func LeakyRelu(x *ir.Tensor, alpha float64, name string) *ir.Tensor {
	g := x.Graph()
	if name == "" {
		name = g.UniqueName("leaky_relu_out")
	}
	a := g.Float(x.DType(), alpha)
	return g.Compute(name, x.Shape(), func(index []ir.Expr) ir.Expr {
		v := x.At(index...)
		return g.Select(g.Ge(v, g.Zero(x.DType())), v, g.Mul(a, v))
	})
}

// PRelu builds a leaky rectifier whose negative slope is a tensor value
// indexed by the coordinate along axis. slope must be rank 1 with length
// equal to the input's extent on that axis.
func PRelu(x, slope *ir.Tensor, axis int, name string) (*ir.Tensor, error) {
	g := x.Graph()
	if axis < 0 || axis >= x.Rank() {
		return nil, errors.Wrapf(ErrConfig, "PRelu: axis %d out of range for rank-%d tensor", axis, x.Rank())
	}
	if slope.Rank() != 1 {
		return nil, errors.Wrapf(ErrConfig, "PRelu: slope rank is %d, want 1", slope.Rank())
	}
	if extent, ok := g.IntValue(x.Shape()[axis]); ok {
		if sl, ok := g.IntValue(slope.Shape()[0]); ok && extent != sl {
			return nil, errors.Wrapf(ErrConfig,
				"PRelu: axis %d has extent %d, slope has length %d", axis, extent, sl)
		}
	}
	if name == "" {
		name = g.UniqueName("prelu_out")
	}
	out := g.Compute(name, x.Shape(), func(index []ir.Expr) ir.Expr {
		v := x.At(index...)
		return g.Select(g.Ge(v, g.Zero(x.DType())), v, g.Mul(slope.At(index[axis]), v))
	})
	if err := g.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
