package nn

import (
	"github.com/pkg/errors"

	"github.com/gomlx/go-compute/ir"
)

// BatchNorm lowers a batch normalization in NCHW layout:
//
//	y = (x - mean[c]) / sqrt(variance[c] + epsilon) * scale[c] + bias[c]
//
// params is a rank-2 tensor whose four rows are, in order, the per-channel
// mean, variance, scale, and bias; its channel extent must match the input's.
func BatchNorm(x, params *ir.Tensor, epsilon float64, name string) (*ir.Tensor, error) {
	g := x.Graph()
	if x.Rank() != 4 {
		return nil, errors.Wrapf(ErrConfig, "BatchNorm: input rank is %d, want 4", x.Rank())
	}
	if params.Rank() != 2 {
		return nil, errors.Wrapf(ErrConfig, "BatchNorm: params rank is %d, want 2", params.Rank())
	}
	if rows, ok := g.IntValue(params.Shape()[0]); ok && rows != 4 {
		return nil, errors.Wrapf(ErrConfig,
			"BatchNorm: params has %d rows, want 4 (mean, variance, scale, bias)", rows)
	}
	if ci, ok := g.IntValue(x.Shape()[1]); ok {
		if pc, ok := g.IntValue(params.Shape()[1]); ok && ci != pc {
			return nil, errors.Wrapf(ErrConfig,
				"BatchNorm: input has %d channels, params has %d", ci, pc)
		}
	}
	if name == "" {
		name = g.UniqueName("batchnorm_out")
	}

	eps := g.Float(x.DType(), epsilon)
	out := g.Compute(name, x.Shape(), func(index []ir.Expr) ir.Expr {
		c := index[1]
		mean := params.At(g.Int(0), c)
		variance := params.At(g.Int(1), c)
		scale := params.At(g.Int(2), c)
		bias := params.At(g.Int(3), c)
		normed := g.Div(g.Sub(x.At(index...), mean), g.Sqrt(g.Add(variance, eps)))
		return g.Add(g.Mul(normed, scale), bias)
	})
	if err := g.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
