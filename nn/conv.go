package nn

import (
	"github.com/pkg/errors"

	"github.com/gomlx/go-compute/ir"
)

// Conv2DResult holds the tensors produced by a convolution lowering. The
// intermediates are first-class outputs so a fusion-aware scheduler can
// decide whether to materialize or inline them.
type Conv2DResult struct {
	PaddedInput    *ir.Tensor
	DilatedWeights *ir.Tensor
	Output         *ir.Tensor
}

// Conv2D lowers a 2D convolution in NCHW layout. input is
// [batch, channels, height, width]; weights is
// [out_channels, in_channels, kernel_h, kernel_w].
//
// Dilation is expressed by zero-interleaving the weights: the dilated kernel
// has spatial extent dilation*(k-1)+1 and carries the original tap at
// positions divisible by dilation, zero elsewhere. The output extent per
// spatial axis is floor((in - dilated_kernel + 2*pad) / stride) + 1, and the
// result is a sum reduction over input channel and the two dilated kernel
// axes.
//
// Grouped convolution is not implemented: groups must be 1.
func Conv2D(input, weights *ir.Tensor, padH, padW, strideH, strideW, dilation, groups int, name string) (Conv2DResult, error) {
	g := input.Graph()
	if input.Rank() != 4 {
		return Conv2DResult{}, errors.Wrapf(ErrConfig, "Conv2D: input rank is %d, want 4", input.Rank())
	}
	if weights.Rank() != 4 {
		return Conv2DResult{}, errors.Wrapf(ErrConfig, "Conv2D: weights rank is %d, want 4", weights.Rank())
	}
	if strideH <= 0 || strideW <= 0 {
		return Conv2DResult{}, errors.Wrapf(ErrConfig, "Conv2D: strides must be positive, got (%d, %d)", strideH, strideW)
	}
	if dilation < 1 {
		return Conv2DResult{}, errors.Wrapf(ErrConfig, "Conv2D: dilation must be at least 1, got %d", dilation)
	}
	if padH < 0 || padW < 0 {
		return Conv2DResult{}, errors.Wrapf(ErrConfig, "Conv2D: padding must not be negative, got (%d, %d)", padH, padW)
	}
	if groups != 1 {
		return Conv2DResult{}, errors.Wrapf(ErrUnsupported, "Conv2D: grouped convolution is not implemented, got groups=%d", groups)
	}
	ishape := input.Shape()
	wshape := weights.Shape()
	if ci, ok := g.IntValue(ishape[1]); ok {
		if wi, ok := g.IntValue(wshape[1]); ok && ci != wi {
			return Conv2DResult{}, errors.Wrapf(ErrConfig,
				"Conv2D: input has %d channels, weights expect %d", ci, wi)
		}
	}
	if name == "" {
		name = g.UniqueName("conv2d_out")
	}

	zero := g.Int(0)
	padded, err := Pad(input,
		[]ir.Expr{zero, zero, g.Int(int64(padH)), g.Int(int64(padW))},
		nil, ir.None, PadConstant, g.UniqueName("input_pad"))
	if err != nil {
		return Conv2DResult{}, err
	}

	dkh := g.Simplify(g.Add(g.Mul(g.Int(int64(dilation)), g.Sub(wshape[2], g.Int(1))), g.Int(1)))
	dkw := g.Simplify(g.Add(g.Mul(g.Int(int64(dilation)), g.Sub(wshape[3], g.Int(1))), g.Int(1)))
	dilatedShape := []ir.Expr{wshape[0], wshape[1], dkh, dkw}
	var dilated *ir.Tensor
	if dilation == 1 {
		dilated = g.Compute(g.UniqueName("weights_dilation"), dilatedShape, func(index []ir.Expr) ir.Expr {
			return weights.At(index...)
		})
	} else {
		dil := g.Int(int64(dilation))
		dilated = g.Compute(g.UniqueName("weights_dilation"), dilatedShape, func(index []ir.Expr) ir.Expr {
			cond := g.And(
				g.Eq(g.Mod(index[2], dil), zero),
				g.Eq(g.Mod(index[3], dil), zero))
			return g.Select(cond,
				weights.At(index[0], index[1], g.Div(index[2], dil), g.Div(index[3], dil)),
				g.Zero(weights.DType()))
		})
	}

	outShape := []ir.Expr{
		ishape[0],
		wshape[0],
		g.Simplify(g.Add(g.Div(g.Add(g.Sub(ishape[2], dkh), g.Int(int64(2*padH))), g.Int(int64(strideH))), g.Int(1))),
		g.Simplify(g.Add(g.Div(g.Add(g.Sub(ishape[3], dkw), g.Int(int64(2*padW))), g.Int(int64(strideW))), g.Int(1))),
	}

	rc := g.Var(g.UniqueName("rc"), padded.Shape()[1])
	ry := g.Var(g.UniqueName("ry"), dilated.Shape()[2])
	rx := g.Var(g.UniqueName("rx"), dilated.Shape()[3])
	out := g.Compute(name, outShape, func(index []ir.Expr) ir.Expr {
		n, f, y, x := index[0], index[1], index[2], index[3]
		elem := padded.At(n, rc,
			g.Add(g.Mul(y, g.Int(int64(strideH))), ry),
			g.Add(g.Mul(x, g.Int(int64(strideW))), rx))
		tap := dilated.At(f, rc, ry, rx)
		return g.ReduceSum(g.Mul(elem, tap), g.Zero(input.DType()), ry, rx, rc)
	}, ry, rx, rc)
	if err := g.Err(); err != nil {
		return Conv2DResult{}, err
	}
	return Conv2DResult{PaddedInput: padded, DilatedWeights: dilated, Output: out}, nil
}
