package nn

import (
	"github.com/pkg/errors"

	"github.com/gomlx/go-compute/ir"
)

// PoolKind selects the pooling reduction operator.
type PoolKind int

const (
	// MaxPool reduces each window with maximum.
	MaxPool PoolKind = iota
	// AvgPool reduces each window with a divided sum.
	AvgPool
)

// String returns the kind's conventional name.
func (k PoolKind) String() string {
	switch k {
	case MaxPool:
		return "max"
	case AvgPool:
		return "avg"
	default:
		return "unknown"
	}
}

// Layout names which tensor dimensions are batch, channel, and spatial.
type Layout int

const (
	NCW Layout = iota
	NWC
	NCHW
	NHWC
	NCDHW
	NDHWC
)

// String returns the layout's conventional name.
func (l Layout) String() string {
	switch l {
	case NCW:
		return "NCW"
	case NWC:
		return "NWC"
	case NCHW:
		return "NCHW"
	case NHWC:
		return "NHWC"
	case NCDHW:
		return "NCDHW"
	case NDHWC:
		return "NDHWC"
	default:
		return "unknown"
	}
}

// PoolSpec parameterizes a pooling lowering. Kernel, Stride, and Axes have
// one entry per active pooling axis; Padding holds the head amounts for every
// active axis followed by the tail amounts (2 x axis count entries).
type PoolSpec struct {
	Kernel  []int
	Stride  []int
	Padding []int
	Kind    PoolKind
	// Axes maps each active pooling axis onto a tensor dimension index.
	// The layout adapters Pool1D/Pool2D/Pool3D fill this in.
	Axes []int
	// CeilMode rounds the output extent up instead of down when the window
	// does not evenly divide the padded input. It is implemented by widening
	// the tail padding by stride-1 before the extent formula, never by
	// switching the division to a ceiling.
	CeilMode bool
	// Exclusive makes the average-pooling divisor count only in-bounds
	// window elements. Ignored for max pooling.
	Exclusive bool
}

// PoolResult holds the tensors produced by a pooling lowering.
type PoolResult struct {
	// Padded is the padded intermediate. It equals the input tensor when no
	// padding applies.
	Padded *ir.Tensor
	Output *ir.Tensor
}

// Pool lowers an N-axis pooling over the tensor dimensions named in
// spec.Axes; the remaining dimensions pass through unchanged. The output
// extent of each active axis is
//
//	floor((in + pad_head + pad_tail - kernel) / stride) + 1
//
// Max pooling pads with the element type's minimum value and reduces with
// maximum; average pooling pads with zero, reduces with sum, and divides by
// the window volume (inclusive) or the in-bounds overlap clamped to at least
// one (exclusive).
func Pool(x *ir.Tensor, spec PoolSpec, name string) (PoolResult, error) {
	g := x.Graph()
	k := len(spec.Kernel)
	if k == 0 {
		return PoolResult{}, errors.Wrap(ErrConfig, "Pool: kernel must not be empty")
	}
	if len(spec.Stride) != k {
		return PoolResult{}, errors.Wrapf(ErrConfig,
			"Pool: stride has %d entries, kernel has %d", len(spec.Stride), k)
	}
	if len(spec.Padding) != 2*k {
		return PoolResult{}, errors.Wrapf(ErrConfig,
			"Pool: padding has %d entries, want %d (head then tail per axis)", len(spec.Padding), 2*k)
	}
	if len(spec.Axes) != k {
		return PoolResult{}, errors.Wrapf(ErrConfig,
			"Pool: axes has %d entries, kernel has %d", len(spec.Axes), k)
	}
	rank := x.Rank()
	seen := make(map[int]bool, k)
	for i := 0; i < k; i++ {
		if spec.Kernel[i] <= 0 {
			return PoolResult{}, errors.Wrapf(ErrConfig, "Pool: kernel[%d] = %d, must be positive", i, spec.Kernel[i])
		}
		if spec.Stride[i] <= 0 {
			return PoolResult{}, errors.Wrapf(ErrConfig, "Pool: stride[%d] = %d, must be positive", i, spec.Stride[i])
		}
		if spec.Padding[i] < 0 || spec.Padding[i+k] < 0 {
			return PoolResult{}, errors.Wrapf(ErrConfig, "Pool: negative padding on axis %d", i)
		}
		ax := spec.Axes[i]
		if ax < 0 || ax >= rank {
			return PoolResult{}, errors.Wrapf(ErrConfig,
				"Pool: axis %d out of range for rank-%d tensor", ax, rank)
		}
		if seen[ax] {
			return PoolResult{}, errors.Wrapf(ErrConfig, "Pool: duplicate pooling axis %d", ax)
		}
		seen[ax] = true
	}
	switch spec.Kind {
	case MaxPool, AvgPool:
	default:
		return PoolResult{}, errors.Wrapf(ErrUnsupported, "Pool: unknown pooling kind %d", int(spec.Kind))
	}

	shape := x.Shape()
	outShape := x.Shape()
	padBefore := make([]ir.Expr, rank)
	padAfter := make([]ir.Expr, rank)
	for i := range padBefore {
		padBefore[i] = g.Int(0)
		padAfter[i] = g.Int(0)
	}
	kernel := make([]ir.Expr, k)
	stride := make([]ir.Expr, k)
	padHead := make([]ir.Expr, k)
	axisVars := make([]ir.Expr, k)
	doPad := false
	for i := 0; i < k; i++ {
		ax := spec.Axes[i]
		kernel[i] = g.Int(int64(spec.Kernel[i]))
		stride[i] = g.Int(int64(spec.Stride[i]))
		padHead[i] = g.Int(int64(spec.Padding[i]))
		tail := spec.Padding[i+k]
		if spec.CeilMode {
			tail += spec.Stride[i] - 1
		}
		padTail := g.Int(int64(tail))
		if spec.Padding[i] > 0 || tail > 0 {
			doPad = true
		}
		axisVars[i] = g.Var(g.UniqueName("kernel_idx"), kernel[i])
		padBefore[ax] = padHead[i]
		padAfter[ax] = padTail
		outShape[ax] = g.Simplify(g.Add(
			g.Div(g.Add(g.Add(g.Sub(shape[ax], kernel[i]), padHead[i]), padTail), stride[i]),
			g.Int(1)))
	}
	if name == "" {
		name = g.UniqueName("pool_out")
	}

	var fill ir.Expr
	if spec.Kind == MaxPool {
		var err error
		fill, err = g.MinValue(x.DType())
		if err != nil {
			return PoolResult{}, errors.Wrap(err, "Pool")
		}
	} else {
		fill = g.Zero(x.DType())
	}

	padded := x
	if doPad {
		var err error
		padded, err = Pad(x, padBefore, padAfter, fill, PadConstant, g.UniqueName("pad_temp"))
		if err != nil {
			return PoolResult{}, err
		}
	}

	// sample shifts the active axes into the pooling window.
	sample := func(index []ir.Expr) []ir.Expr {
		indices := append([]ir.Expr(nil), index...)
		for i := 0; i < k; i++ {
			ax := spec.Axes[i]
			indices[ax] = g.Add(g.Mul(index[ax], stride[i]), axisVars[i])
		}
		return indices
	}

	var out *ir.Tensor
	switch spec.Kind {
	case MaxPool:
		out = g.Compute(name, outShape, func(index []ir.Expr) ir.Expr {
			return g.ReduceMax(padded.At(sample(index)...), fill, axisVars...)
		}, axisVars...)
	case AvgPool:
		out = g.Compute(name, outShape, func(index []ir.Expr) ir.Expr {
			elem := padded.At(sample(index)...)
			var divisor ir.Expr
			if spec.Exclusive {
				// Overlap of the window with the un-padded valid region,
				// clamped to at least 1 to avoid dividing by zero.
				factor := g.Int(1)
				for i := 0; i < k; i++ {
					ax := spec.Axes[i]
					start := g.Simplify(g.Sub(g.Mul(index[ax], stride[i]), padHead[i]))
					end := g.Min(g.Add(start, kernel[i]), shape[ax])
					start = g.Max(start, g.Int(0))
					factor = g.Mul(factor, g.Sub(end, start))
				}
				divisor = g.Max(g.Simplify(factor), g.Int(1))
			} else {
				volume := int64(1)
				for _, ks := range spec.Kernel {
					volume *= int64(ks)
				}
				divisor = g.Int(volume)
			}
			return g.ReduceSum(
				g.Div(elem, g.Cast(divisor, x.DType())),
				g.Zero(x.DType()),
				axisVars...)
		}, axisVars...)
	}
	if err := g.Err(); err != nil {
		return PoolResult{}, err
	}
	return PoolResult{Padded: padded, Output: out}, nil
}

// Pool1D pools the width axis of a rank-3 tensor in NCW or NWC layout.
func Pool1D(x *ir.Tensor, spec PoolSpec, layout Layout, name string) (PoolResult, error) {
	if x.Rank() != 3 {
		return PoolResult{}, errors.Wrapf(ErrConfig, "Pool1D: input rank is %d, want 3", x.Rank())
	}
	if len(spec.Axes) != 0 {
		return PoolResult{}, errors.Wrap(ErrConfig, "Pool1D: Axes are derived from the layout, leave them empty")
	}
	switch layout {
	case NCW:
		spec.Axes = []int{2}
	case NWC:
		spec.Axes = []int{1}
	default:
		return PoolResult{}, errors.Wrapf(ErrUnsupported, "Pool1D: unsupported data layout %s", layout)
	}
	return Pool(x, spec, name)
}

// Pool2D pools the height and width axes of a rank-4 tensor in NCHW or NHWC
// layout.
func Pool2D(x *ir.Tensor, spec PoolSpec, layout Layout, name string) (PoolResult, error) {
	if x.Rank() != 4 {
		return PoolResult{}, errors.Wrapf(ErrConfig, "Pool2D: input rank is %d, want 4", x.Rank())
	}
	if len(spec.Axes) != 0 {
		return PoolResult{}, errors.Wrap(ErrConfig, "Pool2D: Axes are derived from the layout, leave them empty")
	}
	switch layout {
	case NCHW:
		spec.Axes = []int{2, 3}
	case NHWC:
		spec.Axes = []int{1, 2}
	default:
		return PoolResult{}, errors.Wrapf(ErrUnsupported, "Pool2D: unsupported data layout %s", layout)
	}
	return Pool(x, spec, name)
}

// Pool3D pools the depth, height, and width axes of a rank-5 tensor in NCDHW
// or NDHWC layout.
func Pool3D(x *ir.Tensor, spec PoolSpec, layout Layout, name string) (PoolResult, error) {
	if x.Rank() != 5 {
		return PoolResult{}, errors.Wrapf(ErrConfig, "Pool3D: input rank is %d, want 5", x.Rank())
	}
	if len(spec.Axes) != 0 {
		return PoolResult{}, errors.Wrap(ErrConfig, "Pool3D: Axes are derived from the layout, leave them empty")
	}
	switch layout {
	case NCDHW:
		spec.Axes = []int{2, 3, 4}
	case NDHWC:
		spec.Axes = []int{1, 2, 3}
	default:
		return PoolResult{}, errors.Wrapf(ErrUnsupported, "Pool3D: unsupported data layout %s", layout)
	}
	return Pool(x, spec, name)
}
