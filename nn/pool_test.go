package nn_test

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/go-compute/interp"
	"github.com/gomlx/go-compute/ir"
	"github.com/gomlx/go-compute/nn"
)

func TestMaxPool2D(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 1, 4, 4)

	res, err := nn.Pool2D(x, nn.PoolSpec{
		Kernel:  []int{2, 2},
		Stride:  []int{2, 2},
		Padding: []int{0, 0, 0, 0},
		Kind:    nn.MaxPool,
	}, nn.NCHW, "pooled")
	require.NoError(t, err)

	// No padding requested, the intermediate is the input itself.
	assert.Same(t, x, res.Padded)
	assert.Equal(t, []int64{1, 1, 2, 2}, staticDims(t, res.Output))

	feed := interp.Feed{"x": {
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}}
	vals, err := interp.Materialize(res.Output, feed)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 8, 14, 16}, vals)
}

func TestAvgPool2DExclusive(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 1, 4, 4)

	ones := make([]float64, 16)
	for i := range ones {
		ones[i] = 1
	}

	res, err := nn.Pool2D(x, nn.PoolSpec{
		Kernel:    []int{2, 2},
		Stride:    []int{2, 2},
		Padding:   []int{1, 1, 1, 1},
		Kind:      nn.AvgPool,
		Exclusive: true,
	}, nn.NCHW, "")
	require.NoError(t, err)

	assert.NotSame(t, x, res.Padded)
	assert.Equal(t, []int64{1, 1, 3, 3}, staticDims(t, res.Output))

	// Each divisor counts only in-bounds elements, so an all-ones input
	// averages to one everywhere.
	vals, err := interp.Materialize(res.Output, interp.Feed{"x": ones})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}, vals)
}

func TestAvgPool2DInclusive(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 1, 4, 4)

	ones := make([]float64, 16)
	for i := range ones {
		ones[i] = 1
	}

	res, err := nn.Pool2D(x, nn.PoolSpec{
		Kernel:  []int{2, 2},
		Stride:  []int{2, 2},
		Padding: []int{1, 1, 1, 1},
		Kind:    nn.AvgPool,
	}, nn.NCHW, "")
	require.NoError(t, err)

	// The divisor is always the window volume, so padded border windows
	// average below one.
	vals, err := interp.Materialize(res.Output, interp.Feed{"x": ones})
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0.25, 0.5, 0.25,
		0.5, 1, 0.5,
		0.25, 0.5, 0.25,
	}, vals)
}

func TestPool1DCeilMode(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 1, 5)

	spec := nn.PoolSpec{
		Kernel:  []int{2},
		Stride:  []int{2},
		Padding: []int{0, 0},
		Kind:    nn.MaxPool,
	}

	floor, err := nn.Pool1D(x, spec, nn.NCW, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2}, staticDims(t, floor.Output))

	spec.CeilMode = true
	ceil, err := nn.Pool1D(x, spec, nn.NCW, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 3}, staticDims(t, ceil.Output))

	vals, err := interp.Materialize(ceil.Output, interp.Feed{"x": {1, 2, 3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 5}, vals)
}

func TestPool2DLayoutNHWC(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 4, 4, 1)

	res, err := nn.Pool2D(x, nn.PoolSpec{
		Kernel:  []int{2, 2},
		Stride:  []int{2, 2},
		Padding: []int{0, 0, 0, 0},
		Kind:    nn.MaxPool,
	}, nn.NHWC, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 2, 1}, staticDims(t, res.Output))

	feed := interp.Feed{"x": {
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}}
	vals, err := interp.Materialize(res.Output, feed)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 8, 14, 16}, vals)
}

func TestPool3D(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 1, 2, 2, 2)

	res, err := nn.Pool3D(x, nn.PoolSpec{
		Kernel:  []int{2, 2, 2},
		Stride:  []int{2, 2, 2},
		Padding: []int{0, 0, 0, 0, 0, 0},
		Kind:    nn.AvgPool,
	}, nn.NCDHW, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 1, 1, 1}, staticDims(t, res.Output))

	vals, err := interp.Materialize(res.Output, interp.Feed{"x": {1, 2, 3, 4, 5, 6, 7, 8}})
	require.NoError(t, err)
	assert.Equal(t, []float64{4.5}, vals)
}

func TestPoolErrors(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 1, 4, 4)

	spec := nn.PoolSpec{
		Kernel:  []int{2, 2},
		Stride:  []int{2, 2},
		Padding: []int{0, 0, 0, 0},
	}

	bad := spec
	bad.Kind = nn.PoolKind(7)
	bad.Axes = []int{2, 3}
	_, err := nn.Pool(x, bad, "")
	require.ErrorIs(t, err, nn.ErrUnsupported, "unknown pooling kind must fail")

	_, err = nn.Pool2D(x, spec, nn.Layout(42), "")
	require.ErrorIs(t, err, nn.ErrUnsupported, "unknown layout must fail")

	rank3 := g.Placeholder("y", dtypes.Float32, 1, 1, 4)
	_, err = nn.Pool2D(rank3, spec, nn.NCHW, "")
	require.ErrorIs(t, err, nn.ErrConfig, "rank-3 input to Pool2D must fail")

	preset := spec
	preset.Axes = []int{2, 3}
	_, err = nn.Pool2D(x, preset, nn.NCHW, "")
	require.ErrorIs(t, err, nn.ErrConfig, "pre-set axes in a layout adapter must fail")

	dup := spec
	dup.Axes = []int{2, 2}
	_, err = nn.Pool(x, dup, "")
	require.ErrorIs(t, err, nn.ErrConfig, "duplicate pooling axes must fail")

	short := spec
	short.Axes = []int{2, 3}
	short.Padding = []int{0, 0}
	_, err = nn.Pool(x, short, "")
	require.ErrorIs(t, err, nn.ErrConfig, "padding must list head and tail per axis")

	neg := spec
	neg.Axes = []int{2, 3}
	neg.Stride = []int{0, 2}
	_, err = nn.Pool(x, neg, "")
	require.ErrorIs(t, err, nn.ErrConfig, "zero stride must fail")
}
