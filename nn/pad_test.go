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

func staticDims(t *testing.T, x *ir.Tensor) []int64 {
	t.Helper()
	g := x.Graph()
	dims := make([]int64, 0, x.Rank())
	for i, s := range x.Shape() {
		v, ok := g.IntValue(g.Simplify(s))
		require.True(t, ok, "dimension %d is not a static constant", i)
		dims = append(dims, v)
	}
	return dims
}

func TestPadSymmetricDefault(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 3)

	out, err := nn.Pad(x, []ir.Expr{g.Int(1)}, nil, ir.None, nn.PadConstant, "padded")
	require.NoError(t, err)

	// Missing pad_after defaults to pad_before: extent 3+1+1 = 5.
	assert.Equal(t, []int64{5}, staticDims(t, out))

	vals, err := interp.Materialize(out, interp.Feed{"x": {1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 0}, vals)
}

func TestPadConstantFillValue(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 2)

	out, err := nn.Pad(x, []ir.Expr{g.Int(1)}, []ir.Expr{g.Int(2)},
		g.Float(dtypes.Float32, -9), nn.PadConstant, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, staticDims(t, out))

	vals, err := interp.Materialize(out, interp.Feed{"x": {4, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{-9, 4, 5, -9, -9}, vals)
}

func TestPadEdge(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 3)

	out, err := nn.Pad(x, []ir.Expr{g.Int(1)}, []ir.Expr{g.Int(1)}, ir.None, nn.PadEdge, "")
	require.NoError(t, err)

	vals, err := interp.Materialize(out, interp.Feed{"x": {10, 20, 30}})
	require.NoError(t, err)
	// [a,b,c] -> [a,a,b,c,c]
	assert.Equal(t, []float64{10, 10, 20, 30, 30}, vals)
}

func TestPadReflect(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 3)

	out, err := nn.Pad(x, []ir.Expr{g.Int(1)}, []ir.Expr{g.Int(1)}, ir.None, nn.PadReflect, "")
	require.NoError(t, err)

	vals, err := interp.Materialize(out, interp.Feed{"x": {10, 20, 30}})
	require.NoError(t, err)
	// [a,b,c] -> [b,a,b,c,b]
	assert.Equal(t, []float64{20, 10, 20, 30, 20}, vals)
}

func TestPadTrailingDimensionsUntouched(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 2, 3)

	out, err := nn.Pad(x, []ir.Expr{g.Int(1)}, nil, ir.None, nn.PadConstant, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3}, staticDims(t, out))

	feed := interp.Feed{"x": {1, 2, 3, 4, 5, 6}}
	vals, err := interp.Materialize(out, feed)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0, 0, 0,
		1, 2, 3,
		4, 5, 6,
		0, 0, 0,
	}, vals)
}

func TestPadErrors(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 3)

	_, err := nn.Pad(x, nil, nil, ir.None, nn.PadConstant, "")
	require.ErrorIs(t, err, nn.ErrConfig, "empty pad_before must fail")

	_, err = nn.Pad(x, []ir.Expr{g.Int(1)}, []ir.Expr{g.Int(1), g.Int(1)}, ir.None, nn.PadConstant, "")
	require.ErrorIs(t, err, nn.ErrConfig, "pad_after longer than pad_before must fail")

	_, err = nn.Pad(x, []ir.Expr{g.Int(1), g.Int(1)}, nil, ir.None, nn.PadConstant, "")
	require.ErrorIs(t, err, nn.ErrConfig, "more pad amounts than dimensions must fail")

	_, err = nn.Pad(x, []ir.Expr{g.Float(dtypes.Float32, 1)}, nil, ir.None, nn.PadConstant, "")
	require.ErrorIs(t, err, nn.ErrConfig, "non-int32 pad amount must fail")

	_, err = nn.Pad(x, []ir.Expr{g.Int(1)}, nil, ir.None, nn.PadMode(42), "")
	require.ErrorIs(t, err, nn.ErrUnsupported, "unknown pad mode must fail")
}
