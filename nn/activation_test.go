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

func TestRelu(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 4)

	out := nn.Relu(x, "relu")
	require.NoError(t, g.Err())

	vals, err := interp.Materialize(out, interp.Feed{"x": {-2, -0.5, 0, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 3}, vals)
}

func TestLeakyRelu(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 4)

	out := nn.LeakyRelu(x, 0.1, "")
	require.NoError(t, g.Err())

	vals, err := interp.Materialize(out, interp.Feed{"x": {-2, -0.5, 0, 3}})
	require.NoError(t, err)
	require.Len(t, vals, 4)
	assert.InDelta(t, -0.2, vals[0], 1e-6)
	assert.InDelta(t, -0.05, vals[1], 1e-6)
	assert.Equal(t, 0.0, vals[2])
	assert.Equal(t, 3.0, vals[3])
}

func TestPReluPerChannel(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 2, 1, 2)
	slope := g.Placeholder("slope", dtypes.Float32, 2)

	out, err := nn.PRelu(x, slope, 1, "prelu")
	require.NoError(t, err)

	feed := interp.Feed{
		"x":     {-4, 4, -10, 10},
		"slope": {0.5, 0.1},
	}
	vals, err := interp.Materialize(out, feed)
	require.NoError(t, err)
	require.Len(t, vals, 4)
	assert.InDelta(t, -2, vals[0], 1e-6)
	assert.Equal(t, 4.0, vals[1])
	assert.InDelta(t, -1, vals[2], 1e-6)
	assert.Equal(t, 10.0, vals[3])
}

func TestPReluErrors(t *testing.T) {
	g := ir.NewGraph()
	x := g.Placeholder("x", dtypes.Float32, 1, 2, 1, 2)
	slope := g.Placeholder("slope", dtypes.Float32, 2)

	_, err := nn.PRelu(x, slope, 4, "")
	require.ErrorIs(t, err, nn.ErrConfig, "axis beyond rank must fail")

	_, err = nn.PRelu(x, slope, -1, "")
	require.ErrorIs(t, err, nn.ErrConfig, "negative axis must fail")

	rank2 := g.Placeholder("s2", dtypes.Float32, 2, 2)
	_, err = nn.PRelu(x, rank2, 1, "")
	require.ErrorIs(t, err, nn.ErrConfig, "rank-2 slope must fail")

	short := g.Placeholder("s3", dtypes.Float32, 3)
	_, err = nn.PRelu(x, short, 1, "")
	require.ErrorIs(t, err, nn.ErrConfig, "slope length mismatch must fail")
}
