// Package gocompute lowers neural-network operators into a symbolic,
// index-parameterized tensor IR suitable for scheduling and code generation.
//
// Builders translate operator semantics (convolution, pooling, batch
// normalization, padding, activations) into declarative expressions over
// index variables; no loop ever runs here. The hard part is the boundary
// handling: padding modes, dilation, stride, ceil-vs-floor output sizing,
// inclusive-vs-exclusive pooling divisors, reduction composition.
//
// # Architecture
//
// The package is organized into several sub-packages:
//
//   - ir: the expression substrate, an arena of immutable nodes addressed by
//     stable handles, plus symbolic tensors and a constant-folding simplifier
//   - nn: the operator lowering builders
//   - interp: a reference interpreter, the semantic oracle for tests
//   - names: atomic unique-name issuance for intermediate tensors
//
// # Usage
//
//	g := ir.NewGraph()
//	x := g.Placeholder("x", dtypes.Float32, 1, 3, 32, 32)
//	res, err := nn.Pool2D(x, nn.PoolSpec{
//	    Kernel:  []int{2, 2},
//	    Stride:  []int{2, 2},
//	    Padding: []int{0, 0, 0, 0},
//	    Kind:    nn.MaxPool,
//	}, nn.NCHW, "pooled")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// res.Output is the pooled tensor; res.Padded is the intermediate a
//	// scheduler may fuse away.
//
// Builders never mutate their inputs: every call defines new tensors in the
// graph, and intermediates (padded buffers, dilated weights) are returned as
// first-class outputs so fusion decisions can be made entirely downstream.
package gocompute
