// Package nn lowers neural-network operator semantics (padding, pooling,
// convolution, batch normalization, activations) into the symbolic tensor IR
// of package ir.
//
// Builders are pure: they validate their parameters eagerly, construct new
// immutable tensors, and return. Builders that create intermediate tensors
// (padded inputs, dilated weights) return them alongside the result so a
// downstream scheduler can decide whether to materialize or fuse them.
package nn

import "github.com/pkg/errors"

// ErrConfig tags errors caused by internally inconsistent caller parameters:
// rank mismatches, mismatched list lengths, non-positive kernel or stride.
// The builder returns no partial result.
var ErrConfig = errors.New("invalid configuration")

// ErrUnsupported tags errors caused by a feature this lowering does not
// implement, such as an unknown pooling kind or data layout.
var ErrUnsupported = errors.New("unsupported feature")
