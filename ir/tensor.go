package ir

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Tensor is a named symbolic tensor: a shape plus a pure mapping from an
// index tuple to an expression. It is immutable after construction; builders
// "update" a tensor by defining a new one.
//
// Placeholders have no body and stand for externally supplied data.
type Tensor struct {
	graph      *Graph
	name       string
	dtype      dtypes.DType
	shape      []Expr
	axes       []Expr // output index variables, one per dimension
	body       Expr   // None for placeholders
	reduceAxes []Expr
}

// Placeholder declares an input tensor with constant dimensions.
func (g *Graph) Placeholder(name string, dtype dtypes.DType, dims ...int64) *Tensor {
	shape := make([]Expr, len(dims))
	for i, d := range dims {
		shape[i] = g.Int(d)
	}
	t := &Tensor{graph: g, name: name, dtype: dtype, shape: shape}
	g.tensors = append(g.tensors, t)
	return t
}

// Compute defines a tensor by an index-to-expression mapping. fn receives one
// index variable per dimension, each ranging over the corresponding extent in
// shape, and returns the element expression. reduceAxes lists the reduction
// index variables consumed inside the body, if any.
//
// The tensor's element type is inferred from the body.
func (g *Graph) Compute(name string, shape []Expr, fn func(index []Expr) Expr, reduceAxes ...Expr) *Tensor {
	if name == "" {
		name = g.UniqueName("t")
	}
	axes := make([]Expr, len(shape))
	for i := range shape {
		axes[i] = g.Var(fmt.Sprintf("i%d", i), shape[i])
	}
	body := fn(axes)
	if !body.Valid() {
		g.setErr(errors.Errorf("Compute %q returned an invalid body", name))
	}
	t := &Tensor{
		graph:      g,
		name:       name,
		dtype:      g.at(body).dtype,
		shape:      append([]Expr(nil), shape...),
		axes:       axes,
		body:       body,
		reduceAxes: append([]Expr(nil), reduceAxes...),
	}
	g.tensors = append(g.tensors, t)
	return t
}

// At builds an element access at the given indices.
func (t *Tensor) At(indices ...Expr) Expr {
	g := t.graph
	if len(indices) != len(t.shape) {
		g.setErr(errors.Errorf("tensor %q accessed with %d indices, rank is %d",
			t.name, len(indices), len(t.shape)))
		return None
	}
	for i, ix := range indices {
		if !ix.Valid() {
			g.setErr(errors.Errorf("tensor %q accessed with invalid index %d", t.name, i))
			return None
		}
	}
	return g.add(node{
		kind:   KindAccess,
		dtype:  t.dtype,
		tensor: t,
		args:   append([]Expr(nil), indices...),
	})
}

// Graph returns the graph the tensor belongs to.
func (t *Tensor) Graph() *Graph { return t.graph }

// Name returns the tensor's name.
func (t *Tensor) Name() string { return t.name }

// DType returns the tensor's element type.
func (t *Tensor) DType() dtypes.DType { return t.dtype }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Shape returns the per-dimension size expressions.
func (t *Tensor) Shape() []Expr { return append([]Expr(nil), t.shape...) }

// Axes returns the output index variables, one per dimension.
// Placeholders have none.
func (t *Tensor) Axes() []Expr { return append([]Expr(nil), t.axes...) }

// Body returns the element expression, or None for placeholders.
func (t *Tensor) Body() Expr { return t.body }

// ReduceAxes returns the reduction axes consumed by the body, if any.
func (t *Tensor) ReduceAxes() []Expr { return append([]Expr(nil), t.reduceAxes...) }

// IsPlaceholder reports whether the tensor stands for external data.
func (t *Tensor) IsPlaceholder() bool { return !t.body.Valid() }
