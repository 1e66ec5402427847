// Package ir defines a symbolic, index-parameterized tensor intermediate
// representation: immutable expression nodes over index variables and tensor
// accesses, held in an arena owned by a Graph.
//
// An Expr is a stable handle (an index into the arena), so shared
// subexpressions, such as a padded intermediate referenced both as a
// standalone tensor and inside a consumer's reduction body, are explicit and
// cheap. Nodes are never mutated after construction; "updating" anything
// means adding a new node.
package ir

import (
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/go-compute/names"
)

// Expr is a stable handle to an expression node inside a Graph.
// The zero value (None) is not a valid expression.
type Expr int32

// None is the zero Expr, passed where an optional expression is absent.
const None Expr = 0

// Valid reports whether e refers to an expression node.
func (e Expr) Valid() bool { return e > None }

// Kind discriminates expression node kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindConst        // scalar literal
	KindVar          // index variable ranging over [0, extent)
	KindUnary
	KindBinary
	KindSelect
	KindCast
	KindAccess // tensor element read
	KindReduce // reduction of a body over bound axes
)

// Op identifies the operator of a unary, binary, or reduce node.
type Op uint8

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpMin
	OpMax
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNeg
	OpNot
	OpSqrt
)

// node is the arena representation of one expression.
type node struct {
	kind    Kind
	op      Op
	dtype   dtypes.DType
	ival    int64   // KindConst: integer or bool payload
	fval    float64 // KindConst: floating point payload
	name    string  // KindVar
	a, b, c Expr    // operands; KindVar: a is the extent; KindReduce: a body, b identity
	args    []Expr  // KindAccess: indices; KindReduce: axes
	tensor  *Tensor // KindAccess
}

// NodeInfo is a read-only view of an expression node, for consumers that walk
// the graph: schedulers, printers, interpreters.
type NodeInfo struct {
	Kind     Kind
	Op       Op
	DType    dtypes.DType
	Name     string
	IntVal   int64
	FloatVal float64
	A, B, C  Expr
	Args     []Expr
	Tensor   *Tensor
}

// Graph is an arena of expression nodes and the tensors defined over them.
type Graph struct {
	nodes   []node
	tensors []*Tensor
	gen     *names.Generator
	err     error // first error encountered during building
}

// NewGraph creates an empty expression graph with its own name generator.
func NewGraph() *Graph {
	g := &Graph{gen: names.NewGenerator()}
	g.nodes = append(g.nodes, node{}) // handle 0 stays invalid so Expr(0) means "none"
	return g
}

// Err returns the first error encountered while building expressions, if any.
// Callers should check this after constructing a graph to ensure all
// expressions were valid.
func (g *Graph) Err() error {
	return g.err
}

// setErr records the first error encountered.
func (g *Graph) setErr(err error) {
	if g.err == nil {
		g.err = err
	}
}

// UniqueName issues a graph-unique name with the given prefix.
func (g *Graph) UniqueName(prefix string) string {
	return g.gen.Unique(prefix)
}

// Tensors returns all tensors defined in the graph, in creation order.
func (g *Graph) Tensors() []*Tensor {
	return append([]*Tensor(nil), g.tensors...)
}

func (g *Graph) add(n node) Expr {
	g.nodes = append(g.nodes, n)
	return Expr(len(g.nodes) - 1)
}

func (g *Graph) at(e Expr) *node {
	if !e.Valid() || int(e) >= len(g.nodes) {
		return &g.nodes[0]
	}
	return &g.nodes[e]
}

// Node returns a read-only view of the node e refers to.
func (g *Graph) Node(e Expr) NodeInfo {
	n := g.at(e)
	return NodeInfo{
		Kind:     n.kind,
		Op:       n.op,
		DType:    n.dtype,
		Name:     n.name,
		IntVal:   n.ival,
		FloatVal: n.fval,
		A:        n.a,
		B:        n.b,
		C:        n.c,
		Args:     append([]Expr(nil), n.args...),
		Tensor:   n.tensor,
	}
}

// DTypeOf returns the element type of the expression.
func (g *Graph) DTypeOf(e Expr) dtypes.DType {
	return g.at(e).dtype
}

// IntValue returns the value of an integer or bool constant expression.
func (g *Graph) IntValue(e Expr) (int64, bool) {
	n := g.at(e)
	if n.kind != KindConst || n.dtype.IsFloat() {
		return 0, false
	}
	return n.ival, true
}

// FloatValue returns the value of a floating-point constant expression.
func (g *Graph) FloatValue(e Expr) (float64, bool) {
	n := g.at(e)
	if n.kind != KindConst || !n.dtype.IsFloat() {
		return 0, false
	}
	return n.fval, true
}

// Int creates an int32 constant. Index arithmetic is int32 throughout.
func (g *Graph) Int(v int64) Expr {
	return g.add(node{kind: KindConst, dtype: dtypes.Int32, ival: v})
}

// Float creates a floating-point constant of the given element type.
func (g *Graph) Float(dtype dtypes.DType, v float64) Expr {
	return g.add(node{kind: KindConst, dtype: dtype, fval: v})
}

// Bool creates a boolean constant.
func (g *Graph) Bool(v bool) Expr {
	var i int64
	if v {
		i = 1
	}
	return g.add(node{kind: KindConst, dtype: dtypes.Bool, ival: i})
}

// Zero creates the zero value of the given element type.
func (g *Graph) Zero(dtype dtypes.DType) Expr {
	if dtype.IsFloat() {
		return g.Float(dtype, 0)
	}
	return g.add(node{kind: KindConst, dtype: dtype})
}

// MinValue creates a constant holding the minimum representable value of the
// element type, e.g. the reduction identity for max pooling.
func (g *Graph) MinValue(dtype dtypes.DType) (Expr, error) {
	switch v := dtype.LowestValue().(type) {
	case float64:
		return g.Float(dtype, v), nil
	case float32:
		return g.Float(dtype, float64(v)), nil
	case float16.Float16:
		return g.Float(dtype, float64(v.Float32())), nil
	case int64:
		return g.add(node{kind: KindConst, dtype: dtype, ival: v}), nil
	case int32:
		return g.add(node{kind: KindConst, dtype: dtype, ival: int64(v)}), nil
	case int16:
		return g.add(node{kind: KindConst, dtype: dtype, ival: int64(v)}), nil
	case int8:
		return g.add(node{kind: KindConst, dtype: dtype, ival: int64(v)}), nil
	case uint64:
		return g.add(node{kind: KindConst, dtype: dtype, ival: int64(v)}), nil
	case uint32:
		return g.add(node{kind: KindConst, dtype: dtype, ival: int64(v)}), nil
	case uint16:
		return g.add(node{kind: KindConst, dtype: dtype, ival: int64(v)}), nil
	case uint8:
		return g.add(node{kind: KindConst, dtype: dtype, ival: int64(v)}), nil
	default:
		return None, errors.Errorf("MinValue: unsupported element type %s", dtype)
	}
}

// Var creates an index variable ranging over [0, extent).
func (g *Graph) Var(name string, extent Expr) Expr {
	if !extent.Valid() {
		g.setErr(errors.Errorf("Var %q created without an extent", name))
		return None
	}
	return g.add(node{kind: KindVar, dtype: dtypes.Int32, name: name, a: extent})
}

// VarExtent returns the extent of an index variable.
func (g *Graph) VarExtent(v Expr) Expr {
	n := g.at(v)
	if n.kind != KindVar {
		return None
	}
	return n.a
}

func (g *Graph) unary(op Op, a Expr, dtype dtypes.DType) Expr {
	if !a.Valid() {
		g.setErr(errors.Errorf("operand of %s is not a valid expression", op))
		return None
	}
	return g.add(node{kind: KindUnary, op: op, dtype: dtype, a: a})
}

func (g *Graph) binary(op Op, a, b Expr, dtype dtypes.DType) Expr {
	if !a.Valid() || !b.Valid() {
		g.setErr(errors.Errorf("operand of %s is not a valid expression", op))
		return None
	}
	return g.add(node{kind: KindBinary, op: op, dtype: dtype, a: a, b: b})
}

// Add builds a + b.
func (g *Graph) Add(a, b Expr) Expr { return g.binary(OpAdd, a, b, g.at(a).dtype) }

// Sub builds a - b.
func (g *Graph) Sub(a, b Expr) Expr { return g.binary(OpSub, a, b, g.at(a).dtype) }

// Mul builds a * b.
func (g *Graph) Mul(a, b Expr) Expr { return g.binary(OpMul, a, b, g.at(a).dtype) }

// Div builds a / b. On integer types this is truncating division.
func (g *Graph) Div(a, b Expr) Expr { return g.binary(OpDiv, a, b, g.at(a).dtype) }

// Mod builds a % b over integer types.
func (g *Graph) Mod(a, b Expr) Expr { return g.binary(OpMod, a, b, g.at(a).dtype) }

// Min builds min(a, b).
func (g *Graph) Min(a, b Expr) Expr { return g.binary(OpMin, a, b, g.at(a).dtype) }

// Max builds max(a, b).
func (g *Graph) Max(a, b Expr) Expr { return g.binary(OpMax, a, b, g.at(a).dtype) }

// Eq builds a == b.
func (g *Graph) Eq(a, b Expr) Expr { return g.binary(OpEq, a, b, dtypes.Bool) }

// Ne builds a != b.
func (g *Graph) Ne(a, b Expr) Expr { return g.binary(OpNe, a, b, dtypes.Bool) }

// Lt builds a < b.
func (g *Graph) Lt(a, b Expr) Expr { return g.binary(OpLt, a, b, dtypes.Bool) }

// Le builds a <= b.
func (g *Graph) Le(a, b Expr) Expr { return g.binary(OpLe, a, b, dtypes.Bool) }

// Gt builds a > b.
func (g *Graph) Gt(a, b Expr) Expr { return g.binary(OpGt, a, b, dtypes.Bool) }

// Ge builds a >= b.
func (g *Graph) Ge(a, b Expr) Expr { return g.binary(OpGe, a, b, dtypes.Bool) }

// And builds the logical conjunction a && b.
func (g *Graph) And(a, b Expr) Expr { return g.binary(OpAnd, a, b, dtypes.Bool) }

// Or builds the logical disjunction a || b.
func (g *Graph) Or(a, b Expr) Expr { return g.binary(OpOr, a, b, dtypes.Bool) }

// Neg builds -a.
func (g *Graph) Neg(a Expr) Expr { return g.unary(OpNeg, a, g.at(a).dtype) }

// Not builds the logical negation !a.
func (g *Graph) Not(a Expr) Expr { return g.unary(OpNot, a, dtypes.Bool) }

// Sqrt builds the square root of a.
func (g *Graph) Sqrt(a Expr) Expr { return g.unary(OpSqrt, a, g.at(a).dtype) }

// Select builds a conditional: cond ? then : otherwise.
// Only the selected branch is meaningful at any index; out-of-range tensor
// accesses on the unselected branch are never observed.
func (g *Graph) Select(cond, then, otherwise Expr) Expr {
	if !cond.Valid() || !then.Valid() || !otherwise.Valid() {
		g.setErr(errors.New("Select with an invalid operand"))
		return None
	}
	return g.add(node{kind: KindSelect, dtype: g.at(then).dtype, a: cond, b: then, c: otherwise})
}

// Cast converts a to the given element type.
func (g *Graph) Cast(a Expr, dtype dtypes.DType) Expr {
	if !a.Valid() {
		g.setErr(errors.New("Cast with an invalid operand"))
		return None
	}
	return g.add(node{kind: KindCast, dtype: dtype, a: a})
}

// ReduceSum builds a sum reduction of body over the given axes, starting from
// identity. The axes must be index variables created with Var.
func (g *Graph) ReduceSum(body, identity Expr, axes ...Expr) Expr {
	return g.reduce(OpAdd, body, identity, axes)
}

// ReduceMax builds a maximum reduction of body over the given axes, starting
// from identity.
func (g *Graph) ReduceMax(body, identity Expr, axes ...Expr) Expr {
	return g.reduce(OpMax, body, identity, axes)
}

func (g *Graph) reduce(op Op, body, identity Expr, axes []Expr) Expr {
	if !body.Valid() || !identity.Valid() {
		g.setErr(errors.New("reduction with an invalid body or identity"))
		return None
	}
	if len(axes) == 0 {
		g.setErr(errors.New("reduction without axes"))
		return None
	}
	for _, ax := range axes {
		if g.at(ax).kind != KindVar {
			g.setErr(errors.Errorf("reduction axis %d is not an index variable", ax))
			return None
		}
	}
	return g.add(node{
		kind:  KindReduce,
		op:    op,
		dtype: g.at(body).dtype,
		a:     body,
		b:     identity,
		args:  append([]Expr(nil), axes...),
	})
}
