// Package interp is a reference interpreter for the symbolic tensor IR: it
// evaluates a tensor element-by-element against concrete placeholder data.
// It exists to state and test operator semantics, not to execute efficiently;
// real execution belongs to a scheduler and code generator downstream.
package interp

import (
	"math"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/go-compute/ir"
)

// Feed supplies concrete values for placeholder tensors, keyed by tensor
// name, in row-major order.
type Feed map[string][]float64

// Evaluate computes the value of tensor t at the given output index.
// Values flow as float64; elements of Float16 and Float32 tensors are
// rounded through their storage precision at every tensor boundary.
func Evaluate(t *ir.Tensor, feed Feed, index ...int64) (float64, error) {
	m := &machine{g: t.Graph(), feed: feed, env: make(map[ir.Expr]int64)}
	return m.tensorAt(t, index)
}

// Materialize evaluates every element of t, row-major.
func Materialize(t *ir.Tensor, feed Feed) ([]float64, error) {
	m := &machine{g: t.Graph(), feed: feed, env: make(map[ir.Expr]int64)}
	dims, err := m.dims(t)
	if err != nil {
		return nil, err
	}
	total := int64(1)
	for _, d := range dims {
		total *= d
	}
	out := make([]float64, total)
	index := make([]int64, len(dims))
	for flat := int64(0); flat < total; flat++ {
		rem := flat
		for i := len(dims) - 1; i >= 0; i-- {
			index[i] = rem % dims[i]
			rem /= dims[i]
		}
		out[flat], err = m.tensorAt(t, index)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

type machine struct {
	g    *ir.Graph
	feed Feed
	env  map[ir.Expr]int64 // index-variable bindings, keyed by handle
}

func (m *machine) dims(t *ir.Tensor) ([]int64, error) {
	shape := t.Shape()
	dims := make([]int64, len(shape))
	for i, s := range shape {
		v, err := m.evalInt(s)
		if err != nil {
			return nil, errors.Wrapf(err, "dimension %d of tensor %q", i, t.Name())
		}
		dims[i] = v
	}
	return dims, nil
}

func (m *machine) tensorAt(t *ir.Tensor, index []int64) (float64, error) {
	if len(index) != t.Rank() {
		return 0, errors.Errorf("tensor %q evaluated with %d indices, rank is %d",
			t.Name(), len(index), t.Rank())
	}
	dims, err := m.dims(t)
	if err != nil {
		return 0, err
	}
	for i, ix := range index {
		if ix < 0 || ix >= dims[i] {
			return 0, errors.Errorf("tensor %q: index %d out of range on dimension %d (extent %d)",
				t.Name(), ix, i, dims[i])
		}
	}
	if t.IsPlaceholder() {
		data, ok := m.feed[t.Name()]
		if !ok {
			return 0, errors.Errorf("no feed for placeholder %q", t.Name())
		}
		flat := int64(0)
		for i, ix := range index {
			flat = flat*dims[i] + ix
		}
		if flat >= int64(len(data)) {
			return 0, errors.Errorf("feed for %q has %d values, need at least %d",
				t.Name(), len(data), flat+1)
		}
		return round(t.DType(), data[flat]), nil
	}
	for i, ax := range t.Axes() {
		m.env[ax] = index[i]
	}
	v, err := m.eval(t.Body())
	if err != nil {
		return 0, errors.Wrapf(err, "tensor %q", t.Name())
	}
	return round(t.DType(), v), nil
}

func (m *machine) evalInt(e ir.Expr) (int64, error) {
	v, err := m.eval(e)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (m *machine) eval(e ir.Expr) (float64, error) {
	n := m.g.Node(e)
	switch n.Kind {
	case ir.KindConst:
		if n.DType.IsFloat() {
			return n.FloatVal, nil
		}
		return float64(n.IntVal), nil

	case ir.KindVar:
		v, ok := m.env[e]
		if !ok {
			return 0, errors.Errorf("unbound index variable %q", n.Name)
		}
		return float64(v), nil

	case ir.KindUnary:
		a, err := m.eval(n.A)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case ir.OpNeg:
			return -a, nil
		case ir.OpNot:
			if a == 0 {
				return 1, nil
			}
			return 0, nil
		case ir.OpSqrt:
			return math.Sqrt(a), nil
		}

	case ir.KindBinary:
		return m.evalBinary(n)

	case ir.KindSelect:
		// Lazy: only the selected branch is evaluated, so guarded
		// out-of-range accesses on the other branch are never touched.
		cond, err := m.eval(n.A)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return m.eval(n.B)
		}
		return m.eval(n.C)

	case ir.KindCast:
		a, err := m.eval(n.A)
		if err != nil {
			return 0, err
		}
		if n.DType.IsInt() {
			return float64(int64(a)), nil
		}
		return round(n.DType, a), nil

	case ir.KindAccess:
		index := make([]int64, len(n.Args))
		for i, arg := range n.Args {
			v, err := m.evalInt(arg)
			if err != nil {
				return 0, err
			}
			index[i] = v
		}
		return m.tensorAt(n.Tensor, index)

	case ir.KindReduce:
		return m.evalReduce(n)
	}
	return 0, errors.Errorf("cannot evaluate %s node", n.Kind)
}

func (m *machine) evalBinary(n ir.NodeInfo) (float64, error) {
	a, err := m.eval(n.A)
	if err != nil {
		return 0, err
	}
	b, err := m.eval(n.B)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case ir.OpEq:
		return boolVal(a == b), nil
	case ir.OpNe:
		return boolVal(a != b), nil
	case ir.OpLt:
		return boolVal(a < b), nil
	case ir.OpLe:
		return boolVal(a <= b), nil
	case ir.OpGt:
		return boolVal(a > b), nil
	case ir.OpGe:
		return boolVal(a >= b), nil
	case ir.OpAnd:
		return boolVal(a != 0 && b != 0), nil
	case ir.OpOr:
		return boolVal(a != 0 || b != 0), nil
	}
	if n.DType.IsInt() {
		x, y := int64(a), int64(b)
		switch n.Op {
		case ir.OpAdd:
			return float64(x + y), nil
		case ir.OpSub:
			return float64(x - y), nil
		case ir.OpMul:
			return float64(x * y), nil
		case ir.OpDiv:
			if y == 0 {
				return 0, errors.New("integer division by zero")
			}
			return float64(x / y), nil
		case ir.OpMod:
			if y == 0 {
				return 0, errors.New("integer modulo by zero")
			}
			return float64(x % y), nil
		case ir.OpMin:
			return float64(min(x, y)), nil
		case ir.OpMax:
			return float64(max(x, y)), nil
		}
	}
	switch n.Op {
	case ir.OpAdd:
		return a + b, nil
	case ir.OpSub:
		return a - b, nil
	case ir.OpMul:
		return a * b, nil
	case ir.OpDiv:
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	case ir.OpMin:
		return math.Min(a, b), nil
	case ir.OpMax:
		return math.Max(a, b), nil
	}
	return 0, errors.Errorf("cannot evaluate binary op %s", n.Op)
}

func (m *machine) evalReduce(n ir.NodeInfo) (float64, error) {
	axes := n.Args
	extents := make([]int64, len(axes))
	for i, ax := range axes {
		v, err := m.evalInt(m.g.VarExtent(ax))
		if err != nil {
			return 0, errors.Wrap(err, "reduction axis extent")
		}
		extents[i] = v
	}
	acc, err := m.eval(n.B)
	if err != nil {
		return 0, err
	}
	var loop func(d int) error
	loop = func(d int) error {
		if d == len(axes) {
			v, err := m.eval(n.A)
			if err != nil {
				return err
			}
			if n.Op == ir.OpMax {
				acc = math.Max(acc, v)
			} else {
				acc += v
			}
			return nil
		}
		for i := int64(0); i < extents[d]; i++ {
			m.env[axes[d]] = i
			if err := loop(d + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := loop(0); err != nil {
		return 0, err
	}
	return acc, nil
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// round pushes a value through the element type's storage precision.
func round(dtype dtypes.DType, v float64) float64 {
	switch dtype {
	case dtypes.Float16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case dtypes.Float32:
		return float64(float32(v))
	default:
		if dtype.IsInt() {
			return float64(int64(v))
		}
		return v
	}
}
