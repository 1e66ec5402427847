package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// String returns a short name for the node kind.
func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	case KindSelect:
		return "select"
	case KindCast:
		return "cast"
	case KindAccess:
		return "access"
	case KindReduce:
		return "reduce"
	default:
		return "invalid"
	}
}

// String returns the operator's surface syntax.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	case OpSqrt:
		return "sqrt"
	default:
		return "?"
	}
}

// ExprString renders the expression as text, for debugging and golden tests.
func (g *Graph) ExprString(e Expr) string {
	if !e.Valid() {
		return "<none>"
	}
	n := g.at(e)
	switch n.kind {
	case KindConst:
		if n.dtype.IsFloat() {
			return strconv.FormatFloat(n.fval, 'g', -1, 64)
		}
		return strconv.FormatInt(n.ival, 10)
	case KindVar:
		return n.name
	case KindUnary:
		if n.op == OpSqrt {
			return fmt.Sprintf("sqrt(%s)", g.ExprString(n.a))
		}
		return fmt.Sprintf("%s(%s)", n.op, g.ExprString(n.a))
	case KindBinary:
		if n.op == OpMin || n.op == OpMax {
			return fmt.Sprintf("%s(%s, %s)", n.op, g.ExprString(n.a), g.ExprString(n.b))
		}
		return fmt.Sprintf("(%s %s %s)", g.ExprString(n.a), n.op, g.ExprString(n.b))
	case KindSelect:
		return fmt.Sprintf("select(%s, %s, %s)",
			g.ExprString(n.a), g.ExprString(n.b), g.ExprString(n.c))
	case KindCast:
		return fmt.Sprintf("%s(%s)", n.dtype, g.ExprString(n.a))
	case KindAccess:
		return fmt.Sprintf("%s[%s]", n.tensor.name, g.exprList(n.args))
	case KindReduce:
		fn := "reduce_sum"
		if n.op == OpMax {
			fn = "reduce_max"
		}
		return fmt.Sprintf("%s(%s, init=%s, axes=[%s])",
			fn, g.ExprString(n.a), g.ExprString(n.b), g.exprList(n.args))
	default:
		return "<invalid>"
	}
}

func (g *Graph) exprList(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = g.ExprString(e)
	}
	return strings.Join(parts, ", ")
}

// String renders the tensor declaration, and its defining expression when it
// has one.
func (t *Tensor) String() string {
	g := t.graph
	if t.IsPlaceholder() {
		return fmt.Sprintf("%s: %s[%s]", t.name, t.dtype, g.exprList(t.shape))
	}
	axes := make([]string, len(t.axes))
	for i, ax := range t.axes {
		axes[i] = g.at(ax).name
	}
	return fmt.Sprintf("%s[%s] = %s", t.name, strings.Join(axes, ", "), g.ExprString(t.body))
}

// String renders every tensor in the graph, one per line.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, t := range g.tensors {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
