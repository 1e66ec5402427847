package ir

import "math"

// Simplify returns an expression equivalent to e with constants folded and
// trivial algebraic identities removed (x+0, x*1, x*0, select on a constant
// condition, casts of constants). It never mutates existing nodes; when a
// rewrite applies, a new node is added and its handle returned.
//
// The lowering builders run shape and index expressions through Simplify so
// that, for example, a padded dimension `3 + 1 + 1` becomes the constant 5.
func (g *Graph) Simplify(e Expr) Expr {
	memo := make(map[Expr]Expr)
	return g.simplify(e, memo)
}

func (g *Graph) simplify(e Expr, memo map[Expr]Expr) Expr {
	if !e.Valid() {
		return e
	}
	if s, ok := memo[e]; ok {
		return s
	}
	n := *g.at(e) // copy: the arena slice may grow while we rewrite
	out := e
	switch n.kind {
	case KindUnary:
		a := g.simplify(n.a, memo)
		out = g.foldUnary(e, n, a)
	case KindBinary:
		a := g.simplify(n.a, memo)
		b := g.simplify(n.b, memo)
		out = g.foldBinary(e, n, a, b)
	case KindSelect:
		cond := g.simplify(n.a, memo)
		then := g.simplify(n.b, memo)
		otherwise := g.simplify(n.c, memo)
		if v, ok := g.IntValue(cond); ok {
			if v != 0 {
				out = then
			} else {
				out = otherwise
			}
			break
		}
		if cond != n.a || then != n.b || otherwise != n.c {
			out = g.add(node{kind: KindSelect, dtype: n.dtype, a: cond, b: then, c: otherwise})
		}
	case KindCast:
		a := g.simplify(n.a, memo)
		out = g.foldCast(e, n, a)
	case KindAccess:
		args, changed := g.simplifyAll(n.args, memo)
		if changed {
			out = g.add(node{kind: KindAccess, dtype: n.dtype, tensor: n.tensor, args: args})
		}
	case KindReduce:
		a := g.simplify(n.a, memo)
		b := g.simplify(n.b, memo)
		if a != n.a || b != n.b {
			out = g.add(node{kind: KindReduce, op: n.op, dtype: n.dtype, a: a, b: b,
				args: append([]Expr(nil), n.args...)})
		}
	}
	memo[e] = out
	return out
}

func (g *Graph) simplifyAll(args []Expr, memo map[Expr]Expr) ([]Expr, bool) {
	out := make([]Expr, len(args))
	changed := false
	for i, a := range args {
		out[i] = g.simplify(a, memo)
		if out[i] != a {
			changed = true
		}
	}
	return out, changed
}

func (g *Graph) foldUnary(e Expr, n node, a Expr) Expr {
	an := g.at(a)
	if an.kind == KindConst {
		switch n.op {
		case OpNeg:
			if an.dtype.IsFloat() {
				return g.Float(n.dtype, -an.fval)
			}
			return g.add(node{kind: KindConst, dtype: n.dtype, ival: -an.ival})
		case OpNot:
			return g.Bool(an.ival == 0)
		case OpSqrt:
			if an.dtype.IsFloat() && an.fval >= 0 {
				return g.Float(n.dtype, math.Sqrt(an.fval))
			}
		}
	}
	if a != n.a {
		return g.add(node{kind: KindUnary, op: n.op, dtype: n.dtype, a: a})
	}
	return e
}

func (g *Graph) isConstZero(e Expr) bool {
	n := g.at(e)
	if n.kind != KindConst {
		return false
	}
	if n.dtype.IsFloat() {
		return n.fval == 0
	}
	return n.ival == 0
}

func (g *Graph) isConstOne(e Expr) bool {
	n := g.at(e)
	if n.kind != KindConst {
		return false
	}
	if n.dtype.IsFloat() {
		return n.fval == 1
	}
	return n.ival == 1
}

func (g *Graph) foldBinary(e Expr, n node, a, b Expr) Expr {
	an, bn := g.at(a), g.at(b)
	bothConst := an.kind == KindConst && bn.kind == KindConst

	switch n.op {
	case OpAdd:
		if g.isConstZero(a) {
			return b
		}
		if g.isConstZero(b) {
			return a
		}
	case OpSub:
		if g.isConstZero(b) {
			return a
		}
	case OpMul:
		if g.isConstZero(a) || g.isConstZero(b) {
			return g.Zero(n.dtype)
		}
		if g.isConstOne(a) {
			return b
		}
		if g.isConstOne(b) {
			return a
		}
	case OpDiv:
		if g.isConstOne(b) {
			return a
		}
	case OpMod:
		if g.isConstOne(b) {
			return g.Zero(n.dtype)
		}
	case OpAnd:
		if an.kind == KindConst {
			if an.ival != 0 {
				return b
			}
			return g.Bool(false)
		}
		if bn.kind == KindConst {
			if bn.ival != 0 {
				return a
			}
			return g.Bool(false)
		}
	case OpOr:
		if an.kind == KindConst {
			if an.ival != 0 {
				return g.Bool(true)
			}
			return b
		}
		if bn.kind == KindConst {
			if bn.ival != 0 {
				return g.Bool(true)
			}
			return a
		}
	}

	if bothConst {
		if folded, ok := g.foldConstBinary(n, an, bn); ok {
			return folded
		}
	}
	if a != n.a || b != n.b {
		return g.add(node{kind: KindBinary, op: n.op, dtype: n.dtype, a: a, b: b})
	}
	return e
}

func (g *Graph) foldConstBinary(n node, an, bn *node) (Expr, bool) {
	if an.dtype.IsFloat() || bn.dtype.IsFloat() {
		x, y := constAsFloat(an), constAsFloat(bn)
		switch n.op {
		case OpAdd:
			return g.Float(n.dtype, x+y), true
		case OpSub:
			return g.Float(n.dtype, x-y), true
		case OpMul:
			return g.Float(n.dtype, x*y), true
		case OpDiv:
			if y != 0 {
				return g.Float(n.dtype, x/y), true
			}
		case OpMin:
			return g.Float(n.dtype, math.Min(x, y)), true
		case OpMax:
			return g.Float(n.dtype, math.Max(x, y)), true
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			return g.Bool(compare(n.op, x, y)), true
		}
		return None, false
	}

	x, y := an.ival, bn.ival
	switch n.op {
	case OpAdd:
		return g.add(node{kind: KindConst, dtype: n.dtype, ival: x + y}), true
	case OpSub:
		return g.add(node{kind: KindConst, dtype: n.dtype, ival: x - y}), true
	case OpMul:
		return g.add(node{kind: KindConst, dtype: n.dtype, ival: x * y}), true
	case OpDiv:
		if y != 0 {
			return g.add(node{kind: KindConst, dtype: n.dtype, ival: x / y}), true
		}
	case OpMod:
		if y != 0 {
			return g.add(node{kind: KindConst, dtype: n.dtype, ival: x % y}), true
		}
	case OpMin:
		return g.add(node{kind: KindConst, dtype: n.dtype, ival: min(x, y)}), true
	case OpMax:
		return g.add(node{kind: KindConst, dtype: n.dtype, ival: max(x, y)}), true
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return g.Bool(compare(n.op, float64(x), float64(y))), true
	}
	return None, false
}

func (g *Graph) foldCast(e Expr, n node, a Expr) Expr {
	an := g.at(a)
	if an.dtype == n.dtype {
		return a
	}
	if an.kind == KindConst {
		switch {
		case n.dtype.IsFloat() && an.dtype.IsFloat():
			return g.Float(n.dtype, an.fval)
		case n.dtype.IsFloat():
			return g.Float(n.dtype, float64(an.ival))
		case an.dtype.IsFloat():
			return g.add(node{kind: KindConst, dtype: n.dtype, ival: int64(an.fval)})
		default:
			return g.add(node{kind: KindConst, dtype: n.dtype, ival: an.ival})
		}
	}
	if a != n.a {
		return g.add(node{kind: KindCast, dtype: n.dtype, a: a})
	}
	return e
}

func constAsFloat(n *node) float64 {
	if n.dtype.IsFloat() {
		return n.fval
	}
	return float64(n.ival)
}

func compare(op Op, x, y float64) bool {
	switch op {
	case OpEq:
		return x == y
	case OpNe:
		return x != y
	case OpLt:
		return x < y
	case OpLe:
		return x <= y
	case OpGt:
		return x > y
	default:
		return x >= y
	}
}
