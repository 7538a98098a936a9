package expr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

type flow int

const (
	flowNormal flow = iota
	flowBreak
	flowContinue
)

type scope struct {
	vars   map[string]Value
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]Value), parent: parent}
}

type interp struct {
	ctx      context.Context
	reg      *Registry
	bindings map[string]Value
	limits   Limits
	steps    int64
}

// ctxCheckInterval is how many steps run between context checks.
const ctxCheckInterval = 4096

func (in *interp) tick() error {
	in.steps++
	if in.steps > in.limits.MaxSteps {
		return ErrStepLimit
	}
	if in.steps%ctxCheckInterval == 0 {
		return in.ctx.Err()
	}
	return nil
}

// charge bills n steps at once for work proportional to a collection's size.
func (in *interp) charge(n int) error {
	if n <= 0 {
		return nil
	}
	in.steps += int64(n)
	if in.steps > in.limits.MaxSteps {
		return ErrStepLimit
	}
	return in.ctx.Err()
}

func (in *interp) checkSize(n int) error {
	if n > in.limits.MaxCollection {
		return ErrCollectionLimit
	}
	return nil
}

func (in *interp) checkString(s string) (Value, error) {
	if len(s) > in.limits.MaxStringLen {
		return nil, ErrCollectionLimit
	}
	return s, nil
}

func (in *interp) newList(items []Value) (*List, error) {
	if err := in.checkSize(len(items)); err != nil {
		return nil, err
	}
	return &List{Items: items}, nil
}

func atLine(line int, err error) error {
	if err == nil {
		return nil
	}
	var re *RuntimeError
	if errors.As(err, &re) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &RuntimeError{Line: line, Err: err}
}

func (in *interp) execBlock(sc *scope, body []stmt) (flow, error) {
	for _, s := range body {
		f, err := in.exec(sc, s)
		if err != nil || f != flowNormal {
			return f, err
		}
	}
	return flowNormal, nil
}

func (in *interp) exec(sc *scope, s stmt) (flow, error) {
	if err := in.tick(); err != nil {
		return flowNormal, atLine(s.pos(), err)
	}
	switch st := s.(type) {
	case *passStmt:
		return flowNormal, nil
	case *breakStmt:
		return flowBreak, nil
	case *continueStmt:
		return flowContinue, nil
	case *exprStmt:
		_, err := in.eval(sc, st.x)
		return flowNormal, atLine(st.line, err)
	case *assignStmt:
		v, err := in.eval(sc, st.value)
		if err != nil {
			return flowNormal, atLine(st.line, err)
		}
		for _, t := range st.targets {
			if err := in.assign(sc, t, v); err != nil {
				return flowNormal, atLine(st.line, err)
			}
		}
		return flowNormal, nil
	case *augAssignStmt:
		return flowNormal, atLine(st.line, in.augAssign(sc, st))
	case *ifStmt:
		c, err := in.eval(sc, st.cond)
		if err != nil {
			return flowNormal, atLine(st.line, err)
		}
		if Truthy(c) {
			return in.execBlock(sc, st.body)
		}
		return in.execBlock(sc, st.els)
	case *forStmt:
		it, err := in.eval(sc, st.iter)
		if err != nil {
			return flowNormal, atLine(st.line, err)
		}
		seq, err := in.iterate(it)
		if err != nil {
			return flowNormal, atLine(st.line, err)
		}
		for _, item := range seq {
			if err := in.tick(); err != nil {
				return flowNormal, atLine(st.line, err)
			}
			if err := in.assign(sc, st.target, item); err != nil {
				return flowNormal, atLine(st.line, err)
			}
			f, err := in.execBlock(sc, st.body)
			if err != nil {
				return flowNormal, err
			}
			if f == flowBreak {
				break
			}
		}
		return flowNormal, nil
	}
	return flowNormal, atLine(s.pos(), typeErrorf("unsupported statement"))
}

func (in *interp) lookup(sc *scope, name string) (Value, error) {
	for s := sc; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, nil
		}
	}
	if v, ok := in.bindings[name]; ok {
		return v, nil
	}
	if in.reg != nil {
		if n, ok := in.reg.funcs[name]; ok {
			return n, nil
		}
	}
	if b, ok := builtins[name]; ok {
		return b, nil
	}
	return nil, errorf(ErrUnboundName, "name %q is not defined", name)
}

func (in *interp) assign(sc *scope, target expr, v Value) error {
	switch t := target.(type) {
	case *nameExpr:
		sc.vars[t.ident] = v
		return nil
	case *indexExpr:
		container, err := in.eval(sc, t.x)
		if err != nil {
			return err
		}
		key, err := in.eval(sc, t.index)
		if err != nil {
			return err
		}
		return in.setItem(container, key, v)
	case *tupleExpr:
		return in.unpack(sc, t.elts, v)
	case *listExpr:
		return in.unpack(sc, t.elts, v)
	}
	return typeErrorf("cannot assign to expression")
}

func (in *interp) unpack(sc *scope, targets []expr, v Value) error {
	seq, err := in.iterate(v)
	if err != nil {
		return err
	}
	if len(seq) != len(targets) {
		return valueErrorf("expected %d values to unpack, got %d", len(targets), len(seq))
	}
	for i, t := range targets {
		if err := in.assign(sc, t, seq[i]); err != nil {
			return err
		}
	}
	return nil
}

func (in *interp) setItem(container, key, v Value) error {
	switch c := container.(type) {
	case *List:
		i, err := normIndex(key, len(c.Items))
		if err != nil {
			return err
		}
		c.Items[i] = v
		return nil
	case *Dict:
		if err := c.Set(key, v); err != nil {
			return err
		}
		return in.checkSize(c.Len())
	}
	return typeErrorf("'%s' object does not support item assignment", typeName(container))
}

func (in *interp) augAssign(sc *scope, st *augAssignStmt) error {
	rhs, err := in.eval(sc, st.value)
	if err != nil {
		return err
	}

	if t, ok := st.target.(*indexExpr); ok {
		container, err := in.eval(sc, t.x)
		if err != nil {
			return err
		}
		key, err := in.eval(sc, t.index)
		if err != nil {
			return err
		}
		cur, err := in.getItem(container, key)
		if err != nil {
			return err
		}
		nv, err := in.inPlace(st.op, cur, rhs)
		if err != nil {
			return err
		}
		return in.setItem(container, key, nv)
	}

	name := st.target.(*nameExpr)
	cur, err := in.lookup(sc, name.ident)
	if err != nil {
		return err
	}
	nv, err := in.inPlace(st.op, cur, rhs)
	if err != nil {
		return err
	}
	sc.vars[name.ident] = nv
	return nil
}

// inPlace applies an augmented operator. Lists and sets are updated in
// place as the language requires.
func (in *interp) inPlace(op string, cur, rhs Value) (Value, error) {
	switch c := cur.(type) {
	case *List:
		if op == "+" {
			seq, err := in.iterate(rhs)
			if err != nil {
				return nil, err
			}
			if err := in.checkSize(len(c.Items) + len(seq)); err != nil {
				return nil, err
			}
			c.Items = append(c.Items, seq...)
			return c, nil
		}
	case *Set:
		if op == "|" {
			other, ok := rhs.(*Set)
			if !ok {
				break
			}
			if err := in.charge(other.Len()); err != nil {
				return nil, err
			}
			for _, it := range other.items {
				if err := c.Add(it); err != nil {
					return nil, err
				}
			}
			return c, in.checkSize(c.Len())
		}
	}
	return in.binaryOp(op, cur, rhs)
}

func (in *interp) eval(sc *scope, e expr) (Value, error) {
	if err := in.tick(); err != nil {
		return nil, err
	}
	switch x := e.(type) {
	case *constExpr:
		return x.val, nil
	case *nameExpr:
		return in.lookup(sc, x.ident)
	case *listExpr:
		items, err := in.evalAll(sc, x.elts)
		if err != nil {
			return nil, err
		}
		return in.newList(items)
	case *tupleExpr:
		items, err := in.evalAll(sc, x.elts)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case *setExpr:
		items, err := in.evalAll(sc, x.elts)
		if err != nil {
			return nil, err
		}
		return NewSet(items...)
	case *dictExpr:
		d := NewDict()
		for i := range x.keys {
			k, err := in.eval(sc, x.keys[i])
			if err != nil {
				return nil, err
			}
			v, err := in.eval(sc, x.vals[i])
			if err != nil {
				return nil, err
			}
			if err := d.Set(k, v); err != nil {
				return nil, err
			}
		}
		return d, in.checkSize(d.Len())
	case *unaryExpr:
		v, err := in.eval(sc, x.x)
		if err != nil {
			return nil, err
		}
		return unary(x.op, v)
	case *binaryExpr:
		l, err := in.eval(sc, x.l)
		if err != nil {
			return nil, err
		}
		r, err := in.eval(sc, x.r)
		if err != nil {
			return nil, err
		}
		return in.binaryOp(x.op, l, r)
	case *boolExpr:
		l, err := in.eval(sc, x.l)
		if err != nil {
			return nil, err
		}
		if (x.op == "and") != Truthy(l) {
			return l, nil
		}
		return in.eval(sc, x.r)
	case *compareExpr:
		return in.evalCompare(sc, x)
	case *condExpr:
		c, err := in.eval(sc, x.cond)
		if err != nil {
			return nil, err
		}
		if Truthy(c) {
			return in.eval(sc, x.then)
		}
		return in.eval(sc, x.els)
	case *callExpr:
		return in.evalCall(sc, x)
	case *methodExpr:
		recv, err := in.eval(sc, x.recv)
		if err != nil {
			return nil, err
		}
		args, err := in.evalAll(sc, x.args)
		if err != nil {
			return nil, err
		}
		return in.callMethod(recv, x.method, args)
	case *indexExpr:
		c, err := in.eval(sc, x.x)
		if err != nil {
			return nil, err
		}
		k, err := in.eval(sc, x.index)
		if err != nil {
			return nil, err
		}
		return in.getItem(c, k)
	case *sliceExpr:
		return in.evalSlice(sc, x)
	case *comprehension:
		return in.evalComprehension(sc, x)
	}
	return nil, typeErrorf("unsupported expression")
}

func (in *interp) evalAll(sc *scope, es []expr) ([]Value, error) {
	out := make([]Value, len(es))
	for i, e := range es {
		v, err := in.eval(sc, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func unary(op string, v Value) (Value, error) {
	switch op {
	case "not":
		return !Truthy(v), nil
	case "+":
		if i, ok := asInt(v); ok {
			return i, nil
		}
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case "-":
		if i, ok := asInt(v); ok {
			if i == math.MinInt64 {
				return -float64(i), nil
			}
			return -i, nil
		}
		if f, ok := v.(float64); ok {
			return -f, nil
		}
	case "~":
		if i, ok := asInt(v); ok {
			return ^i, nil
		}
	}
	return nil, typeErrorf("bad operand type for unary %s: '%s'", op, typeName(v))
}

func (in *interp) evalCompare(sc *scope, x *compareExpr) (Value, error) {
	left, err := in.eval(sc, x.first)
	if err != nil {
		return nil, err
	}
	for i, op := range x.ops {
		right, err := in.eval(sc, x.rest[i])
		if err != nil {
			return nil, err
		}
		ok, err := in.compare(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func (in *interp) evalCall(sc *scope, x *callExpr) (Value, error) {
	fn, err := in.eval(sc, x.fn)
	if err != nil {
		return nil, err
	}
	args, err := in.evalAll(sc, x.args)
	if err != nil {
		return nil, err
	}
	var kwargs map[string]Value
	if len(x.kwargs) > 0 {
		kwargs = make(map[string]Value, len(x.kwargs))
		for _, kw := range x.kwargs {
			v, err := in.eval(sc, kw.val)
			if err != nil {
				return nil, err
			}
			kwargs[kw.name] = v
		}
	}

	switch f := fn.(type) {
	case *native:
		if len(kwargs) > 0 {
			return nil, typeErrorf("%s() takes no keyword arguments", f.name)
		}
		out, err := f.fn(in.ctx, args)
		if err != nil {
			return nil, fmt.Errorf("%s(): %w", f.name, err)
		}
		return FromGo(out), nil
	case *builtin:
		for k := range kwargs {
			if !hasOp(f.kwargs, k) {
				return nil, typeErrorf("%s() got an unexpected keyword argument '%s'", f.name, k)
			}
		}
		return f.call(in, args, kwargs)
	}
	return nil, typeErrorf("'%s' object is not callable", typeName(fn))
}

func normIndex(key Value, n int) (int, error) {
	i, ok := asInt(key)
	if !ok {
		return 0, typeErrorf("indices must be integers, not %s", typeName(key))
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, valueErrorf("index out of range")
	}
	return int(i), nil
}

func (in *interp) getItem(c, key Value) (Value, error) {
	switch x := c.(type) {
	case *List:
		i, err := normIndex(key, len(x.Items))
		if err != nil {
			return nil, err
		}
		return x.Items[i], nil
	case Tuple:
		i, err := normIndex(key, len(x))
		if err != nil {
			return nil, err
		}
		return x[i], nil
	case string:
		runes := []rune(x)
		i, err := normIndex(key, len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	case Range:
		i, err := normIndex(key, int(x.Len()))
		if err != nil {
			return nil, err
		}
		return x.At(int64(i)), nil
	case *Dict:
		v, ok, err := x.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, valueErrorf("key %s not found", Repr(key))
		}
		return v, nil
	}
	return nil, typeErrorf("'%s' object is not subscriptable", typeName(c))
}

func (in *interp) evalSlice(sc *scope, x *sliceExpr) (Value, error) {
	c, err := in.eval(sc, x.x)
	if err != nil {
		return nil, err
	}
	bound := func(e expr) (*int64, error) {
		if e == nil {
			return nil, nil
		}
		v, err := in.eval(sc, e)
		if err != nil || v == nil {
			return nil, err
		}
		i, ok := asInt(v)
		if !ok {
			return nil, typeErrorf("slice indices must be integers or None")
		}
		return &i, nil
	}
	lo, err := bound(x.lo)
	if err != nil {
		return nil, err
	}
	hi, err := bound(x.hi)
	if err != nil {
		return nil, err
	}
	stride, err := bound(x.stride)
	if err != nil {
		return nil, err
	}

	var seq []Value
	switch v := c.(type) {
	case *List:
		seq = v.Items
	case Tuple:
		seq = v
	case string:
		for _, r := range v {
			seq = append(seq, string(r))
		}
	default:
		return nil, typeErrorf("'%s' object is not subscriptable", typeName(c))
	}

	idx, err := sliceIndices(len(seq), lo, hi, stride)
	if err != nil {
		return nil, err
	}
	if err := in.charge(len(idx)); err != nil {
		return nil, err
	}
	out := make([]Value, len(idx))
	for i, j := range idx {
		out[i] = seq[j]
	}
	switch c.(type) {
	case *List:
		return &List{Items: out}, nil
	case Tuple:
		return Tuple(out), nil
	}
	var sb strings.Builder
	for _, s := range out {
		sb.WriteString(s.(string))
	}
	return sb.String(), nil
}

func sliceIndices(n int, lo, hi, stride *int64) ([]int, error) {
	step := int64(1)
	if stride != nil {
		step = *stride
	}
	if step == 0 {
		return nil, valueErrorf("slice step cannot be zero")
	}
	clamp := func(p *int64, def int64, lower, upper int64) int64 {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += int64(n)
		}
		return max(lower, min(upper, v))
	}
	var start, stop int64
	if step > 0 {
		start = clamp(lo, 0, 0, int64(n))
		stop = clamp(hi, int64(n), 0, int64(n))
	} else {
		start = clamp(lo, int64(n)-1, -1, int64(n)-1)
		stop = clamp(hi, -1, -1, int64(n)-1)
	}
	var out []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, int(i))
	}
	return out, nil
}

func (in *interp) evalComprehension(sc *scope, c *comprehension) (Value, error) {
	inner := newScope(sc)
	var items []Value
	var set *Set
	var dict *Dict
	switch c.kind {
	case compSet:
		set = &Set{index: make(map[string]int)}
	case compDict:
		dict = NewDict()
	}

	emit := func() error {
		switch c.kind {
		case compSet:
			v, err := in.eval(inner, c.elt)
			if err != nil {
				return err
			}
			if err := set.Add(v); err != nil {
				return err
			}
			return in.checkSize(set.Len())
		case compDict:
			k, err := in.eval(inner, c.key)
			if err != nil {
				return err
			}
			v, err := in.eval(inner, c.elt)
			if err != nil {
				return err
			}
			if err := dict.Set(k, v); err != nil {
				return err
			}
			return in.checkSize(dict.Len())
		}
		v, err := in.eval(inner, c.elt)
		if err != nil {
			return err
		}
		items = append(items, v)
		return in.checkSize(len(items))
	}

	var loop func(depth int) error
	loop = func(depth int) error {
		if depth == len(c.clauses) {
			return emit()
		}
		cl := c.clauses[depth]
		src, err := in.eval(inner, cl.iter)
		if err != nil {
			return err
		}
		seq, err := in.iterate(src)
		if err != nil {
			return err
		}
	next:
		for _, it := range seq {
			if err := in.tick(); err != nil {
				return err
			}
			if err := in.assign(inner, cl.target, it); err != nil {
				return err
			}
			for _, cond := range cl.ifs {
				v, err := in.eval(inner, cond)
				if err != nil {
					return err
				}
				if !Truthy(v) {
					continue next
				}
			}
			if err := loop(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := loop(0); err != nil {
		return nil, err
	}

	switch c.kind {
	case compSet:
		return set, nil
	case compDict:
		return dict, nil
	}
	return &List{Items: items}, nil
}

// iterate returns a snapshot of the elements of an iterable value.
func (in *interp) iterate(v Value) ([]Value, error) {
	if err := in.charge(sizeOf(v)); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *List:
		return append([]Value(nil), x.Items...), nil
	case Tuple:
		return x, nil
	case *Set:
		return x.Items(), nil
	case *Dict:
		return x.Keys(), nil
	case string:
		out := make([]Value, 0, utf8.RuneCountInString(x))
		for _, r := range x {
			out = append(out, string(r))
		}
		return out, nil
	case Range:
		n := x.Len()
		if n > int64(in.limits.MaxCollection) {
			return nil, ErrCollectionLimit
		}
		out := make([]Value, n)
		for i := int64(0); i < n; i++ {
			out[i] = x.At(i)
		}
		return out, nil
	}
	return nil, typeErrorf("'%s' object is not iterable", typeName(v))
}

// sizeOf returns the element count of a container, or zero for scalars.
func sizeOf(v Value) int {
	switch x := v.(type) {
	case *List:
		return len(x.Items)
	case Tuple:
		return len(x)
	case *Set:
		return x.Len()
	case *Dict:
		return x.Len()
	case string:
		return len(x)
	case Range:
		if n := x.Len(); n <= math.MaxInt32 {
			return int(n)
		}
		return math.MaxInt32
	}
	return 0
}
