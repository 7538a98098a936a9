package expr

import (
	"math"
	"strings"
	"unicode/utf8"
)

// builtin is one of the few language-level functions every program can
// reach regardless of the registry.
type builtin struct {
	name   string
	kwargs []string
	call   func(in *interp, args []Value, kwargs map[string]Value) (Value, error)
}

var builtins map[string]*builtin

func init() {
	builtins = map[string]*builtin{}
	for _, b := range []*builtin{
		{name: "set", call: builtinSet},
		{name: "list", call: builtinList},
		{name: "len", call: builtinLen},
		{name: "min", kwargs: []string{"default"}, call: builtinMinMax(-1)},
		{name: "max", kwargs: []string{"default"}, call: builtinMinMax(1)},
		{name: "sum", kwargs: []string{"start"}, call: builtinSum},
		{name: "abs", call: builtinAbs},
		{name: "round", call: builtinRound},
		{name: "sorted", kwargs: []string{"reverse"}, call: builtinSorted},
		{name: "range", call: builtinRange},
	} {
		builtins[b.name] = b
	}
}

// BuiltinNames lists the builtins available to every program.
func BuiltinNames() []string {
	return []string{"abs", "len", "list", "max", "min", "range", "round", "set", "sorted", "sum"}
}

func arity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return typeErrorf("%s() takes %d arguments (%d given)", name, lo, len(args))
		}
		return typeErrorf("%s() takes %d to %d arguments (%d given)", name, lo, hi, len(args))
	}
	return nil
}

func builtinSet(in *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("set", args, 0, 1); err != nil {
		return nil, err
	}
	s := &Set{index: make(map[string]int)}
	if len(args) == 0 {
		return s, nil
	}
	seq, err := in.iterate(args[0])
	if err != nil {
		return nil, err
	}
	for _, it := range seq {
		if err := s.Add(it); err != nil {
			return nil, err
		}
	}
	return s, in.checkSize(s.Len())
}

func builtinList(in *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("list", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return &List{}, nil
	}
	seq, err := in.iterate(args[0])
	if err != nil {
		return nil, err
	}
	return in.newList(seq)
}

func builtinLen(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("len", args, 1, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case string:
		return int64(utf8.RuneCountInString(x)), nil
	case *List:
		return int64(len(x.Items)), nil
	case Tuple:
		return int64(len(x)), nil
	case *Set:
		return int64(x.Len()), nil
	case *Dict:
		return int64(x.Len()), nil
	case Range:
		return x.Len(), nil
	}
	return nil, typeErrorf("object of type '%s' has no len()", typeName(args[0]))
}

func builtinMinMax(sign int) func(*interp, []Value, map[string]Value) (Value, error) {
	name := "min"
	if sign > 0 {
		name = "max"
	}
	return func(in *interp, args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) == 0 {
			return nil, typeErrorf("%s expected at least 1 argument, got 0", name)
		}
		seq := args
		if len(args) == 1 {
			var err error
			if seq, err = in.iterate(args[0]); err != nil {
				return nil, err
			}
		}
		if len(seq) == 0 {
			if def, ok := kwargs["default"]; ok {
				return def, nil
			}
			return nil, valueErrorf("%s() arg is an empty sequence", name)
		}
		best := seq[0]
		for _, v := range seq[1:] {
			c, err := in.compareOrder(v, best)
			if err != nil {
				return nil, err
			}
			if c*sign > 0 {
				best = v
			}
		}
		return best, nil
	}
}

func builtinSum(in *interp, args []Value, kwargs map[string]Value) (Value, error) {
	if err := arity("sum", args, 1, 2); err != nil {
		return nil, err
	}
	var total Value = int64(0)
	if len(args) == 2 {
		total = args[1]
	}
	if s, ok := kwargs["start"]; ok {
		total = s
	}
	seq, err := in.iterate(args[0])
	if err != nil {
		return nil, err
	}
	for _, v := range seq {
		if err := in.tick(); err != nil {
			return nil, err
		}
		if _, ok := v.(string); ok {
			return nil, typeErrorf("sum() can't sum strings")
		}
		if total, err = in.binaryOp("+", total, v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func builtinAbs(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("abs", args, 1, 1); err != nil {
		return nil, err
	}
	if i, ok := asInt(args[0]); ok {
		if i == math.MinInt64 {
			return -float64(i), nil
		}
		return abs64(i), nil
	}
	if f, ok := args[0].(float64); ok {
		return math.Abs(f), nil
	}
	return nil, typeErrorf("bad operand type for abs(): '%s'", typeName(args[0]))
}

// builtinRound rounds half to even. Without a digit count the result is an
// int; with one it keeps the argument's type.
func builtinRound(_ *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("round", args, 1, 2); err != nil {
		return nil, err
	}
	var digits *int64
	if len(args) == 2 && args[1] != nil {
		d, ok := asInt(args[1])
		if !ok {
			return nil, typeErrorf("round() digits must be an integer")
		}
		digits = &d
	}
	if i, ok := asInt(args[0]); ok {
		if digits == nil || *digits >= 0 {
			return i, nil
		}
		p := math.Pow(10, float64(-*digits))
		return int64(math.RoundToEven(float64(i)/p) * p), nil
	}
	f, ok := args[0].(float64)
	if !ok {
		return nil, typeErrorf("type %s doesn't define __round__", typeName(args[0]))
	}
	if digits == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, valueErrorf("cannot convert %s to integer", Repr(f))
		}
		r := math.RoundToEven(f)
		if math.Abs(r) >= 1<<63 {
			return r, nil
		}
		return int64(r), nil
	}
	p := math.Pow(10, float64(*digits))
	return math.RoundToEven(f*p) / p, nil
}

func builtinSorted(in *interp, args []Value, kwargs map[string]Value) (Value, error) {
	if err := arity("sorted", args, 1, 1); err != nil {
		return nil, err
	}
	seq, err := in.iterate(args[0])
	if err != nil {
		return nil, err
	}
	items := append([]Value(nil), seq...)
	if err := in.sortValues(items, Truthy(kwargs["reverse"])); err != nil {
		return nil, err
	}
	return &List{Items: items}, nil
}

func builtinRange(in *interp, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}
	ints := make([]int64, len(args))
	for i, a := range args {
		n, ok := asInt(a)
		if !ok {
			return nil, typeErrorf("'%s' object cannot be interpreted as an integer", typeName(a))
		}
		ints[i] = n
	}
	r := Range{Step: 1}
	switch len(ints) {
	case 1:
		r.Stop = ints[0]
	case 2:
		r.Start, r.Stop = ints[0], ints[1]
	case 3:
		r.Start, r.Stop, r.Step = ints[0], ints[1], ints[2]
	}
	if r.Step == 0 {
		return nil, valueErrorf("range() arg 3 must not be zero")
	}
	if r.Len() > int64(in.limits.MaxCollection) {
		return nil, ErrCollectionLimit
	}
	return r, nil
}

// callMethod dispatches the small set of container and string methods
// programs may use.
func (in *interp) callMethod(recv Value, method string, args []Value) (Value, error) {
	switch r := recv.(type) {
	case *List:
		switch method {
		case "append":
			if err := arity("append", args, 1, 1); err != nil {
				return nil, err
			}
			if err := in.checkSize(len(r.Items) + 1); err != nil {
				return nil, err
			}
			r.Items = append(r.Items, args[0])
			return nil, nil
		case "count":
			if err := arity("count", args, 1, 1); err != nil {
				return nil, err
			}
			n := int64(0)
			for _, it := range r.Items {
				eq, err := in.equal(it, args[0])
				if err != nil {
					return nil, err
				}
				if eq {
					n++
				}
			}
			return n, nil
		}
	case *Set:
		return in.setMethod(r, method, args)
	case *Dict:
		if method != "get" {
			if err := in.charge(r.Len()); err != nil {
				return nil, err
			}
		}
		switch method {
		case "get":
			if err := arity("get", args, 1, 2); err != nil {
				return nil, err
			}
			v, ok, err := r.Get(args[0])
			if err != nil {
				return nil, err
			}
			if !ok && len(args) == 2 {
				return args[1], nil
			}
			return v, nil
		case "keys":
			return &List{Items: r.Keys()}, nil
		case "values":
			return &List{Items: append([]Value(nil), r.vals...)}, nil
		case "items":
			out := make([]Value, len(r.keys))
			for i := range r.keys {
				out[i] = Tuple{r.keys[i], r.vals[i]}
			}
			return &List{Items: out}, nil
		}
	case string:
		if err := in.charge(len(r) / bytesPerStep); err != nil {
			return nil, err
		}
		return stringMethod(r, method, args)
	}
	return nil, typeErrorf("'%s' object has no method '%s'", typeName(recv), method)
}

func (in *interp) setMethod(s *Set, method string, args []Value) (Value, error) {
	if method == "add" {
		if err := arity("add", args, 1, 1); err != nil {
			return nil, err
		}
		if err := s.Add(args[0]); err != nil {
			return nil, err
		}
		return nil, in.checkSize(s.Len())
	}

	others := make([]*Set, len(args))
	for i, a := range args {
		o, ok := a.(*Set)
		if !ok {
			seq, err := in.iterate(a)
			if err != nil {
				return nil, err
			}
			if o, err = NewSet(seq...); err != nil {
				return nil, err
			}
		}
		others[i] = o
	}

	switch method {
	case "union":
		out, err := in.setUnion(s, &Set{index: map[string]int{}})
		if err != nil {
			return nil, err
		}
		for _, o := range others {
			if out, err = in.setUnion(out, o); err != nil {
				return nil, err
			}
		}
		return out, nil
	case "intersection", "difference":
		keep := method == "intersection"
		out, err := in.setFilter(s, s, true)
		if err != nil {
			return nil, err
		}
		for _, o := range others {
			if out, err = in.setFilter(out, o, keep); err != nil {
				return nil, err
			}
		}
		return out, nil
	case "issubset":
		if err := arity("issubset", args, 1, 1); err != nil {
			return nil, err
		}
		return in.isSubset(s, others[0])
	case "issuperset":
		if err := arity("issuperset", args, 1, 1); err != nil {
			return nil, err
		}
		return in.isSubset(others[0], s)
	}
	return nil, typeErrorf("'set' object has no method '%s'", method)
}

func stringMethod(s, method string, args []Value) (Value, error) {
	strArg := func() (string, error) {
		if err := arity(method, args, 1, 1); err != nil {
			return "", err
		}
		a, ok := args[0].(string)
		if !ok {
			return "", typeErrorf("%s() argument must be str, not %s", method, typeName(args[0]))
		}
		return a, nil
	}
	switch method {
	case "lower":
		return strings.ToLower(s), nil
	case "upper":
		return strings.ToUpper(s), nil
	case "strip":
		return strings.TrimSpace(s), nil
	case "startswith":
		a, err := strArg()
		if err != nil {
			return nil, err
		}
		return strings.HasPrefix(s, a), nil
	case "endswith":
		a, err := strArg()
		if err != nil {
			return nil, err
		}
		return strings.HasSuffix(s, a), nil
	case "split":
		var parts []string
		if len(args) == 0 {
			parts = strings.Fields(s)
		} else {
			sep, err := strArg()
			if err != nil {
				return nil, err
			}
			if sep == "" {
				return nil, valueErrorf("empty separator")
			}
			parts = strings.Split(s, sep)
		}
		return FromGo(parts), nil
	}
	return nil, typeErrorf("'str' object has no method '%s'", method)
}
