package expr

import (
	"math"
	"math/bits"
	"reflect"
	"sort"
	"strings"
)

// bytesPerStep is how many bytes of string work cost one step.
const bytesPerStep = 64

// binaryOp applies an arithmetic or set operator.
func (in *interp) binaryOp(op string, a, b Value) (Value, error) {
	if ia, ok := asInt(a); ok {
		if ib, ok := asInt(b); ok {
			return intOp(op, ia, ib)
		}
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			return floatOp(op, fa, fb)
		}
	}

	switch x := a.(type) {
	case string:
		switch op {
		case "+":
			if y, ok := b.(string); ok {
				if err := in.charge((len(x) + len(y)) / bytesPerStep); err != nil {
					return nil, err
				}
				return in.checkString(x + y)
			}
		case "*":
			if n, ok := asInt(b); ok {
				return in.repeatString(x, n)
			}
		}
	case *List:
		switch op {
		case "+":
			if y, ok := b.(*List); ok {
				if err := in.charge(len(x.Items) + len(y.Items)); err != nil {
					return nil, err
				}
				items := make([]Value, 0, len(x.Items)+len(y.Items))
				items = append(append(items, x.Items...), y.Items...)
				return in.newList(items)
			}
		case "*":
			if n, ok := asInt(b); ok {
				items, err := in.repeat(x.Items, n)
				if err != nil {
					return nil, err
				}
				return &List{Items: items}, nil
			}
		}
	case Tuple:
		switch op {
		case "+":
			if y, ok := b.(Tuple); ok {
				if err := in.charge(len(x) + len(y)); err != nil {
					return nil, err
				}
				out := make(Tuple, 0, len(x)+len(y))
				out = append(append(out, x...), y...)
				return out, in.checkSize(len(out))
			}
		case "*":
			if n, ok := asInt(b); ok {
				items, err := in.repeat(x, n)
				return Tuple(items), err
			}
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			switch op {
			case "|":
				return in.setUnion(x, y)
			case "&":
				return in.setIntersection(x, y)
			case "-":
				return in.setDifference(x, y)
			case "^":
				l, err := in.setDifference(x, y)
				if err != nil {
					return nil, err
				}
				r, err := in.setDifference(y, x)
				if err != nil {
					return nil, err
				}
				return in.setUnion(l, r)
			}
		}
	}

	if op == "*" {
		if _, ok := asInt(a); ok {
			switch b.(type) {
			case string, *List, Tuple:
				return in.binaryOp(op, b, a)
			}
		}
	}
	return nil, typeErrorf("unsupported operand types for %s: '%s' and '%s'", op, typeName(a), typeName(b))
}

func intOp(op string, a, b int64) (Value, error) {
	switch op {
	case "+":
		s := a + b
		if (s > a) == (b > 0) {
			return s, nil
		}
		return float64(a) + float64(b), nil
	case "-":
		d := a - b
		if (d < a) == (b > 0) {
			return d, nil
		}
		return float64(a) - float64(b), nil
	case "*":
		if a == 0 || b == 0 {
			return int64(0), nil
		}
		hi, lo := bits.Mul64(uint64(abs64(a)), uint64(abs64(b)))
		if hi != 0 || lo > math.MaxInt64 || a == math.MinInt64 || b == math.MinInt64 {
			return float64(a) * float64(b), nil
		}
		if (a < 0) != (b < 0) {
			return -int64(lo), nil
		}
		return int64(lo), nil
	case "/":
		if b == 0 {
			return nil, ErrZeroDivision
		}
		return float64(a) / float64(b), nil
	case "//":
		if b == 0 {
			return nil, ErrZeroDivision
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, nil
	case "%":
		if b == 0 {
			return nil, ErrZeroDivision
		}
		m := a % b
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return m, nil
	case "**":
		if b < 0 {
			if a == 0 {
				return nil, ErrZeroDivision
			}
			return math.Pow(float64(a), float64(b)), nil
		}
		result := int64(1)
		base := a
		for e := b; e > 0; e >>= 1 {
			if e&1 == 1 {
				r, err := intOp("*", result, base)
				if err != nil {
					return nil, err
				}
				ri, ok := r.(int64)
				if !ok {
					return math.Pow(float64(a), float64(b)), nil
				}
				result = ri
			}
			if e > 1 {
				sq, _ := intOp("*", base, base)
				bi, ok := sq.(int64)
				if !ok {
					return math.Pow(float64(a), float64(b)), nil
				}
				base = bi
			}
		}
		return result, nil
	case "|":
		return a | b, nil
	case "&":
		return a & b, nil
	case "^":
		return a ^ b, nil
	}
	return nil, typeErrorf("unsupported operator %s for int", op)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func floatOp(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, ErrZeroDivision
		}
		return a / b, nil
	case "//":
		if b == 0 {
			return nil, ErrZeroDivision
		}
		return math.Floor(a / b), nil
	case "%":
		if b == 0 {
			return nil, ErrZeroDivision
		}
		m := math.Mod(a, b)
		if m != 0 && ((m < 0) != (b < 0)) {
			m += b
		}
		return m, nil
	case "**":
		if a == 0 && b < 0 {
			return nil, ErrZeroDivision
		}
		r := math.Pow(a, b)
		if math.IsNaN(r) && !math.IsNaN(a) && !math.IsNaN(b) {
			return nil, valueErrorf("math domain error")
		}
		return r, nil
	}
	return nil, typeErrorf("unsupported operand types for %s: 'float'", op)
}

func (in *interp) repeat(items []Value, n int64) ([]Value, error) {
	if n <= 0 || len(items) == 0 {
		return nil, nil
	}
	if n > int64(in.limits.MaxCollection) || int64(len(items))*n > int64(in.limits.MaxCollection) {
		return nil, ErrCollectionLimit
	}
	if err := in.charge(len(items) * int(n)); err != nil {
		return nil, err
	}
	out := make([]Value, 0, int64(len(items))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, items...)
	}
	return out, nil
}

func (in *interp) repeatString(s string, n int64) (Value, error) {
	if n <= 0 || s == "" {
		return "", nil
	}
	if n > int64(in.limits.MaxStringLen) || int64(len(s))*n > int64(in.limits.MaxStringLen) {
		return nil, ErrCollectionLimit
	}
	if err := in.charge(len(s) * int(n) / bytesPerStep); err != nil {
		return nil, err
	}
	return strings.Repeat(s, int(n)), nil
}


func (in *interp) setUnion(a, b *Set) (*Set, error) {
	if err := in.charge(a.Len() + b.Len()); err != nil {
		return nil, err
	}
	out := &Set{index: make(map[string]int, a.Len()+b.Len())}
	for _, src := range [][]Value{a.items, b.items} {
		for _, it := range src {
			_ = out.Add(it)
		}
	}
	return out, in.checkSize(out.Len())
}

func (in *interp) setIntersection(a, b *Set) (*Set, error) {
	return in.setFilter(a, b, true)
}

func (in *interp) setDifference(a, b *Set) (*Set, error) {
	return in.setFilter(a, b, false)
}

// setFilter keeps the members of a whose presence in b equals keep.
func (in *interp) setFilter(a, b *Set, keep bool) (*Set, error) {
	if err := in.charge(a.Len()); err != nil {
		return nil, err
	}
	out := &Set{index: make(map[string]int)}
	for _, it := range a.items {
		k, _ := hashKey(it)
		if _, ok := b.index[k]; ok == keep {
			_ = out.Add(it)
		}
	}
	return out, nil
}

func (in *interp) isSubset(a, b *Set) (bool, error) {
	if a.Len() > b.Len() {
		return false, nil
	}
	if err := in.charge(a.Len()); err != nil {
		return false, err
	}
	for k := range a.index {
		if _, ok := b.index[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// equal implements ==. Numbers compare by value across int, float and
// bool; opaque values compare structurally. Every value visited costs a
// step and nesting deeper than maxDepth fails with ErrDepthLimit.
func (in *interp) equal(a, b Value) (bool, error) {
	return in.equalAt(a, b, 0)
}

func (in *interp) equalAt(a, b Value, depth int) (bool, error) {
	if depth > maxDepth {
		return false, ErrDepthLimit
	}
	if err := in.tick(); err != nil {
		return false, err
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			ia, aInt := asInt(a)
			ib, bInt := asInt(b)
			if aInt && bInt {
				return ia == ib, nil
			}
			return fa == fb, nil
		}
		return false, nil
	}
	switch x := a.(type) {
	case nil:
		return b == nil, nil
	case string:
		y, ok := b.(string)
		if !ok {
			return false, nil
		}
		return x == y, in.charge(len(x) / bytesPerStep)
	case *List:
		y, ok := b.(*List)
		if !ok {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		return in.seqEqual(x.Items, y.Items, depth)
	case Tuple:
		y, ok := b.(Tuple)
		if !ok {
			return false, nil
		}
		return in.seqEqual(x, y, depth)
	case *Set:
		y, ok := b.(*Set)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		if err := in.charge(x.Len()); err != nil {
			return false, err
		}
		for k := range x.index {
			if _, ok := y.index[k]; !ok {
				return false, nil
			}
		}
		return true, nil
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		if x == y {
			return true, nil
		}
		for i, k := range x.keys {
			v, found, err := y.Get(k)
			if err != nil || !found {
				return false, err
			}
			eq, err := in.equalAt(x.vals[i], v, depth+1)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case Range:
		y, ok := b.(Range)
		return ok && x == y, nil
	}
	if _, ok := b.(string); ok {
		return false, nil
	}
	return reflect.DeepEqual(a, b), nil
}

func (in *interp) seqEqual(a, b []Value, depth int) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := in.equalAt(a[i], b[i], depth+1)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// compareOrder orders two values for <, <=, >, >= and sorting. Sets are
// not totally ordered and are handled separately.
func (in *interp) compareOrder(a, b Value) (int, error) {
	return in.orderAt(a, b, 0)
}

func (in *interp) orderAt(a, b Value, depth int) (int, error) {
	if depth > maxDepth {
		return 0, ErrDepthLimit
	}
	if err := in.tick(); err != nil {
		return 0, err
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			ia, aInt := asInt(a)
			ib, bInt := asInt(b)
			if aInt && bInt {
				return cmp3(ia < ib, ia > ib), nil
			}
			return cmp3(fa < fb, fa > fb), nil
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), in.charge(min(len(x), len(y)) / bytesPerStep)
		}
	case *List:
		if y, ok := b.(*List); ok {
			return in.compareSeq(x.Items, y.Items, depth)
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			return in.compareSeq(x, y, depth)
		}
	}
	return 0, typeErrorf("'<' not supported between instances of '%s' and '%s'", typeName(a), typeName(b))
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// compareSeq orders sequences lexicographically: the first unequal pair
// decides, otherwise the shorter sequence sorts first.
func (in *interp) compareSeq(a, b []Value, depth int) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		eq, err := in.equalAt(a[i], b[i], depth+1)
		if err != nil {
			return 0, err
		}
		if eq {
			continue
		}
		return in.orderAt(a[i], b[i], depth+1)
	}
	return cmp3(len(a) < len(b), len(a) > len(b)), nil
}

// sortValues sorts in place using the language's ordering. The first
// comparison error aborts the sort.
func (in *interp) sortValues(items []Value, reverse bool) error {
	var err error
	sort.SliceStable(items, func(i, j int) bool {
		if err != nil {
			return false
		}
		a, b := items[i], items[j]
		if reverse {
			a, b = b, a
		}
		c, e := in.compareOrder(a, b)
		if e != nil {
			err = e
			return false
		}
		return c < 0
	})
	return err
}

// compare evaluates one link of a comparison chain.
func (in *interp) compare(op string, a, b Value) (bool, error) {
	switch op {
	case "==":
		return in.equal(a, b)
	case "!=":
		eq, err := in.equal(a, b)
		return !eq, err
	case "is":
		return in.identical(a, b)
	case "is not":
		same, err := in.identical(a, b)
		return !same, err
	case "in":
		return in.contains(b, a)
	case "not in":
		ok, err := in.contains(b, a)
		return !ok, err
	}

	if x, ok := a.(*Set); ok {
		y, ok := b.(*Set)
		if !ok {
			return false, typeErrorf("'%s' not supported between instances of 'set' and '%s'", op, typeName(b))
		}
		switch op {
		case "<=":
			return in.isSubset(x, y)
		case "<":
			sub, err := in.isSubset(x, y)
			return sub && x.Len() < y.Len(), err
		case ">=":
			return in.isSubset(y, x)
		case ">":
			sup, err := in.isSubset(y, x)
			return sup && y.Len() < x.Len(), err
		}
	}

	c, err := in.compareOrder(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, typeErrorf("unknown comparison %s", op)
}

// identical approximates identity for immutable scalars by equality of
// type and value, and uses pointer identity for containers.
func (in *interp) identical(a, b Value) (bool, error) {
	switch x := a.(type) {
	case nil:
		return b == nil, nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y, nil
	case *List:
		y, ok := b.(*List)
		return ok && x == y, nil
	case *Set:
		y, ok := b.(*Set)
		return ok && x == y, nil
	case *Dict:
		y, ok := b.(*Dict)
		return ok && x == y, nil
	}
	if typeName(a) != typeName(b) {
		return false, nil
	}
	return in.equal(a, b)
}

// contains implements "needle in haystack". Scanning a sequence costs a
// step per element compared.
func (in *interp) contains(haystack, needle Value) (bool, error) {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		if !ok {
			return false, typeErrorf("'in <string>' requires string as left operand, not %s", typeName(needle))
		}
		return strings.Contains(h, n), in.charge(len(h) / bytesPerStep)
	case *List:
		return in.seqContains(h.Items, needle)
	case Tuple:
		return in.seqContains(h, needle)
	case *Set:
		return h.Has(needle)
	case *Dict:
		_, ok, err := h.Get(needle)
		return ok, err
	case Range:
		n, ok := asInt(needle)
		if !ok {
			f, isNum := needle.(float64)
			if !isNum || f != math.Trunc(f) {
				return false, nil
			}
			n = int64(f)
		}
		if h.Step > 0 && (n < h.Start || n >= h.Stop) || h.Step < 0 && (n > h.Start || n <= h.Stop) {
			return false, nil
		}
		return (n-h.Start)%h.Step == 0, nil
	}
	return false, typeErrorf("argument of type '%s' is not iterable", typeName(haystack))
}

func (in *interp) seqContains(items []Value, needle Value) (bool, error) {
	for _, it := range items {
		eq, err := in.equal(it, needle)
		if err != nil || eq {
			return eq, err
		}
	}
	return false, nil
}
