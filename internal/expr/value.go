package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Value is any value a program can hold: nil, bool, int64, float64,
// string, *List, Tuple, *Set, *Dict, Range, or an opaque domain value
// returned by a registered function. Opaque values can be passed around,
// compared and stored but not inspected by the program.
type Value = any

// List is a mutable sequence.
type List struct{ Items []Value }

// NewList wraps items in a List.
func NewList(items ...Value) *List { return &List{Items: items} }

// Tuple is an immutable sequence.
type Tuple []Value

// Set is an insertion-ordered hash set. Members must be hashable.
type Set struct {
	index map[string]int
	items []Value
}

// NewSet builds a set from values.
func NewSet(items ...Value) (*Set, error) {
	s := &Set{index: make(map[string]int, len(items))}
	for _, it := range items {
		if err := s.Add(it); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts v unless an equal member exists.
func (s *Set) Add(v Value) error {
	k, err := hashKey(v)
	if err != nil {
		return err
	}
	if _, ok := s.index[k]; ok {
		return nil
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, v)
	return nil
}

// Has reports membership.
func (s *Set) Has(v Value) (bool, error) {
	k, err := hashKey(v)
	if err != nil {
		return false, err
	}
	_, ok := s.index[k]
	return ok, nil
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.items) }

// Items returns members in insertion order.
func (s *Set) Items() []Value { return append([]Value(nil), s.items...) }

// Dict is an insertion-ordered mapping with hashable keys.
type Dict struct {
	index map[string]int
	keys  []Value
	vals  []Value
}

// NewDict returns an empty Dict.
func NewDict() *Dict { return &Dict{index: make(map[string]int)} }

// Set stores v under k.
func (d *Dict) Set(k, v Value) error {
	h, err := hashKey(k)
	if err != nil {
		return err
	}
	if i, ok := d.index[h]; ok {
		d.vals[i] = v
		return nil
	}
	d.index[h] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	return nil
}

// Get looks up k.
func (d *Dict) Get(k Value) (Value, bool, error) {
	h, err := hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[h]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns keys in insertion order.
func (d *Dict) Keys() []Value { return append([]Value(nil), d.keys...) }

// Range is the lazy integer sequence produced by range().
type Range struct{ Start, Stop, Step int64 }

// Len returns the number of elements.
func (r Range) Len() int64 {
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	case r.Step < 0 && r.Start > r.Stop:
		return (r.Start - r.Stop - r.Step - 1) / -r.Step
	}
	return 0
}

// At returns the i-th element.
func (r Range) At(i int64) int64 { return r.Start + i*r.Step }

// maxDepth bounds recursion through nested containers. A list that holds
// itself reaches it on the first comparison.
const maxDepth = 1000

// maxKeyLen bounds the hash key built for a tuple.
const maxKeyLen = 4 << 20

// hashKey maps a hashable value to a string key. Numbers that compare
// equal hash equal, so 1, 1.0 and True share a key.
func hashKey(v Value) (string, error) {
	return hashKeyAt(v, 0)
}

func hashKeyAt(v Value, depth int) (string, error) {
	switch x := v.(type) {
	case nil:
		return "n", nil
	case bool:
		if x {
			return "i1", nil
		}
		return "i0", nil
	case int64:
		return "i" + strconv.FormatInt(x, 10), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<63 {
			return "i" + strconv.FormatInt(int64(x), 10), nil
		}
		return "f" + strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		return "s" + strconv.Itoa(len(x)) + ":" + x, nil
	case Tuple:
		if depth >= maxDepth {
			return "", ErrDepthLimit
		}
		var sb strings.Builder
		sb.WriteString("t(")
		for _, it := range x {
			k, err := hashKeyAt(it, depth+1)
			if err != nil {
				return "", err
			}
			sb.WriteString(strconv.Itoa(len(k)))
			sb.WriteByte(':')
			sb.WriteString(k)
			if sb.Len() > maxKeyLen {
				return "", ErrCollectionLimit
			}
		}
		sb.WriteByte(')')
		return sb.String(), nil
	case *List, *Set, *Dict:
		return "", typeErrorf("unhashable type: '%s'", typeName(v))
	case Range:
		return fmt.Sprintf("r%d:%d:%d", x.Start, x.Stop, x.Step), nil
	}
	return fmt.Sprintf("o%T:%+v", v, v), nil
}

// typeName returns the name programs see for a value's type.
func typeName(v Value) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case *List:
		return "list"
	case Tuple:
		return "tuple"
	case *Set:
		return "set"
	case *Dict:
		return "dict"
	case Range:
		return "range"
	case *builtin, *native:
		return "function"
	}
	return reflect.TypeOf(v).String()
}

// Truthy applies the language's truthiness rules.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case *List:
		return len(x.Items) > 0
	case Tuple:
		return len(x) > 0
	case *Set:
		return x.Len() > 0
	case *Dict:
		return x.Len() > 0
	case Range:
		return x.Len() > 0
	}
	return true
}

// ToFloat converts a numeric result to float64.
func ToFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// FromGo converts common Go values returned by native functions into
// program values. Unknown types are returned as opaque values.
func FromGo(v any) Value {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, *List, Tuple, *Set, *Dict, Range:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case []string:
		items := make([]Value, len(x))
		for i, s := range x {
			items[i] = s
		}
		return &List{Items: items}
	case []Value:
		return &List{Items: x}
	}
	return v
}

// maxReprLen caps the length of a Repr result.
const maxReprLen = 4096

// Repr formats a value for diagnostics. A container that holds itself
// prints as [...] or {...} at the point of recursion, and output past
// maxReprLen is cut short with "...".
func Repr(v Value) string {
	p := &printer{seen: make(map[any]bool)}
	p.print(v, 0)
	if p.sb.Len() > maxReprLen {
		return strings.ToValidUTF8(p.sb.String()[:maxReprLen], "") + "..."
	}
	return p.sb.String()
}

type printer struct {
	sb   strings.Builder
	seen map[any]bool
}

func (p *printer) print(v Value, depth int) {
	if p.sb.Len() > maxReprLen {
		return
	}
	switch x := v.(type) {
	case nil:
		p.sb.WriteString("None")
	case bool:
		if x {
			p.sb.WriteString("True")
		} else {
			p.sb.WriteString("False")
		}
	case int64:
		p.sb.WriteString(strconv.FormatInt(x, 10))
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1e16 {
			p.sb.WriteString(strconv.FormatFloat(x, 'f', 1, 64))
		} else {
			p.sb.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		}
	case string:
		p.sb.WriteString(strconv.Quote(x))
	case *List:
		if p.seen[x] || depth >= maxDepth {
			p.sb.WriteString("[...]")
			return
		}
		p.seen[x] = true
		p.sb.WriteByte('[')
		p.join(x.Items, depth)
		p.sb.WriteByte(']')
		delete(p.seen, x)
	case Tuple:
		if depth >= maxDepth {
			p.sb.WriteString("(...)")
			return
		}
		p.sb.WriteByte('(')
		p.join(x, depth)
		if len(x) == 1 {
			p.sb.WriteByte(',')
		}
		p.sb.WriteByte(')')
	case *Set:
		if x.Len() == 0 {
			p.sb.WriteString("set()")
			return
		}
		p.sb.WriteByte('{')
		p.join(x.items, depth)
		p.sb.WriteByte('}')
	case *Dict:
		if p.seen[x] || depth >= maxDepth {
			p.sb.WriteString("{...}")
			return
		}
		p.seen[x] = true
		p.sb.WriteByte('{')
		for i := range x.keys {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.print(x.keys[i], depth+1)
			p.sb.WriteString(": ")
			p.print(x.vals[i], depth+1)
		}
		p.sb.WriteByte('}')
		delete(p.seen, x)
	case Range:
		fmt.Fprintf(&p.sb, "range(%d, %d, %d)", x.Start, x.Stop, x.Step)
	default:
		fmt.Fprintf(&p.sb, "<%s>", typeName(v))
	}
}

func (p *printer) join(items []Value, depth int) {
	for i, it := range items {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		p.print(it, depth+1)
	}
}

func asInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int64:
		return x, true
	}
	return 0, false
}
