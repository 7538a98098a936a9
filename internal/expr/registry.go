package expr

import (
	"context"
	"fmt"
	"sort"
	"unicode"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

// Func is a native function exposed to programs. Arguments arrive as
// program values; the returned value is converted with FromGo.
type Func func(ctx context.Context, args []Value) (Value, error)

// Registry is the closed set of functions programs may call besides the
// builtins. It is built once and never mutated, so one Registry can serve
// any number of concurrent runs.
type Registry struct {
	funcs map[string]*native
	names []string
}

// native is the callable value a registry name resolves to.
type native struct {
	name string
	fn   Func
}

// NewRegistry validates and freezes a function table. Names must be
// identifiers that do not shadow keywords or builtins.
func NewRegistry(funcs map[string]Func) (*Registry, error) {
	r := &Registry{funcs: make(map[string]*native, len(funcs))}
	for name, fn := range funcs {
		if !isIdentifier(name) || keywords[name] {
			return nil, fmt.Errorf("%w: invalid function name %q", domain.ErrInvalidConfiguration, name)
		}
		if _, ok := builtins[name]; ok {
			return nil, fmt.Errorf("%w: function %q shadows a builtin", domain.ErrInvalidConfiguration, name)
		}
		if fn == nil {
			return nil, fmt.Errorf("%w: function %q is nil", domain.ErrInvalidConfiguration, name)
		}
		r.funcs[name] = &native{name: name, fn: fn}
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the registered function with the given name.
func (r *Registry) Lookup(name string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	n, ok := r.funcs[name]
	if !ok {
		return nil, false
	}
	return n.fn, true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '_' || unicode.IsLetter(c) || (i > 0 && unicode.IsDigit(c)) {
			continue
		}
		return false
	}
	return true
}
