// Package expr implements the small statement language constraint and
// preference programs are written in. Programs are parsed once into an
// AST and run by a tree-walking interpreter that can reach nothing but a
// closed function Registry, a few builtins and the caller's bindings.
// Every run is bounded by a step budget and a collection size limit.
package expr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ResultName is the variable a program assigns its answer to.
const ResultName = "result"

// Limits bounds a single program run.
type Limits struct {
	// MaxSteps is the number of statement and expression evaluations a run
	// may perform. Operations that walk a collection, such as membership,
	// equality, sorting or copying, cost one step per element visited.
	MaxSteps int64 `yaml:"max_steps" validate:"min=1"`

	// MaxCollection is the largest list, set, dict or range a run may build.
	MaxCollection int `yaml:"max_collection" validate:"min=1"`

	// MaxStringLen is the longest string, in bytes, a run may build.
	MaxStringLen int `yaml:"max_string_len" validate:"min=1"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:      1_000_000,
		MaxCollection: 100_000,
		MaxStringLen:  1 << 20,
	}
}

func (l Limits) orDefault() Limits {
	d := DefaultLimits()
	if l.MaxSteps <= 0 {
		l.MaxSteps = d.MaxSteps
	}
	if l.MaxCollection <= 0 {
		l.MaxCollection = d.MaxCollection
	}
	if l.MaxStringLen <= 0 {
		l.MaxStringLen = d.MaxStringLen
	}
	return l
}

// Program is a parsed program. It holds no run state and is safe to run
// concurrently.
type Program struct {
	source string
	hash   string
	body   []stmt
}

// Compile parses program text.
func Compile(src string) (*Program, error) {
	body, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Program{source: src, hash: SourceHash(src), body: body}, nil
}

// SourceHash returns the hex SHA-256 of a program's text.
func SourceHash(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Source returns the program text.
func (p *Program) Source() string { return p.source }

// Hash returns the hex SHA-256 of the program text.
func (p *Program) Hash() string { return p.hash }

// Run executes the program and returns the value bound to result.
// bindings are read-only names such as plan. Failures of any kind,
// including panics in registered functions, are returned as errors.
func (p *Program) Run(ctx context.Context, reg *Registry, bindings map[string]Value, limits Limits) (result Value, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	in := &interp{
		ctx:      ctx,
		reg:      reg,
		bindings: bindings,
		limits:   limits.orDefault(),
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &RuntimeError{Err: fmt.Errorf("%w: panic: %v", ErrValue, r)}
		}
	}()

	global := newScope(nil)
	f, err := in.execBlock(global, p.body)
	if err != nil {
		return nil, err
	}
	if f != flowNormal {
		return nil, errors.New("loop control outside loop")
	}
	v, ok := global.vars[ResultName]
	if !ok {
		return nil, ErrNoResult
	}
	return v, nil
}
