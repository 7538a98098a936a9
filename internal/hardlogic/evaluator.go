// Package hardlogic evaluates the hard constraints a query declares. Each
// constraint is a program whose result must be truthy for the plan to
// satisfy it; a program that fails to parse or run counts as violated.
//
// In oracle mode the programs come from the query's hard_logic_py field.
// Otherwise the query is stripped of its translations and a Translator
// supplies the programs, or the query has none.
package hardlogic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahrav/go-tripcheck/internal/concept"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// ColumnPrefix prefixes every hard-constraint column.
const ColumnPrefix = "logic_"

// Column returns the column of the i-th constraint, counting from 1.
func Column(i int) string { return fmt.Sprintf("%s%d", ColumnPrefix, i) }

// Columns returns the columns of n constraints.
func Columns(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Column(i + 1)
	}
	return out
}

// Options configures an Evaluator.
type Options struct {
	// Oracle reads programs from the query itself.
	Oracle bool

	// Translator supplies programs when Oracle is false. A nil translator
	// means queries have no hard constraints in that mode.
	Translator ports.Translator

	// Limits bounds every program run.
	Limits expr.Limits

	// Metrics receives program latencies. Nil discards them.
	Metrics ports.MetricsCollector
}

// Outcome is the hard-constraint result of one query.
type Outcome struct {
	// Violated has one entry per program, in program order.
	Violated []bool

	// Diagnostics explain each violated constraint.
	Diagnostics []domain.Diagnostic
}

// Passed reports whether no constraint was violated.
func (o Outcome) Passed() bool {
	for _, v := range o.Violated {
		if v {
			return false
		}
	}
	return true
}

// Evaluator runs hard-constraint programs. It is safe for concurrent use.
type Evaluator struct {
	reg   *expr.Registry
	cache *expr.Cache
	opts  Options
}

// New returns an evaluator over reg. A nil cache gets a private one.
func New(reg *expr.Registry, cache *expr.Cache, opts Options) (*Evaluator, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: hard-constraint evaluator needs a function registry", domain.ErrInvalidConfiguration)
	}
	if cache == nil {
		cache = expr.NewCache()
	}
	if opts.Metrics == nil {
		opts.Metrics = ports.NopMetrics{}
	}
	return &Evaluator{reg: reg, cache: cache, opts: opts}, nil
}

// Programs returns the constraint programs for q. A translator that has
// nothing for the query yields no programs rather than an error.
func (e *Evaluator) Programs(ctx context.Context, q domain.Query) ([]string, error) {
	if e.opts.Oracle {
		return append([]string(nil), q.HardLogicPy...), nil
	}
	if e.opts.Translator == nil {
		return nil, nil
	}
	progs, err := e.opts.Translator.Translate(ctx, q.WithoutOracle())
	if errors.Is(err, ports.ErrNoTranslation) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewEvaluationError(q.UID, "translate", err)
	}
	return progs, nil
}

// Evaluate runs every program against p.
func (e *Evaluator) Evaluate(ctx context.Context, q domain.Query, p *domain.Plan, programs []string) Outcome {
	out := Outcome{Violated: make([]bool, len(programs))}
	for i, src := range programs {
		col := Column(i + 1)
		ok, err := e.run(ctx, src, p)
		switch {
		case err != nil:
			out.Violated[i] = true
			out.Diagnostics = append(out.Diagnostics, domain.Diagnostic{
				Family:  domain.FamilyHard,
				Rule:    col,
				Message: domain.NewEvaluationError(q.UID, col, err).Error(),
			})
		case !ok:
			out.Violated[i] = true
			out.Diagnostics = append(out.Diagnostics, domain.Diagnostic{
				Family:  domain.FamilyHard,
				Rule:    col,
				Message: "constraint not satisfied: " + summarize(src),
			})
		}
	}
	return out
}

// Check evaluates a single program and reports whether it holds.
func (e *Evaluator) Check(ctx context.Context, src string, p *domain.Plan) (bool, error) {
	return e.run(ctx, src, p)
}

func (e *Evaluator) run(ctx context.Context, src string, p *domain.Plan) (bool, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		e.opts.Metrics.RecordLatency(ports.OpProgram, time.Since(start), map[string]string{
			"family": domain.FamilyHard,
			"status": status,
		})
	}()

	prog, err := e.cache.Compile(src)
	if err != nil {
		status = "syntax_error"
		return false, err
	}
	v, err := prog.Run(ctx, e.reg, concept.Bindings(p), e.opts.Limits)
	if err != nil {
		status = "runtime_error"
		return false, err
	}
	return expr.Truthy(v), nil
}

// summarize returns the first line of a program for diagnostics.
func summarize(src string) string {
	const limit = 80
	src = strings.TrimSpace(src)
	for i, r := range src {
		if r == '\n' {
			src = src[:i] + " ..."
			break
		}
	}
	if len(src) > limit {
		src = src[:limit] + "..."
	}
	return src
}
