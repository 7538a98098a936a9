package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Evaluation is the commonsense outcome of one query.
type Evaluation struct {
	// Violated holds every violated rule column.
	Violated map[string]bool

	// Diagnostics explain the violations in check order.
	Diagnostics []domain.Diagnostic

	// Errors maps the name of each check that could not finish to its
	// error. Such a check contributes no violations.
	Errors map[string]error
}

// Complete reports whether every check ran to the end.
func (e Evaluation) Complete() bool { return len(e.Errors) == 0 }

// Passed reports whether every check ran and none found a violation.
func (e Evaluation) Passed() bool { return e.Complete() && len(e.Violated) == 0 }

// Runner runs a fixed list of checks against one query at a time. It is
// safe for concurrent use when its checks are.
type Runner struct {
	checks []ports.Check
	rules  []string
	owner  map[string]string
}

// NewRunner validates that no two checks share a rule column.
func NewRunner(checks []ports.Check) (*Runner, error) {
	r := &Runner{owner: make(map[string]string)}
	for _, c := range checks {
		if c == nil {
			return nil, fmt.Errorf("%w: nil check", domain.ErrInvalidConfiguration)
		}
		for _, rule := range c.Rules() {
			if other, dup := r.owner[rule]; dup {
				return nil, fmt.Errorf("%w: rule %q declared by %s and %s", domain.ErrInvalidConfiguration, rule, other, c.Name())
			}
			r.owner[rule] = c.Name()
			r.rules = append(r.rules, rule)
		}
		r.checks = append(r.checks, c)
	}
	return r, nil
}

// Rules returns every rule column in check order.
func (r *Runner) Rules() []string { return append([]string(nil), r.rules...) }

// Evaluate runs every check. A check that errors or panics is recorded in
// Errors and its partial result is dropped; the remaining checks still run.
func (r *Runner) Evaluate(ctx context.Context, q domain.Query, p *domain.Plan) Evaluation {
	ev := Evaluation{Violated: make(map[string]bool)}
	for _, c := range r.checks {
		res, err := runCheck(ctx, c, q, p)
		if err == nil {
			for rule := range res.Violated {
				if r.owner[rule] != c.Name() {
					err = fmt.Errorf("%w: %s reported %q", domain.ErrUnknownRule, c.Name(), rule)
					break
				}
			}
		}
		if err != nil {
			if ev.Errors == nil {
				ev.Errors = make(map[string]error)
			}
			ev.Errors[c.Name()] = domain.NewEvaluationError(q.UID, c.Name(), err)
			continue
		}
		for rule := range res.Violated {
			ev.Violated[rule] = true
		}
		ev.Diagnostics = append(ev.Diagnostics, res.Diagnostics...)
	}
	return ev
}

func runCheck(ctx context.Context, c ports.Check, q domain.Query, p *domain.Plan) (res domain.CheckResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("check panicked: %v", v)
		}
	}()
	return c.Check(ctx, q, p)
}
