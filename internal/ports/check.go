// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

// Check is one commonsense feasibility check. A check owns a fixed set of
// rule columns and reports which of them a plan violates.
// Checks must be stateless and safe for concurrent use.
type Check interface {
	// Name returns a unique identifier for this check.
	// The name is used for logging, diagnostics and metrics labels.
	Name() string

	// Rules returns every rule column the check can report, in a stable
	// order. The engine declares these columns for every row up front.
	Rules() []string

	// Check evaluates the plan for one query. Violated rules in the result
	// must be a subset of Rules.
	//
	// An error means the check could not be evaluated at all. The engine
	// records no violation for the row and marks it as incomplete, so the
	// query cannot pass.
	Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error)
}

// Translator supplies hard-constraint programs for a query whose oracle
// translation was not provided. Translation happens upstream; a translator
// only looks the result up.
type Translator interface {
	// Translate returns the program texts for the query's hard constraints.
	// A query with nothing to translate yields an empty slice and no error.
	Translate(ctx context.Context, q domain.Query) ([]string, error)
}
