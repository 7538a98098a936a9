// Package commonsense implements the seven feasibility checks every plan
// must pass regardless of what its query asks for: intercity transport,
// attractions, hotels, restaurants, inner-city transport, time and space.
//
// Each check declares its rule columns up front and reports the subset it
// found violated. Checks are stateless and safe for concurrent use; they
// only read the plan and the knowledge base.
package commonsense

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// base carries what every check needs.
type base struct {
	kb  ports.KnowledgeBase
	cfg Config
}

func newBase(kb ports.KnowledgeBase, cfg Config) (base, error) {
	if kb == nil {
		return base{}, fmt.Errorf("%w: commonsense checks need a knowledge base", domain.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return base{}, err
	}
	return base{kb: kb, cfg: cfg}, nil
}

// New builds the seven checks in their canonical order.
func New(kb ports.KnowledgeBase, cfg Config) ([]ports.Check, error) {
	b, err := newBase(kb, cfg)
	if err != nil {
		return nil, err
	}
	return []ports.Check{
		&IntercityCheck{base: b},
		&AttractionCheck{base: b},
		&HotelCheck{base: b},
		&RestaurantCheck{base: b},
		&TransportCheck{base: b},
		&TimeCheck{base: b},
		&SpaceCheck{base: b},
	}, nil
}

// Columns returns every rule column of checks in order.
func Columns(checks []ports.Check) []string {
	var out []string
	for _, c := range checks {
		out = append(out, c.Rules()...)
	}
	return out
}

func (b base) priceEq(x, y float64) bool { return math.Abs(x-y) <= b.cfg.PriceTolerance }

// people is the party size the plan must serve. The query is
// authoritative; the plan's own figure is used when the query has none.
func people(q domain.Query, p *domain.Plan) int {
	if q.PeopleNumber > 0 {
		return q.PeopleNumber
	}
	return p.PeopleNumber
}

// city is the destination whose knowledge base venues are looked up in.
func city(q domain.Query, p *domain.Plan) string {
	if q.TargetCity != "" {
		return q.TargetCity
	}
	return p.TargetCity
}

// missing reports whether err is a lookup miss. Any other non-nil error
// is a store failure the check must return.
func missing(err error) bool { return errors.Is(err, domain.ErrNotFound) }

// suggest returns a " (did you mean ...?)" hint for an unknown venue, or
// "" when nothing is close enough.
func (b base) suggest(ctx context.Context, city string, kind domain.POIKind, name string) string {
	if b.cfg.SuggestionDistance == 0 {
		return ""
	}
	names, err := b.kb.Names(ctx, city, kind)
	if err != nil {
		return ""
	}
	key := domain.NormalizeName(name)
	best, bestDist := "", b.cfg.SuggestionDistance+1
	for _, n := range names {
		if d := levenshtein.ComputeDistance(key, domain.NormalizeName(n)); d < bestDist {
			best, bestDist = n, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

// step is one activity visited by walk together with the activity before
// it, which may lie on the previous day.
type step struct {
	ref     domain.ActivityRef
	act     domain.Activity
	prev    *domain.Activity
	sameDay bool
}

// walk visits every activity in schedule order and stops at the first
// error fn returns.
func walk(p *domain.Plan, fn func(s step) error) error {
	var prev *domain.Activity
	for d, day := range p.Itinerary {
		for i := range day.Activities {
			err := fn(step{
				ref:     domain.ActivityRef{Day: d + 1, Index: i},
				act:     day.Activities[i],
				prev:    prev,
				sameDay: i > 0,
			})
			if err != nil {
				return err
			}
			prev = &day.Activities[i]
		}
	}
	return nil
}
