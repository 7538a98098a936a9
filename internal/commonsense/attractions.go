package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Attraction rule columns.
const (
	RuleAttractionExists = "attraction_exists"
	RuleAttractionCost   = "attraction_cost"
	RuleAttractionUnique = "attraction_unique"
)

// AttractionCheck verifies that visited attractions exist, are charged at
// their ticket price and are not visited twice.
type AttractionCheck struct{ base }

var _ ports.Check = (*AttractionCheck)(nil)

// Name implements ports.Check.
func (*AttractionCheck) Name() string { return "attractions" }

// Rules implements ports.Check.
func (*AttractionCheck) Rules() []string {
	return []string{RuleAttractionExists, RuleAttractionCost, RuleAttractionUnique}
}

// Check implements ports.Check.
func (c *AttractionCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	res := domain.NewCheckResult()
	n := people(q, p)
	where := city(q, p)
	seen := make(map[string]domain.ActivityRef)

	err := walk(p, func(s step) error {
		a := s.act
		if a.Type != domain.ActivityAttraction {
			return nil
		}
		key := domain.NormalizeName(a.Position)
		if first, ok := seen[key]; ok {
			res.Violate(c.Name(), RuleAttractionUnique, fmt.Sprintf("%s: %q already visited at %s", s.ref, a.Position, first))
		} else {
			seen[key] = s.ref
		}

		v, err := c.kb.Attraction(ctx, where, a.Position)
		if missing(err) {
			res.Violate(c.Name(), RuleAttractionExists, fmt.Sprintf("%s: no attraction %q in %s%s",
				s.ref, a.Position, where, c.suggest(ctx, where, domain.KindAttraction, a.Position)))
			return nil
		}
		if err != nil {
			return err
		}

		if !c.priceEq(a.Price, v.Price) {
			res.Violate(c.Name(), RuleAttractionCost, fmt.Sprintf("%s: %s tickets cost %.2f, plan says %.2f", s.ref, v.Name, v.Price, a.Price))
		}
		if a.Tickets != n {
			res.Violate(c.Name(), RuleAttractionCost, fmt.Sprintf("%s: %d tickets for %d travellers", s.ref, a.Tickets, n))
		}
		if !c.priceEq(a.Cost, a.Price*float64(a.Tickets)) {
			res.Violate(c.Name(), RuleAttractionCost, fmt.Sprintf("%s: cost %.2f is not price times tickets", s.ref, a.Cost))
		}
		return nil
	})
	return res, err
}
