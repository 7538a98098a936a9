package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Restaurant rule columns.
const (
	RuleRestaurantExists     = "restaurant_exists"
	RuleRestaurantMealWindow = "restaurant_meal_window"
	RuleRestaurantCost       = "restaurant_cost"
	RuleRestaurantUnique     = "restaurant_unique"
)

// RestaurantCheck verifies meals: the restaurant exists, the meal starts
// inside its conventional window, everyone is charged for and no
// restaurant is used twice.
type RestaurantCheck struct{ base }

var _ ports.Check = (*RestaurantCheck)(nil)

// Name implements ports.Check.
func (*RestaurantCheck) Name() string { return "restaurants" }

// Rules implements ports.Check.
func (*RestaurantCheck) Rules() []string {
	return []string{RuleRestaurantExists, RuleRestaurantMealWindow, RuleRestaurantCost, RuleRestaurantUnique}
}

// Check implements ports.Check.
func (c *RestaurantCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	res := domain.NewCheckResult()
	n := people(q, p)
	where := city(q, p)
	seen := make(map[string]domain.ActivityRef)

	err := walk(p, func(s step) error {
		a := s.act
		if !a.Type.IsMeal() {
			return nil
		}
		if w := MealWindows[a.Type]; a.StartTime < w.From || a.StartTime > w.To {
			res.Violate(c.Name(), RuleRestaurantMealWindow, fmt.Sprintf("%s: %s at %s is outside %s-%s",
				s.ref, a.Type, a.StartTime, w.From, w.To))
		}
		key := domain.NormalizeName(a.Position)
		if first, ok := seen[key]; ok {
			res.Violate(c.Name(), RuleRestaurantUnique, fmt.Sprintf("%s: %q already used at %s", s.ref, a.Position, first))
		} else {
			seen[key] = s.ref
		}

		r, err := c.kb.Restaurant(ctx, where, a.Position)
		if missing(err) {
			res.Violate(c.Name(), RuleRestaurantExists, fmt.Sprintf("%s: no restaurant %q in %s%s",
				s.ref, a.Position, where, c.suggest(ctx, where, domain.KindRestaurant, a.Position)))
			return nil
		}
		if err != nil {
			return err
		}

		if !c.priceEq(a.Price, r.Price) {
			res.Violate(c.Name(), RuleRestaurantCost, fmt.Sprintf("%s: %s costs %.2f a head, plan says %.2f", s.ref, r.Name, r.Price, a.Price))
		}
		if !c.priceEq(a.Cost, a.Price*float64(n)) {
			res.Violate(c.Name(), RuleRestaurantCost, fmt.Sprintf("%s: cost %.2f is not price times %d travellers", s.ref, a.Cost, n))
		}
		return nil
	})
	return res, err
}
