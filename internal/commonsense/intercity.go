package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Intercity rule columns.
const (
	RuleIntercityExists    = "intercity_exists"
	RuleIntercityRoute     = "intercity_route"
	RuleIntercitySchedule  = "intercity_schedule"
	RuleIntercityCost      = "intercity_cost"
	RuleIntercityRoundTrip = "intercity_round_trip"
)

// IntercityCheck verifies train and flight legs against the timetable and
// that the trip leaves from and returns to the start city.
type IntercityCheck struct{ base }

var _ ports.Check = (*IntercityCheck)(nil)

// Name implements ports.Check.
func (*IntercityCheck) Name() string { return "intercity" }

// Rules implements ports.Check.
func (*IntercityCheck) Rules() []string {
	return []string{
		RuleIntercityExists,
		RuleIntercityRoute,
		RuleIntercitySchedule,
		RuleIntercityCost,
		RuleIntercityRoundTrip,
	}
}

// Check implements ports.Check.
func (c *IntercityCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	res := domain.NewCheckResult()
	n := people(q, p)
	found := make(map[string]domain.IntercityTransport)

	err := walk(p, func(s step) error {
		a := s.act
		if !a.Type.IsIntercity() {
			return nil
		}
		id := a.TransportID()
		if id == "" {
			res.Violate(c.Name(), RuleIntercityExists, fmt.Sprintf("%s: %s has no transport id", s.ref, a.Type))
			return nil
		}
		t, err := c.kb.IntercityTransport(ctx, id)
		if missing(err) {
			res.Violate(c.Name(), RuleIntercityExists, fmt.Sprintf("%s: no %s %q in the timetable", s.ref, a.Type, id))
			return nil
		}
		if err != nil {
			return err
		}
		found[id] = t

		if t.Kind != "" && t.Kind != a.Type {
			res.Violate(c.Name(), RuleIntercityRoute, fmt.Sprintf("%s: %s is a %s, not a %s", s.ref, id, t.Kind, a.Type))
		}
		if !domain.SameName(a.Start, t.Origin) || !domain.SameName(a.End, t.Destination) {
			res.Violate(c.Name(), RuleIntercityRoute, fmt.Sprintf("%s: %s runs %s to %s, plan says %s to %s",
				s.ref, id, t.Origin, t.Destination, a.Start, a.End))
		}
		if a.StartTime != t.Depart || a.EndTime != t.Arrive {
			res.Violate(c.Name(), RuleIntercitySchedule, fmt.Sprintf("%s: %s runs %s-%s, plan says %s-%s",
				s.ref, id, t.Depart, t.Arrive, a.StartTime, a.EndTime))
		}
		if !c.priceEq(a.Price, t.Price) {
			res.Violate(c.Name(), RuleIntercityCost, fmt.Sprintf("%s: %s costs %.2f, plan says %.2f", s.ref, id, t.Price, a.Price))
		}
		if a.Tickets != n {
			res.Violate(c.Name(), RuleIntercityCost, fmt.Sprintf("%s: %d tickets for %d travellers", s.ref, a.Tickets, n))
		}
		if !c.priceEq(a.Cost, a.Price*float64(a.Tickets)) {
			res.Violate(c.Name(), RuleIntercityCost, fmt.Sprintf("%s: cost %.2f is not price times tickets", s.ref, a.Cost))
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	c.checkRoundTrip(q, p, found, &res)
	return res, nil
}

// checkRoundTrip requires the first activity to leave the start city for
// the target city and the last one to bring the travellers back. Legs
// missing from the timetable were already reported and are only checked
// for being intercity.
func (c *IntercityCheck) checkRoundTrip(q domain.Query, p *domain.Plan, found map[string]domain.IntercityTransport, res *domain.CheckResult) {
	acts := p.AllActivities()
	if len(acts) == 0 {
		res.Violate(c.Name(), RuleIntercityRoundTrip, "plan has no activities")
		return
	}
	from, to := q.StartCity, city(q, p)
	if from == "" {
		from = p.StartCity
	}

	first, last := acts[0], acts[len(acts)-1]
	if !first.Type.IsIntercity() {
		res.Violate(c.Name(), RuleIntercityRoundTrip, "trip does not start with an intercity leg")
	} else if t, ok := found[first.TransportID()]; ok && t.OriginCity != "" {
		if !domain.SameName(t.OriginCity, from) || !domain.SameName(t.DestCity, to) {
			res.Violate(c.Name(), RuleIntercityRoundTrip, fmt.Sprintf("outbound %s runs %s to %s, trip is %s to %s",
				t.ID, t.OriginCity, t.DestCity, from, to))
		}
	}
	if !last.Type.IsIntercity() {
		res.Violate(c.Name(), RuleIntercityRoundTrip, "trip does not end with an intercity leg")
	} else if t, ok := found[last.TransportID()]; ok && t.OriginCity != "" {
		if !domain.SameName(t.OriginCity, to) || !domain.SameName(t.DestCity, from) {
			res.Violate(c.Name(), RuleIntercityRoundTrip, fmt.Sprintf("return %s runs %s to %s, trip is %s to %s",
				t.ID, t.OriginCity, t.DestCity, to, from))
		}
	}
}
