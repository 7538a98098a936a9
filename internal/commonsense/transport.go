package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Inner-city transport rule columns.
const (
	RuleTransportMode      = "transport_mode"
	RuleTransportDuration  = "transport_duration"
	RuleTransportCost      = "transport_cost"
	RuleTransportEndpoints = "transport_endpoints"
)

// TransportCheck verifies the explicit inner-city legs attached to
// activities: a known mode, a duration the mode can achieve, correct
// fares, and a chain of legs that connects the previous activity to the
// current one.
type TransportCheck struct{ base }

var _ ports.Check = (*TransportCheck)(nil)

// Name implements ports.Check.
func (*TransportCheck) Name() string { return "transport" }

// Rules implements ports.Check.
func (*TransportCheck) Rules() []string {
	return []string{RuleTransportMode, RuleTransportDuration, RuleTransportCost, RuleTransportEndpoints}
}

// Check implements ports.Check.
func (c *TransportCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	res := domain.NewCheckResult()
	n := people(q, p)
	where := city(q, p)

	err := walk(p, func(s step) error {
		legs := s.act.Transports
		if len(legs) == 0 {
			return nil
		}
		for i, leg := range legs {
			if err := c.checkLeg(ctx, where, s.ref, i, leg, n, &res); err != nil {
				return err
			}
		}

		if s.prev != nil && !domain.SameName(legs[0].Start, s.prev.Arrival()) {
			res.Violate(c.Name(), RuleTransportEndpoints, fmt.Sprintf("%s: first leg starts at %q, previous activity ends at %q",
				s.ref, legs[0].Start, s.prev.Arrival()))
		}
		for i := 1; i < len(legs); i++ {
			if !domain.SameName(legs[i-1].End, legs[i].Start) {
				res.Violate(c.Name(), RuleTransportEndpoints, fmt.Sprintf("%s: leg %d ends at %q but leg %d starts at %q",
					s.ref, i, legs[i-1].End, i+1, legs[i].Start))
			}
		}
		if last := legs[len(legs)-1]; !domain.SameName(last.End, s.act.Departure()) {
			res.Violate(c.Name(), RuleTransportEndpoints, fmt.Sprintf("%s: last leg ends at %q, activity is at %q",
				s.ref, last.End, s.act.Departure()))
		}
		return nil
	})
	return res, err
}

func (c *TransportCheck) checkLeg(ctx context.Context, where string, ref domain.ActivityRef, i int, leg domain.Transport, n int, res *domain.CheckResult) error {
	label := fmt.Sprintf("%s leg %d", ref, i+1)
	speed, ok := c.cfg.speed(leg.Mode)
	if !ok {
		res.Violate(c.Name(), RuleTransportMode, fmt.Sprintf("%s: unknown mode %q", label, leg.Mode))
	}

	if leg.EndTime < leg.StartTime {
		res.Violate(c.Name(), RuleTransportDuration, fmt.Sprintf("%s: ends at %s before it starts at %s", label, leg.EndTime, leg.StartTime))
	} else if ok {
		dist := leg.Distance
		if dist <= 0 {
			d, err := c.geoDistance(ctx, where, leg.Start, leg.End)
			if err != nil {
				return err
			}
			dist = d
		}
		need := dist / speed * 60
		if float64(leg.Duration()+c.cfg.SlackMinutes) < need {
			res.Violate(c.Name(), RuleTransportDuration, fmt.Sprintf("%s: %.1f km by %s takes %d min, needs %.0f",
				label, dist, leg.Mode, leg.Duration(), need))
		}
	}

	switch leg.Mode {
	case domain.ModeWalk:
		if !c.priceEq(leg.Cost, 0) {
			res.Violate(c.Name(), RuleTransportCost, fmt.Sprintf("%s: walking costs nothing, plan says %.2f", label, leg.Cost))
		}
	case domain.ModeMetro:
		if leg.Tickets != n {
			res.Violate(c.Name(), RuleTransportCost, fmt.Sprintf("%s: %d metro tickets for %d travellers", label, leg.Tickets, n))
		}
		if !c.priceEq(leg.Cost, leg.Price*float64(leg.Tickets)) {
			res.Violate(c.Name(), RuleTransportCost, fmt.Sprintf("%s: cost %.2f is not price times tickets", label, leg.Cost))
		}
	case domain.ModeTaxi:
		cars := (n + c.cfg.TaxiCapacity - 1) / c.cfg.TaxiCapacity
		if leg.Cars != cars {
			res.Violate(c.Name(), RuleTransportCost, fmt.Sprintf("%s: %d taxis for %d travellers, need %d", label, leg.Cars, n, cars))
		}
		if !c.priceEq(leg.Cost, leg.Price*float64(leg.Cars)) {
			res.Violate(c.Name(), RuleTransportCost, fmt.Sprintf("%s: cost %.2f is not price times cars", label, leg.Cost))
		}
	}
	return nil
}

// geoDistance is the straight-line distance between two named places, or
// 0 when either is unknown.
func (b base) geoDistance(ctx context.Context, where, from, to string) (float64, error) {
	a, err := b.kb.Locate(ctx, where, from)
	if missing(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	z, err := b.kb.Locate(ctx, where, to)
	if missing(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return a.DistanceKm(z), nil
}
