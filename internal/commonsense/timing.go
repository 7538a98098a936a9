package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Time rule columns.
const (
	RuleTimeOrder        = "time_order"
	RuleTimeOverlap      = "time_overlap"
	RuleTimeOpeningHours = "time_opening_hours"
	RuleTimeDayCount     = "time_day_count"
)

// TimeCheck verifies the schedule: every interval runs forward, activities
// of a day are chronological and do not overlap each other or the legs
// between them, venues are open, and the plan has the requested number of
// days.
type TimeCheck struct{ base }

var _ ports.Check = (*TimeCheck)(nil)

// Name implements ports.Check.
func (*TimeCheck) Name() string { return "time" }

// Rules implements ports.Check.
func (*TimeCheck) Rules() []string {
	return []string{RuleTimeOrder, RuleTimeOverlap, RuleTimeOpeningHours, RuleTimeDayCount}
}

// Check implements ports.Check.
func (c *TimeCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	res := domain.NewCheckResult()
	where := city(q, p)

	if q.Days > 0 && p.DayCount() != q.Days {
		res.Violate(c.Name(), RuleTimeDayCount, fmt.Sprintf("plan has %d days, query asks for %d", p.DayCount(), q.Days))
	}
	for i, d := range p.Itinerary {
		if d.Day != i+1 {
			res.Violate(c.Name(), RuleTimeDayCount, fmt.Sprintf("day %d is numbered %d", i+1, d.Day))
		}
	}

	err := walk(p, func(s step) error {
		a := s.act
		if a.EndTime < a.StartTime {
			res.Violate(c.Name(), RuleTimeOrder, fmt.Sprintf("%s: ends at %s before it starts at %s", s.ref, a.EndTime, a.StartTime))
		}
		for i, leg := range a.Transports {
			if leg.EndTime < leg.StartTime {
				res.Violate(c.Name(), RuleTimeOrder, fmt.Sprintf("%s leg %d: ends before it starts", s.ref, i+1))
			}
			if i > 0 && leg.StartTime < a.Transports[i-1].EndTime {
				res.Violate(c.Name(), RuleTimeOverlap, fmt.Sprintf("%s leg %d: starts before leg %d arrives", s.ref, i+1, i))
			}
		}
		if n := len(a.Transports); n > 0 && a.Transports[n-1].EndTime > a.StartTime {
			res.Violate(c.Name(), RuleTimeOverlap, fmt.Sprintf("%s: arrives at %s after the activity starts at %s",
				s.ref, a.Transports[n-1].EndTime, a.StartTime))
		}

		if s.sameDay {
			prev := s.prev
			if a.StartTime < prev.StartTime {
				res.Violate(c.Name(), RuleTimeOrder, fmt.Sprintf("%s: starts at %s, before the previous activity at %s",
					s.ref, a.StartTime, prev.StartTime))
			}
			if a.StartTime < prev.EndTime {
				res.Violate(c.Name(), RuleTimeOverlap, fmt.Sprintf("%s: starts at %s, previous activity ends at %s",
					s.ref, a.StartTime, prev.EndTime))
			}
			if len(a.Transports) > 0 && a.Transports[0].StartTime < prev.EndTime {
				res.Violate(c.Name(), RuleTimeOverlap, fmt.Sprintf("%s: leaves at %s, previous activity ends at %s",
					s.ref, a.Transports[0].StartTime, prev.EndTime))
			}
		}

		hours, ok, err := c.openingHours(ctx, where, a)
		if err != nil {
			return err
		}
		if ok && !hours.Covers(a.StartTime, a.EndTime) {
			res.Violate(c.Name(), RuleTimeOpeningHours, fmt.Sprintf("%s: %s is open %s-%s, plan says %s-%s",
				s.ref, a.Position, hours.Open, hours.Close, a.StartTime, a.EndTime))
		}
		return nil
	})
	return res, err
}

// openingHours looks up the window of an attraction or restaurant. Other
// activities and unknown venues report ok=false.
func (c *TimeCheck) openingHours(ctx context.Context, where string, a domain.Activity) (domain.OpeningHours, bool, error) {
	var (
		poi domain.POI
		err error
	)
	switch {
	case a.Type == domain.ActivityAttraction:
		var v domain.Attraction
		v, err = c.kb.Attraction(ctx, where, a.Position)
		poi = v.POI
	case a.Type.IsMeal():
		var r domain.Restaurant
		r, err = c.kb.Restaurant(ctx, where, a.Position)
		poi = r.POI
	default:
		return domain.OpeningHours{}, false, nil
	}
	if missing(err) {
		return domain.OpeningHours{}, false, nil
	}
	if err != nil {
		return domain.OpeningHours{}, false, err
	}
	return poi.Hours, true, nil
}
