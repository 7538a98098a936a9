// Package concept provides the domain function library constraint and
// preference programs call. Every function is a pure read of the plan or
// the knowledge base; none of them can mutate what they are given.
//
// The library is organised in four groups:
//   - plan-level facts such as day_count and total_cost
//   - activity accessors such as activity_type and activity_price
//   - inner-city and intercity transport summaries
//   - knowledge-base lookups such as attraction_type and poi_distance
package concept

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// ErrNoKnowledgeBase is returned by knowledge-base backed functions when
// the library was built without one.
var ErrNoKnowledgeBase = errors.New("no knowledge base configured")

// PlanBinding is the name the plan under evaluation is bound to.
const PlanBinding = "plan"

// Library builds the function table for one knowledge base.
type Library struct {
	kb ports.KnowledgeBase
}

// NewLibrary returns a library backed by kb. kb may be nil, in which case
// knowledge-base functions fail when called.
func NewLibrary(kb ports.KnowledgeBase) *Library { return &Library{kb: kb} }

// NewRegistry builds the frozen registry programs run against.
func NewRegistry(kb ports.KnowledgeBase) (*expr.Registry, error) {
	return expr.NewRegistry(NewLibrary(kb).Funcs())
}

// Bindings returns the read-only names a program sees for plan.
func Bindings(plan *domain.Plan) map[string]expr.Value {
	return map[string]expr.Value{PlanBinding: plan}
}

// Funcs returns the function table. The returned map is a fresh copy.
//
// Usage in programs:
//
//	for activity in allactivities(plan):
//	    if activity_type(activity) == 'attraction':
//	        count += 1
func (l *Library) Funcs() map[string]expr.Func {
	return map[string]expr.Func{
		// day_count returns the number of days in the itinerary.
		// Program usage: day_count(plan) == 3
		"day_count": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			p, err := onePlan("day_count", args)
			if err != nil {
				return nil, err
			}
			return int64(p.DayCount()), nil
		},

		"people_count": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			p, err := onePlan("people_count", args)
			if err != nil {
				return nil, err
			}
			return int64(p.PeopleNumber), nil
		},

		"start_city": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			p, err := onePlan("start_city", args)
			if err != nil {
				return nil, err
			}
			return p.StartCity, nil
		},

		"target_city": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			p, err := onePlan("target_city", args)
			if err != nil {
				return nil, err
			}
			return p.TargetCity, nil
		},

		// allactivities flattens the itinerary in schedule order.
		// Program usage: for activity in allactivities(plan):
		"allactivities": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			p, err := onePlan("allactivities", args)
			if err != nil {
				return nil, err
			}
			return activityList(p.AllActivities()), nil
		},

		"allactivities_count": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			p, err := onePlan("allactivities_count", args)
			if err != nil {
				return nil, err
			}
			return int64(len(p.AllActivities())), nil
		},

		// dailyactivities returns the activities of one day, counted from 1.
		// A day outside the itinerary yields an empty list.
		// Program usage: dailyactivities(plan, 2)
		"dailyactivities": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			if err := wantArgs("dailyactivities", args, 2); err != nil {
				return nil, err
			}
			p, err := planArg("dailyactivities", args, 0)
			if err != nil {
				return nil, err
			}
			day, err := intArg("dailyactivities", args, 1)
			if err != nil {
				return nil, err
			}
			if day < 1 || day > p.DayCount() {
				return expr.NewList(), nil
			}
			return activityList(p.Itinerary[day-1].Activities), nil
		},

		"activity_type": activityField("activity_type", func(a domain.Activity) expr.Value {
			return string(a.Type)
		}),

		// activity_position returns the venue name. Intercity legs have no
		// single position and return their destination station.
		"activity_position": activityField("activity_position", func(a domain.Activity) expr.Value {
			if a.Type.IsIntercity() {
				return a.End
			}
			return a.Position
		}),

		"activity_price": activityField("activity_price", func(a domain.Activity) expr.Value {
			return a.Price
		}),

		"activity_cost": activityField("activity_cost", func(a domain.Activity) expr.Value {
			return a.Cost
		}),

		"activity_tickets": activityField("activity_tickets", func(a domain.Activity) expr.Value {
			return int64(a.Tickets)
		}),

		"activity_start_time": activityField("activity_start_time", func(a domain.Activity) expr.Value {
			return a.StartTime.String()
		}),

		"activity_end_time": activityField("activity_end_time", func(a domain.Activity) expr.Value {
			return a.EndTime.String()
		}),

		// activity_time returns the scheduled length in minutes.
		"activity_time": activityField("activity_time", func(a domain.Activity) expr.Value {
			return int64(a.EndTime - a.StartTime)
		}),

		// activity_transports returns the inner-city legs taken to reach
		// the activity. An activity reached without moving yields [].
		"activity_transports": activityField("activity_transports", func(a domain.Activity) expr.Value {
			return transportList(a.Transports)
		}),

		// innercity_transport_time returns the total minutes spent on legs.
		// Program usage: innercity_transport_time(activity_transports(a)) <= 60
		"innercity_transport_time": transportSummary("innercity_transport_time", func(ts []domain.Transport) expr.Value {
			total := int64(0)
			for _, t := range ts {
				total += int64(t.Duration())
			}
			return total
		}),

		"innercity_transport_cost": transportSummary("innercity_transport_cost", func(ts []domain.Transport) expr.Value {
			total := 0.0
			for _, t := range ts {
				total += t.Cost
			}
			return total
		}),

		"innercity_transport_distance": transportSummary("innercity_transport_distance", func(ts []domain.Transport) expr.Value {
			total := 0.0
			for _, t := range ts {
				total += t.Distance
			}
			return total
		}),

		// innercity_transport_type returns the dominant mode of a leg list:
		// taxi over metro over walk. An empty list yields "".
		"innercity_transport_type": transportSummary("innercity_transport_type", func(ts []domain.Transport) expr.Value {
			return string(dominantMode(ts))
		}),

		// intercity_transport_type returns "train" or "airplane" for an
		// intercity leg and "" for anything else.
		"intercity_transport_type": activityField("intercity_transport_type", func(a domain.Activity) expr.Value {
			if !a.Type.IsIntercity() {
				return ""
			}
			return string(a.Type)
		}),

		"intercity_transport_origin": activityField("intercity_transport_origin", func(a domain.Activity) expr.Value {
			return a.Start
		}),

		"intercity_transport_destination": activityField("intercity_transport_destination", func(a domain.Activity) expr.Value {
			return a.End
		}),

		"room_count": activityField("room_count", func(a domain.Activity) expr.Value {
			return int64(a.Rooms)
		}),

		"room_type": activityField("room_type", func(a domain.Activity) expr.Value {
			return int64(a.RoomType)
		}),

		// total_cost sums every activity cost and every inner-city leg cost.
		// Program usage: total_cost(plan) <= 5000
		"total_cost": func(_ context.Context, args []expr.Value) (expr.Value, error) {
			p, err := onePlan("total_cost", args)
			if err != nil {
				return nil, err
			}
			return TotalCost(p), nil
		},

		// attraction_type returns the category of an attraction activity.
		// Program usage: attraction_type(activity, target_city(plan)) == '博物馆'
		"attraction_type": l.venueLookup("attraction_type", func(ctx context.Context, city, name string) (string, error) {
			a, err := l.kb.Attraction(ctx, city, name)
			return a.Type, err
		}),

		"restaurant_type": l.venueLookup("restaurant_type", func(ctx context.Context, city, name string) (string, error) {
			r, err := l.kb.Restaurant(ctx, city, name)
			return r.Cuisine, err
		}),

		"hotel_type": l.venueLookup("hotel_type", func(ctx context.Context, city, name string) (string, error) {
			h, err := l.kb.Hotel(ctx, city, name)
			return h.Type, err
		}),

		// poi_distance returns the great-circle distance in km between two
		// named places of a city.
		// Program usage: poi_distance(target_city(plan), a, b) < 5
		"poi_distance": func(ctx context.Context, args []expr.Value) (expr.Value, error) {
			if err := wantArgs("poi_distance", args, 3); err != nil {
				return nil, err
			}
			if l.kb == nil {
				return nil, ErrNoKnowledgeBase
			}
			var names [3]string
			for i := range names {
				s, err := stringArg("poi_distance", args, i)
				if err != nil {
					return nil, err
				}
				names[i] = s
			}
			from, err := l.kb.Locate(ctx, names[0], names[1])
			if err != nil {
				return nil, err
			}
			to, err := l.kb.Locate(ctx, names[0], names[2])
			if err != nil {
				return nil, err
			}
			return from.DistanceKm(to), nil
		},
	}
}

func onePlan(name string, args []expr.Value) (*domain.Plan, error) {
	if err := wantArgs(name, args, 1); err != nil {
		return nil, err
	}
	return planArg(name, args, 0)
}

func activityField(name string, get func(domain.Activity) expr.Value) expr.Func {
	return func(_ context.Context, args []expr.Value) (expr.Value, error) {
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		a, err := activityArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		return get(a), nil
	}
}

func transportSummary(name string, sum func([]domain.Transport) expr.Value) expr.Func {
	return func(_ context.Context, args []expr.Value) (expr.Value, error) {
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		ts, err := transportsArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		return sum(ts), nil
	}
}

// venueLookup adapts a knowledge-base lookup keyed by an activity's
// position into a program function taking (activity, city).
func (l *Library) venueLookup(name string, lookup func(ctx context.Context, city, venue string) (string, error)) expr.Func {
	return func(ctx context.Context, args []expr.Value) (expr.Value, error) {
		if err := wantArgs(name, args, 2); err != nil {
			return nil, err
		}
		a, err := activityArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		city, err := stringArg(name, args, 1)
		if err != nil {
			return nil, err
		}
		if l.kb == nil {
			return nil, ErrNoKnowledgeBase
		}
		v, err := lookup(ctx, city, a.Position)
		if err != nil {
			return nil, fmt.Errorf("%s(%q): %w", name, a.Position, err)
		}
		return v, nil
	}
}

// TotalCost sums every activity cost and every inner-city leg cost.
func TotalCost(p *domain.Plan) float64 {
	total := 0.0
	for _, a := range p.AllActivities() {
		total += a.Cost
		for _, t := range a.Transports {
			total += t.Cost
		}
	}
	return total
}

func dominantMode(ts []domain.Transport) domain.TransportMode {
	var best domain.TransportMode
	rank := map[domain.TransportMode]int{domain.ModeWalk: 1, domain.ModeMetro: 2, domain.ModeTaxi: 3}
	for _, t := range ts {
		if rank[t.Mode] > rank[best] {
			best = t.Mode
		}
	}
	return best
}
