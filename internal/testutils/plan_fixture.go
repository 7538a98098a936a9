package testutils

import "github.com/ahrav/go-tripcheck/internal/domain"

// TripQuery is the query ValidPlan answers: two people, two days,
// Shanghai to Beijing.
func TripQuery(uid string) domain.Query {
	return domain.Query{
		UID:          uid,
		StartCity:    Shanghai,
		TargetCity:   Beijing,
		Days:         2,
		PeopleNumber: 2,
	}
}

// Leg builds an inner-city transport leg.
func Leg(mode domain.TransportMode, from, to, start, end string, distance, price float64) domain.Transport {
	return domain.Transport{
		Start:     from,
		End:       to,
		Mode:      mode,
		StartTime: domain.MustClock(start),
		EndTime:   domain.MustClock(end),
		Distance:  distance,
		Price:     price,
	}
}

// Taxi builds a one-car taxi leg.
func Taxi(from, to, start, end string, distance, price float64) domain.Transport {
	t := Leg(domain.ModeTaxi, from, to, start, end, distance, price)
	t.Cars = 1
	t.Cost = price
	return t
}

// Metro builds a metro leg for the given number of riders.
func Metro(from, to, start, end string, distance, price float64, riders int) domain.Transport {
	t := Leg(domain.ModeMetro, from, to, start, end, distance, price)
	t.Tickets = riders
	t.Cost = price * float64(riders)
	return t
}

// Walk builds a free walking leg.
func Walk(from, to, start, end string, distance float64) domain.Transport {
	return Leg(domain.ModeWalk, from, to, start, end, distance, 0)
}

// Visit builds a ticketed attraction visit.
func Visit(name, start, end string, price float64, people int, legs ...domain.Transport) domain.Activity {
	return domain.Activity{
		Type:       domain.ActivityAttraction,
		Position:   name,
		StartTime:  domain.MustClock(start),
		EndTime:    domain.MustClock(end),
		Price:      price,
		Tickets:    people,
		Cost:       price * float64(people),
		Transports: legs,
	}
}

// Meal builds a restaurant activity priced per person.
func Meal(kind domain.ActivityType, name, start, end string, price float64, people int, legs ...domain.Transport) domain.Activity {
	return domain.Activity{
		Type:       kind,
		Position:   name,
		StartTime:  domain.MustClock(start),
		EndTime:    domain.MustClock(end),
		Price:      price,
		Cost:       price * float64(people),
		Transports: legs,
	}
}

// Stay builds an accommodation activity.
func Stay(name, start, end string, price float64, rooms, roomType int, legs ...domain.Transport) domain.Activity {
	return domain.Activity{
		Type:       domain.ActivityAccommodation,
		Position:   name,
		StartTime:  domain.MustClock(start),
		EndTime:    domain.MustClock(end),
		Price:      price,
		Rooms:      rooms,
		RoomType:   roomType,
		Cost:       price * float64(rooms),
		Transports: legs,
	}
}

// Train builds an intercity train leg.
func Train(id, from, to, start, end string, price float64, people int, legs ...domain.Transport) domain.Activity {
	return domain.Activity{
		Type:       domain.ActivityTrain,
		Start:      from,
		End:        to,
		TrainID:    id,
		StartTime:  domain.MustClock(start),
		EndTime:    domain.MustClock(end),
		Price:      price,
		Tickets:    people,
		Cost:       price * float64(people),
		Transports: legs,
	}
}

// ValidPlan returns a fresh plan for TripQuery that violates no
// commonsense rule against TripKB. It has two attractions, four meals and
// eight activities reached by transport totalling 149 minutes.
func ValidPlan() *domain.Plan {
	const people = 2
	return &domain.Plan{
		PeopleNumber: people,
		StartCity:    Shanghai,
		TargetCity:   Beijing,
		Itinerary: []domain.Day{
			{Day: 1, Activities: []domain.Activity{
				Train("G2", "Shanghai Hongqiao Station", "Beijing South Station", "07:00", "11:30", 550, people),
				Meal(domain.ActivityLunch, "Quanjude", "12:00", "13:00", 200, people,
					Taxi("Beijing South Station", "Quanjude", "11:40", "11:55", 4.0, 20)),
				Visit("Forbidden City", "13:30", "16:30", 60, people,
					Walk("Quanjude", "Forbidden City", "13:02", "13:28", 1.9)),
				Meal(domain.ActivityDinner, "Siji Minfu", "17:30", "18:30", 180, people,
					Walk("Forbidden City", "Siji Minfu", "16:35", "16:50", 0.5)),
				Stay("Beijing Hotel", "19:00", "24:00", 800, 1, 2,
					Walk("Siji Minfu", "Beijing Hotel", "18:35", "18:55", 1.1)),
			}},
			{Day: 2, Activities: []domain.Activity{
				Meal(domain.ActivityBreakfast, "Yonghe King", "08:00", "08:30", 25, people,
					Walk("Beijing Hotel", "Yonghe King", "07:50", "07:58", 0.5)),
				Visit("Temple of Heaven", "09:00", "11:00", 15, people,
					Metro("Yonghe King", "Temple of Heaven", "08:35", "08:55", 3.5, 3, people)),
				Meal(domain.ActivityLunch, "Din Tai Fung", "11:30", "12:30", 150, people,
					Taxi("Temple of Heaven", "Din Tai Fung", "11:05", "11:20", 4.0, 18)),
				Train("G5", "Beijing South Station", "Shanghai Hongqiao Station", "14:00", "18:30", 550, people,
					Taxi("Din Tai Fung", "Beijing South Station", "12:40", "13:10", 6.0, 30)),
			}},
		},
	}
}

// ValidPlanTotalCost is the sum of every activity and leg cost of
// ValidPlan.
const ValidPlanTotalCost = 4334.0

// RoutinePlan returns a plan of days days, each with one attraction and
// three meals and no transport legs.
func RoutinePlan(days int) *domain.Plan {
	p := &domain.Plan{PeopleNumber: 1, StartCity: Shanghai, TargetCity: Beijing}
	for d := 1; d <= days; d++ {
		p.Itinerary = append(p.Itinerary, domain.Day{Day: d, Activities: []domain.Activity{
			Meal(domain.ActivityBreakfast, "Yonghe King", "08:00", "08:30", 25, 1),
			Visit("Temple of Heaven", "09:00", "11:00", 15, 1),
			Meal(domain.ActivityLunch, "Din Tai Fung", "11:30", "12:30", 150, 1),
			Meal(domain.ActivityDinner, "Siji Minfu", "17:30", "18:30", 180, 1),
		}})
	}
	return p
}
