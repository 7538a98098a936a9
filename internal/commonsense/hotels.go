package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Hotel rule columns.
const (
	RuleHotelExists   = "hotel_exists"
	RuleHotelNights   = "hotel_nights"
	RuleHotelCapacity = "hotel_capacity"
	RuleHotelCost     = "hotel_cost"
)

// HotelCheck verifies accommodation: the hotel exists, every night but the
// last ends in one, enough rooms are booked and they are charged correctly.
type HotelCheck struct{ base }

var _ ports.Check = (*HotelCheck)(nil)

// Name implements ports.Check.
func (*HotelCheck) Name() string { return "hotels" }

// Rules implements ports.Check.
func (*HotelCheck) Rules() []string {
	return []string{RuleHotelExists, RuleHotelNights, RuleHotelCapacity, RuleHotelCost}
}

// Check implements ports.Check.
func (c *HotelCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	res := domain.NewCheckResult()
	n := people(q, p)
	where := city(q, p)

	for d, day := range p.Itinerary[:max(len(p.Itinerary)-1, 0)] {
		acts := day.Activities
		if len(acts) == 0 || acts[len(acts)-1].Type != domain.ActivityAccommodation {
			res.Violate(c.Name(), RuleHotelNights, fmt.Sprintf("day %d does not end at a hotel", d+1))
		}
	}

	err := walk(p, func(s step) error {
		a := s.act
		if a.Type != domain.ActivityAccommodation {
			return nil
		}
		h, err := c.kb.Hotel(ctx, where, a.Position)
		if missing(err) {
			res.Violate(c.Name(), RuleHotelExists, fmt.Sprintf("%s: no hotel %q in %s%s",
				s.ref, a.Position, where, c.suggest(ctx, where, domain.KindHotel, a.Position)))
			return nil
		}
		if err != nil {
			return err
		}

		guests := h.RoomType
		if a.RoomType != 0 && h.RoomType != 0 && a.RoomType != h.RoomType {
			res.Violate(c.Name(), RuleHotelCapacity, fmt.Sprintf("%s: %s rooms sleep %d, plan says %d", s.ref, h.Name, h.RoomType, a.RoomType))
		}
		if guests == 0 {
			guests = a.RoomType
		}
		if a.Rooms < 1 || a.Rooms*guests < n {
			res.Violate(c.Name(), RuleHotelCapacity, fmt.Sprintf("%s: %d rooms of %d for %d travellers", s.ref, a.Rooms, guests, n))
		}

		if !c.priceEq(a.Price, h.Price) {
			res.Violate(c.Name(), RuleHotelCost, fmt.Sprintf("%s: %s costs %.2f a room, plan says %.2f", s.ref, h.Name, h.Price, a.Price))
		}
		if !c.priceEq(a.Cost, a.Price*float64(a.Rooms)) {
			res.Violate(c.Name(), RuleHotelCost, fmt.Sprintf("%s: cost %.2f is not price times rooms", s.ref, a.Cost))
		}
		return nil
	})
	return res, err
}
