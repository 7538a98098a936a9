// Package knowledge holds the city knowledge-base backends: an in-memory
// store loaded from YAML or JSON and a SQLite store for larger datasets.
// Every lookup matches names through domain.NormalizeName.
package knowledge

import (
	"fmt"
	"sort"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Dataset is the serialised form of a knowledge base. Both backends import
// it; the memory store also serves it directly.
type Dataset struct {
	Attractions []domain.Attraction         `json:"attractions" yaml:"attractions"`
	Hotels      []domain.Hotel              `json:"hotels" yaml:"hotels"`
	Restaurants []domain.Restaurant         `json:"restaurants" yaml:"restaurants"`
	Stations    []domain.Station            `json:"stations" yaml:"stations"`
	Intercity   []domain.IntercityTransport `json:"intercity" yaml:"intercity"`
}

// cityIndex is the read-only view of one city. It is built once and then
// shared between goroutines without locking.
type cityIndex struct {
	attractions map[string]domain.Attraction
	hotels      map[string]domain.Hotel
	restaurants map[string]domain.Restaurant
	stations    map[string]domain.Station
}

func newCityIndex() *cityIndex {
	return &cityIndex{
		attractions: make(map[string]domain.Attraction),
		hotels:      make(map[string]domain.Hotel),
		restaurants: make(map[string]domain.Restaurant),
		stations:    make(map[string]domain.Station),
	}
}

func (c *cityIndex) attraction(city, name string) (domain.Attraction, error) {
	if a, ok := c.attractions[domain.NormalizeName(name)]; ok {
		return a, nil
	}
	return domain.Attraction{}, miss(domain.KindAttraction, city, name)
}

func (c *cityIndex) hotel(city, name string) (domain.Hotel, error) {
	if h, ok := c.hotels[domain.NormalizeName(name)]; ok {
		return h, nil
	}
	return domain.Hotel{}, miss(domain.KindHotel, city, name)
}

func (c *cityIndex) restaurant(city, name string) (domain.Restaurant, error) {
	if r, ok := c.restaurants[domain.NormalizeName(name)]; ok {
		return r, nil
	}
	return domain.Restaurant{}, miss(domain.KindRestaurant, city, name)
}

// locate searches attractions, hotels, restaurants and stations in order.
func (c *cityIndex) locate(city, name string) (domain.GeoPoint, error) {
	key := domain.NormalizeName(name)
	if a, ok := c.attractions[key]; ok {
		return a.Location, nil
	}
	if h, ok := c.hotels[key]; ok {
		return h.Location, nil
	}
	if r, ok := c.restaurants[key]; ok {
		return r.Location, nil
	}
	if s, ok := c.stations[key]; ok {
		return s.Location, nil
	}
	return domain.GeoPoint{}, miss("place", city, name)
}

func (c *cityIndex) names(kind domain.POIKind) []string {
	var out []string
	switch kind {
	case domain.KindAttraction:
		for _, a := range c.attractions {
			out = append(out, a.Name)
		}
	case domain.KindHotel:
		for _, h := range c.hotels {
			out = append(out, h.Name)
		}
	case domain.KindRestaurant:
		for _, r := range c.restaurants {
			out = append(out, r.Name)
		}
	case domain.KindStation:
		for _, s := range c.stations {
			out = append(out, s.Name)
		}
	}
	sort.Strings(out)
	return out
}

// indexDataset splits a dataset into per-city indexes keyed by normalised
// city name, plus the intercity timetable keyed by id.
func indexDataset(ds Dataset) (map[string]*cityIndex, map[string]domain.IntercityTransport) {
	cities := make(map[string]*cityIndex)
	get := func(city string) *cityIndex {
		key := domain.NormalizeName(city)
		c, ok := cities[key]
		if !ok {
			c = newCityIndex()
			cities[key] = c
		}
		return c
	}
	for _, a := range ds.Attractions {
		a.Hours = allDayIfUnset(a.Hours)
		get(a.City).attractions[domain.NormalizeName(a.Name)] = a
	}
	for _, h := range ds.Hotels {
		h.Hours = allDayIfUnset(h.Hours)
		get(h.City).hotels[domain.NormalizeName(h.Name)] = h
	}
	for _, r := range ds.Restaurants {
		r.Hours = allDayIfUnset(r.Hours)
		get(r.City).restaurants[domain.NormalizeName(r.Name)] = r
	}
	for _, s := range ds.Stations {
		get(s.City).stations[domain.NormalizeName(s.Name)] = s
	}
	transports := make(map[string]domain.IntercityTransport, len(ds.Intercity))
	for _, t := range ds.Intercity {
		transports[domain.NormalizeName(t.ID)] = t
	}
	return cities, transports
}

func miss(kind any, city, name string) error {
	return ports.NewKnowledgeError(fmt.Sprint(kind), city+"/"+name, "lookup", domain.ErrNotFound)
}

// allDayIfUnset treats a missing opening window as open around the clock.
func allDayIfUnset(h domain.OpeningHours) domain.OpeningHours {
	if h == (domain.OpeningHours{}) {
		h.Close = domain.EndOfDay
	}
	return h
}
