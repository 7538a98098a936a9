package ports

import (
	"context"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

// KnowledgeBase is the read-only city database the commonsense checks and
// the function library consult. Lookups that find nothing return an error
// wrapping domain.ErrNotFound; any other error means the store itself
// failed.
//
// Venue names are matched after normalisation, so implementations must
// accept names that differ from the stored form only in width or case.
type KnowledgeBase interface {
	// Attraction looks up a sightseeing venue in a city.
	Attraction(ctx context.Context, city, name string) (domain.Attraction, error)

	// Hotel looks up an accommodation venue in a city.
	Hotel(ctx context.Context, city, name string) (domain.Hotel, error)

	// Restaurant looks up a dining venue in a city.
	Restaurant(ctx context.Context, city, name string) (domain.Restaurant, error)

	// IntercityTransport looks up a train or flight by its id.
	IntercityTransport(ctx context.Context, id string) (domain.IntercityTransport, error)

	// Locate returns the coordinates of any named place in a city:
	// attraction, hotel, restaurant or station.
	Locate(ctx context.Context, city, name string) (domain.GeoPoint, error)

	// Names lists every stored name of one kind in a city, sorted.
	// It feeds "did you mean" suggestions.
	Names(ctx context.Context, city string, kind domain.POIKind) ([]string, error)
}
