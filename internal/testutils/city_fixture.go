package testutils

import (
	"github.com/ahrav/go-tripcheck/infrastructure/knowledge"
	"github.com/ahrav/go-tripcheck/internal/domain"
)

// Fixture city names.
const (
	Beijing  = "Beijing"
	Shanghai = "Shanghai"
)

func poi(city, name string, lat, lon float64, open, close string, price float64) domain.POI {
	return domain.POI{
		Name:     name,
		City:     city,
		Location: domain.GeoPoint{Lat: lat, Lon: lon},
		Hours:    domain.OpeningHours{Open: domain.MustClock(open), Close: domain.MustClock(close)},
		Price:    price,
	}
}

// TripDataset is a small Shanghai to Beijing knowledge base. Every venue
// used by ValidPlan is present with coordinates that make the plan's
// transport legs feasible.
func TripDataset() knowledge.Dataset {
	return knowledge.Dataset{
		Attractions: []domain.Attraction{
			{POI: poi(Beijing, "Forbidden City", 39.9163, 116.3972, "08:30", "17:00", 60), Type: "historic site"},
			{POI: poi(Beijing, "Temple of Heaven", 39.8822, 116.4066, "06:00", "22:00", 15), Type: "park"},
			{POI: poi(Beijing, "Summer Palace", 39.9999, 116.2755, "06:30", "18:00", 30), Type: "park"},
			{POI: poi(Beijing, "National Museum", 39.9051, 116.4010, "09:00", "17:00", 0), Type: "museum"},
		},
		Hotels: []domain.Hotel{
			{POI: poi(Beijing, "Beijing Hotel", 39.9087, 116.4109, "00:00", "24:00", 800), Type: "luxury", RoomType: 2},
			{POI: poi(Beijing, "Hutong Hostel", 39.9400, 116.3900, "00:00", "24:00", 120), Type: "hostel", RoomType: 1},
		},
		Restaurants: []domain.Restaurant{
			{POI: poi(Beijing, "Quanjude", 39.8990, 116.3976, "11:00", "21:00", 200), Cuisine: "Beijing cuisine"},
			{POI: poi(Beijing, "Huguosi Snacks", 39.9347, 116.3720, "06:00", "21:00", 30), Cuisine: "snacks"},
			{POI: poi(Beijing, "Din Tai Fung", 39.9140, 116.4110, "10:00", "22:00", 150), Cuisine: "Taiwanese"},
			{POI: poi(Beijing, "Siji Minfu", 39.9160, 116.4030, "10:30", "21:30", 180), Cuisine: "Beijing cuisine"},
			{POI: poi(Beijing, "Yonghe King", 39.9080, 116.4150, "00:00", "24:00", 25), Cuisine: "fast food"},
		},
		Stations: []domain.Station{
			{Name: "Beijing South Station", City: Beijing, Location: domain.GeoPoint{Lat: 39.8652, Lon: 116.3786}},
			{Name: "Shanghai Hongqiao Station", City: Shanghai, Location: domain.GeoPoint{Lat: 31.1946, Lon: 121.3205}},
		},
		Intercity: []domain.IntercityTransport{
			{
				ID: "G2", Kind: domain.ActivityTrain,
				Origin: "Shanghai Hongqiao Station", Destination: "Beijing South Station",
				OriginCity: Shanghai, DestCity: Beijing,
				Depart: domain.MustClock("07:00"), Arrive: domain.MustClock("11:30"), Price: 550,
			},
			{
				ID: "G5", Kind: domain.ActivityTrain,
				Origin: "Beijing South Station", Destination: "Shanghai Hongqiao Station",
				OriginCity: Beijing, DestCity: Shanghai,
				Depart: domain.MustClock("14:00"), Arrive: domain.MustClock("18:30"), Price: 550,
			},
		},
	}
}

// TripKB returns TripDataset served from memory.
func TripKB() *knowledge.Memory { return knowledge.NewMemory(TripDataset()) }
