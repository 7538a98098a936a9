package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS pois (
	city_key   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	name       TEXT NOT NULL,
	city       TEXT NOT NULL,
	lat        REAL NOT NULL DEFAULT 0,
	lon        REAL NOT NULL DEFAULT 0,
	open_min   INTEGER NOT NULL DEFAULT 0,
	close_min  INTEGER NOT NULL DEFAULT 1440,
	price      REAL NOT NULL DEFAULT 0,
	category   TEXT NOT NULL DEFAULT '',
	room_type  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (city_key, kind, name_key)
);

CREATE TABLE IF NOT EXISTS intercity (
	id_key           TEXT PRIMARY KEY,
	id               TEXT NOT NULL,
	kind             TEXT NOT NULL,
	origin           TEXT NOT NULL,
	destination      TEXT NOT NULL,
	origin_city      TEXT NOT NULL DEFAULT '',
	destination_city TEXT NOT NULL DEFAULT '',
	depart_min       INTEGER NOT NULL,
	arrive_min       INTEGER NOT NULL,
	price            REAL NOT NULL DEFAULT 0
);
`

// SQLite is a knowledge base persisted in a SQLite file. Each city is read
// in full on first use and then served from memory.
type SQLite struct {
	db *sql.DB

	mu     sync.RWMutex
	cities map[string]*cityIndex
	sf     singleflight.Group
}

var _ ports.KnowledgeBase = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path and runs migrations.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ports.ErrStoreUnavailable, err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pragma: %v", ports.ErrStoreUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ports.ErrStoreUnavailable, err)
	}
	return &SQLite{db: db, cities: make(map[string]*cityIndex)}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error { return s.db.Close() }

// Import upserts every entry of ds in one transaction and drops the city
// cache.
func (s *SQLite) Import(ctx context.Context, ds Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	poi, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO pois
		(city_key, kind, name_key, name, city, lat, lon, open_min, close_min, price, category, room_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare poi insert: %w", err)
	}
	defer poi.Close()

	put := func(kind domain.POIKind, p domain.POI, category string, roomType int) error {
		hours := allDayIfUnset(p.Hours)
		_, err := poi.ExecContext(ctx,
			domain.NormalizeName(p.City), string(kind), domain.NormalizeName(p.Name), p.Name, p.City,
			p.Location.Lat, p.Location.Lon, int(hours.Open), int(hours.Close),
			p.Price, category, roomType,
		)
		if err != nil {
			return fmt.Errorf("insert %s %q: %w", kind, p.Name, err)
		}
		return nil
	}
	for _, a := range ds.Attractions {
		if err := put(domain.KindAttraction, a.POI, a.Type, 0); err != nil {
			return err
		}
	}
	for _, h := range ds.Hotels {
		if err := put(domain.KindHotel, h.POI, h.Type, h.RoomType); err != nil {
			return err
		}
	}
	for _, r := range ds.Restaurants {
		if err := put(domain.KindRestaurant, r.POI, r.Cuisine, 0); err != nil {
			return err
		}
	}
	for _, st := range ds.Stations {
		p := domain.POI{Name: st.Name, City: st.City, Location: st.Location}
		if err := put(domain.KindStation, p, "", 0); err != nil {
			return err
		}
	}
	for _, t := range ds.Intercity {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO intercity
			(id_key, id, kind, origin, destination, origin_city, destination_city, depart_min, arrive_min, price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			domain.NormalizeName(t.ID), t.ID, string(t.Kind), t.Origin, t.Destination,
			t.OriginCity, t.DestCity, int(t.Depart), int(t.Arrive), t.Price,
		)
		if err != nil {
			return fmt.Errorf("insert intercity %q: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	s.cities = make(map[string]*cityIndex)
	s.mu.Unlock()
	return nil
}

// city returns the cached index for a city, loading it at most once even
// under concurrent first use.
func (s *SQLite) city(ctx context.Context, city string) (*cityIndex, error) {
	key := domain.NormalizeName(city)
	s.mu.RLock()
	c, ok := s.cities[key]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		c, err := s.loadCity(ctx, key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cities[key] = c
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cityIndex), nil
}

func (s *SQLite) loadCity(ctx context.Context, key string) (*cityIndex, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, name_key, name, city, lat, lon, open_min, close_min, price, category, room_type
		FROM pois WHERE city_key = ?`, key)
	if err != nil {
		return nil, ports.NewKnowledgeError("city", key, "load", errors.Join(ports.ErrStoreUnavailable, err))
	}
	defer rows.Close()

	c := newCityIndex()
	for rows.Next() {
		var (
			kind, nameKey, category string
			p                       domain.POI
			open, closeMin, room    int
		)
		if err := rows.Scan(&kind, &nameKey, &p.Name, &p.City, &p.Location.Lat, &p.Location.Lon,
			&open, &closeMin, &p.Price, &category, &room); err != nil {
			return nil, ports.NewKnowledgeError("city", key, "scan", errors.Join(ports.ErrStoreUnavailable, err))
		}
		p.Hours = domain.OpeningHours{Open: domain.Clock(open), Close: domain.Clock(closeMin)}
		switch domain.POIKind(kind) {
		case domain.KindAttraction:
			c.attractions[nameKey] = domain.Attraction{POI: p, Type: category}
		case domain.KindHotel:
			c.hotels[nameKey] = domain.Hotel{POI: p, Type: category, RoomType: room}
		case domain.KindRestaurant:
			c.restaurants[nameKey] = domain.Restaurant{POI: p, Cuisine: category}
		case domain.KindStation:
			c.stations[nameKey] = domain.Station{Name: p.Name, City: p.City, Location: p.Location}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewKnowledgeError("city", key, "load", errors.Join(ports.ErrStoreUnavailable, err))
	}
	return c, nil
}

// Attraction implements ports.KnowledgeBase.
func (s *SQLite) Attraction(ctx context.Context, city, name string) (domain.Attraction, error) {
	c, err := s.city(ctx, city)
	if err != nil {
		return domain.Attraction{}, err
	}
	return c.attraction(city, name)
}

// Hotel implements ports.KnowledgeBase.
func (s *SQLite) Hotel(ctx context.Context, city, name string) (domain.Hotel, error) {
	c, err := s.city(ctx, city)
	if err != nil {
		return domain.Hotel{}, err
	}
	return c.hotel(city, name)
}

// Restaurant implements ports.KnowledgeBase.
func (s *SQLite) Restaurant(ctx context.Context, city, name string) (domain.Restaurant, error) {
	c, err := s.city(ctx, city)
	if err != nil {
		return domain.Restaurant{}, err
	}
	return c.restaurant(city, name)
}

// Locate implements ports.KnowledgeBase.
func (s *SQLite) Locate(ctx context.Context, city, name string) (domain.GeoPoint, error) {
	c, err := s.city(ctx, city)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return c.locate(city, name)
}

// Names implements ports.KnowledgeBase.
func (s *SQLite) Names(ctx context.Context, city string, kind domain.POIKind) ([]string, error) {
	c, err := s.city(ctx, city)
	if err != nil {
		return nil, err
	}
	return c.names(kind), nil
}

// IntercityTransport implements ports.KnowledgeBase.
func (s *SQLite) IntercityTransport(ctx context.Context, id string) (domain.IntercityTransport, error) {
	var (
		t              domain.IntercityTransport
		kind           string
		depart, arrive int
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, kind, origin, destination, origin_city, destination_city, depart_min, arrive_min, price
		FROM intercity WHERE id_key = ?`, domain.NormalizeName(id)).
		Scan(&t.ID, &kind, &t.Origin, &t.Destination, &t.OriginCity, &t.DestCity, &depart, &arrive, &t.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IntercityTransport{}, ports.NewKnowledgeError("intercity", id, "lookup", domain.ErrNotFound)
	}
	if err != nil {
		return domain.IntercityTransport{}, ports.NewKnowledgeError("intercity", id, "lookup", errors.Join(ports.ErrStoreUnavailable, err))
	}
	t.Kind = domain.ActivityType(kind)
	t.Depart, t.Arrive = domain.Clock(depart), domain.Clock(arrive)
	return t, nil
}
