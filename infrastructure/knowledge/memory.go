package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Memory is an immutable in-memory knowledge base.
type Memory struct {
	cities     map[string]*cityIndex
	transports map[string]domain.IntercityTransport
}

var _ ports.KnowledgeBase = (*Memory)(nil)

// NewMemory indexes ds. Later entries with the same normalised name
// replace earlier ones.
func NewMemory(ds Dataset) *Memory {
	cities, transports := indexDataset(ds)
	return &Memory{cities: cities, transports: transports}
}

// LoadDataset reads a dataset file. Files ending in .json are decoded as
// JSON; anything else as YAML.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}
	return ParseDataset(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

// ParseDataset decodes a dataset from JSON or YAML bytes.
func ParseDataset(data []byte, isJSON bool) (Dataset, error) {
	var ds Dataset
	if isJSON {
		if err := json.Unmarshal(data, &ds); err != nil {
			return Dataset{}, fmt.Errorf("%w: knowledge base: %v", domain.ErrInvalidConfiguration, err)
		}
		return ds, nil
	}
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("%w: knowledge base: %v", domain.ErrInvalidConfiguration, err)
	}
	return ds, nil
}

// LoadMemory reads a dataset file into a Memory store.
func LoadMemory(path string) (*Memory, error) {
	ds, err := LoadDataset(path)
	if err != nil {
		return nil, err
	}
	return NewMemory(ds), nil
}

func (m *Memory) city(city string) *cityIndex {
	if c, ok := m.cities[domain.NormalizeName(city)]; ok {
		return c
	}
	return newCityIndex()
}

// Attraction implements ports.KnowledgeBase.
func (m *Memory) Attraction(_ context.Context, city, name string) (domain.Attraction, error) {
	return m.city(city).attraction(city, name)
}

// Hotel implements ports.KnowledgeBase.
func (m *Memory) Hotel(_ context.Context, city, name string) (domain.Hotel, error) {
	return m.city(city).hotel(city, name)
}

// Restaurant implements ports.KnowledgeBase.
func (m *Memory) Restaurant(_ context.Context, city, name string) (domain.Restaurant, error) {
	return m.city(city).restaurant(city, name)
}

// IntercityTransport implements ports.KnowledgeBase.
func (m *Memory) IntercityTransport(_ context.Context, id string) (domain.IntercityTransport, error) {
	if t, ok := m.transports[domain.NormalizeName(id)]; ok {
		return t, nil
	}
	return domain.IntercityTransport{}, ports.NewKnowledgeError("intercity", id, "lookup", domain.ErrNotFound)
}

// Locate implements ports.KnowledgeBase.
func (m *Memory) Locate(_ context.Context, city, name string) (domain.GeoPoint, error) {
	return m.city(city).locate(city, name)
}

// Names implements ports.KnowledgeBase.
func (m *Memory) Names(_ context.Context, city string, kind domain.POIKind) ([]string, error) {
	return m.city(city).names(kind), nil
}
