package commonsense

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

var validate = validator.New()

// Config tunes the feasibility checks. Zero values are not meaningful;
// start from DefaultConfig.
type Config struct {
	// PriceTolerance is the largest absolute difference, in currency units,
	// at which two prices or costs still count as equal.
	PriceTolerance float64 `yaml:"price_tolerance" json:"price_tolerance" validate:"gte=0"`

	// SlackMinutes is added to every scheduled duration before it is compared
	// with the time a leg or a move needs at the mode's speed.
	SlackMinutes int `yaml:"slack_minutes" json:"slack_minutes" validate:"gte=0,lte=240"`

	// Speeds in km/h used for feasibility of inner-city legs.
	WalkSpeedKmh  float64 `yaml:"walk_speed_kmh" json:"walk_speed_kmh" validate:"gt=0"`
	MetroSpeedKmh float64 `yaml:"metro_speed_kmh" json:"metro_speed_kmh" validate:"gt=0"`
	TaxiSpeedKmh  float64 `yaml:"taxi_speed_kmh" json:"taxi_speed_kmh" validate:"gt=0"`

	// TaxiCapacity is the number of travellers one taxi carries.
	TaxiCapacity int `yaml:"taxi_capacity" json:"taxi_capacity" validate:"gte=1"`

	// SuggestionDistance is the largest edit distance at which a known
	// venue is offered as a "did you mean" hint. 0 disables hints.
	SuggestionDistance int `yaml:"suggestion_distance" json:"suggestion_distance" validate:"gte=0,lte=16"`
}

// DefaultConfig returns the configuration the checks are calibrated for.
func DefaultConfig() Config {
	return Config{
		PriceTolerance:     0.01,
		SlackMinutes:       5,
		WalkSpeedKmh:       5,
		MetroSpeedKmh:      35,
		TaxiSpeedKmh:       40,
		TaxiCapacity:       4,
		SuggestionDistance: 3,
	}
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: commonsense: %v", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// speed returns the configured speed for a mode and false for an unknown
// mode.
func (c Config) speed(m domain.TransportMode) (float64, bool) {
	switch m {
	case domain.ModeWalk:
		return c.WalkSpeedKmh, true
	case domain.ModeMetro:
		return c.MetroSpeedKmh, true
	case domain.ModeTaxi:
		return c.TaxiSpeedKmh, true
	}
	return 0, false
}

// MealWindow is the span in which a meal may start.
type MealWindow struct {
	From, To domain.Clock
}

// MealWindows are the conventional meal times.
var MealWindows = map[domain.ActivityType]MealWindow{
	domain.ActivityBreakfast: {From: domain.MustClock("06:00"), To: domain.MustClock("10:00")},
	domain.ActivityLunch:     {From: domain.MustClock("11:00"), To: domain.MustClock("14:00")},
	domain.ActivityDinner:    {From: domain.MustClock("17:00"), To: domain.MustClock("21:00")},
}
