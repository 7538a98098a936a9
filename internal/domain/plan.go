package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ActivityType classifies a single itinerary entry.
type ActivityType string

// Activity types understood by the checkers and the function library.
const (
	ActivityAttraction    ActivityType = "attraction"
	ActivityBreakfast     ActivityType = "breakfast"
	ActivityLunch         ActivityType = "lunch"
	ActivityDinner        ActivityType = "dinner"
	ActivityAccommodation ActivityType = "accommodation"
	ActivityTrain         ActivityType = "train"
	ActivityAirplane      ActivityType = "airplane"
)

// IsMeal reports whether the activity is a breakfast, lunch or dinner.
func (t ActivityType) IsMeal() bool {
	return t == ActivityBreakfast || t == ActivityLunch || t == ActivityDinner
}

// IsIntercity reports whether the activity is a cross-city leg.
func (t ActivityType) IsIntercity() bool {
	return t == ActivityTrain || t == ActivityAirplane
}

// TransportMode is the mode of an inner-city transport leg.
type TransportMode string

// Supported inner-city modes.
const (
	ModeWalk  TransportMode = "walk"
	ModeMetro TransportMode = "metro"
	ModeTaxi  TransportMode = "taxi"
)

// Clock is a time of day in minutes since midnight. "24:00" is a valid
// end-of-day value and maps to 1440.
type Clock int

// EndOfDay is the latest representable clock value.
const EndOfDay Clock = 24 * 60

// ParseClock parses an "H:MM" or "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: clock %q is not HH:MM", ErrMalformedInput, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: clock %q has invalid hour", ErrMalformedInput, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("%w: clock %q has invalid minute", ErrMalformedInput, s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: clock %q out of range", ErrMalformedInput, s)
	}
	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for literals known to be valid.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int { return int(c) }

// String formats the clock as HH:MM.
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

// MarshalJSON encodes the clock as an HH:MM string.
func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

// UnmarshalJSON decodes an HH:MM string.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: clock must be a string", ErrMalformedInput)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalText lets YAML fixtures carry clocks as plain scalars.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Transport is one explicit inner-city leg used to reach an activity.
type Transport struct {
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Mode      TransportMode `json:"mode"`
	StartTime Clock         `json:"start_time"`
	EndTime   Clock         `json:"end_time"`
	Price     float64       `json:"price"`
	Cost      float64       `json:"cost"`
	Distance  float64       `json:"distance"`
	Tickets   int           `json:"tickets,omitempty"`
	Cars      int           `json:"cars,omitempty"`
}

// Duration returns the scheduled length of the leg in minutes.
func (t Transport) Duration() int { return int(t.EndTime - t.StartTime) }

// Activity is a single scheduled entry of a day.
type Activity struct {
	Type       ActivityType `json:"type"`
	Position   string       `json:"position,omitempty"`
	Start      string       `json:"start,omitempty"`
	End        string       `json:"end,omitempty"`
	StartTime  Clock        `json:"start_time"`
	EndTime    Clock        `json:"end_time"`
	Price      float64      `json:"price"`
	Cost       float64      `json:"cost"`
	Tickets    int          `json:"tickets,omitempty"`
	TrainID    string       `json:"TrainID,omitempty"`
	FlightID   string       `json:"FlightID,omitempty"`
	RoomType   int          `json:"room_type,omitempty"`
	Rooms      int          `json:"rooms,omitempty"`
	Transports []Transport  `json:"transports,omitempty"`
}

// TransportID returns the train or flight number of an intercity leg.
func (a Activity) TransportID() string {
	if a.TrainID != "" {
		return a.TrainID
	}
	return a.FlightID
}

// Arrival is where the traveller is once the activity ends.
func (a Activity) Arrival() string {
	if a.Type.IsIntercity() {
		return a.End
	}
	return a.Position
}

// Departure is where the traveller must be when the activity begins.
func (a Activity) Departure() string {
	if a.Type.IsIntercity() {
		return a.Start
	}
	return a.Position
}

// Day groups the activities scheduled for one calendar day.
type Day struct {
	Day        int        `json:"day"`
	Activities []Activity `json:"activities"`
}

// Plan is a candidate itinerary produced by an upstream agent.
type Plan struct {
	PeopleNumber int    `json:"people_number"`
	StartCity    string `json:"start_city"`
	TargetCity   string `json:"target_city"`
	Itinerary    []Day  `json:"itinerary"`
}

// DecodePlan parses plan JSON into the typed model. Any decoding problem is
// reported as ErrMalformedInput.
func DecodePlan(data []byte) (*Plan, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrMalformedInput)
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		if errors.Is(err, ErrMalformedInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return &p, nil
}

// DayCount returns the number of days in the itinerary.
func (p *Plan) DayCount() int { return len(p.Itinerary) }

// AllActivities flattens the itinerary in schedule order.
func (p *Plan) AllActivities() []Activity {
	var out []Activity
	for _, d := range p.Itinerary {
		out = append(out, d.Activities...)
	}
	return out
}

// ActivityRef addresses one activity inside a plan.
type ActivityRef struct {
	Day   int
	Index int
}

// String formats the reference for diagnostics.
func (r ActivityRef) String() string { return fmt.Sprintf("day %d activity %d", r.Day, r.Index+1) }
