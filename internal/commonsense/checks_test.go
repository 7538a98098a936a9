package commonsense_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tripcheck/infrastructure/knowledge"
	"github.com/ahrav/go-tripcheck/internal/commonsense"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
	"github.com/ahrav/go-tripcheck/internal/testutils"
)

func newRunner(t *testing.T, kb ports.KnowledgeBase) *commonsense.Runner {
	t.Helper()
	checks, err := commonsense.New(kb, commonsense.DefaultConfig())
	require.NoError(t, err)
	r, err := commonsense.NewRunner(checks)
	require.NoError(t, err)
	return r
}

// act returns a pointer to an activity of p, with day counted from 1.
func act(p *domain.Plan, day, idx int) *domain.Activity {
	return &p.Itinerary[day-1].Activities[idx]
}

func violated(ev commonsense.Evaluation) []string {
	var out []string
	for rule := range ev.Violated {
		out = append(out, rule)
	}
	sort.Strings(out)
	return out
}

func TestColumns(t *testing.T) {
	checks, err := commonsense.New(testutils.TripKB(), commonsense.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, checks, 7)

	cols := commonsense.Columns(checks)
	assert.Len(t, cols, 26)
	assert.Equal(t, "intercity_exists", cols[0])
	assert.Equal(t, "space_reachable", cols[len(cols)-1])

	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.Name()
	}
	assert.Equal(t, []string{"intercity", "attractions", "hotels", "restaurants", "transport", "time", "space"}, names)
}

func TestNew_Errors(t *testing.T) {
	_, err := commonsense.New(nil, commonsense.DefaultConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	cfg := commonsense.DefaultConfig()
	cfg.TaxiSpeedKmh = 0
	_, err = commonsense.New(testutils.TripKB(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestValidPlanPasses(t *testing.T) {
	r := newRunner(t, testutils.TripKB())
	ev := r.Evaluate(context.Background(), testutils.TripQuery("q1"), testutils.ValidPlan())
	assert.True(t, ev.Complete())
	assert.Empty(t, violated(ev), ev.Diagnostics)
	assert.True(t, ev.Passed())
}

func TestChecks_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *domain.Query, p *domain.Plan)
		want   []string
	}{
		{
			name:   "unknown train",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 0).TrainID = "G9999" },
			want:   []string{"intercity_exists"},
		},
		{
			name:   "train departs at the wrong time",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 0).StartTime = domain.MustClock("06:55") },
			want:   []string{"intercity_schedule"},
		},
		{
			name:   "train to the wrong station",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 0).End = "Beijing West Station" },
			want:   []string{"intercity_route", "transport_endpoints"},
		},
		{
			name: "one train ticket for two",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				a := act(p, 1, 0)
				a.Tickets, a.Cost = 1, 550
			},
			want: []string{"intercity_cost"},
		},
		{
			name: "no return leg",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				d := &p.Itinerary[1]
				d.Activities = d.Activities[:len(d.Activities)-1]
			},
			want: []string{"intercity_round_trip"},
		},
		{
			name:   "misspelled attraction",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 2).Position = "Forbiden City" },
			want:   []string{"attraction_exists", "transport_endpoints"},
		},
		{
			name: "attraction visited twice",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				a := act(p, 2, 1)
				a.Position, a.Price, a.Cost = "Forbidden City", 60, 120
				a.Transports[0].End = "Forbidden City"
				act(p, 2, 2).Transports[0].Start = "Forbidden City"
			},
			want: []string{"attraction_unique"},
		},
		{
			name: "night without hotel",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				d := &p.Itinerary[0]
				d.Activities = d.Activities[:len(d.Activities)-1]
			},
			want: []string{"hotel_nights", "transport_endpoints"},
		},
		{
			name: "no rooms booked",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				a := act(p, 1, 4)
				a.Rooms, a.Cost = 0, 0
			},
			want: []string{"hotel_capacity"},
		},
		{
			name: "hotel underpriced",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				a := act(p, 1, 4)
				a.Price, a.Cost = 700, 700
			},
			want: []string{"hotel_cost"},
		},
		{
			name:   "lunch at breakfast time",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 2, 0).Type = domain.ActivityLunch },
			want:   []string{"restaurant_meal_window"},
		},
		{
			name: "restaurant used twice",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				a := act(p, 2, 2)
				a.Position, a.Price, a.Cost = "Quanjude", 200, 400
				a.Transports[0].End = "Quanjude"
				act(p, 2, 3).Transports[0].Start = "Quanjude"
			},
			want: []string{"restaurant_unique"},
		},
		{
			name:   "taxi overcharged",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 1).Transports[0].Cost = 40 },
			want:   []string{"transport_cost"},
		},
		{
			name:   "unknown transport mode",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 1).Transports[0].Mode = "rocket" },
			want:   []string{"transport_mode"},
		},
		{
			name: "walk too fast",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				act(p, 1, 2).Transports[0].StartTime = domain.MustClock("13:20")
			},
			want: []string{"transport_duration"},
		},
		{
			name:   "visit overruns the next departure",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 2).EndTime = domain.MustClock("16:40") },
			want:   []string{"time_overlap"},
		},
		{
			name:   "query wants three days",
			mutate: func(q *domain.Query, _ *domain.Plan) { q.Days = 3 },
			want:   []string{"time_day_count"},
		},
		{
			name:   "dinner reached without transport",
			mutate: func(_ *domain.Query, p *domain.Plan) { act(p, 1, 3).Transports = nil },
			want:   []string{"space_continuity"},
		},
		{
			name: "understated walking distance",
			mutate: func(_ *domain.Query, p *domain.Plan) {
				a := act(p, 1, 2)
				a.StartTime = domain.MustClock("13:05")
				a.Transports[0].StartTime = domain.MustClock("13:01")
				a.Transports[0].EndTime = domain.MustClock("13:04")
				a.Transports[0].Distance = 0.2
			},
			want: []string{"space_reachable"},
		},
	}

	r := newRunner(t, testutils.TripKB())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := testutils.TripQuery("q1")
			p := testutils.ValidPlan()
			tt.mutate(&q, p)

			ev := r.Evaluate(context.Background(), q, p)
			require.True(t, ev.Complete(), ev.Errors)
			assert.Equal(t, tt.want, violated(ev), ev.Diagnostics)
			assert.False(t, ev.Passed())
			for _, d := range ev.Diagnostics {
				assert.Equal(t, domain.FamilyCommonsense, d.Family)
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestAttractionCheck_Suggestion(t *testing.T) {
	r := newRunner(t, testutils.TripKB())
	p := testutils.ValidPlan()
	act(p, 1, 2).Position = "Forbiden City"

	ev := r.Evaluate(context.Background(), testutils.TripQuery("q1"), p)
	var msgs []string
	for _, d := range ev.Diagnostics {
		if d.Rule == commonsense.RuleAttractionExists {
			msgs = append(msgs, d.Message)
		}
	}
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], `did you mean "Forbidden City"?`)
	assert.Contains(t, msgs[0], "day 1 activity 3")
}

func TestTimeCheck_OpeningHours(t *testing.T) {
	ds := testutils.TripDataset()
	for i := range ds.Attractions {
		if ds.Attractions[i].Name == "Forbidden City" {
			ds.Attractions[i].Hours.Close = domain.MustClock("16:00")
		}
	}
	r := newRunner(t, knowledge.NewMemory(ds))

	ev := r.Evaluate(context.Background(), testutils.TripQuery("q1"), testutils.ValidPlan())
	assert.Equal(t, []string{"time_opening_hours"}, violated(ev))
}

func TestEmptyPlan(t *testing.T) {
	r := newRunner(t, testutils.TripKB())
	ev := r.Evaluate(context.Background(), testutils.TripQuery("q1"), &domain.Plan{})
	assert.True(t, ev.Complete())
	assert.Equal(t, []string{"intercity_round_trip", "time_day_count"}, violated(ev))
}
