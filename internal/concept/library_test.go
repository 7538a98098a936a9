package concept_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tripcheck/internal/concept"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
	"github.com/ahrav/go-tripcheck/internal/testutils"
)

func run(t *testing.T, reg *expr.Registry, plan *domain.Plan, src string) (expr.Value, error) {
	t.Helper()
	prog, err := expr.Compile(src)
	require.NoError(t, err)
	return prog.Run(context.Background(), reg, concept.Bindings(plan), expr.DefaultLimits())
}

func TestLibrary_PlanFunctions(t *testing.T) {
	reg, err := concept.NewRegistry(testutils.TripKB())
	require.NoError(t, err)
	plan := testutils.ValidPlan()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "day count", src: "result = day_count(plan)", want: "2"},
		{name: "people count", src: "result = people_count(plan)", want: "2"},
		{name: "cities", src: "result = (start_city(plan), target_city(plan))", want: `("Shanghai", "Beijing")`},
		{name: "activity count", src: "result = allactivities_count(plan)", want: "9"},
		{name: "daily activities", src: "result = len(dailyactivities(plan, 2))", want: "4"},
		{name: "day out of range", src: "result = dailyactivities(plan, 3)", want: "[]"},
		{name: "day zero", src: "result = dailyactivities(plan, 0)", want: "[]"},
		{name: "total cost", src: "result = total_cost(plan)", want: "4334.0"},
		{
			name: "activity types",
			src:  "result = [activity_type(a) for a in dailyactivities(plan, 1)]",
			want: `["train", "lunch", "attraction", "dinner", "accommodation"]`,
		},
		{
			name: "positions",
			src:  "result = [activity_position(a) for a in dailyactivities(plan, 2)]",
			want: `["Yonghe King", "Temple of Heaven", "Din Tai Fung", "Shanghai Hongqiao Station"]`,
		},
		{
			name: "attraction spend",
			src: `
spend = 0
for a in allactivities(plan):
    if activity_type(a) == 'attraction':
        spend += activity_price(a) * activity_tickets(a)
result = spend`,
			want: "150.0",
		},
		{
			name: "times",
			src:  "a = allactivities(plan)[2]\nresult = (activity_start_time(a), activity_end_time(a), activity_time(a))",
			want: `("13:30", "16:30", 180)`,
		},
		{
			name: "activity cost",
			src:  "result = activity_cost(allactivities(plan)[1])",
			want: "400.0",
		},
		{
			name: "rooms",
			src:  "a = dailyactivities(plan, 1)[4]\nresult = (room_count(a), room_type(a))",
			want: "(1, 2)",
		},
		{
			name: "intercity fields",
			src:  "a = allactivities(plan)[0]\nresult = [intercity_transport_type(a), intercity_transport_origin(a), intercity_transport_destination(a)]",
			want: `["train", "Shanghai Hongqiao Station", "Beijing South Station"]`,
		},
		{
			name: "intercity type of non-intercity",
			src:  "result = intercity_transport_type(allactivities(plan)[1])",
			want: `""`,
		},
		{
			name: "no transports for first leg",
			src:  "result = activity_transports(allactivities(plan)[0]) == []",
			want: "True",
		},
		{
			name: "transport summaries",
			src: `ts = activity_transports(dailyactivities(plan, 2)[1])
result = (innercity_transport_time(ts), innercity_transport_cost(ts), innercity_transport_distance(ts), innercity_transport_type(ts))`,
			want: `(20, 6.0, 3.5, "metro")`,
		},
		{
			name: "empty transport type",
			src:  "result = innercity_transport_type([])",
			want: `""`,
		},
		{
			name: "total transport minutes",
			src: `total = 0
for a in allactivities(plan):
    total += innercity_transport_time(activity_transports(a))
result = total`,
			want: "149",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, reg, plan, tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.Repr(got))
		})
	}
}

func TestLibrary_KnowledgeFunctions(t *testing.T) {
	reg, err := concept.NewRegistry(testutils.TripKB())
	require.NoError(t, err)
	plan := testutils.ValidPlan()

	got, err := run(t, reg, plan, `
kinds = set()
for a in allactivities(plan):
    if activity_type(a) == 'attraction':
        kinds.add(attraction_type(a, target_city(plan)))
result = kinds`)
	require.NoError(t, err)
	assert.Equal(t, `{"historic site", "park"}`, expr.Repr(got))

	got, err = run(t, reg, plan, "result = restaurant_type(allactivities(plan)[1], 'Beijing')")
	require.NoError(t, err)
	assert.Equal(t, `"Beijing cuisine"`, expr.Repr(got))

	got, err = run(t, reg, plan, "result = hotel_type(dailyactivities(plan, 1)[4], 'Beijing')")
	require.NoError(t, err)
	assert.Equal(t, `"luxury"`, expr.Repr(got))

	got, err = run(t, reg, plan, "result = poi_distance('Beijing', 'Forbidden City', 'Quanjude')")
	require.NoError(t, err)
	km, ok := expr.ToFloat(got)
	require.True(t, ok)
	assert.InDelta(t, 1.92, km, 0.05)

	_, err = run(t, reg, plan, "result = attraction_type(allactivities(plan)[1], 'Beijing')")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLibrary_WithoutKnowledgeBase(t *testing.T) {
	reg, err := concept.NewRegistry(nil)
	require.NoError(t, err)
	plan := testutils.ValidPlan()

	got, err := run(t, reg, plan, "result = day_count(plan)")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	_, err = run(t, reg, plan, "result = poi_distance('Beijing', 'a', 'b')")
	assert.ErrorIs(t, err, concept.ErrNoKnowledgeBase)
}

func TestLibrary_ArgumentErrors(t *testing.T) {
	reg, err := concept.NewRegistry(nil)
	require.NoError(t, err)
	plan := testutils.ValidPlan()

	tests := []struct {
		name string
		src  string
	}{
		{name: "missing argument", src: "result = day_count()"},
		{name: "extra argument", src: "result = day_count(plan, 1)"},
		{name: "plan is not a plan", src: "result = day_count(3)"},
		{name: "activity is a string", src: "result = activity_type('lunch')"},
		{name: "transports are not a list", src: "result = innercity_transport_time(5)"},
		{name: "transports hold strings", src: "result = innercity_transport_time(['taxi'])"},
		{name: "day is a string", src: "result = dailyactivities(plan, '1')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, reg, plan, tt.src)
			assert.ErrorIs(t, err, expr.ErrType)
		})
	}
}

func TestLibrary_FuncsIsFreshCopy(t *testing.T) {
	lib := concept.NewLibrary(nil)
	a := lib.Funcs()
	delete(a, "day_count")
	assert.Contains(t, lib.Funcs(), "day_count")
}

func TestTotalCost(t *testing.T) {
	assert.InDelta(t, testutils.ValidPlanTotalCost, concept.TotalCost(testutils.ValidPlan()), 1e-9)
	assert.Zero(t, concept.TotalCost(&domain.Plan{}))
}
