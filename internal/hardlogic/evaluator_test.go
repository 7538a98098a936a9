package hardlogic_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tripcheck/internal/concept"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
	"github.com/ahrav/go-tripcheck/internal/hardlogic"
	"github.com/ahrav/go-tripcheck/internal/ports"
	"github.com/ahrav/go-tripcheck/internal/testutils"
)

type stubTranslator struct {
	programs []string
	err      error
	seen     domain.Query
}

func (s *stubTranslator) Translate(_ context.Context, q domain.Query) ([]string, error) {
	s.seen = q
	return s.programs, s.err
}

type latencyRecorder struct {
	ports.NopMetrics
	mu     sync.Mutex
	status []string
}

func (r *latencyRecorder) RecordLatency(_ string, _ time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = append(r.status, labels["status"])
}

func newEvaluator(t *testing.T, opts hardlogic.Options) *hardlogic.Evaluator {
	t.Helper()
	reg, err := concept.NewRegistry(testutils.TripKB())
	require.NoError(t, err)
	ev, err := hardlogic.New(reg, expr.NewCache(), opts)
	require.NoError(t, err)
	return ev
}

func TestColumns(t *testing.T) {
	assert.Equal(t, "logic_1", hardlogic.Column(1))
	assert.Equal(t, []string{"logic_1", "logic_2", "logic_3"}, hardlogic.Columns(3))
	assert.Empty(t, hardlogic.Columns(0))
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := hardlogic.New(nil, nil, hardlogic.Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestEvaluate(t *testing.T) {
	metrics := &latencyRecorder{}
	ev := newEvaluator(t, hardlogic.Options{Oracle: true, Metrics: metrics})
	plan := testutils.ValidPlan()

	tests := []struct {
		name     string
		program  string
		violated bool
	}{
		{name: "day count holds", program: "result = day_count(plan) == 2"},
		{name: "budget exceeded", program: "result = total_cost(plan) <= 4000", violated: true},
		{name: "budget met", program: "result = total_cost(plan) <= 5000"},
		{
			name: "multi-line attraction type constraint",
			program: `
attraction_types = set()
for activity in allactivities(plan):
    if activity_type(activity) == 'attraction':
        attraction_types.add(attraction_type(activity, target_city(plan)))
result = 'park' in attraction_types
`,
		},
		{
			name: "restaurant type not visited",
			program: `
types = set()
for activity in allactivities(plan):
    if activity_type(activity) in ['breakfast', 'lunch', 'dinner']:
        types.add(restaurant_type(activity, target_city(plan)))
result = 'hotpot' in types
`,
			violated: true,
		},
		{name: "empty list is falsy", program: "result = []", violated: true},
		{name: "syntax error", program: "result = (", violated: true},
		{name: "division by zero", program: "result = 1 / 0", violated: true},
		{name: "result never assigned", program: "x = 1", violated: true},
		{name: "unknown function", program: "result = open('x')", violated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ev.Evaluate(context.Background(), domain.Query{UID: "q1"}, plan, []string{tt.program})
			require.Len(t, out.Violated, 1)
			assert.Equal(t, tt.violated, out.Violated[0])
			assert.Equal(t, !tt.violated, out.Passed())
			if tt.violated {
				require.Len(t, out.Diagnostics, 1)
				assert.Equal(t, domain.FamilyHard, out.Diagnostics[0].Family)
				assert.Equal(t, "logic_1", out.Diagnostics[0].Rule)
			} else {
				assert.Empty(t, out.Diagnostics)
			}
		})
	}

	assert.Len(t, metrics.status, len(tests))
	assert.Contains(t, metrics.status, "syntax_error")
	assert.Contains(t, metrics.status, "runtime_error")
	assert.Contains(t, metrics.status, "ok")
}

func TestEvaluate_KeepsProgramOrder(t *testing.T) {
	ev := newEvaluator(t, hardlogic.Options{Oracle: true})
	out := ev.Evaluate(context.Background(), domain.Query{UID: "q1"}, testutils.ValidPlan(), []string{
		"result = True",
		"result = False",
		"result = people_count(plan) == 2",
	})
	assert.Equal(t, []bool{false, true, false}, out.Violated)
	assert.False(t, out.Passed())
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, "logic_2", out.Diagnostics[0].Rule)
	assert.Contains(t, out.Diagnostics[0].Message, "result = False")
}

func TestEvaluate_NoPrograms(t *testing.T) {
	ev := newEvaluator(t, hardlogic.Options{Oracle: true})
	out := ev.Evaluate(context.Background(), domain.Query{UID: "q1"}, testutils.ValidPlan(), nil)
	assert.Empty(t, out.Violated)
	assert.True(t, out.Passed())
}

func TestEvaluate_StepLimit(t *testing.T) {
	ev := newEvaluator(t, hardlogic.Options{Oracle: true, Limits: expr.Limits{MaxSteps: 100}})
	ok, err := ev.Check(context.Background(), `
n = 0
for i in range(1000):
    n += i
result = n > 0
`, testutils.ValidPlan())
	assert.False(t, ok)
	assert.ErrorIs(t, err, expr.ErrStepLimit)
}

func TestPrograms(t *testing.T) {
	q := testutils.TripQuery("q1")
	q.HardLogicPy = domain.Programs{"result = True"}
	q.HardLogic = []string{"days==2"}

	t.Run("oracle reads the query", func(t *testing.T) {
		tr := &stubTranslator{programs: []string{"result = False"}}
		ev := newEvaluator(t, hardlogic.Options{Oracle: true, Translator: tr})
		got, err := ev.Programs(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"result = True"}, got)
		assert.Empty(t, tr.seen.UID)
	})

	t.Run("translator sees no oracle fields", func(t *testing.T) {
		tr := &stubTranslator{programs: []string{"result = False"}}
		ev := newEvaluator(t, hardlogic.Options{Translator: tr})
		got, err := ev.Programs(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"result = False"}, got)
		assert.Equal(t, "q1", tr.seen.UID)
		assert.Empty(t, tr.seen.HardLogicPy)
		assert.Empty(t, tr.seen.HardLogic)
	})

	t.Run("no translator", func(t *testing.T) {
		ev := newEvaluator(t, hardlogic.Options{})
		got, err := ev.Programs(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing translation", func(t *testing.T) {
		ev := newEvaluator(t, hardlogic.Options{Translator: &stubTranslator{err: ports.ErrNoTranslation}})
		got, err := ev.Programs(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("translator failure", func(t *testing.T) {
		errBroken := errors.New("broken file")
		ev := newEvaluator(t, hardlogic.Options{Translator: &stubTranslator{err: errBroken}})
		_, err := ev.Programs(context.Background(), q)
		assert.ErrorIs(t, err, errBroken)
		assert.ErrorIs(t, err, domain.ErrRuleEvaluation)
	})
}

func TestEvaluate_AdversarialPrograms(t *testing.T) {
	ev := newEvaluator(t, hardlogic.Options{Oracle: true})
	plan := testutils.ValidPlan()

	programs := make([]string, 0, len(testutils.AdversarialPrograms))
	for _, tc := range testutils.AdversarialPrograms {
		programs = append(programs, tc.Source)
		t.Run(tc.Name, func(t *testing.T) {
			ok, err := ev.Check(context.Background(), tc.Source, plan)
			assert.False(t, ok)
			require.Error(t, err)
			if tc.WantErr != nil {
				assert.ErrorIs(t, err, tc.WantErr)
			}
		})
	}

	out := ev.Evaluate(context.Background(), domain.Query{UID: "q1"}, plan, programs)
	require.Len(t, out.Violated, len(programs))
	for i, v := range out.Violated {
		assert.True(t, v, testutils.AdversarialPrograms[i].Name)
	}
	assert.Len(t, out.Diagnostics, len(programs))
}

func TestCheck_SelfReferentialResultIsTruthy(t *testing.T) {
	ev := newEvaluator(t, hardlogic.Options{Oracle: true})
	ok, err := ev.Check(context.Background(), testutils.SelfReferentialResult, testutils.ValidPlan())
	require.NoError(t, err)
	assert.True(t, ok)
}
