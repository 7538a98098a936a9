package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMatrix(t *testing.T, ids, rules []string) *ViolationMatrix {
	t.Helper()
	m, err := NewViolationMatrix(ids, rules)
	require.NoError(t, err)
	return m
}

func TestNewViolationMatrix(t *testing.T) {
	t.Run("every cell starts satisfied", func(t *testing.T) {
		m := newMatrix(t, []string{"a", "b"}, []string{"r1", "r2", "r3"})

		for _, id := range m.IDs() {
			row, ok := m.Row(id)
			require.True(t, ok)
			assert.Equal(t, []Cell{CellSatisfied, CellSatisfied, CellSatisfied}, row)
		}
		assert.Equal(t, 6, m.DefinedCells())
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		_, err := NewViolationMatrix([]string{"a", "a"}, []string{"r"})
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})

	t.Run("duplicate rules rejected", func(t *testing.T) {
		_, err := NewViolationMatrix([]string{"a"}, []string{"r", "r"})
		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})
}

func TestViolationMatrixSetAndCell(t *testing.T) {
	m := newMatrix(t, []string{"a"}, []string{"r"})

	require.NoError(t, m.Set("a", "r", CellViolated))
	c, err := m.Cell("a", "r")
	require.NoError(t, err)
	assert.Equal(t, CellViolated, c)

	assert.True(t, errors.Is(m.Set("zzz", "r", CellViolated), ErrUnknownQuery))
	assert.True(t, errors.Is(m.Set("a", "zzz", CellViolated), ErrUnknownRule))
	_, err = m.Cell("a", "zzz")
	assert.True(t, errors.Is(err, ErrUnknownRule))
}

func TestViolationMatrixRowOrderIsCanonical(t *testing.T) {
	ids := []string{"q3", "q1", "q2"}
	m := newMatrix(t, ids, []string{"r"})
	require.NoError(t, m.Set("q2", "r", CellViolated))

	assert.Equal(t, ids, m.IDs())
	assert.Equal(t, []string{"q3", "q1"}, m.PassIDs())
}

func TestViolationMatrixRates(t *testing.T) {
	t.Run("empty matrix", func(t *testing.T) {
		m := newMatrix(t, nil, []string{"r"})
		assert.Equal(t, 0.0, m.MacroRate())
		assert.Equal(t, 0.0, m.MicroRate())
	})

	t.Run("rows without defined cells are vacuously satisfied", func(t *testing.T) {
		m := newMatrix(t, []string{"a"}, nil)
		assert.Equal(t, 1.0, m.MicroRate())
		assert.Equal(t, 1.0, m.MacroRate())
	})

	t.Run("macro and micro diverge", func(t *testing.T) {
		// One of four cells violated: micro 0.75, but the only row fails.
		m := newMatrix(t, []string{"a"}, []string{"r1", "r2", "r3", "r4"})
		require.NoError(t, m.Set("a", "r2", CellViolated))

		assert.Equal(t, 0.0, m.MacroRate())
		assert.InDelta(t, 0.75, m.MicroRate(), 1e-12)
	})

	t.Run("not applicable cells excluded from micro", func(t *testing.T) {
		m := newMatrix(t, []string{"a", "b"}, []string{"logic_0", "logic_1"})
		require.NoError(t, m.Set("a", "logic_1", CellNotApplicable))
		require.NoError(t, m.Set("b", "logic_0", CellViolated))

		assert.Equal(t, 3, m.DefinedCells())
		assert.InDelta(t, 2.0/3.0, m.MicroRate(), 1e-12)
		assert.InDelta(t, 0.5, m.MacroRate(), 1e-12)
	})
}

func TestViolationMatrixMicroMonotonic(t *testing.T) {
	ids := []string{"a", "b", "c"}
	rules := []string{"r1", "r2", "r3"}
	m := newMatrix(t, ids, rules)

	prev := m.MicroRate()
	for _, id := range ids {
		for _, r := range rules {
			require.NoError(t, m.Set(id, r, CellViolated))
			cur := m.MicroRate()
			assert.LessOrEqual(t, cur, prev, "adding a violation must not raise micro accuracy")
			prev = cur
		}
	}
	assert.Equal(t, 0.0, prev)

	for _, id := range ids {
		for _, r := range rules {
			require.NoError(t, m.Set(id, r, CellSatisfied))
			cur := m.MicroRate()
			assert.GreaterOrEqual(t, cur, prev, "removing a violation must not lower micro accuracy")
			prev = cur
		}
	}
	assert.Equal(t, 1.0, prev)
}

func TestViolationMatrixIncompleteRowNeverPasses(t *testing.T) {
	m := newMatrix(t, []string{"a", "b"}, []string{"r"})
	require.NoError(t, m.MarkIncomplete("a"))

	assert.False(t, m.RowPasses("a"))
	assert.Equal(t, 0, m.RowViolations("a"))
	assert.Equal(t, []string{"b"}, m.PassIDs())
	assert.Equal(t, 1.0, m.MicroRate())
	assert.Equal(t, 0.5, m.MacroRate())
}

func TestViolationMatrixFillRowSkipsNotApplicable(t *testing.T) {
	m := newMatrix(t, []string{"a"}, []string{"logic_0", "logic_1"})
	require.NoError(t, m.Set("a", "logic_1", CellNotApplicable))
	require.NoError(t, m.FillRow("a", CellViolated))

	row, _ := m.Row("a")
	assert.Equal(t, []Cell{CellViolated, CellNotApplicable}, row)
}

func TestViolationMatrixRestrict(t *testing.T) {
	m := newMatrix(t, []string{"a", "b", "c"}, []string{"r1", "r2"})
	require.NoError(t, m.Set("a", "r1", CellViolated))
	require.NoError(t, m.Set("c", "r2", CellViolated))

	t.Run("full set equals unrestricted", func(t *testing.T) {
		all := m.Restrict(map[string]bool{"a": true, "b": true, "c": true})
		assert.Equal(t, m.MicroRate(), all.MicroRate())
		assert.Equal(t, m.MacroRate(), all.MacroRate())
	})

	t.Run("subset keeps canonical order", func(t *testing.T) {
		sub := m.Restrict(map[string]bool{"c": true, "b": true})
		assert.Equal(t, []string{"b", "c"}, sub.IDs())
		assert.InDelta(t, 0.75, sub.MicroRate(), 1e-12)
		assert.InDelta(t, 0.5, sub.MacroRate(), 1e-12)
	})

	t.Run("empty subset", func(t *testing.T) {
		sub := m.Restrict(map[string]bool{})
		assert.Equal(t, 0.0, sub.MicroRate())
		assert.Equal(t, 0.0, sub.MacroRate())
	})
}

func TestViolationMatrixMarshalJSON(t *testing.T) {
	m := newMatrix(t, []string{"a"}, []string{"r1", "r2"})
	require.NoError(t, m.Set("a", "r2", CellViolated))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rules":["r1","r2"],"rows":[{"id":"a","cells":[0,1]}]}`, string(data))
}
