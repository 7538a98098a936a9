package domain

import (
	"encoding/json"
	"fmt"
)

// Cell is one entry of a ViolationMatrix.
type Cell int8

// Cell states. NotApplicable marks a rule that does not exist for a row,
// such as the third hard constraint of a query that declares two; such
// cells are excluded from micro rates.
const (
	CellSatisfied     Cell = 0
	CellViolated      Cell = 1
	CellNotApplicable Cell = -1
)

// ViolationMatrix maps query id × rule name to a Cell. Rows keep the
// canonical query order they were created with and every rule column
// exists for every row from construction on.
type ViolationMatrix struct {
	ids        []string
	rowIndex   map[string]int
	rules      []string
	ruleIndex  map[string]int
	cells      [][]Cell
	incomplete []bool
}

// NewViolationMatrix creates a matrix with every cell satisfied. Duplicate
// ids or rules are rejected.
func NewViolationMatrix(ids, rules []string) (*ViolationMatrix, error) {
	m := &ViolationMatrix{
		ids:        append([]string(nil), ids...),
		rowIndex:   make(map[string]int, len(ids)),
		rules:      append([]string(nil), rules...),
		ruleIndex:  make(map[string]int, len(rules)),
		cells:      make([][]Cell, len(ids)),
		incomplete: make([]bool, len(ids)),
	}
	for i, id := range ids {
		if _, dup := m.rowIndex[id]; dup {
			return nil, fmt.Errorf("%w: duplicate query id %q", ErrInvalidConfiguration, id)
		}
		m.rowIndex[id] = i
		m.cells[i] = make([]Cell, len(rules))
	}
	for j, r := range rules {
		if _, dup := m.ruleIndex[r]; dup {
			return nil, fmt.Errorf("%w: duplicate rule %q", ErrInvalidConfiguration, r)
		}
		m.ruleIndex[r] = j
	}
	return m, nil
}

// IDs returns the row ids in canonical order.
func (m *ViolationMatrix) IDs() []string { return append([]string(nil), m.ids...) }

// Rules returns the column names in declaration order.
func (m *ViolationMatrix) Rules() []string { return append([]string(nil), m.rules...) }

// Set writes a single cell.
func (m *ViolationMatrix) Set(id, rule string, c Cell) error {
	i, ok := m.rowIndex[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuery, id)
	}
	j, ok := m.ruleIndex[rule]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRule, rule)
	}
	m.cells[i][j] = c
	return nil
}

// Cell reads a single cell.
func (m *ViolationMatrix) Cell(id, rule string) (Cell, error) {
	i, ok := m.rowIndex[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownQuery, id)
	}
	j, ok := m.ruleIndex[rule]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRule, rule)
	}
	return m.cells[i][j], nil
}

// FillRow sets every applicable cell of a row to c.
func (m *ViolationMatrix) FillRow(id string, c Cell) error {
	i, ok := m.rowIndex[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuery, id)
	}
	for j := range m.cells[i] {
		if m.cells[i][j] != CellNotApplicable {
			m.cells[i][j] = c
		}
	}
	return nil
}

// MarkIncomplete records that at least one rule for the row could not be
// evaluated. The row keeps its cells but can no longer pass.
func (m *ViolationMatrix) MarkIncomplete(id string) error {
	i, ok := m.rowIndex[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuery, id)
	}
	m.incomplete[i] = true
	return nil
}

// Row returns a copy of a row's cells in column order.
func (m *ViolationMatrix) Row(id string) ([]Cell, bool) {
	i, ok := m.rowIndex[id]
	if !ok {
		return nil, false
	}
	return append([]Cell(nil), m.cells[i]...), true
}

// RowViolations counts violated cells in a row.
func (m *ViolationMatrix) RowViolations(id string) int {
	i, ok := m.rowIndex[id]
	if !ok {
		return 0
	}
	return countViolated(m.cells[i])
}

// RowPasses reports whether a row has no violations and was fully evaluated.
func (m *ViolationMatrix) RowPasses(id string) bool {
	i, ok := m.rowIndex[id]
	if !ok {
		return false
	}
	return !m.incomplete[i] && countViolated(m.cells[i]) == 0
}

// PassIDs returns the passing row ids in canonical order.
func (m *ViolationMatrix) PassIDs() []string {
	var out []string
	for _, id := range m.ids {
		if m.RowPasses(id) {
			out = append(out, id)
		}
	}
	return out
}

// ViolatedCells counts violated cells across the matrix.
func (m *ViolationMatrix) ViolatedCells() int {
	n := 0
	for _, row := range m.cells {
		n += countViolated(row)
	}
	return n
}

// DefinedCells counts cells that are not NotApplicable.
func (m *ViolationMatrix) DefinedCells() int {
	n := 0
	for _, row := range m.cells {
		for _, c := range row {
			if c != CellNotApplicable {
				n++
			}
		}
	}
	return n
}

// MacroRate is the fraction of rows that pass. An empty matrix yields 0.
func (m *ViolationMatrix) MacroRate() float64 {
	if len(m.ids) == 0 {
		return 0
	}
	return float64(len(m.PassIDs())) / float64(len(m.ids))
}

// MicroRate is 1 minus the violated share of defined cells. A matrix with
// rows but no defined cells is vacuously satisfied; an empty matrix yields 0.
func (m *ViolationMatrix) MicroRate() float64 {
	if len(m.ids) == 0 {
		return 0
	}
	defined := m.DefinedCells()
	if defined == 0 {
		return 1
	}
	return 1 - float64(m.ViolatedCells())/float64(defined)
}

// Restrict returns a matrix holding only the rows whose ids are in keep,
// still in canonical order.
func (m *ViolationMatrix) Restrict(keep map[string]bool) *ViolationMatrix {
	out := &ViolationMatrix{
		rowIndex:  make(map[string]int),
		rules:     append([]string(nil), m.rules...),
		ruleIndex: m.ruleIndex,
	}
	for i, id := range m.ids {
		if !keep[id] {
			continue
		}
		out.rowIndex[id] = len(out.ids)
		out.ids = append(out.ids, id)
		out.cells = append(out.cells, append([]Cell(nil), m.cells[i]...))
		out.incomplete = append(out.incomplete, m.incomplete[i])
	}
	return out
}

type matrixRowJSON struct {
	ID         string `json:"id"`
	Cells      []Cell `json:"cells"`
	Incomplete bool   `json:"incomplete,omitempty"`
}

// MarshalJSON encodes the matrix as rules plus ordered rows.
func (m *ViolationMatrix) MarshalJSON() ([]byte, error) {
	rows := make([]matrixRowJSON, len(m.ids))
	for i, id := range m.ids {
		rows[i] = matrixRowJSON{ID: id, Cells: m.cells[i], Incomplete: m.incomplete[i]}
	}
	return json.Marshal(struct {
		Rules []string        `json:"rules"`
		Rows  []matrixRowJSON `json:"rows"`
	}{Rules: m.rules, Rows: rows})
}

func countViolated(row []Cell) int {
	n := 0
	for _, c := range row {
		if c == CellViolated {
			n++
		}
	}
	return n
}
