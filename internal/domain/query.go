package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Programs is a list of constraint or preference program texts. It decodes
// from a JSON array of strings or from a string holding such an array, which
// is how some dataset exports serialise the field.
type Programs []string

// UnmarshalJSON accepts either form described on Programs.
func (p *Programs) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("%w: programs must be a list of strings", ErrMalformedInput)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		*p = nil
		return nil
	}
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		*p = list
		return nil
	}
	*p = Programs{text}
	return nil
}

// Query is the symbolic request a plan is judged against. It is
// immutable once loaded.
type Query struct {
	UID            string   `json:"uid"`
	StartCity      string   `json:"start_city"`
	TargetCity     string   `json:"target_city"`
	Days           int      `json:"days"`
	PeopleNumber   int      `json:"people_number"`
	NatureLanguage string   `json:"nature_language,omitempty"`
	HardLogic      []string `json:"hard_logic,omitempty"`
	HardLogicPy    Programs `json:"hard_logic_py,omitempty"`
	HardLogicNL    []string `json:"hard_logic_nl,omitempty"`
	PreferencePy   Programs `json:"preference_py,omitempty"`
}

// DecodeQuery parses a query record and checks its identifying fields.
func DecodeQuery(data []byte) (Query, error) {
	var q Query
	if err := json.Unmarshal(data, &q); err != nil {
		return Query{}, fmt.Errorf("%w: query: %v", ErrMalformedInput, err)
	}
	if strings.TrimSpace(q.UID) == "" {
		return Query{}, fmt.Errorf("%w: query has no uid", ErrMalformedInput)
	}
	return q, nil
}

// WithoutOracle returns a copy with every pre-translated hard constraint
// removed, as seen by an evaluation run without oracle translation.
func (q Query) WithoutOracle() Query {
	q.HardLogic = nil
	q.HardLogicPy = nil
	q.HardLogicNL = nil
	return q
}
