package domain

import (
	"encoding/json"
	"math"
)

// Rule families reported in diagnostics and metrics.
const (
	FamilySchema      = "schema"
	FamilyCommonsense = "commonsense"
	FamilyHard        = "hard"
	FamilyPreference  = "preference"
)

// Diagnostic is a human-readable explanation attached to a violated rule.
type Diagnostic struct {
	Family  string `json:"family"`
	Check   string `json:"check,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

// CheckResult is what a single commonsense check reports for one query:
// the subset of its declared rules that were violated plus diagnostics.
type CheckResult struct {
	Violated    map[string]bool
	Diagnostics []Diagnostic
}

// NewCheckResult returns an empty result.
func NewCheckResult() CheckResult {
	return CheckResult{Violated: make(map[string]bool)}
}

// Violate records a violated rule with a message.
func (r *CheckResult) Violate(check, rule, msg string) {
	if r.Violated == nil {
		r.Violated = make(map[string]bool)
	}
	r.Violated[rule] = true
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Family:  FamilyCommonsense,
		Check:   check,
		Rule:    rule,
		Message: msg,
	})
}

// Passed reports whether no rule was violated.
func (r CheckResult) Passed() bool { return len(r.Violated) == 0 }

// QueryOutcome collects everything the engine learned about one query.
type QueryOutcome struct {
	QueryID           string       `json:"query_id"`
	SchemaPassed      bool         `json:"schema_passed"`
	SchemaErrors      []string     `json:"schema_errors,omitempty"`
	CommonsensePassed bool         `json:"commonsense_passed"`
	HardPassed        bool         `json:"hard_passed"`
	FullPass          bool         `json:"full_pass"`
	Preference        ScoreVector  `json:"preference"`
	QueryPreference   ScoreVector  `json:"query_preference,omitempty"`
	Diagnostics       []Diagnostic `json:"diagnostics,omitempty"`
}

// Scores is the summary record of an evaluation run. Rates are percentages.
type Scores struct {
	MicEPR  float64
	MacEPR  float64
	CLPR    float64
	FPR     float64
	DAV     float64
	ATT     float64
	DDR     float64
	Overall float64
}

// Overall-score weights. They are a fixed scoring policy.
const (
	WeightCommonsense = 0.2
	WeightHard        = 0.25
	WeightPreference  = 0.05
	WeightFullPass    = 0.4
)

// ComputeOverall fills Overall from the other fields.
func (s *Scores) ComputeOverall() {
	s.Overall = WeightCommonsense*s.MicEPR +
		WeightHard*s.CLPR +
		WeightPreference*s.DAV +
		WeightPreference*s.ATT +
		WeightPreference*s.DDR +
		WeightFullPass*s.FPR
}

// Map returns the scores under their record keys. Non-finite values are
// mapped to 0.
func (s Scores) Map() map[string]float64 {
	return map[string]float64{
		"MicEPR":  JSONNumber(s.MicEPR),
		"MacEPR":  JSONNumber(s.MacEPR),
		"C-LPR":   JSONNumber(s.CLPR),
		"FPR":     JSONNumber(s.FPR),
		"DAV":     JSONNumber(s.DAV),
		"ATT":     JSONNumber(s.ATT),
		"DDR":     JSONNumber(s.DDR),
		"overall": JSONNumber(s.Overall),
	}
}

// MarshalJSON is the single typed-to-JSON-number boundary for scores.
// Non-finite values cannot be represented in JSON and are written as 0.
func (s Scores) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON reads the record written by MarshalJSON.
func (s *Scores) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = Scores{
		MicEPR:  m["MicEPR"],
		MacEPR:  m["MacEPR"],
		CLPR:    m["C-LPR"],
		FPR:     m["FPR"],
		DAV:     m["DAV"],
		ATT:     m["ATT"],
		DDR:     m["DDR"],
		Overall: m["overall"],
	}
	return nil
}

// JSONNumber converts a float to a JSON-representable number.
func JSONNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
