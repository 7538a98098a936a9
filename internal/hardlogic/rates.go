package hardlogic

import "github.com/ahrav/go-tripcheck/internal/domain"

// Rates are the hard-constraint pass rates of a batch, as fractions.
type Rates struct {
	Macro            float64 `json:"macro"`
	Micro            float64 `json:"micro"`
	ConditionalMacro float64 `json:"conditional_macro"`
	ConditionalMicro float64 `json:"conditional_micro"`
}

// ComputeRates derives the unconditional rates over every row of m and the
// conditional rates over the rows whose ids are in passIDs, typically the
// queries that passed the commonsense checks. An empty pass set gives
// conditional rates of 0.
func ComputeRates(m *domain.ViolationMatrix, passIDs []string) Rates {
	keep := make(map[string]bool, len(passIDs))
	for _, id := range passIDs {
		keep[id] = true
	}
	cond := m.Restrict(keep)
	return Rates{
		Macro:            m.MacroRate(),
		Micro:            m.MicroRate(),
		ConditionalMacro: cond.MacroRate(),
		ConditionalMicro: cond.MicroRate(),
	}
}
