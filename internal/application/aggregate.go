package application

import "github.com/ahrav/go-tripcheck/internal/domain"

// percent scales a fraction to the 0-100 range of the scores record.
const percent = 100

// Aggregate derives the scores record from a report. Rates are scaled to
// percent; the preference sub-scores are the first three entries of the
// mean preference vector, which the default programs fill in the order
// attraction density, transport time, dining rate.
func Aggregate(rep *Report) domain.Scores {
	s := domain.Scores{
		MicEPR: rep.CommonsenseMicro * percent,
		MacEPR: rep.CommonsenseMacro * percent,
		CLPR:   rep.HardRates.ConditionalMicro * percent,
		FPR:    FullPassRate(len(rep.FullPassIDs), len(rep.Outcomes)),
	}
	pref := func(i int) float64 {
		if i < len(rep.Preference) {
			return rep.Preference[i] * percent
		}
		return 0
	}
	s.DAV, s.ATT, s.DDR = pref(0), pref(1), pref(2)
	s.ComputeOverall()
	return s
}

// FullPassRate is passed over total in percent. An empty batch scores 0.
func FullPassRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * percent
}
