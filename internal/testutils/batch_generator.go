// Package testutils provides fixtures shared by the test suites: a small
// city knowledge base, plan builders, a seeded batch generator and a set of
// hostile programs for sandbox tests. It is not part of the public API.
package testutils

import (
	"fmt"
	"math/rand"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

// Defect is the single thing wrong with a generated case.
type Defect string

// Generated case defects.
const (
	DefectNone        Defect = "none"
	DefectMissingPlan Defect = "missing_plan"
	DefectTimeOverlap Defect = "time_overlap"
	DefectHardFailure Defect = "hard_failure"
)

// Defects lists every defect GenerateBatch draws from.
var Defects = []Defect{DefectNone, DefectMissingPlan, DefectTimeOverlap, DefectHardFailure}

// GeneratedCase is one query of a generated batch. Plan is nil for
// DefectMissingPlan.
type GeneratedCase struct {
	Query  domain.Query
	Plan   *domain.Plan
	Defect Defect
}

// BatchStats counts the cases of a generated batch by expected outcome.
type BatchStats struct {
	Total           int
	SchemaPass      int
	CommonsensePass int
	FullPass        int
}

// GenerateBatch returns size cases over TripQuery and ValidPlan, each with
// one defect drawn from Defects. Every query carries the same two hard
// constraints; the hard_failure defect swaps the second for one the plan
// cannot meet. The same seed always yields the same batch.
func GenerateBatch(size int, seed int64) []GeneratedCase {
	rng := rand.New(rand.NewSource(seed))

	out := make([]GeneratedCase, 0, size)
	for i := range size {
		defect := Defects[rng.Intn(len(Defects))]
		out = append(out, generateCase(fmt.Sprintf("gen-%04d", i), defect))
	}
	return out
}

func generateCase(uid string, defect Defect) GeneratedCase {
	q := TripQuery(uid)
	q.HardLogicPy = []string{
		"result = day_count(plan) == 2",
		"result = people_count(plan) == 2",
	}
	c := GeneratedCase{Query: q, Plan: ValidPlan(), Defect: defect}

	switch defect {
	case DefectMissingPlan:
		c.Plan = nil
	case DefectTimeOverlap:
		// The Forbidden City visit runs past the walk to dinner.
		c.Plan.Itinerary[0].Activities[2].EndTime = domain.MustClock("16:40")
	case DefectHardFailure:
		c.Query.HardLogicPy[1] = "result = day_count(plan) == 3"
	}
	return c
}

// Stats returns the expected outcome counts of cases.
func Stats(cases []GeneratedCase) BatchStats {
	s := BatchStats{Total: len(cases)}
	for _, c := range cases {
		if c.Defect == DefectMissingPlan {
			continue
		}
		s.SchemaPass++
		if c.Defect == DefectTimeOverlap {
			continue
		}
		s.CommonsensePass++
		if c.Defect == DefectNone {
			s.FullPass++
		}
	}
	return s
}
