package commonsense

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Space rule columns.
const (
	RuleSpaceContinuity = "space_continuity"
	RuleSpaceReachable  = "space_reachable"
)

// SpaceCheck verifies that the travellers never teleport: moving between
// two places needs transport, and the time between activities on the same
// day must cover the straight-line distance at the fastest mode used.
type SpaceCheck struct{ base }

var _ ports.Check = (*SpaceCheck)(nil)

// Name implements ports.Check.
func (*SpaceCheck) Name() string { return "space" }

// Rules implements ports.Check.
func (*SpaceCheck) Rules() []string { return []string{RuleSpaceContinuity, RuleSpaceReachable} }

// Check implements ports.Check.
func (c *SpaceCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	res := domain.NewCheckResult()
	where := city(q, p)

	err := walk(p, func(s step) error {
		if s.prev == nil {
			return nil
		}
		from, to := s.prev.Arrival(), s.act.Departure()
		if domain.SameName(from, to) {
			return nil
		}
		if len(s.act.Transports) == 0 {
			res.Violate(c.Name(), RuleSpaceContinuity, fmt.Sprintf("%s: no transport from %q to %q", s.ref, from, to))
		}
		if !s.sameDay {
			return nil
		}

		dist, err := c.geoDistance(ctx, where, from, to)
		if err != nil {
			return err
		}
		if dist == 0 {
			return nil
		}
		speed := c.fastest(s.act.Transports)
		need := dist / speed * 60
		have := int(s.act.StartTime - s.prev.EndTime)
		if float64(have+c.cfg.SlackMinutes) < need {
			res.Violate(c.Name(), RuleSpaceReachable, fmt.Sprintf("%s: %.1f km from %q in %d min needs %.0f",
				s.ref, dist, from, have, need))
		}
		return nil
	})
	return res, err
}

// fastest returns the top speed among the legs, or taxi speed when there
// are none.
func (c *SpaceCheck) fastest(legs []domain.Transport) float64 {
	if len(legs) == 0 {
		return c.cfg.TaxiSpeedKmh
	}
	best := 0.0
	for _, l := range legs {
		if v, ok := c.cfg.speed(l.Mode); ok && v > best {
			best = v
		}
	}
	if best == 0 {
		return c.cfg.TaxiSpeedKmh
	}
	return best
}
