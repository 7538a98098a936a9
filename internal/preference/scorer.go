// Package preference scores fully passing plans with preference programs.
// Every program result is clamped to [0, 1]; a program that fails to parse,
// run or return a number scores 0.
package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-tripcheck/internal/concept"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Options configures a Scorer.
type Options struct {
	// Programs replaces the default programs when non-empty.
	Programs []Program

	// Limits bounds every program run.
	Limits expr.Limits

	// Metrics receives program latencies. Nil discards them.
	Metrics ports.MetricsCollector
}

// Scorer runs preference programs. It is safe for concurrent use.
type Scorer struct {
	reg      *expr.Registry
	cache    *expr.Cache
	programs []Program
	limits   expr.Limits
	metrics  ports.MetricsCollector
}

// New returns a scorer over reg. A nil cache gets a private one.
func New(reg *expr.Registry, cache *expr.Cache, opts Options) (*Scorer, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: preference scorer needs a function registry", domain.ErrInvalidConfiguration)
	}
	if cache == nil {
		cache = expr.NewCache()
	}
	progs := opts.Programs
	if len(progs) == 0 {
		progs = DefaultPrograms()
	}
	s := &Scorer{
		reg:      reg,
		cache:    cache,
		programs: append([]Program(nil), progs...),
		limits:   opts.Limits,
		metrics:  opts.Metrics,
	}
	if s.metrics == nil {
		s.metrics = ports.NopMetrics{}
	}
	return s, nil
}

// Programs returns the programs Score runs, in vector order.
func (s *Scorer) Programs() []Program { return append([]Program(nil), s.programs...) }

// Width is the length of the vectors Score returns.
func (s *Scorer) Width() int { return len(s.programs) }

// Score runs the configured programs against p.
func (s *Scorer) Score(ctx context.Context, p *domain.Plan) domain.ScoreVector {
	out := domain.ZeroVector(len(s.programs))
	for i, prog := range s.programs {
		out[i], _ = s.Run(ctx, prog.Source, p)
	}
	return out
}

// ScorePrograms runs query-specific programs against p.
func (s *Scorer) ScorePrograms(ctx context.Context, programs []string, p *domain.Plan) domain.ScoreVector {
	out := domain.ZeroVector(len(programs))
	for i, src := range programs {
		out[i], _ = s.Run(ctx, src, p)
	}
	return out
}

// Run executes one program and returns its clamped score. The error says
// why a program scored 0 when it did not produce a number.
func (s *Scorer) Run(ctx context.Context, src string, p *domain.Plan) (float64, error) {
	start := time.Now()
	status := "ok"
	defer func() {
		s.metrics.RecordLatency(ports.OpProgram, time.Since(start), map[string]string{
			"family": domain.FamilyPreference,
			"status": status,
		})
	}()

	prog, err := s.cache.Compile(src)
	if err != nil {
		status = "syntax_error"
		return 0, err
	}
	v, err := prog.Run(ctx, s.reg, concept.Bindings(p), s.limits)
	if err != nil {
		status = "runtime_error"
		return 0, err
	}
	f, ok := expr.ToFloat(v)
	if !ok {
		status = "runtime_error"
		return 0, fmt.Errorf("%w: preference result is %s, not a number", expr.ErrType, expr.Repr(v))
	}
	return domain.Clamp01(f), nil
}

// Mean averages the vectors of the evaluated subset elementwise. No
// vectors gives a zero vector of width.
func Mean(vectors []domain.ScoreVector, width int) domain.ScoreVector {
	return domain.MeanVector(vectors, width)
}

// MeanByIndex averages vectors of differing lengths. Entry i is the mean
// over the vectors that have an i-th entry.
func MeanByIndex(vectors []domain.ScoreVector) domain.ScoreVector {
	width := 0
	for _, v := range vectors {
		width = max(width, len(v))
	}
	sum := domain.ZeroVector(width)
	n := make([]int, width)
	for _, v := range vectors {
		for i, x := range v {
			sum[i] += x
			n[i]++
		}
	}
	for i := range sum {
		sum[i] /= float64(n[i])
	}
	return sum
}
