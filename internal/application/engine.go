// Package application runs evaluation batches. The Engine drives every
// query through schema validation, the commonsense checks, the hard
// constraints and preference scoring, then aggregates the results into
// violation matrices and a scores record.
package application

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-tripcheck/internal/commonsense"
	"github.com/ahrav/go-tripcheck/internal/concept"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
	"github.com/ahrav/go-tripcheck/internal/hardlogic"
	"github.com/ahrav/go-tripcheck/internal/ports"
	"github.com/ahrav/go-tripcheck/internal/preference"
	"github.com/ahrav/go-tripcheck/internal/schema"
)

// SchemaRule is the single column of the schema matrix.
const SchemaRule = "schema"

// Phase names used for spans, logs and the phase latency metric.
const (
	PhaseSchema      = "schema"
	PhaseCommonsense = "commonsense"
	PhaseTranslate   = "translate"
	PhaseHard        = "hard"
	PhasePreference  = "preference"
)

// progressInterval throttles per-query progress logs.
const progressInterval = 2 * time.Second

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger     *zap.Logger
	metrics    ports.MetricsCollector
	checks     []ports.Check
	translator ports.Translator
	validator  *schema.Validator
	tracer     trace.TracerProvider
	programs   []preference.Program
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(o *engineOptions) { o.logger = l } }

// WithMetrics sets the metrics collector.
func WithMetrics(m ports.MetricsCollector) Option { return func(o *engineOptions) { o.metrics = m } }

// WithChecks replaces the default commonsense checks.
func WithChecks(checks []ports.Check) Option {
	return func(o *engineOptions) { o.checks = checks }
}

// WithTranslator supplies hard constraints for non-oracle runs.
func WithTranslator(t ports.Translator) Option { return func(o *engineOptions) { o.translator = t } }

// WithSchemaValidator replaces the validator built from Config.Schema.
func WithSchemaValidator(v *schema.Validator) Option {
	return func(o *engineOptions) { o.validator = v }
}

// WithTracerProvider sets where spans go. The default is the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *engineOptions) { o.tracer = tp }
}

// WithPreferencePrograms replaces the three default preference programs.
func WithPreferencePrograms(p []preference.Program) Option {
	return func(o *engineOptions) { o.programs = p }
}

// Engine evaluates batches. It holds no per-batch state and is safe for
// concurrent use.
type Engine struct {
	cfg       Config
	validator *schema.Validator
	runner    *commonsense.Runner
	hard      *hardlogic.Evaluator
	scorer    *preference.Scorer
	logger    *zap.Logger
	metrics   ports.MetricsCollector
	tracer    trace.Tracer
}

// NewEngine wires the evaluation components. Any error is a configuration
// error and means no batch can be evaluated.
func NewEngine(cfg Config, kb ports.KnowledgeBase, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = ports.NopMetrics{}
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider()
	}

	v := o.validator
	if v == nil {
		var err error
		if cfg.Schema.Path != "" {
			v, err = schema.NewFromFile(cfg.Schema.Path)
		} else {
			v, err = schema.New()
		}
		if err != nil {
			return nil, err
		}
	}

	checks := o.checks
	if checks == nil {
		var err error
		if checks, err = commonsense.New(kb, cfg.Commonsense); err != nil {
			return nil, err
		}
	}
	runner, err := commonsense.NewRunner(checks)
	if err != nil {
		return nil, err
	}

	reg, err := concept.NewRegistry(kb)
	if err != nil {
		return nil, fmt.Errorf("%w: function registry: %v", domain.ErrInvalidConfiguration, err)
	}
	cache := expr.NewCache()
	hard, err := hardlogic.New(reg, cache, hardlogic.Options{
		Oracle:     cfg.Engine.Oracle,
		Translator: o.translator,
		Limits:     cfg.Limits,
		Metrics:    o.metrics,
	})
	if err != nil {
		return nil, err
	}
	scorer, err := preference.New(reg, cache, preference.Options{
		Programs: o.programs,
		Limits:   cfg.Limits,
		Metrics:  o.metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		validator: v,
		runner:    runner,
		hard:      hard,
		scorer:    scorer,
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    o.tracer.Tracer("tripcheck-engine"),
	}, nil
}

// Rules returns the commonsense rule columns.
func (e *Engine) Rules() []string { return e.runner.Rules() }

// Report is everything an evaluation run produced.
type Report struct {
	RunID string `json:"run_id"`

	Schema      *domain.ViolationMatrix `json:"schema"`
	Commonsense *domain.ViolationMatrix `json:"commonsense"`
	Hard        *domain.ViolationMatrix `json:"hard"`

	SchemaPassIDs      []string `json:"schema_pass_ids"`
	CommonsensePassIDs []string `json:"commonsense_pass_ids"`
	HardPassIDs        []string `json:"hard_pass_ids"`
	FullPassIDs        []string `json:"full_pass_ids"`

	// Rates are fractions in [0, 1].
	SchemaRate       float64         `json:"schema_rate"`
	CommonsenseMacro float64         `json:"commonsense_macro"`
	CommonsenseMicro float64         `json:"commonsense_micro"`
	HardRates        hardlogic.Rates `json:"hard_rates"`

	// Preference is the mean default score vector over fully passing
	// queries. QueryPreference is the mean of their own programs by index.
	Preference      domain.ScoreVector `json:"preference"`
	QueryPreference domain.ScoreVector `json:"query_preference,omitempty"`

	Outcomes []domain.QueryOutcome `json:"outcomes"`
	Scores   domain.Scores         `json:"scores"`
}

// row is the per-query working state of a run. Each phase writes only to
// its own row.
type row struct {
	plan         *domain.Plan
	schema       schema.Result
	commonsense  commonsense.Evaluation
	programs     []string
	translateErr error
	hard         hardlogic.Outcome
	preference   domain.ScoreVector
	queryPref    domain.ScoreVector
}

type run struct {
	e        *Engine
	id       string
	logger   *zap.Logger
	progress *rate.Sometimes
	items    []Item
	rows     []row
}

// Evaluate runs every phase over the batch. Per-query failures are
// recorded in the report; only cancellation and configuration problems
// such as duplicate query ids return an error.
func (e *Engine) Evaluate(ctx context.Context, b Batch) (*Report, error) {
	r := &run{
		e:        e,
		id:       uuid.NewString(),
		progress: &rate.Sometimes{Interval: progressInterval},
		items:    b.Items,
		rows:     make([]row, len(b.Items)),
	}
	r.logger = e.logger.With(zap.String("run_id", r.id))

	ctx, span := e.tracer.Start(ctx, "Engine.Evaluate", trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.Int("batch.size", len(b.Items)),
		attribute.Bool("oracle", e.cfg.Engine.Oracle),
	))
	defer span.End()

	r.logger.Info("evaluation started", zap.Int("queries", len(b.Items)), zap.Bool("oracle", e.cfg.Engine.Oracle))
	start := time.Now()

	rep, err := r.execute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("evaluation failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("full_pass.count", len(rep.FullPassIDs)),
		attribute.Float64("score.overall", rep.Scores.Overall),
	)
	span.SetStatus(codes.Ok, "evaluation completed")
	r.logger.Info("evaluation finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("full_pass", len(rep.FullPassIDs)),
		zap.Float64("overall", rep.Scores.Overall))
	return rep, nil
}

func (r *run) execute(ctx context.Context) (*Report, error) {
	e := r.e
	ids := make([]string, len(r.items))
	for i, it := range r.items {
		ids[i] = it.Query.UID
	}
	schemaM, err := domain.NewViolationMatrix(ids, []string{SchemaRule})
	if err != nil {
		return nil, err
	}
	csM, err := domain.NewViolationMatrix(ids, e.runner.Rules())
	if err != nil {
		return nil, err
	}

	if err := r.phase(ctx, PhaseSchema, r.checkSchema); err != nil {
		return nil, err
	}
	if err := r.phase(ctx, PhaseCommonsense, r.checkCommonsense); err != nil {
		return nil, err
	}
	if err := r.phase(ctx, PhaseTranslate, r.translate); err != nil {
		return nil, err
	}

	width := 0
	for _, rw := range r.rows {
		width = max(width, len(rw.programs))
		if rw.translateErr != nil {
			width = max(width, 1)
		}
	}
	hardM, err := domain.NewViolationMatrix(ids, hardlogic.Columns(width))
	if err != nil {
		return nil, err
	}
	if err := r.phase(ctx, PhaseHard, r.checkHard); err != nil {
		return nil, err
	}

	for i, it := range r.items {
		if err := r.fillRow(i, it.Query.UID, schemaM, csM, hardM); err != nil {
			return nil, err
		}
	}

	rep := &Report{
		RunID:              r.id,
		Schema:             schemaM,
		Commonsense:        csM,
		Hard:               hardM,
		SchemaPassIDs:      schemaM.PassIDs(),
		CommonsensePassIDs: csM.PassIDs(),
		HardPassIDs:        hardM.PassIDs(),
		SchemaRate:         schemaM.MacroRate(),
		CommonsenseMacro:   csM.MacroRate(),
		CommonsenseMicro:   csM.MicroRate(),
		HardRates:          hardlogic.ComputeRates(hardM, csM.PassIDs()),
	}

	full := make([]bool, len(r.items))
	for i, id := range ids {
		full[i] = schemaM.RowPasses(id) && csM.RowPasses(id) && hardM.RowPasses(id)
		if full[i] {
			rep.FullPassIDs = append(rep.FullPassIDs, id)
		}
	}

	if err := r.phase(ctx, PhasePreference, func(ctx context.Context, i int) {
		if full[i] {
			r.score(ctx, i)
		}
	}); err != nil {
		return nil, err
	}

	var prefs, queryPrefs []domain.ScoreVector
	for i := range r.rows {
		if !full[i] {
			continue
		}
		prefs = append(prefs, r.rows[i].preference)
		if len(r.rows[i].queryPref) > 0 {
			queryPrefs = append(queryPrefs, r.rows[i].queryPref)
		}
	}
	rep.Preference = preference.Mean(prefs, e.scorer.Width())
	rep.QueryPreference = preference.MeanByIndex(queryPrefs)

	rep.Outcomes = make([]domain.QueryOutcome, len(r.items))
	for i, id := range ids {
		rep.Outcomes[i] = r.outcome(i, id, full[i], schemaM, csM, hardM)
	}

	rep.Scores = Aggregate(rep)
	r.record(rep, full)
	return rep, nil
}

// phase fans fn out over every query with bounded concurrency.
func (r *run) phase(ctx context.Context, name string, fn func(ctx context.Context, i int)) error {
	e := r.e
	ctx, span := e.tracer.Start(ctx, "Engine.phase."+name, trace.WithAttributes(
		attribute.String("phase", name),
		attribute.Int("queries", len(r.items)),
	))
	defer span.End()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Engine.Concurrency)
	var done atomic.Int64
	total := len(r.items)
	for i := range r.items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, i)
			n := done.Add(1)
			r.progress.Do(func() {
				r.logger.Info("phase progress", zap.String("phase", name), zap.Int64("done", n), zap.Int("total", total))
			})
			return nil
		})
	}
	err := g.Wait()
	e.metrics.RecordLatency(ports.OpPhase, time.Since(start), map[string]string{"phase": name})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("phase %s: %w", name, err)
	}
	r.logger.Debug("phase finished", zap.String("phase", name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *run) checkSchema(_ context.Context, i int) {
	rw := &r.rows[i]
	rw.plan, rw.schema = r.e.validator.Check(r.items[i].Plan)
}

func (r *run) checkCommonsense(ctx context.Context, i int) {
	rw := &r.rows[i]
	if !rw.schema.Passed {
		return
	}
	q := r.items[i].Query
	rw.commonsense = r.e.runner.Evaluate(ctx, q, rw.plan)
	for name, err := range rw.commonsense.Errors {
		r.logger.Warn("commonsense check failed", zap.String("query_id", q.UID), zap.String("check", name), zap.Error(err))
	}
}

// translate runs for every query, schema failures included, so that the
// hard matrix has one applicable cell per declared constraint.
func (r *run) translate(ctx context.Context, i int) {
	rw := &r.rows[i]
	q := r.items[i].Query
	rw.programs, rw.translateErr = r.e.hard.Programs(ctx, q)
	if rw.translateErr != nil {
		r.logger.Warn("hard constraints unavailable", zap.String("query_id", q.UID), zap.Error(rw.translateErr))
	}
}

func (r *run) checkHard(ctx context.Context, i int) {
	rw := &r.rows[i]
	if !rw.schema.Passed || rw.translateErr != nil {
		return
	}
	rw.hard = r.e.hard.Evaluate(ctx, r.items[i].Query, rw.plan, rw.programs)
}

func (r *run) score(ctx context.Context, i int) {
	rw := &r.rows[i]
	rw.preference = r.e.scorer.Score(ctx, rw.plan)
	if q := r.items[i].Query; r.e.cfg.Engine.QueryPreferences && len(q.PreferencePy) > 0 {
		rw.queryPref = r.e.scorer.ScorePrograms(ctx, q.PreferencePy, rw.plan)
	}
}

// fillRow writes one query's results into the matrices. A plan that
// failed the schema is a uniform failure in every family and is never
// treated as evaluated. A query whose constraints could not be translated
// counts as one violated constraint.
func (r *run) fillRow(i int, id string, schemaM, csM, hardM *domain.ViolationMatrix) error {
	rw := r.rows[i]
	for j := len(rw.programs); j < len(hardM.Rules()); j++ {
		if err := hardM.Set(id, hardlogic.Column(j+1), domain.CellNotApplicable); err != nil {
			return err
		}
	}

	if !rw.schema.Passed {
		for _, m := range []*domain.ViolationMatrix{schemaM, csM, hardM} {
			if err := m.FillRow(id, domain.CellViolated); err != nil {
				return err
			}
		}
		if err := csM.MarkIncomplete(id); err != nil {
			return err
		}
		return hardM.MarkIncomplete(id)
	}

	for rule := range rw.commonsense.Violated {
		if err := csM.Set(id, rule, domain.CellViolated); err != nil {
			return err
		}
	}
	if !rw.commonsense.Complete() {
		if err := csM.MarkIncomplete(id); err != nil {
			return err
		}
	}

	if rw.translateErr != nil {
		if err := hardM.Set(id, hardlogic.Column(1), domain.CellViolated); err != nil {
			return err
		}
		return hardM.MarkIncomplete(id)
	}
	for j, violated := range rw.hard.Violated {
		if violated {
			if err := hardM.Set(id, hardlogic.Column(j+1), domain.CellViolated); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) outcome(i int, id string, full bool, schemaM, csM, hardM *domain.ViolationMatrix) domain.QueryOutcome {
	rw := r.rows[i]
	out := domain.QueryOutcome{
		QueryID:           id,
		SchemaPassed:      schemaM.RowPasses(id),
		CommonsensePassed: csM.RowPasses(id),
		HardPassed:        hardM.RowPasses(id),
		FullPass:          full,
		Preference:        rw.preference,
		QueryPreference:   rw.queryPref,
	}
	if out.Preference == nil {
		out.Preference = domain.ZeroVector(r.e.scorer.Width())
	}
	if !rw.schema.Passed {
		out.SchemaErrors = rw.schema.Messages()
		for _, fe := range rw.schema.Errors {
			out.Diagnostics = append(out.Diagnostics, domain.Diagnostic{
				Family:  domain.FamilySchema,
				Rule:    fe.Location,
				Message: fe.Message,
			})
		}
		return out
	}

	out.Diagnostics = append(out.Diagnostics, rw.commonsense.Diagnostics...)
	names := make([]string, 0, len(rw.commonsense.Errors))
	for name := range rw.commonsense.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Diagnostics = append(out.Diagnostics, domain.Diagnostic{
			Family:  domain.FamilyCommonsense,
			Check:   name,
			Message: rw.commonsense.Errors[name].Error(),
		})
	}
	if rw.translateErr != nil {
		out.Diagnostics = append(out.Diagnostics, domain.Diagnostic{
			Family:  domain.FamilyHard,
			Message: rw.translateErr.Error(),
		})
	}
	out.Diagnostics = append(out.Diagnostics, rw.hard.Diagnostics...)
	return out
}

// record reports per-query statuses, violated cells and the final scores.
func (r *run) record(rep *Report, full []bool) {
	m := r.e.metrics
	status := func(ok bool) string {
		if ok {
			return "pass"
		}
		return "fail"
	}
	for i, id := range rep.Schema.IDs() {
		m.RecordCounter(ports.MetricQueries, 1, map[string]string{"stage": PhaseSchema, "status": status(rep.Schema.RowPasses(id))})
		m.RecordCounter(ports.MetricQueries, 1, map[string]string{"stage": PhaseCommonsense, "status": status(rep.Commonsense.RowPasses(id))})
		m.RecordCounter(ports.MetricQueries, 1, map[string]string{"stage": PhaseHard, "status": status(rep.Hard.RowPasses(id))})
		m.RecordCounter(ports.MetricQueries, 1, map[string]string{"stage": "full", "status": status(full[i])})
	}
	for family, mat := range map[string]*domain.ViolationMatrix{
		domain.FamilyCommonsense: rep.Commonsense,
		domain.FamilyHard:        rep.Hard,
	} {
		rules := mat.Rules()
		counts := make([]int, len(rules))
		for _, id := range mat.IDs() {
			cells, _ := mat.Row(id)
			for j, c := range cells {
				if c == domain.CellViolated {
					counts[j]++
				}
			}
		}
		for j, n := range counts {
			if n > 0 {
				m.RecordCounter(ports.MetricRuleViolations, float64(n), map[string]string{"family": family, "rule": rules[j]})
			}
		}
	}
	for key, v := range rep.Scores.Map() {
		m.RecordGauge(ports.MetricScore, v, map[string]string{"key": key})
	}
}
