package middleware

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

var _ ports.Check = (*InstrumentedCheck)(nil)

// InstrumentedCheck decorates a commonsense check with a span per call and
// a latency sample per call. It adds no behavior of its own; results and
// errors of the wrapped check pass through unchanged.
type InstrumentedCheck struct {
	next    ports.Check
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewInstrumentedCheck wraps next. A nil metrics collector discards samples
// and a nil tracer provider uses the global one.
func NewInstrumentedCheck(next ports.Check, metrics ports.MetricsCollector, tp trace.TracerProvider) *InstrumentedCheck {
	if next == nil {
		panic("instrumented check: next check is required")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &InstrumentedCheck{
		next:    next,
		metrics: metrics,
		tracer:  tp.Tracer("check-middleware"),
	}
}

// InstrumentChecks wraps every check in checks, keeping the order.
func InstrumentChecks(checks []ports.Check, metrics ports.MetricsCollector, tp trace.TracerProvider) []ports.Check {
	out := make([]ports.Check, len(checks))
	for i, c := range checks {
		out[i] = NewInstrumentedCheck(c, metrics, tp)
	}
	return out
}

// Name returns the wrapped check's name.
func (ic *InstrumentedCheck) Name() string { return ic.next.Name() }

// Rules returns the wrapped check's rules.
func (ic *InstrumentedCheck) Rules() []string { return ic.next.Rules() }

// Check runs the wrapped check inside a "Check.<name>" span.
func (ic *InstrumentedCheck) Check(ctx context.Context, q domain.Query, p *domain.Plan) (domain.CheckResult, error) {
	name := ic.next.Name()
	ctx, span := ic.tracer.Start(ctx, "Check."+name, trace.WithAttributes(
		attribute.String("check.name", name),
		attribute.String("query.uid", q.UID),
	))
	defer span.End()

	start := time.Now()
	res, err := ic.next.Check(ctx, q, p)
	ic.metrics.RecordLatency(ports.OpCheck, time.Since(start), map[string]string{"check": name})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	violated := make([]string, 0, len(res.Violated))
	for rule, v := range res.Violated {
		if v {
			violated = append(violated, rule)
		}
	}
	sort.Strings(violated)
	span.SetAttributes(
		attribute.Bool("check.passed", len(violated) == 0),
		attribute.StringSlice("check.violated", violated),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}
