package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Runner evaluates what-if scenarios against a base index, rerunning the
// engine once per scenario. Scenario applications are independent: each
// starts from the same untouched base, so outcomes never depend on batch
// order or on which other scenarios ran.
type Runner struct {
	engine  *Engine
	workers int
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// ScenarioOutcome is the verdict for one scenario in a batch. Exactly one of
// Err or the Index and Result pair is meaningful: a failed scenario carries
// its error and nothing else.
type ScenarioOutcome struct {
	Scenario string
	Index    *PreferenceIndex
	Result   Result
	Err      error
}

// NewRunner constructs a Runner around an engine. A nil engine gets replaced
// by a default one.
func NewRunner(engine *Engine, opts ...RunnerOption) *Runner {
	if engine == nil {
		engine = New()
	}
	options := defaultRunnerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Runner{
		engine:  engine,
		workers: options.workers,
		logger:  options.logger,
		metrics: options.metrics,
		tracer:  options.tracer,
	}
}

// Apply evaluates a single scenario: it derives a perturbed index from base
// via WithOverrides and runs the engine on it. The base index is never
// modified. Scenario errors come back wrapped with the scenario name and
// remain matchable with errors.As.
func (r *Runner) Apply(ctx context.Context, base *PreferenceIndex, sc Scenario) (Result, error) {
	outcome := r.applyOne(ctx, base, sc)
	return outcome.Result, outcome.Err
}

// ApplyMany evaluates scenarios concurrently, at most the configured worker
// count at a time, and returns one outcome per scenario in input order. A
// failing scenario only fails its own slot. Once ctx is done, scenarios not
// yet started report ctx's error instead of running.
func (r *Runner) ApplyMany(ctx context.Context, base *PreferenceIndex, scenarios []Scenario) []ScenarioOutcome {
	started := r.engine.clock.Now()
	_, span := r.tracer.Start(ctx, opApplyBatch)

	outcomes := make([]ScenarioOutcome, len(scenarios))
	var group errgroup.Group
	group.SetLimit(r.workers)
	for i, sc := range scenarios {
		i, sc := i, sc
		group.Go(func() error {
			outcomes[i] = r.applyOne(ctx, base, sc)
			return nil
		})
	}
	_ = group.Wait()

	failures := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failures++
		}
	}
	span.End(nil)
	r.metrics.Observe(ctx, opApplyBatch, failures == 0, r.engine.clock.Now().Sub(started))
	r.logger.Debug("scenario batch complete",
		"scenarios", len(scenarios),
		"failures", failures,
	)
	return outcomes
}

func (r *Runner) applyOne(ctx context.Context, base *PreferenceIndex, sc Scenario) ScenarioOutcome {
	started := r.engine.clock.Now()
	outcome := ScenarioOutcome{Scenario: sc.Name}
	_, span := r.tracer.Start(ctx, opApplyScenario)
	defer func() {
		span.End(outcome.Err)
		r.metrics.Observe(ctx, opApplyScenario, outcome.Err == nil, r.engine.clock.Now().Sub(started))
	}()

	if err := ctx.Err(); err != nil {
		outcome.Err = fmt.Errorf("scenario %q: %w", sc.Name, err)
		return outcome
	}
	if base == nil {
		outcome.Err = fmt.Errorf("scenario %q: no base index", sc.Name)
		return outcome
	}

	index, err := base.WithOverrides(sc)
	if err != nil {
		outcome.Err = fmt.Errorf("scenario %q: %w", sc.Name, err)
		return outcome
	}
	result, err := r.engine.Run(index)
	if err != nil {
		outcome.Err = fmt.Errorf("scenario %q: %w", sc.Name, err)
		return outcome
	}
	outcome.Index = index
	outcome.Result = result
	return outcome
}
