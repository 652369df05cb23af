package engine

import "time"

type engineOptions struct {
	ceiling int
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
}

// Option customises an Engine.
type Option func(*engineOptions)

// WithProposalCeiling overrides the derived proposal safety ceiling. Values
// at or below zero keep the derived ceiling, the total preference count of
// the index being run.
func WithProposalCeiling(limit int) Option {
	return func(o *engineOptions) {
		o.ceiling = limit
	}
}

// WithLogger attaches a structured logger. Nil restores the no-op logger.
func WithLogger(logger Logger) Option {
	return func(o *engineOptions) {
		if logger == nil {
			logger = noopLogger{}
		}
		o.logger = logger
	}
}

// WithMetricsRecorder attaches a metrics sink. Nil restores the no-op sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *engineOptions) {
		if recorder == nil {
			recorder = noopMetricsRecorder{}
		}
		o.metrics = recorder
	}
}

// WithTracer attaches a tracer. Nil restores the no-op tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *engineOptions) {
		if tracer == nil {
			tracer = noopTracer{}
		}
		o.tracer = tracer
	}
}

// WithClock overrides the engine clock. Nil restores the system clock.
func WithClock(clock Clock) Option {
	return func(o *engineOptions) {
		if clock == nil {
			clock = ClockFunc(nil)
		}
		o.clock = clock
	}
}

type runnerOptions struct {
	workers int
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

func defaultRunnerOptions() runnerOptions {
	return runnerOptions{
		workers: 1,
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

// RunnerOption customises a Runner.
type RunnerOption func(*runnerOptions)

// WithWorkers bounds how many scenarios a Runner evaluates concurrently.
// Values at or below zero are normalised to one.
func WithWorkers(n int) RunnerOption {
	return func(o *runnerOptions) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithRunnerLogger attaches a structured logger. Nil restores the no-op
// logger.
func WithRunnerLogger(logger Logger) RunnerOption {
	return func(o *runnerOptions) {
		if logger == nil {
			logger = noopLogger{}
		}
		o.logger = logger
	}
}

// WithRunnerMetricsRecorder attaches a metrics sink. Nil restores the no-op
// sink.
func WithRunnerMetricsRecorder(recorder MetricsRecorder) RunnerOption {
	return func(o *runnerOptions) {
		if recorder == nil {
			recorder = noopMetricsRecorder{}
		}
		o.metrics = recorder
	}
}

// WithRunnerTracer attaches a tracer. Nil restores the no-op tracer.
func WithRunnerTracer(tracer Tracer) RunnerOption {
	return func(o *runnerOptions) {
		if tracer == nil {
			tracer = noopTracer{}
		}
		o.tracer = tracer
	}
}
