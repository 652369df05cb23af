// Package engine runs applicant-proposing deferred acceptance over a
// validated preference index and evaluates what-if scenarios against a base
// index. Runs are pure with respect to their input: the index is never
// mutated and identical inputs produce identical results, proposal counts
// included.
package engine

import (
	"context"
	"sort"

	"matchcore/pkg/match"
)

const (
	opRunMatch      = "run_match"
	opApplyScenario = "apply_scenario"
	opApplyBatch    = "apply_batch"
)

// Engine executes match runs. The zero value is not usable; construct one
// with New. An Engine is immutable after construction and safe for
// concurrent use.
type Engine struct {
	ceiling int
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// New constructs an Engine with the supplied options.
func New(opts ...Option) *Engine {
	options := defaultEngineOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Engine{
		ceiling: options.ceiling,
		logger:  options.logger,
		metrics: options.metrics,
		tracer:  options.tracer,
		clock:   options.clock,
	}
}

// Run matches applicants to programs by applicant-proposing deferred
// acceptance. Applicants propose down their preference lists in order;
// programs hold the best applicants they have seen within capacity and
// release a held applicant whenever a better-ranked one proposes. The run
// ends when no applicant with preferences left is unheld, which yields the
// unique applicant-optimal stable assignment.
//
// Applicants whose list names no program that both ranks them and has
// capacity end unmatched; seats nobody acceptable proposed to stay
// unfilled. Each applicant proposes to each listed program at most once, so
// a run extends at most index.TotalPreferences() proposals. Exceeding that
// ceiling, or an override set via WithProposalCeiling, aborts with an
// InvariantViolationError.
func (e *Engine) Run(index *PreferenceIndex) (Result, error) {
	started := e.clock.Now()
	_, span := e.tracer.Start(context.Background(), opRunMatch)
	result, err := e.run(index)
	span.End(err)
	e.metrics.Observe(context.Background(), opRunMatch, err == nil, e.clock.Now().Sub(started))
	return result, err
}

func (e *Engine) run(index *PreferenceIndex) (Result, error) {
	if index == nil {
		return Result{}, match.InvariantViolationError{Reason: "nil preference index"}
	}

	applicantIDs := index.ApplicantIDs()
	programIDs := index.ProgramIDs()

	prefs := make(map[string][]string, len(applicantIDs))
	next := make(map[string]int, len(applicantIDs))
	queue := make([]string, 0, len(applicantIDs))
	for _, id := range applicantIDs {
		list := index.Preferences(id)
		prefs[id] = list
		if len(list) > 0 {
			queue = append(queue, id)
		}
	}

	ceiling := e.ceiling
	if ceiling <= 0 {
		ceiling = index.TotalPreferences()
	}

	holds := make(map[string][]string, len(programIDs))
	proposals := 0

	requeue := func(id string) {
		if next[id] < len(prefs[id]) {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		applicantID := queue[0]
		queue = queue[1:]
		list := prefs[applicantID]
		if next[applicantID] >= len(list) {
			continue
		}
		programID := list[next[applicantID]]
		next[applicantID]++

		proposals++
		if proposals > ceiling {
			return Result{}, match.InvariantViolationError{
				Reason:    "proposal ceiling exceeded",
				Proposals: proposals,
			}
		}

		capacity, _ := index.Capacity(programID)
		rank, ranked := index.Rank(programID, applicantID)
		if !ranked || capacity == 0 {
			requeue(applicantID)
			continue
		}

		held := holds[programID]
		if len(held) < capacity {
			holds[programID] = append(held, applicantID)
			continue
		}

		worst := 0
		worstRank, _ := index.Rank(programID, held[0])
		for i := 1; i < len(held); i++ {
			heldRank, _ := index.Rank(programID, held[i])
			if heldRank > worstRank {
				worst = i
				worstRank = heldRank
			}
		}
		if rank < worstRank {
			displaced := held[worst]
			held[worst] = applicantID
			holds[programID] = held
			requeue(displaced)
			continue
		}
		requeue(applicantID)
	}

	byApplicant := make(map[string]string, len(applicantIDs))
	for _, id := range applicantIDs {
		byApplicant[id] = ""
	}
	byProgram := make(map[string][]string, len(programIDs))
	for _, id := range programIDs {
		byProgram[id] = []string{}
	}
	matched := 0
	for programID, held := range holds {
		roster := append([]string(nil), held...)
		sort.Strings(roster)
		byProgram[programID] = roster
		for _, applicantID := range held {
			byApplicant[applicantID] = programID
			matched++
		}
	}

	e.logger.Debug("match run complete",
		"applicants", len(applicantIDs),
		"programs", len(programIDs),
		"matched", matched,
		"proposals", proposals,
	)

	return Result{
		ByApplicant: byApplicant,
		ByProgram:   byProgram,
		Proposals:   proposals,
		Dropped:     index.Dropped(),
	}, nil
}
