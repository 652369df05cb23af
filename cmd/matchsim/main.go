// Command matchsim runs the match engine over an instance document,
// optionally evaluates a batch of what-if scenarios against it, and reports
// summaries and diffs as text or JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"matchcore/pkg/analysis"
	"matchcore/pkg/engine"
	"matchcore/pkg/match"
	"matchcore/pkg/obs"

	"matchcore/internal/simfile"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type config struct {
	instancePath string
	batchPath    string
	workers      int
	ceiling      int
	verify       bool
	jsonOut      bool
	quiet        bool
	verbose      bool
}

type report struct {
	Instance  string           `json:"instance"`
	Base      baseReport       `json:"base"`
	Scenarios []scenarioReport `json:"scenarios,omitempty"`
}

type baseReport struct {
	Result        match.Result          `json:"result"`
	Metrics       match.Metrics         `json:"metrics"`
	BlockingPairs []engine.BlockingPair `json:"blocking_pairs,omitempty"`
}

type scenarioReport struct {
	Name          string                `json:"name"`
	Error         string                `json:"error,omitempty"`
	Result        *match.Result         `json:"result,omitempty"`
	Metrics       *match.Metrics        `json:"metrics,omitempty"`
	Diff          *match.Diff           `json:"diff,omitempty"`
	BlockingPairs []engine.BlockingPair `json:"blocking_pairs,omitempty"`
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("matchsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cfg config
	fs.StringVar(&cfg.instancePath, "instance", "", "path to the instance document (YAML or JSON)")
	fs.StringVar(&cfg.batchPath, "scenarios", "", "path to a scenario batch document")
	fs.IntVar(&cfg.workers, "workers", 1, "concurrent scenario evaluations")
	fs.IntVar(&cfg.ceiling, "ceiling", 0, "proposal safety ceiling (0 derives it from the instance)")
	fs.BoolVar(&cfg.verify, "verify", false, "check every result for blocking pairs")
	fs.BoolVar(&cfg.jsonOut, "json", false, "emit one JSON report instead of text")
	fs.BoolVar(&cfg.quiet, "quiet", false, "suppress the text report")
	fs.BoolVar(&cfg.verbose, "v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if cfg.instancePath == "" {
		fmt.Fprintln(stderr, "matchsim: -instance is required")
		fs.Usage()
		return 1
	}
	return run(cfg, stdout, stderr)
}

func run(cfg config, stdout, stderr io.Writer) int {
	logger, flush, err := obs.NewCLILogger(cfg.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "matchsim: logger: %v\n", err)
		return 1
	}
	defer flush()

	instance, err := simfile.LoadInstance(cfg.instancePath)
	if err != nil {
		fmt.Fprintf(stderr, "matchsim: %v\n", err)
		return 1
	}
	index, err := instance.Build()
	if err != nil {
		fmt.Fprintf(stderr, "matchsim: invalid instance: %v\n", err)
		return 1
	}
	logger.Debug("instance loaded",
		"path", cfg.instancePath,
		"applicants", len(index.ApplicantIDs()),
		"programs", len(index.ProgramIDs()),
		"dropped", index.Dropped().Total,
	)

	recorder := obs.NewExpvarMetricsRecorder("")
	eng := engine.New(
		engine.WithProposalCeiling(cfg.ceiling),
		engine.WithLogger(logger),
		engine.WithMetricsRecorder(recorder),
	)

	baseResult, err := eng.Run(index)
	if err != nil {
		fmt.Fprintf(stderr, "matchsim: base run: %v\n", err)
		return 2
	}

	rep := report{
		Instance: cfg.instancePath,
		Base: baseReport{
			Result:  baseResult,
			Metrics: analysis.Summarize(index, baseResult),
		},
	}
	failed := false
	if cfg.verify {
		if pairs := engine.VerifyStable(index, baseResult); len(pairs) > 0 {
			rep.Base.BlockingPairs = pairs
			failed = true
		}
	}

	if cfg.batchPath != "" {
		batch, err := simfile.LoadBatch(cfg.batchPath)
		if err != nil {
			fmt.Fprintf(stderr, "matchsim: %v\n", err)
			return 1
		}
		runner := engine.NewRunner(eng,
			engine.WithWorkers(cfg.workers),
			engine.WithRunnerLogger(logger),
			engine.WithRunnerMetricsRecorder(recorder),
		)
		base := analysis.Run{Index: index, Result: baseResult}
		for _, outcome := range runner.ApplyMany(context.Background(), index, batch.Scenarios) {
			sr := scenarioReport{Name: outcome.Scenario}
			if outcome.Err != nil {
				sr.Error = outcome.Err.Error()
				failed = true
				rep.Scenarios = append(rep.Scenarios, sr)
				continue
			}
			result := outcome.Result
			metrics := analysis.Summarize(outcome.Index, result)
			diff := analysis.Compare(base, analysis.Run{Index: outcome.Index, Result: result})
			sr.Result = &result
			sr.Metrics = &metrics
			sr.Diff = &diff
			if cfg.verify {
				if pairs := engine.VerifyStable(outcome.Index, result); len(pairs) > 0 {
					sr.BlockingPairs = pairs
					failed = true
				}
			}
			rep.Scenarios = append(rep.Scenarios, sr)
		}
	}

	if cfg.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(stderr, "matchsim: encode report: %v\n", err)
			return 1
		}
	} else if !cfg.quiet {
		printReport(stdout, rep)
	}

	if failed {
		return 2
	}
	return 0
}

func printReport(w io.Writer, rep report) {
	m := rep.Base.Metrics
	fmt.Fprintf(w, "base: matched %d/%d applicants, %d/%d seats filled, mean rank %.2f, proposals %d\n",
		m.Matched, m.Applicants, m.TotalCapacity-m.UnfilledSeats, m.TotalCapacity, m.MeanRank, m.Proposals)
	if m.DroppedPreferences > 0 {
		fmt.Fprintf(w, "base: dropped %d dangling references\n", m.DroppedPreferences)
	}
	if unmatched := rep.Base.Result.Unmatched(); len(unmatched) > 0 {
		fmt.Fprintf(w, "base: unmatched %s\n", strings.Join(unmatched, ", "))
	}
	printBlockingPairs(w, "base", rep.Base.BlockingPairs)

	for _, sr := range rep.Scenarios {
		if sr.Error != "" {
			fmt.Fprintf(w, "scenario %s: FAILED: %s\n", sr.Name, sr.Error)
			continue
		}
		fmt.Fprintf(w, "scenario %s: matched %d/%d, mean rank %.2f (%+.2f), unmatched %+d, proposals %+d\n",
			sr.Name, sr.Metrics.Matched, sr.Metrics.Applicants,
			sr.Metrics.MeanRank, sr.Diff.MeanRankDelta,
			sr.Diff.UnmatchedDelta, sr.Diff.ProposalsDelta)
		for _, id := range sortedKeys(sr.Diff.Moves) {
			move := sr.Diff.Moves[id]
			fmt.Fprintf(w, "  move %s: %s -> %s\n", id, orUnmatched(move.From), orUnmatched(move.To))
		}
		for _, id := range sortedKeys(sr.Diff.FillDeltas) {
			fmt.Fprintf(w, "  fill %s: %+d\n", id, sr.Diff.FillDeltas[id])
		}
		printBlockingPairs(w, "  "+sr.Name, sr.BlockingPairs)
	}
}

func printBlockingPairs(w io.Writer, prefix string, pairs []engine.BlockingPair) {
	for _, pair := range pairs {
		fmt.Fprintf(w, "%s: UNSTABLE applicant %s with program %s\n", prefix, pair.ApplicantID, pair.ProgramID)
	}
}

func orUnmatched(id string) string {
	if id == "" {
		return "(unmatched)"
	}
	return id
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
