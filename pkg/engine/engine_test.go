package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"matchcore/pkg/match"
)

func buildIndex(t *testing.T, applicants []match.Applicant, programs []match.Program) *match.PreferenceIndex {
	t.Helper()
	idx, err := match.Build(applicants, programs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return idx
}

// pairIndex is the smallest instance where deferred acceptance has to
// displace nobody but reject somebody: two applicants chase the same first
// choice and the loser settles for its second.
func pairIndex(t *testing.T) *match.PreferenceIndex {
	t.Helper()
	return buildIndex(t,
		[]match.Applicant{
			{ID: "A1", Preferences: []string{"P1", "P2"}},
			{ID: "A2", Preferences: []string{"P1", "P2"}},
		},
		[]match.Program{
			{ID: "P1", Capacity: 1, Ranking: []string{"A1", "A2"}},
			{ID: "P2", Capacity: 1, Ranking: []string{"A2", "A1"}},
		},
	)
}

func TestRunPairInstance(t *testing.T) {
	result, err := New().Run(pairIndex(t))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantByApplicant := map[string]string{"A1": "P1", "A2": "P2"}
	if diff := cmp.Diff(wantByApplicant, result.ByApplicant); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
	wantByProgram := map[string][]string{"P1": {"A1"}, "P2": {"A2"}}
	if diff := cmp.Diff(wantByProgram, result.ByProgram); diff != "" {
		t.Errorf("roster mismatch (-want +got):\n%s", diff)
	}
	if result.Proposals != 3 {
		t.Errorf("expected 3 proposals, got %d", result.Proposals)
	}
	if got := len(result.Unmatched()); got != 0 {
		t.Errorf("expected nobody unmatched, got %d", got)
	}
	if pairs := VerifyStable(pairIndex(t), result); pairs != nil {
		t.Errorf("expected stable assignment, got blocking pairs %v", pairs)
	}
}

// TestRunCapacityScenario reruns the pair instance with one extra seat at
// the shared first choice, which frees P2 entirely and saves a proposal.
func TestRunCapacityScenario(t *testing.T) {
	base := pairIndex(t)
	bumped, err := base.WithOverrides(match.Scenario{
		Name:              "bump-p1",
		CapacityOverrides: map[string]int{"P1": 2},
	})
	if err != nil {
		t.Fatalf("WithOverrides failed: %v", err)
	}

	result, err := New().Run(bumped)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wantByApplicant := map[string]string{"A1": "P1", "A2": "P1"}
	if diff := cmp.Diff(wantByApplicant, result.ByApplicant); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
	wantByProgram := map[string][]string{"P1": {"A1", "A2"}, "P2": {}}
	if diff := cmp.Diff(wantByProgram, result.ByProgram); diff != "" {
		t.Errorf("roster mismatch (-want +got):\n%s", diff)
	}
	if result.Proposals != 2 {
		t.Errorf("expected 2 proposals, got %d", result.Proposals)
	}
}

// TestRunDisplacement holds A1 at P1 first, then displaces it with the
// better-ranked A2; A1 lands at P2 on requeue.
func TestRunDisplacement(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{
			{ID: "A1", Preferences: []string{"P1", "P2"}},
			{ID: "A2", Preferences: []string{"P1"}},
		},
		[]match.Program{
			{ID: "P1", Capacity: 1, Ranking: []string{"A2", "A1"}},
			{ID: "P2", Capacity: 1, Ranking: []string{"A1"}},
		},
	)

	result, err := New().Run(idx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wantByApplicant := map[string]string{"A1": "P2", "A2": "P1"}
	if diff := cmp.Diff(wantByApplicant, result.ByApplicant); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
	if result.Proposals != 3 {
		t.Errorf("expected 3 proposals, got %d", result.Proposals)
	}
}

// TestRunApplicantOptimal uses the classic cyclic instance with two stable
// assignments and checks the engine lands on the applicant-optimal one. The
// program-optimal assignment is also stable, which VerifyStable confirms,
// so the test pins which of the two the engine must pick.
func TestRunApplicantOptimal(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{
			{ID: "a1", Preferences: []string{"p1", "p2", "p3"}},
			{ID: "a2", Preferences: []string{"p2", "p3", "p1"}},
			{ID: "a3", Preferences: []string{"p3", "p1", "p2"}},
		},
		[]match.Program{
			{ID: "p1", Capacity: 1, Ranking: []string{"a2", "a3", "a1"}},
			{ID: "p2", Capacity: 1, Ranking: []string{"a3", "a1", "a2"}},
			{ID: "p3", Capacity: 1, Ranking: []string{"a1", "a2", "a3"}},
		},
	)

	result, err := New().Run(idx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	wantByApplicant := map[string]string{"a1": "p1", "a2": "p2", "a3": "p3"}
	if diff := cmp.Diff(wantByApplicant, result.ByApplicant); diff != "" {
		t.Errorf("expected every applicant at its first choice (-want +got):\n%s", diff)
	}
	if result.Proposals != 3 {
		t.Errorf("expected 3 proposals, got %d", result.Proposals)
	}

	programOptimal := Result{
		ByApplicant: map[string]string{"a1": "p3", "a2": "p1", "a3": "p2"},
		ByProgram:   map[string][]string{"p1": {"a2"}, "p2": {"a3"}, "p3": {"a1"}},
	}
	if pairs := VerifyStable(idx, programOptimal); pairs != nil {
		t.Fatalf("expected the program-optimal assignment to be stable, got %v", pairs)
	}
	if result.Equal(programOptimal) {
		t.Fatalf("expected the engine to pick the applicant-optimal assignment")
	}
}

func TestRunUnmatchedPaths(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{
			{ID: "U1", Preferences: nil},
			{ID: "U2", Preferences: []string{"Z"}},
			{ID: "U3", Preferences: []string{"W"}},
		},
		[]match.Program{
			{ID: "W", Capacity: 1, Ranking: nil},
			{ID: "Z", Capacity: 0, Ranking: []string{"U2"}},
		},
	)

	result, err := New().Run(idx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff([]string{"U1", "U2", "U3"}, result.Unmatched()); diff != "" {
		t.Errorf("unmatched mismatch (-want +got):\n%s", diff)
	}
	if got := result.Matched(); got != 0 {
		t.Errorf("expected nobody matched, got %d", got)
	}
	// The zero-capacity and not-ranked proposals still count.
	if result.Proposals != 2 {
		t.Errorf("expected 2 proposals, got %d", result.Proposals)
	}
	wantByProgram := map[string][]string{"W": {}, "Z": {}}
	if diff := cmp.Diff(wantByProgram, result.ByProgram); diff != "" {
		t.Errorf("roster mismatch (-want +got):\n%s", diff)
	}
}

func TestRunEmptyInstance(t *testing.T) {
	idx := buildIndex(t, nil, nil)
	result, err := New().Run(idx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Proposals != 0 || len(result.ByApplicant) != 0 || len(result.ByProgram) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestRunNilIndex(t *testing.T) {
	_, err := New().Run(nil)
	var violation match.InvariantViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if violation.Reason != "nil preference index" {
		t.Errorf("expected nil index reason, got %q", violation.Reason)
	}
}

func TestRunProposalCeiling(t *testing.T) {
	_, err := New(WithProposalCeiling(2)).Run(pairIndex(t))
	var violation match.InvariantViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if violation.Reason != "proposal ceiling exceeded" {
		t.Errorf("expected ceiling reason, got %q", violation.Reason)
	}
	if violation.Proposals != 3 {
		t.Errorf("expected violation after 3 proposals, got %d", violation.Proposals)
	}

	// At or below zero the derived ceiling applies and the run finishes.
	for _, limit := range []int{0, -5} {
		if _, err := New(WithProposalCeiling(limit)).Run(pairIndex(t)); err != nil {
			t.Errorf("expected derived ceiling with limit %d, got %v", limit, err)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	eng := New()
	idx := pairIndex(t)

	first, err := eng.Run(idx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := eng.Run(idx)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if !again.Equal(first) {
			t.Fatalf("expected identical results across runs, got %+v and %+v", first, again)
		}
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Failed to marshal result: %v", err)
	}
	again, err := eng.Run(idx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	againJSON, err := json.Marshal(again)
	if err != nil {
		t.Fatalf("Failed to marshal result: %v", err)
	}
	if !bytes.Equal(firstJSON, againJSON) {
		t.Fatalf("expected byte-identical serialisation:\n%s\n%s", firstJSON, againJSON)
	}
}

// TestRunRandomInstancesStable drives the engine over seeded random
// instances and scores every outcome with VerifyStable as the oracle.
func TestRunRandomInstancesStable(t *testing.T) {
	for seed := int64(1); seed <= 6; seed++ {
		idx := randomIndex(t, seed)
		result, err := New().Run(idx)
		if err != nil {
			t.Fatalf("seed %d: Run failed: %v", seed, err)
		}

		if pairs := VerifyStable(idx, result); pairs != nil {
			t.Errorf("seed %d: expected stable assignment, got blocking pairs %v", seed, pairs)
		}
		if result.Proposals > idx.TotalPreferences() {
			t.Errorf("seed %d: proposals %d exceed bound %d", seed, result.Proposals, idx.TotalPreferences())
		}
		for _, programID := range idx.ProgramIDs() {
			capacity, _ := idx.Capacity(programID)
			if filled := result.FillCount(programID); filled > capacity {
				t.Errorf("seed %d: program %s over capacity: %d > %d", seed, programID, filled, capacity)
			}
		}
		// Both views describe the same assignment.
		for applicantID, programID := range result.ByApplicant {
			if programID == "" {
				continue
			}
			found := 0
			for _, held := range result.ByProgram[programID] {
				if held == applicantID {
					found++
				}
			}
			if found != 1 {
				t.Errorf("seed %d: applicant %s appears %d times in roster of %s", seed, applicantID, found, programID)
			}
		}
		for programID, roster := range result.ByProgram {
			for _, applicantID := range roster {
				if result.ByApplicant[applicantID] != programID {
					t.Errorf("seed %d: roster of %s names %s, who is assigned %q", seed, programID, applicantID, result.ByApplicant[applicantID])
				}
			}
		}
	}
}

func randomIndex(t *testing.T, seed int64) *match.PreferenceIndex {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	applicantIDs := make([]string, 40)
	for i := range applicantIDs {
		applicantIDs[i] = fmt.Sprintf("a%02d", i)
	}
	programIDs := make([]string, 8)
	for i := range programIDs {
		programIDs[i] = fmt.Sprintf("p%d", i)
	}

	applicants := make([]match.Applicant, 0, len(applicantIDs))
	for _, id := range applicantIDs {
		prefs := append([]string(nil), programIDs...)
		rng.Shuffle(len(prefs), func(i, j int) { prefs[i], prefs[j] = prefs[j], prefs[i] })
		applicants = append(applicants, match.Applicant{ID: id, Preferences: prefs[:rng.Intn(len(prefs)+1)]})
	}
	programs := make([]match.Program, 0, len(programIDs))
	for _, id := range programIDs {
		ranking := append([]string(nil), applicantIDs...)
		rng.Shuffle(len(ranking), func(i, j int) { ranking[i], ranking[j] = ranking[j], ranking[i] })
		programs = append(programs, match.Program{
			ID:       id,
			Capacity: rng.Intn(4),
			Ranking:  ranking[:rng.Intn(len(ranking)+1)],
		})
	}

	idx, err := match.Build(applicants, programs)
	if err != nil {
		t.Fatalf("seed %d: Build failed: %v", seed, err)
	}
	return idx
}

func TestRunObservability(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	eng := New(
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithClock(sequenceClock(start, 50*time.Millisecond)),
	)

	if _, err := eng.Run(pairIndex(t)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if logger.count("Debug") == 0 {
		t.Errorf("expected a debug log on success")
	}
	entries := metrics.byOperation("run_match")
	if len(entries) != 1 {
		t.Fatalf("expected one run_match observation, got %d", len(entries))
	}
	if !entries[0].success {
		t.Errorf("expected success observation")
	}
	if entries[0].duration != 50*time.Millisecond {
		t.Errorf("expected 50ms duration from the frozen clock, got %v", entries[0].duration)
	}
	spans := tracer.byOperation("run_match")
	if len(spans) != 1 {
		t.Fatalf("expected one run_match span, got %d", len(spans))
	}
	if !spans[0].ended || spans[0].err != nil {
		t.Errorf("expected span ended without error, got ended=%v err=%v", spans[0].ended, spans[0].err)
	}
}

func TestRunObservabilityOnFailure(t *testing.T) {
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	eng := New(WithMetricsRecorder(metrics), WithTracer(tracer))

	if _, err := eng.Run(nil); err == nil {
		t.Fatalf("expected error from nil index")
	}

	entries := metrics.byOperation("run_match")
	if len(entries) != 1 || entries[0].success {
		t.Fatalf("expected one failed run_match observation, got %+v", entries)
	}
	spans := tracer.byOperation("run_match")
	if len(spans) != 1 || spans[0].err == nil {
		t.Fatalf("expected span ended with error, got %+v", spans)
	}
}
