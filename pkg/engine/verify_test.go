package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"matchcore/pkg/match"
)

func TestVerifyStableDetectsDisplacementPair(t *testing.T) {
	idx := pairIndex(t)
	// Swap the engine's assignment: A1 prefers P1 over P2 and P1 ranks A1
	// above its held A2, so (A1, P1) blocks.
	swapped := Result{
		ByApplicant: map[string]string{"A1": "P2", "A2": "P1"},
		ByProgram:   map[string][]string{"P1": {"A2"}, "P2": {"A1"}},
	}
	want := []BlockingPair{{ApplicantID: "A1", ProgramID: "P1"}}
	if diff := cmp.Diff(want, VerifyStable(idx, swapped)); diff != "" {
		t.Fatalf("blocking pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyStableDetectsFreeSeat(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{{ID: "A1", Preferences: []string{"P1"}}},
		[]match.Program{{ID: "P1", Capacity: 1, Ranking: []string{"A1"}}},
	)
	empty := Result{
		ByApplicant: map[string]string{"A1": ""},
		ByProgram:   map[string][]string{"P1": {}},
	}
	want := []BlockingPair{{ApplicantID: "A1", ProgramID: "P1"}}
	if diff := cmp.Diff(want, VerifyStable(idx, empty)); diff != "" {
		t.Fatalf("blocking pairs mismatch (-want +got):\n%s", diff)
	}
}

// TestVerifyStableOrdering pins the reporting order: ascending applicant,
// then the applicant's own preference order.
func TestVerifyStableOrdering(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{
			{ID: "A1", Preferences: []string{"P1", "P2", "P3"}},
			{ID: "A2", Preferences: []string{"P1"}},
		},
		[]match.Program{
			{ID: "P1", Capacity: 1, Ranking: []string{"A1", "A2"}},
			{ID: "P2", Capacity: 1, Ranking: []string{"A1"}},
			{ID: "P3", Capacity: 1, Ranking: []string{"A1"}},
		},
	)
	assignment := Result{
		ByApplicant: map[string]string{"A1": "P3", "A2": ""},
		ByProgram:   map[string][]string{"P1": {}, "P2": {}, "P3": {"A1"}},
	}
	want := []BlockingPair{
		{ApplicantID: "A1", ProgramID: "P1"},
		{ApplicantID: "A1", ProgramID: "P2"},
		{ApplicantID: "A2", ProgramID: "P1"},
	}
	if diff := cmp.Diff(want, VerifyStable(idx, assignment)); diff != "" {
		t.Fatalf("blocking pairs mismatch (-want +got):\n%s", diff)
	}
}

// TestVerifyStableUnrankedHeldIsWorst scores an assignment that parks an
// applicant the program never ranked; any ranked proposer displaces it.
func TestVerifyStableUnrankedHeldIsWorst(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{
			{ID: "A1", Preferences: []string{"P1"}},
			{ID: "X1", Preferences: []string{"P1"}},
		},
		[]match.Program{{ID: "P1", Capacity: 1, Ranking: []string{"A1"}}},
	)
	assignment := Result{
		ByApplicant: map[string]string{"A1": "", "X1": "P1"},
		ByProgram:   map[string][]string{"P1": {"X1"}},
	}
	want := []BlockingPair{{ApplicantID: "A1", ProgramID: "P1"}}
	if diff := cmp.Diff(want, VerifyStable(idx, assignment)); diff != "" {
		t.Fatalf("blocking pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyStableSkipsZeroCapacity(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{{ID: "A1", Preferences: []string{"Z1", "P1"}}},
		[]match.Program{
			{ID: "P1", Capacity: 1, Ranking: []string{"A1"}},
			{ID: "Z1", Capacity: 0, Ranking: []string{"A1"}},
		},
	)
	assignment := Result{
		ByApplicant: map[string]string{"A1": "P1"},
		ByProgram:   map[string][]string{"P1": {"A1"}, "Z1": {}},
	}
	if pairs := VerifyStable(idx, assignment); pairs != nil {
		t.Fatalf("expected stable assignment, got %v", pairs)
	}
}

func TestVerifyStableSkipsUnrankedProposer(t *testing.T) {
	idx := buildIndex(t,
		[]match.Applicant{{ID: "A1", Preferences: []string{"P1", "P2"}}},
		[]match.Program{
			{ID: "P1", Capacity: 1, Ranking: nil},
			{ID: "P2", Capacity: 1, Ranking: []string{"A1"}},
		},
	)
	assignment := Result{
		ByApplicant: map[string]string{"A1": "P2"},
		ByProgram:   map[string][]string{"P1": {}, "P2": {"A1"}},
	}
	if pairs := VerifyStable(idx, assignment); pairs != nil {
		t.Fatalf("expected stable assignment, got %v", pairs)
	}
}

func TestVerifyStableNilIndex(t *testing.T) {
	if pairs := VerifyStable(nil, Result{}); pairs != nil {
		t.Fatalf("expected nil for nil index, got %v", pairs)
	}
}

func TestVerifyStableAcceptsEngineOutput(t *testing.T) {
	for seed := int64(10); seed <= 13; seed++ {
		idx := randomIndex(t, seed)
		result, err := New().Run(idx)
		if err != nil {
			t.Fatalf("seed %d: Run failed: %v", seed, err)
		}
		if pairs := VerifyStable(idx, result); pairs != nil {
			t.Errorf("seed %d: expected stable engine output, got %v", seed, pairs)
		}
	}
}
