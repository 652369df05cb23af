package match

import (
	"encoding/json"
	"sort"
)

// Result is the outcome of one engine run over a PreferenceIndex. Both views
// describe the same assignment: ByApplicant holds every applicant in the
// index with its assigned program, the empty string meaning unmatched, and
// ByProgram holds every program with its roster sorted ascending by
// applicant identifier.
type Result struct {
	ByApplicant map[string]string   `json:"-"`
	ByProgram   map[string][]string `json:"-"`
	// Proposals is the total number of offers extended during the run.
	// Identical inputs always produce the identical count.
	Proposals int `json:"proposals"`
	// Dropped carries the drop report of the index the run consumed.
	Dropped DropReport `json:"dropped"`
}

// AssignmentOf returns the program assigned to the applicant and true, or
// ("", false) when the applicant is unmatched or not part of the run.
func (r Result) AssignmentOf(applicantID string) (string, bool) {
	programID, ok := r.ByApplicant[applicantID]
	if !ok || programID == "" {
		return "", false
	}
	return programID, true
}

// Unmatched returns the applicants without an assignment, ascending.
func (r Result) Unmatched() []string {
	var ids []string
	for id, programID := range r.ByApplicant {
		if programID == "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Assigned returns a copy of the program's roster, ascending by applicant
// identifier. Unknown programs yield nil.
func (r Result) Assigned(programID string) []string {
	roster, ok := r.ByProgram[programID]
	if !ok {
		return nil
	}
	return append([]string(nil), roster...)
}

// FillCount returns the number of seats the program filled.
func (r Result) FillCount(programID string) int {
	return len(r.ByProgram[programID])
}

// Matched returns the number of applicants holding an assignment.
func (r Result) Matched() int {
	n := 0
	for _, programID := range r.ByApplicant {
		if programID != "" {
			n++
		}
	}
	return n
}

// Equal reports whether two results describe the same assignment, proposal
// count, and drop report.
func (r Result) Equal(other Result) bool {
	if r.Proposals != other.Proposals {
		return false
	}
	if len(r.ByApplicant) != len(other.ByApplicant) {
		return false
	}
	for id, programID := range r.ByApplicant {
		got, ok := other.ByApplicant[id]
		if !ok || got != programID {
			return false
		}
	}
	if len(r.ByProgram) != len(other.ByProgram) {
		return false
	}
	for id, roster := range r.ByProgram {
		got, ok := other.ByProgram[id]
		if !ok || len(got) != len(roster) {
			return false
		}
		for i := range roster {
			if got[i] != roster[i] {
				return false
			}
		}
	}
	return r.Dropped.Total == other.Dropped.Total &&
		intMapsEqual(r.Dropped.ApplicantPreferences, other.Dropped.ApplicantPreferences) &&
		intMapsEqual(r.Dropped.ProgramRankings, other.Dropped.ProgramRankings)
}

// Clone returns a deep copy of the result.
func (r Result) Clone() Result {
	cp := r
	if r.ByApplicant != nil {
		cp.ByApplicant = make(map[string]string, len(r.ByApplicant))
		for id, programID := range r.ByApplicant {
			cp.ByApplicant[id] = programID
		}
	}
	if r.ByProgram != nil {
		cp.ByProgram = make(map[string][]string, len(r.ByProgram))
		for id, roster := range r.ByProgram {
			cp.ByProgram[id] = append([]string(nil), roster...)
		}
	}
	cp.Dropped = r.Dropped.clone()
	return cp
}

type resultAlias Result

// MarshalJSON serialises the applicant view with explicit nulls so consumers
// can tell "unmatched" from "absent".
func (r Result) MarshalJSON() ([]byte, error) {
	type payload struct {
		resultAlias
		ByApplicant map[string]*string `json:"by_applicant"`
		ByProgram   map[string][]string `json:"by_program"`
	}
	byApplicant := make(map[string]*string, len(r.ByApplicant))
	for id, programID := range r.ByApplicant {
		byApplicant[id] = nullableID(programID)
	}
	return json.Marshal(payload{
		resultAlias: resultAlias(r),
		ByApplicant: byApplicant,
		ByProgram:   r.ByProgram,
	})
}

// UnmarshalJSON hydrates the applicant view, mapping nulls back to the empty
// string.
func (r *Result) UnmarshalJSON(data []byte) error {
	type payload struct {
		resultAlias
		ByApplicant map[string]*string `json:"by_applicant"`
		ByProgram   map[string][]string `json:"by_program"`
	}
	var aux payload
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Result(aux.resultAlias)
	if aux.ByApplicant != nil {
		r.ByApplicant = make(map[string]string, len(aux.ByApplicant))
		for id, programID := range aux.ByApplicant {
			if programID == nil {
				r.ByApplicant[id] = ""
				continue
			}
			r.ByApplicant[id] = *programID
		}
	}
	r.ByProgram = aux.ByProgram
	return nil
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func intMapsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		got, ok := b[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}
