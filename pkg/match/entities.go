// Package match defines the domain types, validation rules, and preference
// index used by the residency match simulation core: applicant and program
// records, the immutable PreferenceIndex built from them, scenario deltas,
// and the result/metrics structures handed back to callers for storage or
// serving.
package match

// EntityKind identifies which side of the market an identifier belongs to.
type EntityKind string

// Entity kinds used by validation errors and drop accounting.
const (
	// KindApplicant identifies an applicant record or reference.
	KindApplicant EntityKind = "applicant"
	// KindProgram identifies a program record or reference.
	KindProgram EntityKind = "program"
)

// Applicant is one applicant record as delivered by the upstream data
// platform: a unique identifier plus the applicant's rank-order list of
// program identifiers, most preferred first. Programs absent from the list
// are unacceptable to the applicant; an empty list is legal and leaves the
// applicant unmatched in every run.
type Applicant struct {
	ID          string   `json:"id" yaml:"id"`
	Preferences []string `json:"preferences" yaml:"preferences"`
}

func (a Applicant) clone() Applicant {
	cp := a
	cp.Preferences = append([]string(nil), a.Preferences...)
	return cp
}

// Program is one program record: a unique identifier, the number of seats
// the program may fill this run (zero means the program accepts nobody),
// and the program's strict ranking over acceptable applicant identifiers.
// Applicants absent from Ranking are unacceptable to the program.
type Program struct {
	ID       string   `json:"id" yaml:"id"`
	Capacity int      `json:"capacity" yaml:"capacity"`
	Ranking  []string `json:"ranking" yaml:"ranking"`
}

func (p Program) clone() Program {
	cp := p
	cp.Ranking = append([]string(nil), p.Ranking...)
	return cp
}
