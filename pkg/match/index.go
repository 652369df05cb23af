package match

import "sort"

// DropReport counts ranked-list entries removed during index construction
// under the documented drop policy: references to identifiers declared
// external, and references left dangling by scenario removals. Dropped
// preferences are never an error, but they are never silent either: the
// counts surface in run metrics so operators can detect data drift.
type DropReport struct {
	// ApplicantPreferences counts dropped entries per applicant preference
	// list.
	ApplicantPreferences map[string]int `json:"applicant_preferences,omitempty"`
	// ProgramRankings counts dropped entries per program ranking.
	ProgramRankings map[string]int `json:"program_rankings,omitempty"`
	// Total is the sum of all dropped entries on both sides.
	Total int `json:"total"`
}

func (r DropReport) clone() DropReport {
	cp := DropReport{Total: r.Total}
	if r.ApplicantPreferences != nil {
		cp.ApplicantPreferences = make(map[string]int, len(r.ApplicantPreferences))
		for k, v := range r.ApplicantPreferences {
			cp.ApplicantPreferences[k] = v
		}
	}
	if r.ProgramRankings != nil {
		cp.ProgramRankings = make(map[string]int, len(r.ProgramRankings))
		for k, v := range r.ProgramRankings {
			cp.ProgramRankings[k] = v
		}
	}
	return cp
}

func (r *DropReport) dropApplicantPreference(applicantID string) {
	if r.ApplicantPreferences == nil {
		r.ApplicantPreferences = make(map[string]int)
	}
	r.ApplicantPreferences[applicantID]++
	r.Total++
}

func (r *DropReport) dropProgramRanking(programID string) {
	if r.ProgramRankings == nil {
		r.ProgramRankings = make(map[string]int)
	}
	r.ProgramRankings[programID]++
	r.Total++
}

// PreferenceIndex is the validated, bidirectional view of one match
// instance: applicant preference lists, program rankings with constant-time
// rank lookup, and program capacities. A PreferenceIndex is immutable after
// Build; WithOverrides returns an independent copy and the base is never
// touched. All fields are unexported on purpose; the immutability contract
// is pinned by a contract test.
type PreferenceIndex struct {
	applicantIDs []string
	programIDs   []string

	prefs      map[string][]string
	rankings   map[string][]string
	ranks      map[string]map[string]int
	prefRanks  map[string]map[string]int
	capacities map[string]int

	externalApplicants map[string]struct{}
	externalPrograms   map[string]struct{}

	totalPrefs int
	dropped    DropReport
}

// BuildOption adjusts index construction.
type BuildOption func(*buildConfig)

type buildConfig struct {
	externalApplicants map[string]struct{}
	externalPrograms   map[string]struct{}

	// lenient drops any unknown reference instead of failing validation.
	// Scenario re-validation runs lenient because removals legitimately
	// leave dangling references behind (spec drop policy); initial builds
	// stay strict.
	lenient bool
}

// WithExternalApplicants declares applicant identifiers that may appear in
// program rankings without a corresponding applicant record. References to
// them are dropped and counted rather than failing validation.
func WithExternalApplicants(ids ...string) BuildOption {
	return func(cfg *buildConfig) {
		for _, id := range ids {
			cfg.externalApplicants[id] = struct{}{}
		}
	}
}

// WithExternalPrograms declares program identifiers that may appear in
// applicant preference lists without a corresponding program record.
// References to them are dropped and counted rather than failing
// validation.
func WithExternalPrograms(ids ...string) BuildOption {
	return func(cfg *buildConfig) {
		for _, id := range ids {
			cfg.externalPrograms[id] = struct{}{}
		}
	}
}

// Build validates the raw records and assembles the preference index. It
// rejects duplicate identifiers, empty identifiers, references to unknown
// identifiers that are not declared external, and negative capacities.
// Build performs no I/O, leaves the input slices untouched, and either
// returns a complete index or the first validation error; no partial
// state escapes.
func Build(applicants []Applicant, programs []Program, opts ...BuildOption) (*PreferenceIndex, error) {
	cfg := buildConfig{
		externalApplicants: make(map[string]struct{}),
		externalPrograms:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return build(applicants, programs, cfg)
}

func build(applicants []Applicant, programs []Program, cfg buildConfig) (*PreferenceIndex, error) {
	idx := &PreferenceIndex{
		prefs:              make(map[string][]string, len(applicants)),
		rankings:           make(map[string][]string, len(programs)),
		ranks:              make(map[string]map[string]int, len(programs)),
		prefRanks:          make(map[string]map[string]int, len(applicants)),
		capacities:         make(map[string]int, len(programs)),
		externalApplicants: cloneIDSet(cfg.externalApplicants),
		externalPrograms:   cloneIDSet(cfg.externalPrograms),
	}

	for _, a := range applicants {
		if a.ID == "" {
			return nil, InvalidIdentifierError{Kind: KindApplicant}
		}
		if _, exists := idx.prefs[a.ID]; exists {
			return nil, DuplicateEntryError{Kind: KindApplicant, ID: a.ID}
		}
		idx.prefs[a.ID] = nil
		idx.applicantIDs = append(idx.applicantIDs, a.ID)
	}
	for _, p := range programs {
		if p.ID == "" {
			return nil, InvalidIdentifierError{Kind: KindProgram}
		}
		if _, exists := idx.capacities[p.ID]; exists {
			return nil, DuplicateEntryError{Kind: KindProgram, ID: p.ID}
		}
		if p.Capacity < 0 {
			return nil, InvalidCapacityError{ProgramID: p.ID, Capacity: p.Capacity}
		}
		idx.capacities[p.ID] = p.Capacity
		idx.programIDs = append(idx.programIDs, p.ID)
	}
	sort.Strings(idx.applicantIDs)
	sort.Strings(idx.programIDs)

	for _, a := range applicants {
		seen := make(map[string]struct{}, len(a.Preferences))
		list := make([]string, 0, len(a.Preferences))
		for _, pid := range a.Preferences {
			if pid == "" {
				return nil, InvalidIdentifierError{Kind: KindProgram, Owner: a.ID}
			}
			if _, dup := seen[pid]; dup {
				return nil, DuplicateEntryError{Kind: KindApplicant, ID: a.ID, Ref: pid}
			}
			seen[pid] = struct{}{}
			if _, known := idx.capacities[pid]; !known {
				if cfg.lenient || hasID(cfg.externalPrograms, pid) {
					idx.dropped.dropApplicantPreference(a.ID)
					continue
				}
				return nil, UnknownIdentifierError{Kind: KindProgram, Owner: a.ID, Ref: pid}
			}
			list = append(list, pid)
		}
		idx.prefs[a.ID] = list
		ranks := make(map[string]int, len(list))
		for i, pid := range list {
			ranks[pid] = i + 1
		}
		idx.prefRanks[a.ID] = ranks
		idx.totalPrefs += len(list)
	}

	for _, p := range programs {
		seen := make(map[string]struct{}, len(p.Ranking))
		list := make([]string, 0, len(p.Ranking))
		for _, aid := range p.Ranking {
			if aid == "" {
				return nil, InvalidIdentifierError{Kind: KindApplicant, Owner: p.ID}
			}
			if _, dup := seen[aid]; dup {
				return nil, DuplicateEntryError{Kind: KindProgram, ID: p.ID, Ref: aid}
			}
			seen[aid] = struct{}{}
			if _, known := idx.prefs[aid]; !known {
				if cfg.lenient || hasID(cfg.externalApplicants, aid) {
					idx.dropped.dropProgramRanking(p.ID)
					continue
				}
				return nil, UnknownIdentifierError{Kind: KindApplicant, Owner: p.ID, Ref: aid}
			}
			list = append(list, aid)
		}
		idx.rankings[p.ID] = list
		ranks := make(map[string]int, len(list))
		for i, aid := range list {
			ranks[aid] = i + 1
		}
		idx.ranks[p.ID] = ranks
	}

	return idx, nil
}

// ApplicantIDs returns every applicant identifier in ascending order.
func (x *PreferenceIndex) ApplicantIDs() []string {
	return append([]string(nil), x.applicantIDs...)
}

// ProgramIDs returns every program identifier in ascending order.
func (x *PreferenceIndex) ProgramIDs() []string {
	return append([]string(nil), x.programIDs...)
}

// Preferences returns the applicant's effective preference list, most
// preferred first. The result is a copy; unknown applicants yield nil.
func (x *PreferenceIndex) Preferences(applicantID string) []string {
	list, ok := x.prefs[applicantID]
	if !ok {
		return nil
	}
	return append([]string(nil), list...)
}

// Ranking returns the program's effective ranking over applicants, most
// preferred first. The result is a copy; unknown programs yield nil.
func (x *PreferenceIndex) Ranking(programID string) []string {
	list, ok := x.rankings[programID]
	if !ok {
		return nil
	}
	return append([]string(nil), list...)
}

// Capacity returns the program's seat count and whether the program exists.
func (x *PreferenceIndex) Capacity(programID string) (int, bool) {
	c, ok := x.capacities[programID]
	return c, ok
}

// Rank returns the 1-based position of the applicant in the program's
// ranking; ok is false when the program does not rank the applicant.
func (x *PreferenceIndex) Rank(programID, applicantID string) (int, bool) {
	ranks, ok := x.ranks[programID]
	if !ok {
		return 0, false
	}
	r, ok := ranks[applicantID]
	return r, ok
}

// PrefRank returns the 1-based position of the program in the applicant's
// preference list; ok is false when the applicant does not list the
// program.
func (x *PreferenceIndex) PrefRank(applicantID, programID string) (int, bool) {
	ranks, ok := x.prefRanks[applicantID]
	if !ok {
		return 0, false
	}
	r, ok := ranks[programID]
	return r, ok
}

// TotalPreferences is the sum of all effective preference list lengths. It
// bounds the proposal count of any deferred-acceptance run over this index.
func (x *PreferenceIndex) TotalPreferences() int {
	return x.totalPrefs
}

// Dropped returns a copy of the drop report accumulated while building this
// index.
func (x *PreferenceIndex) Dropped() DropReport {
	return x.dropped.clone()
}

// Applicants reconstructs the applicant records held by the index, in
// ascending identifier order, with effective (post-drop) preference lists.
func (x *PreferenceIndex) Applicants() []Applicant {
	out := make([]Applicant, 0, len(x.applicantIDs))
	for _, id := range x.applicantIDs {
		out = append(out, Applicant{ID: id, Preferences: append([]string(nil), x.prefs[id]...)})
	}
	return out
}

// Programs reconstructs the program records held by the index, in ascending
// identifier order, with effective (post-drop) rankings.
func (x *PreferenceIndex) Programs() []Program {
	out := make([]Program, 0, len(x.programIDs))
	for _, id := range x.programIDs {
		out = append(out, Program{
			ID:       id,
			Capacity: x.capacities[id],
			Ranking:  append([]string(nil), x.rankings[id]...),
		})
	}
	return out
}

func cloneIDSet(set map[string]struct{}) map[string]struct{} {
	cp := make(map[string]struct{}, len(set))
	for id := range set {
		cp[id] = struct{}{}
	}
	return cp
}

func hasID(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
