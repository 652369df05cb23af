package match

// Scenario is a named, declarative set of deltas over a base PreferenceIndex.
// The override maps replace whole capacities, preference lists, and rankings
// rather than merging into them. A Scenario is a pure description; applying
// one via WithOverrides never mutates the base index.
type Scenario struct {
	Name                 string              `json:"name" yaml:"name"`
	CapacityOverrides    map[string]int      `json:"capacity_overrides,omitempty" yaml:"capacity_overrides,omitempty"`
	ApplicantPreferences map[string][]string `json:"applicant_preferences,omitempty" yaml:"applicant_preferences,omitempty"`
	ProgramRankings      map[string][]string `json:"program_rankings,omitempty" yaml:"program_rankings,omitempty"`
	AddApplicants        []Applicant         `json:"add_applicants,omitempty" yaml:"add_applicants,omitempty"`
	AddPrograms          []Program           `json:"add_programs,omitempty" yaml:"add_programs,omitempty"`
	RemoveApplicants     []string            `json:"remove_applicants,omitempty" yaml:"remove_applicants,omitempty"`
	RemovePrograms       []string            `json:"remove_programs,omitempty" yaml:"remove_programs,omitempty"`
}

// Clone returns a deep copy of the scenario.
func (s Scenario) Clone() Scenario {
	cp := s
	cp.CapacityOverrides = cloneIntMap(s.CapacityOverrides)
	cp.ApplicantPreferences = cloneListMap(s.ApplicantPreferences)
	cp.ProgramRankings = cloneListMap(s.ProgramRankings)
	if s.AddApplicants != nil {
		cp.AddApplicants = make([]Applicant, len(s.AddApplicants))
		for i, a := range s.AddApplicants {
			cp.AddApplicants[i] = a.clone()
		}
	}
	if s.AddPrograms != nil {
		cp.AddPrograms = make([]Program, len(s.AddPrograms))
		for i, p := range s.AddPrograms {
			cp.AddPrograms[i] = p.clone()
		}
	}
	cp.RemoveApplicants = append([]string(nil), s.RemoveApplicants...)
	cp.RemovePrograms = append([]string(nil), s.RemovePrograms...)
	return cp
}

// WithOverrides applies the scenario to a copy of the index and returns the
// rebuilt copy; the receiver is never touched. Deltas apply in a fixed order:
// removals, then additions, then preference overrides, then capacity
// overrides. A scenario that removes and re-adds an identifier therefore
// replaces the entity, and an override on an added entity wins.
//
// Overriding or removing an identifier the index does not hold is an
// UnknownIdentifierError, adding one it already holds is a
// DuplicateEntryError, and a negative capacity override is an
// InvalidCapacityError. Rebuild validation is lenient about references left
// dangling by the deltas: scenarios model real-world withdrawal, so a
// reference to a removed entity is dropped and counted in the new index's
// DropReport rather than rejected. The report counts only drops induced by
// this application; the base index keeps its own.
func (x *PreferenceIndex) WithOverrides(sc Scenario) (*PreferenceIndex, error) {
	owner := sc.Name
	if owner == "" {
		owner = "scenario"
	}

	apps := make(map[string]Applicant, len(x.applicantIDs))
	for _, a := range x.Applicants() {
		apps[a.ID] = a
	}
	progs := make(map[string]Program, len(x.programIDs))
	for _, p := range x.Programs() {
		progs[p.ID] = p
	}

	for _, id := range sc.RemoveApplicants {
		if _, ok := apps[id]; !ok {
			return nil, UnknownIdentifierError{Kind: KindApplicant, Owner: owner, Ref: id}
		}
		delete(apps, id)
	}
	for _, id := range sc.RemovePrograms {
		if _, ok := progs[id]; !ok {
			return nil, UnknownIdentifierError{Kind: KindProgram, Owner: owner, Ref: id}
		}
		delete(progs, id)
	}

	for _, a := range sc.AddApplicants {
		if a.ID == "" {
			return nil, InvalidIdentifierError{Kind: KindApplicant, Owner: owner}
		}
		if _, exists := apps[a.ID]; exists {
			return nil, DuplicateEntryError{Kind: KindApplicant, ID: a.ID}
		}
		apps[a.ID] = a.clone()
	}
	for _, p := range sc.AddPrograms {
		if p.ID == "" {
			return nil, InvalidIdentifierError{Kind: KindProgram, Owner: owner}
		}
		if _, exists := progs[p.ID]; exists {
			return nil, DuplicateEntryError{Kind: KindProgram, ID: p.ID}
		}
		progs[p.ID] = p.clone()
	}

	for _, id := range sortedKeys(sc.ApplicantPreferences) {
		a, ok := apps[id]
		if !ok {
			return nil, UnknownIdentifierError{Kind: KindApplicant, Owner: owner, Ref: id}
		}
		a.Preferences = append([]string(nil), sc.ApplicantPreferences[id]...)
		apps[id] = a
	}
	for _, id := range sortedKeys(sc.ProgramRankings) {
		p, ok := progs[id]
		if !ok {
			return nil, UnknownIdentifierError{Kind: KindProgram, Owner: owner, Ref: id}
		}
		p.Ranking = append([]string(nil), sc.ProgramRankings[id]...)
		progs[id] = p
	}

	for _, id := range sortedKeys(sc.CapacityOverrides) {
		p, ok := progs[id]
		if !ok {
			return nil, UnknownIdentifierError{Kind: KindProgram, Owner: owner, Ref: id}
		}
		capacity := sc.CapacityOverrides[id]
		if capacity < 0 {
			return nil, InvalidCapacityError{ProgramID: id, Capacity: capacity}
		}
		p.Capacity = capacity
		progs[id] = p
	}

	applicants := make([]Applicant, 0, len(apps))
	for _, id := range sortedKeys(apps) {
		applicants = append(applicants, apps[id])
	}
	programs := make([]Program, 0, len(progs))
	for _, id := range sortedKeys(progs) {
		programs = append(programs, progs[id])
	}

	cfg := buildConfig{
		externalApplicants: cloneIDSet(x.externalApplicants),
		externalPrograms:   cloneIDSet(x.externalPrograms),
		lenient:            true,
	}
	return build(applicants, programs, cfg)
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneListMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	cp := make(map[string][]string, len(m))
	for k, v := range m {
		cp[k] = append([]string(nil), v...)
	}
	return cp
}
