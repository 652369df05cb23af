package engine

import "math"

// BlockingPair names an applicant and a program that would defect from an
// assignment: the applicant prefers the program to its assignment and the
// program has a free seat or holds someone it ranks lower.
type BlockingPair struct {
	ApplicantID string `json:"applicant_id"`
	ProgramID   string `json:"program_id"`
}

// VerifyStable checks an assignment against every preference the index
// holds and returns all blocking pairs, or nil when the assignment is
// stable. The check is independent of Run: it scores any assignment, not
// just engine output, so harnesses can use it as an oracle.
//
// Pairs are ordered by applicant identifier, then by the applicant's
// preference order.
func VerifyStable(index *PreferenceIndex, result Result) []BlockingPair {
	if index == nil {
		return nil
	}
	var pairs []BlockingPair
	for _, applicantID := range index.ApplicantIDs() {
		assigned := result.ByApplicant[applicantID]
		for _, programID := range index.Preferences(applicantID) {
			if programID == assigned {
				break
			}
			rank, ranked := index.Rank(programID, applicantID)
			if !ranked {
				continue
			}
			capacity, _ := index.Capacity(programID)
			if capacity == 0 {
				continue
			}
			roster := result.ByProgram[programID]
			if len(roster) < capacity {
				pairs = append(pairs, BlockingPair{ApplicantID: applicantID, ProgramID: programID})
				continue
			}
			if rank < worstHeldRank(index, programID, roster) {
				pairs = append(pairs, BlockingPair{ApplicantID: applicantID, ProgramID: programID})
			}
		}
	}
	return pairs
}

// worstHeldRank returns the highest rank value among the roster. An
// applicant the program does not rank counts as infinitely bad, so any
// ranked proposer displaces it.
func worstHeldRank(index *PreferenceIndex, programID string, roster []string) int {
	worst := 0
	for _, held := range roster {
		rank, ranked := index.Rank(programID, held)
		if !ranked {
			return math.MaxInt
		}
		if rank > worst {
			worst = rank
		}
	}
	return worst
}
