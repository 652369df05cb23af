// Package analysis computes summary metrics over match results and diffs
// pairs of runs, typically a base run against a scenario rerun.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"matchcore/pkg/match"
)

// Run pairs a result with the index it was computed from. Diffing needs
// both: the index supplies preference ranks and capacities, the result the
// assignment.
type Run struct {
	Index  *match.PreferenceIndex
	Result match.Result
}

// Summarize computes the metrics of one run. Rank statistics cover matched
// applicants only and use 1-based achieved ranks; with no matched applicants
// they are all zero, never NaN. The standard deviation is the sample
// deviation and is zero for a single matched applicant.
func Summarize(index *match.PreferenceIndex, result match.Result) match.Metrics {
	metrics := match.Metrics{
		RankDistribution: make(map[int]int),
		FillRatio:        make(map[string]float64),
	}
	if index == nil {
		return metrics
	}

	var ranks []float64
	for _, applicantID := range index.ApplicantIDs() {
		metrics.Applicants++
		programID, matched := result.AssignmentOf(applicantID)
		if !matched {
			metrics.UnmatchedApplicants++
			continue
		}
		metrics.Matched++
		rank, ok := index.PrefRank(applicantID, programID)
		if !ok {
			continue
		}
		ranks = append(ranks, float64(rank))
		metrics.RankDistribution[rank]++
	}

	for _, programID := range index.ProgramIDs() {
		metrics.Programs++
		capacity, _ := index.Capacity(programID)
		metrics.TotalCapacity += capacity
		filled := result.FillCount(programID)
		if capacity == 0 {
			metrics.FillRatio[programID] = 0
			continue
		}
		metrics.FillRatio[programID] = float64(filled) / float64(capacity)
		if filled < capacity {
			metrics.UnfilledSeats += capacity - filled
		}
	}

	if len(ranks) > 0 {
		sort.Float64s(ranks)
		metrics.MeanRank = stat.Mean(ranks, nil)
		metrics.MedianRank = stat.Quantile(0.5, stat.Empirical, ranks, nil)
		if len(ranks) > 1 {
			metrics.RankStdDev = stat.StdDev(ranks, nil)
		}
	}

	metrics.DroppedPreferences = result.Dropped.Total
	metrics.Proposals = result.Proposals
	return metrics
}

// Compare diffs a variant run against a base run. Moves records every
// applicant whose assignment differs, population changes included: an
// applicant present in only one run shows the missing side as unmatched.
// Numeric deltas are variant minus base, so swapping the arguments negates
// them and mirrors every move.
func Compare(base, variant Run) match.Diff {
	diff := match.Diff{
		Moves:      make(map[string]match.Move),
		FillDeltas: make(map[string]int),
	}

	for applicantID, from := range base.Result.ByApplicant {
		to := variant.Result.ByApplicant[applicantID]
		if from != to {
			diff.Moves[applicantID] = match.Move{From: from, To: to}
		}
	}
	for applicantID, to := range variant.Result.ByApplicant {
		if _, seen := base.Result.ByApplicant[applicantID]; seen {
			continue
		}
		if to != "" {
			diff.Moves[applicantID] = match.Move{From: "", To: to}
		}
	}

	for programID, roster := range base.Result.ByProgram {
		delta := len(variant.Result.ByProgram[programID]) - len(roster)
		if delta != 0 {
			diff.FillDeltas[programID] = delta
		}
	}
	for programID, roster := range variant.Result.ByProgram {
		if _, seen := base.Result.ByProgram[programID]; seen {
			continue
		}
		if len(roster) != 0 {
			diff.FillDeltas[programID] = len(roster)
		}
	}

	diff.UnmatchedDelta = len(variant.Result.Unmatched()) - len(base.Result.Unmatched())
	diff.MeanRankDelta = Summarize(variant.Index, variant.Result).MeanRank -
		Summarize(base.Index, base.Result).MeanRank
	diff.ProposalsDelta = variant.Result.Proposals - base.Result.Proposals
	return diff
}
