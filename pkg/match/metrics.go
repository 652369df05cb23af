package match

import "encoding/json"

// Metrics summarises one run: population counts, capacity utilisation, and
// the distribution of achieved preference ranks. Ranks are 1-based, so a
// MeanRank of 1.0 means every matched applicant got its first choice. Rank
// statistics cover matched applicants only; when nobody matched they are
// all zero.
type Metrics struct {
	Applicants          int     `json:"applicants"`
	Programs            int     `json:"programs"`
	Matched             int     `json:"matched"`
	UnmatchedApplicants int     `json:"unmatched_applicants"`
	TotalCapacity       int     `json:"total_capacity"`
	UnfilledSeats       int     `json:"unfilled_seats"`
	MeanRank            float64 `json:"mean_rank"`
	RankStdDev          float64 `json:"rank_std_dev"`
	MedianRank          float64 `json:"median_rank"`
	// RankDistribution counts matched applicants by achieved rank.
	RankDistribution map[int]int `json:"rank_distribution,omitempty"`
	// FillRatio maps each program to filled seats over capacity; programs
	// with capacity zero report zero.
	FillRatio          map[string]float64 `json:"fill_ratio,omitempty"`
	DroppedPreferences int                `json:"dropped_preferences"`
	Proposals          int                `json:"proposals"`
}

// Move records one applicant's assignment change between two runs. An empty
// endpoint means unmatched on that side.
type Move struct {
	From string
	To   string
}

// MarshalJSON serialises unmatched endpoints as explicit nulls.
func (m Move) MarshalJSON() ([]byte, error) {
	type payload struct {
		From *string `json:"from"`
		To   *string `json:"to"`
	}
	return json.Marshal(payload{From: nullableID(m.From), To: nullableID(m.To)})
}

// UnmarshalJSON maps null endpoints back to the empty string.
func (m *Move) UnmarshalJSON(data []byte) error {
	type payload struct {
		From *string `json:"from"`
		To   *string `json:"to"`
	}
	var aux payload
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.From = ""
	m.To = ""
	if aux.From != nil {
		m.From = *aux.From
	}
	if aux.To != nil {
		m.To = *aux.To
	}
	return nil
}

// Diff describes how a variant run departs from a base run. Applicants with
// the same assignment in both runs never appear in Moves; an applicant
// present in only one run appears with the missing side unmatched. Deltas
// are variant minus base.
type Diff struct {
	Moves          map[string]Move `json:"moves,omitempty"`
	FillDeltas     map[string]int  `json:"fill_deltas,omitempty"`
	UnmatchedDelta int             `json:"unmatched_delta"`
	MeanRankDelta  float64         `json:"mean_rank_delta"`
	ProposalsDelta int             `json:"proposals_delta"`
}
