package match

import "sort"

// RankingFromScores converts a score table into a strict ranking: descending
// by score, ties broken ascending by identifier so equal scores still yield
// a deterministic order. Program and applicant records carry explicit ranked
// lists; this helper is for callers whose upstream data is numeric.
func RankingFromScores(scores map[string]float64) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
