package attribution

import "github.com/ignite/roas-attribution/internal/domain"

// Rank merges a tier's candidates into a single ranked, deduplicated list.
// Candidates with empty or placeholder ad ids are dropped, the rest are
// ordered by timestamp descending (unorderable zero stamps last), then
// deduplicated first by ad id — keeping the most recent occurrence — and
// then by timestamp, which guards against duplicate events with identical
// stamps re-inserting an id. An empty input yields an empty output; callers
// treat that as "no usable evidence" and move on to the next tier.
func Rank(candidates []domain.Candidate) []domain.Candidate {
	valid := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Valid() {
			valid = append(valid, c)
		}
	}
	sortByTimestampDesc(valid)

	seenIDs := make(map[string]bool, len(valid))
	seenStamps := make(map[int64]bool, len(valid))
	ranked := make([]domain.Candidate, 0, len(valid))
	for _, c := range valid {
		if seenIDs[c.AdID] || seenStamps[c.Timestamp] {
			continue
		}
		seenIDs[c.AdID] = true
		seenStamps[c.Timestamp] = true
		ranked = append(ranked, c)
	}
	return ranked
}
