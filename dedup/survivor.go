package dedup

import (
	"sort"
	"time"
)

// Candidate is a group member together with the values that decided its rank.
type Candidate struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Score     int       `json:"score"`
	Kept      bool      `json:"kept"`
}

// Rank orders a group best-first: highest score, then earliest created_at, then lowest id.
// The input slice is not modified.
func (s Scorer) Rank(group []Record) []Candidate {
	ranked := make([]Candidate, 0, len(group))
	for _, r := range group {
		ranked = append(ranked, Candidate{ID: r.ID, CreatedAt: r.CreatedAt, Score: s.Score(r)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if len(ranked) > 0 {
		ranked[0].Kept = true
	}
	return ranked
}

// SelectSurvivor returns the record that survives group, plus the ranked candidates.
// ok is false for an empty group.
func (s Scorer) SelectSurvivor(group []Record) (survivor Record, ranked []Candidate, ok bool) {
	if len(group) == 0 {
		return Record{}, nil, false
	}
	ranked = s.Rank(group)
	for _, r := range group {
		if r.ID == ranked[0].ID {
			return r, ranked, true
		}
	}
	return Record{}, ranked, false
}

// SelectSurvivor picks the survivor of group using DefaultScorer.
func SelectSurvivor(group []Record) (Record, bool) {
	r, _, ok := DefaultScorer.SelectSurvivor(group)
	return r, ok
}
