package dedup

import (
	"sort"
	"time"
)

// GroupDecision records which member of one duplicate group is kept and why.
type GroupDecision struct {
	BusinessKey string      `json:"business_key"`
	Kept        Candidate   `json:"kept"`
	Removed     []Candidate `json:"removed"`
}

// Plan is the inspectable outcome of planning. Building a plan never touches storage.
type Plan struct {
	RunID          string          `json:"run_id,omitempty"`
	EntityType     string          `json:"entity_type,omitempty"`
	ZeroPolicy     ZeroPolicy      `json:"zero_policy"`
	GeneratedAt    time.Time       `json:"generated_at"`
	RecordsScanned int             `json:"records_scanned"`
	GroupsFound    int             `json:"groups_found"`
	ToDelete       []int           `json:"to_delete"`
	Survivors      map[string]int  `json:"survivors"`
	Groups         []GroupDecision `json:"groups"`
}

// IsEmpty is true when there is nothing to delete.
func (p Plan) IsEmpty() bool {
	return len(p.ToDelete) == 0
}

// BuildPlan groups records, selects one survivor per group and lists every other member for deletion.
// Groups are reported in business key order and ToDelete is sorted ascending.
func (s Scorer) BuildPlan(records []Record) Plan {
	policy := s.ZeroPolicy
	if policy == "" {
		policy = ZeroPolicyLiteral
	}
	plan := Plan{
		ZeroPolicy:     policy,
		RecordsScanned: len(records),
		ToDelete:       []int{},
		Survivors:      map[string]int{},
		Groups:         []GroupDecision{},
	}

	groups := FindDuplicateGroups(records)
	for _, key := range sortedKeys(groups) {
		ranked := s.Rank(groups[key])
		decision := GroupDecision{
			BusinessKey: key,
			Kept:        ranked[0],
			Removed:     append([]Candidate(nil), ranked[1:]...),
		}
		plan.Survivors[key] = decision.Kept.ID
		for _, c := range decision.Removed {
			plan.ToDelete = append(plan.ToDelete, c.ID)
		}
		plan.Groups = append(plan.Groups, decision)
	}
	plan.GroupsFound = len(plan.Groups)
	sort.Ints(plan.ToDelete)
	return plan
}

// BuildPlan plans records with DefaultScorer.
func BuildPlan(records []Record) Plan {
	return DefaultScorer.BuildPlan(records)
}
