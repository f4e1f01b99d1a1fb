package dedup

import "sort"

// FindDuplicateGroups groups records by business key and keeps only keys shared by two or more records.
// Records with a nil or empty key are skipped. Members of each group are ordered by id.
func FindDuplicateGroups(records []Record) map[string][]Record {
	byKey := make(map[string][]Record)
	for _, r := range records {
		key, ok := r.Key()
		if !ok {
			continue
		}
		byKey[key] = append(byKey[key], r)
	}

	groups := make(map[string][]Record)
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		groups[key] = members
	}
	return groups
}

// sortedKeys returns the keys of groups in ascending order.
func sortedKeys(groups map[string][]Record) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
