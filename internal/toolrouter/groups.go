package toolrouter

// groupExpansionCap is how many leading members of a group a match pulls in.
const groupExpansionCap = 3

// expandGroups returns matched followed by the members each group
// contributes. A group contributes its first groupExpansionCap members,
// in declared order, when it contains at least one name from matched.
// The result has no duplicates.
func expandGroups(matched []string, groups [][]string) []string {
	seen := make(map[string]struct{}, len(matched))
	out := make([]string, 0, len(matched))
	for _, name := range matched {
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}

	hits := make(map[string]struct{}, len(out))
	for _, name := range out {
		hits[name] = struct{}{}
	}

	for _, group := range groups {
		if !containsAny(group, hits) {
			continue
		}
		for _, name := range group[:min(len(group), groupExpansionCap)] {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}

func containsAny(group []string, set map[string]struct{}) bool {
	for _, name := range group {
		if _, ok := set[name]; ok {
			return true
		}
	}
	return false
}
