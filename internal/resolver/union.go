package resolver

// unionPreserveOrder concatenates lists, keeping the first occurrence
// of each distinct string and dropping later duplicates — the ordering
// §4.4 step 1 asks for when merging changes/commands across every
// blocked lane's request.
func unionPreserveOrder(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, item := range list {
			if seen[item] {
				continue
			}
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
