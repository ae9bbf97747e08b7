package event

// Dedupe drops candidates whose DedupKey has already been seen, keeping the
// first occurrence and preserving input order.
func Dedupe(candidates []*Candidate) []*Candidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		key := c.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}
	return unique
}
