package event

import (
	"sort"
	"strings"
)

// Snapshot is the set of candidates seen in one run
type Snapshot struct {
	Candidates map[string]*Candidate `json:"candidates"` // keyed by DedupKey
	UpdatedAt  string                `json:"updated_at"` // RFC3339 timestamp
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Candidates: make(map[string]*Candidate),
	}
}

// CreateSnapshot creates a snapshot from a list of candidates
func CreateSnapshot(candidates []*Candidate, updatedAt string) *Snapshot {
	snap := NewSnapshot()
	snap.UpdatedAt = updatedAt
	for _, c := range candidates {
		key := c.DedupKey()
		if _, exists := snap.Candidates[key]; !exists {
			snap.Candidates[key] = c
		}
	}
	return snap
}

// DiffResult contains the candidates not present in the previous snapshot
type DiffResult struct {
	New     []*Candidate
	ByVenue map[string][]*Candidate // keyed by venue slug
}

// Diff compares current candidates against a previous snapshot. An empty or
// "all" venueFilter keeps every venue; otherwise only the matching slug.
func Diff(previous *Snapshot, current []*Candidate, venueFilter string) *DiffResult {
	result := &DiffResult{
		New:     make([]*Candidate, 0),
		ByVenue: make(map[string][]*Candidate),
	}

	if previous == nil {
		previous = NewSnapshot()
	}

	for _, c := range current {
		if venueFilter != "" && !strings.EqualFold(venueFilter, "all") && !strings.EqualFold(c.VenueSlug, venueFilter) {
			continue
		}
		if _, exists := previous.Candidates[c.DedupKey()]; exists {
			continue
		}
		result.New = append(result.New, c)
		result.ByVenue[c.VenueSlug] = append(result.ByVenue[c.VenueSlug], c)
	}

	SortByDate(result.New)
	for slug := range result.ByVenue {
		SortByDate(result.ByVenue[slug])
	}
	return result
}

// SortByDate orders candidates by date, then venue, then title. The sort is stable.
func SortByDate(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ka, kb := a.Date.Key(), b.Date.Key(); ka != kb {
			return ka < kb
		}
		if a.VenueSlug != b.VenueSlug {
			return a.VenueSlug < b.VenueSlug
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}
