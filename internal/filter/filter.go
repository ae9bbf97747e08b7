// Package filter narrows candidate lists for reporting.
//
// Filters combine criteria with AND; within one list criterion (venues,
// artists) any entry may match:
//   - Date range (from/to, inclusive calendar days)
//   - Venues (slug, case-insensitive exact match)
//   - Artists (case-insensitive substring match)
//   - Weekends only (Friday/Saturday/Sunday shows)
//
// Example usage:
//
//	// Weekend shows at The Chapel in March
//	f := filter.NewFilter()
//	f.WeekendsOnly = true
//	f.Venues = []string{"the-chapel"}
//	f.DateFrom, f.DateTo, _ = filter.ParseDateRange("March", time.Now())
//
//	filtered := f.Apply(candidates)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/baysound/sf-events/internal/event"
)

// Filter represents candidate filtering criteria
type Filter struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Venue slugs
	Venues []string `json:"venues,omitempty"`

	// Artist name fragments (case-insensitive substring match)
	Artists []string `json:"artists,omitempty"`

	// Weekend nights: Friday, Saturday and Sunday
	WeekendsOnly bool `json:"weekends_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f == nil ||
		f.DateFrom == nil &&
			f.DateTo == nil &&
			len(f.Venues) == 0 &&
			len(f.Artists) == 0 &&
			!f.WeekendsOnly
}

// Matches checks if a candidate matches all active filter criteria.
// Dates compare by calendar day, so time of day never excludes a show
// on the last day of a range.
func (f *Filter) Matches(c *event.Candidate) bool {
	if f.IsEmpty() {
		return true
	}

	day := dayOf(c.Date.Time())

	if f.DateFrom != nil && day.Before(dayOf(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && day.After(dayOf(*f.DateTo)) {
		return false
	}

	if f.WeekendsOnly {
		switch day.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
		default:
			return false
		}
	}

	if len(f.Venues) > 0 {
		matched := false
		for _, slug := range f.Venues {
			if strings.EqualFold(c.VenueSlug, strings.TrimSpace(slug)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Artists) > 0 {
		matched := false
		artist := strings.ToLower(c.ArtistName)
		for _, a := range f.Artists {
			if strings.Contains(artist, strings.ToLower(strings.TrimSpace(a))) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the matching candidates. An empty filter returns the input unchanged.
func (f *Filter) Apply(candidates []*event.Candidate) []*event.Candidate {
	if f.IsEmpty() {
		return candidates
	}

	filtered := make([]*event.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c != nil && f.Matches(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Jan 2, 2026 | To: Jan 15, 2026 | Venues: the-chapel | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if len(f.Venues) > 0 {
		parts = append(parts, fmt.Sprintf("Venues: %s", strings.Join(f.Venues, ", ")))
	}
	if len(f.Artists) > 0 {
		parts = append(parts, fmt.Sprintf("Artists: %s", strings.Join(f.Artists, ", ")))
	}
	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}
	return strings.Join(parts, " | ")
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
