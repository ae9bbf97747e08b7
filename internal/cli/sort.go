package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/baysound/sf-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone     SortOrder = "none"
	SortByDate   SortOrder = "date"
	SortByVenue  SortOrder = "venue"
	SortByArtist SortOrder = "artist"
)

func parseSortOrder(value string) (SortOrder, error) {
	switch s := SortOrder(strings.ToLower(strings.TrimSpace(value))); s {
	case SortNone, SortByDate, SortByVenue, SortByArtist:
		return s, nil
	case "":
		return SortNone, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'none', 'date', 'venue' or 'artist')", value)
	}
}

// sortCandidates sorts in place. SortNone keeps run order: registry order,
// then page order within a venue.
func sortCandidates(candidates []*event.Candidate, order SortOrder) {
	switch order {
	case SortByDate:
		event.SortByDate(candidates)
	case SortByVenue:
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].VenueSlug != candidates[j].VenueSlug {
				return candidates[i].VenueSlug < candidates[j].VenueSlug
			}
			return compareByDate(candidates[i], candidates[j])
		})
	case SortByArtist:
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := strings.ToLower(candidates[i].ArtistName), strings.ToLower(candidates[j].ArtistName)
			if a != b {
				return a < b
			}
			return compareByDate(candidates[i], candidates[j])
		})
	}
}

// compareByDate reports whether i falls on an earlier calendar day than j
func compareByDate(i, j *event.Candidate) bool {
	return i.Date.Key() < j.Date.Key()
}
