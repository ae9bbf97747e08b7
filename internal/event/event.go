package event

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyArtist = errors.New("artist name is empty")
	ErrZeroDate    = errors.New("date is not set")
)

// NormalizedDate is a calendar date recovered from a raw date string.
type NormalizedDate struct {
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Day     int        `json:"day"`
	Hour    int        `json:"hour,omitempty"`
	Minute  int        `json:"minute,omitempty"`
	HasTime bool       `json:"has_time,omitempty"`
	// Fallback is set when only the generic parser could read the string.
	Fallback bool `json:"fallback,omitempty"`
}

// NewDate builds a date-only NormalizedDate.
func NewDate(year int, month time.Month, day int) NormalizedDate {
	return NormalizedDate{Year: year, Month: month, Day: day}
}

// IsZero reports whether no date has been set.
func (d NormalizedDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Key returns the canonical calendar-day form, YYYY-MM-DD.
func (d NormalizedDate) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d NormalizedDate) String() string {
	if d.HasTime {
		return fmt.Sprintf("%s %02d:%02d", d.Key(), d.Hour, d.Minute)
	}
	return d.Key()
}

// Time converts the date to a UTC time.Time.
func (d NormalizedDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, d.Hour, d.Minute, 0, 0, time.UTC)
}

// SameDay reports whether two dates fall on the same calendar day.
func (d NormalizedDate) SameDay(other NormalizedDate) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// Candidate is an unconfirmed (artist, date, venue) triple extracted from a venue page
type Candidate struct {
	Title      string         `json:"title"`
	ArtistName string         `json:"artist_name"`
	VenueName  string         `json:"venue_name"`
	VenueSlug  string         `json:"venue_slug"`
	Date       NormalizedDate `json:"date"`
	RawContext string         `json:"raw_context"`
	SourceURL  string         `json:"source_url,omitempty"`
}

// BuildCandidate assembles a candidate. The title is "<artist> at <venue>".
func BuildCandidate(artistName string, date NormalizedDate, venueName, venueSlug, rawContext string) (*Candidate, error) {
	if artistName == "" {
		return nil, ErrEmptyArtist
	}
	if date.IsZero() {
		return nil, ErrZeroDate
	}
	return &Candidate{
		Title:      fmt.Sprintf("%s at %s", artistName, venueName),
		ArtistName: artistName,
		VenueName:  venueName,
		VenueSlug:  venueSlug,
		Date:       date,
		RawContext: rawContext,
	}, nil
}

// DedupKey identifies a candidate within one run: title, calendar day and venue.
func (c *Candidate) DedupKey() string {
	return c.Title + "-" + c.Date.Key() + "-" + c.VenueName
}

// ID returns a deterministic SHA1 of the dedup key
func (c *Candidate) ID() string {
	h := sha1.New()
	h.Write([]byte(c.DedupKey()))
	return fmt.Sprintf("%x", h.Sum(nil))
}
