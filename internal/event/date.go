package event

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// MinPlausibleYear bounds the generic fallback parser; anything at or below it is rejected.
const MinPlausibleYear = 2020

const (
	weekdayPrefix = `(?:(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+)?`
	monthName     = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	daySuffix     = `(?:st|nd|rd|th)?`
)

var (
	// "June 24, 2025", "Sat Jun 24 2025"
	monthDayYearPattern = regexp.MustCompile(`(?i)\b` + weekdayPrefix + monthName + `\.?\s+(\d{1,2})` + daySuffix + `,?\s+(\d{4})\b`)
	// "12/20/2024"
	slashPattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	// "2025-01-05", "2025-06-15T20:00:00"
	isoPattern = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2}):(\d{2})(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?)?`)
	// "Fri Dec 20", "Dec 20"
	monthDayPattern = regexp.MustCompile(`(?i)\b` + weekdayPrefix + monthName + `\.?\s+(\d{1,2})` + daySuffix + `\b`)
	// " 8pm", " @ 7:30 p.m."
	timeSuffixPattern = regexp.MustCompile(`(?i)^[ \t]*(?:[@,|·-]|at)?[ \t]*(\d{1,2})(?::(\d{2}))?[ \t]*([ap])\.?m\b\.?`)
)

var discoveryPatterns = []*regexp.Regexp{
	monthDayYearPattern,
	slashPattern,
	isoPattern,
	monthDayPattern,
}

var monthTable = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// DateMatch is a date-looking substring located in page text.
type DateMatch struct {
	Raw    string `json:"raw"`
	Offset int    `json:"offset"`
}

// FindDates locates every supported date form in text, ordered by offset.
// When matches overlap the earliest, then longest, wins. A time of day that
// directly follows a date ("Jun 24 8pm") is folded into the match.
func FindDates(text string) []DateMatch {
	type span struct{ start, end int }

	var spans []span
	for _, p := range discoveryPatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	matches := make([]DateMatch, 0, len(spans))
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		end := s.end
		if loc := timeSuffixPattern.FindStringIndex(text[end:]); loc != nil {
			end += loc[1]
		}
		matches = append(matches, DateMatch{Raw: text[s.start:end], Offset: s.start})
		lastEnd = end
	}
	return matches
}

// Normalizer parses raw date strings into calendar dates.
type Normalizer struct {
	// AssumedYear is used for yearless dates when non-zero.
	AssumedYear int
	// Now supplies the reference time for the rolling-forward year policy.
	Now func() time.Time
	// Location is used by the generic fallback parser. Defaults to UTC.
	Location *time.Location
}

// NewNormalizer creates a Normalizer using the wall clock.
func NewNormalizer(assumedYear int) *Normalizer {
	return &Normalizer{AssumedYear: assumedYear, Now: time.Now, Location: time.UTC}
}

// NormalizeDate parses raw with a wall-clock Normalizer.
func NormalizeDate(raw string, assumedYear int) (NormalizedDate, bool) {
	return NewNormalizer(assumedYear).Normalize(raw)
}

// Normalize tries each supported shape in priority order: month-name with year,
// M/D/YYYY, ISO, weekday/month-name without year, then the generic parser.
// It returns ok == false when nothing matches; it never substitutes a date.
func (n *Normalizer) Normalize(raw string) (NormalizedDate, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NormalizedDate{}, false
	}

	if m := monthDayYearPattern.FindStringSubmatchIndex(raw); m != nil {
		month, ok := monthFromName(raw[m[2]:m[3]])
		if ok {
			if d, ok := makeDate(atoi(raw[m[6]:m[7]]), month, atoi(raw[m[4]:m[5]])); ok {
				return withTimeSuffix(d, raw[m[1]:]), true
			}
		}
	}

	if m := slashPattern.FindStringSubmatchIndex(raw); m != nil {
		month := atoi(raw[m[2]:m[3]])
		if month >= 1 && month <= 12 {
			if d, ok := makeDate(atoi(raw[m[6]:m[7]]), time.Month(month), atoi(raw[m[4]:m[5]])); ok {
				return withTimeSuffix(d, raw[m[1]:]), true
			}
		}
	}

	if m := isoPattern.FindStringSubmatch(raw); m != nil {
		month := atoi(m[2])
		if month >= 1 && month <= 12 {
			if d, ok := makeDate(atoi(m[1]), time.Month(month), atoi(m[3])); ok {
				if m[4] != "" {
					hour, minute := atoi(m[4]), atoi(m[5])
					if hour < 24 && minute < 60 {
						d.Hour, d.Minute, d.HasTime = hour, minute, true
					}
				}
				return d, true
			}
		}
	}

	if m := monthDayPattern.FindStringSubmatchIndex(raw); m != nil {
		month, ok := monthFromName(raw[m[2]:m[3]])
		if ok {
			day := atoi(raw[m[4]:m[5]])
			if d, ok := makeDate(n.resolveYear(month, day), month, day); ok {
				return withTimeSuffix(d, raw[m[1]:]), true
			}
		}
	}

	return n.fallback(raw)
}

// resolveYear picks the year for a yearless date: the assumed year if set,
// otherwise the current year unless that date has already passed.
func (n *Normalizer) resolveYear(month time.Month, day int) int {
	if n.AssumedYear > 0 {
		return n.AssumedYear
	}
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	year := now.Year()
	if time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Before(today) {
		year++
	}
	return year
}

func (n *Normalizer) fallback(raw string) (d NormalizedDate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d, ok = NormalizedDate{}, false
		}
	}()

	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	t, err := dateparse.ParseIn(raw, loc)
	if err != nil || t.Year() <= MinPlausibleYear {
		return NormalizedDate{}, false
	}

	d = NormalizedDate{Year: t.Year(), Month: t.Month(), Day: t.Day(), Fallback: true}
	if t.Hour() != 0 || t.Minute() != 0 {
		d.Hour, d.Minute, d.HasTime = t.Hour(), t.Minute(), true
	}
	return d, true
}

func monthFromName(name string) (time.Month, bool) {
	n := strings.ToLower(strings.TrimSuffix(name, "."))
	if n == "sept" {
		n = "sep"
	}
	for i, full := range monthTable {
		if n == full || n == full[:3] {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// makeDate rejects dates time.Date would silently roll over, like Feb 30.
func makeDate(year int, month time.Month, day int) (NormalizedDate, bool) {
	if year <= 0 || month < time.January || month > time.December || day < 1 || day > 31 {
		return NormalizedDate{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return NormalizedDate{}, false
	}
	return NewDate(year, month, day), true
}

func withTimeSuffix(d NormalizedDate, rest string) NormalizedDate {
	m := timeSuffixPattern.FindStringSubmatch(rest)
	if m == nil {
		return d
	}
	hour := atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute = atoi(m[2])
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return d
	}
	if strings.EqualFold(m[3], "p") && hour != 12 {
		hour += 12
	} else if strings.EqualFold(m[3], "a") && hour == 12 {
		hour = 0
	}
	d.Hour, d.Minute, d.HasTime = hour, minute, true
	return d
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ParseKey parses the YYYY-MM-DD form produced by NormalizedDate.Key.
func ParseKey(key string) (NormalizedDate, error) {
	t, err := time.Parse("2006-01-02", key)
	if err != nil {
		return NormalizedDate{}, fmt.Errorf("parsing date key %q: %w", key, err)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}
