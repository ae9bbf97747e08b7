package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinNameLength = 3
	MaxNameLength = 50
)

// Rule identifies the first check a line failed.
type Rule int

const (
	Accepted Rule = iota
	RuleLength
	RuleCalendarTerm
	RuleNoiseWord
	RuleTimeOrPrice
	RuleAgeRestriction
	RuleVenueSelfReference
	RuleShape
)

var ruleNames = map[Rule]string{
	Accepted:               "accepted",
	RuleLength:             "length",
	RuleCalendarTerm:       "calendar_term",
	RuleNoiseWord:          "noise_word",
	RuleTimeOrPrice:        "time_or_price",
	RuleAgeRestriction:     "age_restriction",
	RuleVenueSelfReference: "venue_self_reference",
	RuleShape:              "shape",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

var (
	leadingTimePattern  = regexp.MustCompile(`^\d{1,2}:\d{2}`)
	leadingPricePattern = regexp.MustCompile(`^\$\d+`)
	namePattern         = regexp.MustCompile(`^[A-Z][a-zA-Z\s]+$`)
)

// NameFilter decides whether a line of text could be an artist name.
type NameFilter struct {
	vocab *Vocabulary
}

// NewNameFilter creates a filter backed by vocab. A nil vocab uses DefaultVocabulary.
func NewNameFilter(vocab *Vocabulary) *NameFilter {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &NameFilter{vocab: vocab}
}

// Check runs the rejection chain in order and returns the first rule the
// line fails, or Accepted.
func (f *NameFilter) Check(line, venueName string) Rule {
	line = strings.TrimSpace(line)

	if n := utf8.RuneCountInString(line); n < MinNameLength || n > MaxNameLength {
		return RuleLength
	}
	if f.vocab.isCalendarTerm(line) {
		return RuleCalendarTerm
	}
	if f.vocab.containsNoise(line) {
		return RuleNoiseWord
	}
	if leadingTimePattern.MatchString(line) || leadingPricePattern.MatchString(line) {
		return RuleTimeOrPrice
	}
	if f.vocab.containsAgePhrase(line) {
		return RuleAgeRestriction
	}
	if venue := strings.TrimSpace(venueName); venue != "" &&
		strings.Contains(strings.ToLower(line), strings.ToLower(venue)) {
		return RuleVenueSelfReference
	}
	if !namePattern.MatchString(line) {
		return RuleShape
	}
	return Accepted
}

// IsPlausibleArtistName reports whether line survives every rejection rule.
func (f *NameFilter) IsPlausibleArtistName(line, venueName string) bool {
	return f.Check(line, venueName) == Accepted
}

var defaultFilter = NewNameFilter(nil)

// IsPlausibleArtistName checks line against the default vocabulary.
func IsPlausibleArtistName(line, venueName string) bool {
	return defaultFilter.IsPlausibleArtistName(line, venueName)
}
