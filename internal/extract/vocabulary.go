package extract

import (
	"strings"
	"unicode"
)

// Vocabulary holds the word lists the name filter rejects against.
// All entries are stored lowercase.
type Vocabulary struct {
	// CalendarTerms are rejected on exact (case-insensitive) match of the whole line.
	CalendarTerms map[string]struct{}
	// NoiseTerms are rejected when they appear as a whole word anywhere in the line.
	NoiseTerms map[string]struct{}
	// AgePhrases are rejected on substring containment.
	AgePhrases []string
}

var weekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"mon", "tue", "wed", "thu", "fri", "sat", "sun",
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "oct", "nov", "dec",
}

var genreTerms = []string{
	"indie", "pop", "rock", "punk", "folk", "jazz", "blues", "metal", "soul",
	"funk", "hip", "hop", "rap", "electronic", "country", "americana", "emo",
	"garage", "psych", "shoegaze", "reggae", "techno", "house",
}

var logisticsTerms = []string{
	"doors", "door", "advance", "over", "ages", "pm", "am", "style", "music",
	"tickets", "ticket", "show", "sold", "presale", "cover", "free", "rsvp",
}

// DefaultVocabulary returns the shared noise tables used by every venue.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		CalendarTerms: make(map[string]struct{}, len(weekdayNames)+len(monthNames)),
		NoiseTerms:    make(map[string]struct{}, len(genreTerms)+len(logisticsTerms)),
		AgePhrases:    []string{"and over", "all ages"},
	}
	for _, w := range weekdayNames {
		v.CalendarTerms[w] = struct{}{}
	}
	for _, m := range monthNames {
		v.CalendarTerms[m] = struct{}{}
	}
	for _, t := range genreTerms {
		v.NoiseTerms[t] = struct{}{}
	}
	for _, t := range logisticsTerms {
		v.NoiseTerms[t] = struct{}{}
	}
	return v
}

// AddNoise extends the noise vocabulary with extra terms, e.g. per-deployment words.
func (v *Vocabulary) AddNoise(terms ...string) {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			v.NoiseTerms[t] = struct{}{}
		}
	}
}

func (v *Vocabulary) isCalendarTerm(line string) bool {
	_, ok := v.CalendarTerms[strings.ToLower(line)]
	return ok
}

func (v *Vocabulary) containsNoise(line string) bool {
	for _, word := range splitWords(strings.ToLower(line)) {
		if _, ok := v.NoiseTerms[word]; ok {
			return true
		}
	}
	return false
}

func (v *Vocabulary) containsAgePhrase(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range v.AgePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// splitWords breaks a line on anything that is not a letter or digit.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
