package calendar

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/baysound/sf-events/internal/event"
)

const (
	prodID    = "-//Bay Sound//sf-events//EN"
	uidDomain = "sf-events.baysound"

	// default show length when a start time is known
	timedDuration = 3 * time.Hour

	maxLineOctets = 75
)

// Options control calendar generation
type Options struct {
	Name string           // X-WR-CALNAME, omitted when empty
	Now  func() time.Time // DTSTAMP clock
}

// GenerateICS renders candidates as one VCALENDAR with a VEVENT each.
// Dates without a time become all-day events.
func GenerateICS(candidates []*event.Candidate, opts Options) string {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := formatICSTime(now())

	var ics strings.Builder
	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:"+prodID)
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	if opts.Name != "" {
		writeLine(&ics, "X-WR-CALNAME:"+escapeICS(opts.Name))
	}

	for _, c := range candidates {
		if c == nil {
			continue
		}
		writeEvent(&ics, c, stamp)
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

func writeEvent(ics *strings.Builder, c *event.Candidate, stamp string) {
	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, fmt.Sprintf("UID:%s@%s", c.ID(), uidDomain))
	writeLine(ics, "DTSTAMP:"+stamp)

	if c.Date.HasTime {
		start := c.Date.Time()
		writeLine(ics, "DTSTART:"+formatLocalTime(start))
		writeLine(ics, "DTEND:"+formatLocalTime(start.Add(timedDuration)))
	} else {
		start := c.Date.Time()
		writeLine(ics, "DTSTART;VALUE=DATE:"+formatICSDate(start))
		writeLine(ics, "DTEND;VALUE=DATE:"+formatICSDate(start.AddDate(0, 0, 1)))
	}

	writeLine(ics, "SUMMARY:"+escapeICS(c.Title))
	writeLine(ics, "LOCATION:"+escapeICS(c.VenueName))

	description := c.ArtistName + " at " + c.VenueName
	if c.RawContext != "" {
		description += "\n\n" + c.RawContext
	}
	writeLine(ics, "DESCRIPTION:"+escapeICS(description))
	if c.SourceURL != "" {
		writeLine(ics, "URL:"+c.SourceURL)
	}

	// candidates are unconfirmed guesses from page text
	writeLine(ics, "STATUS:TENTATIVE")
	writeLine(ics, "TRANSP:OPAQUE")
	writeLine(ics, "END:VEVENT")
}

// writeLine folds content lines longer than 75 octets without splitting a rune.
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines carry a leading space
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatLocalTime formats a floating datetime; venue times are wall-clock times.
func formatLocalTime(t time.Time) string {
	return t.Format("20060102T150405")
}

func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
