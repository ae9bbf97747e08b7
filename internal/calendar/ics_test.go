package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/baysound/sf-events/internal/event"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func mustCandidate(t *testing.T, artist string, date event.NormalizedDate) *event.Candidate {
	t.Helper()
	c, err := event.BuildCandidate(artist, date, "The Chapel", "the-chapel", "Fri June 24 "+artist)
	if err != nil {
		t.Fatalf("BuildCandidate() error = %v", err)
	}
	c.SourceURL = "https://thechapelsf.com/music/"
	return c
}

func TestGenerateICS(t *testing.T) {
	c := mustCandidate(t, "Night Owls", event.NewDate(2025, time.June, 24))
	ics := GenerateICS([]*event.Candidate{c}, Options{Name: "SF Shows", Now: fixedNow})

	required := []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0\r\n",
		"PRODID:" + prodID + "\r\n",
		"X-WR-CALNAME:SF Shows\r\n",
		"BEGIN:VEVENT\r\n",
		"UID:" + c.ID() + "@" + uidDomain + "\r\n",
		"DTSTAMP:20250601T120000Z\r\n",
		"DTSTART;VALUE=DATE:20250624\r\n",
		"DTEND;VALUE=DATE:20250625\r\n",
		"SUMMARY:Night Owls at The Chapel\r\n",
		"LOCATION:The Chapel\r\n",
		"URL:https://thechapelsf.com/music/\r\n",
		"STATUS:TENTATIVE\r\n",
		"END:VEVENT\r\n",
		"END:VCALENDAR\r\n",
	}
	for _, want := range required {
		if !strings.Contains(ics, want) {
			t.Errorf("ICS missing %q", want)
		}
	}
}

func TestGenerateICS_TimedEvent(t *testing.T) {
	d := event.NewDate(2025, time.December, 31)
	d.Hour, d.Minute, d.HasTime = 21, 30, true
	ics := GenerateICS([]*event.Candidate{mustCandidate(t, "Late Show", d)}, Options{Now: fixedNow})

	if !strings.Contains(ics, "DTSTART:20251231T213000\r\n") {
		t.Errorf("missing timed DTSTART in:\n%s", ics)
	}
	// runs past midnight
	if !strings.Contains(ics, "DTEND:20260101T003000\r\n") {
		t.Errorf("missing DTEND in:\n%s", ics)
	}
	if strings.Contains(ics, "VALUE=DATE") {
		t.Error("timed event rendered as all-day")
	}
	if strings.Contains(ics, "X-WR-CALNAME") {
		t.Error("calendar name emitted without Options.Name")
	}
}

func TestGenerateICS_MultipleAndNil(t *testing.T) {
	candidates := []*event.Candidate{
		mustCandidate(t, "First Band", event.NewDate(2025, time.July, 1)),
		nil,
		mustCandidate(t, "Second Band", event.NewDate(2025, time.July, 2)),
	}
	ics := GenerateICS(candidates, Options{Now: fixedNow})
	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("got %d VEVENTs, want 2", n)
	}
	if n := strings.Count(ics, "BEGIN:VCALENDAR"); n != 1 {
		t.Errorf("got %d VCALENDARs, want 1", n)
	}
}

func TestGenerateICS_Empty(t *testing.T) {
	ics := GenerateICS(nil, Options{Now: fixedNow})
	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Error("empty input produced events")
	}
	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Errorf("malformed empty calendar:\n%s", ics)
	}
}

func TestGenerateICS_SpecialCharacters(t *testing.T) {
	c := mustCandidate(t, "Crosby, Stills; Nash", event.NewDate(2025, time.July, 1))
	ics := GenerateICS([]*event.Candidate{c}, Options{Now: fixedNow})
	if !strings.Contains(ics, `SUMMARY:Crosby\, Stills\; Nash at The Chapel`) {
		t.Errorf("special characters not escaped:\n%s", ics)
	}
}

func TestWriteLine_Folds(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"ascii", "DESCRIPTION:" + strings.Repeat("a", 200)},
		{"multibyte", "DESCRIPTION:" + strings.Repeat("é", 100)},
		{"short", "SUMMARY:ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			writeLine(&b, tt.line)
			out := b.String()

			for _, part := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
				if len(part) > maxLineOctets {
					t.Errorf("line of %d octets exceeds limit", len(part))
				}
			}
			unfolded := strings.ReplaceAll(strings.TrimSuffix(out, "\r\n"), "\r\n ", "")
			if unfolded != tt.line {
				t.Errorf("unfolded line differs from input")
			}
		})
	}
}

func TestFormatICSTime(t *testing.T) {
	testTime := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	if got := formatICSTime(testTime); got != "20260315T143000Z" {
		t.Errorf("formatICSTime() = %q, want %q", got, "20260315T143000Z")
	}
	if got := formatICSDate(testTime); got != "20260315" {
		t.Errorf("formatICSDate() = %q", got)
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Simple text", "Simple text"},
		{"Text with, comma", "Text with\\, comma"},
		{"Text with; semicolon", "Text with\\; semicolon"},
		{"Text with\\backslash", "Text with\\\\backslash"},
		{"Text with\nnewline", "Text with\\nnewline"},
		{"Windows\r\nnewline", "Windows\\nnewline"},
		{"All, special; chars\\\n", "All\\, special\\; chars\\\\\\n"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := escapeICS(tt.input)
			if got != tt.expected {
				t.Errorf("escapeICS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
