package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/baysound/sf-events/internal/event"
	"github.com/baysound/sf-events/internal/pipeline"
)

func testCandidate(t *testing.T, artist, venueName, slug string, month time.Month, day int) *event.Candidate {
	t.Helper()
	c, err := event.BuildCandidate(artist, event.NewDate(2025, month, day), venueName, slug, "")
	if err != nil {
		t.Fatalf("BuildCandidate() error = %v", err)
	}
	return c
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" table ", FormatTable, false},
		{"", FormatText, false}, // buffer is not a terminal
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFormat(tt.in, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteText(t *testing.T) {
	a := testCandidate(t, "Night Owls", "The Chapel", "the-chapel", time.June, 24)
	b := testCandidate(t, "Early Birds", "Kilowatt", "kilowatt", time.July, 2)
	reports := []pipeline.VenueReport{
		{Slug: "the-chapel", Status: pipeline.StatusSuccess, EventCount: 1},
		{Slug: "kilowatt", Status: pipeline.StatusSuccess, EventCount: 1},
		{Slug: "rickshaw-stop", Status: pipeline.StatusError, Error: "unexpected status 503"},
	}

	tests := []struct {
		name    string
		result  *OutputResult
		verbose bool
		want    []string
	}{
		{
			name: "all events",
			result: &OutputResult{
				Candidates: []*event.Candidate{a, b}, EventCount: 2,
				ByVenue: groupByVenue([]*event.Candidate{a, b}), Reports: reports,
			},
			want: []string{
				"The Chapel (1 events):",
				"  2025-06-24  Night Owls",
				"Total: 2 events across 2 venues",
				"1 venue(s) failed:",
				"  rickshaw-stop: unexpected status 503",
			},
		},
		{
			name: "new only verbose",
			result: &OutputResult{
				NewOnly: true, Candidates: []*event.Candidate{b}, EventCount: 1,
				ByVenue: groupByVenue([]*event.Candidate{b}),
			},
			verbose: true,
			want: []string{
				"Kilowatt (1 new):",
				"  NEW: 2025-07-02  Early Birds",
				"       ID: " + b.ID(),
			},
		},
		{
			name:   "nothing new",
			result: &OutputResult{NewOnly: true},
			want:   []string{"No new events found."},
		},
		{
			name:   "nothing",
			result: &OutputResult{},
			want:   []string{"No events found."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteOutput(&buf, tt.result, FormatText, tt.verbose); err != nil {
				t.Fatalf("WriteOutput() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestWriteTable(t *testing.T) {
	c := testCandidate(t, "Night Owls", "The Chapel", "the-chapel", time.June, 24)
	result := &OutputResult{
		Candidates: []*event.Candidate{c},
		EventCount: 1,
		Reports:    []pipeline.VenueReport{{Slug: "the-chapel", Status: pipeline.StatusSuccess, EventCount: 1, URLsTried: 2, URLsFailed: 1}},
	}
	var buf bytes.Buffer
	if err := WriteOutput(&buf, result, FormatTable, false); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	for _, want := range []string{"Night Owls", "2025-06-24", "Status", "1/2"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRenderTable_ShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	if !strings.Contains(out, "only") {
		t.Errorf("renderTable() = %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("renderTable with no headers should be empty")
	}
}

func TestSortCandidates(t *testing.T) {
	mk := func() []*event.Candidate {
		return []*event.Candidate{
			testCandidate(t, "Zed", "Kilowatt", "kilowatt", time.July, 1),
			testCandidate(t, "alpha", "The Chapel", "the-chapel", time.August, 1),
			testCandidate(t, "Mid", "Kilowatt", "kilowatt", time.June, 1),
		}
	}
	artists := func(cs []*event.Candidate) string {
		names := make([]string, len(cs))
		for i, c := range cs {
			names[i] = c.ArtistName
		}
		return strings.Join(names, ",")
	}

	tests := []struct {
		order SortOrder
		want  string
	}{
		{SortNone, "Zed,alpha,Mid"},
		{SortByDate, "Mid,Zed,alpha"},
		{SortByVenue, "Mid,Zed,alpha"},
		{SortByArtist, "alpha,Mid,Zed"},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			cs := mk()
			sortCandidates(cs, tt.order)
			if got := artists(cs); got != tt.want {
				t.Errorf("sortCandidates(%s) = %s, want %s", tt.order, got, tt.want)
			}
		})
	}

	if _, err := parseSortOrder("loudness"); err == nil {
		t.Error("parseSortOrder accepted an unknown order")
	}
	if got, _ := parseSortOrder(""); got != SortNone {
		t.Errorf("parseSortOrder(\"\") = %q", got)
	}
}
