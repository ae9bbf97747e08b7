package event

import (
	"testing"
	"time"
)

func TestDiff(t *testing.T) {
	old1, _ := BuildCandidate("Alpha", NewDate(2025, time.June, 1), "Venue One", "venue-one", "")
	new1, _ := BuildCandidate("Beta", NewDate(2025, time.June, 3), "Venue One", "venue-one", "")
	new2, _ := BuildCandidate("Gamma", NewDate(2025, time.June, 2), "Venue Two", "venue-two", "")

	previous := CreateSnapshot([]*Candidate{old1}, time.Now().Format(time.RFC3339))
	current := []*Candidate{old1, new1, new2}

	tests := []struct {
		name        string
		previous    *Snapshot
		venueFilter string
		wantNew     []string
	}{
		{"new since previous", previous, "", []string{"Gamma at Venue Two", "Beta at Venue One"}},
		{"all filter", previous, "ALL", []string{"Gamma at Venue Two", "Beta at Venue One"}},
		{"venue filter", previous, "venue-one", []string{"Beta at Venue One"}},
		{"nil previous treats all as new", nil, "", []string{"Alpha at Venue One", "Gamma at Venue Two", "Beta at Venue One"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Diff(tt.previous, current, tt.venueFilter)
			if len(result.New) != len(tt.wantNew) {
				t.Fatalf("Diff() returned %d new, want %d", len(result.New), len(tt.wantNew))
			}
			for i, title := range tt.wantNew {
				if result.New[i].Title != title {
					t.Errorf("New[%d] = %q, want %q", i, result.New[i].Title, title)
				}
			}
			total := 0
			for _, cs := range result.ByVenue {
				total += len(cs)
			}
			if total != len(result.New) {
				t.Errorf("ByVenue holds %d candidates, want %d", total, len(result.New))
			}
		})
	}
}

func TestCreateSnapshot_KeepsFirst(t *testing.T) {
	a, _ := BuildCandidate("Alpha", NewDate(2025, time.June, 1), "Venue", "venue", "first")
	b, _ := BuildCandidate("Alpha", NewDate(2025, time.June, 1), "Venue", "venue", "second")

	snap := CreateSnapshot([]*Candidate{a, b}, "")
	if len(snap.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(snap.Candidates))
	}
	if snap.Candidates[a.DedupKey()].RawContext != "first" {
		t.Error("expected the first candidate to be kept")
	}
}
