package venue

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVenue_Validate(t *testing.T) {
	tests := []struct {
		name    string
		venue   Venue
		wantErr string
	}{
		{
			name:  "valid",
			venue: Venue{Name: "Bottom of the Hill", Slug: "bottom-of-the-hill", CandidateURLs: []string{"https://example.com/cal"}},
		},
		{
			name:    "missing name",
			venue:   Venue{Slug: "x", CandidateURLs: []string{"https://example.com"}},
			wantErr: "name is required",
		},
		{
			name:    "missing slug",
			venue:   Venue{Name: "X", CandidateURLs: []string{"https://example.com"}},
			wantErr: "slug is required",
		},
		{
			name:    "bad slug",
			venue:   Venue{Name: "X", Slug: "Bad Slug", CandidateURLs: []string{"https://example.com"}},
			wantErr: "lowercase words",
		},
		{
			name:    "no urls",
			venue:   Venue{Name: "X", Slug: "x"},
			wantErr: "at least one candidate URL",
		},
		{
			name:    "relative url",
			venue:   Venue{Name: "X", Slug: "x", CandidateURLs: []string{"/calendar"}},
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "ftp url",
			venue:   Venue{Name: "X", Slug: "x", CandidateURLs: []string{"ftp://example.com/cal"}},
			wantErr: "absolute http(s) URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.venue.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidVenue) {
				t.Errorf("error %v should wrap ErrInvalidVenue", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
venues:
  - name: Rickshaw Stop
    slug: rickshaw-stop
    candidate_urls:
      - https://rickshawstop.com/
  - name: Closed Room
    slug: closed-room
    disabled: true
    candidate_urls:
      - https://closed.example.com/
`)
	reg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(reg.Venues) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(reg.Venues))
	}
	if enabled := reg.Enabled(); len(enabled) != 1 || enabled[0].Slug != "rickshaw-stop" {
		t.Errorf("Enabled() = %+v", enabled)
	}
	if v, ok := reg.Find("RICKSHAW-STOP"); !ok || v.Name != "Rickshaw Stop" {
		t.Errorf("Find() = %+v, %v", v, ok)
	}
	if _, ok := reg.Find("missing"); ok {
		t.Error("Find() should not find unknown slug")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "venues: [:"},
		{"duplicate slug", `
venues:
  - {name: A, slug: a, candidate_urls: [https://a.example.com]}
  - {name: B, slug: a, candidate_urls: [https://b.example.com]}
`},
		{"empty urls", `
venues:
  - {name: A, slug: a, candidate_urls: []}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Parse() expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if _, ok := reg.Find("bottom-of-the-hill"); !ok {
		t.Error("embedded registry should contain bottom-of-the-hill")
	}

	path := filepath.Join(t.TempDir(), "venues.yaml")
	content := "venues:\n  - name: Kilowatt\n    slug: kilowatt\n    candidate_urls: [\"https://kilowatt.example.com\"]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	reg, err = Load(path)
	if err != nil {
		t.Fatalf("Load(file) error = %v", err)
	}
	if len(reg.Venues) != 1 || reg.Venues[0].Slug != "kilowatt" {
		t.Errorf("Load(file) = %+v", reg.Venues)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
