package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/baysound/sf-events/internal/event"
	"github.com/baysound/sf-events/internal/logger"
	"github.com/baysound/sf-events/internal/scraper"
	"github.com/baysound/sf-events/internal/venue"
)

const samplePage = "...stuff... June 24, 2025 \n Real Artist Name \n doors 7pm ...more text... Bottom of the Hill ..."

var bottomOfTheHill = venue.Venue{
	Name:          "Bottom of the Hill",
	Slug:          "bottom-of-the-hill",
	CandidateURLs: []string{"https://both.example.com/calendar"},
}

func newTestPipeline(f scraper.Fetcher, workers int) *Pipeline {
	return New(f, Options{
		Workers: workers,
		Now:     func() time.Time { return time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC) },
		Logger:  logger.New(logger.LevelError, io.Discard),
	})
}

func keys(cs []*event.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.DedupKey())
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	f := scraper.StaticFetcher{"https://both.example.com/calendar": samplePage}
	p := newTestPipeline(f, 1)

	result, err := p.Run(context.Background(), []venue.Venue{bottomOfTheHill})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Candidates) != 1 {
		t.Fatalf("expected exactly 1 candidate, got %d: %v", len(result.Candidates), keys(result.Candidates))
	}
	c := result.Candidates[0]
	if c.ArtistName != "Real Artist Name" {
		t.Errorf("ArtistName = %q, want %q", c.ArtistName, "Real Artist Name")
	}
	if !c.Date.SameDay(event.NewDate(2025, time.June, 24)) {
		t.Errorf("Date = %v, want 2025-06-24", c.Date)
	}
	if c.Title != "Real Artist Name at Bottom of the Hill" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.VenueSlug != "bottom-of-the-hill" || c.SourceURL != "https://both.example.com/calendar" {
		t.Errorf("venue metadata not carried: %+v", c)
	}
	if c.RawContext == "" {
		t.Error("RawContext should hold the window text")
	}

	if result.RunID == "" {
		t.Error("RunID should be set")
	}
	if len(result.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(result.Reports))
	}
	report := result.Reports[0]
	if report.Status != StatusSuccess || report.EventCount != 1 || report.URLsTried != 1 || report.URLsFailed != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_DuplicatePagesCollapse(t *testing.T) {
	once := bottomOfTheHill
	twice := bottomOfTheHill
	twice.CandidateURLs = []string{"https://both.example.com/a", "https://both.example.com/b"}

	f := scraper.StaticFetcher{
		"https://both.example.com/calendar": samplePage,
		"https://both.example.com/a":        samplePage,
		"https://both.example.com/b":        samplePage,
	}
	p := newTestPipeline(f, 1)

	single, err := p.Run(context.Background(), []venue.Venue{once})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	double, err := p.Run(context.Background(), []venue.Venue{twice})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(keys(single.Candidates), keys(double.Candidates)) {
		t.Errorf("duplicate pages changed the unique set: %v vs %v", keys(single.Candidates), keys(double.Candidates))
	}
	if double.Emitted != 2 || double.Duplicates != 1 {
		t.Errorf("Emitted = %d, Duplicates = %d; want 2 and 1", double.Emitted, double.Duplicates)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	broken := venue.Venue{Name: "Broken Room", Slug: "broken-room", CandidateURLs: []string{"https://broken.example.com/"}}
	quiet := venue.Venue{Name: "Quiet Room", Slug: "quiet-room", CandidateURLs: []string{"https://quiet.example.com/"}}
	mixed := venue.Venue{
		Name: "Bottom of the Hill",
		Slug: "bottom-of-the-hill",
		CandidateURLs: []string{
			"https://both.example.com/missing",
			"https://both.example.com/calendar",
		},
	}

	f := scraper.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		switch url {
		case "https://both.example.com/calendar":
			return samplePage, nil
		case "https://quiet.example.com/":
			return "Nothing scheduled right now. Check back soon.", nil
		}
		return "", errors.New("connection refused")
	})

	result, err := newTestPipeline(f, 1).Run(context.Background(), []venue.Venue{broken, quiet, mixed})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := map[string]Status{
		"broken-room":        StatusError,
		"quiet-room":         StatusNoEvents,
		"bottom-of-the-hill": StatusSuccess,
	}
	for _, r := range result.Reports {
		if r.Status != want[r.Slug] {
			t.Errorf("%s status = %s, want %s", r.Slug, r.Status, want[r.Slug])
		}
	}

	if r := result.Reports[0]; r.Error != "connection refused" || r.URLsFailed != 1 {
		t.Errorf("broken report = %+v", r)
	}
	if r := result.Reports[2]; r.URLsTried != 2 || r.URLsFailed != 1 || r.EventCount != 1 {
		t.Errorf("mixed report = %+v", r)
	}
	if len(result.Candidates) != 1 {
		t.Errorf("expected the healthy venue's candidate to survive, got %v", keys(result.Candidates))
	}
}

func TestRun_InvalidVenueFailsBeforeFetching(t *testing.T) {
	var fetched bool
	f := scraper.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		fetched = true
		return "", nil
	})

	tests := []struct {
		name  string
		venue venue.Venue
	}{
		{"missing slug", venue.Venue{Name: "No Slug", CandidateURLs: []string{"https://x.example.com"}}},
		{"no urls", venue.Venue{Name: "No Urls", Slug: "no-urls"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestPipeline(f, 1).Run(context.Background(), []venue.Venue{bottomOfTheHill, tt.venue})
			if !errors.Is(err, venue.ErrInvalidVenue) {
				t.Errorf("Run() error = %v, want ErrInvalidVenue", err)
			}
			if fetched {
				t.Error("no page should be fetched when configuration is invalid")
			}
		})
	}
}

func TestRun_CancellationBetweenURLs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int

	f := scraper.FetcherFunc(func(fctx context.Context, url string) (string, error) {
		calls++
		cancel()
		return samplePage, nil
	})

	v := bottomOfTheHill
	v.CandidateURLs = []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}

	result, err := newTestPipeline(f, 1).Run(ctx, []venue.Venue{v})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch before cancellation was observed, got %d", calls)
	}
	if result == nil || len(result.Candidates) != 1 {
		t.Fatal("expected the partial result to be returned")
	}
	if result.Reports[0].URLsTried != 1 {
		t.Errorf("URLsTried = %d, want 1", result.Reports[0].URLsTried)
	}
}

func TestRun_FetchTimeout(t *testing.T) {
	f := scraper.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p := New(f, Options{FetchTimeout: 20 * time.Millisecond, Logger: logger.New(logger.LevelError, io.Discard)})

	result, err := p.Run(context.Background(), []venue.Venue{bottomOfTheHill})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r := result.Reports[0]; r.Status != StatusError || r.URLsFailed != 1 {
		t.Errorf("report = %+v, want a failed fetch", r)
	}
}

func TestRun_FetcherPanicIsContained(t *testing.T) {
	f := scraper.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		panic("template changed")
	})

	result, err := newTestPipeline(f, 1).Run(context.Background(), []venue.Venue{bottomOfTheHill})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r := result.Reports[0]; r.Status != StatusError {
		t.Errorf("report = %+v, want error status", r)
	}
}

func TestRun_WorkerPoolIsDeterministic(t *testing.T) {
	var venues []venue.Venue
	pages := scraper.StaticFetcher{}
	for i := 0; i < 8; i++ {
		url := fmt.Sprintf("https://venue%d.example.com/", i)
		venues = append(venues, venue.Venue{
			Name:          fmt.Sprintf("Room Number %c", 'A'+i),
			Slug:          fmt.Sprintf("room-%d", i),
			CandidateURLs: []string{url},
		})
		pages[url] = fmt.Sprintf("Jul %d, 2025\nThe Headliners\nAug %d, 2025\nOpening Act", i+1, i+1)
	}

	var mu sync.Mutex
	rng := rand.New(rand.NewSource(7))
	jittery := scraper.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		mu.Lock()
		d := time.Duration(rng.Intn(5)) * time.Millisecond
		mu.Unlock()
		time.Sleep(d)
		return pages.FetchPageText(ctx, url)
	})

	sequential, err := newTestPipeline(pages, 1).Run(context.Background(), venues)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := keys(sequential.Candidates)
	if len(want) != 16 {
		t.Fatalf("expected 16 candidates, got %d: %v", len(want), want)
	}

	for run := 0; run < 5; run++ {
		parallel, err := newTestPipeline(jittery, 4).Run(context.Background(), venues)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got := keys(parallel.Candidates); !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: parallel order %v differs from sequential %v", run, got, want)
		}
	}
}

func TestExtractPage_FirstPlausibleLineWins(t *testing.T) {
	p := newTestPipeline(scraper.StaticFetcher{}, 1)
	text := "Fri Dec 20\nFirst Band\nSecond Band\n"

	found := p.ExtractPage(text, bottomOfTheHill, "u")
	if len(found) != 1 {
		t.Fatalf("expected 1 candidate, got %v", keys(found))
	}
	if found[0].ArtistName != "First Band" {
		t.Errorf("ArtistName = %q, want First Band", found[0].ArtistName)
	}
	if found[0].Date.Key() != "2025-12-20" {
		t.Errorf("Date = %s, want rolled to 2025-12-20", found[0].Date.Key())
	}
}

func TestExtractPage_NoPlausibleLine(t *testing.T) {
	p := newTestPipeline(scraper.StaticFetcher{}, 1)
	text := "June 24, 2025\ndoors 7pm\n$20 advance\nALL AGES\nBottom of the Hill presents"

	if found := p.ExtractPage(text, bottomOfTheHill, "u"); len(found) != 0 {
		t.Errorf("expected no candidates, got %v", keys(found))
	}
}
