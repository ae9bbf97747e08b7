package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baysound/sf-events/internal/event"
	"github.com/baysound/sf-events/internal/extract"
	"github.com/baysound/sf-events/internal/logger"
	"github.com/baysound/sf-events/internal/metrics"
	"github.com/baysound/sf-events/internal/scraper"
	"github.com/baysound/sf-events/internal/venue"
)

// Status is the outcome of one venue in a run
type Status string

const (
	StatusSuccess  Status = "success"
	StatusNoEvents Status = "no_events"
	StatusError    Status = "error"
)

// VenueReport summarizes one venue's extraction
type VenueReport struct {
	Venue      string `json:"venue"`
	Slug       string `json:"slug"`
	Status     Status `json:"status"`
	EventCount int    `json:"event_count"`
	URLsTried  int    `json:"urls_tried"`
	URLsFailed int    `json:"urls_failed"`
	Error      string `json:"error,omitempty"`
}

// Result is everything one run produced
type Result struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Candidates []*event.Candidate `json:"candidates"`
	Reports    []VenueReport      `json:"reports"`
	Emitted    int                `json:"emitted"`
	Duplicates int                `json:"duplicates"`
}

// Options tune a Pipeline. Zero values select defaults.
type Options struct {
	Radius       int
	AssumedYear  int
	Workers      int
	FetchTimeout time.Duration
	Now          func() time.Time
	Filter       *extract.NameFilter
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

// Pipeline holds the collaborators for extraction runs. It keeps no state
// between runs, so one Pipeline may serve concurrent Run calls.
type Pipeline struct {
	fetcher    scraper.Fetcher
	radius     int
	workers    int
	timeout    time.Duration
	now        func() time.Time
	filter     *extract.NameFilter
	normalizer *event.Normalizer
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// New creates a Pipeline that reads pages through fetcher.
func New(fetcher scraper.Fetcher, opts Options) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		radius:  opts.Radius,
		workers: opts.Workers,
		timeout: opts.FetchTimeout,
		now:     opts.Now,
		filter:  opts.Filter,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if p.radius <= 0 {
		p.radius = extract.DefaultRadius
	}
	if p.workers <= 0 {
		p.workers = 1
	}
	if p.timeout <= 0 {
		p.timeout = scraper.Timeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.filter == nil {
		p.filter = extract.NewNameFilter(nil)
	}
	if p.log == nil {
		p.log = logger.Default()
	}
	p.normalizer = &event.Normalizer{AssumedYear: opts.AssumedYear, Now: p.now, Location: time.UTC}
	return p
}

// venueOutcome is what one venue contributes before the global merge.
type venueOutcome struct {
	candidates []*event.Candidate
	report     VenueReport
}

// Run extracts candidates for every venue. Venue configuration is validated up
// front and an invalid venue fails the run before any page is fetched. When ctx
// is canceled, Run stops between URLs and returns the partial result with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, venues []venue.Venue) (*Result, error) {
	for i, v := range venues {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("venue %d: %w", i, err)
		}
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: p.now().UTC(),
	}
	log := p.log.With(logger.Fields{"run_id": result.RunID})
	log.Info("Run started", logger.Fields{"venues": len(venues), "workers": p.workers})

	outcomes := p.runVenues(ctx, venues, log)

	// Merge in registry order so dedup's first-seen rule does not depend on
	// which worker finished first.
	var all []*event.Candidate
	for _, o := range outcomes {
		all = append(all, o.candidates...)
	}
	result.Candidates = event.Dedupe(all)
	result.Emitted = len(all)
	result.Duplicates = len(all) - len(result.Candidates)

	perVenue := make(map[string]int, len(venues))
	for _, c := range result.Candidates {
		perVenue[c.VenueSlug]++
	}
	result.Reports = make([]VenueReport, 0, len(outcomes))
	for _, o := range outcomes {
		o.report.EventCount = perVenue[o.report.Slug]
		result.Reports = append(result.Reports, o.report)
		p.metrics.ObserveVenue(string(o.report.Status))
	}

	result.FinishedAt = p.now().UTC()
	p.metrics.ObserveRun(len(result.Candidates), result.Duplicates, result.FinishedAt)
	log.Info("Run finished", logger.Fields{
		"candidates": len(result.Candidates),
		"emitted":    result.Emitted,
		"duplicates": result.Duplicates,
		"duration":   result.FinishedAt.Sub(result.StartedAt).String(),
	})

	return result, ctx.Err()
}

// runVenues processes venues with a bounded pool. Outcomes are indexed by
// venue position; URLs within a venue are always fetched in order.
func (p *Pipeline) runVenues(ctx context.Context, venues []venue.Venue, log *logger.Logger) []venueOutcome {
	outcomes := make([]venueOutcome, len(venues))

	workers := p.workers
	if workers > len(venues) {
		workers = len(venues)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.runVenue(ctx, venues[i], log)
			}
		}()
	}
	for i := range venues {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (p *Pipeline) runVenue(ctx context.Context, v venue.Venue, log *logger.Logger) venueOutcome {
	out := venueOutcome{report: VenueReport{Venue: v.Name, Slug: v.Slug}}
	log = log.With(logger.Fields{"venue": v.Slug})

	var lastErr error
	for _, url := range v.CandidateURLs {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		out.report.URLsTried++

		text, err := p.fetch(ctx, url)
		if err != nil {
			out.report.URLsFailed++
			lastErr = err
			log.Warn("Fetch failed", logger.Fields{"url": url}, err)
			continue
		}

		found := p.ExtractPage(text, v, url)
		log.Debug("Page extracted", logger.Fields{"url": url, "candidates": len(found)})
		out.candidates = append(out.candidates, found...)
	}

	switch {
	case len(out.candidates) > 0:
		out.report.Status = StatusSuccess
	case out.report.URLsTried > out.report.URLsFailed:
		out.report.Status = StatusNoEvents
	default:
		out.report.Status = StatusError
		if lastErr != nil {
			out.report.Error = lastErr.Error()
		}
	}

	log.Info("Venue finished", logger.Fields{
		"status":      out.report.Status,
		"emitted":     len(out.candidates),
		"urls_tried":  out.report.URLsTried,
		"urls_failed": out.report.URLsFailed,
	})
	return out
}

func (p *Pipeline) fetch(ctx context.Context, url string) (text string, err error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetching %s: panic: %v", url, r)
		}
		p.metrics.ObserveFetch(time.Since(start), err)
	}()

	return p.fetcher.FetchPageText(fetchCtx, url)
}

// ExtractPage turns one page of text into candidates for venue v. For every
// date found, the first line in its window that passes the name filter is
// paired with that date; later lines in the same window are ignored.
func (p *Pipeline) ExtractPage(text string, v venue.Venue, sourceURL string) []*event.Candidate {
	var found []*event.Candidate

	for _, m := range event.FindDates(text) {
		date, ok := p.normalizer.Normalize(m.Raw)
		if !ok {
			continue
		}

		window := extract.ExtractWindow(text, m.Offset, len(m.Raw), p.radius)
		for _, line := range extract.SplitLines(window) {
			if !p.filter.IsPlausibleArtistName(line.Text, v.Name) {
				continue
			}
			c, err := event.BuildCandidate(line.Text, date, v.Name, v.Slug, window)
			if err != nil {
				break
			}
			c.SourceURL = sourceURL
			found = append(found, c)
			break
		}
	}
	return found
}
