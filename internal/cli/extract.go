package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baysound/sf-events/internal/calendar"
	"github.com/baysound/sf-events/internal/event"
	"github.com/baysound/sf-events/internal/filter"
	"github.com/baysound/sf-events/internal/pipeline"
	"github.com/baysound/sf-events/internal/storage"
	"github.com/baysound/sf-events/internal/venue"
)

type extractFlags struct {
	venue   string
	format  string
	sort    string
	icsFile string
	newOnly bool
	noSave  bool

	dates    string
	artists  []string
	weekends bool
}

func newExtractCmd(root *rootFlags) *cobra.Command {
	flags := &extractFlags{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch venue calendars and print candidate events",
		Long: `Fetch every enabled venue's calendar pages once and print the candidate
events found. The run is stored in the history database unless --no-save
is given.

With --new-only, only candidates absent from the previous stored run are
printed, and the command exits with status 2 when there are any.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			return runExtract(cmd.Context(), a, flags, root.verbose)
		},
	}

	cmd.Flags().StringVar(&flags.venue, "venue", "", "Only process the venue with this slug")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: text, json or table (default: table on a terminal, text otherwise)")
	cmd.Flags().StringVar(&flags.sort, "sort", "date", "Sort order: none, date, venue or artist")
	cmd.Flags().StringVar(&flags.icsFile, "ics", "", "Also write the printed candidates to this iCalendar file")
	cmd.Flags().BoolVar(&flags.newOnly, "new-only", false, "Only report candidates not present in the previous run (exit 2 if any)")
	cmd.Flags().BoolVar(&flags.noSave, "no-save", false, "Do not store this run in history")
	cmd.Flags().StringVar(&flags.dates, "dates", "", "Only report shows in this range: 'Mar 1-15', 'March 1 - April 15', 'March' or '2025-06-01..2025-06-30'")
	cmd.Flags().StringSliceVar(&flags.artists, "artist", nil, "Only report artists whose name contains this text (repeatable)")
	cmd.Flags().BoolVar(&flags.weekends, "weekends", false, "Only report Friday, Saturday and Sunday shows")

	return cmd
}

func runExtract(ctx context.Context, a *app, flags *extractFlags, verbose bool) error {
	format, err := parseFormat(flags.format, a.stdout)
	if err != nil {
		return err
	}
	order, err := parseSortOrder(flags.sort)
	if err != nil {
		return err
	}

	venues, err := selectVenues(a.registry, flags.venue)
	if err != nil {
		return err
	}
	reportFilter, err := buildFilter(flags, time.Now())
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	needStore := !flags.noSave || flags.newOnly
	var store *storage.Store
	if needStore {
		lock, err := lockDataDir(a.cfg.DataDir)
		if err != nil {
			return err
		}
		defer func() { _ = lock.Unlock() }()

		if store, err = storage.Open(a.cfg.DataDir); err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()
	}

	p := pipeline.New(fetcherFactory(a.cfg), pipeline.Options{
		Radius:       a.cfg.Extract.WindowRadius,
		AssumedYear:  a.cfg.Extract.AssumedYear,
		Workers:      a.cfg.Extract.Workers,
		FetchTimeout: a.cfg.FetchTimeout(),
		Logger:       a.log,
	})

	res, err := p.Run(ctx, venues)
	if err != nil {
		return fmt.Errorf("extraction run: %w", err)
	}

	shown := res.Candidates
	var byVenue map[string][]*event.Candidate
	if flags.newOnly {
		previous, err := store.LatestSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("loading previous run: %w", err)
		}
		diff := event.Diff(previous, res.Candidates, flags.venue)
		shown, byVenue = diff.New, diff.ByVenue
	} else {
		byVenue = groupByVenue(shown)
	}
	shown = append([]*event.Candidate{}, reportFilter.Apply(shown)...)
	sortCandidates(shown, order)
	for slug := range byVenue {
		byVenue[slug] = reportFilter.Apply(byVenue[slug])
		if len(byVenue[slug]) == 0 {
			delete(byVenue, slug)
			continue
		}
		sortCandidates(byVenue[slug], order)
	}

	if !flags.noSave {
		if err := store.SaveRun(ctx, res); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		if keep := a.cfg.Schedule.KeepRuns; keep > 0 {
			if _, err := store.Prune(ctx, keep); err != nil {
				a.log.Warn("Failed to prune run history", nil, err)
			}
		}
	}

	if flags.icsFile != "" {
		ics := calendar.GenerateICS(shown, calendar.Options{Name: "SF Shows"})
		if err := os.WriteFile(flags.icsFile, []byte(ics), 0644); err != nil {
			return fmt.Errorf("writing calendar: %w", err)
		}
	}

	result := &OutputResult{
		RunID:      res.RunID,
		CheckedAt:  res.FinishedAt,
		NewOnly:    flags.newOnly,
		Candidates: shown,
		EventCount: len(shown),
		Duplicates: res.Duplicates,
		ByVenue:    byVenue,
		Reports:    res.Reports,
	}
	if err := WriteOutput(a.stdout, result, format, verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flags.newOnly && len(shown) > 0 {
		return &exitCodeError{code: ExitNewEvents}
	}
	return nil
}

func selectVenues(reg *venue.Registry, slug string) ([]venue.Venue, error) {
	if slug == "" {
		venues := reg.Enabled()
		if len(venues) == 0 {
			return nil, fmt.Errorf("no enabled venues in registry")
		}
		return venues, nil
	}
	v, ok := reg.Find(slug)
	if !ok {
		return nil, fmt.Errorf("unknown venue %q (see 'sf-events venues')", slug)
	}
	return []venue.Venue{v}, nil
}

// buildFilter turns the reporting flags into a candidate filter. Filters narrow
// what is printed and exported; stored history always holds the full run.
func buildFilter(flags *extractFlags, now time.Time) (*filter.Filter, error) {
	f := filter.NewFilter()
	if flags.dates != "" {
		from, to, err := filter.ParseDateRange(flags.dates, now)
		if err != nil {
			return nil, fmt.Errorf("--dates: %w", err)
		}
		f.DateFrom, f.DateTo = from, to
	}
	f.Artists = flags.artists
	f.WeekendsOnly = flags.weekends
	return f, nil
}

func groupByVenue(candidates []*event.Candidate) map[string][]*event.Candidate {
	byVenue := make(map[string][]*event.Candidate)
	for _, c := range candidates {
		byVenue[c.VenueSlug] = append(byVenue[c.VenueSlug], c)
	}
	return byVenue
}
