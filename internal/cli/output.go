package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/baysound/sf-events/internal/event"
	"github.com/baysound/sf-events/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
)

// parseFormat validates a --format value. Empty selects table on a terminal
// and text otherwise.
func parseFormat(value string, w io.Writer) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatText, FormatJSON, FormatTable:
		return f, nil
	case "":
		if isTerminal(w) {
			return FormatTable, nil
		}
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'table')", value)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// OutputResult contains data to be output
type OutputResult struct {
	RunID      string                        `json:"run_id"`
	CheckedAt  time.Time                     `json:"checked_at"`
	NewOnly    bool                          `json:"new_only,omitempty"`
	Candidates []*event.Candidate            `json:"candidates"`
	EventCount int                           `json:"event_count"`
	Duplicates int                           `json:"duplicates"`
	ByVenue    map[string][]*event.Candidate `json:"by_venue,omitempty"`
	Reports    []pipeline.VenueReport        `json:"reports"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	case FormatTable:
		return writeTable(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text grouped by venue
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	label := "events"
	prefix := ""
	if result.NewOnly {
		label = "new"
		prefix = "NEW: "
	}

	if result.EventCount == 0 {
		if result.NewOnly {
			fmt.Fprintln(w, "No new events found.")
		} else {
			fmt.Fprintln(w, "No events found.")
		}
	} else {
		for _, slug := range sortedSlugs(result.ByVenue) {
			candidates := result.ByVenue[slug]
			fmt.Fprintf(w, "\n%s (%d %s):\n", candidates[0].VenueName, len(candidates), label)
			for _, c := range candidates {
				fmt.Fprintf(w, "  %s%s  %s\n", prefix, c.Date, c.ArtistName)
				if verbose {
					fmt.Fprintf(w, "       ID: %s\n", c.ID())
					if c.SourceURL != "" {
						fmt.Fprintf(w, "       Source: %s\n", c.SourceURL)
					}
					if c.Date.Fallback {
						fmt.Fprintln(w, "       Date: parsed by fallback")
					}
				}
			}
		}
		fmt.Fprintf(w, "\nTotal: %d %s across %d venues\n", result.EventCount, label, len(result.ByVenue))
	}

	if failed := failedReports(result.Reports); len(failed) > 0 {
		fmt.Fprintf(w, "\n%d venue(s) failed:\n", len(failed))
		for _, r := range failed {
			fmt.Fprintf(w, "  %s: %s\n", r.Slug, r.Error)
		}
	}
	return nil
}

func writeTable(w io.Writer, result *OutputResult) error {
	rows := make([][]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		rows = append(rows, []string{c.Date.String(), c.ArtistName, c.VenueName})
	}
	fmt.Fprintln(w, renderTable([]string{"Date", "Artist", "Venue"}, rows, nil))
	return writeReportsTable(w, result.Reports)
}

func writeReportsTable(w io.Writer, reports []pipeline.VenueReport) error {
	reportRows := make([][]string, 0, len(reports))
	for _, r := range reports {
		reportRows = append(reportRows, []string{
			r.Slug,
			string(r.Status),
			strconv.Itoa(r.EventCount),
			fmt.Sprintf("%d/%d", r.URLsTried-r.URLsFailed, r.URLsTried),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Venue", "Status", "Events", "URLs OK"}, reportRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
	return nil
}

func sortedSlugs(byVenue map[string][]*event.Candidate) []string {
	slugs := make([]string, 0, len(byVenue))
	for slug, candidates := range byVenue {
		if len(candidates) > 0 {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs
}

func failedReports(reports []pipeline.VenueReport) []pipeline.VenueReport {
	var failed []pipeline.VenueReport
	for _, r := range reports {
		if r.Status == pipeline.StatusError {
			failed = append(failed, r)
		}
	}
	return failed
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
