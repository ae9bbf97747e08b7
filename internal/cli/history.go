package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/baysound/sf-events/internal/pipeline"
	"github.com/baysound/sf-events/internal/storage"
)

func newHistoryCmd(root *rootFlags) *cobra.Command {
	var (
		format string
		limit  int
		runID  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored extraction runs",
		Long: `Show stored extraction runs, newest first. With --run, show one run's
per-venue reports instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			f, err := parseFormat(format, a.stdout)
			if err != nil {
				return err
			}

			store, err := storage.Open(a.cfg.DataDir)
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			if runID != "" {
				run, err := store.GetRun(ctx, runID)
				if err != nil {
					return fmt.Errorf("loading run %s: %w", runID, err)
				}
				return writeRunReports(a, run, f)
			}

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return writeRuns(a, runs, f)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format: text, json or table")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show venue reports for this run ID")
	return cmd
}

func writeRuns(a *app, runs []*storage.RunRecord, format OutputFormat) error {
	if format == FormatJSON {
		if runs == nil {
			runs = []*storage.RunRecord{}
		}
		return writeJSON(a.stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No runs stored.")
		return nil
	}
	if format == FormatTable {
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.ID,
				r.FinishedAt.Local().Format(time.DateTime),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
				strconv.Itoa(r.Candidates),
				strconv.Itoa(r.Duplicates),
			})
		}
		fmt.Fprintln(a.stdout, renderTable([]string{"Run", "Finished", "Took", "Events", "Duplicates"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight}))
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(a.stdout, "%s  %s  %d events (%d duplicates)\n",
			r.FinishedAt.Local().Format(time.DateTime), r.ID, r.Candidates, r.Duplicates)
	}
	return nil
}

func writeRunReports(a *app, run *storage.RunRecord, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(a.stdout, run)
	}
	fmt.Fprintf(a.stdout, "Run %s finished %s: %d events\n",
		run.ID, run.FinishedAt.Local().Format(time.DateTime), run.Candidates)
	if format == FormatTable {
		return writeReportsTable(a.stdout, run.Reports)
	}
	for _, r := range run.Reports {
		line := fmt.Sprintf("  %-28s %-9s %d", r.Slug, r.Status, r.EventCount)
		if r.Status == pipeline.StatusError && r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}
