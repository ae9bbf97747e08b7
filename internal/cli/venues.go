package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/baysound/sf-events/internal/venue"
)

func newVenuesCmd(root *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "venues",
		Short: "List the configured venue registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			f, err := parseFormat(format, a.stdout)
			if err != nil {
				return err
			}
			return writeVenues(a, a.registry.Venues, f)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format: text, json or table")
	return cmd
}

func writeVenues(a *app, venues []venue.Venue, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(a.stdout, venues)
	case FormatTable:
		rows := make([][]string, 0, len(venues))
		for _, v := range venues {
			state := "enabled"
			if v.Disabled {
				state = "disabled"
			}
			rows = append(rows, []string{v.Slug, v.Name, strconv.Itoa(len(v.CandidateURLs)), state})
		}
		fmt.Fprintln(a.stdout, renderTable([]string{"Slug", "Name", "URLs", "State"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	default:
		for _, v := range venues {
			suffix := ""
			if v.Disabled {
				suffix = " (disabled)"
			}
			fmt.Fprintf(a.stdout, "%s: %s%s\n", v.Slug, v.Name, suffix)
			for _, u := range v.CandidateURLs {
				fmt.Fprintf(a.stdout, "    %s\n", u)
			}
		}
	}
	return nil
}
