package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/ratelevel"
	"onlevel-reserving/internal/report"
)

var (
	indexFrom      string
	indexReference string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print the rate level index of a schedule",
	Long: `Build the piecewise-constant rate level index of a schedule, normalised
so the level in force at the reference date is 1.

Examples:
  onlevel index --schedule-sample rate_history --reference 2008-12-31
  onlevel index --schedule rates.csv --from 1995-01-01 --reference 2008-12-31`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	addScheduleFlags(indexCmd)
	indexCmd.Flags().StringVar(&indexFrom, "from", "", "index origin (default: first event)")
	indexCmd.Flags().StringVar(&indexReference, "reference", "", "current rate level date")
	_ = indexCmd.MarkFlagRequired("reference")
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := loadSchedule()
	if err != nil {
		return err
	}
	ref, err := ratelevel.ParseDate(indexReference)
	if err != nil {
		return model.ConfigurationError("reference", "%v", err)
	}
	from := s.First()
	if indexFrom != "" {
		if from, err = ratelevel.ParseDate(indexFrom); err != nil {
			return model.ConfigurationError("from", "%v", err)
		}
	}
	ix, err := s.BuildIndex(from, ref, ratelevel.ExtrapolateError)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "start\tend\tlevel")
	for _, seg := range ix.Segments() {
		end := ""
		if !seg.End.IsZero() {
			end = data.FormatDate(seg.End)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", data.FormatDate(seg.Start), end, report.FormatFactor(seg.Level))
	}
	return tw.Flush()
}
