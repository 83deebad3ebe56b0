package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"onlevel-reserving/internal/data"
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List the bundled sample datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "name\tkind\tdescription")
		for _, s := range data.Samples() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Kind, s.Description)
		}
		return tw.Flush()
	},
}
