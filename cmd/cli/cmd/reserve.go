package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"onlevel-reserving/internal/config"
	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/logging"
	"onlevel-reserving/internal/report"
	"onlevel-reserving/internal/reserving"
)

var (
	reserveOut    string
	reserveFormat string
	sortByIBNR    bool
)

var reserveCmd = &cobra.Command{
	Use:   "reserve <config.yaml>",
	Short: "Run a configured reserving pipeline",
	Long: `Load a run configuration, fit its pipeline and print the per-origin
ultimate and IBNR.

Examples:
  onlevel reserve configs/tort_reform.yaml
  onlevel reserve --format json configs/tort_reform.yaml
  onlevel reserve --out results configs/tort_reform.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReserve,
}

func init() {
	reserveCmd.Flags().StringVarP(&reserveOut, "out", "o", "", "directory to write factors.csv and rows.csv")
	reserveCmd.Flags().StringVarP(&reserveFormat, "format", "f", "table", "output format (table, json)")
	reserveCmd.Flags().BoolVar(&sortByIBNR, "sort-ibnr", false, "list origins by IBNR, largest first")
}

func runReserve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	log := logger
	if !verbose && logFormat == "" {
		lc := logging.FromEnv(logging.DefaultConfig())
		lc.Level, lc.Format = cfg.Logging.Level, cfg.Logging.Format
		if l, err := logging.New(lc); err == nil {
			log = l
		}
	}

	res, err := reserving.New(log, nil).Reserve(cfg)
	if err != nil {
		return err
	}
	if reserveOut != "" {
		if err := report.WriteResultFiles(reserveOut, res); err != nil {
			return err
		}
		log.Info("wrote results", zap.String("dir", reserveOut))
	}

	out := cmd.OutOrStdout()
	switch reserveFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "table":
		return printResult(out, res)
	default:
		return fmt.Errorf("unknown format %q", reserveFormat)
	}
}

func printResult(out io.Writer, res *report.Result) error {
	fmt.Fprintf(out, "%s (valued %s)\n\n", res.Name, data.FormatDate(res.ValuationDate))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "origin\tlatest\ton-level\tcdf\texposure\telr\tultimate\tibnr\t")
	rows := res.Rows
	if sortByIBNR {
		rows = report.ByIBNR(rows)
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Origin,
			report.FormatAmount(r.Latest),
			report.FormatAmount(r.OnLevelLatest),
			report.FormatFactor(r.CDF),
			report.FormatAmount(r.Exposure),
			report.FormatFactor(r.ELR),
			report.FormatAmount(r.Ultimate),
			report.FormatAmount(r.IBNR),
		)
	}
	t := res.Totals
	fmt.Fprintf(tw, "total\t%s\t\t\t%s\t\t%s\t%s\t\n",
		report.FormatAmount(t.Latest),
		report.FormatAmount(t.Exposure),
		report.FormatAmount(t.Ultimate),
		report.FormatAmount(t.IBNR),
	)
	return tw.Flush()
}
