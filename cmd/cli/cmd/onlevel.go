package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"onlevel-reserving/internal/config"
	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/ratelevel"
	"onlevel-reserving/internal/report"
	"onlevel-reserving/internal/reserving"
)

var (
	triPath       string
	triSample     string
	triGrain      string
	triValuation  string
	column        string
	schedPath     string
	schedSample   string
	dateCol       string
	changeCol     string
	verticalLine  bool
	termMonths    int
	basis         string
	latestOnly    bool
	extrapolation string
	reference     string
	factorsOut    string
	restatedOut   string
)

var onlevelCmd = &cobra.Command{
	Use:   "onlevel",
	Short: "Compute on-level factors for one triangle column",
	Long: `Fit parallelogram or vertical-line on-level factors for every origin of a
triangle and print them as CSV.

Examples:
  onlevel onlevel --sample casualty_ay --column Incurred --schedule-sample tort_reform --vertical
  onlevel onlevel --triangle losses.xlsx --valuation 2008-12-31 --column Premium --schedule rates.csv`,
	Args: cobra.NoArgs,
	RunE: runOnLevel,
}

func init() {
	f := onlevelCmd.Flags()
	f.StringVar(&triPath, "triangle", "", "triangle file (.json or .xlsx)")
	f.StringVar(&triSample, "sample", "", "bundled triangle sample")
	f.StringVar(&triGrain, "grain", "Y", "origin grain for .xlsx input (Y, Q, M)")
	f.StringVar(&triValuation, "valuation", "", "valuation date for .xlsx input")
	f.StringVar(&column, "column", "Incurred", "triangle column to on-level")
	addScheduleFlags(onlevelCmd)
	f.BoolVar(&verticalLine, "vertical", false, "vertical-line method instead of parallelogram")
	f.IntVar(&termMonths, "term", 12, "policy term in months")
	f.StringVar(&basis, "basis", "policy", "parallelogram basis (policy, calendar)")
	f.BoolVar(&latestOnly, "latest-only", false, "scale only the latest diagonal")
	f.StringVar(&extrapolation, "extrapolation", "error", "dates before the index origin (error, clamp)")
	f.StringVar(&reference, "reference", "", "current rate level date (default: valuation date)")
	f.StringVarP(&factorsOut, "out", "o", "", "write factors CSV here instead of stdout")
	f.StringVar(&restatedOut, "restated", "", "write the restated triangle as JSON")
}

func addScheduleFlags(c *cobra.Command) {
	c.Flags().StringVar(&schedPath, "schedule", "", "rate change file (.csv, .xlsx or .json)")
	c.Flags().StringVar(&schedSample, "schedule-sample", "", "bundled schedule sample")
	c.Flags().StringVar(&dateCol, "date-col", data.DefaultDateCol, "effective date column")
	c.Flags().StringVar(&changeCol, "change-col", data.DefaultChangeCol, "rate change column")
}

func loadSchedule() (*ratelevel.Schedule, error) {
	switch {
	case schedPath != "" && schedSample != "":
		return nil, model.ConfigurationError("schedule", "give either --schedule or --schedule-sample")
	case schedPath != "":
		return data.LoadSchedule(schedPath, dateCol, changeCol)
	case schedSample != "":
		return data.SampleSchedule(schedSample)
	default:
		return nil, model.ConfigurationError("schedule", "--schedule or --schedule-sample is required")
	}
}

func loadTriangles() (map[string]*model.Triangle, error) {
	switch {
	case triPath != "" && triSample != "":
		return nil, model.ConfigurationError("triangle", "give either --triangle or --sample")
	case triSample != "":
		return data.SampleTriangles(triSample)
	case strings.EqualFold(filepath.Ext(triPath), ".xlsx"):
		grain, err := model.ParseGrain(triGrain)
		if err != nil {
			return nil, err
		}
		valuation, err := ratelevel.ParseDate(triValuation)
		if err != nil {
			return nil, model.ConfigurationError("valuation", "%v", err)
		}
		return data.LoadTrianglesXLSX(triPath, grain, valuation)
	case triPath != "":
		return data.LoadTrianglesJSON(triPath)
	default:
		return nil, model.ConfigurationError("triangle", "--triangle or --sample is required")
	}
}

func runOnLevel(cmd *cobra.Command, args []string) error {
	tris, err := loadTriangles()
	if err != nil {
		return err
	}
	X, ok := tris[column]
	if !ok {
		return model.ConfigurationError("column", "column %q not found", column)
	}
	s, err := loadSchedule()
	if err != nil {
		return err
	}
	params, err := config.OnLevelParams(map[string]any{
		"vertical_line":        verticalLine,
		"term_months":          termMonths,
		"basis":                basis,
		"only_latest_diagonal": latestOnly,
		"extrapolation":        extrapolation,
		"reference":            reference,
	})
	if err != nil {
		return err
	}

	out, factors, err := reserving.New(logger, nil).OnLevel(s, X, params)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if factorsOut != "" {
		fh, err := os.Create(factorsOut)
		if err != nil {
			return err
		}
		defer fh.Close()
		w = fh
	}
	if err := report.WriteFactorsCSV(w, report.FactorsOnly(column, factors)); err != nil {
		return err
	}

	if restatedOut != "" {
		file, err := data.NewTriangleFile(X.Name, out)
		if err != nil {
			return err
		}
		raw, err := json.MarshalIndent(file, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(restatedOut, raw, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", restatedOut, err)
		}
	}
	return nil
}
