package report

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"onlevel-reserving/internal/onlevel"
)

// Factors print to 6 places and amounts to 2.
const (
	factorPlaces = 6
	amountPlaces = 2
)

func WriteFactorsCSV(out io.Writer, tables []FactorTable) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{
		"step",
		"origin",
		"start",
		"end",
		"average_level",
		"factor",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, ft := range tables {
		for _, f := range ft.Factors {
			row := []string{
				ft.Step,
				f.Label,
				fmtDate(f.Start),
				fmtDate(f.End),
				fmtFixed(f.AverageLevel, factorPlaces),
				fmtFixed(f.Factor, factorPlaces),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func WriteRowsCSV(out io.Writer, rows []OriginRow) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{
		"origin",
		"latest",
		"onlevel_latest",
		"cdf",
		"exposure",
		"elr",
		"apriori",
		"ultimate",
		"ibnr",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.Origin,
			fmtFixed(r.Latest, amountPlaces),
			fmtFixed(r.OnLevelLatest, amountPlaces),
			fmtFixed(r.CDF, factorPlaces),
			fmtFixed(r.Exposure, amountPlaces),
			fmtFixed(r.ELR, factorPlaces),
			fmtFixed(r.Apriori, amountPlaces),
			fmtFixed(r.Ultimate, amountPlaces),
			fmtFixed(r.IBNR, amountPlaces),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteResultFiles writes rows.csv and factors.csv under dir.
func WriteResultFiles(dir string, res *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "rows.csv"), func(w io.Writer) error { return WriteRowsCSV(w, res.Rows) }); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "factors.csv"), func(w io.Writer) error { return WriteFactorsCSV(w, res.Factors) })
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FactorsOnly wraps a single factor table, e.g. from a standalone on-level run.
func FactorsOnly(step string, factors []onlevel.Factor) []FactorTable {
	return []FactorTable{{Step: step, Factors: factors}}
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// fmtFixed rounds half away from zero. NaN prints empty.
func fmtFixed(x float64, places int32) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	return decimal.NewFromFloat(x).StringFixed(places)
}

func roundFixed(x float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(x).Round(places).Float64()
	return f
}

// FormatAmount is fmtFixed at amount precision, for console tables.
func FormatAmount(x float64) string { return fmtFixed(x, amountPlaces) }

// FormatFactor is fmtFixed at factor precision.
func FormatFactor(x float64) string { return fmtFixed(x, factorPlaces) }
