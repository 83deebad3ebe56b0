package main

import (
	"flag"
	"fmt"
	"os"

	"onlevel-reserving/internal/data"
	"onlevel-reserving/internal/onlevel"
	"onlevel-reserving/internal/ratelevel"
	"onlevel-reserving/internal/report"
	"onlevel-reserving/internal/reserving"
)

// Demo:
// - Load the bundled accident-year triangle and tort reform schedule
// - Fit vertical-line and parallelogram factors side by side
// - Optionally run a full reserving config and write its CSVs
func main() {
	sample := flag.String("sample", "casualty_ay", "Bundled triangle sample")
	column := flag.String("column", "Incurred", "Triangle column to on-level")
	schedule := flag.String("schedule", "tort_reform", "Bundled schedule sample")
	term := flag.Int("term", 12, "Policy term in months for the parallelogram method")
	outCSV := flag.String("out", "", "Optional path to write the factor CSV (e.g. results/factors.csv)")
	flag.Parse()

	tris, err := data.SampleTriangles(*sample)
	if err != nil {
		panic(err)
	}
	X, ok := tris[*column]
	if !ok {
		panic(fmt.Errorf("column %q not in sample %s", *column, *sample))
	}
	s, err := data.SampleSchedule(*schedule)
	if err != nil {
		panic(err)
	}

	runner := reserving.New(nil, nil)
	_, vertical, err := runner.OnLevel(s, X, onlevel.Params{VerticalLine: true, TermMonths: *term})
	if err != nil {
		panic(err)
	}
	_, policy, err := runner.OnLevel(s, X, onlevel.Params{TermMonths: *term, Basis: onlevel.BasisPolicy})
	if err != nil {
		panic(err)
	}
	_, calendar, err := runner.OnLevel(s, X, onlevel.Params{TermMonths: *term, Basis: onlevel.BasisCalendar})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Loaded %s[%s]: %d origins valued %s\n", *sample, *column, len(X.Origins), data.FormatDate(X.ValuationDate))
	fmt.Println("Rate changes:")
	for _, e := range s.Events() {
		fmt.Printf("  %s  %+.2f%%\n", data.FormatDate(e.Date), e.RateChange*100)
	}
	ix, err := s.BuildIndex(s.First(), X.ValuationDate, ratelevel.ExtrapolateError)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Index: %s\n\n", ix)

	fmt.Printf("%-8s %10s %10s %10s\n", "origin", "vertical", "policy", "calendar")
	for i := range vertical {
		fmt.Printf("%-8s %10s %10s %10s\n",
			vertical[i].Label,
			report.FormatFactor(vertical[i].Factor),
			report.FormatFactor(policy[i].Factor),
			report.FormatFactor(calendar[i].Factor),
		)
	}

	if *outCSV != "" {
		tables := []report.FactorTable{
			{Step: "vertical", Factors: vertical},
			{Step: "policy", Factors: policy},
			{Step: "calendar", Factors: calendar},
		}
		f, err := os.Create(*outCSV)
		if err != nil {
			panic(err)
		}
		if err := report.WriteFactorsCSV(f, tables); err != nil {
			panic(err)
		}
		if err := f.Close(); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}
}
