package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"onlevel-reserving/internal/ratelevel"
)

// Default column names of a rate history file.
const (
	DefaultDateCol   = "date"
	DefaultChangeCol = "rate_change"
)

// ReadTableCSV reads a header row and data rows.
func ReadTableCSV(r io.Reader) (ratelevel.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return ratelevel.Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(recs) == 0 {
		return ratelevel.Table{}, nil
	}
	return ratelevel.Table{Header: recs[0], Rows: recs[1:]}, nil
}

func ReadScheduleCSV(r io.Reader, dateCol, changeCol string) (*ratelevel.Schedule, error) {
	tbl, err := ReadTableCSV(r)
	if err != nil {
		return nil, err
	}
	return ratelevel.NewSchedule(tbl, orDefault(dateCol, DefaultDateCol), orDefault(changeCol, DefaultChangeCol))
}

// LoadSchedule reads a rate history from a .csv, .xlsx or .json file.
func LoadSchedule(path, dateCol, changeCol string) (*ratelevel.Schedule, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadScheduleJSON(path)
	case ".xlsx", ".xlsm":
		return LoadScheduleXLSX(path, "", dateCol, changeCol)
	default:
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		return ReadScheduleCSV(fh, dateCol, changeCol)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
