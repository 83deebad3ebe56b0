package data

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/ratelevel"
)

// LoadTrianglesXLSX reads a workbook with one sheet per triangle column. Row
// 1 holds the development ages from column B; column A holds origin labels.
// Blank cells are unobserved.
func LoadTrianglesXLSX(path string, grain model.Grain, valuation time.Time) (map[string]*model.Triangle, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readTriangles(f, grain, valuation)
}

// ReadTrianglesXLSX is LoadTrianglesXLSX for an uploaded workbook.
func ReadTrianglesXLSX(r io.Reader, grain model.Grain, valuation time.Time) (map[string]*model.Triangle, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readTriangles(f, grain, valuation)
}

func readTriangles(f *excelize.File, grain model.Grain, valuation time.Time) (map[string]*model.Triangle, error) {
	out := map[string]*model.Triangle{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		tri, err := sheetTriangle(sheet, rows, grain, valuation)
		if err != nil {
			return nil, err
		}
		out[sheet] = tri
	}
	if len(out) == 0 {
		return nil, model.ShapeError("", "workbook has no triangle sheets")
	}
	return out, nil
}

func sheetTriangle(name string, rows [][]string, grain model.Grain, valuation time.Time) (*model.Triangle, error) {
	header := rows[0]
	if len(header) < 2 {
		return nil, model.ShapeError(name, "no development ages in header row")
	}
	var ages []int
	for _, h := range header[1:] {
		h = strings.TrimSpace(h)
		if h == "" {
			break
		}
		a, err := strconv.Atoi(h)
		if err != nil {
			return nil, model.ShapeError(name, "development age %q is not an integer", h)
		}
		ages = append(ages, a)
	}

	tri := &model.Triangle{Name: name, Grain: grain, ValuationDate: valuation, Ages: ages}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		p, err := model.ParsePeriod(grain, row[0])
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(ages))
		for j := range ages {
			vals[j] = math.NaN()
			if j+1 >= len(row) {
				continue
			}
			cell := strings.ReplaceAll(strings.TrimSpace(row[j+1]), ",", "")
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, model.ShapeError(p.Label, "cell at age %d: %q is not a number", ages[j], cell)
			}
			vals[j] = v
		}
		tri.Origins = append(tri.Origins, p)
		tri.Values = append(tri.Values, vals)
	}
	if err := tri.Validate(); err != nil {
		return nil, err
	}
	return tri, nil
}

// LoadScheduleXLSX reads a rate history from sheet (the first sheet if
// empty). The first row is the header.
func LoadScheduleXLSX(path, sheet, dateCol, changeCol string) (*ratelevel.Schedule, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	var tbl ratelevel.Table
	if len(rows) > 0 {
		tbl = ratelevel.Table{Header: rows[0], Rows: rows[1:]}
	}
	return ratelevel.NewSchedule(tbl, orDefault(dateCol, DefaultDateCol), orDefault(changeCol, DefaultChangeCol))
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
