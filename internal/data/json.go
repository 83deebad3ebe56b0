package data

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"onlevel-reserving/internal/model"
	"onlevel-reserving/internal/ratelevel"
)

// TriangleFile is the JSON shape of a set of triangles sharing origins and
// development ages. Each entry of Columns is one triangle, [origin][age],
// with null for unobserved cells.
type TriangleFile struct {
	Name          string                  `json:"name" yaml:"name"`
	Grain         string                  `json:"grain" yaml:"grain"`
	ValuationDate string                  `json:"valuation_date" yaml:"valuation_date"`
	Origins       []string                `json:"origins" yaml:"origins"`
	Development   []int                   `json:"development" yaml:"development"`
	Columns       map[string][][]*float64 `json:"columns" yaml:"columns"`
}

// Triangles converts the file into one triangle per column.
func (f *TriangleFile) Triangles() (map[string]*model.Triangle, error) {
	grain, err := model.ParseGrain(f.Grain)
	if err != nil {
		return nil, err
	}
	valuation, err := ratelevel.ParseDate(f.ValuationDate)
	if err != nil {
		return nil, model.ConfigurationError("valuation_date", "%v", err)
	}
	origins := make([]model.Period, len(f.Origins))
	for i, label := range f.Origins {
		p, err := model.ParsePeriod(grain, label)
		if err != nil {
			return nil, err
		}
		origins[i] = p
	}
	if len(f.Columns) == 0 {
		return nil, model.ShapeError(f.Name, "no columns")
	}

	out := make(map[string]*model.Triangle, len(f.Columns))
	for name, rows := range f.Columns {
		values := make([][]float64, len(rows))
		for i, row := range rows {
			values[i] = make([]float64, len(row))
			for j, v := range row {
				if v == nil {
					values[i][j] = math.NaN()
					continue
				}
				values[i][j] = *v
			}
		}
		tri := &model.Triangle{
			Name:          name,
			Grain:         grain,
			ValuationDate: valuation,
			Origins:       append([]model.Period(nil), origins...),
			Ages:          append([]int(nil), f.Development...),
			Values:        values,
		}
		if err := tri.Validate(); err != nil {
			return nil, err
		}
		out[name] = tri
	}
	return out, nil
}

// NewTriangleFile builds the JSON shape from triangles with identical
// origins and ages. NaN cells become null.
func NewTriangleFile(name string, tris ...*model.Triangle) (*TriangleFile, error) {
	if len(tris) == 0 {
		return nil, model.ShapeError(name, "no triangles")
	}
	first := tris[0]
	f := &TriangleFile{
		Name:          name,
		Grain:         string(first.Grain),
		ValuationDate: first.ValuationDate.Format(model.DateLayout),
		Development:   append([]int(nil), first.Ages...),
		Columns:       make(map[string][][]*float64, len(tris)),
	}
	for _, o := range first.Origins {
		f.Origins = append(f.Origins, o.Label)
	}
	for _, t := range tris {
		if len(t.Origins) != len(first.Origins) || len(t.Ages) != len(first.Ages) {
			return nil, model.ShapeError(t.Name, "shape differs from %s", first.Name)
		}
		rows := make([][]*float64, len(t.Values))
		for i, row := range t.Values {
			rows[i] = make([]*float64, len(row))
			for j, v := range row {
				if math.IsNaN(v) {
					continue
				}
				rows[i][j] = &v
			}
		}
		f.Columns[t.Name] = rows
	}
	return f, nil
}

// ColumnNames returns the column names in sorted order.
func (f *TriangleFile) ColumnNames() []string {
	names := make([]string, 0, len(f.Columns))
	for n := range f.Columns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func DecodeTriangles(r io.Reader) (map[string]*model.Triangle, error) {
	var f TriangleFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode triangle json: %w", err)
	}
	return f.Triangles()
}

func LoadTrianglesJSON(path string) (map[string]*model.Triangle, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return DecodeTriangles(fh)
}

// ScheduleFile is the JSON shape of a rate history.
type ScheduleFile struct {
	Events []EventJSON `json:"events"`
}

type EventJSON struct {
	Date       string  `json:"date" yaml:"date" validate:"required"`
	RateChange float64 `json:"rate_change" yaml:"rate_change"`
}

// Schedule parses the events. Dates use any layout ratelevel.ParseDate accepts.
func (f *ScheduleFile) Schedule() (*ratelevel.Schedule, error) {
	return ScheduleFromEvents(f.Events)
}

func ScheduleFromEvents(in []EventJSON) (*ratelevel.Schedule, error) {
	events := make([]ratelevel.Event, len(in))
	for i, e := range in {
		d, err := ratelevel.ParseDate(e.Date)
		if err != nil {
			return nil, model.ScheduleError(fmt.Sprintf("event %d", i+1), "%v", err)
		}
		events[i] = ratelevel.Event{Date: d, RateChange: e.RateChange}
	}
	return ratelevel.NewScheduleFromEvents(events)
}

// EventsJSON is the inverse of ScheduleFromEvents.
func EventsJSON(s *ratelevel.Schedule) []EventJSON {
	var out []EventJSON
	for _, e := range s.Events() {
		out = append(out, EventJSON{Date: e.Date.Format(model.DateLayout), RateChange: e.RateChange})
	}
	return out
}

func LoadScheduleJSON(path string) (*ratelevel.Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f ScheduleFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode schedule json: %w", err)
	}
	return f.Schedule()
}

// FormatDate renders a date for JSON and CSV output; the zero time is "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}
