// Package ratelevel turns a history of rate changes into a piecewise-constant
// rate level index over calendar time.
package ratelevel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"onlevel-reserving/internal/model"
)

// Event is one rate change: RateChange is a signed fraction (0.05 = +5%)
// effective from Date onward.
type Event struct {
	Date       time.Time `json:"date"`
	RateChange float64   `json:"rate_change"`
}

// Table is a tabular rate history: a header row naming the columns and the
// data rows as raw strings, as read from CSV or a spreadsheet.
type Table struct {
	Header []string
	Rows   [][]string
}

// Schedule is a parsed, date-sorted rate history. It is immutable.
type Schedule struct {
	events []Event
}

// NewSchedule parses the dateCol and changeCol columns of tbl.
func NewSchedule(tbl Table, dateCol, changeCol string) (*Schedule, error) {
	di, ci := -1, -1
	for i, h := range tbl.Header {
		switch strings.TrimSpace(h) {
		case dateCol:
			di = i
		case changeCol:
			ci = i
		}
	}
	if di < 0 {
		return nil, model.ScheduleError(dateCol, "date column not found in %v", tbl.Header)
	}
	if ci < 0 {
		return nil, model.ScheduleError(changeCol, "change column not found in %v", tbl.Header)
	}

	events := make([]Event, 0, len(tbl.Rows))
	for n, row := range tbl.Rows {
		if isBlank(row) {
			continue
		}
		if di >= len(row) || ci >= len(row) {
			return nil, model.ScheduleError(fmt.Sprintf("row %d", n+1), "expected at least %d columns, got %d", max(di, ci)+1, len(row))
		}
		d, err := ParseDate(row[di])
		if err != nil {
			return nil, model.ScheduleError(fmt.Sprintf("row %d", n+1), "%v", err)
		}
		r, err := ParseRateChange(row[ci])
		if err != nil {
			return nil, model.ScheduleError(fmt.Sprintf("row %d", n+1), "%v", err)
		}
		events = append(events, Event{Date: d, RateChange: r})
	}
	return NewScheduleFromEvents(events)
}

// NewScheduleFromEvents validates and sorts already-typed events. Events on
// the same date keep their supplied order.
func NewScheduleFromEvents(events []Event) (*Schedule, error) {
	if len(events) == 0 {
		return nil, model.ScheduleError("", "rate schedule is empty")
	}
	out := make([]Event, len(events))
	for i, e := range events {
		if e.Date.IsZero() {
			return nil, model.ScheduleError(fmt.Sprintf("event %d", i+1), "missing effective date")
		}
		if e.RateChange <= -1 {
			return nil, model.ScheduleError(fmt.Sprintf("event %d", i+1), "rate change %v would remove the whole rate level", e.RateChange)
		}
		out[i] = Event{Date: model.Day(e.Date), RateChange: e.RateChange}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return &Schedule{events: out}, nil
}

// Events returns a copy of the sorted events.
func (s *Schedule) Events() []Event {
	return append([]Event(nil), s.events...)
}

// First returns the earliest effective date.
func (s *Schedule) First() time.Time { return s.events[0].Date }

// Last returns the latest effective date.
func (s *Schedule) Last() time.Time { return s.events[len(s.events)-1].Date }

// ParseDate accepts ISO dates, slash-separated dates in either year-first or
// US month-first order, and RFC 3339 timestamps.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

var dateLayouts = []string{
	model.DateLayout,
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	// spreadsheet short-date renderings
	"01-02-06",
	"1/2/06",
}

// ParseRateChange parses "0.05", "-0.1067" or "5%".
func ParseRateChange(s string) (float64, error) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate change %q", s)
	}
	if pct {
		v /= 100
	}
	return v, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
