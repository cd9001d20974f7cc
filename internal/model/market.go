package model

import "time"

// DateLayout is the calendar-date format used in tables, cache keys and the UI.
const DateLayout = "2006-01-02"

// OHLCV represents a single daily bar. Date is a calendar date at UTC midnight.
type OHLCV struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the daily history of one ticker over the lookback window.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Bars      []OHLCV   `json:"bars"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// CalendarDate truncates t to its calendar date at UTC midnight, keeping the
// year/month/day as seen in t's own location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
