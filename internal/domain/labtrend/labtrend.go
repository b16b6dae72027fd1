// Package labtrend keeps per-analyte lab series in chronological order.
package labtrend

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hcevision/cardio/internal/domain/normalize"
)

// DateLayout is the calendar date format of every observation.
const DateLayout = "2006-01-02"

// LabResult is one observation of an analyte.
type LabResult struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Trends maps an analyte key to its series, oldest first.
type Trends map[string][]LabResult

// Merge appends obs to the analyte series and re-sorts it by date. Ties keep
// insertion order and same-day points are never collapsed.
func Merge(trends Trends, analyte string, obs LabResult) {
	MergeBatch(trends, analyte, []LabResult{obs})
}

// MergeBatch is Merge for several observations in one pass.
func MergeBatch(trends Trends, analyte string, obs []LabResult) {
	if len(obs) == 0 {
		return
	}
	series := append(trends[analyte], obs...)
	slices.SortStableFunc(series, func(a, b LabResult) int {
		return strings.Compare(a.Date, b.Date)
	})
	trends[analyte] = series
}

// Observation builds a LabResult from a raw lab entry dated at date. It fails
// when the date is not a calendar date or the value cannot be resolved.
func Observation(date string, raw any) (LabResult, error) {
	date, err := CalendarDate(date)
	if err != nil {
		return LabResult{}, err
	}
	value, unit := normalize.LabValue(raw)
	if value == nil {
		return LabResult{}, fmt.Errorf("no numeric value in %v", raw)
	}
	return LabResult{Date: date, Value: *value, Unit: unit}, nil
}

// CalendarDate validates s as YYYY-MM-DD. A full RFC 3339 timestamp is
// accepted and truncated to its date.
func CalendarDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err == nil {
		return s, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.Format(DateLayout), nil
	}
	return "", fmt.Errorf("invalid observation date %q", s)
}

// Clone returns a deep copy of t.
func (t Trends) Clone() Trends {
	if t == nil {
		return nil
	}
	out := make(Trends, len(t))
	for k, v := range t {
		out[k] = slices.Clone(v)
	}
	return out
}
