// Package dates registers date parsing and formatting helpers.
package dates

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/specialistvlad/dmutils/internal/manifest"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

//go:embed manifest.hcl
var manifestSrc []byte

// Module implements the namespace.Module interface for this package.
type Module struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Register registers the module's functions with the namespace.
func (m *Module) Register(ns *namespace.Namespace) error {
	now := m.Now
	if now == nil {
		now = time.Now
	}
	return manifest.RegisterSource(ns, "dates/manifest.hcl", manifestSrc, map[string]namespace.Impl{
		"date_trans":   dateTrans,
		"current_time": currentTime(now),
		"current_week": currentWeek(now),
	})
}

// DateInfo holds the calendar fields derived from a single date.
type DateInfo struct {
	Year        int    `cty:"year"`
	ISOYear     int    `cty:"iso_year"`
	Week        int    `cty:"week"`
	Month       int    `cty:"month"`
	Quarter     int    `cty:"quarter"`
	Weekday     int    `cty:"weekday"`
	YearWeek    string `cty:"yearweek"`
	YearMonth   string `cty:"yearmonth"`
	YearQuarter string `cty:"yearquarter"`
	Timestamp   int64  `cty:"timestamp"`
}

var dateInfoType = func() cty.Type {
	ty, err := gocty.ImpliedType(DateInfo{})
	if err != nil {
		panic(err)
	}
	return ty
}()

// ParseDate parses YYYYMMDD, with or without dashes, as a local date.
func ParseDate(s string) (DateInfo, error) {
	t, err := time.ParseInLocation("20060102", strings.ReplaceAll(strings.TrimSpace(s), "-", ""), time.Local)
	if err != nil {
		return DateInfo{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Describe(t), nil
}

// Describe computes the calendar fields of t. Week and weekday follow ISO 8601.
func Describe(t time.Time) DateInfo {
	isoYear, week := t.ISOWeek()
	month := int(t.Month())
	quarter := (month-1)/3 + 1
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	return DateInfo{
		Year:        t.Year(),
		ISOYear:     isoYear,
		Week:        week,
		Month:       month,
		Quarter:     quarter,
		Weekday:     weekday,
		YearWeek:    fmt.Sprintf("%dW%02d", isoYear, week),
		YearMonth:   fmt.Sprintf("%dM%02d", t.Year(), month),
		YearQuarter: fmt.Sprintf("%dQ%d", t.Year(), quarter),
		Timestamp:   midnight.Unix(),
	}
}

func dateTrans(_ context.Context, args *namespace.Args) (cty.Value, error) {
	s, err := args.String("datestring")
	if err != nil {
		return cty.NilVal, err
	}
	info, err := ParseDate(s)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(info, dateInfoType)
}

func currentTime(now func() time.Time) namespace.Impl {
	return func(_ context.Context, args *namespace.Args) (cty.Value, error) {
		pattern, err := args.String("format")
		if err != nil {
			return cty.NilVal, err
		}
		out, err := strftime.Format(pattern, now())
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid time format %q: %w", pattern, err)
		}
		return cty.StringVal(out), nil
	}
}

func currentWeek(now func() time.Time) namespace.Impl {
	return func(context.Context, *namespace.Args) (cty.Value, error) {
		year, week := now().ISOWeek()
		return cty.ObjectVal(map[string]cty.Value{
			"year":     cty.NumberIntVal(int64(year)),
			"week":     cty.NumberIntVal(int64(week)),
			"yearweek": cty.StringVal(fmt.Sprintf("%dW%02d", year, week)),
		}), nil
	}
}
