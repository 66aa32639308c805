package cleaning

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Excel stores dates as day serials. Values outside this window are not dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/06",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
}

var numberCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// parseFloat reads a real number, tolerating currency signs and thousands
// separators. NaN and infinities are rejected.
func parseFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	case string:
		s := numberCleaner.Replace(strings.TrimSpace(x))
		if s == "" {
			return 0, fmt.Errorf("empty value")
		}
		var err error
		f, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

// parseInt reads an integer. Integral floats such as "12.0" are accepted.
func parseInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case string:
		s := numberCleaner.Replace(strings.TrimSpace(x))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := parseFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return 0, fmt.Errorf("not an integer")
	}
	return int64(f), nil
}

// parseDate reads a calendar date from text in the layouts the sources use or
// from an Excel day serial. The time of day is discarded.
func parseDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return dateOnly(x), nil
	case float64, int64:
		return serialDate(v)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, fmt.Errorf("empty value")
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dateOnly(t), nil
			}
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(s)
		}
		return time.Time{}, fmt.Errorf("unrecognized date")
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

func serialDate(v any) (time.Time, error) {
	f, err := parseFloat(v)
	if err != nil {
		return time.Time{}, err
	}
	if f < minExcelSerial || f > maxExcelSerial {
		return time.Time{}, fmt.Errorf("serial %v out of range", f)
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, err
	}
	return dateOnly(t), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// roundCents rounds half away from zero to two decimals.
func roundCents(f float64) float64 {
	return math.Round(f*100) / 100
}

// cellString returns the trimmed text of a cell, formatting numbers without
// exponent so codes read from spreadsheets compare as text.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}
