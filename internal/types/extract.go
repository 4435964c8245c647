package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CELL VALUE EXTRACTION UTILITIES
// =============================================================================
//
// Result cells arrive as any of several Go types depending on the data
// source driver: string, []byte, int64, int, float64, float32, bool,
// time.Time, or nil for the distinguished null. These helpers provide safe,
// type-aware extraction without bare type assertions that panic on mismatch.

// timeLayouts are tried in order when parsing a textual timestamp cell.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// IsNull reports whether a cell holds the distinguished null.
func IsNull(v Value) bool {
	return v == nil
}

// AsString extracts a display string from a cell. Never panics; nil yields "".
func AsString(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// AsFloat extracts a numeric value from a cell.
// Returns (value, true) on success, (0, false) for nulls and non-numeric cells.
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// AsTime extracts a timestamp from a cell. Textual cells are parsed against
// a fixed set of layouts; integer cells are interpreted as Unix seconds, or
// milliseconds when the magnitude makes seconds implausible.
// Returns (value, true) on success, (zero, false) otherwise.
func AsTime(v Value) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	case int64:
		return timeFromUnix(x), true
	case int:
		return timeFromUnix(int64(x)), true
	default:
		return time.Time{}, false
	}
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// timeFromUnix treats values past the year ~5138 in seconds as milliseconds.
func timeFromUnix(n int64) time.Time {
	const msThreshold = 100_000_000_000
	if n > msThreshold || n < -msThreshold {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
