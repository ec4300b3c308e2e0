package household

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DateLayout is the date-only format used by date fields.
const DateLayout = "2006-01-02"

// ParseNumber parses a locale-agnostic decimal. NaN and infinities are rejected.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "not a number", goerr.V("input", s))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, goerr.New("not a finite number", goerr.V("input", s))
	}
	return f, nil
}

// ParseWhole parses a number that must have no fractional part.
func ParseWhole(s string) (int, error) {
	f, err := ParseNumber(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, goerr.New("not a whole number", goerr.V("input", s))
	}
	return int(f), nil
}

// ParseFlag reads a checkbox value. on, true, 1 and yes are true; off, false,
// 0, no and the empty string are false.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "", "off", "false", "0", "no":
		return false, nil
	}
	return false, goerr.New("not a yes/no value", goerr.V("input", s))
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp. Date-only values
// are midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
