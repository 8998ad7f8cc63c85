package ingest

// values.go normalizes raw cells from statistical agency responses.
//
// Agency files carry artifacts the loader must not see:
//   - a UTF-8 BOM and, occasionally, invalid UTF-8 from proxies
//   - Eurostat observation flags appended to values ("2938590.0 p")
//   - ":" for a missing observation, optionally flagged (": c")
//   - periods as "2024", "2024-03" or "2024-Q1"

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cleanBody strips a leading BOM and replaces invalid UTF-8 with '?'.
func cleanBody(b []byte) []byte {
	b = bytes.TrimPrefix(b, utf8BOM)
	return bytes.ToValidUTF8(b, []byte("?"))
}

// numericRegex validates a number after flags are removed.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// parseObservation parses an observation value. The second result is false
// for missing, flagged-missing or malformed values.
func parseObservation(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, ":") {
		return 0, false
	}
	// Eurostat appends status flags after a space: "123.4 p", "56 be".
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var quarterRegex = regexp.MustCompile(`^(\d{4})-?Q([1-4])$`)

// periodLayouts are tried in order for non-quarterly periods.
var periodLayouts = []string{"2006-01-02", "2006-01", "2006"}

// parsePeriod converts an SDMX time period to the first day it covers.
func parsePeriod(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if m := quarterRegex.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized period %q", s)
}
