package statement

import (
	"strings"
	"time"
)

// dateFormats are tried in order. The month-first US variants sit before the
// day-first ones for ambiguous inputs; real statements rarely mix both in one
// file so first-match wins is stable per document.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
	"2006/01/02",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"01/02/06",
	"02/01/06",
	"2 January 2006",
}

// ParseDate tries the known statement date formats and returns the date
// truncated to midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func looksDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}
