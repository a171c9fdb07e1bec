package repair

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing raw date strings. The
// export renders dates a few different ways depending on the field.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Parseable timestamp bounds. Entries outside them (a keyed-in year
// like 3032 shows up in real exports) are treated as unparseable.
const (
	minDateYear = 1677
	maxDateYear = 2262
)

// SafeParseDate parses a raw date string, reporting false for garbage
// or out-of-bounds values instead of failing the whole column.
func SafeParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Year() < minDateYear || t.Year() > maxDateYear {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}
