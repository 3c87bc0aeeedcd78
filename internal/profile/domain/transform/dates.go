package transform

import (
	"strings"
	"time"

	"beneficiary/pkg/jsonvalue"
)

// ISODate is the canonical profile date layout.
const ISODate = "2006-01-02"

// dateLayouts are tried in order; the first that parses wins. Day-first is
// tried before month-first so 05-06-2024 reads as 5 June.
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"1-2-2006",
	"2006/1/2",
	"2/1/2006",
	"1/2/2006",
}

// ParseDate tries each supported layout in order.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate reformats s as yyyy-MM-dd.
func NormalizeDate(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(ISODate), true
}

// DateOfBirth normalizes the resolved date string.
func DateOfBirth(in Input) (jsonvalue.Value, error) {
	raw, ok := in.resolve(in.Field).(jsonvalue.String)
	if !ok || raw == "" {
		return nil, nil
	}
	d, ok := NormalizeDate(string(raw))
	if !ok {
		return nil, nil
	}
	return jsonvalue.String(d), nil
}
