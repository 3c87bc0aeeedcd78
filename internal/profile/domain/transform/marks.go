package transform

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"beneficiary/pkg/jsonvalue"
)

// leadingNumber matches the decimal prefix of a string such as "85 marks".
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// FormatPercentage renders f with exactly two decimals.
func FormatPercentage(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Marks formats the previous year's percentage as a two-decimal string.
// Only the leading number of a string is read, so "72%" and "85 marks"
// are both accepted.
func Marks(in Input) (jsonvalue.Value, error) {
	var f float64
	switch v := in.resolve(in.Field).(type) {
	case jsonvalue.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, nil
		}
		f = parsed
	case jsonvalue.String:
		parsed, ok := parseLeadingFloat(string(v))
		if !ok {
			return nil, nil
		}
		f = parsed
	default:
		return nil, nil
	}
	return jsonvalue.String(FormatPercentage(f)), nil
}

func parseLeadingFloat(s string) (float64, bool) {
	prefix := leadingNumber.FindString(strings.TrimSpace(s))
	if prefix == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
