package transform

import "beneficiary/pkg/jsonvalue"

var romanDigits = map[byte]int{
	'I': 1,
	'V': 5,
	'X': 10,
	'L': 50,
	'C': 100,
	'D': 500,
	'M': 1000,
}

// DecodeRoman decodes an uppercase Roman numeral with subtractive notation.
// It reports false for empty input, any other symbol, or a non-positive sum.
func DecodeRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	for i := 0; i < len(s); i++ {
		cur, ok := romanDigits[s[i]]
		if !ok {
			return 0, false
		}
		next := 0
		if i+1 < len(s) {
			next = romanDigits[s[i+1]]
		}
		if cur < next {
			total -= cur
		} else {
			total += cur
		}
	}
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// Class decodes Roman class numbers. Numbers pass through; strings that are
// not Roman numerals are returned unchanged.
func Class(in Input) (jsonvalue.Value, error) {
	switch v := in.resolve(in.Field).(type) {
	case jsonvalue.Number:
		return v, nil
	case jsonvalue.String:
		if v == "" {
			return nil, nil
		}
		if n, ok := DecodeRoman(string(v)); ok {
			return jsonvalue.Int(int64(n)), nil
		}
		return v, nil
	default:
		return nil, nil
	}
}
