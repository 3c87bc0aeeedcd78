package transform

import (
	"strings"

	"beneficiary/pkg/jsonvalue"
)

// NameParts is a full name split by position.
type NameParts struct {
	First  string
	Middle string
	Last   string
}

// SplitName splits on whitespace. Three tokens give first, middle and last;
// two give first and last; one gives first only. With more than three tokens
// only the first and last are kept because the middle is ambiguous.
func SplitName(full string) NameParts {
	tokens := strings.Fields(full)
	var p NameParts
	switch n := len(tokens); {
	case n == 0:
	case n == 1:
		p.First = tokens[0]
	case n == 3:
		p.First, p.Middle, p.Last = tokens[0], tokens[1], tokens[2]
	default:
		p.First, p.Last = tokens[0], tokens[n-1]
	}
	return p
}

// Part returns the component of p named by field. fatherName maps to the
// middle token.
func (p NameParts) Part(field string) string {
	switch field {
	case FieldFirstName:
		return p.First
	case FieldMiddleName, FieldFatherName:
		return p.Middle
	case FieldLastName:
		return p.Last
	default:
		return ""
	}
}

// Name resolves the credential's full-name path and returns the positional
// part for the requested name field.
func Name(in Input) (jsonvalue.Value, error) {
	raw, ok := in.resolve(PathName).(jsonvalue.String)
	if !ok {
		return nil, nil
	}
	part := SplitName(string(raw)).Part(in.Field)
	if part == "" {
		return nil, nil
	}
	return jsonvalue.String(part), nil
}
