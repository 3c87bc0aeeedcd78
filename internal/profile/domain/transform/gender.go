package transform

import "beneficiary/pkg/jsonvalue"

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// NormalizeGender maps the issuer spellings M/Male and F/Female to the
// canonical lowercase values. Matching is case-sensitive.
func NormalizeGender(raw string) (string, bool) {
	switch raw {
	case "M", "Male":
		return GenderMale, true
	case "F", "Female":
		return GenderFemale, true
	default:
		return "", false
	}
}

// Gender transforms the resolved gender marker.
func Gender(in Input) (jsonvalue.Value, error) {
	raw, ok := in.resolve(in.Field).(jsonvalue.String)
	if !ok {
		return nil, nil
	}
	g, ok := NormalizeGender(string(raw))
	if !ok {
		return nil, nil
	}
	return jsonvalue.String(g), nil
}
