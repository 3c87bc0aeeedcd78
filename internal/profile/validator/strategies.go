package validator

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"beneficiary/internal/profile/domain/credential"
	"beneficiary/internal/profile/domain/transform"
	"beneficiary/internal/profile/models"
	"beneficiary/pkg/jsonvalue"
)

// compare picks the first applicable strategy: set membership, date
// equivalence, name position, gender, then loose equality.
func (v *Validator) compare(attr string, stored, found jsonvalue.Value, c *credential.Credential) bool {
	storedText, ok := jsonvalue.Text(stored)
	if !ok {
		return false
	}
	foundText, ok := jsonvalue.Text(found)
	if !ok {
		return false
	}

	if accepted, hasSet := v.cfg.AcceptedValues(attr, strings.TrimSpace(storedText)); hasSet {
		return slices.Contains(accepted, strings.ToLower(strings.TrimSpace(foundText)))
	}

	switch {
	case attr == models.AttrDOB:
		return sameDate(storedText, foundText)
	case usesFullName(attr, c):
		pos, ok := v.cfg.NamePosition(c.DocType(), attr)
		if !ok {
			return false
		}
		return nameAt(foundText, pos) == strings.TrimSpace(storedText)
	case attr == models.AttrGender:
		return sameGender(storedText, foundText)
	default:
		return looseEqual(storedText, foundText)
	}
}

type datePattern struct {
	re       *regexp.Regexp
	dayFirst bool
}

// Day-first patterns come first so 05-06-2024 reads as 5 June.
var datePatterns = []datePattern{
	{re: regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`), dayFirst: true},
	{re: regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)},
	{re: regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`), dayFirst: true},
	{re: regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})`)},
}

// standardDate extracts the first recognised date in s as yyyy-MM-dd.
func standardDate(s string) (string, bool) {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if p.dayFirst {
			return m[3] + "-" + m[2] + "-" + m[1], true
		}
		return m[1] + "-" + m[2] + "-" + m[3], true
	}
	return "", false
}

func sameDate(stored, found string) bool {
	d, ok := standardDate(found)
	if !ok {
		return false
	}
	return d == strings.TrimSpace(stored)
}

// nameAt returns the whitespace-separated token at pos, or "" when out of
// range.
func nameAt(full string, pos int) string {
	tokens := strings.Fields(full)
	if pos < 0 || pos >= len(tokens) {
		return ""
	}
	return tokens[pos]
}

func canonicalGender(s string) string {
	s = strings.TrimSpace(s)
	if g, ok := transform.NormalizeGender(s); ok {
		return g
	}
	return strings.ToLower(s)
}

// sameGender compares after mapping issuer spellings, ignoring case.
func sameGender(stored, found string) bool {
	a, b := canonicalGender(stored), canonicalGender(found)
	return a != "" && a == b
}

// looseEqual compares numerically when both sides are numbers, otherwise as
// trimmed text.
func looseEqual(stored, found string) bool {
	stored, found = strings.TrimSpace(stored), strings.TrimSpace(found)
	sf, serr := strconv.ParseFloat(stored, 64)
	ff, ferr := strconv.ParseFloat(found, 64)
	if serr == nil && ferr == nil {
		return sf == ff
	}
	return stored == found
}
