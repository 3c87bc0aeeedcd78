package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"beneficiary/pkg/jsonvalue"
)

// IncomePolicy decides what happens to income strings that are not numbers
// once separators are stripped.
type IncomePolicy string

const (
	// IncomeStrict drops non-numeric income strings.
	IncomeStrict IncomePolicy = "strict"
	// IncomeLenient passes the sanitized string through uncoerced.
	IncomeLenient IncomePolicy = "lenient"
)

// ParseIncomePolicy accepts "strict", "lenient" or empty (strict).
func ParseIncomePolicy(s string) (IncomePolicy, error) {
	switch IncomePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", IncomeStrict:
		return IncomeStrict, nil
	case IncomeLenient:
		return IncomeLenient, nil
	default:
		return "", fmt.Errorf("unknown income policy %q", s)
	}
}

var (
	incomeSeparators = strings.NewReplacer(",", "", " ", "", "'", "")
	plainAmount      = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// SanitizeIncome removes the digit-grouping characters issuers use.
func SanitizeIncome(s string) string {
	return incomeSeparators.Replace(s)
}

// Income returns the transformer for annualIncome under policy.
func Income(policy IncomePolicy) Func {
	return func(in Input) (jsonvalue.Value, error) {
		switch v := in.resolve(in.Field).(type) {
		case jsonvalue.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, rejectf("income is not a number")
			}
			if f < 0 {
				return nil, rejectf("negative income")
			}
			return v, nil
		case jsonvalue.String:
			return incomeFromString(string(v), policy)
		default:
			return nil, nil
		}
	}
}

func incomeFromString(raw string, policy IncomePolicy) (jsonvalue.Value, error) {
	clean := SanitizeIncome(raw)
	if clean == "" {
		return nil, nil
	}
	if plainAmount.MatchString(clean) {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return nil, rejectf("income out of range")
		}
		return jsonvalue.Float(f), nil
	}
	if policy == IncomeLenient {
		if f, err := strconv.ParseFloat(clean, 64); err == nil {
			if f < 0 {
				return nil, rejectf("negative income")
			}
			return jsonvalue.Float(f), nil
		}
		return jsonvalue.String(clean), nil
	}
	return nil, rejectf("income is not a plain amount")
}
