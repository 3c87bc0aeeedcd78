// Package transform holds the per-field value transformers applied while
// building a profile from credentials.
//
// Transformers are pure functions of (credential, field, paths). A transformer
// reports "no value" by returning nil; it returns an error wrapping
// ErrRejected when the source value exists but is unusable, and any other
// error for unexpected failures.
package transform

import (
	"errors"
	"fmt"

	"beneficiary/internal/profile/domain/credential"
	"beneficiary/pkg/jsonvalue"
)

// Profile fields with dedicated transformers.
const (
	FieldFirstName         = "firstName"
	FieldMiddleName        = "middleName"
	FieldLastName          = "lastName"
	FieldFatherName        = "fatherName"
	FieldGender            = "gender"
	FieldClass             = "class"
	FieldAadhaar           = "aadhaar"
	FieldDOB               = "dob"
	FieldAnnualIncome      = "annualIncome"
	FieldPreviousYearMarks = "previousYearMarks"
)

// PathName is the path key that holds a full name for the name fields.
const PathName = "name"

// ErrRejected marks a present but unusable source value.
var ErrRejected = errors.New("value rejected")

func rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// Input is what every transformer receives.
type Input struct {
	Credential *credential.Credential
	Field      string
	// Paths is the field-to-path map configured for the credential's doc type.
	Paths map[string]string
}

func (in Input) resolve(key string) jsonvalue.Value {
	if in.Credential == nil {
		return nil
	}
	return in.Credential.Resolve(in.Paths[key])
}

// Func transforms a resolved credential value into a profile value.
type Func func(in Input) (jsonvalue.Value, error)

// Encrypter is the cipher collaborator used for sensitive fields.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

type options struct {
	incomePolicy IncomePolicy
}

// Option configures a Registry.
type Option func(*options)

// WithIncomePolicy selects how non-numeric income strings are handled.
func WithIncomePolicy(p IncomePolicy) Option {
	return func(o *options) {
		o.incomePolicy = p
	}
}

// Registry dispatches fields to transformers, falling back to plain path
// resolution for fields it does not know.
type Registry struct {
	funcs    map[string]Func
	fallback Func
}

// NewRegistry returns a registry with the standard transformers installed.
func NewRegistry(enc Encrypter, opts ...Option) *Registry {
	o := options{incomePolicy: IncomeStrict}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		funcs:    make(map[string]Func),
		fallback: Default,
	}
	for _, f := range []string{FieldFirstName, FieldMiddleName, FieldLastName, FieldFatherName} {
		r.Register(f, Name)
	}
	r.Register(FieldGender, Gender)
	r.Register(FieldClass, Class)
	r.Register(FieldAadhaar, Sensitive(enc))
	r.Register(FieldDOB, DateOfBirth)
	r.Register(FieldAnnualIncome, Income(o.incomePolicy))
	r.Register(FieldPreviousYearMarks, Marks)
	return r
}

// Register installs or replaces the transformer for field.
func (r *Registry) Register(field string, fn Func) {
	r.funcs[field] = fn
}

// Lookup returns the transformer for field, or the fallback.
func (r *Registry) Lookup(field string) Func {
	if fn, ok := r.funcs[field]; ok {
		return fn
	}
	return r.fallback
}

// Apply runs the transformer for in.Field.
func (r *Registry) Apply(in Input) (jsonvalue.Value, error) {
	return r.Lookup(in.Field)(in)
}

// Default returns the resolved value for scalar leaves. Booleans are rendered
// as strings since profile values are strings or numbers.
func Default(in Input) (jsonvalue.Value, error) {
	switch v := in.resolve(in.Field).(type) {
	case jsonvalue.String, jsonvalue.Number:
		return v, nil
	case jsonvalue.Bool:
		s, _ := jsonvalue.Text(v)
		return jsonvalue.String(s), nil
	default:
		return nil, nil
	}
}
