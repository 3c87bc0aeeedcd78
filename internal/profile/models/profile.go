package models

import (
	"bytes"
	"encoding/json"
	"slices"

	"beneficiary/pkg/jsonvalue"
)

// Profile is an ordered set of profile fields. Every field named at
// construction is always present; unresolved fields hold nil.
type Profile struct {
	fields []string
	values map[string]jsonvalue.Value
}

// NewProfile returns a profile with every field set to nil.
func NewProfile(fields []string) *Profile {
	p := &Profile{
		fields: slices.Clone(fields),
		values: make(map[string]jsonvalue.Value, len(fields)),
	}
	for _, f := range fields {
		p.values[f] = nil
	}
	return p
}

// Set assigns a value. Unknown fields are appended.
func (p *Profile) Set(field string, v jsonvalue.Value) {
	if _, ok := p.values[field]; !ok {
		p.fields = append(p.fields, field)
	}
	p.values[field] = v
}

func (p *Profile) Get(field string) jsonvalue.Value {
	return p.values[field]
}

// Text returns the scalar text of field, false when nil or composite.
func (p *Profile) Text(field string) (string, bool) {
	return jsonvalue.Text(p.values[field])
}

func (p *Profile) Fields() []string {
	return slices.Clone(p.fields)
}

// Unresolved counts nil fields.
func (p *Profile) Unresolved() int {
	n := 0
	for _, f := range p.fields {
		if p.values[f] == nil {
			n++
		}
	}
	return n
}

// Equal compares field order and values.
func (p *Profile) Equal(other *Profile) bool {
	if p == nil || other == nil {
		return p == other
	}
	if !slices.Equal(p.fields, other.fields) {
		return false
	}
	for _, f := range p.fields {
		if !jsonvalue.Equal(p.values[f], other.values[f]) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the profile as an object in field order.
func (p *Profile) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := jsonvalue.Marshal(p.values[f])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Provenance lists, per field, the document types that produced its value.
type Provenance map[string][]string

// BuildResult is the output of one profile build.
type BuildResult struct {
	Profile    *Profile
	Provenance Provenance
}

// Unresolved is the number of fields left nil.
func (r BuildResult) Unresolved() int {
	if r.Profile == nil {
		return 0
	}
	return r.Profile.Unresolved()
}

// Complete reports whether every field resolved.
func (r BuildResult) Complete() bool {
	return r.Profile != nil && r.Unresolved() == 0
}
