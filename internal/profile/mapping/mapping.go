// Package mapping loads the field-mapping tables that drive profile building
// and validation.
//
// A Config is loaded once at startup, validated in full, and shared read-only
// by every run. Table order is significant: the builder takes the first
// document type that yields a value, so vcArray.json is read preserving keys.
package mapping

import (
	"maps"
	"slices"
	"strings"
)

// FieldPaths maps a profile field to its dot path inside one document type.
type FieldPaths map[string]string

// FieldPriority lists the document types consulted for a field, best first.
type FieldPriority struct {
	Field    string   `validate:"required"`
	DocTypes []string `validate:"required,min=1,dive,notblank"`
}

// AttributeFiles lists the document files that may corroborate a stored
// profile attribute. Every listed file is tried.
type AttributeFiles struct {
	Attribute string   `validate:"required"`
	Files     []string `validate:"dive,notblank"`
}

// Descriptor describes where one issuer format keeps attribute values inside
// a document file.
type Descriptor struct {
	VCType string            `json:"vcType" validate:"required,oneof=digilocker w3c"`
	Format string            `json:"format" validate:"required,oneof=json"`
	Fields map[string]string `json:"fields" validate:"required,min=1,dive,dotpath"`
}

// DocumentKind is one entry of the document catalog.
type DocumentKind struct {
	Name    string `json:"name" validate:"notblank"`
	Subtype string `json:"documentSubType" validate:"notblank"`
}

// Config is the immutable, fully cross-checked mapping configuration.
type Config struct {
	priority      []FieldPriority
	paths         map[string]FieldPaths
	validation    []AttributeFiles
	descriptors   map[string][]Descriptor
	fieldValues   map[string]map[string][]string
	namePositions map[string]map[string]int
	catalog       []DocumentKind
}

// Fields returns the profile fields in priority-table order.
func (c *Config) Fields() []string {
	out := make([]string, len(c.priority))
	for i, p := range c.priority {
		out[i] = p.Field
	}
	return out
}

// Priority returns a copy of the build priority table.
func (c *Config) Priority() []FieldPriority {
	out := make([]FieldPriority, len(c.priority))
	for i, p := range c.priority {
		out[i] = FieldPriority{Field: p.Field, DocTypes: slices.Clone(p.DocTypes)}
	}
	return out
}

// Paths returns the field paths for docType.
func (c *Config) Paths(docType string) (FieldPaths, bool) {
	p, ok := c.paths[docType]
	if !ok {
		return nil, false
	}
	return maps.Clone(p), true
}

// DocTypes returns every document type that has a path file, sorted.
func (c *Config) DocTypes() []string {
	return slices.Sorted(maps.Keys(c.paths))
}

// ValidationAttributes returns the corroboration table in file order.
func (c *Config) ValidationAttributes() []AttributeFiles {
	out := make([]AttributeFiles, len(c.validation))
	for i, a := range c.validation {
		out[i] = AttributeFiles{Attribute: a.Attribute, Files: slices.Clone(a.Files)}
	}
	return out
}

// Files returns the corroborating files configured for attribute.
func (c *Config) Files(attribute string) ([]string, bool) {
	for _, a := range c.validation {
		if a.Attribute == attribute {
			return slices.Clone(a.Files), true
		}
	}
	return nil, false
}

// Descriptors returns the per-format descriptors for a validator file.
func (c *Config) Descriptors(fileName string) []Descriptor {
	return c.descriptors[fileName]
}

// AcceptedValues returns the credential spellings accepted for a stored
// attribute value. hasSet reports whether attribute uses set membership at
// all; values is nil when the stored value is not a known key. Keys and
// values are lower-cased at load.
func (c *Config) AcceptedValues(attribute, stored string) (values []string, hasSet bool) {
	set, ok := c.fieldValues[attribute]
	if !ok {
		return nil, false
	}
	return set[strings.ToLower(stored)], true
}

// NamePosition returns the token index of a name attribute for docType.
func (c *Config) NamePosition(docType, attribute string) (int, bool) {
	byAttr, ok := c.namePositions[docType]
	if !ok {
		return 0, false
	}
	pos, ok := byAttr[attribute]
	return pos, ok
}

// Catalog returns the known document kinds in file order.
func (c *Config) Catalog() []DocumentKind {
	return slices.Clone(c.catalog)
}

// IsKnownDocument reports whether subtype is in the catalog.
func (c *Config) IsKnownDocument(subtype string) bool {
	return slices.ContainsFunc(c.catalog, func(k DocumentKind) bool { return k.Subtype == subtype })
}
