// Package credential models a decrypted, parsed verifiable-credential
// document as seen by the reconciliation engine.
//
// Domain Purity: no I/O, no context.Context, no clock. Credentials are built
// per run by the normalizer and never persisted.
package credential

import (
	"errors"
	"strings"

	id "beneficiary/pkg/domain"
	"beneficiary/pkg/jsonvalue"
)

// VCType identifies the issuer family of a credential.
type VCType string

const (
	VCTypeDigilocker VCType = "digilocker"
	VCTypeW3C        VCType = "w3c"
)

// Format is the serialization of the decrypted payload.
type Format string

const FormatJSON Format = "json"

// SourceDigilocker is the imported_from marker for Digilocker uploads.
const SourceDigilocker = "Digilocker"

// VCTypeFromSource maps a document's imported_from marker to its VC type.
func VCTypeFromSource(importedFrom string) VCType {
	if strings.EqualFold(strings.TrimSpace(importedFrom), SourceDigilocker) {
		return VCTypeDigilocker
	}
	return VCTypeW3C
}

func (t VCType) IsValid() bool {
	return t == VCTypeDigilocker || t == VCTypeW3C
}

var (
	errMissingDocType = errors.New("doc_type is required")
	errInvalidVCType  = errors.New("vc_type must be digilocker or w3c")
	errInvalidFormat  = errors.New("unsupported document format")
	errNilContent     = errors.New("content cannot be null")
)

// Credential is immutable once constructed.
//
// Invariants:
//   - docType is never empty
//   - vcType is digilocker or w3c
//   - content is a non-null JSON value
type Credential struct {
	documentID id.DocumentID
	docType    string
	vcType     VCType
	format     Format
	content    jsonvalue.Value
}

// New validates and constructs a Credential.
func New(documentID id.DocumentID, docType string, vcType VCType, format Format, content jsonvalue.Value) (*Credential, error) {
	if strings.TrimSpace(docType) == "" {
		return nil, errMissingDocType
	}
	if !vcType.IsValid() {
		return nil, errInvalidVCType
	}
	if format != FormatJSON {
		return nil, errInvalidFormat
	}
	if content == nil {
		return nil, errNilContent
	}
	return &Credential{
		documentID: documentID,
		docType:    docType,
		vcType:     vcType,
		format:     format,
		content:    content,
	}, nil
}

func (c *Credential) DocumentID() id.DocumentID { return c.documentID }
func (c *Credential) DocType() string           { return c.docType }
func (c *Credential) VCType() VCType            { return c.vcType }
func (c *Credential) Format() Format            { return c.format }
func (c *Credential) Content() jsonvalue.Value  { return c.content }

// Resolve looks up a dot path inside this credential's content.
func (c *Credential) Resolve(path string) jsonvalue.Value {
	return Resolve(c.content, path)
}

// Matches reports whether the credential has the given type triple.
func (c *Credential) Matches(vcType VCType, format Format, docType string) bool {
	return c.vcType == vcType && c.format == format && c.docType == docType
}

// FirstOfType returns the first credential in creds with docType, or nil.
func FirstOfType(creds []*Credential, docType string) *Credential {
	for _, c := range creds {
		if c.docType == docType {
			return c
		}
	}
	return nil
}
