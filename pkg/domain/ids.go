// Package domain provides typed identifiers so a document ID can never be
// passed where a user ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "beneficiary/pkg/domain-errors"
)

type (
	UserID     uuid.UUID
	DocumentID uuid.UUID
)

// Parse functions are used at trust boundaries (handlers, CLI flags).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	id, err := parseUUID(s, "document ID")
	return DocumentID(id), err
}

// ParseUserIDs parses every element, failing on the first bad one.
func ParseUserIDs(ss []string) ([]UserID, error) {
	out := make([]UserID, 0, len(ss))
	for _, s := range ss {
		id, err := ParseUserID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func NewUserID() UserID         { return UserID(uuid.New()) }
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
