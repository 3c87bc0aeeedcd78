package models

import (
	"time"

	id "beneficiary/pkg/domain"
)

// Document is an uploaded credential as stored in user_docs. DocData holds
// ciphertext; nothing in this package decrypts it.
type Document struct {
	ID           id.DocumentID
	UserID       id.UserID
	DocType      string
	DocSubtype   string
	DocName      string
	ImportedFrom string
	DocDatatype  string
	DocData      string
	Verified     bool
	UploadedAt   time.Time
}
