package models

import (
	"time"

	id "beneficiary/pkg/domain"
)

// Attributes read back from storage for validation.
const (
	AttrFirstName  = "firstName"
	AttrMiddleName = "middleName"
	AttrLastName   = "lastName"
	AttrGender     = "gender"
	AttrDOB        = "dob"
	AttrIncome     = "income"
	AttrCaste      = "caste"
)

// StoredAttributes is the order in which stored attributes are validated.
var StoredAttributes = []string{
	AttrFirstName, AttrMiddleName, AttrLastName, AttrGender, AttrDOB, AttrIncome, AttrCaste,
}

// ValidationResult is the corroboration outcome of one stored attribute.
type ValidationResult struct {
	Attribute string   `json:"attribute"`
	Verified  bool     `json:"verified"`
	DocsUsed  []string `json:"docsUsed"`
}

// AllVerified reports whether every result is verified. An empty slice is
// not considered verified.
func AllVerified(results []ValidationResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Verified {
			return false
		}
	}
	return true
}

// ValidationOutcome is what the validator pipeline persists for one person.
type ValidationOutcome struct {
	Results     []ValidationResult
	AllVerified bool
	VerifiedAt  time.Time
}

// StoredProfile is a persisted profile read back for corroboration.
// Attributes keeps StoredAttributes order; NULL columns are nil.
type StoredProfile struct {
	UserID     id.UserID
	Attributes *Profile
}

// NewStoredProfile returns a stored profile with every stored attribute nil.
func NewStoredProfile(userID id.UserID) StoredProfile {
	return StoredProfile{UserID: userID, Attributes: NewProfile(StoredAttributes)}
}
