package models

import (
	"time"

	id "beneficiary/pkg/domain"
)

// UserNames is the subset of the users row the builder writes.
type UserNames struct {
	FirstName  *string
	MiddleName *string
	LastName   *string
	DOB        *string
}

// UserInfo is the subset of user_info the builder writes. Nil pointers store
// NULL.
type UserInfo struct {
	UserID            id.UserID
	FatherName        *string
	Gender            *string
	Caste             *string
	Aadhaar           *string
	AnnualIncome      *float64
	Class             *int
	StudentType       *string
	PreviousYearMarks *string
	DOB               *string
	State             *string
}

// PopulateOutcome is everything one successful build persists.
type PopulateOutcome struct {
	UserID      id.UserID
	Names       UserNames
	Info        UserInfo
	Complete    bool
	Provenance  Provenance
	Unresolved  int
	CompletedAt time.Time
}
