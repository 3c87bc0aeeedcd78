package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	"beneficiary/internal/profile/domain/transform"
	"beneficiary/internal/profile/models"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/jsonvalue"
)

// Profile fields that only land on user_info.
const (
	fieldCaste       = "caste"
	fieldStudentType = "studentType"
	fieldState       = "state"
)

// populateOutcome splits a built profile into the users and user_info
// writes. Numeric columns hold NULL when the built value is not a number.
func populateOutcome(userID id.UserID, res models.BuildResult, at time.Time) models.PopulateOutcome {
	p := res.Profile
	dob := textOf(p, transform.FieldDOB)
	return models.PopulateOutcome{
		UserID: userID,
		Names: models.UserNames{
			FirstName:  textOf(p, transform.FieldFirstName),
			MiddleName: textOf(p, transform.FieldMiddleName),
			LastName:   textOf(p, transform.FieldLastName),
			DOB:        dob,
		},
		Info: models.UserInfo{
			UserID:            userID,
			FatherName:        textOf(p, transform.FieldFatherName),
			Gender:            textOf(p, transform.FieldGender),
			Caste:             textOf(p, fieldCaste),
			Aadhaar:           textOf(p, transform.FieldAadhaar),
			AnnualIncome:      floatOf(p, transform.FieldAnnualIncome),
			Class:             intOf(p, transform.FieldClass),
			StudentType:       textOf(p, fieldStudentType),
			PreviousYearMarks: textOf(p, transform.FieldPreviousYearMarks),
			DOB:               dob,
			State:             textOf(p, fieldState),
		},
		Complete:    res.Complete(),
		Provenance:  res.Provenance,
		Unresolved:  res.Unresolved(),
		CompletedAt: at,
	}
}

func textOf(p *models.Profile, field string) *string {
	s, ok := p.Text(field)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// floatOf reads a Number, or a String holding a plain decimal such as the
// "10" a class transformer passes through. Anything else is NULL.
func floatOf(p *models.Profile, field string) *float64 {
	var raw string
	switch v := p.Get(field).(type) {
	case jsonvalue.Number:
		raw = string(v)
	case jsonvalue.String:
		raw = strings.TrimSpace(string(v))
	default:
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func intOf(p *models.Profile, field string) *int {
	f := floatOf(p, field)
	if f == nil || *f != math.Trunc(*f) || *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil
	}
	i := int(*f)
	return &i
}
