package handler

import (
	"beneficiary/pkg/platform/strings"
	"beneficiary/pkg/validation"
)

// BatchRequest names the persons of an operator-triggered batch, at most
// 100 per request.
type BatchRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=100,dive,notblank"`
}

// Normalize trims and lowercases IDs, dropping blanks and duplicates.
func (r *BatchRequest) Normalize() {
	if r.UserIDs != nil {
		r.UserIDs = strings.DedupeAndTrimLower(r.UserIDs)
	}
}

func (r *BatchRequest) Validate() error {
	return validation.Validate(r)
}
