package handler

import (
	"time"

	"beneficiary/internal/profile/models"
	id "beneficiary/pkg/domain"
)

// PopulateResponse reports outcome metadata only; profile values stay in
// the store.
type PopulateResponse struct {
	UserID      string            `json:"user_id"`
	Complete    bool              `json:"complete"`
	Unresolved  int               `json:"unresolved"`
	Provenance  models.Provenance `json:"provenance"`
	CompletedAt string            `json:"completed_at"`
}

type ValidateResponse struct {
	UserID      string                    `json:"user_id"`
	AllVerified bool                      `json:"all_verified"`
	Results     []models.ValidationResult `json:"results"`
	VerifiedAt  string                    `json:"verified_at"`
}

type DocumentType struct {
	Name    string `json:"name"`
	Subtype string `json:"document_sub_type"`
}

type DocumentTypesResponse struct {
	DocumentTypes []DocumentType `json:"document_types"`
}

func toPopulateResponse(o *models.PopulateOutcome) PopulateResponse {
	prov := o.Provenance
	if prov == nil {
		prov = models.Provenance{}
	}
	return PopulateResponse{
		UserID:      o.UserID.String(),
		Complete:    o.Complete,
		Unresolved:  o.Unresolved,
		Provenance:  prov,
		CompletedAt: o.CompletedAt.UTC().Format(time.RFC3339),
	}
}

func toValidateResponse(userID id.UserID, o *models.ValidationOutcome) ValidateResponse {
	results := o.Results
	if results == nil {
		results = []models.ValidationResult{}
	}
	return ValidateResponse{
		UserID:      userID.String(),
		AllVerified: o.AllVerified,
		Results:     results,
		VerifiedAt:  o.VerifiedAt.UTC().Format(time.RFC3339),
	}
}
