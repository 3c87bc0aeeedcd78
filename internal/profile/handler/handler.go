// Package handler exposes operator triggers for the profile pipelines over
// HTTP. Routes are mounted behind the admin middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"beneficiary/internal/profile/mapping"
	"beneficiary/internal/profile/models"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/platform/httputil"
	"beneficiary/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Catalog

// Service runs the pipelines for named persons.
type Service interface {
	PopulatePerson(ctx context.Context, userID id.UserID) (*models.PopulateOutcome, error)
	ValidatePerson(ctx context.Context, userID id.UserID) (*models.ValidationOutcome, error)
	PopulateUsers(ctx context.Context, ids []id.UserID) (models.BatchReport, error)
	ValidateUsers(ctx context.Context, ids []id.UserID) (models.BatchReport, error)
}

// Catalog lists the document kinds the mapping configuration knows.
type Catalog interface {
	Catalog() []mapping.DocumentKind
}

type Handler struct {
	profiles Service
	catalog  Catalog
	logger   *slog.Logger
}

func New(profiles Service, catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		profiles: profiles,
		catalog:  catalog,
		logger:   logger,
	}
}

// Register mounts the profile routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/profiles/populate", h.HandlePopulateBatch)
	r.Post("/admin/profiles/validate", h.HandleValidateBatch)
	r.Post("/admin/profiles/{user_id}/populate", h.HandlePopulate)
	r.Post("/admin/profiles/{user_id}/validate", h.HandleValidate)
	r.Get("/admin/document-types", h.HandleDocumentTypes)
}

// HandlePopulate builds and persists one person's profile synchronously.
func (h *Handler) HandlePopulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.profiles.PopulatePerson(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "populate trigger failed",
			"request_id", requestID,
			"actor", requestcontext.Actor(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "populate triggered",
		"request_id", requestID,
		"actor", requestcontext.Actor(ctx),
		"user_id", userID.String(),
		"complete", outcome.Complete,
	)
	httputil.WriteJSON(w, http.StatusOK, toPopulateResponse(outcome))
}

// HandleValidate corroborates one person's stored profile synchronously.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.profiles.ValidatePerson(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "validate trigger failed",
			"request_id", requestID,
			"actor", requestcontext.Actor(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "validate triggered",
		"request_id", requestID,
		"actor", requestcontext.Actor(ctx),
		"user_id", userID.String(),
		"all_verified", outcome.AllVerified,
	)
	httputil.WriteJSON(w, http.StatusOK, toValidateResponse(userID, outcome))
}

// HandlePopulateBatch runs populate for the listed persons.
func (h *Handler) HandlePopulateBatch(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, h.profiles.PopulateUsers)
}

// HandleValidateBatch runs validate for the listed persons.
func (h *Handler) HandleValidateBatch(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, h.profiles.ValidateUsers)
}

// handleBatch answers 200 with the report even when some persons failed;
// per-person errors are only logged.
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request, run func(context.Context, []id.UserID) (models.BatchReport, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	ids, err := id.ParseUserIDs(req.UserIDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := run(ctx, ids)
	if err != nil {
		h.logger.WarnContext(ctx, "batch trigger finished with failures",
			"request_id", requestID,
			"actor", requestcontext.Actor(ctx),
			"pipeline", report.Pipeline,
			"failed", report.Failed,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleDocumentTypes lists the document catalog.
func (h *Handler) HandleDocumentTypes(w http.ResponseWriter, _ *http.Request) {
	kinds := h.catalog.Catalog()
	resp := DocumentTypesResponse{DocumentTypes: make([]DocumentType, 0, len(kinds))}
	for _, k := range kinds {
		resp.DocumentTypes = append(resp.DocumentTypes, DocumentType{Name: k.Name, Subtype: k.Subtype})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
