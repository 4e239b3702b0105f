package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/donor/models"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Service is the donor registry and eligibility surface used by the handlers.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (int64, error)
	GetDonor(ctx context.Context, id int64) (*models.Donor, error)
	RecordDonation(ctx context.Context, donorID int64, date time.Time, location string) (*models.Donor, error)
	ReactivateEligible(ctx context.Context, asOf time.Time) (int, error)
}

// Handler serves the donor endpoints.
type Handler struct {
	donors Service
	logger *slog.Logger
}

func New(donors Service, logger *slog.Logger) *Handler {
	return &Handler{donors: donors, logger: logger}
}

// Register mounts the donor routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donors", h.HandleRegister)
	r.Post("/donors/reactivations", h.HandleReactivate)
	r.Get("/donors/{id}", h.HandleGetDonor)
	r.Post("/donors/{id}/donations", h.HandleRecordDonation)
}

// HandleRegister registers a donor and returns the assigned id.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := h.donors.Register(ctx, req)
	if err != nil {
		h.writeError(ctx, w, err, "failed to register donor")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{DonorID: id})
}

// HandleGetDonor returns the full donor record.
func (h *Handler) HandleGetDonor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseDonorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	donor, err := h.donors.GetDonor(ctx, id)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load donor")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor.View())
}

// HandleRecordDonation records a donation and returns the updated donor.
func (h *Handler) HandleRecordDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, err := parseDonorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[RecordDonationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	donor, err := h.donors.RecordDonation(ctx, id, req.date, req.Location)
	if err != nil {
		h.writeError(ctx, w, err, "failed to record donation")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, donor.View())
}

// HandleReactivate reactivates every donor whose cooldown has been served.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ReactivateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	asOf := models.DateOf(requestcontext.Now(ctx))
	if req.asOf != nil {
		asOf = *req.asOf
	}

	n, err := h.donors.ReactivateEligible(ctx, asOf)
	if err != nil {
		h.writeError(ctx, w, err, "failed to reactivate donors")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReactivationResponse{
		AsOf:        models.FormatDate(asOf),
		Reactivated: n,
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if h.logger != nil {
		level := slog.LevelWarn
		switch dErrors.CodeOf(err) {
		case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func parseDonorID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "donor id must be a positive integer")
	}
	return id, nil
}
