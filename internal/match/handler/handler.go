package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	donormodels "bloodlink/internal/donor/models"
	"bloodlink/internal/match/models"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Service is the donor matching surface used by the handlers.
type Service interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.Page, error)
	More(ctx context.Context, sessionID string) (*models.Page, error)
	Details(ctx context.Context, sessionID string, donorID int64) (*donormodels.Donor, error)
	Stop(ctx context.Context, sessionID string) error
}

type Handler struct {
	matches Service
	logger  *slog.Logger
}

func New(matches Service, logger *slog.Logger) *Handler {
	return &Handler{matches: matches, logger: logger}
}

// Register mounts the search session routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/searches", func(r chi.Router) {
		r.Post("/", h.HandleSearch)
		r.Post("/{sessionID}/more", h.HandleMore)
		r.Get("/{sessionID}/donors/{donorID}", h.HandleDetails)
		r.Delete("/{sessionID}", h.HandleStop)
	})
}

// HandleSearch starts a search session and returns its first page.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	page, err := h.matches.Search(ctx, req)
	if err != nil {
		h.writeError(ctx, w, err, "search failed")
		return
	}
	status := http.StatusCreated
	if page.SessionID == "" {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, toPageResponse(page))
}

// HandleMore returns the next page of a session.
func (h *Handler) HandleMore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.matches.More(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(ctx, w, err, "failed to load next page")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPageResponse(page))
}

// HandleDetails returns one donor in full and ends the session.
func (h *Handler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, err := strconv.ParseInt(chi.URLParam(r, "donorID"), 10, 64)
	if err != nil || donorID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "donor id must be a positive integer"))
		return
	}
	donor, err := h.matches.Details(ctx, chi.URLParam(r, "sessionID"), donorID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load donor details")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor.View())
}

// HandleStop ends a session.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.matches.Stop(ctx, chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(ctx, w, err, "failed to end search session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
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

// PageResponse mirrors models.Page with distances rounded to 10 m.
type PageResponse struct {
	SessionID string           `json:"session_id,omitempty"`
	Requester models.Requester `json:"requester"`
	Found     bool             `json:"found"`
	Total     int              `json:"total"`
	From      int              `json:"from"`
	To        int              `json:"to"`
	HasMore   bool             `json:"has_more"`
	Matches   []models.Match   `json:"matches"`
}

func toPageResponse(p *models.Page) PageResponse {
	matches := make([]models.Match, len(p.Matches))
	for i, m := range p.Matches {
		m.DistanceKm = math.Round(m.DistanceKm*100) / 100
		matches[i] = m
	}
	return PageResponse{
		SessionID: p.SessionID,
		Requester: p.Requester,
		Found:     p.Total > 0,
		Total:     p.Total,
		From:      p.From,
		To:        p.To,
		HasMore:   p.HasMore,
		Matches:   matches,
	}
}
