package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bloodlink/internal/donor/metrics"
	"bloodlink/internal/donor/models"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

const tracerName = "bloodlink/internal/donor/service"

// Audit event names logged for every state change.
const (
	EventDonorRegistered  = "donor_registered"
	EventDonationRecorded = "donation_recorded"
	EventDonationRejected = "donation_rejected"
	EventDonorReactivated = "donor_reactivated"
	EventReactivationRun  = "reactivation_run"
)

// Store is the storage collaborator for donors, donations and history.
type Store interface {
	CreateDonor(ctx context.Context, donor *models.Donor) (int64, error)
	FindDonor(ctx context.Context, id int64) (*models.Donor, error)
	UpdateDonor(ctx context.Context, donor *models.Donor) error
	InsertDonation(ctx context.Context, donation *models.Donation) error
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListActive(ctx context.Context) ([]*models.Donor, error)
	ListReactivationCandidates(ctx context.Context) ([]*models.Donor, error)
	// ReactivateDonor marks the donor active only if its stored eligibility
	// fields still equal seen. It reports false when the row moved on or is gone.
	ReactivateDonor(ctx context.Context, seen *models.Donor) (bool, error)
}

// StoreTx runs fn as one atomic unit against storage. fn must use the ctx it is
// handed so SQL backends can bind their transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// Service enforces donor eligibility: registration, the lifetime cap, the
// cooldown between donations and reactivation once the cooldown is served.
type Service struct {
	store   Store
	tx      StoreTx
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service. Reads outside a transaction go to store; every
// mutation goes through tx.
func New(store Store, tx StoreTx, opts ...Option) *Service {
	s := &Service{store: store, tx: tx, tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active donor with no donations and returns its id.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (int64, error) {
	req.Normalize()
	donor, err := models.NewDonor(req)
	if err != nil {
		return 0, err
	}

	var donorID int64
	err = s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		id, err := store.CreateDonor(ctx, donor)
		if err != nil {
			return err
		}
		donorID = id
		return nil
	})
	if err != nil {
		return 0, translate(err, "failed to register donor")
	}

	s.logAudit(ctx, EventDonorRegistered,
		"donor_id", donorID,
		"blood_group", string(donor.BloodGroup),
	)
	s.metrics.IncrementDonorsRegistered()
	return donorID, nil
}

// GetDonor returns the full donor record.
func (s *Service) GetDonor(ctx context.Context, id int64) (*models.Donor, error) {
	donor, err := s.store.FindDonor(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load donor")
	}
	return donor, nil
}

// RecordDonation appends a donation for donorID on date at location, then moves
// the donor into cooldown. Eligibility failures leave storage untouched.
func (s *Service) RecordDonation(ctx context.Context, donorID int64, date time.Time, location string) (*models.Donor, error) {
	ctx, span := s.tracer.Start(ctx, "donor.RecordDonation",
		trace.WithAttributes(attribute.Int64("donor.id", donorID)))
	defer span.End()

	location = strings.TrimSpace(location)
	if location == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "location is required")
	}
	date = models.DateOf(date)

	var updated *models.Donor
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		donor, err := store.FindDonor(ctx, donorID)
		if err != nil {
			return err
		}
		if err := donor.CanDonate(date); err != nil {
			return err
		}

		if err := store.InsertDonation(ctx, &models.Donation{
			DonorID:      donor.ID,
			DonationDate: date,
			Location:     location,
		}); err != nil {
			return err
		}
		donor.ApplyDonation(date)
		if err := store.UpdateDonor(ctx, donor); err != nil {
			return err
		}
		if err := store.AppendHistory(ctx, &models.HistoryEntry{
			DonorID:    donor.ID,
			Name:       donor.Name,
			Status:     models.HistoryStatusInactive,
			RecordDate: date,
		}); err != nil {
			return err
		}
		updated = donor
		return nil
	})
	if err != nil {
		err = translate(err, "failed to record donation")
		if reason := rejectionReason(err); reason != "" {
			s.logAudit(ctx, EventDonationRejected,
				"donor_id", donorID,
				"reason", reason,
			)
			s.metrics.IncrementDonationRejected(reason)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}

	s.logAudit(ctx, EventDonationRecorded,
		"donor_id", updated.ID,
		"total_donations", updated.TotalDonations,
		"donation_date", models.FormatDate(date),
	)
	s.metrics.IncrementDonationsRecorded()
	return updated, nil
}

// ReactivateEligible returns every inactive, non-retired donor whose cooldown
// has been served as of asOf to active, and reports how many were reactivated.
func (s *Service) ReactivateEligible(ctx context.Context, asOf time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "donor.ReactivateEligible")
	defer span.End()

	asOf = models.DateOf(asOf)
	var reactivated, skipped []int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		reactivated, skipped = reactivated[:0], skipped[:0]
		candidates, err := store.ListReactivationCandidates(ctx)
		if err != nil {
			return err
		}
		for _, donor := range candidates {
			if !donor.DueForReactivation(asOf) {
				continue
			}
			ok, err := store.ReactivateDonor(ctx, donor)
			if err != nil {
				return err
			}
			if !ok {
				skipped = append(skipped, donor.ID)
				continue
			}
			donor.ApplyReactivation()
			if err := store.AppendHistory(ctx, &models.HistoryEntry{
				DonorID:    donor.ID,
				Name:       donor.Name,
				Status:     models.HistoryStatusActive,
				RecordDate: asOf,
			}); err != nil {
				return err
			}
			reactivated = append(reactivated, donor.ID)
		}
		return nil
	})
	if err != nil {
		err = translate(err, "failed to reactivate donors")
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return 0, err
	}

	for _, id := range reactivated {
		s.logAudit(ctx, EventDonorReactivated, "donor_id", id)
	}
	if len(skipped) > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "donors changed during reactivation; skipped",
			"donor_ids", skipped,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.logAudit(ctx, EventReactivationRun,
		"as_of", models.FormatDate(asOf),
		"reactivated", len(reactivated),
	)
	s.metrics.AddReactivations(len(reactivated))
	span.SetAttributes(attribute.Int("donor.reactivated", len(reactivated)))
	return len(reactivated), nil
}

// translate maps store failures onto domain codes. Already-coded errors pass
// through unchanged.
func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donor not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
}

func rejectionReason(err error) string {
	switch {
	case dErrors.HasCode(err, dErrors.CodeLifetimeLimit):
		return metrics.ReasonLifetimeLimit
	case dErrors.HasCode(err, dErrors.CodeCooldown):
		return metrics.ReasonCooldown
	default:
		return ""
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
