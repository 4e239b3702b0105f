package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	donormodels "bloodlink/internal/donor/models"
	"bloodlink/internal/match/index"
	"bloodlink/internal/match/metrics"
	"bloodlink/internal/match/models"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

const (
	tracerName = "bloodlink/internal/match/service"

	// DefaultSessionTTL bounds how long a caller may keep paging.
	DefaultSessionTTL = 15 * time.Minute
)

const (
	EventSearchPerformed = "search_performed"
	EventSessionEnded    = "search_session_ended"
)

// DonorReader is the read side of donor storage used for matching.
type DonorReader interface {
	ListActive(ctx context.Context) ([]*donormodels.Donor, error)
	FindDonor(ctx context.Context, id int64) (*donormodels.Donor, error)
}

// SessionStore persists search sessions between page requests.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, id string) (*models.Session, error)
	// Update applies fn to the stored session atomically with respect to other
	// updates of the same session.
	Update(ctx context.Context, id string, fn func(*models.Session) error) error
	Delete(ctx context.Context, id string) error
}

// Service finds active donors of a blood group and pages through them by
// distance from the requester.
type Service struct {
	donors     DonorReader
	sessions   SessionStore
	sessionTTL time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	newID      func() string
}

type Option func(*Service)

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

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithIDGenerator overrides how session ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(donors DonorReader, sessions SessionStore, opts ...Option) *Service {
	s := &Service{
		donors:     donors,
		sessions:   sessions,
		sessionTTL: DefaultSessionTTL,
		tracer:     otel.Tracer(tracerName),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rank returns the donors of group ordered by ascending distance from origin.
// Equal distances keep the order donors were supplied in.
func Rank(donors []*donormodels.Donor, group donormodels.BloodGroup, origin geo.Point) []models.Match {
	candidates := index.Build(donors).Lookup(group)
	matches := make([]models.Match, 0, len(candidates))
	for _, d := range candidates {
		matches = append(matches, models.Match{
			DonorID:    d.ID,
			Name:       d.Name,
			Location:   d.Location,
			State:      d.State,
			BloodGroup: d.BloodGroup,
			DistanceKm: origin.DistanceTo(geo.Point{Latitude: d.Latitude, Longitude: d.Longitude}),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})
	return matches
}

// Search ranks every active donor of the requested group and returns the
// first page. An empty result is not an error; it carries no session.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) (*models.Page, error) {
	ctx, span := s.tracer.Start(ctx, "match.Search")
	defer span.End()
	start := time.Now()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	requester := models.Requester{
		Location:   req.Location,
		State:      req.State,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		BloodGroup: donormodels.BloodGroup(req.BloodGroup),
	}
	span.SetAttributes(attribute.String("match.blood_group", string(requester.BloodGroup)))

	active, err := s.donors.ListActive(ctx)
	if err != nil {
		err = translate(err, "failed to load active donors")
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	matches := Rank(active, requester.BloodGroup, geo.Point{Latitude: requester.Latitude, Longitude: requester.Longitude})
	s.metrics.ObserveSearch(start, len(matches))
	span.SetAttributes(attribute.Int("match.total", len(matches)))

	if len(matches) == 0 {
		s.logAudit(ctx, EventSearchPerformed,
			"blood_group", string(requester.BloodGroup),
			"matches", 0,
		)
		return &models.Page{Requester: requester, Matches: []models.Match{}}, nil
	}

	now := requestcontext.Now(ctx)
	session := &models.Session{
		ID:        s.newID(),
		Requester: requester,
		Matches:   matches,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	page := session.Advance()
	if err := s.sessions.Save(ctx, session); err != nil {
		err = translateSession(err, "failed to save search session")
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	s.metrics.IncrementSessionsStarted()
	s.metrics.IncrementPagesServed()
	s.logAudit(ctx, EventSearchPerformed,
		"session_id", session.ID,
		"blood_group", string(requester.BloodGroup),
		"matches", len(matches),
	)
	return &page, nil
}

// More returns the page after the ones already shown. Once every match has
// been shown the page is empty with HasMore false.
func (s *Service) More(ctx context.Context, sessionID string) (*models.Page, error) {
	var page models.Page
	err := s.sessions.Update(ctx, sessionID, func(session *models.Session) error {
		page = session.Advance()
		return nil
	})
	if err != nil {
		return nil, translateSession(err, "failed to advance search session")
	}
	s.metrics.IncrementPagesServed()
	return &page, nil
}

// Details returns the full record of donorID and ends the session. Any donor
// id may be requested, as with a lookup by id outside a search.
func (s *Service) Details(ctx context.Context, sessionID string, donorID int64) (*donormodels.Donor, error) {
	if _, err := s.sessions.Find(ctx, sessionID); err != nil {
		return nil, translateSession(err, "failed to load search session")
	}
	donor, err := s.donors.FindDonor(ctx, donorID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, translate(err, "failed to load donor")
	}
	s.end(ctx, sessionID, metrics.EndDetails)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
	}
	return donor, nil
}

// Stop ends the session without further output.
func (s *Service) Stop(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return translateSession(err, "failed to end search session")
	}
	s.metrics.IncrementSessionsEnded(metrics.EndStopped)
	s.logAudit(ctx, EventSessionEnded, "session_id", sessionID, "reason", metrics.EndStopped)
	return nil
}

func (s *Service) end(ctx context.Context, sessionID, reason string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to delete search session",
				"session_id", sessionID,
				"error", err,
			)
		}
		return
	}
	s.metrics.IncrementSessionsEnded(reason)
	s.logAudit(ctx, EventSessionEnded, "session_id", sessionID, "reason", reason)
}

func translateSession(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "search session not found or expired")
	}
	return translate(err, msg)
}

func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "search session changed concurrently; retry")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
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
