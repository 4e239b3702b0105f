package store

import (
	"context"
	"sync"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/service"
	"bloodlink/pkg/platform/sentinel"
)

// Compile-time assertions that the memory store satisfies the service ports.
var (
	_ service.Store   = (*InMemory)(nil)
	_ service.StoreTx = (*InMemory)(nil)
)

// InMemory keeps donors, donations and history in process memory. Donors are
// handed out as copies so callers cannot mutate stored state without UpdateDonor.
type InMemory struct {
	txMu sync.Mutex // serialises RunInTx
	mu   sync.RWMutex

	donors    map[int64]*models.Donor
	order     []int64
	donations []models.Donation
	history   []models.HistoryEntry

	nextDonorID    int64
	nextDonationID int64
	nextHistoryID  int64
}

// NewInMemory constructs an empty memory store.
func NewInMemory() *InMemory {
	return &InMemory{donors: make(map[int64]*models.Donor)}
}

func (s *InMemory) CreateDonor(_ context.Context, donor *models.Donor) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDonorID++
	stored := donor.Clone()
	stored.ID = s.nextDonorID
	s.donors[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	donor.ID = stored.ID
	return stored.ID, nil
}

func (s *InMemory) FindDonor(_ context.Context, id int64) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donor, ok := s.donors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return donor.Clone(), nil
}

func (s *InMemory) UpdateDonor(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[donor.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.donors[donor.ID] = donor.Clone()
	return nil
}

func (s *InMemory) InsertDonation(_ context.Context, donation *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[donation.DonorID]; !ok {
		return sentinel.ErrNotFound
	}
	s.nextDonationID++
	donation.ID = s.nextDonationID
	s.donations = append(s.donations, *donation)
	return nil
}

func (s *InMemory) AppendHistory(_ context.Context, entry *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[entry.DonorID]; !ok {
		return sentinel.ErrNotFound
	}
	s.nextHistoryID++
	entry.ID = s.nextHistoryID
	s.history = append(s.history, *entry)
	return nil
}

func (s *InMemory) ListActive(_ context.Context) ([]*models.Donor, error) {
	return s.filter(func(d *models.Donor) bool { return d.IsActive }), nil
}

func (s *InMemory) ListReactivationCandidates(_ context.Context) ([]*models.Donor, error) {
	return s.filter(func(d *models.Donor) bool {
		return !d.IsActive && d.TotalDonations < models.MaxLifetimeDonations
	}), nil
}

func (s *InMemory) ReactivateDonor(_ context.Context, seen *models.Donor) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.donors[seen.ID]
	if !ok || seen.IsActive || !stored.SameEligibility(seen) {
		return false, nil
	}
	stored.IsActive = true
	return true, nil
}

// Donations returns the donations recorded for donorID in insertion order.
func (s *InMemory) Donations(_ context.Context, donorID int64) ([]models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Donation
	for _, d := range s.donations {
		if d.DonorID == donorID {
			out = append(out, d)
		}
	}
	return out, nil
}

// History returns the history entries for donorID in insertion order.
func (s *InMemory) History(_ context.Context, donorID int64) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HistoryEntry
	for _, h := range s.history {
		if h.DonorID == donorID {
			out = append(out, h)
		}
	}
	return out, nil
}

// RunInTx serialises fn against other transactions and restores the prior
// state if fn fails, so a failed business operation leaves no partial writes.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context, store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *InMemory) filter(keep func(d *models.Donor) bool) []*models.Donor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Donor, 0, len(s.order))
	for _, id := range s.order {
		if d := s.donors[id]; keep(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

type memSnapshot struct {
	donors         map[int64]*models.Donor
	order          []int64
	donations      int
	history        int
	nextDonorID    int64
	nextDonationID int64
	nextHistoryID  int64
}

func (s *InMemory) snapshot() memSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donors := make(map[int64]*models.Donor, len(s.donors))
	for id, d := range s.donors {
		donors[id] = d.Clone()
	}
	return memSnapshot{
		donors:         donors,
		order:          append([]int64(nil), s.order...),
		donations:      len(s.donations),
		history:        len(s.history),
		nextDonorID:    s.nextDonorID,
		nextDonationID: s.nextDonationID,
		nextHistoryID:  s.nextHistoryID,
	}
}

// restore rewinds to snap. Donations and history are append-only, so
// truncating to the recorded length undoes them.
func (s *InMemory) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donors = snap.donors
	s.order = snap.order
	s.donations = s.donations[:snap.donations]
	s.history = s.history[:snap.history]
	s.nextDonorID = snap.nextDonorID
	s.nextDonationID = snap.nextDonationID
	s.nextHistoryID = snap.nextHistoryID
}
