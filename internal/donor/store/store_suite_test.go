package store

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/service"
	"bloodlink/pkg/platform/sentinel"
)

// inspectable is the read surface every backend exposes beyond service.Store.
type inspectable interface {
	service.Store
	Donations(ctx context.Context, donorID int64) ([]models.Donation, error)
	History(ctx context.Context, donorID int64) ([]models.HistoryEntry, error)
}

// backendSuite is shared by every donor store implementation.
type backendSuite struct {
	suite.Suite
	newBackend func() (inspectable, service.StoreTx)

	store inspectable
	tx    service.StoreTx
}

func (s *backendSuite) SetupTest() {
	s.store, s.tx = s.newBackend()
}

func day(v string) time.Time {
	t, err := time.Parse(models.DateLayout, v)
	if err != nil {
		panic(err)
	}
	return t
}

func newDonor(name string, group models.BloodGroup) *models.Donor {
	return &models.Donor{
		Name:       name,
		Age:        34,
		Gender:     models.GenderMale,
		Location:   "Chennai",
		State:      "Tamil Nadu",
		BloodGroup: group,
		IsActive:   true,
		Latitude:   13.0827,
		Longitude:  80.2707,
	}
}

func (s *backendSuite) create(d *models.Donor) int64 {
	id, err := s.store.CreateDonor(context.Background(), d)
	s.Require().NoError(err)
	return id
}

func (s *backendSuite) TestCreateAndFind() {
	ctx := context.Background()

	s.Run("assigns increasing ids and round-trips every field", func() {
		first := s.create(newDonor("Ravi", models.BloodGroupOPos))
		second := s.create(newDonor("Meena", models.BloodGroupABNeg))
		s.Greater(second, first)

		got, err := s.store.FindDonor(ctx, second)
		s.Require().NoError(err)
		want := newDonor("Meena", models.BloodGroupABNeg)
		want.ID = second
		s.Equal(want, got)
	})

	s.Run("missing donor is ErrNotFound", func() {
		_, err := s.store.FindDonor(ctx, 987654)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *backendSuite) TestUpdateDonor() {
	ctx := context.Background()

	s.Run("persists eligibility fields", func() {
		id := s.create(newDonor("Kiran", models.BloodGroupBPos))
		d, err := s.store.FindDonor(ctx, id)
		s.Require().NoError(err)

		d.ApplyDonation(day("2024-03-01"))
		s.Require().NoError(s.store.UpdateDonor(ctx, d))

		got, err := s.store.FindDonor(ctx, id)
		s.Require().NoError(err)
		s.Equal(1, got.TotalDonations)
		s.False(got.IsActive)
		s.Require().NotNil(got.LastDonation)
		s.Equal("2024-03-01", models.FormatDate(*got.LastDonation))
	})

	s.Run("missing donor is ErrNotFound", func() {
		d := newDonor("Ghost", models.BloodGroupOPos)
		d.ID = 424242
		s.Require().ErrorIs(s.store.UpdateDonor(ctx, d), sentinel.ErrNotFound)
	})
}

func (s *backendSuite) TestDonationsAndHistory() {
	ctx := context.Background()
	id := s.create(newDonor("Latha", models.BloodGroupANeg))

	first := &models.Donation{DonorID: id, DonationDate: day("2024-01-10"), Location: "Adyar"}
	second := &models.Donation{DonorID: id, DonationDate: day("2024-05-02"), Location: "Velachery"}
	s.Require().NoError(s.store.InsertDonation(ctx, first))
	s.Require().NoError(s.store.InsertDonation(ctx, second))
	s.NotZero(first.ID)
	s.Greater(second.ID, first.ID)

	entry := &models.HistoryEntry{DonorID: id, Name: "Latha", Status: models.HistoryStatusInactive, RecordDate: day("2024-01-10")}
	s.Require().NoError(s.store.AppendHistory(ctx, entry))
	s.NotZero(entry.ID)

	donations, err := s.store.Donations(ctx, id)
	s.Require().NoError(err)
	s.Equal([]models.Donation{*first, *second}, donations)

	history, err := s.store.History(ctx, id)
	s.Require().NoError(err)
	s.Equal([]models.HistoryEntry{*entry}, history)
}

func (s *backendSuite) TestListings() {
	ctx := context.Background()

	active := s.create(newDonor("Active", models.BloodGroupOPos))

	cooling := newDonor("Cooling", models.BloodGroupOPos)
	cooling.TotalDonations = 2
	cooling.IsActive = false
	last := day("2024-01-01")
	cooling.LastDonation = &last
	coolingID := s.create(cooling)

	retired := newDonor("Retired", models.BloodGroupONeg)
	retired.TotalDonations = models.MaxLifetimeDonations
	retired.IsActive = false
	retired.LastDonation = &last
	s.create(retired)

	activeDonors, err := s.store.ListActive(ctx)
	s.Require().NoError(err)
	s.Require().Len(activeDonors, 1)
	s.Equal(active, activeDonors[0].ID)

	candidates, err := s.store.ListReactivationCandidates(ctx)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal(coolingID, candidates[0].ID)
	s.Require().NotNil(candidates[0].LastDonation)
	s.Equal("2024-01-01", models.FormatDate(*candidates[0].LastDonation))
}

// TestReactivateDonorAfterConcurrentDonation replays a reactivation run that
// listed a donor just before a donation on that donor committed.
func (s *backendSuite) TestReactivateDonorAfterConcurrentDonation() {
	ctx := context.Background()

	cooling := newDonor("Cooling", models.BloodGroupBPos)
	cooling.TotalDonations = 1
	cooling.IsActive = false
	last := day("2024-01-01")
	cooling.LastDonation = &last
	id := s.create(cooling)

	candidates, err := s.store.ListReactivationCandidates(ctx)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	stale := candidates[0]

	_, err = service.New(s.store, s.tx).RecordDonation(ctx, id, day("2024-04-05"), "Apollo")
	s.Require().NoError(err)

	ok, err := s.store.ReactivateDonor(ctx, stale)
	s.Require().NoError(err)
	s.False(ok)

	got, err := s.store.FindDonor(ctx, id)
	s.Require().NoError(err)
	s.Equal(2, got.TotalDonations)
	s.False(got.IsActive)
	s.Require().NotNil(got.LastDonation)
	s.Equal("2024-04-05", models.FormatDate(*got.LastDonation))

	ok, err = s.store.ReactivateDonor(ctx, got)
	s.Require().NoError(err)
	s.True(ok)

	got, err = s.store.FindDonor(ctx, id)
	s.Require().NoError(err)
	s.True(got.IsActive)
	s.Equal(2, got.TotalDonations)
}

func (s *backendSuite) TestReactivateDonorRefusesActiveAndMissing() {
	ctx := context.Background()
	id := s.create(newDonor("Active", models.BloodGroupOPos))

	active, err := s.store.FindDonor(ctx, id)
	s.Require().NoError(err)
	ok, err := s.store.ReactivateDonor(ctx, active)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.store.ReactivateDonor(ctx, &models.Donor{ID: 424242})
	s.Require().NoError(err)
	s.False(ok)
}

func (s *backendSuite) TestRunInTx() {
	ctx := context.Background()

	s.Run("commits when fn succeeds", func() {
		var id int64
		err := s.tx.RunInTx(ctx, func(ctx context.Context, store service.Store) error {
			var err error
			id, err = store.CreateDonor(ctx, newDonor("Committed", models.BloodGroupAPos))
			return err
		})
		s.Require().NoError(err)

		_, err = s.store.FindDonor(ctx, id)
		s.NoError(err)
	})

	s.Run("rolls back every write when fn fails", func() {
		boom := errors.New("boom")
		existing := s.create(newDonor("Existing", models.BloodGroupAPos))

		var created int64
		err := s.tx.RunInTx(ctx, func(ctx context.Context, store service.Store) error {
			var err error
			created, err = store.CreateDonor(ctx, newDonor("Doomed", models.BloodGroupAPos))
			if err != nil {
				return err
			}
			d, err := store.FindDonor(ctx, existing)
			if err != nil {
				return err
			}
			d.ApplyDonation(day("2024-02-02"))
			if err := store.UpdateDonor(ctx, d); err != nil {
				return err
			}
			if err := store.InsertDonation(ctx, &models.Donation{DonorID: existing, DonationDate: day("2024-02-02"), Location: "X"}); err != nil {
				return err
			}
			return boom
		})
		s.Require().ErrorIs(err, boom)

		_, err = s.store.FindDonor(ctx, created)
		s.ErrorIs(err, sentinel.ErrNotFound)

		d, err := s.store.FindDonor(ctx, existing)
		s.Require().NoError(err)
		s.Equal(0, d.TotalDonations)
		s.True(d.IsActive)
		s.Nil(d.LastDonation)

		donations, err := s.store.Donations(ctx, existing)
		s.Require().NoError(err)
		s.Empty(donations)
	})

	s.Run("refuses to start on a cancelled context", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := s.tx.RunInTx(cancelled, func(context.Context, service.Store) error {
			called = true
			return nil
		})
		s.Require().Error(err)
		s.False(called)
	})
}
