package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/service"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/platform/tx"
)

var _ service.Store = (*SQLStore)(nil)

const donorColumns = `donor_id, name, age, gender, location, state, blood_group,
	total_donations, last_donation, is_active, latitude, longitude`

// SQLStore persists donors in PostgreSQL or SQLite through database/sql.
// This store is pure I/O; eligibility rules live in the service. When ctx
// carries a transaction (see pkg/platform/tx) every query runs inside it.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewPostgres constructs a PostgreSQL-backed donor store.
func NewPostgres(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: DialectPostgres}
}

// NewSQLite constructs a SQLite-backed donor store.
func NewSQLite(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: DialectSQLite}
}

func (s *SQLStore) conn(ctx context.Context) tx.DBTX {
	return tx.Conn(ctx, s.db)
}

func (s *SQLStore) CreateDonor(ctx context.Context, donor *models.Donor) (int64, error) {
	query := s.dialect.Rebind(`
		INSERT INTO donors (name, age, gender, location, state, blood_group,
			total_donations, last_donation, is_active, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING donor_id
	`)
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		donor.Name,
		donor.Age,
		string(donor.Gender),
		donor.Location,
		donor.State,
		string(donor.BloodGroup),
		donor.TotalDonations,
		s.nullableDate(donor),
		donor.IsActive,
		donor.Latitude,
		donor.Longitude,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create donor: %w", err)
	}
	donor.ID = id
	return id, nil
}

// FindDonor loads one donor. Inside a transaction the row is locked on
// PostgreSQL so the read-modify-write in the service cannot interleave.
func (s *SQLStore) FindDonor(ctx context.Context, id int64) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE donor_id = $1`
	if _, inTx := tx.From(ctx); inTx {
		query += s.dialect.lockClause()
	}
	donor, err := scanDonor(s.conn(ctx).QueryRowContext(ctx, s.dialect.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor: %w", err)
	}
	return donor, nil
}

// UpdateDonor writes the eligibility fields. Identity and location fields are
// fixed at registration.
func (s *SQLStore) UpdateDonor(ctx context.Context, donor *models.Donor) error {
	query := s.dialect.Rebind(`
		UPDATE donors
		SET total_donations = $1, last_donation = $2, is_active = $3
		WHERE donor_id = $4
	`)
	result, err := s.conn(ctx).ExecContext(ctx, query,
		donor.TotalDonations,
		s.nullableDate(donor),
		donor.IsActive,
		donor.ID,
	)
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donor rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ReactivateDonor flips is_active only while the row still holds the count and
// date seen when the candidate was listed.
func (s *SQLStore) ReactivateDonor(ctx context.Context, seen *models.Donor) (bool, error) {
	if seen.IsActive {
		return false, nil
	}
	query := `UPDATE donors SET is_active = TRUE
		WHERE donor_id = $1 AND is_active = FALSE AND total_donations = $2`
	args := []any{seen.ID, seen.TotalDonations}
	if seen.LastDonation == nil {
		query += ` AND last_donation IS NULL`
	} else {
		query += ` AND last_donation = $3`
		args = append(args, s.dialect.dateArg(*seen.LastDonation))
	}
	result, err := s.conn(ctx).ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("reactivate donor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reactivate donor rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *SQLStore) InsertDonation(ctx context.Context, donation *models.Donation) error {
	query := s.dialect.Rebind(`
		INSERT INTO donations (donor_id, donation_date, location)
		VALUES ($1, $2, $3)
		RETURNING donation_id
	`)
	err := s.conn(ctx).QueryRowContext(ctx, query,
		donation.DonorID,
		s.dialect.dateArg(donation.DonationDate),
		donation.Location,
	).Scan(&donation.ID)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (s *SQLStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	query := s.dialect.Rebind(`
		INSERT INTO donor_history (donor_id, name, status, record_date)
		VALUES ($1, $2, $3, $4)
		RETURNING history_id
	`)
	err := s.conn(ctx).QueryRowContext(ctx, query,
		entry.DonorID,
		entry.Name,
		string(entry.Status),
		s.dialect.dateArg(entry.RecordDate),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListActive returns active donors in donor_id order.
func (s *SQLStore) ListActive(ctx context.Context) ([]*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE is_active = TRUE ORDER BY donor_id`
	donors, err := s.listDonors(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active donors: %w", err)
	}
	return donors, nil
}

// ListReactivationCandidates returns inactive donors below the lifetime cap.
// Inside a transaction the rows are locked like FindDonor.
func (s *SQLStore) ListReactivationCandidates(ctx context.Context) ([]*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors
		WHERE is_active = FALSE AND total_donations < $1
		ORDER BY donor_id`
	if _, inTx := tx.From(ctx); inTx {
		query += s.dialect.lockClause()
	}
	donors, err := s.listDonors(ctx, s.dialect.Rebind(query), models.MaxLifetimeDonations)
	if err != nil {
		return nil, fmt.Errorf("list reactivation candidates: %w", err)
	}
	return donors, nil
}

// Donations returns the donations recorded for donorID in insertion order.
func (s *SQLStore) Donations(ctx context.Context, donorID int64) ([]models.Donation, error) {
	query := s.dialect.Rebind(`
		SELECT donation_id, donor_id, donation_date, location
		FROM donations WHERE donor_id = $1 ORDER BY donation_id
	`)
	rows, err := s.conn(ctx).QueryContext(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Donation
	for rows.Next() {
		var d models.Donation
		var raw any
		if err := rows.Scan(&d.ID, &d.DonorID, &raw, &d.Location); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		day, err := parseDateValue(raw)
		if err != nil || day == nil {
			return nil, fmt.Errorf("scan donation date: %w", errOrMissing(err))
		}
		d.DonationDate = *day
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

// History returns the history entries for donorID in insertion order.
func (s *SQLStore) History(ctx context.Context, donorID int64) ([]models.HistoryEntry, error) {
	query := s.dialect.Rebind(`
		SELECT history_id, donor_id, name, status, record_date
		FROM donor_history WHERE donor_id = $1 ORDER BY history_id
	`)
	rows, err := s.conn(ctx).QueryContext(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.HistoryEntry
	for rows.Next() {
		var h models.HistoryEntry
		var status string
		var raw any
		if err := rows.Scan(&h.ID, &h.DonorID, &h.Name, &status, &raw); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		day, err := parseDateValue(raw)
		if err != nil || day == nil {
			return nil, fmt.Errorf("scan history date: %w", errOrMissing(err))
		}
		h.Status = models.HistoryStatus(status)
		h.RecordDate = *day
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func (s *SQLStore) listDonors(ctx context.Context, query string, args ...any) ([]*models.Donor, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var donors []*models.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return donors, nil
}

func (s *SQLStore) nullableDate(donor *models.Donor) any {
	if donor.LastDonation == nil {
		return nil
	}
	return s.dialect.dateArg(*donor.LastDonation)
}

type donorRow interface {
	Scan(dest ...any) error
}

func scanDonor(row donorRow) (*models.Donor, error) {
	var d models.Donor
	var gender, group string
	var lastDonation any
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Age,
		&gender,
		&d.Location,
		&d.State,
		&group,
		&d.TotalDonations,
		&lastDonation,
		&d.IsActive,
		&d.Latitude,
		&d.Longitude,
	); err != nil {
		return nil, err
	}
	last, err := parseDateValue(lastDonation)
	if err != nil {
		return nil, err
	}
	d.Gender = models.Gender(gender)
	d.BloodGroup = models.BloodGroup(group)
	d.LastDonation = last
	return &d, nil
}

func errOrMissing(err error) error {
	if err != nil {
		return err
	}
	return errors.New("missing date")
}
